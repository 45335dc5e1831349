package assess

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sort"
	"time"

	"steward/internal/catalog"
	"steward/internal/store"
	"steward/pkg/logging"
)

// Check is one automated judgment of one requirement.
type Check struct {
	Status   Status `json:"status"`
	Evidence string `json:"evidence"`
	Notes    string `json:"notes,omitempty"`
}

// Engine identifies one framework's assessment engine. Engines that can
// derive judgments from project files additionally implement
// AutomatedChecker; pure-manual frameworks implement only this.
type Engine interface {
	FrameworkID() string
	CatalogFilename() string
}

// AutomatedChecker is implemented by engines that scan the project
// directory and produce per-requirement judgments keyed by requirement id.
type AutomatedChecker interface {
	AutomatedChecks(projectDir string, cat *catalog.Catalog) (map[string]Check, error)
}

// IVVBreakdown carries the verification/validation split of an IV&V score.
type IVVBreakdown struct {
	Verification float64 `json:"verification_score"`
	Validation   float64 `json:"validation_score"`
}

// Summary is the result of one assessment run.
type Summary struct {
	ProjectID      string         `json:"project_id"`
	FrameworkID    string         `json:"framework"`
	CatalogVersion string         `json:"catalog_version,omitempty"`
	Score          float64        `json:"score"`
	Posture        string         `json:"posture"`
	Counts         map[string]int `json:"status_counts"`
	Groups         []GroupScore   `json:"groups"`
	Gate           GateResult     `json:"gate"`
	IVV            *IVVBreakdown  `json:"ivv,omitempty"`
	AssessedAt     string         `json:"assessed_at"`
}

// Runner drives assessment engines against the shared store.
type Runner struct {
	store   *store.Store
	loader  *catalog.Loader
	engines map[string]Engine
}

// NewRunner registers the given engines.
func NewRunner(st *store.Store, loader *catalog.Loader, engines ...Engine) *Runner {
	r := &Runner{store: st, loader: loader, engines: make(map[string]Engine, len(engines))}
	for _, e := range engines {
		r.engines[e.FrameworkID()] = e
	}
	return r
}

// Engine returns the registered engine for a framework id.
func (r *Runner) Engine(frameworkID string) (Engine, bool) {
	e, ok := r.engines[frameworkID]
	return e, ok
}

// LoadCatalog resolves a catalog file through the shared loader.
func (r *Runner) LoadCatalog(frameworkID, filename string) (*catalog.Catalog, error) {
	return r.loader.Load(frameworkID, filename)
}

// Frameworks returns the registered framework ids in sorted order.
func (r *Runner) Frameworks() []string {
	ids := make([]string, 0, len(r.engines))
	for id := range r.engines {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Assess runs one framework assessment for one project: automated checks
// where the engine supports them, merged with prior rows, written in a
// single transaction together with the audit event.
//
// Merge rules: an automated judgment overwrites the stored row, a prior
// not_applicable or risk_accepted included; requirements automation has
// no judgment for keep their prior row untouched, or start not_assessed.
func (r *Runner) Assess(ctx context.Context, frameworkID, projectID string) (*Summary, error) {
	engine, ok := r.engines[frameworkID]
	if !ok {
		return nil, fmt.Errorf("unknown framework: %s", frameworkID)
	}
	project, err := r.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	cat, err := r.loader.Load(frameworkID, engine.CatalogFilename())
	if err != nil {
		return nil, err
	}

	checks := r.runAutomatedChecks(engine, project, cat)

	prior := make(map[string]store.AssessmentRow)
	priorRows, err := r.store.ListAssessments(ctx, frameworkID, projectID)
	if err != nil {
		return nil, err
	}
	for _, row := range priorRows {
		prior[row.RequirementID] = row
	}

	now := time.Now().UTC().Format(time.RFC3339)
	rows := make([]store.AssessmentRow, 0, len(cat.Requirements))
	for _, id := range cat.SortedIDs() {
		row := mergeRow(frameworkID, projectID, id, prior, checks, now)
		rows = append(rows, row)
	}

	counts := Count(rows)
	groups := GroupScores(cat, rows, Scorer(frameworkID))
	score := OverallScore(frameworkID, counts, groups)

	var stigFindings []store.STIGFinding
	var ivvFindings []store.IVVFinding
	switch frameworkID {
	case "stig":
		if stigFindings, err = r.store.ListSTIGFindings(ctx, projectID); err != nil {
			return nil, err
		}
	case "ivv":
		if ivvFindings, err = r.store.ListIVVFindings(ctx, projectID); err != nil {
			return nil, err
		}
	}
	gate := EvaluateGate(frameworkID, cat, rows, counts, score, stigFindings, ivvFindings)

	err = r.store.WithTx(ctx, func(tx *sql.Tx) error {
		for i := range rows {
			if err := r.store.UpsertAssessmentTx(ctx, tx, frameworkID, &rows[i]); err != nil {
				return err
			}
		}
		return r.store.AppendAuditTx(ctx, tx, &store.AuditEvent{
			ProjectID: projectID,
			EventType: frameworkID + "_assessment",
			Actor:     "assessment-engine",
			Action:    fmt.Sprintf("Assessed %d %s requirements", len(rows), frameworkID),
			Details: map[string]interface{}{
				"framework":   frameworkID,
				"score":       score,
				"total":       counts.Total,
				"satisfied":   counts.Satisfied,
				"gate_passed": gate.Passed,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		ProjectID:      projectID,
		FrameworkID:    frameworkID,
		CatalogVersion: cat.Version,
		Score:          score,
		Posture:        PostureFor(frameworkID, score, gate.Passed),
		Counts:         counts.Map(),
		Groups:         groups,
		Gate:           gate,
		AssessedAt:     now,
	}
	if frameworkID == "ivv" {
		verification, validation, _ := IVVScore(groups)
		summary.IVV = &IVVBreakdown{Verification: verification, Validation: validation}
	}
	logging.Info("Assess", "%s assessment of %s: score %.1f (%s), gate passed=%t",
		frameworkID, projectID, score, summary.Posture, gate.Passed)
	return summary, nil
}

// runAutomatedChecks invokes the engine's scanner when it has one. A
// missing project directory downgrades to a warning: the assessment
// proceeds with manual judgments only.
func (r *Runner) runAutomatedChecks(engine Engine, project *store.Project, cat *catalog.Catalog) map[string]Check {
	checker, ok := engine.(AutomatedChecker)
	if !ok {
		return nil
	}
	if project.Directory == "" {
		return nil
	}
	if _, err := os.Stat(project.Directory); err != nil {
		logging.Warn("Assess", "Skipping automated %s checks, project directory unavailable: %v",
			engine.FrameworkID(), err)
		return nil
	}
	checks, err := checker.AutomatedChecks(project.Directory, cat)
	if err != nil {
		logging.Warn("Assess", "Automated %s checks failed: %v", engine.FrameworkID(), err)
		return nil
	}
	return checks
}

func mergeRow(frameworkID, projectID, requirementID string, prior map[string]store.AssessmentRow, checks map[string]Check, now string) store.AssessmentRow {
	row, hadPrior := prior[requirementID]
	if !hadPrior {
		row = store.AssessmentRow{
			ProjectID:     projectID,
			RequirementID: requirementID,
			Status:        string(StatusNotAssessed),
		}
	}

	if check, ok := checks[requirementID]; ok {
		row.Status = string(check.Status)
		row.AutomationResult = check.Evidence
		row.Assessor = "automated"
		if check.Evidence != "" {
			row.EvidenceDescription = check.Evidence
		}
		if check.Notes != "" {
			row.Notes = check.Notes
		}
	}
	row.UpdatedAt = now
	return row
}
