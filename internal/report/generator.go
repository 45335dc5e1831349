// Package report renders CUI-marked Markdown compliance reports from
// persisted assessment rows and findings. Output is deterministic for a
// fixed set of rows: table orderings are total and versioning derives
// from the audit trail.
package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"steward/internal/assess"
	"steward/internal/cui"
	"steward/internal/store"
	"steward/pkg/logging"
)

// defaultTemplate is the built-in report layout used when no on-disk
// template overrides it.
const defaultTemplate = `# {{framework_name}} Compliance Report

| | |
|---|---|
| Project | {{project_name}} ({{project_id}}) |
| Classification | {{classification}} |
| Impact Level | {{impact_level}} |
| Assessment Date | {{assessment_date}} |
| Report Version | {{version}} |
| Assessor | {{assessor}} |
| Overall Score | {{overall_score}} |

## Executive Summary

{{executive_summary}}

## Coverage

{{coverage_table}}

## Detailed Results

{{detail_table}}

## Gap Analysis

{{gap_analysis}}

## Remediation Plan

{{remediation_plan}}

## NIST 800-53 Cross-Reference

{{nist_crossref}}

## Evidence Index

{{evidence_index}}

## Security Gate Evaluation

{{gate_evaluation}}
`

// Result is the outcome of one report generation.
type Result struct {
	Status     string                 `json:"status"`
	OutputFile string                 `json:"output_file"`
	Version    string                 `json:"version"`
	Summary    map[string]interface{} `json:"summary"`
	Gate       assess.GateResult      `json:"gate_result"`
}

// Generator renders reports for every framework the runner knows.
type Generator struct {
	store       *store.Store
	runner      *assess.Runner
	marking     *cui.Config
	templateDir string

	// now is swappable for deterministic tests.
	now func() time.Time
}

// NewGenerator wires a report generator. templateDir may be empty, in
// which case only the built-in template is used.
func NewGenerator(st *store.Store, runner *assess.Runner, marking *cui.Config, templateDir string) *Generator {
	if marking == nil {
		marking = cui.DefaultConfig()
	}
	return &Generator{
		store:       st,
		runner:      runner,
		marking:     marking,
		templateDir: templateDir,
		now:         time.Now,
	}
}

// Generate produces the Markdown report for (project, framework), writes
// it under the project's compliance directory and records the audit
// event. An empty assessment set still yields a well-formed report whose
// summary directs the reader to run the assessor.
func (g *Generator) Generate(ctx context.Context, frameworkID, projectID string) (*Result, error) {
	if frameworkID == "stig" {
		return g.generateSTIG(ctx, projectID)
	}
	engine, ok := g.runner.Engine(frameworkID)
	if !ok {
		return nil, fmt.Errorf("unknown framework: %s", frameworkID)
	}
	project, err := g.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	cat, err := g.runner.LoadCatalog(frameworkID, engine.CatalogFilename())
	if err != nil {
		return nil, err
	}
	rows, err := g.store.ListAssessments(ctx, frameworkID, projectID)
	if err != nil {
		return nil, err
	}

	counts := assess.Count(rows)
	groups := assess.GroupScores(cat, rows, assess.Scorer(frameworkID))
	score := assess.OverallScore(frameworkID, counts, groups)

	var ivvFindings []store.IVVFinding
	if frameworkID == "ivv" {
		if ivvFindings, err = g.store.ListIVVFindings(ctx, projectID); err != nil {
			return nil, err
		}
	}
	gate := assess.EvaluateGate(frameworkID, cat, rows, counts, score, nil, ivvFindings)
	posture := assess.PostureFor(frameworkID, score, gate.Passed)

	version, err := g.nextVersion(ctx, projectID, eventType(frameworkID))
	if err != nil {
		return nil, err
	}

	now := g.now().UTC()
	vars := map[string]interface{}{
		"project_id":        project.ProjectID,
		"project_name":      project.Name,
		"classification":    project.Classification,
		"impact_level":      project.ImpactLevel,
		"assessment_date":   now.Format("2006-01-02"),
		"version":           version,
		"assessor":          "Compliance Platform",
		"overall_score":     score,
		"posture":           posture,
		"gate_result":       gateLabel(gate),
		"framework_name":    frameworkName(frameworkID),
		"cui_banner_top":    g.marking.BannerTop,
		"cui_banner_bottom": g.marking.BannerBottom,
		"executive_summary": executiveSummary(frameworkID, project, counts, score, posture, gate),
		"coverage_table":    coverageSection(groups),
		"detail_table":      detailSection(frameworkID, cat, rows),
		"gap_analysis":      gapSection(frameworkID, cat, rows),
		"remediation_plan":  remediationSection(cat, rows, now),
		"nist_crossref":     nistCrossRefSection(cat, rows),
		"evidence_index":    evidenceSection(rows),
		"gate_evaluation":   gateSection(gate),
	}

	rendered := g.marking.Apply(Substitute(g.loadTemplate(frameworkID), vars))

	outputFile, err := g.write(project, frameworkID, version, rendered)
	if err != nil {
		return nil, err
	}

	summary := map[string]interface{}{
		"framework":     frameworkID,
		"overall_score": score,
		"posture":       posture,
		"status_counts": counts.Map(),
	}
	_ = g.store.AppendAudit(ctx, &store.AuditEvent{
		ProjectID: projectID,
		EventType: eventType(frameworkID),
		Actor:     "report-generator",
		Action:    fmt.Sprintf("Generated %s report v%s", frameworkID, version),
		Details: map[string]interface{}{
			"version":       version,
			"overall_score": score,
			"gate_result":   gateLabel(gate),
			"output_file":   outputFile,
			"status_counts": counts.Map(),
		},
		AffectedFiles: []string{outputFile},
	})

	logging.Info("Report", "Wrote %s report v%s for %s to %s", frameworkID, version, projectID, outputFile)
	return &Result{
		Status:     "success",
		OutputFile: outputFile,
		Version:    version,
		Summary:    summary,
		Gate:       gate,
	}, nil
}

// nextVersion derives the report version from the count of prior
// generation events: "{count+1}.0".
func (g *Generator) nextVersion(ctx context.Context, projectID, event string) (string, error) {
	n, err := g.store.CountAuditEvents(ctx, projectID, event)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d.0", n+1), nil
}

// loadTemplate prefers an on-disk per-framework template, falling back to
// the built-in layout.
func (g *Generator) loadTemplate(frameworkID string) string {
	if g.templateDir == "" {
		return defaultTemplate
	}
	path := filepath.Join(g.templateDir, frameworkID+"-report.md")
	data, err := os.ReadFile(path)
	if err != nil {
		logging.Debug("Report", "Using built-in template for %s: %v", frameworkID, err)
		return defaultTemplate
	}
	return string(data)
}

func (g *Generator) write(project *store.Project, frameworkID, version, rendered string) (string, error) {
	dir := filepath.Join(project.Directory, "compliance")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}
	outputFile := filepath.Join(dir, fmt.Sprintf("%s-report-v%s.md", frameworkID, version))
	if err := os.WriteFile(outputFile, []byte(rendered), 0o644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return outputFile, nil
}

func eventType(frameworkID string) string {
	return frameworkID + "_report"
}

func gateLabel(gate assess.GateResult) string {
	if gate.Passed {
		return "PASS"
	}
	return "FAIL"
}
