package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// AssessmentRow is one stored judgment of one requirement's status for one
// project under one framework. Statuses are canonical (see internal/assess)
// at this boundary regardless of the framework's display vocabulary.
type AssessmentRow struct {
	ProjectID           string `json:"project_id"`
	RequirementID       string `json:"requirement_id"`
	Status              string `json:"status"`
	EvidenceDescription string `json:"evidence_description"`
	EvidencePath        string `json:"evidence_path"`
	Notes               string `json:"notes"`
	AutomationResult    string `json:"automation_result"`
	Assessor            string `json:"assessor"`
	UpdatedAt           string `json:"updated_at"`
}

// UpsertAssessmentTx writes one assessment row inside the caller's
// transaction, keyed by (project, requirement). Re-assessments overwrite
// in place.
func (s *Store) UpsertAssessmentTx(ctx context.Context, tx *sql.Tx, frameworkID string, row *AssessmentRow) error {
	table, err := AssessmentTable(frameworkID)
	if err != nil {
		return err
	}
	if row.UpdatedAt == "" {
		row.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	_, err = tx.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (project_id, requirement_id, status, evidence_description, evidence_path, notes, automation_result, assessor, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(project_id, requirement_id) DO UPDATE SET
			status = excluded.status,
			evidence_description = excluded.evidence_description,
			evidence_path = excluded.evidence_path,
			notes = excluded.notes,
			automation_result = excluded.automation_result,
			assessor = excluded.assessor,
			updated_at = excluded.updated_at`, table),
		row.ProjectID, row.RequirementID, row.Status, row.EvidenceDescription,
		row.EvidencePath, row.Notes, row.AutomationResult, row.Assessor, row.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert assessment %s/%s: %w", row.ProjectID, row.RequirementID, err)
	}
	return nil
}

// UpsertAssessment writes one row in its own transaction, for callers
// recording a single manual judgment outside an assessment run.
func (s *Store) UpsertAssessment(ctx context.Context, frameworkID string, row *AssessmentRow) error {
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		return s.UpsertAssessmentTx(ctx, tx, frameworkID, row)
	})
}

// ListAssessments returns every assessment row for (project, framework)
// ordered by requirement id, which fixes report table ordering.
func (s *Store) ListAssessments(ctx context.Context, frameworkID, projectID string) ([]AssessmentRow, error) {
	table, err := AssessmentTable(frameworkID)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT project_id, requirement_id, status, evidence_description, evidence_path, notes, automation_result, assessor, updated_at
		FROM %s WHERE project_id = ? ORDER BY requirement_id`, table), projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s assessments: %w", frameworkID, err)
	}
	defer rows.Close()

	var out []AssessmentRow
	for rows.Next() {
		var r AssessmentRow
		if err := rows.Scan(&r.ProjectID, &r.RequirementID, &r.Status, &r.EvidenceDescription,
			&r.EvidencePath, &r.Notes, &r.AutomationResult, &r.Assessor, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan assessment row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetAssessment loads one row, or nil when the requirement was never
// assessed for the project.
func (s *Store) GetAssessment(ctx context.Context, frameworkID, projectID, requirementID string) (*AssessmentRow, error) {
	table, err := AssessmentTable(frameworkID)
	if err != nil {
		return nil, err
	}
	var r AssessmentRow
	err = s.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT project_id, requirement_id, status, evidence_description, evidence_path, notes, automation_result, assessor, updated_at
		FROM %s WHERE project_id = ? AND requirement_id = ?`, table), projectID, requirementID).
		Scan(&r.ProjectID, &r.RequirementID, &r.Status, &r.EvidenceDescription,
			&r.EvidencePath, &r.Notes, &r.AutomationResult, &r.Assessor, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load assessment: %w", err)
	}
	return &r, nil
}
