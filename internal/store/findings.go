package store

import (
	"context"
	"fmt"
	"time"
)

// STIGFinding is one STIG vulnerability judgment for a project.
type STIGFinding struct {
	ProjectID string `json:"project_id"`
	VulnID    string `json:"vuln_id"`
	Severity  string `json:"severity"` // CAT1|CAT2|CAT3
	Title     string `json:"title"`
	Status    string `json:"status"` // Open|NotAFinding|Not_Applicable|Not_Reviewed
	Evidence  string `json:"evidence"`
	FixText   string `json:"fix_text"`
	Comments  string `json:"comments"`
	UpdatedAt string `json:"updated_at"`
}

// IVVFinding is one IEEE 1012 IV&V finding for a project.
type IVVFinding struct {
	ProjectID string `json:"project_id"`
	FindingID string `json:"finding_id"`
	Severity  string `json:"severity"` // critical|high|medium|low
	Title     string `json:"title"`
	Status    string `json:"status"` // open|in_progress|resolved|accepted_risk|deferred
	Area      string `json:"area"`
	Evidence  string `json:"evidence"`
	FixText   string `json:"fix_text"`
	UpdatedAt string `json:"updated_at"`
}

// UpsertSTIGFinding writes one STIG finding keyed by (project, vuln id).
func (s *Store) UpsertSTIGFinding(ctx context.Context, f *STIGFinding) error {
	if f.UpdatedAt == "" {
		f.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO stig_findings (project_id, vuln_id, severity, title, status, evidence, fix_text, comments, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(project_id, vuln_id) DO UPDATE SET
			severity = excluded.severity,
			title = excluded.title,
			status = excluded.status,
			evidence = excluded.evidence,
			fix_text = excluded.fix_text,
			comments = excluded.comments,
			updated_at = excluded.updated_at`,
		f.ProjectID, f.VulnID, f.Severity, f.Title, f.Status, f.Evidence, f.FixText, f.Comments, f.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert STIG finding %s: %w", f.VulnID, err)
	}
	return nil
}

// ListSTIGFindings returns every STIG finding for a project ordered by
// vulnerability id.
func (s *Store) ListSTIGFindings(ctx context.Context, projectID string) ([]STIGFinding, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT project_id, vuln_id, severity, title, status, evidence, fix_text, comments, updated_at
		FROM stig_findings WHERE project_id = ? ORDER BY vuln_id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list STIG findings: %w", err)
	}
	defer rows.Close()

	var out []STIGFinding
	for rows.Next() {
		var f STIGFinding
		if err := rows.Scan(&f.ProjectID, &f.VulnID, &f.Severity, &f.Title, &f.Status,
			&f.Evidence, &f.FixText, &f.Comments, &f.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan STIG finding: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// UpsertIVVFinding writes one IV&V finding keyed by (project, finding id).
func (s *Store) UpsertIVVFinding(ctx context.Context, f *IVVFinding) error {
	if f.UpdatedAt == "" {
		f.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ivv_findings (project_id, finding_id, severity, title, status, area, evidence, fix_text, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(project_id, finding_id) DO UPDATE SET
			severity = excluded.severity,
			title = excluded.title,
			status = excluded.status,
			area = excluded.area,
			evidence = excluded.evidence,
			fix_text = excluded.fix_text,
			updated_at = excluded.updated_at`,
		f.ProjectID, f.FindingID, f.Severity, f.Title, f.Status, f.Area, f.Evidence, f.FixText, f.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert IV&V finding %s: %w", f.FindingID, err)
	}
	return nil
}

// ListIVVFindings returns every IV&V finding for a project ordered by
// finding id.
func (s *Store) ListIVVFindings(ctx context.Context, projectID string) ([]IVVFinding, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT project_id, finding_id, severity, title, status, area, evidence, fix_text, updated_at
		FROM ivv_findings WHERE project_id = ? ORDER BY finding_id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list IV&V findings: %w", err)
	}
	defer rows.Close()

	var out []IVVFinding
	for rows.Next() {
		var f IVVFinding
		if err := rows.Scan(&f.ProjectID, &f.FindingID, &f.Severity, &f.Title, &f.Status,
			&f.Area, &f.Evidence, &f.FixText, &f.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan IV&V finding: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
