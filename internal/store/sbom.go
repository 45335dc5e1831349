package store

import (
	"context"
	"fmt"
	"time"
)

// SBOMRecord tracks one emitted SBOM version for a project.
type SBOMRecord struct {
	ID             int64  `json:"id"`
	ProjectID      string `json:"project_id"`
	Version        int    `json:"version"`
	ComponentCount int    `json:"component_count"`
	OutputFile     string `json:"output_file"`
	CreatedAt      string `json:"created_at"`
}

// RecordSBOM stores one SBOM emission. The version is one greater than
// the project's previous record.
func (s *Store) RecordSBOM(ctx context.Context, projectID, outputFile string, componentCount int) (*SBOMRecord, error) {
	var prior int
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM sbom_records WHERE project_id = ?`,
		projectID).Scan(&prior)
	if err != nil {
		return nil, fmt.Errorf("failed to read SBOM version: %w", err)
	}

	rec := &SBOMRecord{
		ProjectID:      projectID,
		Version:        prior + 1,
		ComponentCount: componentCount,
		OutputFile:     outputFile,
		CreatedAt:      time.Now().UTC().Format(time.RFC3339),
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO sbom_records (project_id, version, component_count, output_file, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		rec.ProjectID, rec.Version, rec.ComponentCount, rec.OutputFile, rec.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to record SBOM: %w", err)
	}
	rec.ID, _ = res.LastInsertId()
	return rec, nil
}

// ListSBOMRecords returns a project's SBOM history, newest first.
func (s *Store) ListSBOMRecords(ctx context.Context, projectID string) ([]SBOMRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project_id, version, component_count, output_file, created_at
		FROM sbom_records WHERE project_id = ? ORDER BY version DESC`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list SBOM records: %w", err)
	}
	defer rows.Close()

	var out []SBOMRecord
	for rows.Next() {
		var r SBOMRecord
		if err := rows.Scan(&r.ID, &r.ProjectID, &r.Version, &r.ComponentCount, &r.OutputFile, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan SBOM record: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
