package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrProjectNotFound is returned when a project id has no row.
var ErrProjectNotFound = errors.New("project not found")

// Project is the root entity owning assessments, findings and audit
// events. Projects are created before any assessment and never deleted.
type Project struct {
	ProjectID      string `json:"project_id"`
	Name           string `json:"name"`
	Directory      string `json:"directory"`
	Classification string `json:"classification"`
	ImpactLevel    string `json:"impact_level"`
	CreatedAt      string `json:"created_at"`
	UpdatedAt      string `json:"updated_at"`
}

// CreateProject inserts or updates a project record.
func (s *Store) CreateProject(ctx context.Context, p *Project) error {
	if p.ProjectID == "" {
		return fmt.Errorf("project_id is required")
	}
	if p.Classification == "" {
		p.Classification = "CUI"
	}
	if p.ImpactLevel == "" {
		p.ImpactLevel = "IL4"
	}
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO projects (project_id, name, directory, classification, impact_level, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(project_id) DO UPDATE SET
			name = excluded.name,
			directory = excluded.directory,
			classification = excluded.classification,
			impact_level = excluded.impact_level,
			updated_at = excluded.updated_at`,
		p.ProjectID, p.Name, p.Directory, p.Classification, p.ImpactLevel, now, now)
	if err != nil {
		return fmt.Errorf("failed to create project %s: %w", p.ProjectID, err)
	}
	return nil
}

// GetProject loads one project or ErrProjectNotFound.
func (s *Store) GetProject(ctx context.Context, projectID string) (*Project, error) {
	var p Project
	err := s.db.QueryRowContext(ctx, `
		SELECT project_id, name, directory, classification, impact_level, created_at, updated_at
		FROM projects WHERE project_id = ?`, projectID).
		Scan(&p.ProjectID, &p.Name, &p.Directory, &p.Classification, &p.ImpactLevel, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrProjectNotFound, projectID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load project %s: %w", projectID, err)
	}
	return &p, nil
}

// ListProjects returns all projects ordered by id.
func (s *Store) ListProjects(ctx context.Context) ([]Project, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT project_id, name, directory, classification, impact_level, created_at, updated_at
		FROM projects ORDER BY project_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var out []Project
	for rows.Next() {
		var p Project
		if err := rows.Scan(&p.ProjectID, &p.Name, &p.Directory, &p.Classification, &p.ImpactLevel, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan project row: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
