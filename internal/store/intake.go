package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrSessionNotFound is returned when an intake session id has no row.
var ErrSessionNotFound = errors.New("intake session not found")

// IntakeSession groups free-text requirements captured during one
// requirements-intake conversation.
type IntakeSession struct {
	SessionID string `json:"session_id"`
	ProjectID string `json:"project_id"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

// IntakeRequirement is one free-text requirement within a session.
// Clarity and completeness scores are optional analyses stored by the
// clarification engine.
type IntakeRequirement struct {
	ID                int64    `json:"id"`
	SessionID         string   `json:"session_id"`
	RawText           string   `json:"raw_text"`
	RequirementType   string   `json:"requirement_type"`
	ClarityScore      *float64 `json:"clarity_score,omitempty"`
	CompletenessScore *float64 `json:"completeness_score,omitempty"`
	CreatedAt         string   `json:"created_at"`
}

// CreateIntakeSession starts a new session and returns its id.
func (s *Store) CreateIntakeSession(ctx context.Context, projectID string) (*IntakeSession, error) {
	session := &IntakeSession{
		SessionID: uuid.NewString(),
		ProjectID: projectID,
		Status:    "active",
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO intake_sessions (session_id, project_id, status, created_at)
		VALUES (?, ?, ?, ?)`,
		session.SessionID, session.ProjectID, session.Status, session.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create intake session: %w", err)
	}
	return session, nil
}

// GetIntakeSession loads one session or ErrSessionNotFound.
func (s *Store) GetIntakeSession(ctx context.Context, sessionID string) (*IntakeSession, error) {
	var sess IntakeSession
	err := s.db.QueryRowContext(ctx, `
		SELECT session_id, project_id, status, created_at
		FROM intake_sessions WHERE session_id = ?`, sessionID).
		Scan(&sess.SessionID, &sess.ProjectID, &sess.Status, &sess.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load intake session: %w", err)
	}
	return &sess, nil
}

// AddIntakeRequirement appends one requirement to a session.
func (s *Store) AddIntakeRequirement(ctx context.Context, req *IntakeRequirement) (int64, error) {
	if req.CreatedAt == "" {
		req.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO intake_requirements (session_id, raw_text, requirement_type, clarity_score, completeness_score, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		req.SessionID, req.RawText, req.RequirementType, req.ClarityScore, req.CompletenessScore, req.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to add intake requirement: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read intake requirement id: %w", err)
	}
	req.ID = id
	return id, nil
}

// ListIntakeRequirements returns a session's requirements in insertion
// order.
func (s *Store) ListIntakeRequirements(ctx context.Context, sessionID string) ([]IntakeRequirement, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, raw_text, requirement_type, clarity_score, completeness_score, created_at
		FROM intake_requirements WHERE session_id = ? ORDER BY id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list intake requirements: %w", err)
	}
	defer rows.Close()

	var out []IntakeRequirement
	for rows.Next() {
		var r IntakeRequirement
		if err := rows.Scan(&r.ID, &r.SessionID, &r.RawText, &r.RequirementType,
			&r.ClarityScore, &r.CompletenessScore, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan intake requirement: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
