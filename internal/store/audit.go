package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"steward/pkg/logging"
)

// AuditEvent is one append-only audit trail entry. Events are written
// synchronously with every state-changing operation and never updated or
// deleted.
type AuditEvent struct {
	EventID        string                 `json:"event_id"`
	ProjectID      string                 `json:"project_id"`
	EventType      string                 `json:"event_type"`
	Actor          string                 `json:"actor"`
	Action         string                 `json:"action"`
	Details        map[string]interface{} `json:"details"`
	AffectedFiles  []string               `json:"affected_files"`
	Classification string                 `json:"classification"`
	Timestamp      string                 `json:"timestamp"`
}

// execer abstracts *sql.DB and *sql.Tx so audit writes can join the
// caller's transaction.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// AppendAuditTx writes an audit event using the given transaction. Used
// by writers that must pair their state change with the event atomically.
func (s *Store) AppendAuditTx(ctx context.Context, tx *sql.Tx, event *AuditEvent) error {
	return appendAudit(ctx, tx, event)
}

// AppendAudit writes an audit event outside any caller transaction. The
// write is best-effort: failures are logged to stderr and reported, but
// callers treat them as non-fatal for the containing operation.
func (s *Store) AppendAudit(ctx context.Context, event *AuditEvent) error {
	if err := appendAudit(ctx, s.db, event); err != nil {
		logging.Error("Audit", err, "Failed to append audit event %s for project %s",
			event.EventType, event.ProjectID)
		return err
	}
	return nil
}

func appendAudit(ctx context.Context, db execer, event *AuditEvent) error {
	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}
	if event.Timestamp == "" {
		event.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	if event.Classification == "" {
		event.Classification = "CUI"
	}

	details := "{}"
	if event.Details != nil {
		data, err := json.Marshal(event.Details)
		if err != nil {
			return fmt.Errorf("failed to serialize audit details: %w", err)
		}
		details = string(data)
	}
	files := "[]"
	if event.AffectedFiles != nil {
		data, err := json.Marshal(event.AffectedFiles)
		if err != nil {
			return fmt.Errorf("failed to serialize affected files: %w", err)
		}
		files = string(data)
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO audit_trail (event_id, project_id, event_type, actor, action, details, affected_files, classification, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.EventID, event.ProjectID, event.EventType, event.Actor, event.Action,
		details, files, event.Classification, event.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to append audit event: %w", err)
	}
	return nil
}

// CountAuditEvents returns the number of prior events of one type for a
// project. Report versioning is derived from this count.
func (s *Store) CountAuditEvents(ctx context.Context, projectID, eventType string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM audit_trail WHERE project_id = ? AND event_type = ?`,
		projectID, eventType).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count audit events: %w", err)
	}
	return n, nil
}

// ListAuditEvents returns the audit trail for a project, oldest first.
func (s *Store) ListAuditEvents(ctx context.Context, projectID string) ([]AuditEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT event_id, project_id, event_type, actor, action, details, affected_files, classification, timestamp
		FROM audit_trail WHERE project_id = ? ORDER BY id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit events: %w", err)
	}
	defer rows.Close()

	var out []AuditEvent
	for rows.Next() {
		var e AuditEvent
		var details, files string
		if err := rows.Scan(&e.EventID, &e.ProjectID, &e.EventType, &e.Actor, &e.Action,
			&details, &files, &e.Classification, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan audit row: %w", err)
		}
		if err := json.Unmarshal([]byte(details), &e.Details); err != nil {
			e.Details = map[string]interface{}{"raw": details}
		}
		if err := json.Unmarshal([]byte(files), &e.AffectedFiles); err != nil {
			e.AffectedFiles = nil
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
