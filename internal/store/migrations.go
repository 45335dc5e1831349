package store

import (
	"fmt"

	"steward/pkg/logging"
)

// CurrentSchemaVersion is bumped whenever a migration is appended.
const CurrentSchemaVersion = 1

// assessmentFrameworks lists every framework with its own *_assessments
// table. Table names are derived from this list and validated against it
// before being interpolated into SQL.
var assessmentFrameworks = []string{
	"nist_800_53",
	"fips",
	"cmmc",
	"fedramp",
	"atlas",
	"sbd",
	"ivv",
	"cssp",
	"zta",
}

// AssessmentTable returns the assessments table for a framework id, or an
// error for unknown frameworks. This is the only way table names reach
// SQL text.
func AssessmentTable(frameworkID string) (string, error) {
	for _, fw := range assessmentFrameworks {
		if fw == frameworkID {
			return fw + "_assessments", nil
		}
	}
	return "", fmt.Errorf("unknown assessment framework %q", frameworkID)
}

const assessmentTableDDL = `CREATE TABLE IF NOT EXISTS %s (
	project_id TEXT NOT NULL,
	requirement_id TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'not_assessed',
	evidence_description TEXT NOT NULL DEFAULT '',
	evidence_path TEXT NOT NULL DEFAULT '',
	notes TEXT NOT NULL DEFAULT '',
	automation_result TEXT NOT NULL DEFAULT '',
	assessor TEXT NOT NULL DEFAULT '',
	updated_at TEXT NOT NULL,
	PRIMARY KEY (project_id, requirement_id)
)`

var baseSchema = []string{
	`CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS projects (
		project_id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		directory TEXT NOT NULL DEFAULT '',
		classification TEXT NOT NULL DEFAULT 'CUI',
		impact_level TEXT NOT NULL DEFAULT 'IL4',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS audit_trail (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		event_id TEXT NOT NULL,
		project_id TEXT NOT NULL,
		event_type TEXT NOT NULL,
		actor TEXT NOT NULL DEFAULT '',
		action TEXT NOT NULL DEFAULT '',
		details TEXT NOT NULL DEFAULT '{}',
		affected_files TEXT NOT NULL DEFAULT '[]',
		classification TEXT NOT NULL DEFAULT 'CUI',
		timestamp TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_project_type
		ON audit_trail (project_id, event_type)`,
	`CREATE TABLE IF NOT EXISTS stig_findings (
		project_id TEXT NOT NULL,
		vuln_id TEXT NOT NULL,
		severity TEXT NOT NULL DEFAULT 'CAT3',
		title TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'Not_Reviewed',
		evidence TEXT NOT NULL DEFAULT '',
		fix_text TEXT NOT NULL DEFAULT '',
		comments TEXT NOT NULL DEFAULT '',
		updated_at TEXT NOT NULL,
		PRIMARY KEY (project_id, vuln_id)
	)`,
	`CREATE TABLE IF NOT EXISTS ivv_findings (
		project_id TEXT NOT NULL,
		finding_id TEXT NOT NULL,
		severity TEXT NOT NULL DEFAULT 'medium',
		title TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'open',
		area TEXT NOT NULL DEFAULT '',
		evidence TEXT NOT NULL DEFAULT '',
		fix_text TEXT NOT NULL DEFAULT '',
		updated_at TEXT NOT NULL,
		PRIMARY KEY (project_id, finding_id)
	)`,
	`CREATE TABLE IF NOT EXISTS intake_sessions (
		session_id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'active',
		created_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS intake_requirements (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		raw_text TEXT NOT NULL,
		requirement_type TEXT NOT NULL DEFAULT '',
		clarity_score REAL,
		completeness_score REAL,
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_intake_session
		ON intake_requirements (session_id)`,
	`CREATE TABLE IF NOT EXISTS sbom_records (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		project_id TEXT NOT NULL,
		version INTEGER NOT NULL,
		component_count INTEGER NOT NULL DEFAULT 0,
		output_file TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	)`,
}

// migrate applies the base schema plus one assessments table per
// framework. Statements are idempotent so re-running on an up-to-date
// database is a no-op.
func (s *Store) migrate() error {
	stmts := make([]string, 0, len(baseSchema)+len(assessmentFrameworks))
	stmts = append(stmts, baseSchema...)
	for _, fw := range assessmentFrameworks {
		stmts = append(stmts, fmt.Sprintf(assessmentTableDDL, fw+"_assessments"))
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("schema statement failed: %w", err)
		}
	}

	var version int
	err := s.db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&version)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if version < CurrentSchemaVersion {
		if _, err := s.db.Exec(
			`INSERT INTO schema_migrations (version, applied_at) VALUES (?, datetime('now'))`,
			CurrentSchemaVersion,
		); err != nil {
			return fmt.Errorf("failed to record schema version: %w", err)
		}
		logging.Info("Store", "Migrated schema from v%d to v%d", version, CurrentSchemaVersion)
	}
	return nil
}
