package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "steward.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "steward.db")

	s1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	// Re-opening an existing database must not fail on migrations.
	s2, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s2.Close())
}

func TestProjectCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.GetProject(ctx, "missing")
	assert.ErrorIs(t, err, ErrProjectNotFound)

	require.NoError(t, s.CreateProject(ctx, &Project{
		ProjectID: "p-1",
		Name:      "Test Project",
		Directory: "/tmp/p-1",
	}))

	p, err := s.GetProject(ctx, "p-1")
	require.NoError(t, err)
	assert.Equal(t, "Test Project", p.Name)
	assert.Equal(t, "CUI", p.Classification)
	assert.Equal(t, "IL4", p.ImpactLevel)

	all, err := s.ListProjects(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestAssessmentTableValidation(t *testing.T) {
	_, err := AssessmentTable("cmmc")
	assert.NoError(t, err)

	_, err = AssessmentTable("cmmc; DROP TABLE projects")
	assert.Error(t, err)
}

func TestAssessmentUpsertOverwritesInPlace(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.WithTx(ctx, func(tx *sql.Tx) error {
		return s.UpsertAssessmentTx(ctx, tx, "cmmc", &AssessmentRow{
			ProjectID:     "p-1",
			RequirementID: "AC.L1-3.1.1",
			Status:        "not_satisfied",
		})
	})
	require.NoError(t, err)

	err = s.WithTx(ctx, func(tx *sql.Tx) error {
		return s.UpsertAssessmentTx(ctx, tx, "cmmc", &AssessmentRow{
			ProjectID:           "p-1",
			RequirementID:       "AC.L1-3.1.1",
			Status:              "satisfied",
			EvidenceDescription: "access control policy",
		})
	})
	require.NoError(t, err)

	rows, err := s.ListAssessments(ctx, "cmmc", "p-1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "satisfied", rows[0].Status)
	assert.Equal(t, "access control policy", rows[0].EvidenceDescription)
}

func TestAssessmentRowsOrderedByRequirementID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ids := []string{"SC-7", "AC-2", "IA-2"}
	err := s.WithTx(ctx, func(tx *sql.Tx) error {
		for _, id := range ids {
			if err := s.UpsertAssessmentTx(ctx, tx, "nist_800_53", &AssessmentRow{
				ProjectID: "p-1", RequirementID: id, Status: "not_assessed",
			}); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	rows, err := s.ListAssessments(ctx, "nist_800_53", "p-1")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "AC-2", rows[0].RequirementID)
	assert.Equal(t, "IA-2", rows[1].RequirementID)
	assert.Equal(t, "SC-7", rows[2].RequirementID)
}

func TestAuditAppendAndCount(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	n, err := s.CountAuditEvents(ctx, "p-1", "cmmc_report_generated")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	for i := 0; i < 3; i++ {
		require.NoError(t, s.AppendAudit(ctx, &AuditEvent{
			ProjectID: "p-1",
			EventType: "cmmc_report_generated",
			Actor:     "steward",
			Action:    "generated report",
			Details:   map[string]interface{}{"version": i + 1},
		}))
	}
	require.NoError(t, s.AppendAudit(ctx, &AuditEvent{
		ProjectID: "p-1",
		EventType: "cmmc_assessment",
	}))

	n, err = s.CountAuditEvents(ctx, "p-1", "cmmc_report_generated")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	events, err := s.ListAuditEvents(ctx, "p-1")
	require.NoError(t, err)
	assert.Len(t, events, 4)
	assert.NotEmpty(t, events[0].EventID)
	assert.Equal(t, "CUI", events[0].Classification)
}

func TestAssessmentAndAuditShareTransaction(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// A failing transaction must leave neither the row nor the event.
	err := s.WithTx(ctx, func(tx *sql.Tx) error {
		if err := s.UpsertAssessmentTx(ctx, tx, "atlas", &AssessmentRow{
			ProjectID: "p-1", RequirementID: "ATLAS-01", Status: "satisfied",
		}); err != nil {
			return err
		}
		if err := s.AppendAuditTx(ctx, tx, &AuditEvent{
			ProjectID: "p-1", EventType: "atlas_assessment",
		}); err != nil {
			return err
		}
		return assert.AnError
	})
	require.Error(t, err)

	rows, err := s.ListAssessments(ctx, "atlas", "p-1")
	require.NoError(t, err)
	assert.Empty(t, rows)

	n, err := s.CountAuditEvents(ctx, "p-1", "atlas_assessment")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestSTIGFindings(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertSTIGFinding(ctx, &STIGFinding{
		ProjectID: "p-1",
		VulnID:    "V-222635",
		Severity:  "CAT1",
		Status:    "Open",
		Title:     "Application must use TLS",
	}))

	findings, err := s.ListSTIGFindings(ctx, "p-1")
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, "CAT1", findings[0].Severity)
	assert.Equal(t, "Open", findings[0].Status)
}

func TestIntakeSessionLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.GetIntakeSession(ctx, "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	sess, err := s.CreateIntakeSession(ctx, "p-1")
	require.NoError(t, err)
	require.NotEmpty(t, sess.SessionID)

	clarity := 0.3
	_, err = s.AddIntakeRequirement(ctx, &IntakeRequirement{
		SessionID:       sess.SessionID,
		RawText:         "The system should probably be fast",
		RequirementType: "performance",
		ClarityScore:    &clarity,
	})
	require.NoError(t, err)

	reqs, err := s.ListIntakeRequirements(ctx, sess.SessionID)
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	require.NotNil(t, reqs[0].ClarityScore)
	assert.InDelta(t, 0.3, *reqs[0].ClarityScore, 1e-9)
	assert.Nil(t, reqs[0].CompletenessScore)
}

func TestSBOMRecordVersioning(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.RecordSBOM(ctx, "p-1", "/tmp/sbom-1.json", 10)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Version)

	second, err := s.RecordSBOM(ctx, "p-1", "/tmp/sbom-2.json", 12)
	require.NoError(t, err)
	assert.Equal(t, 2, second.Version)

	records, err := s.ListSBOMRecords(ctx, "p-1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 2, records[0].Version)
}
