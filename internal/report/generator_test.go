package report

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"steward/internal/assess"
	"steward/internal/catalog"
	"steward/internal/cui"
	"steward/internal/store"
)

type fixture struct {
	store      *store.Store
	generator  *Generator
	projectDir string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "steward.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	catalogDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(catalogDir, "cmmc_practices.json"), []byte(`{
		"version": "2.0",
		"practices": [
			{"id": "AC.L1-3.1.1", "title": "Limit system access", "domain": "AC", "priority": "critical", "nist_controls": ["AC-2", "AC-3"]},
			{"id": "AC.L1-3.1.2", "title": "Limit transaction types", "domain": "AC", "priority": "high"},
			{"id": "IA.L1-3.5.1", "title": "Identify users", "domain": "IA", "priority": "high"}
		]
	}`), 0o644))
	loader := catalog.NewLoader(catalogDir)
	t.Cleanup(func() { _ = loader.Close() })

	runner := assess.NewRunner(s, loader, assess.DefaultEngines()...)
	projectDir := t.TempDir()
	require.NoError(t, s.CreateProject(context.Background(), &store.Project{
		ProjectID: "p1", Name: "Demo System", Directory: projectDir,
	}))

	g := NewGenerator(s, runner, cui.DefaultConfig(), "")
	g.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return &fixture{store: s, generator: g, projectDir: projectDir}
}

func (f *fixture) upsert(t *testing.T, frameworkID string, rows ...store.AssessmentRow) {
	t.Helper()
	require.NoError(t, f.store.WithTx(context.Background(), func(tx *sql.Tx) error {
		for i := range rows {
			rows[i].ProjectID = "p1"
			if err := f.store.UpsertAssessmentTx(context.Background(), tx, frameworkID, &rows[i]); err != nil {
				return err
			}
		}
		return nil
	}))
}

func TestGenerate_FullReport(t *testing.T) {
	f := newFixture(t)
	f.upsert(t, "cmmc",
		store.AssessmentRow{RequirementID: "AC.L1-3.1.1", Status: "satisfied", EvidencePath: "docs/access.md"},
		store.AssessmentRow{RequirementID: "AC.L1-3.1.2", Status: "partially_satisfied"},
		store.AssessmentRow{RequirementID: "IA.L1-3.5.1", Status: "not_satisfied"},
	)

	res, err := f.generator.Generate(context.Background(), "cmmc", "p1")
	require.NoError(t, err)
	assert.Equal(t, "success", res.Status)
	assert.Equal(t, "1.0", res.Version)
	assert.False(t, res.Gate.Passed)
	assert.Equal(t, filepath.Join(f.projectDir, "compliance", "cmmc-report-v1.0.md"), res.OutputFile)

	data, err := os.ReadFile(res.OutputFile)
	require.NoError(t, err)
	text := string(data)

	assert.True(t, strings.HasPrefix(text, cui.DefaultConfig().DocumentHeader))
	assert.Contains(t, text, "CMMC Level 2 Compliance Report")
	assert.Contains(t, text, "## Security Gate Evaluation")
	assert.Contains(t, text, "**FAIL**")
	// CMMC display vocabulary in the detail table.
	assert.Contains(t, text, "not_met")
	// Remediation window for the high-priority gap: 30 days from now().
	assert.Contains(t, text, "2026-03-31")
	assert.Contains(t, text, "AC-2, AC-3")
	assert.Contains(t, text, "docs/access.md")
	// No unresolved placeholders in the rendered output.
	assert.NotContains(t, text, "{{")
}

func TestGenerate_VersionIncrements(t *testing.T) {
	f := newFixture(t)
	f.upsert(t, "cmmc", store.AssessmentRow{RequirementID: "AC.L1-3.1.1", Status: "satisfied"})

	first, err := f.generator.Generate(context.Background(), "cmmc", "p1")
	require.NoError(t, err)
	second, err := f.generator.Generate(context.Background(), "cmmc", "p1")
	require.NoError(t, err)

	assert.Equal(t, "1.0", first.Version)
	assert.Equal(t, "2.0", second.Version)
	assert.FileExists(t, filepath.Join(f.projectDir, "compliance", "cmmc-report-v2.0.md"))
}

func TestGenerate_EmptyAssessments(t *testing.T) {
	f := newFixture(t)

	res, err := f.generator.Generate(context.Background(), "cmmc", "p1")
	require.NoError(t, err)
	assert.Equal(t, "success", res.Status)

	data, err := os.ReadFile(res.OutputFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Run the assessor first")
}

func TestGenerate_ProjectNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.generator.Generate(context.Background(), "cmmc", "ghost")
	assert.ErrorIs(t, err, store.ErrProjectNotFound)
}

func TestGenerate_UnknownFramework(t *testing.T) {
	f := newFixture(t)
	_, err := f.generator.Generate(context.Background(), "sox", "p1")
	assert.ErrorContains(t, err, "unknown framework")
}

func TestGenerate_CustomTemplateWithUnknownVariable(t *testing.T) {
	f := newFixture(t)
	templateDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(templateDir, "cmmc-report.md"),
		[]byte("# Custom {{project_id}} {{made_up_var}}\n"), 0o644))
	f.generator.templateDir = templateDir
	f.upsert(t, "cmmc", store.AssessmentRow{RequirementID: "AC.L1-3.1.1", Status: "satisfied"})

	res, err := f.generator.Generate(context.Background(), "cmmc", "p1")
	require.NoError(t, err)

	data, err := os.ReadFile(res.OutputFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# Custom p1 {{made_up_var}}")
}

func TestGenerateSTIG_GateFail(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.UpsertSTIGFinding(context.Background(), &store.STIGFinding{
		ProjectID: "p1", VulnID: "V-222635", Severity: "CAT1",
		Title: "The application must enforce access control", Status: "Open",
	}))

	res, err := f.generator.Generate(context.Background(), "stig", "p1")
	require.NoError(t, err)
	assert.False(t, res.Gate.Passed)
	assert.Equal(t, 1, res.Summary["cat1_open"])

	data, err := os.ReadFile(res.OutputFile)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "## Security Gate Evaluation")
	assert.Contains(t, text, "**FAIL**")
	assert.Contains(t, text, "V-222635")
}

func TestGenerateSTIG_NoFindingsPasses(t *testing.T) {
	f := newFixture(t)

	res, err := f.generator.Generate(context.Background(), "stig", "p1")
	require.NoError(t, err)
	assert.True(t, res.Gate.Passed)

	data, err := os.ReadFile(res.OutputFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "**PASS**")
}
