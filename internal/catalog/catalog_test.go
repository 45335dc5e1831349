package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCatalog(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoad_RequirementsKey(t *testing.T) {
	dir := t.TempDir()
	writeCatalog(t, dir, "cmmc.json", `{
		"version": "2.0",
		"requirements": [
			{"id": "AC.L1-3.1.1", "title": "Limit system access", "domain": "AC", "priority": "Critical"},
			{"id": "IA.L1-3.5.1", "title": "Identify users", "domain": "IA"}
		]
	}`)

	l := NewLoader(dir)
	defer l.Close()

	c, err := l.Load("cmmc", "cmmc.json")
	require.NoError(t, err)
	assert.Equal(t, "2.0", c.Version)
	require.Len(t, c.Requirements, 2)

	r, ok := c.Lookup("AC.L1-3.1.1")
	require.True(t, ok)
	assert.Equal(t, "Limit system access", r.DisplayTitle())
	// Priorities are normalized to lower case, absent ones default.
	assert.Equal(t, "critical", r.Priority)
	r2, _ := c.Lookup("IA.L1-3.5.1")
	assert.Equal(t, "medium", r2.Priority)
}

func TestLoad_AlternateArrayKeys(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"mitigations", `{"mitigations": [{"id": "AML.M0001", "name": "Limit release", "category": "governance"}]}`},
		{"controls", `{"controls": [{"id": "AC-2", "title": "Account Management", "family": "AC"}]}`},
		{"practices", `{"practices": [{"id": "P1", "title": "Practice one", "process_area": "planning"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeCatalog(t, dir, "fw.json", tt.content)
			l := NewLoader(dir)
			defer l.Close()

			c, err := l.Load("fw", "fw.json")
			require.NoError(t, err)
			assert.Len(t, c.Requirements, 1)
		})
	}
}

func TestLoad_MissingAndMalformed(t *testing.T) {
	dir := t.TempDir()
	writeCatalog(t, dir, "bad.json", `{not json`)
	writeCatalog(t, dir, "empty.json", `{"requirements": []}`)

	l := NewLoader(dir)
	defer l.Close()

	_, err := l.Load("x", "absent.json")
	assert.ErrorIs(t, err, ErrCatalogNotFound)

	_, err = l.Load("x", "bad.json")
	assert.ErrorIs(t, err, ErrCatalogNotFound)

	_, err = l.Load("x", "empty.json")
	assert.ErrorIs(t, err, ErrCatalogNotFound)
}

func TestLoad_Memoized(t *testing.T) {
	dir := t.TempDir()
	writeCatalog(t, dir, "fw.json", `{"requirements": [{"id": "R1", "title": "one"}]}`)

	l := NewLoader(dir)
	defer l.Close()

	first, err := l.Load("fw", "fw.json")
	require.NoError(t, err)
	second, err := l.Load("fw", "fw.json")
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestGroupFallbackOrder(t *testing.T) {
	tests := []struct {
		name string
		req  Requirement
		want string
	}{
		{"domain wins", Requirement{Domain: "AC", Family: "X"}, "AC"},
		{"family next", Requirement{Family: "AU"}, "AU"},
		{"process area", Requirement{ProcessArea: "planning"}, "planning"},
		{"category", Requirement{Category: "governance"}, "governance"},
		{"none", Requirement{}, "ungrouped"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.req.Group())
		})
	}
}

func TestSortedIDs(t *testing.T) {
	c := &Catalog{Requirements: []Requirement{{ID: "SC-7"}, {ID: "AC-2"}, {ID: "IA-2"}}}
	assert.Equal(t, []string{"AC-2", "IA-2", "SC-7"}, c.SortedIDs())
}
