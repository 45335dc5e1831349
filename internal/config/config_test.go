package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingDefaultFileUsesDefaults(t *testing.T) {
	cwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(cwd) })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(".steward", "steward.db"), cfg.DBPath)
	assert.Equal(t, "catalogs", cfg.CatalogDir)
	assert.False(t, cfg.Debug)
}

func TestLoad_FileOverridesIndividualKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"db_path: /var/lib/steward/steward.db\ndebug: true\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/steward/steward.db", cfg.DBPath)
	// Unset keys keep their defaults.
	assert.Equal(t, "catalogs", cfg.CatalogDir)
	assert.True(t, cfg.Debug)
}

func TestLoad_ExplicitMissingFileIsAnError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "failed to read config")
}

func TestLoad_MalformedFileIsAnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("db_path: [\n"), 0o644))

	_, err := Load(path)
	assert.ErrorContains(t, err, "failed to parse config")
}
