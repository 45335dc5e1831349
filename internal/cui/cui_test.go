package cui

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "CUI // SP-CTI", cfg.BannerTop)
	assert.Contains(t, cfg.DocumentHeader, "Distribution Statement D")
	assert.Contains(t, cfg.DocumentHeader, "CUI Category: CTI")
}

func TestLoadConfig_MissingFileFallsBack(t *testing.T) {
	cfg := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Equal(t, DefaultConfig().BannerTop, cfg.BannerTop)
}

func TestLoadConfig_PartialOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cui.yaml")
	require.NoError(t, os.WriteFile(path, []byte("banner_top: \"CUI//CUSTOM\"\n"), 0o644))

	cfg := LoadConfig(path)
	assert.Equal(t, "CUI//CUSTOM", cfg.BannerTop)
	// Unset keys keep their defaults.
	assert.Equal(t, DefaultConfig().BannerBottom, cfg.BannerBottom)
}

func TestApply_AddsHeaderAndFooter(t *testing.T) {
	cfg := DefaultConfig()
	out := cfg.Apply("# Report\n\nBody text.")

	assert.True(t, strings.HasPrefix(out, cfg.DocumentHeader))
	assert.Contains(t, out, "# Report")
	assert.True(t, strings.HasSuffix(out, cfg.DocumentFooter))
}

func TestApply_Idempotent(t *testing.T) {
	cfg := DefaultConfig()
	once := cfg.Apply("# Report")
	twice := cfg.Apply(once)
	assert.Equal(t, once, twice)
}
