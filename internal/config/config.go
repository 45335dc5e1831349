// Package config loads the steward process configuration: store location,
// catalog and template directories and CUI marking overrides. Defaults are
// defined in code; a YAML file overrides individual keys.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"steward/pkg/logging"
)

// DefaultPath is the config file looked up when --config is not given.
const DefaultPath = ".steward/config.yaml"

// Config is the full process configuration.
type Config struct {
	// DBPath locates the shared SQLite store.
	DBPath string `yaml:"db_path"`
	// CatalogDir holds the framework catalog JSON files.
	CatalogDir string `yaml:"catalog_dir"`
	// TemplateDir holds optional per-framework report templates.
	TemplateDir string `yaml:"template_dir"`
	// CUIConfigPath points at a YAML file overriding the CUI markings.
	CUIConfigPath string `yaml:"cui_config"`
	// Debug enables debug-level logging.
	Debug bool `yaml:"debug"`
	// Tracing enables span export to stderr.
	Tracing bool `yaml:"tracing"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DBPath:     filepath.Join(".steward", "steward.db"),
		CatalogDir: "catalogs",
	}
}

// Load reads the config file at path, falling back to defaults when the
// file does not exist. An unreadable or malformed file is an error: a
// config the operator wrote must not be silently ignored.
func Load(path string) (Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) && !explicit {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	var loaded Config
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if loaded.DBPath != "" {
		cfg.DBPath = loaded.DBPath
	}
	if loaded.CatalogDir != "" {
		cfg.CatalogDir = loaded.CatalogDir
	}
	if loaded.TemplateDir != "" {
		cfg.TemplateDir = loaded.TemplateDir
	}
	if loaded.CUIConfigPath != "" {
		cfg.CUIConfigPath = loaded.CUIConfigPath
	}
	cfg.Debug = cfg.Debug || loaded.Debug
	cfg.Tracing = cfg.Tracing || loaded.Tracing

	logging.Debug("Config", "Loaded configuration from %s", path)
	return cfg, nil
}
