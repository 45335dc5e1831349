// Package cui applies Controlled Unclassified Information markings to
// generated artifacts. Marking text comes from a YAML config file with
// built-in defaults matching the CUI // SP-CTI designation.
package cui

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"steward/pkg/logging"
)

// Config holds the marking strings applied to emitted documents.
type Config struct {
	BannerTop            string `yaml:"banner_top"`
	BannerBottom         string `yaml:"banner_bottom"`
	DocumentHeader       string `yaml:"document_header"`
	DocumentFooter       string `yaml:"document_footer"`
	DesignationIndicator string `yaml:"designation_indicator"`
}

// DefaultConfig returns the built-in CUI // SP-CTI markings used when no
// config file is present.
func DefaultConfig() *Config {
	banner := "CUI // SP-CTI"
	return &Config{
		BannerTop:    banner,
		BannerBottom: banner,
		DocumentHeader: banner + "\n\n" +
			"Controlled by: Program Office\n" +
			"CUI Category: CTI\n" +
			"Distribution Statement D: Distribution authorized to the Department of Defense\n" +
			"and U.S. DoD contractors only.\n",
		DocumentFooter:       "\n" + banner + "\n",
		DesignationIndicator: "Controlled by: Program Office",
	}
}

// LoadConfig reads markings from path, falling back to defaults for a
// missing file or any unset key.
func LoadConfig(path string) *Config {
	cfg := DefaultConfig()
	if path == "" {
		return cfg
	}
	data, err := os.ReadFile(path)
	if err != nil {
		logging.Debug("CUI", "Using default markings, %s unavailable: %v", path, err)
		return cfg
	}
	var loaded Config
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		logging.Warn("CUI", "Using default markings, %s is malformed: %v", path, err)
		return cfg
	}
	if loaded.BannerTop != "" {
		cfg.BannerTop = loaded.BannerTop
	}
	if loaded.BannerBottom != "" {
		cfg.BannerBottom = loaded.BannerBottom
	}
	if loaded.DocumentHeader != "" {
		cfg.DocumentHeader = loaded.DocumentHeader
	}
	if loaded.DocumentFooter != "" {
		cfg.DocumentFooter = loaded.DocumentFooter
	}
	if loaded.DesignationIndicator != "" {
		cfg.DesignationIndicator = loaded.DesignationIndicator
	}
	return cfg
}

// Apply prefixes the document header and suffixes the document footer.
// Detection of existing markings is a substring match on the top banner,
// intentionally coarse, which makes Apply idempotent.
func (c *Config) Apply(text string) string {
	if strings.Contains(text, c.BannerTop) {
		return text
	}
	return fmt.Sprintf("%s\n%s\n%s", c.DocumentHeader, text, c.DocumentFooter)
}
