// Package sbom emits CycloneDX 1.4 JSON software bills of materials.
// Manifests are parsed with regex-level rules per ecosystem; no language
// runtime is invoked.
package sbom

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Component is one CycloneDX library component.
type Component struct {
	Type    string `json:"type"`
	BOMRef  string `json:"bom-ref"`
	Name    string `json:"name"`
	Version string `json:"version"`
	Group   string `json:"group,omitempty"`
	PURL    string `json:"purl"`
	Scope   string `json:"scope,omitempty"`
}

// newComponent builds a library component for one ecosystem. Scope is
// "required" unless the manifest marks the dependency optional.
func newComponent(ecosystem, group, name, version, scope string) Component {
	version = normalizeVersion(version)
	purl := buildPURL(ecosystem, group, name, version)
	return Component{
		Type:    "library",
		BOMRef:  bomRef(group, name, version),
		Name:    name,
		Version: version,
		Group:   group,
		PURL:    purl,
		Scope:   scope,
	}
}

// bomRef is the first 16 hex characters of SHA-256 over
// "group/name@version".
func bomRef(group, name, version string) string {
	key := fmt.Sprintf("%s/%s@%s", group, name, version)
	if group == "" {
		key = fmt.Sprintf("%s@%s", name, version)
	}
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])[:16]
}

func buildPURL(ecosystem, group, name, version string) string {
	path := name
	switch ecosystem {
	case "pypi":
		path = strings.ToLower(name)
	case "npm":
		path = strings.TrimPrefix(name, "@")
	}
	if group != "" {
		path = group + "/" + path
	}
	if version == "" {
		return fmt.Sprintf("pkg:%s/%s", ecosystem, path)
	}
	return fmt.Sprintf("pkg:%s/%s@%s", ecosystem, path, version)
}

// normalizeVersion strips range operators so "^4.17.21" and ">=2.0"
// yield plain versions.
func normalizeVersion(version string) string {
	version = strings.TrimSpace(version)
	version = strings.TrimLeft(version, "^~>=<")
	return strings.TrimSpace(version)
}
