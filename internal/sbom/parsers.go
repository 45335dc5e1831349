package sbom

import (
	"encoding/json"
	"regexp"
	"strings"
)

const (
	scopeRequired = "required"
	scopeOptional = "optional"
)

var requirementLine = regexp.MustCompile(`^([A-Za-z0-9][A-Za-z0-9._-]*)(?:\[[^\]]*\])?\s*(?:(?:==|>=|<=|~=|!=|>|<|\^|~)\s*([A-Za-z0-9._*+-]+))?`)

// parseRequirementsTxt handles pip requirement files: one dependency per
// non-comment line.
func parseRequirementsTxt(content string) []Component {
	var out []Component
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "-") {
			continue
		}
		if i := strings.Index(line, " #"); i >= 0 {
			line = strings.TrimSpace(line[:i])
		}
		m := requirementLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		out = append(out, newComponent("pypi", "", m[1], m[2], scopeRequired))
	}
	return out
}

var pyprojectDeps = regexp.MustCompile(`(?s)\ndependencies\s*=\s*\[(.*?)\]`)
var quotedString = regexp.MustCompile(`["']([^"']+)["']`)

// parsePyprojectToml scans the top-level dependencies array.
func parsePyprojectToml(content string) []Component {
	m := pyprojectDeps.FindStringSubmatch("\n" + content)
	if m == nil {
		return nil
	}
	var out []Component
	for _, q := range quotedString.FindAllStringSubmatch(m[1], -1) {
		dep := requirementLine.FindStringSubmatch(strings.TrimSpace(q[1]))
		if dep == nil {
			continue
		}
		out = append(out, newComponent("pypi", "", dep[1], dep[2], scopeRequired))
	}
	return out
}

// parsePackageJSON merges dependencies with dev and peer dependencies,
// the latter two at optional scope.
func parsePackageJSON(content string) []Component {
	var doc struct {
		Dependencies     map[string]string `json:"dependencies"`
		DevDependencies  map[string]string `json:"devDependencies"`
		PeerDependencies map[string]string `json:"peerDependencies"`
	}
	if err := json.Unmarshal([]byte(content), &doc); err != nil {
		return nil
	}
	var out []Component
	for name, version := range doc.Dependencies {
		out = append(out, newComponent("npm", "", name, version, scopeRequired))
	}
	for name, version := range doc.DevDependencies {
		out = append(out, newComponent("npm", "", name, version, scopeOptional))
	}
	for name, version := range doc.PeerDependencies {
		out = append(out, newComponent("npm", "", name, version, scopeOptional))
	}
	return out
}

// parsePackageLockJSON prefers the v2/v3 packages map and falls back to
// the v1 dependencies tree.
func parsePackageLockJSON(content string) []Component {
	var doc struct {
		Packages map[string]struct {
			Version string `json:"version"`
			Dev     bool   `json:"dev"`
		} `json:"packages"`
		Dependencies map[string]struct {
			Version string `json:"version"`
			Dev     bool   `json:"dev"`
		} `json:"dependencies"`
	}
	if err := json.Unmarshal([]byte(content), &doc); err != nil {
		return nil
	}

	var out []Component
	if len(doc.Packages) > 0 {
		for key, entry := range doc.Packages {
			name, ok := lockPackageName(key)
			if !ok || entry.Version == "" {
				continue
			}
			scope := scopeRequired
			if entry.Dev {
				scope = scopeOptional
			}
			out = append(out, newComponent("npm", "", name, entry.Version, scope))
		}
		return out
	}
	for name, entry := range doc.Dependencies {
		scope := scopeRequired
		if entry.Dev {
			scope = scopeOptional
		}
		out = append(out, newComponent("npm", "", name, entry.Version, scope))
	}
	return out
}

// lockPackageName maps a v2/v3 packages key to its package name. The
// root entry ("") and nested node_modules paths are skipped.
func lockPackageName(key string) (string, bool) {
	name, ok := strings.CutPrefix(key, "node_modules/")
	if !ok || name == "" {
		return "", false
	}
	if strings.Contains(name, "node_modules/") {
		return "", false
	}
	return name, true
}

var goRequireLine = regexp.MustCompile(`^\s*([^\s]+)\s+(v[^\s]+)`)
var goSingleRequire = regexp.MustCompile(`^require\s+([^\s(]+)\s+(v[^\s]+)`)

// parseGoMod reads parenthesized require blocks and single-line require
// directives, dropping inline comments.
func parseGoMod(content string) []Component {
	var out []Component
	inBlock := false
	for _, line := range strings.Split(content, "\n") {
		if i := strings.Index(line, "//"); i >= 0 {
			line = line[:i]
		}
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "require (":
			inBlock = true
			continue
		case inBlock && trimmed == ")":
			inBlock = false
			continue
		}
		var m []string
		if inBlock {
			m = goRequireLine.FindStringSubmatch(line)
		} else {
			m = goSingleRequire.FindStringSubmatch(trimmed)
		}
		if m == nil {
			continue
		}
		out = append(out, newComponent("golang", "", m[1], m[2], scopeRequired))
	}
	return out
}

var tomlSection = regexp.MustCompile(`^\[([^\]]+)\]`)
var cargoPlain = regexp.MustCompile(`^([A-Za-z0-9_-]+)\s*=\s*"([^"]+)"`)
var cargoTable = regexp.MustCompile(`^([A-Za-z0-9_-]+)\s*=\s*\{.*version\s*=\s*"([^"]+)"`)

// parseCargoToml walks sections, collecting dependency entries in both
// the plain and inline-table forms.
func parseCargoToml(content string) []Component {
	var out []Component
	section := ""
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if m := tomlSection.FindStringSubmatch(trimmed); m != nil {
			section = m[1]
			continue
		}
		scope := scopeRequired
		switch section {
		case "dependencies", "build-dependencies":
		case "dev-dependencies":
			scope = scopeOptional
		default:
			continue
		}
		m := cargoTable.FindStringSubmatch(trimmed)
		if m == nil {
			m = cargoPlain.FindStringSubmatch(trimmed)
		}
		if m == nil {
			continue
		}
		out = append(out, newComponent("cargo", "", m[1], m[2], scope))
	}
	return out
}

var pomDependency = regexp.MustCompile(`(?s)<dependency>(.*?)</dependency>`)
var pomField = func(name string) *regexp.Regexp {
	return regexp.MustCompile(`<` + name + `>\s*([^<]+?)\s*</` + name + `>`)
}
var (
	pomGroupID    = pomField("groupId")
	pomArtifactID = pomField("artifactId")
	pomVersion    = pomField("version")
	pomScope      = pomField("scope")
)

// parsePomXML regex-extracts dependency blocks; test and provided scopes
// map to optional.
func parsePomXML(content string) []Component {
	var out []Component
	for _, block := range pomDependency.FindAllStringSubmatch(content, -1) {
		group := firstSubmatch(pomGroupID, block[1])
		artifact := firstSubmatch(pomArtifactID, block[1])
		if artifact == "" {
			continue
		}
		scope := scopeRequired
		switch firstSubmatch(pomScope, block[1]) {
		case "test", "provided":
			scope = scopeOptional
		}
		out = append(out, newComponent("maven", group, artifact, firstSubmatch(pomVersion, block[1]), scope))
	}
	return out
}

func firstSubmatch(re *regexp.Regexp, s string) string {
	if m := re.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return ""
}

var gradleDependency = regexp.MustCompile(`(?m)^\s*(implementation|api|compileOnly|runtimeOnly|testImplementation|testCompileOnly|testRuntimeOnly)\s*\(?\s*['"]([^:'"]+):([^:'"]+):([^'"]+)['"]`)

// parseGradle matches configuration lines with quoted group:artifact:version
// coordinates.
func parseGradle(content string) []Component {
	var out []Component
	for _, m := range gradleDependency.FindAllStringSubmatch(content, -1) {
		scope := scopeRequired
		if strings.HasPrefix(m[1], "test") || m[1] == "compileOnly" {
			scope = scopeOptional
		}
		out = append(out, newComponent("maven", m[2], m[3], m[4], scope))
	}
	return out
}

var packageRefSelfClosing = regexp.MustCompile(`<PackageReference\s+([^>]*?)/>`)
var packageRefOpen = regexp.MustCompile(`(?s)<PackageReference\s+([^>]*[^/>])>(.*?)</PackageReference>`)
var xmlAttr = func(name string) *regexp.Regexp {
	return regexp.MustCompile(name + `\s*=\s*"([^"]+)"`)
}
var (
	attrInclude  = xmlAttr("Include")
	attrVersion  = xmlAttr("Version")
	childVersion = regexp.MustCompile(`<Version>\s*([^<]+?)\s*</Version>`)
)

// parseCsproj handles both the self-closing attribute form and the
// multi-line form with a Version child element, attribute order agnostic.
func parseCsproj(content string) []Component {
	var out []Component
	for _, m := range packageRefSelfClosing.FindAllStringSubmatch(content, -1) {
		name := firstSubmatch(attrInclude, m[1])
		version := firstSubmatch(attrVersion, m[1])
		if name == "" {
			continue
		}
		out = append(out, newComponent("nuget", "", name, version, scopeRequired))
	}
	for _, m := range packageRefOpen.FindAllStringSubmatch(content, -1) {
		name := firstSubmatch(attrInclude, m[1])
		if name == "" {
			continue
		}
		version := firstSubmatch(attrVersion, m[1])
		if version == "" {
			version = firstSubmatch(childVersion, m[2])
		}
		out = append(out, newComponent("nuget", "", name, version, scopeRequired))
	}
	return out
}

var packagesConfigEntry = regexp.MustCompile(`<package\s+[^>]*?/?>`)

// parsePackagesConfig reads legacy NuGet packages.config entries.
func parsePackagesConfig(content string) []Component {
	var out []Component
	idAttr := xmlAttr("id")
	versionAttr := xmlAttr("version")
	for _, entry := range packagesConfigEntry.FindAllString(content, -1) {
		name := firstSubmatch(idAttr, entry)
		if name == "" {
			continue
		}
		out = append(out, newComponent("nuget", "", name, firstSubmatch(versionAttr, entry), scopeRequired))
	}
	return out
}
