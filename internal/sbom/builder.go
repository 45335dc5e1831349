package sbom

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"steward/internal/store"
	"steward/pkg/logging"
)

// BOM is a CycloneDX 1.4 document.
type BOM struct {
	BOMFormat    string      `json:"bomFormat"`
	SpecVersion  string      `json:"specVersion"`
	SerialNumber string      `json:"serialNumber"`
	Version      int         `json:"version"`
	Metadata     Metadata    `json:"metadata"`
	Components   []Component `json:"components"`
}

// Metadata is the CycloneDX document metadata with the CUI properties
// required for controlled artifacts.
type Metadata struct {
	Timestamp  string     `json:"timestamp"`
	Component  RootRef    `json:"component"`
	Properties []Property `json:"properties"`
}

// RootRef describes the application the BOM belongs to.
type RootRef struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

// Property is one CycloneDX name/value metadata property.
type Property struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// manifestParser binds a manifest filename pattern to its parser.
type manifestParser struct {
	filename string
	glob     bool
	parse    func(string) []Component
}

var manifestParsers = []manifestParser{
	{filename: "requirements.txt", parse: parseRequirementsTxt},
	{filename: "pyproject.toml", parse: parsePyprojectToml},
	{filename: "package.json", parse: parsePackageJSON},
	{filename: "package-lock.json", parse: parsePackageLockJSON},
	{filename: "go.mod", parse: parseGoMod},
	{filename: "Cargo.toml", parse: parseCargoToml},
	{filename: "pom.xml", parse: parsePomXML},
	{filename: "build.gradle", parse: parseGradle},
	{filename: "build.gradle.kts", parse: parseGradle},
	{filename: "*.csproj", glob: true, parse: parseCsproj},
	{filename: "packages.config", parse: parsePackagesConfig},
}

// Builder emits SBOMs and records each emission in the store.
type Builder struct {
	store *store.Store

	now func() time.Time
}

// NewBuilder wires an SBOM builder. The store may be nil for callers that
// only want the in-memory document.
func NewBuilder(st *store.Store) *Builder {
	return &Builder{store: st, now: time.Now}
}

// Build parses every recognized manifest in the project root and returns
// the deduplicated CycloneDX document. Duplicate purls collapse to the
// first occurrence in manifest order.
func (b *Builder) Build(project *store.Project) (*BOM, error) {
	var all []Component
	for _, mp := range manifestParsers {
		for _, path := range manifestPaths(project.Directory, mp) {
			data, err := os.ReadFile(path)
			if err != nil {
				continue
			}
			parsed := mp.parse(string(data))
			logging.Debug("SBOM", "Parsed %s: %d components", filepath.Base(path), len(parsed))
			all = append(all, parsed...)
		}
	}

	seen := make(map[string]bool, len(all))
	components := make([]Component, 0, len(all))
	for _, c := range all {
		if seen[c.PURL] {
			continue
		}
		seen[c.PURL] = true
		components = append(components, c)
	}
	sort.Slice(components, func(i, j int) bool { return components[i].PURL < components[j].PURL })

	return &BOM{
		BOMFormat:    "CycloneDX",
		SpecVersion:  "1.4",
		SerialNumber: "urn:uuid:" + uuid.NewString(),
		Version:      1,
		Metadata: Metadata{
			Timestamp: b.now().UTC().Format(time.RFC3339),
			Component: RootRef{Type: "application", Name: project.Name},
			Properties: []Property{
				{Name: "steward:project_id", Value: project.ProjectID},
				{Name: "steward:classification", Value: project.Classification},
				{Name: "steward:cui_category", Value: "CTI"},
				{Name: "steward:distribution_statement", Value: "Distribution Statement D: Distribution authorized to the Department of Defense and U.S. DoD contractors only."},
			},
		},
		Components: components,
	}, nil
}

func manifestPaths(dir string, mp manifestParser) []string {
	if !mp.glob {
		path := filepath.Join(dir, mp.filename)
		if _, err := os.Stat(path); err != nil {
			return nil
		}
		return []string{path}
	}
	paths, err := filepath.Glob(filepath.Join(dir, mp.filename))
	if err != nil {
		return nil
	}
	sort.Strings(paths)
	return paths
}

// Emit builds the BOM, writes it versioned under the project's compliance
// directory and records the emission.
func (b *Builder) Emit(ctx context.Context, project *store.Project) (*store.SBOMRecord, *BOM, error) {
	bom, err := b.Build(project)
	if err != nil {
		return nil, nil, err
	}

	dir := filepath.Join(project.Directory, "compliance")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create sbom directory: %w", err)
	}

	next := 1
	if records, err := b.store.ListSBOMRecords(ctx, project.ProjectID); err == nil && len(records) > 0 {
		next = records[0].Version + 1
	}
	outputFile := filepath.Join(dir, fmt.Sprintf("sbom-v%d.cdx.json", next))

	data, err := json.MarshalIndent(bom, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to serialize sbom: %w", err)
	}
	if err := os.WriteFile(outputFile, data, 0o644); err != nil {
		return nil, nil, fmt.Errorf("failed to write sbom: %w", err)
	}

	rec, err := b.store.RecordSBOM(ctx, project.ProjectID, outputFile, len(bom.Components))
	if err != nil {
		return nil, nil, err
	}
	_ = b.store.AppendAudit(ctx, &store.AuditEvent{
		ProjectID: project.ProjectID,
		EventType: "sbom_generated",
		Actor:     "sbom-builder",
		Action:    fmt.Sprintf("Generated SBOM v%d with %d components", rec.Version, len(bom.Components)),
		Details: map[string]interface{}{
			"version":         rec.Version,
			"component_count": len(bom.Components),
			"output_file":     outputFile,
		},
		AffectedFiles: []string{outputFile},
	})
	logging.Info("SBOM", "Wrote SBOM v%d for %s: %d components", rec.Version, project.ProjectID, len(bom.Components))
	return rec, bom, nil
}
