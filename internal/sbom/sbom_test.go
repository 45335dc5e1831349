package sbom

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"steward/internal/store"
)

func componentByName(components []Component, name string) *Component {
	for i := range components {
		if components[i].Name == name {
			return &components[i]
		}
	}
	return nil
}

func TestParseRequirementsTxt(t *testing.T) {
	components := parseRequirementsTxt(`# pinned deps
requests==2.31.0
flask>=2.0  # web framework
uvicorn[standard]~=0.23
-r other.txt

pyyaml
`)
	require.Len(t, components, 4)
	req := componentByName(components, "requests")
	require.NotNil(t, req)
	assert.Equal(t, "2.31.0", req.Version)
	assert.Equal(t, "pkg:pypi/requests@2.31.0", req.PURL)

	uv := componentByName(components, "uvicorn")
	require.NotNil(t, uv)
	assert.Equal(t, "0.23", uv.Version)

	yaml := componentByName(components, "pyyaml")
	require.NotNil(t, yaml)
	assert.Equal(t, "", yaml.Version)
	assert.Equal(t, "pkg:pypi/pyyaml", yaml.PURL)
}

func TestParsePyprojectToml(t *testing.T) {
	components := parsePyprojectToml(`[project]
name = "demo"
dependencies = [
    "requests==2.31.0",
    "click>=8.0",
]
`)
	require.Len(t, components, 2)
	assert.Equal(t, "pkg:pypi/requests@2.31.0", components[0].PURL)
	assert.Equal(t, "8.0", components[1].Version)
}

func TestParsePackageJSON_CaretNormalized(t *testing.T) {
	components := parsePackageJSON(`{
		"dependencies": {"lodash": "^4.17.21"},
		"devDependencies": {"jest": "~29.0.0"}
	}`)
	require.Len(t, components, 2)

	lodash := componentByName(components, "lodash")
	require.NotNil(t, lodash)
	assert.Equal(t, "4.17.21", lodash.Version)
	assert.Equal(t, "pkg:npm/lodash@4.17.21", lodash.PURL)
	assert.Equal(t, "required", lodash.Scope)

	jest := componentByName(components, "jest")
	require.NotNil(t, jest)
	assert.Equal(t, "optional", jest.Scope)
	assert.Equal(t, "29.0.0", jest.Version)
}

func TestParsePackageLockJSON(t *testing.T) {
	t.Run("v3 packages map", func(t *testing.T) {
		components := parsePackageLockJSON(`{
			"lockfileVersion": 3,
			"packages": {
				"": {"name": "root"},
				"node_modules/lodash": {"version": "4.17.21"},
				"node_modules/chalk": {"version": "5.3.0", "dev": true},
				"node_modules/a/node_modules/b": {"version": "1.0.0"}
			}
		}`)
		require.Len(t, components, 2)
		assert.NotNil(t, componentByName(components, "lodash"))
		chalk := componentByName(components, "chalk")
		require.NotNil(t, chalk)
		assert.Equal(t, "optional", chalk.Scope)
	})

	t.Run("v1 dependencies fallback", func(t *testing.T) {
		components := parsePackageLockJSON(`{
			"lockfileVersion": 1,
			"dependencies": {"lodash": {"version": "4.17.21"}}
		}`)
		require.Len(t, components, 1)
		assert.Equal(t, "pkg:npm/lodash@4.17.21", components[0].PURL)
	})
}

func TestParseGoMod(t *testing.T) {
	components := parseGoMod(`module example.com/demo

go 1.24.0

require (
	github.com/spf13/cobra v1.10.1
	golang.org/x/sync v0.17.0 // indirect
)

require gopkg.in/yaml.v3 v3.0.1
`)
	require.Len(t, components, 3)
	cobra := componentByName(components, "github.com/spf13/cobra")
	require.NotNil(t, cobra)
	assert.Equal(t, "v1.10.1", cobra.Version)
	assert.Equal(t, "pkg:golang/github.com/spf13/cobra@v1.10.1", cobra.PURL)
	assert.NotNil(t, componentByName(components, "gopkg.in/yaml.v3"))
}

func TestParseCargoToml(t *testing.T) {
	components := parseCargoToml(`[package]
name = "demo"
version = "0.1.0"

[dependencies]
serde = "1.0"
tokio = { version = "1.35", features = ["full"] }

[dev-dependencies]
criterion = "0.5"
`)
	require.Len(t, components, 3)
	tokio := componentByName(components, "tokio")
	require.NotNil(t, tokio)
	assert.Equal(t, "1.35", tokio.Version)
	criterion := componentByName(components, "criterion")
	require.NotNil(t, criterion)
	assert.Equal(t, "optional", criterion.Scope)
	// The package's own version key is not a dependency.
	assert.Nil(t, componentByName(components, "version"))
}

func TestParsePomXML(t *testing.T) {
	components := parsePomXML(`<project>
  <dependencies>
    <dependency>
      <groupId>org.springframework</groupId>
      <artifactId>spring-core</artifactId>
      <version>6.1.0</version>
    </dependency>
    <dependency>
      <groupId>junit</groupId>
      <artifactId>junit</artifactId>
      <version>4.13.2</version>
      <scope>test</scope>
    </dependency>
  </dependencies>
</project>`)
	require.Len(t, components, 2)
	spring := componentByName(components, "spring-core")
	require.NotNil(t, spring)
	assert.Equal(t, "org.springframework", spring.Group)
	assert.Equal(t, "pkg:maven/org.springframework/spring-core@6.1.0", spring.PURL)

	junit := componentByName(components, "junit")
	require.NotNil(t, junit)
	assert.Equal(t, "optional", junit.Scope)
}

func TestParseGradle(t *testing.T) {
	components := parseGradle(`dependencies {
    implementation 'com.google.guava:guava:32.1.3-jre'
    api("org.slf4j:slf4j-api:2.0.9")
    testImplementation 'junit:junit:4.13.2'
}`)
	require.Len(t, components, 3)
	guava := componentByName(components, "guava")
	require.NotNil(t, guava)
	assert.Equal(t, "com.google.guava", guava.Group)
	junit := componentByName(components, "junit")
	require.NotNil(t, junit)
	assert.Equal(t, "optional", junit.Scope)
}

func TestParseCsproj(t *testing.T) {
	components := parseCsproj(`<Project Sdk="Microsoft.NET.Sdk">
  <ItemGroup>
    <PackageReference Include="Newtonsoft.Json" Version="13.0.3" />
    <PackageReference Version="8.0.0" Include="Serilog" />
    <PackageReference Include="xunit">
      <Version>2.6.1</Version>
    </PackageReference>
  </ItemGroup>
</Project>`)
	require.Len(t, components, 3)
	assert.Equal(t, "13.0.3", componentByName(components, "Newtonsoft.Json").Version)
	assert.Equal(t, "8.0.0", componentByName(components, "Serilog").Version)
	assert.Equal(t, "2.6.1", componentByName(components, "xunit").Version)
}

func TestParsePackagesConfig(t *testing.T) {
	components := parsePackagesConfig(`<?xml version="1.0"?>
<packages>
  <package id="NUnit" version="3.14.0" targetFramework="net48" />
</packages>`)
	require.Len(t, components, 1)
	assert.Equal(t, "pkg:nuget/NUnit@3.14.0", components[0].PURL)
}

func TestBOMRef_SixteenHex(t *testing.T) {
	ref := bomRef("", "lodash", "4.17.21")
	assert.Len(t, ref, 16)
	assert.Regexp(t, "^[0-9a-f]{16}$", ref)
	// Stable for identical input, distinct otherwise.
	assert.Equal(t, ref, bomRef("", "lodash", "4.17.21"))
	assert.NotEqual(t, ref, bomRef("", "lodash", "4.17.22"))
}

func TestBuild_CrossEcosystemDedup(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "requirements.txt"),
		[]byte("requests==2.31.0\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "package.json"),
		[]byte(`{"dependencies": {"requests": "2.31.0"}}`), 0o644))

	b := NewBuilder(nil)
	bom, err := b.Build(&store.Project{ProjectID: "p1", Name: "demo", Directory: dir, Classification: "CUI"})
	require.NoError(t, err)
	// Different ecosystems produce different purls: both survive.
	require.Len(t, bom.Components, 2)

	// A second copy of the same pinned dep in pyproject.toml collapses.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pyproject.toml"),
		[]byte("[project]\ndependencies = [\n  \"requests==2.31.0\",\n]\n"), 0o644))
	bom, err = b.Build(&store.Project{ProjectID: "p1", Name: "demo", Directory: dir, Classification: "CUI"})
	require.NoError(t, err)
	assert.Len(t, bom.Components, 2)
}

func TestBuild_MetadataProperties(t *testing.T) {
	dir := t.TempDir()
	bom, err := NewBuilder(nil).Build(&store.Project{
		ProjectID: "p1", Name: "demo", Directory: dir, Classification: "CUI",
	})
	require.NoError(t, err)

	assert.Equal(t, "CycloneDX", bom.BOMFormat)
	assert.Equal(t, "1.4", bom.SpecVersion)
	assert.Contains(t, bom.SerialNumber, "urn:uuid:")

	props := map[string]string{}
	for _, p := range bom.Metadata.Properties {
		props[p.Name] = p.Value
	}
	assert.Equal(t, "CUI", props["steward:classification"])
	assert.Equal(t, "CTI", props["steward:cui_category"])
	assert.Contains(t, props["steward:distribution_statement"], "Distribution Statement D")
}

func TestEmit_VersionsAndRecords(t *testing.T) {
	ctx := context.Background()
	s, err := store.Open(filepath.Join(t.TempDir(), "steward.db"))
	require.NoError(t, err)
	defer s.Close()

	projectDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(projectDir, "go.mod"),
		[]byte("module demo\n\nrequire github.com/google/uuid v1.6.0\n"), 0o644))
	project := &store.Project{ProjectID: "p1", Name: "demo", Directory: projectDir}
	require.NoError(t, s.CreateProject(ctx, project))

	b := NewBuilder(s)
	rec1, bom, err := b.Emit(ctx, project)
	require.NoError(t, err)
	assert.Equal(t, 1, rec1.Version)
	assert.Len(t, bom.Components, 1)
	assert.FileExists(t, filepath.Join(projectDir, "compliance", "sbom-v1.cdx.json"))

	rec2, _, err := b.Emit(ctx, project)
	require.NoError(t, err)
	assert.Equal(t, 2, rec2.Version)

	events, err := s.ListAuditEvents(ctx, "p1")
	require.NoError(t, err)
	assert.Len(t, events, 2)
	assert.Equal(t, "sbom_generated", events[0].EventType)
}
