// Package rtm builds a bidirectional Requirements Traceability Matrix
// from the artifacts in a project directory: requirements, design
// documents, code modules and tests, linked by keyword similarity.
package rtm

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Kind is the artifact category of a discovered item.
type Kind string

const (
	KindRequirement Kind = "requirement"
	KindDesign      Kind = "design"
	KindCode        Kind = "code"
	KindTest        Kind = "test"
)

// Item is one discovered artifact with its synthetic id.
type Item struct {
	ID   string `json:"id"`
	Kind Kind   `json:"kind"`
	Name string `json:"name"`
	Path string `json:"path"`
}

var kindPrefixes = map[Kind]string{
	KindRequirement: "REQ",
	KindDesign:      "DES",
	KindCode:        "MOD",
	KindTest:        "TST",
}

// codeRoots are the directories whose source files count as code modules.
var codeRoots = []string{"src", "lib", "app"}

// testRoots are the directories whose files count as tests.
var testRoots = []string{"tests", "test", "spec", "e2e", filepath.Join("features", "steps")}

var sourceExtensions = map[string]bool{
	".go": true, ".py": true, ".js": true, ".ts": true, ".java": true,
	".rb": true, ".rs": true, ".c": true, ".cpp": true, ".cs": true,
}

// Discover walks the project directory once per category and assigns
// synthetic ids in path order. Unreadable paths are skipped.
func Discover(projectDir string) (requirements, design, code, tests []Item) {
	requirements = assignIDs(KindRequirement, discoverRequirements(projectDir))
	design = assignIDs(KindDesign, discoverDesign(projectDir))
	code = assignIDs(KindCode, discoverCode(projectDir))
	tests = assignIDs(KindTest, discoverTests(projectDir))
	return requirements, design, code, tests
}

func assignIDs(kind Kind, items []Item) []Item {
	sort.Slice(items, func(i, j int) bool { return items[i].Path < items[j].Path })
	for i := range items {
		items[i].ID = fmt.Sprintf("%s-%03d", kindPrefixes[kind], i+1)
		items[i].Kind = kind
	}
	return items
}

// discoverRequirements collects Gherkin features and heading-level items
// from requirements.md / user-stories.md.
func discoverRequirements(projectDir string) []Item {
	var items []Item
	walk(projectDir, func(path string, rel string) {
		base := strings.ToLower(filepath.Base(path))
		switch {
		case strings.HasSuffix(base, ".feature"):
			name := featureName(path)
			if name == "" {
				name = strings.TrimSuffix(filepath.Base(path), ".feature")
			}
			items = append(items, Item{Name: name, Path: rel})
		case base == "requirements.md" || base == "user-stories.md":
			for _, heading := range markdownHeadings(path) {
				items = append(items, Item{Name: heading, Path: rel})
			}
		}
	})
	return items
}

// discoverDesign collects architecture and design documents.
func discoverDesign(projectDir string) []Item {
	var items []Item
	walk(projectDir, func(path string, rel string) {
		if !strings.HasSuffix(strings.ToLower(path), ".md") {
			return
		}
		base := strings.ToLower(filepath.Base(path))
		dir := filepath.ToSlash(filepath.Dir(rel))
		inDesignDir := strings.Contains(dir, "docs/design") || strings.Contains(dir, "adr")
		if base == "architecture.md" || inDesignDir {
			items = append(items, Item{Name: docName(path), Path: rel})
		}
	})
	return items
}

// discoverCode collects source modules under the code roots, skipping
// test files and near-empty __init__.py markers.
func discoverCode(projectDir string) []Item {
	var items []Item
	for _, root := range codeRoots {
		walk(filepath.Join(projectDir, root), func(path string, rel string) {
			if !sourceExtensions[strings.ToLower(filepath.Ext(path))] {
				return
			}
			base := filepath.Base(path)
			if isTestFile(base) {
				return
			}
			if base == "__init__.py" && fileSize(path) < 16 {
				return
			}
			items = append(items, Item{
				Name: strings.TrimSuffix(base, filepath.Ext(base)),
				Path: filepath.Join(root, rel),
			})
		})
	}
	return items
}

// discoverTests collects test files under the test roots by name pattern.
func discoverTests(projectDir string) []Item {
	var items []Item
	for _, root := range testRoots {
		walk(filepath.Join(projectDir, root), func(path string, rel string) {
			base := filepath.Base(path)
			if !isTestFile(base) && !sourceExtensions[strings.ToLower(filepath.Ext(base))] {
				return
			}
			items = append(items, Item{
				Name: strings.TrimSuffix(base, filepath.Ext(base)),
				Path: filepath.Join(root, rel),
			})
		})
	}
	return items
}

func isTestFile(base string) bool {
	lower := strings.ToLower(base)
	name := strings.TrimSuffix(lower, filepath.Ext(lower))
	return strings.HasPrefix(name, "test_") ||
		strings.HasSuffix(name, "_test") ||
		strings.HasSuffix(name, ".test") ||
		strings.HasSuffix(name, ".spec") ||
		strings.HasSuffix(name, "tests")
}

// walk visits regular files under root with project-relative paths.
// Missing roots and unreadable entries are silently skipped.
func walk(root string, visit func(path, rel string)) {
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if name := d.Name(); name == ".git" || name == "node_modules" || name == "__pycache__" {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		visit(path, rel)
		return nil
	})
}

func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}

// featureName extracts the name after "Feature:" from a Gherkin file.
func featureName(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	for _, line := range strings.Split(string(data), "\n") {
		if name, ok := strings.CutPrefix(strings.TrimSpace(line), "Feature:"); ok {
			return strings.TrimSpace(name)
		}
	}
	return ""
}

// markdownHeadings returns the "## " headings of a Markdown file.
func markdownHeadings(path string) []string {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var out []string
	for _, line := range strings.Split(string(data), "\n") {
		if heading, ok := strings.CutPrefix(line, "## "); ok {
			out = append(out, strings.TrimSpace(heading))
		}
	}
	return out
}

// docName is the first "# " heading of a document, falling back to the
// file name.
func docName(path string) string {
	data, err := os.ReadFile(path)
	if err == nil {
		for _, line := range strings.Split(string(data), "\n") {
			if heading, ok := strings.CutPrefix(line, "# "); ok {
				return strings.TrimSpace(heading)
			}
		}
	}
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}
