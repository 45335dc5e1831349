package assess

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"steward/pkg/logging"
)

// maxScanFileSize bounds how much of any single file the scanners read.
const maxScanFileSize = 4 << 20

// scanIgnoreDirs are never descended into during project scans.
var scanIgnoreDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
	"__pycache__":  true,
	".venv":        true,
	"venv":         true,
	"dist":         true,
	"build":        true,
	"target":       true,
}

// scanFiles walks a project directory and yields the content of every
// regular file whose extension is in the whitelist. Symlinks are never
// followed and unreadable or oversized files are skipped: scan rules are
// total over their input and treat missing data as "no signal".
func scanFiles(root string, extensions []string, visit func(path, content string)) error {
	extSet := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		extSet[strings.ToLower(ext)] = true
	}

	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logging.Debug("Assess", "Skipping unreadable path %s: %v", path, err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if scanIgnoreDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		if len(extSet) > 0 && !extSet[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		info, err := d.Info()
		if err != nil || info.Size() > maxScanFileSize {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			logging.Debug("Assess", "Skipping unreadable file %s: %v", path, err)
			return nil
		}
		visit(path, string(data))
		return nil
	})
}

// containsAny reports whether content holds any of the keywords,
// case-insensitively.
func containsAny(content string, keywords ...string) bool {
	lower := strings.ToLower(content)
	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// keywordRule maps a keyword set to the requirement ids it satisfies.
type keywordRule struct {
	requirementIDs []string
	keywords       []string
	evidence       string
}

// evaluateKeywordRules scans the project once and returns satisfied /
// not_satisfied checks for every requirement a rule names. A requirement
// named by several rules is satisfied when any of them fires.
func evaluateKeywordRules(projectDir string, extensions []string, rules []keywordRule) (map[string]Check, error) {
	type hit struct {
		path     string
		evidence string
	}
	hits := make(map[string]hit)

	err := scanFiles(projectDir, extensions, func(path, content string) {
		for _, rule := range rules {
			if !containsAny(content, rule.keywords...) {
				continue
			}
			for _, id := range rule.requirementIDs {
				if _, seen := hits[id]; !seen {
					hits[id] = hit{path: path, evidence: rule.evidence}
				}
			}
		}
	})
	if err != nil {
		return nil, err
	}

	checks := make(map[string]Check)
	for _, rule := range rules {
		for _, id := range rule.requirementIDs {
			if h, ok := hits[id]; ok {
				checks[id] = Check{
					Status:   StatusSatisfied,
					Evidence: h.evidence + " (found in " + h.path + ")",
				}
			} else if _, assessed := checks[id]; !assessed {
				checks[id] = Check{
					Status:   StatusNotSatisfied,
					Evidence: "no supporting configuration found in project files",
				}
			}
		}
	}
	return checks, nil
}
