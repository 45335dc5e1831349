// Package catalog loads framework catalogs: named, versioned, read-only
// documents listing the requirements of one compliance framework. Parsed
// catalogs are memoized per process; a filesystem watcher drops cache
// entries when the underlying file changes.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/singleflight"

	"steward/pkg/logging"
)

// ErrCatalogNotFound is returned when a catalog file is missing or
// malformed. Assessors treat this as fatal.
var ErrCatalogNotFound = errors.New("catalog not found")

// Requirement is one entry of a framework catalog. The grouping field
// differs per framework (domain, family, process area or category);
// Group() collapses them.
type Requirement struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	Name            string   `json:"name"`
	Description     string   `json:"description"`
	Priority        string   `json:"priority"`         // critical|high|medium|low
	AutomationLevel string   `json:"automation_level"` // auto|semi|manual
	Domain          string   `json:"domain"`
	Family          string   `json:"family"`
	ProcessArea     string   `json:"process_area"`
	Category        string   `json:"category"`
	NISTControls    []string `json:"nist_controls"`

	// Framework-specific cross-references, kept as string keys and
	// resolved by indexed lookup, never as object pointers.
	TechniquesAddressed []string `json:"techniques_addressed,omitempty"`
	CISACommitment      string   `json:"cisa_commitment,omitempty"`
	NIST800171ID        string   `json:"nist_800_171_id,omitempty"`
}

// DisplayTitle returns the title, falling back to the name key used by
// some catalogs.
func (r *Requirement) DisplayTitle() string {
	if r.Title != "" {
		return r.Title
	}
	return r.Name
}

// Group returns the framework-specific grouping value.
func (r *Requirement) Group() string {
	for _, g := range []string{r.Domain, r.Family, r.ProcessArea, r.Category} {
		if g != "" {
			return g
		}
	}
	return "ungrouped"
}

// Catalog is an immutable parsed framework definition.
type Catalog struct {
	FrameworkID  string
	Version      string
	Requirements []Requirement

	index map[string]*Requirement
}

// New builds an in-memory catalog from requirement entries, applying the
// same priority normalization as file loading.
func New(frameworkID string, requirements []Requirement) *Catalog {
	c := &Catalog{
		FrameworkID:  frameworkID,
		Requirements: requirements,
		index:        make(map[string]*Requirement, len(requirements)),
	}
	for i := range c.Requirements {
		r := &c.Requirements[i]
		if r.Priority == "" {
			r.Priority = "medium"
		}
		r.Priority = strings.ToLower(r.Priority)
		c.index[r.ID] = r
	}
	return c
}

// Lookup resolves a requirement id via the in-memory index.
func (c *Catalog) Lookup(id string) (*Requirement, bool) {
	r, ok := c.index[id]
	return r, ok
}

// Groups returns the distinct grouping values in first-seen order.
func (c *Catalog) Groups() []string {
	seen := make(map[string]bool)
	var out []string
	for i := range c.Requirements {
		g := c.Requirements[i].Group()
		if !seen[g] {
			seen[g] = true
			out = append(out, g)
		}
	}
	return out
}

// catalogDocument tolerates the array-key heterogeneity across framework
// files: requirements, mitigations, techniques, controls or practices.
type catalogDocument struct {
	Version      string        `json:"version"`
	Requirements []Requirement `json:"requirements"`
	Mitigations  []Requirement `json:"mitigations"`
	Techniques   []Requirement `json:"techniques"`
	Controls     []Requirement `json:"controls"`
	Practices    []Requirement `json:"practices"`
}

func (d *catalogDocument) entries() []Requirement {
	for _, list := range [][]Requirement{d.Requirements, d.Mitigations, d.Techniques, d.Controls, d.Practices} {
		if len(list) > 0 {
			return list
		}
	}
	return nil
}

// Loader reads catalog files from a directory and memoizes parse results.
type Loader struct {
	dir string

	mu    sync.RWMutex
	cache map[string]*Catalog

	group   singleflight.Group
	watcher *fsnotify.Watcher
}

// NewLoader creates a loader rooted at dir. The directory watch is
// best-effort: when it cannot be established the loader still works, it
// just never invalidates.
func NewLoader(dir string) *Loader {
	l := &Loader{dir: dir, cache: make(map[string]*Catalog)}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logging.Warn("Catalog", "Catalog watch unavailable: %v", err)
		return l
	}
	if err := watcher.Add(dir); err != nil {
		logging.Debug("Catalog", "Not watching %s: %v", dir, err)
		_ = watcher.Close()
		return l
	}
	l.watcher = watcher
	go l.watch()
	return l
}

func (l *Loader) watch() {
	for {
		select {
		case event, ok := <-l.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				name := filepath.Base(event.Name)
				l.mu.Lock()
				if _, cached := l.cache[name]; cached {
					delete(l.cache, name)
					logging.Debug("Catalog", "Invalidated cached catalog %s", name)
				}
				l.mu.Unlock()
			}
		case err, ok := <-l.watcher.Errors:
			if !ok {
				return
			}
			logging.Warn("Catalog", "Catalog watch error: %v", err)
		}
	}
}

// Close stops the directory watch.
func (l *Loader) Close() error {
	if l.watcher != nil {
		return l.watcher.Close()
	}
	return nil
}

// Load returns the parsed catalog for a framework. Concurrent loads of
// the same file are collapsed into one parse.
func (l *Loader) Load(frameworkID, filename string) (*Catalog, error) {
	l.mu.RLock()
	if c, ok := l.cache[filename]; ok {
		l.mu.RUnlock()
		return c, nil
	}
	l.mu.RUnlock()

	v, err, _ := l.group.Do(filename, func() (interface{}, error) {
		c, err := l.parse(frameworkID, filename)
		if err != nil {
			return nil, err
		}
		l.mu.Lock()
		l.cache[filename] = c
		l.mu.Unlock()
		return c, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Catalog), nil
}

func (l *Loader) parse(frameworkID, filename string) (*Catalog, error) {
	path := filepath.Join(l.dir, filename)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCatalogNotFound, path, err)
	}

	var doc catalogDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s is malformed: %v", ErrCatalogNotFound, path, err)
	}
	entries := doc.entries()
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: %s contains no requirement entries", ErrCatalogNotFound, path)
	}

	c := New(frameworkID, entries)
	c.Version = doc.Version
	logging.Debug("Catalog", "Loaded %s catalog: %d requirements", frameworkID, len(entries))
	return c, nil
}

// SortedIDs returns every requirement id in alphabetical order.
func (c *Catalog) SortedIDs() []string {
	ids := make([]string, 0, len(c.Requirements))
	for i := range c.Requirements {
		ids = append(ids, c.Requirements[i].ID)
	}
	sort.Strings(ids)
	return ids
}
