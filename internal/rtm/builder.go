package rtm

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"steward/internal/cui"
	"steward/pkg/logging"
)

// TraceStatus classifies one requirement's traceability.
type TraceStatus string

const (
	StatusTraced  TraceStatus = "Traced"
	StatusPartial TraceStatus = "Partial"
	StatusGap     TraceStatus = "Gap"
)

// Trace is one requirement with its matched artifacts.
type Trace struct {
	Requirement Item        `json:"requirement"`
	Design      []string    `json:"design"`
	Code        []string    `json:"code"`
	Tests       []string    `json:"tests"`
	Status      TraceStatus `json:"status"`
}

// Matrix is a complete traceability matrix for one project directory.
type Matrix struct {
	Requirements []Trace `json:"requirements"`
	Design       []Item  `json:"design_items"`
	Code         []Item  `json:"code_items"`
	Tests        []Item  `json:"test_items"`
	Orphans      []Item  `json:"orphan_tests"`
	Coverage     float64 `json:"coverage"`
	Traced       int     `json:"traced"`
	Partial      int     `json:"partial"`
	Gaps         int     `json:"gaps"`
	GeneratedAt  string  `json:"generated_at"`
}

// Builder discovers artifacts and links them into a matrix.
type Builder struct {
	marking *cui.Config

	now func() time.Time
}

// NewBuilder wires a builder with the given CUI markings.
func NewBuilder(marking *cui.Config) *Builder {
	if marking == nil {
		marking = cui.DefaultConfig()
	}
	return &Builder{marking: marking, now: time.Now}
}

// Build discovers all four artifact sets in projectDir and links them.
//
// A requirement is Traced when it matches at least one item of every
// artifact kind the project actually has; kinds with nothing discovered
// are not held against it. No match at all is a Gap, anything between is
// Partial. Coverage counts requirements with at least one test link.
func (b *Builder) Build(projectDir string) *Matrix {
	requirements, design, code, tests := Discover(projectDir)

	designKW := keywordSets(design)
	codeKW := keywordSets(code)
	testKW := keywordSets(tests)

	matchedTests := make(map[string]bool)
	m := &Matrix{
		Design:      design,
		Code:        code,
		Tests:       tests,
		GeneratedAt: b.now().UTC().Format(time.RFC3339),
	}

	withTests := 0
	for _, req := range requirements {
		kw := keywords(req)
		trace := Trace{
			Requirement: req,
			Design:      matches(kw, design, designKW),
			Code:        matches(kw, code, codeKW),
			Tests:       matches(kw, tests, testKW),
		}
		for _, id := range trace.Tests {
			matchedTests[id] = true
		}
		trace.Status = classify(trace, len(design) > 0, len(code) > 0, len(tests) > 0)
		switch trace.Status {
		case StatusTraced:
			m.Traced++
		case StatusPartial:
			m.Partial++
		default:
			m.Gaps++
		}
		if len(trace.Tests) > 0 {
			withTests++
		}
		m.Requirements = append(m.Requirements, trace)
	}

	for _, test := range tests {
		if !matchedTests[test.ID] {
			m.Orphans = append(m.Orphans, test)
		}
	}
	if len(requirements) > 0 {
		m.Coverage = math.Round(1000*float64(withTests)/float64(len(requirements))) / 10
	}
	logging.Debug("RTM", "Built matrix: %d requirements, coverage %.1f%%, %d orphan tests",
		len(requirements), m.Coverage, len(m.Orphans))
	return m
}

func classify(trace Trace, hasDesign, hasCode, hasTests bool) TraceStatus {
	total := len(trace.Design) + len(trace.Code) + len(trace.Tests)
	if total == 0 {
		return StatusGap
	}
	if (hasDesign && len(trace.Design) == 0) ||
		(hasCode && len(trace.Code) == 0) ||
		(hasTests && len(trace.Tests) == 0) {
		return StatusPartial
	}
	return StatusTraced
}

func keywordSets(items []Item) []map[string]bool {
	out := make([]map[string]bool, len(items))
	for i, item := range items {
		out[i] = keywords(item)
	}
	return out
}

// Write renders the matrix to the compliance/rtm directory: a CUI-marked
// Markdown report and the machine-readable JSON data file.
func (b *Builder) Write(m *Matrix, projectDir string) (reportPath, dataPath string, err error) {
	dir := filepath.Join(projectDir, "compliance", "rtm")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("failed to create rtm directory: %w", err)
	}

	reportPath = filepath.Join(dir, "rtm-report.md")
	if err := os.WriteFile(reportPath, []byte(b.marking.Apply(b.render(m))), 0o644); err != nil {
		return "", "", fmt.Errorf("failed to write rtm report: %w", err)
	}

	dataPath = filepath.Join(dir, "rtm-data.json")
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", "", fmt.Errorf("failed to serialize rtm data: %w", err)
	}
	if err := os.WriteFile(dataPath, data, 0o644); err != nil {
		return "", "", fmt.Errorf("failed to write rtm data: %w", err)
	}
	return reportPath, dataPath, nil
}

func (b *Builder) render(m *Matrix) string {
	var sb strings.Builder
	sb.WriteString("# Requirements Traceability Matrix\n\n")
	fmt.Fprintf(&sb, "Generated: %s\n\n", m.GeneratedAt)
	fmt.Fprintf(&sb, "Requirements: %d — Traced %d, Partial %d, Gap %d. Test coverage: %.1f%%. Orphan tests: %d.\n\n",
		len(m.Requirements), m.Traced, m.Partial, m.Gaps, m.Coverage, len(m.Orphans))

	sb.WriteString("## Matrix\n\n")
	if len(m.Requirements) == 0 {
		sb.WriteString("No requirements discovered.\n")
	} else {
		w := table.NewWriter()
		w.AppendHeader(table.Row{"ID", "Requirement", "Design", "Code", "Tests", "Status"})
		for _, trace := range m.Requirements {
			w.AppendRow(table.Row{
				trace.Requirement.ID, trace.Requirement.Name,
				strings.Join(trace.Design, ", "), strings.Join(trace.Code, ", "),
				strings.Join(trace.Tests, ", "), string(trace.Status),
			})
		}
		sb.WriteString(w.RenderMarkdown())
		sb.WriteString("\n")
	}

	sb.WriteString("\n## Orphan Tests\n\n")
	if len(m.Orphans) == 0 {
		sb.WriteString("None.\n")
	} else {
		for _, test := range m.Orphans {
			fmt.Fprintf(&sb, "- %s (%s)\n", test.ID, test.Path)
		}
	}
	return sb.String()
}
