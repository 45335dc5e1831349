package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"steward/internal/assess"
	"steward/internal/catalog"
	"steward/internal/store"
)

// remediationWindows maps a requirement priority to its remediation
// target window.
var remediationWindows = map[string]int{
	"critical": 14,
	"high":     30,
	"medium":   60,
	"low":      90,
}

func markdownTable(header table.Row, rows []table.Row) string {
	w := table.NewWriter()
	w.AppendHeader(header)
	w.AppendRows(rows)
	return w.RenderMarkdown()
}

// executiveSummary renders the opening narrative of a report.
func executiveSummary(frameworkID string, project *store.Project, counts assess.Counts, score float64, posture string, gate assess.GateResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Project **%s** (%s, impact level %s) was assessed against %s.\n\n",
		project.Name, project.Classification, project.ImpactLevel, frameworkName(frameworkID))
	if counts.Total == 0 {
		b.WriteString("No assessment rows are recorded for this framework. ")
		b.WriteString("Run the assessor first, then regenerate this report.\n")
		return b.String()
	}
	fmt.Fprintf(&b, "Overall score: **%.1f / 100** — posture **%s**.\n\n", score, posture)
	fmt.Fprintf(&b, "Of %d requirements, %d are satisfied, %d partially satisfied, %d not satisfied, %d not applicable, %d risk accepted and %d not yet assessed.\n",
		counts.Total, counts.Satisfied, counts.PartiallySatisfied, counts.NotSatisfied,
		counts.NotApplicable, counts.RiskAccepted, counts.NotAssessed)
	if gate.Passed {
		b.WriteString("\nThe deployment gate **passes**.\n")
	} else {
		b.WriteString("\nThe deployment gate **fails**; see Security Gate Evaluation.\n")
	}
	return b.String()
}

// coverageSection renders the per-grouping score table.
func coverageSection(groups []assess.GroupScore) string {
	if len(groups) == 0 {
		return "No grouped results available.\n"
	}
	rows := make([]table.Row, 0, len(groups))
	for _, g := range groups {
		rows = append(rows, table.Row{
			g.Group, g.Counts.Total, g.Counts.Satisfied, g.Counts.NotSatisfied,
			fmt.Sprintf("%.1f", g.Score),
		})
	}
	return markdownTable(table.Row{"Group", "Total", "Satisfied", "Not Satisfied", "Score"}, rows)
}

// detailSection renders the per-requirement assessment table, ordered by
// requirement id.
func detailSection(frameworkID string, cat *catalog.Catalog, rows []store.AssessmentRow) string {
	if len(rows) == 0 {
		return "No requirements assessed.\n"
	}
	out := make([]table.Row, 0, len(rows))
	for _, row := range rows {
		title, priority := "", ""
		if req, ok := cat.Lookup(row.RequirementID); ok {
			title = req.DisplayTitle()
			priority = req.Priority
		}
		out = append(out, table.Row{
			row.RequirementID, title, priority,
			assess.DisplayStatus(frameworkID, assess.Status(row.Status)),
			row.EvidenceDescription,
		})
	}
	return markdownTable(table.Row{"Requirement", "Title", "Priority", "Status", "Evidence"}, out)
}

// gapSection lists requirements with status not_satisfied or not_assessed.
func gapSection(frameworkID string, cat *catalog.Catalog, rows []store.AssessmentRow) string {
	var out []table.Row
	for _, row := range rows {
		s := assess.Status(row.Status)
		if s != assess.StatusNotSatisfied && s != assess.StatusNotAssessed {
			continue
		}
		title := ""
		if req, ok := cat.Lookup(row.RequirementID); ok {
			title = req.DisplayTitle()
		}
		out = append(out, table.Row{
			row.RequirementID, title,
			assess.DisplayStatus(frameworkID, s), row.Notes,
		})
	}
	if len(out) == 0 {
		return "No gaps identified.\n"
	}
	return markdownTable(table.Row{"Requirement", "Title", "Status", "Notes"}, out)
}

// remediationSection builds the priority-ordered remediation plan with a
// target date per priority window.
func remediationSection(cat *catalog.Catalog, rows []store.AssessmentRow, now time.Time) string {
	type item struct {
		id       string
		title    string
		priority string
		days     int
	}
	rank := map[string]int{"critical": 0, "high": 1, "medium": 2, "low": 3}

	var items []item
	for _, row := range rows {
		s := assess.Status(row.Status)
		if s != assess.StatusNotSatisfied && s != assess.StatusNotAssessed {
			continue
		}
		priority := "medium"
		title := ""
		if req, ok := cat.Lookup(row.RequirementID); ok {
			priority = req.Priority
			title = req.DisplayTitle()
		}
		days, ok := remediationWindows[priority]
		if !ok {
			days = remediationWindows["medium"]
		}
		items = append(items, item{id: row.RequirementID, title: title, priority: priority, days: days})
	}
	if len(items) == 0 {
		return "No remediation actions required.\n"
	}
	sort.SliceStable(items, func(i, j int) bool {
		if rank[items[i].priority] != rank[items[j].priority] {
			return rank[items[i].priority] < rank[items[j].priority]
		}
		return items[i].id < items[j].id
	})

	out := make([]table.Row, 0, len(items))
	for _, it := range items {
		target := now.AddDate(0, 0, it.days).Format("2006-01-02")
		out = append(out, table.Row{it.id, it.title, it.priority, fmt.Sprintf("%d days", it.days), target})
	}
	return markdownTable(table.Row{"Requirement", "Title", "Priority", "Window", "Target Date"}, out)
}

// nistCrossRefSection maps requirements to their NIST 800-53 controls.
func nistCrossRefSection(cat *catalog.Catalog, rows []store.AssessmentRow) string {
	var out []table.Row
	for _, row := range rows {
		req, ok := cat.Lookup(row.RequirementID)
		if !ok || len(req.NISTControls) == 0 {
			continue
		}
		out = append(out, table.Row{row.RequirementID, strings.Join(req.NISTControls, ", ")})
	}
	if len(out) == 0 {
		return "No NIST 800-53 cross-references defined in the catalog.\n"
	}
	return markdownTable(table.Row{"Requirement", "NIST 800-53 Controls"}, out)
}

// evidenceSection indexes every recorded evidence path.
func evidenceSection(rows []store.AssessmentRow) string {
	var out []table.Row
	for _, row := range rows {
		if row.EvidencePath == "" {
			continue
		}
		out = append(out, table.Row{row.RequirementID, row.EvidencePath, row.Assessor})
	}
	if len(out) == 0 {
		return "No evidence artifacts recorded.\n"
	}
	return markdownTable(table.Row{"Requirement", "Evidence Path", "Assessor"}, out)
}

// gateSection renders the Security Gate Evaluation block.
func gateSection(gate assess.GateResult) string {
	var b strings.Builder
	if gate.Passed {
		b.WriteString("Result: **PASS**\n")
		return b.String()
	}
	b.WriteString("Result: **FAIL**\n\n")
	for _, reason := range gate.Reasons {
		fmt.Fprintf(&b, "- %s\n", reason)
	}
	return b.String()
}

// frameworkName renders the human name of a framework id.
func frameworkName(frameworkID string) string {
	names := map[string]string{
		"nist_800_53": "NIST SP 800-53 rev 5",
		"fips":        "FIPS 199/200",
		"cmmc":        "CMMC Level 2",
		"fedramp":     "FedRAMP Moderate",
		"atlas":       "MITRE ATLAS",
		"sbd":         "CISA Secure by Design",
		"ivv":         "IEEE 1012 IV&V",
		"cssp":        "DoD CSSP",
		"zta":         "Zero Trust Architecture",
		"stig":        "Application Security STIG",
	}
	if name, ok := names[frameworkID]; ok {
		return name
	}
	return frameworkID
}
