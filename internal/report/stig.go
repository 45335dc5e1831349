package report

import (
	"context"
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"steward/internal/assess"
	"steward/internal/store"
	"steward/pkg/logging"
)

// stigTemplate is the findings-oriented layout. STIG reporting runs over
// checklist findings rather than catalog assessment rows.
const stigTemplate = `# Application Security STIG Report

| | |
|---|---|
| Project | {{project_name}} ({{project_id}}) |
| Classification | {{classification}} |
| Impact Level | {{impact_level}} |
| Assessment Date | {{assessment_date}} |
| Report Version | {{version}} |

## Executive Summary

{{executive_summary}}

## Findings

{{findings_table}}

## Security Gate Evaluation

{{gate_evaluation}}
`

// generateSTIG renders the STIG findings report and its CAT I gate.
func (g *Generator) generateSTIG(ctx context.Context, projectID string) (*Result, error) {
	project, err := g.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	findings, err := g.store.ListSTIGFindings(ctx, projectID)
	if err != nil {
		return nil, err
	}

	gate := assess.STIGGate(findings)
	severityCounts := stigSeverityCounts(findings)

	version, err := g.nextVersion(ctx, projectID, eventType("stig"))
	if err != nil {
		return nil, err
	}

	now := g.now().UTC()
	vars := map[string]interface{}{
		"project_id":        project.ProjectID,
		"project_name":      project.Name,
		"classification":    project.Classification,
		"impact_level":      project.ImpactLevel,
		"assessment_date":   now.Format("2006-01-02"),
		"version":           version,
		"gate_result":       gateLabel(gate),
		"executive_summary": stigSummary(findings, severityCounts, gate),
		"findings_table":    stigFindingsTable(findings),
		"gate_evaluation":   gateSection(gate),
	}

	rendered := g.marking.Apply(Substitute(stigTemplate, vars))
	outputFile, err := g.write(project, "stig", version, rendered)
	if err != nil {
		return nil, err
	}

	summary := map[string]interface{}{
		"framework":      "stig",
		"total_findings": len(findings),
		"cat1_open":      severityCounts["cat1_open"],
		"cat2_open":      severityCounts["cat2_open"],
		"cat3_open":      severityCounts["cat3_open"],
		"not_reviewed":   severityCounts["not_reviewed"],
	}
	_ = g.store.AppendAudit(ctx, &store.AuditEvent{
		ProjectID: projectID,
		EventType: eventType("stig"),
		Actor:     "report-generator",
		Action:    fmt.Sprintf("Generated STIG report v%s", version),
		Details: map[string]interface{}{
			"version":     version,
			"gate_result": gateLabel(gate),
			"output_file": outputFile,
			"cat1_open":   severityCounts["cat1_open"],
		},
		AffectedFiles: []string{outputFile},
	})

	logging.Info("Report", "Wrote STIG report v%s for %s to %s", version, projectID, outputFile)
	return &Result{
		Status:     "success",
		OutputFile: outputFile,
		Version:    version,
		Summary:    summary,
		Gate:       gate,
	}, nil
}

func stigSeverityCounts(findings []store.STIGFinding) map[string]int {
	counts := map[string]int{}
	for _, f := range findings {
		if strings.EqualFold(f.Status, "Not_Reviewed") {
			counts["not_reviewed"]++
		}
		if !strings.EqualFold(f.Status, "Open") {
			continue
		}
		switch strings.ToUpper(f.Severity) {
		case "CAT1":
			counts["cat1_open"]++
		case "CAT2":
			counts["cat2_open"]++
		case "CAT3":
			counts["cat3_open"]++
		}
	}
	return counts
}

func stigSummary(findings []store.STIGFinding, severityCounts map[string]int, gate assess.GateResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d checklist findings recorded: %d open CAT I, %d open CAT II, %d open CAT III, %d awaiting review.\n\n",
		len(findings), severityCounts["cat1_open"], severityCounts["cat2_open"],
		severityCounts["cat3_open"], severityCounts["not_reviewed"])
	if gate.Passed {
		b.WriteString("The deployment gate **passes**: no CAT I finding is open.\n")
	} else {
		b.WriteString("The deployment gate **fails**: open CAT I findings must be remediated before deployment.\n")
	}
	return b.String()
}

func stigFindingsTable(findings []store.STIGFinding) string {
	if len(findings) == 0 {
		return "No findings recorded. Run the STIG scan or record findings manually.\n"
	}
	rows := make([]table.Row, 0, len(findings))
	for _, f := range findings {
		rows = append(rows, table.Row{f.VulnID, f.Severity, f.Title, f.Status, f.Comments})
	}
	return markdownTable(table.Row{"Vuln ID", "Severity", "Title", "Status", "Comments"}, rows)
}
