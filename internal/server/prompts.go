package server

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"steward/internal/assess"
	"steward/internal/mcpserver"
)

func registerPrompts(registry *mcpserver.Registry, deps *Deps) {
	registry.RegisterPrompt(mcp.Prompt{
		Name:        "clarify_requirements",
		Description: "Turn a specification into the clarification questions a reviewer should ask first.",
		Arguments: []mcp.PromptArgument{
			{Name: "spec_text", Description: "Markdown specification text", Required: true},
		},
	}, func(ctx context.Context, args map[string]string) (interface{}, error) {
		text := args["spec_text"]
		if strings.TrimSpace(text) == "" {
			return nil, fmt.Errorf("spec_text argument is required")
		}
		analysis := deps.Clarifier.AnalyzeText(text)

		var b strings.Builder
		fmt.Fprintf(&b, "The following specification scored %.2f for clarity. ", analysis.ClarityScore)
		b.WriteString("Work through these clarification questions in priority order and propose a concrete answer for each:\n")
		for i, q := range analysis.Questions {
			fmt.Fprintf(&b, "%d. [P%d, %s] %s\n", i+1, q.Priority, q.Impact, q.Question)
		}
		if len(analysis.Questions) == 0 {
			b.WriteString("No clarification questions were generated; confirm the specification is complete.\n")
		}
		return b.String(), nil
	})

	registry.RegisterPrompt(mcp.Prompt{
		Name:        "gate_summary",
		Description: "Summarize a project's security gate posture for one framework from stored assessments.",
		Arguments: []mcp.PromptArgument{
			{Name: "project_id", Description: "Project to summarize", Required: true},
			{Name: "framework", Description: "Framework id", Required: true},
		},
	}, func(ctx context.Context, args map[string]string) (interface{}, error) {
		projectID := args["project_id"]
		frameworkID := args["framework"]
		if projectID == "" || frameworkID == "" {
			return nil, fmt.Errorf("project_id and framework arguments are required")
		}
		engine, ok := deps.Runner.Engine(frameworkID)
		if !ok {
			return nil, fmt.Errorf("unknown framework: %s", frameworkID)
		}
		project, err := deps.Store.GetProject(ctx, projectID)
		if err != nil {
			return nil, err
		}
		cat, err := deps.Runner.LoadCatalog(engine.FrameworkID(), engine.CatalogFilename())
		if err != nil {
			return nil, err
		}
		rows, err := deps.Store.ListAssessments(ctx, frameworkID, projectID)
		if err != nil {
			return nil, err
		}
		counts := assess.Count(rows)
		groups := assess.GroupScores(cat, rows, assess.Scorer(frameworkID))
		score := assess.OverallScore(frameworkID, counts, groups)
		stig, err := deps.Store.ListSTIGFindings(ctx, projectID)
		if err != nil {
			return nil, err
		}
		ivv, err := deps.Store.ListIVVFindings(ctx, projectID)
		if err != nil {
			return nil, err
		}
		gate := assess.EvaluateGate(frameworkID, cat, rows, counts, score, stig, ivv)

		var b strings.Builder
		fmt.Fprintf(&b, "Project %s (%s) scored %.1f on %s with posture %s. ",
			project.Name, projectID, score, frameworkID,
			assess.PostureFor(frameworkID, score, gate.Passed))
		if gate.Passed {
			b.WriteString("The security gate PASSED.")
		} else {
			b.WriteString("The security gate FAILED:\n")
			for _, reason := range gate.Reasons {
				fmt.Fprintf(&b, "- %s\n", reason)
			}
		}
		b.WriteString("\nExplain the gate result to the program office and recommend the next remediation steps.")
		return b.String(), nil
	})
}
