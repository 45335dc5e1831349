package cmd

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"steward/internal/assess"
)

// newAssessCmd creates the assess command.
func newAssessCmd() *cobra.Command {
	var projectID string
	var all bool

	cmd := &cobra.Command{
		Use:   "assess [framework]",
		Short: "Run a framework assessment for a project",
		Long: `Runs automated checks where the framework supports them, merges the
results with prior manual judgments and prints the scored summary.
With --all every registered framework is assessed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !all && len(args) != 1 {
				return fmt.Errorf("a framework argument or --all is required")
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			deps, cleanup, err := buildDeps(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			frameworks := args
			if all {
				frameworks = deps.Runner.Frameworks()
			}

			var mu sync.Mutex
			var summaries []*assess.Summary
			g, ctx := errgroup.WithContext(cmd.Context())
			for _, framework := range frameworks {
				g.Go(func() error {
					summary, err := deps.Runner.Assess(ctx, framework, projectID)
					if err != nil {
						return fmt.Errorf("%s: %w", framework, err)
					}
					mu.Lock()
					summaries = append(summaries, summary)
					mu.Unlock()
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}
			sort.Slice(summaries, func(i, j int) bool {
				return summaries[i].FrameworkID < summaries[j].FrameworkID
			})

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.AppendHeader(table.Row{"Framework", "Score", "Posture", "Gate", "Statuses"})
			for _, s := range summaries {
				t.AppendRow(table.Row{
					s.FrameworkID, fmt.Sprintf("%.1f", s.Score), s.Posture,
					gateCell(s.Gate.Passed), statusCell(s.Counts),
				})
			}
			t.Render()
			return nil
		},
	}
	cmd.Flags().StringVarP(&projectID, "project", "p", "", "project id")
	cmd.Flags().BoolVar(&all, "all", false, "assess every registered framework")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}

func gateCell(passed bool) string {
	if passed {
		return "PASS"
	}
	return "FAIL"
}

// statusCell compacts the non-zero status counts into one column.
func statusCell(counts map[string]int) string {
	keys := make([]string, 0, len(counts))
	for k, n := range counts {
		if n > 0 {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, counts[k]))
	}
	return strings.Join(parts, " ")
}
