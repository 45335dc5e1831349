package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"steward/internal/clarify"
)

// newClarifyCmd creates the clarify command.
func newClarifyCmd() *cobra.Command {
	var maxQuestions int

	cmd := &cobra.Command{
		Use:   "clarify <spec-file>",
		Short: "Generate clarification questions for a specification",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine := clarify.NewEngine(clarify.WithMaxQuestions(maxQuestions))
			analysis, err := engine.AnalyzeSpecFile(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Clarity score: %.2f\n\n", analysis.ClarityScore)
			if len(analysis.Questions) == 0 {
				fmt.Fprintln(out, "No clarification questions.")
				return nil
			}
			for i, q := range analysis.Questions {
				fmt.Fprintf(out, "%d. [P%d %s/%s] %s\n", i+1, q.Priority, q.Impact, q.Uncertainty, q.Question)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&maxQuestions, "max-questions", clarify.DefaultMaxQuestions,
		"maximum questions to emit")
	return cmd
}
