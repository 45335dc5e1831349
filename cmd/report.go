package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newReportCmd creates the report command.
func newReportCmd() *cobra.Command {
	var projectID string
	var gate bool

	cmd := &cobra.Command{
		Use:   "report <framework>",
		Short: "Generate the compliance report for a framework",
		Long: `Generates the CUI-marked Markdown report and writes it versioned under
the project's compliance directory. With --gate the command exits
non-zero when the framework's security gate fails, for use in pipelines.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			deps, cleanup, err := buildDeps(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			result, err := deps.Generator.Generate(cmd.Context(), args[0], projectID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (v%s)\n", result.OutputFile, result.Version)

			if gate && !result.Gate.Passed {
				for _, reason := range result.Gate.Reasons {
					fmt.Fprintf(cmd.ErrOrStderr(), "gate: %s\n", reason)
				}
				return fmt.Errorf("%w for %s", errGateFailed, args[0])
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&projectID, "project", "p", "", "project id")
	cmd.Flags().BoolVar(&gate, "gate", false, "exit 1 when the security gate fails")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}
