package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newRTMCmd creates the rtm command.
func newRTMCmd() *cobra.Command {
	var projectID string

	cmd := &cobra.Command{
		Use:   "rtm",
		Short: "Build the requirements traceability matrix for a project",
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

			ctx := cmd.Context()
			project, err := deps.Store.GetProject(ctx, projectID)
			if err != nil {
				return err
			}
			matrix := deps.RTM.Build(project.Directory)
			reportPath, _, err := deps.RTM.Write(matrix, project.Directory)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote %s\n", reportPath)
			fmt.Fprintf(out, "%d requirement(s): %d traced, %d partial, %d gap(s); %.1f%% test coverage\n",
				len(matrix.Requirements), matrix.Traced, matrix.Partial, matrix.Gaps, matrix.Coverage)
			return nil
		},
	}
	cmd.Flags().StringVarP(&projectID, "project", "p", "", "project id")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}
