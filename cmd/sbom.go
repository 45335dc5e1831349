package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newSBOMCmd creates the sbom command.
func newSBOMCmd() *cobra.Command {
	var projectID string

	cmd := &cobra.Command{
		Use:   "sbom",
		Short: "Generate a CycloneDX SBOM for a project",
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
			rec, bom, err := deps.SBOM.Emit(ctx, project)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (v%d, %d components)\n",
				rec.OutputFile, rec.Version, len(bom.Components))
			return nil
		},
	}
	cmd.Flags().StringVarP(&projectID, "project", "p", "", "project id")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}
