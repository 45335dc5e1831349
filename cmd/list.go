package cmd

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// newListCmd creates the list command with its subcommands.
func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored projects and assessments",
	}
	cmd.AddCommand(newListProjectsCmd())
	cmd.AddCommand(newListAssessmentsCmd())
	return cmd
}

func newListProjectsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "projects",
		Short: "List every registered project",
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

			projects, err := deps.Store.ListProjects(cmd.Context())
			if err != nil {
				return err
			}
			if len(projects) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No projects registered.")
				return nil
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.AppendHeader(table.Row{"Project", "Name", "Classification", "Impact", "Directory"})
			for _, p := range projects {
				t.AppendRow(table.Row{p.ProjectID, p.Name, p.Classification, p.ImpactLevel, p.Directory})
			}
			t.Render()
			return nil
		},
	}
}

func newListAssessmentsCmd() *cobra.Command {
	var projectID string

	cmd := &cobra.Command{
		Use:   "assessments <framework>",
		Short: "List a project's stored assessment rows for a framework",
		Args:  cobra.ExactArgs(1),
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

			rows, err := deps.Store.ListAssessments(cmd.Context(), args[0], projectID)
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No %s assessments for %s. Run the assessor first.\n",
					args[0], projectID)
				return nil
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.AppendHeader(table.Row{"Requirement", "Status", "Assessor", "Updated"})
			for _, r := range rows {
				t.AppendRow(table.Row{r.RequirementID, r.Status, r.Assessor, r.UpdatedAt})
			}
			t.Render()
			return nil
		},
	}
	cmd.Flags().StringVarP(&projectID, "project", "p", "", "project id")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}
