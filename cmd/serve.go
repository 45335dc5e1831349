package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"steward/internal/server"
	"steward/internal/tracing"
	"steward/pkg/logging"
)

// newServeCmd creates the serve command. The process speaks MCP on its
// stdio pair: stdout carries only framed protocol messages.
func newServeCmd() *cobra.Command {
	var serverName string
	var withTracing bool

	cmd := &cobra.Command{
		Use:   "serve [group...]",
		Short: "Serve the platform over MCP on stdio",
		Long: `Starts one MCP server on stdin/stdout and runs until the client closes
the stream. Without arguments every capability group is exposed; naming
groups restricts the server to a subset, so a fleet can run one focused
process per concern:

  steward serve                  # full platform
  steward serve assess report    # assessment-only server

Groups: projects, assess, report, clarify, intake, findings, rtm, sbom.`,
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

			if cfg.Tracing || withTracing {
				shutdown, err := tracing.Init(tracing.Config{ServiceName: serverName})
				if err != nil {
					return err
				}
				defer func() { _ = shutdown(cmd.Context()) }()
			}

			groups := make([]server.Group, 0, len(args))
			for _, arg := range args {
				groups = append(groups, server.Group(arg))
			}
			logging.Info("Bootstrap", "Starting MCP server %s (store %s)", serverName, cfg.DBPath)
			return server.Serve(cmd.Context(), serverName, deps, os.Stdin, os.Stdout, groups...)
		},
	}
	cmd.Flags().StringVar(&serverName, "name", "steward", "server name advertised in initialize responses")
	cmd.Flags().BoolVar(&withTracing, "tracing", false, "export tool-call spans to stderr")
	return cmd
}
