package cmd

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"steward/internal/assess"
	"steward/internal/catalog"
	"steward/internal/config"
	"steward/internal/cui"
	"steward/internal/server"
	"steward/internal/store"
	"steward/pkg/logging"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error, including a failed
	// security gate under report --gate.
	ExitCodeError = 1
)

// errGateFailed marks a gate verdict surfaced as a command failure under
// report --gate. The verdict is an expected outcome, not a malfunction,
// but pipelines need the non-zero exit.
var errGateFailed = errors.New("security gate failed")

var (
	configPath string
	debug      bool
)

// rootCmd is the entry point for the steward CLI.
var rootCmd = &cobra.Command{
	Use:   "steward",
	Short: "Compliance platform for DoD software programs",
	Long: `steward assesses projects against DoD compliance frameworks, generates
CUI-marked reports, traces requirements and emits CycloneDX SBOMs.
All state lives in a shared SQLite store with an append-only audit trail.

Run 'steward serve' to expose the platform to AI assistants over MCP.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := logging.LevelInfo
		if debug {
			level = logging.LevelDebug
		}
		// stdout is reserved for command output (and, under serve, the
		// protocol); logs always go to stderr.
		logging.Init(level, os.Stderr)
	},
}

// SetVersion sets the version for the root command, injected at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute runs the CLI and exits with a semantic code.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "steward version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(ExitCodeError)
	}
}

// loadConfig resolves the process configuration from --config and flags.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, err
	}
	cfg.Debug = cfg.Debug || debug
	return cfg, nil
}

// buildDeps opens the store and wires the shared backends. The returned
// cleanup closes the store and the catalog watcher.
func buildDeps(cfg config.Config) (*server.Deps, func(), error) {
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, nil, err
	}
	loader := catalog.NewLoader(cfg.CatalogDir)
	runner := assess.NewRunner(st, loader, assess.DefaultEngines()...)
	marking := cui.LoadConfig(cfg.CUIConfigPath)
	deps := server.NewDeps(st, runner, marking, cfg.TemplateDir)

	cleanup := func() {
		_ = loader.Close()
		_ = st.Close()
	}
	return deps, cleanup, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"config file (default "+config.DefaultPath+")")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newAssessCmd())
	rootCmd.AddCommand(newReportCmd())
	rootCmd.AddCommand(newClarifyCmd())
	rootCmd.AddCommand(newRTMCmd())
	rootCmd.AddCommand(newSBOMCmd())
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newVersionCmd())
}
