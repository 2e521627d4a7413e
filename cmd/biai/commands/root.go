// Package commands defines all Cobra CLI commands for the biai binary.
package commands

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/singa-bi/biai-go/internal/audit"
	"github.com/singa-bi/biai-go/internal/config"
	"github.com/singa-bi/biai-go/internal/logging"
)

// configPath holds the --config flag value for YAML config file override.
var configPath string

// loadedConfigPath stores the resolved config file path for audit logging.
var loadedConfigPath string

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "biai",
		Short: "BI-AI — database knowledge-base assistant powered by LLMs",
		Long: `BI-AI is a local-first assistant for business-intelligence database work.

It indexes your database schema dump and historical business queries into a
Qdrant vector store, then answers natural language questions about table
structures and SQL through retrieval-augmented generation.

Model provider is selected via the MODEL_PROVIDER environment variable
or a YAML config file (~/.biai/config.yaml).
See 'biai --help' for available commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			bootLog := logging.New("", "")

			// Load YAML config (env vars always override YAML values).
			path, err := config.Load(configPath, bootLog)
			if err != nil {
				return err
			}
			loadedConfigPath = path

			// Log level and format may come from the config file, so the
			// final logger is built after the load and installed as the
			// process default for commands that log via slog.Default.
			log := logging.New(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))
			slog.SetDefault(log)

			// Emit structured audit log for every command invocation.
			audit.LogCommandStart(log, cmd.Name(), loadedConfigPath)

			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.biai/config.yaml)")

	root.AddCommand(
		NewBuildCmd(),
		NewSearchCmd(),
		NewChatCmd(),
		NewVersionCmd(),
	)

	return root
}
