// Package cli provides the command-line interface for milestone.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/milestone/internal/cli/commands"
	"github.com/leapstack-labs/milestone/internal/cli/config"
	"github.com/leapstack-labs/milestone/internal/cli/output"

	// Registered dialects and adapters.
	_ "github.com/leapstack-labs/milestone/pkg/adapters/duckdb"
	_ "github.com/leapstack-labs/milestone/pkg/adapters/memsql"
	_ "github.com/leapstack-labs/milestone/pkg/adapters/postgres"
	_ "github.com/leapstack-labs/milestone/pkg/dialects/ansi"
	_ "github.com/leapstack-labs/milestone/pkg/dialects/bigquery"
	_ "github.com/leapstack-labs/milestone/pkg/dialects/databricks"
	_ "github.com/leapstack-labs/milestone/pkg/dialects/duckdb"
	_ "github.com/leapstack-labs/milestone/pkg/dialects/h2"
	_ "github.com/leapstack-labs/milestone/pkg/dialects/memsql"
	_ "github.com/leapstack-labs/milestone/pkg/dialects/postgres"
	_ "github.com/leapstack-labs/milestone/pkg/dialects/snowflake"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "milestone",
		Short: "milestone - incremental ingestion SQL compiler",
		Long: `milestone compiles declarative ingest jobs into the SQL that loads a staging
table into a main table under a milestoning strategy: nontemporal snapshot
or delta, append-only, unitemporal snapshot or delta, and bitemporal.

Plans are generated for ANSI, BigQuery, Databricks, DuckDB, H2, MemSQL,
Postgres and Snowflake, and can be executed against DuckDB, Postgres and
MemSQL targets.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			cfg, err := config.Load(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}
			logger, err := NewLogger(cmd.ErrOrStderr(), cfg.LogLevel, cfg.Verbose)
			if err != nil {
				return err
			}

			ctx := config.WithConfig(cmd.Context(), cfg)
			ctx = config.WithLogger(ctx, logger)
			cmd.SetContext(ctx)

			logger.Debug("configuration loaded",
				"project_root", cfg.ProjectRoot,
				"environment", cfg.Environment,
				"state", cfg.StatePath)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(fmt.Sprintf("{{.Name}} {{.Version}} (commit %s, built %s)\n", GitCommit, BuildDate))

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: ./milestone.yaml)")
	pf.StringP("env", "e", "", "Environment whose overrides apply (e.g. dev, ci, prod)")
	pf.String("jobs-dir", "", "Directory holding job files")
	pf.String("state", "", "Path to the run-history database")
	pf.String("log-level", "", "Log level (debug|info|warn|error)")
	pf.BoolP("verbose", "v", false, "Verbose output (debug logging)")
	pf.StringP("output", "o", "", "Output format (auto|text|markdown|json|yaml)")

	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return output.Modes, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("log-level", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"debug", "info", "warn", "error"}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(commands.NewVersionCommand(Version))
	rootCmd.AddCommand(commands.NewCompileCommand())
	rootCmd.AddCommand(commands.NewValidateCommand())
	rootCmd.AddCommand(commands.NewDialectsCommand())
	rootCmd.AddCommand(commands.NewRunCommand())
	rootCmd.AddCommand(commands.NewHistoryCommand())

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}
