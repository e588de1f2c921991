package cli

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/fairdiet/fairdiet/internal/config"
	"github.com/fairdiet/fairdiet/internal/logging"
)

// annotationInteractive marks commands that own the terminal. Their logs go
// to a file instead of stderr.
const annotationInteractive = "fairdiet/interactive"

// isTerminal checks if the given file is a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// logger is the package-level logger for CLI operations.
var logger zerolog.Logger //nolint:gochecknoglobals // Required for zerolog context integration

// NewRootCmd creates the root Cobra command for the fairdiet CLI. It resolves
// configuration and logging before any subcommand runs.
func NewRootCmd(ver string) *cobra.Command {
	var logResult *logging.LogPathResult

	cmd := &cobra.Command{
		Use:     "fairdiet",
		Short:   "Explore the climate effect of diet shifts",
		Long:    "fairdiet: Scale national food supply, recompute emissions and project the climate response",
		Version: ver,
		Example: rootCmdExample,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			config.SetGlobalConfig(cfg)

			result := setupLogging(cmd, cfg)
			logResult = &result
			return nil
		},
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			return cleanupLogging(logResult)
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	cmd.PersistentFlags().String("config", "", "config file (default ~/.fairdiet/config.yaml)")
	cmd.PersistentFlags().String("project-dir", "", "project directory holding a .fairdiet overlay")
	cmd.PersistentFlags().String("data-dir", "", "directory with the FAOSTAT CSV files (overrides config)")
	cmd.PersistentFlags().String("catalog", "", "catalog YAML file (default: built-in catalog)")

	cmd.AddCommand(
		NewRecomputeCmd(),
		NewDashboardCmd(),
		NewServeCmd(),
		NewCatalogCmd(),
		NewCacheCmd(),
		newConfigCmd(),
	)
	return cmd
}

// loadConfig applies, lowest first: defaults, the global file (or --config),
// the project overlay, the environment and finally persistent flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	ctx := cmd.Context()
	flags := cmd.Flags()

	var cfg *config.Config
	if path, _ := flags.GetString("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		projectFlag, _ := flags.GetString("project-dir")
		cwd, err := os.Getwd()
		if err != nil {
			cwd = "."
		}
		projectDir := config.ResolveProjectDir(ctx, projectFlag, cwd)
		config.SetResolvedProjectDir(projectDir)
		cfg = config.NewWithProjectDir(ctx, projectDir)
	}

	if dir, _ := flags.GetString("data-dir"); dir != "" {
		cfg.Data.Dir = dir
	}
	if path, _ := flags.GetString("catalog"); path != "" {
		cfg.Data.Catalog = path
	}
	return cfg, nil
}

const rootCmdExample = `  # Recompute the UK with ruminant supply halved
  fairdiet recompute --region uk --ruminant 2

  # Same selection as JSON, protein basis
  fairdiet recompute --region chile --ruminant 4 --basis protein --output json

  # Open the interactive dashboard
  fairdiet dashboard --region usa

  # Serve the JSON and websocket API
  fairdiet serve --addr 127.0.0.1:8050

  # Show the food groups and regions
  fairdiet catalog

  # Create and check a configuration file
  fairdiet config init
  fairdiet config validate`

// newConfigCmd creates the config command group with configuration subcommands.
func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "config", Short: "Configuration management commands"}
	cmd.AddCommand(
		NewConfigInitCmd(), NewConfigGetCmd(),
		NewConfigListCmd(), NewConfigValidateCmd(),
	)
	return cmd
}

// usageError marks errors caused by bad flag values. They exit with the
// same code as an invalid selection.
func usageError(format string, args ...any) error {
	return &ExitError{Code: ExitInvalidSelection, Err: fmt.Errorf("invalid arguments: "+format, args...)}
}
