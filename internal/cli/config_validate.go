package cli

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
	"github.com/spf13/cobra"

	"github.com/fairdiet/fairdiet/internal/config"
)

// NewConfigValidateCmd creates the config validate command.
func NewConfigValidateCmd() *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the effective configuration",
		Long: `Validates the effective configuration for semantic correctness:

- degenerate_policy is reject or clamp and max_compensation is positive
- the dashboard basis and panel are known
- the climate protocol constraint parses as a version constraint
- the catalog file, when set, loads and names the dashboard region`,
		Example: `  # Validate current configuration
  fairdiet config validate

  # Validate and show the resolved settings
  fairdiet config validate --verbose`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigValidate(cmd, verbose)
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "show detailed validation information")

	return cmd
}

func runConfigValidate(cmd *cobra.Command, verbose bool) error {
	cfg := config.GetGlobalConfig()

	if err := cfg.Validate(); err != nil {
		return &ExitError{Code: ExitFailure, Err: fmt.Errorf("configuration validation failed: %w", err)}
	}

	if c := cfg.Climate.ProtocolConstraint; c != "" {
		if _, err := semver.NewConstraint(c); err != nil {
			return &ExitError{Code: ExitFailure, Err: fmt.Errorf(
				"configuration validation failed: %w: climate.protocol_constraint %q: %w",
				config.ErrInvalidConfig, c, err)}
		}
	}

	cat, err := loadCatalog(cfg)
	if err != nil {
		return &ExitError{Code: ExitFailure, Err: fmt.Errorf("configuration validation failed: %w", err)}
	}
	if _, ok := cat.Region(cfg.Dashboard.Region); !ok {
		return &ExitError{Code: ExitFailure, Err: fmt.Errorf(
			"configuration validation failed: %w: dashboard.region %q is not in the catalog",
			config.ErrInvalidConfig, cfg.Dashboard.Region)}
	}

	cmd.Println("Configuration is valid")
	if verbose {
		printVerboseDetails(cmd, cfg)
	}
	return nil
}

func printVerboseDetails(cmd *cobra.Command, cfg *config.Config) {
	cmd.Println()
	cmd.Println("Configuration details:")
	cmd.Printf("  Config file: %s\n", cfg.ConfigPath())
	cmd.Printf("  Data directory: %s\n", cfg.Data.Dir)
	if cfg.Data.Catalog == "" {
		cmd.Println("  Catalog: built-in")
	} else {
		cmd.Printf("  Catalog: %s\n", cfg.Data.Catalog)
	}
	cmd.Printf("  Degenerate policy: %s\n", cfg.Scaling.DegeneratePolicy)
	cmd.Printf("  Logging: %s (%s)\n", cfg.Logging.Level, cfg.Logging.Format)
	if cfg.Climate.Command == "" {
		cmd.Println("  Climate model: none")
	} else {
		cmd.Printf("  Climate model: %s (protocol %s, timeout %s)\n",
			cfg.Climate.Command, cfg.Climate.ProtocolConstraint, cfg.Climate.Timeout)
	}
}
