package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fairdiet/fairdiet/internal/config"
)

// NewConfigGetCmd creates the config get command, which prints one effective
// setting by dotted key.
func NewConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "get <key>",
		Short:   "Print one effective configuration value",
		Example: `  fairdiet config get scaling.degenerate_policy`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := config.GetGlobalConfig().Get(args[0])
			if errors.Is(err, config.ErrUnknownKey) {
				return usageError("%v (see `fairdiet config list`)", err)
			}
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), value)
			return err
		},
	}
}

// NewConfigListCmd creates the config list command, which prints every
// effective setting after file, project overlay, environment and flags.
func NewConfigListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the effective configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.GetGlobalConfig()
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, tabwriterPadding, ' ', 0)
			for _, key := range cfg.Keys() {
				value, err := cfg.Get(key)
				if err != nil {
					return err
				}
				if _, err = fmt.Fprintf(tw, "%s\t%s\n", key, value); err != nil {
					return fmt.Errorf("writing row: %w", err)
				}
			}
			return tw.Flush()
		},
	}
}
