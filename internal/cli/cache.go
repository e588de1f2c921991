package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fairdiet/fairdiet/internal/config"
	"github.com/fairdiet/fairdiet/internal/greenops"
)

// NewCacheCmd creates the cache command group for the climate projection cache.
func NewCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the climate projection cache",
	}
	cmd.AddCommand(newCacheStatsCmd(), newCacheClearCmd())
	return cmd
}

func newCacheStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show cache location and size",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openProjectionCache(config.GetGlobalConfig())
			if err != nil {
				return err
			}
			st, err := store.Stats()
			if err != nil {
				return err
			}
			ttl := "never"
			if store.TTL() > 0 {
				ttl = store.TTL().String()
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(),
				"Directory: %s\nEntries:   %d (%d expired)\nSize:      %s KiB\nExpiry:    %s\n",
				st.Dir, st.Entries, st.Expired, greenops.FormatFloat(float64(st.Bytes)/1024, 1), ttl) //nolint:mnd // KiB.
			return err
		},
	}
}

func newCacheClearCmd() *cobra.Command {
	var expiredOnly bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove cached projections",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openProjectionCache(config.GetGlobalConfig())
			if err != nil {
				return err
			}
			prune := store.Clear
			if expiredOnly {
				prune = store.CleanupExpired
			}
			removed, err := prune()
			if err != nil {
				return err
			}
			cmd.Printf("Removed %d cached projection(s)\n", removed)
			return nil
		},
	}
	cmd.Flags().BoolVar(&expiredOnly, "expired", false, "only remove expired entries")
	return cmd
}
