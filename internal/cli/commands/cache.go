package commands

import (
	"fmt"

	"github.com/leapstack-labs/erdview/internal/cache"
	"github.com/leapstack-labs/erdview/internal/cli/config"
	"github.com/spf13/cobra"
)

// NewCacheCommand creates the cache command and its subcommands.
func NewCacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the diagram cache",
	}
	cmd.AddCommand(newCachePurgeCommand())
	return cmd
}

func newCachePurgeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Drop every cached diagram",
		Long: `Drop every diagram held by the configured cache.

Cached diagrams are keyed by the loaded snapshot, so a reload never serves
stale diagrams. Purging only reclaims the space they take.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := getConfig()
			logger := config.GetLogger(cmd.Context())

			s, err := cache.Open(cmd.Context(), cfg.CacheOptions(logger))
			if err != nil {
				return fmt.Errorf("failed to open cache: %w", err)
			}
			defer func() {
				if err := s.Close(); err != nil {
					logger.Warn("failed to close cache", "error", err)
				}
			}()

			if err := s.Purge(cmd.Context()); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Purged %s cache\n", cfg.Cache.Type)
			return nil
		},
	}
}
