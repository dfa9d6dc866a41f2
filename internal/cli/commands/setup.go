package commands

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/erdview/internal/cache"
	"github.com/leapstack-labs/erdview/internal/cli/config"
	"github.com/leapstack-labs/erdview/internal/explorer"
	"github.com/leapstack-labs/erdview/internal/store"
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Store    store.SchemaStore
	Cache    cache.ClosableStore
	Explorer *explorer.Explorer
}

// NewCommandContext opens the schema store, the diagram cache and the
// explorer over both. Returns the context and a cleanup function that must
// be called (typically via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cmdCtx, closeStore, err := NewStoreContext(cmd)
	if err != nil {
		return nil, nil, err
	}
	cfg := cmdCtx.Cfg

	resultStore, err := cache.Open(cmd.Context(), cfg.CacheOptions(cmdCtx.Logger))
	if err != nil {
		closeStore()
		return nil, nil, fmt.Errorf("failed to open cache: %w", err)
	}

	renderer, err := cfg.NewRenderer(cmdCtx.Logger)
	if err != nil {
		_ = resultStore.Close()
		closeStore()
		return nil, nil, err
	}

	exp, err := explorer.New(explorer.Config{
		Store:    cmdCtx.Store,
		Renderer: renderer,
		Cache:    cache.New(resultStore, cmdCtx.Logger),
		Limits:   cfg.GraphLimits(),
		Logger:   cmdCtx.Logger,
	})
	if err != nil {
		_ = resultStore.Close()
		closeStore()
		return nil, nil, err
	}

	cmdCtx.Cache = resultStore
	cmdCtx.Explorer = exp
	cleanup := func() {
		if err := resultStore.Close(); err != nil {
			cmdCtx.Logger.Warn("failed to close cache", "error", err)
		}
		closeStore()
	}
	return cmdCtx, cleanup, nil
}

// NewStoreContext opens only the schema store.
// Useful for commands that never render.
func NewStoreContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())

	s, err := openStore(cmd, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := s.Close(); err != nil {
			logger.Warn("failed to close schema store", "error", err)
		}
	}
	return &CommandContext{Cfg: cfg, Logger: logger, Store: s}, cleanup, nil
}

// Helper functions shared across commands

// getConfig returns the current configuration, or the defaults when none
// was loaded.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	return config.DefaultConfig()
}

func openStore(cmd *cobra.Command, cfg *config.Config, logger *slog.Logger) (store.SchemaStore, error) {
	opts := cfg.StoreOptions(logger)

	// Ensure the store directory exists
	if opts.Type == store.TypeSQLite && opts.Path != ":memory:" {
		if dir := filepath.Dir(opts.Path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create store directory: %w", err)
			}
		}
	}

	s, err := store.Open(cmd.Context(), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open schema store: %w", err)
	}
	return s, nil
}
