package commands

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/leapstack-labs/erdview/internal/loader"
	"github.com/leapstack-labs/erdview/internal/server"
	"github.com/spf13/cobra"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve diagrams over HTTP",
		Long: `Start the HTTP server.

Endpoints:
  GET /api/schemas                                 stored schemas
  GET /api/schemas/{schema}/tables                 tables of a schema
  GET /api/schemas/{schema}/tables/{table}/columns columns of a table
  GET /api/schemas/{schema}/diagram                whole-schema diagram
  GET /api/related?schema=&table=&depth=           related tables diagram
  GET /api/route?from=&to=&shortest=               route diagram
  GET /api/events                                  reload events (with --watch)
  GET /healthz, /metrics`,
		Example: `  # Serve the schema already in the store
  erdview serve

  # Load a dump at startup and reload it whenever it changes
  erdview serve --dump schema.json --watch --addr :4444`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd)
		},
	}

	cmd.Flags().String("addr", "", "Listen address (default :8080)")
	cmd.Flags().String("dump", "", "Dump file to load at startup")
	cmd.Flags().Bool("watch", false, "Reload the dump file whenever it changes")

	return cmd
}

func runServe(cmd *cobra.Command) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	cfg := cmdCtx.Cfg
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var watcher *loader.Watcher
	if cfg.Server.Dump != "" {
		l := loader.New(cmdCtx.Store, cmdCtx.Logger)
		if _, err := l.LoadFile(ctx, cfg.Server.Dump); err != nil {
			return err
		}
		if cfg.Server.Watch {
			watcher = loader.NewWatcher(l, cfg.Server.Dump, loader.DefaultDebounce)
		}
	} else if cfg.Server.Watch {
		return fmt.Errorf("--watch needs a dump file (--dump or server.dump)")
	}

	srv, err := server.NewServer(server.Config{
		Explorer:          cmdCtx.Explorer,
		Store:             cmdCtx.Store,
		Addr:              cfg.Server.Addr,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ShutdownTimeout:   cfg.Server.ShutdownTimeout,
		Watcher:           watcher,
		Logger:            cmdCtx.Logger,
	})
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Serving %s diagrams on %s\n", cfg.Render.Format, cfg.Server.Addr)
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl+C to stop")

	if err := srv.Serve(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
