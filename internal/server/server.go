// Package server serves the explorer over HTTP: JSON listings of the stored
// schema and rendered diagrams for related tables, routes and whole schemas.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/leapstack-labs/erdview/internal/explorer"
	"github.com/leapstack-labs/erdview/internal/loader"
	"github.com/leapstack-labs/erdview/internal/store"
	"golang.org/x/sync/errgroup"
)

// Default timeouts.
const (
	DefaultReadHeaderTimeout = 10 * time.Second
	DefaultShutdownTimeout   = 5 * time.Second
)

// SchemaReader is the part of a schema store the listing endpoints need.
type SchemaReader interface {
	store.Store
	store.Catalog
}

// Server is the HTTP server.
type Server struct {
	explorer          *explorer.Explorer
	store             SchemaReader
	addr              string
	readHeaderTimeout time.Duration
	shutdownTimeout   time.Duration
	watcher           *loader.Watcher
	logger            *slog.Logger
}

// Config holds configuration for the server.
type Config struct {
	Explorer          *explorer.Explorer
	Store             SchemaReader
	Addr              string
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
	// Watcher, when set, runs alongside the server and its reloads are
	// streamed to /api/events.
	Watcher *loader.Watcher
	Logger  *slog.Logger
}

// NewServer creates a new server instance.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Explorer == nil {
		return nil, fmt.Errorf("explorer not specified")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("schema store not specified")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Server{
		explorer:          cfg.Explorer,
		store:             cfg.Store,
		addr:              cfg.Addr,
		readHeaderTimeout: cfg.ReadHeaderTimeout,
		shutdownTimeout:   cfg.ShutdownTimeout,
		watcher:           cfg.Watcher,
		logger:            logger,
	}
	if s.readHeaderTimeout <= 0 {
		s.readHeaderTimeout = DefaultReadHeaderTimeout
	}
	if s.shutdownTimeout <= 0 {
		s.shutdownTimeout = DefaultShutdownTimeout
	}
	return s, nil
}

// Handler returns the routed handler with the middleware stack applied.
func (s *Server) Handler() http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		requestLogger(s.logger),
		middleware.Recoverer,
	)

	var notify *loader.Notifier
	if s.watcher != nil {
		notify = s.watcher.Notifier()
	}
	SetupRoutes(r, NewHandlers(s.explorer, s.store, notify, s.logger))
	return r
}

// Serve starts the server and blocks until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("starting server", "addr", s.addr, "format", s.explorer.Format())

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:    s.addr,
		Handler: s.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: s.readHeaderTimeout,
	}

	if s.watcher != nil {
		eg.Go(func() error {
			return s.watcher.Run(egctx)
		})
	}

	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()

		s.logger.Debug("shutting down server...")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}
