// Package store provides the schema stores that hold, per table, the ordered
// column list with FK and PK references.
//
// Every store answers Columns; the richer capabilities (listing, loading,
// snapshot tracking) are separate interfaces so callers only depend on what
// they use.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/leapstack-labs/erdview/internal/schema"
)

// Store looks up the columns of a table. A table the store does not know
// yields an empty slice and a nil error. A record that exists but cannot be
// decoded yields an error wrapping schema.ErrMalformedColumns.
type Store interface {
	Columns(ctx context.Context, t schema.Table) ([]schema.Column, error)
}

// Catalog lists the stored schemas and tables.
type Catalog interface {
	Schemas(ctx context.Context) ([]string, error)
	Tables(ctx context.Context, schemaName string) ([]string, error)
}

// Versioned exposes the id of the currently loaded snapshot. An empty id
// means nothing has been loaded yet.
type Versioned interface {
	Snapshot(ctx context.Context) (string, error)
}

// Load describes one load of a dump into a store.
type Load struct {
	ID       string
	Source   string
	LoadedAt time.Time
}

// Writer replaces the stored schema with a dump and records the load.
type Writer interface {
	Replace(ctx context.Context, dump schema.Dump, load Load) error
}

// SchemaStore is implemented by every store in this package.
type SchemaStore interface {
	Store
	Catalog
	Versioned
	Writer
	Close() error
}

// Store types.
const (
	TypeSQLite = "sqlite"
	TypeRedis  = "redis"
	TypeMemory = "memory"
)

// Config selects and configures a store.
type Config struct {
	Type   string
	Path   string
	Redis  RedisConfig
	Logger *slog.Logger
}

// Open opens the store described by cfg.
func Open(ctx context.Context, cfg Config) (SchemaStore, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	switch cfg.Type {
	case TypeSQLite, "":
		s := NewSQLiteStore(logger)
		if err := s.Open(cfg.Path); err != nil {
			return nil, err
		}
		if err := s.Migrate(); err != nil {
			_ = s.Close()
			return nil, err
		}
		return s, nil
	case TypeRedis:
		s := NewRedisStore(NewRedisClient(cfg.Redis), cfg.Redis.KeyPrefix, logger)
		if err := s.Ping(ctx); err != nil {
			_ = s.Close()
			return nil, err
		}
		return s, nil
	case TypeMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store type %q (want %s, %s or %s)", cfg.Type, TypeSQLite, TypeRedis, TypeMemory)
	}
}
