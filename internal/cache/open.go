package cache

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/leapstack-labs/erdview/internal/store"
)

// Cache store types.
const (
	TypeBadger = "badger"
	TypeRedis  = "redis"
	TypeMemory = "memory"
	TypeNone   = "none"
)

// Config selects and configures a cache store.
type Config struct {
	Type     string
	Path     string
	TTL      time.Duration
	MaxBytes int64
	// GCInterval applies to the badger store.
	GCInterval time.Duration
	Redis      store.RedisConfig
	Logger     *slog.Logger
}

// ClosableStore is a Store that owns resources and can be emptied.
type ClosableStore interface {
	Store
	io.Closer
	// Purge drops every artifact the store holds.
	Purge(ctx context.Context) error
}

// Open opens the cache store described by cfg.
func Open(ctx context.Context, cfg Config) (ClosableStore, error) {
	switch cfg.Type {
	case TypeBadger, "":
		return OpenBadger(BadgerConfig{
			Path:       cfg.Path,
			TTL:        cfg.TTL,
			GCInterval: cfg.GCInterval,
			Logger:     cfg.Logger,
		})
	case TypeRedis:
		prefix := cfg.Redis.KeyPrefix
		if prefix == "" {
			prefix = DefaultRedisKeyPrefix
		}
		client := store.NewRedisClient(cfg.Redis)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("failed to connect to redis cache: %w", err)
		}
		return NewRedisStore(client, prefix, cfg.TTL), nil
	case TypeMemory:
		return NewMemoryStore(cfg.MaxBytes, cfg.TTL)
	case TypeNone:
		return Nop{}, nil
	default:
		return nil, fmt.Errorf("unknown cache type %q", cfg.Type)
	}
}
