package config

import (
	"log/slog"
	"net"
	"strconv"

	"github.com/leapstack-labs/erdview/internal/cache"
	"github.com/leapstack-labs/erdview/internal/graph"
	"github.com/leapstack-labs/erdview/internal/render"
	"github.com/leapstack-labs/erdview/internal/store"
)

// RedisOptions returns the connection settings for store.NewRedisClient.
// A host selects TCP; otherwise the unix socket is used.
func (c *Config) RedisOptions(keyPrefix string) store.RedisConfig {
	rc := store.RedisConfig{
		Socket:    c.Redis.Socket,
		Password:  c.Redis.Password,
		DB:        c.Redis.DB,
		KeyPrefix: keyPrefix,
	}
	if c.Redis.Host != "" {
		port := c.Redis.Port
		if port == 0 {
			port = DefaultRedisPort
		}
		rc.Addr = net.JoinHostPort(c.Redis.Host, strconv.Itoa(port))
	}
	return rc
}

// StoreOptions returns the options for store.Open.
func (c *Config) StoreOptions(logger *slog.Logger) store.Config {
	return store.Config{
		Type:   c.Store.Type,
		Path:   c.Store.Path,
		Redis:  c.RedisOptions(c.Store.KeyPrefix),
		Logger: logger,
	}
}

// CacheOptions returns the options for cache.Open.
func (c *Config) CacheOptions(logger *slog.Logger) cache.Config {
	return cache.Config{
		Type:       c.Cache.Type,
		Path:       c.Cache.Path,
		TTL:        c.Cache.TTL,
		MaxBytes:   c.Cache.MaxBytes,
		GCInterval: c.Cache.GCInterval,
		Redis:      c.RedisOptions(c.Cache.KeyPrefix),
		Logger:     logger,
	}
}

// GraphLimits returns the traversal limits.
func (c *Config) GraphLimits() graph.Limits {
	return graph.Limits{
		MaxDepth:  c.Limits.MaxDepth,
		MaxTables: c.Limits.MaxTables,
		MaxQueue:  c.Limits.MaxQueue,
	}
}

// NewRenderer builds the renderer described by the render section.
func (c *Config) NewRenderer(logger *slog.Logger) (*render.Renderer, error) {
	backend, err := render.NewBackend(c.Render.Backend, c.Render.Binary)
	if err != nil {
		return nil, err
	}
	return render.NewRenderer(render.Config{
		Backend: backend,
		Format:  c.Render.Format,
		Level:   c.Render.Level,
		Logger:  logger,
	})
}
