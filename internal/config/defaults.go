package config

import (
	"time"

	"github.com/leapstack-labs/erdview/internal/cache"
	"github.com/leapstack-labs/erdview/internal/graph"
	"github.com/leapstack-labs/erdview/internal/render"
	"github.com/leapstack-labs/erdview/internal/store"
)

// Default configuration values.
const (
	DefaultStorePath         = ".erdview/schema.db"
	DefaultCachePath         = ".erdview/cache"
	DefaultCacheTTL          = 24 * time.Hour
	DefaultCacheGCInterval   = 10 * time.Minute
	DefaultAddr              = ":8080"
	DefaultReadHeaderTimeout = 10 * time.Second
	DefaultShutdownTimeout   = 5 * time.Second
	DefaultRedisPort         = 6379
	DefaultLogLevel          = "info"
	DefaultLogFormat         = "text"
	DefaultRenderBackend     = "graphviz"
)

// Defaults returns the default values keyed by their dotted config path,
// ready for a confmap provider.
func Defaults() map[string]any {
	return map[string]any{
		"store.type":                 store.TypeSQLite,
		"store.path":                 DefaultStorePath,
		"store.key_prefix":           store.DefaultRedisKeyPrefix,
		"cache.type":                 cache.TypeBadger,
		"cache.path":                 DefaultCachePath,
		"cache.ttl":                  DefaultCacheTTL.String(),
		"cache.max_bytes":            int64(cache.DefaultMemoryBytes),
		"cache.gc_interval":          DefaultCacheGCInterval.String(),
		"cache.key_prefix":           cache.DefaultRedisKeyPrefix,
		"redis.socket":               store.DefaultRedisSocket,
		"render.backend":             DefaultRenderBackend,
		"render.binary":              render.DefaultGraphvizBinary,
		"render.format":              render.FormatSVG,
		"limits.max_depth":           graph.DefaultMaxDepth,
		"limits.max_tables":          graph.DefaultMaxTables,
		"limits.max_queue":           graph.DefaultMaxQueue,
		"server.addr":                DefaultAddr,
		"server.read_header_timeout": DefaultReadHeaderTimeout.String(),
		"server.shutdown_timeout":    DefaultShutdownTimeout.String(),
		"log.level":                  DefaultLogLevel,
		"log.format":                 DefaultLogFormat,
	}
}

// ApplyDefaults fills zero values that have a default. It covers configs
// built in code rather than loaded.
func ApplyDefaults(c *Config) {
	if c == nil {
		return
	}
	if c.Store.Type == "" {
		c.Store.Type = store.TypeSQLite
	}
	if c.Store.Type == store.TypeSQLite && c.Store.Path == "" {
		c.Store.Path = DefaultStorePath
	}
	if c.Cache.Type == "" {
		c.Cache.Type = cache.TypeBadger
	}
	if c.Cache.Type == cache.TypeBadger && c.Cache.Path == "" {
		c.Cache.Path = DefaultCachePath
	}
	if c.Render.Backend == "" {
		c.Render.Backend = DefaultRenderBackend
	}
	if c.Render.Format == "" {
		c.Render.Format = render.FormatSVG
	}
	if c.Limits.MaxDepth == 0 {
		c.Limits.MaxDepth = graph.DefaultMaxDepth
	}
	if c.Limits.MaxTables == 0 {
		c.Limits.MaxTables = graph.DefaultMaxTables
	}
	if c.Limits.MaxQueue == 0 {
		c.Limits.MaxQueue = graph.DefaultMaxQueue
	}
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}
	if c.Server.ReadHeaderTimeout == 0 {
		c.Server.ReadHeaderTimeout = DefaultReadHeaderTimeout
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
}
