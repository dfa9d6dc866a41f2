// Package config provides the configuration types shared by the CLI and the
// server, together with the conversions into each package's own Config.
// Loading (files, environment, flags) lives in internal/cli/config.
package config

import (
	"time"

	"github.com/leapstack-labs/erdview/internal/introspect"
)

// Config is the complete erdview configuration.
type Config struct {
	Store  StoreConfig       `koanf:"store"`
	Cache  CacheConfig       `koanf:"cache"`
	Redis  RedisConfig       `koanf:"redis"`
	Render RenderConfig      `koanf:"render"`
	Limits LimitsConfig      `koanf:"limits"`
	Server ServerConfig      `koanf:"server"`
	Source introspect.Config `koanf:"source"`
	Log    LogConfig         `koanf:"log"`
}

// StoreConfig selects the schema store.
type StoreConfig struct {
	Type      string `koanf:"type" validate:"oneof=sqlite redis memory"`
	Path      string `koanf:"path" validate:"required_if=Type sqlite"`
	KeyPrefix string `koanf:"key_prefix"`
}

// CacheConfig selects the result cache.
type CacheConfig struct {
	Type       string        `koanf:"type" validate:"oneof=badger redis memory none"`
	Path       string        `koanf:"path" validate:"required_if=Type badger"`
	TTL        time.Duration `koanf:"ttl" validate:"gte=0"`
	MaxBytes   int64         `koanf:"max_bytes" validate:"gte=0"`
	GCInterval time.Duration `koanf:"gc_interval" validate:"gte=0"`
	KeyPrefix  string        `koanf:"key_prefix"`
}

// RedisConfig is shared by the redis schema store and the redis cache.
// With no host the unix socket is used.
type RedisConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port" validate:"gte=0,lte=65535"`
	Socket   string `koanf:"socket"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db" validate:"gte=0"`
}

// RenderConfig configures diagram rendering.
type RenderConfig struct {
	Backend string `koanf:"backend" validate:"oneof=graphviz source"`
	Binary  string `koanf:"binary"`
	Format  string `koanf:"format" validate:"oneof=svg png pdf json dot"`
	// Level is the gzip level of stored diagrams.
	Level int `koanf:"level" validate:"gte=-2,lte=9"`
}

// LimitsConfig bounds the work of a single request.
type LimitsConfig struct {
	MaxDepth  int `koanf:"max_depth" validate:"gte=1"`
	MaxTables int `koanf:"max_tables" validate:"gte=1"`
	MaxQueue  int `koanf:"max_queue" validate:"gte=1"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Addr              string        `koanf:"addr" validate:"required"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout" validate:"gte=0"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout" validate:"gte=0"`
	// Dump, when set, is loaded at startup.
	Dump string `koanf:"dump"`
	// Watch reloads Dump whenever it changes.
	Watch bool `koanf:"watch"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn error"`
	Format string `koanf:"format" validate:"oneof=text json"`
}
