// Package config loads the erdview CLI configuration.
//
// Values are layered, lowest precedence first: built-in defaults, the
// erdview.yaml config file, the legacy REDIS_HOST/REDIS_PORT variables,
// ERDVIEW_ environment variables and finally explicitly set CLI flags.
// A .env file next to the config file (or in the working directory) is
// read into the environment before any of that.
package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	intconfig "github.com/leapstack-labs/erdview/internal/config"
	"github.com/spf13/pflag"
)

// Config is an alias for the shared configuration.
// This allows CLI code to use config.Config without importing internal/config.
type Config = intconfig.Config

// EnvPrefix prefixes every environment variable read by LoadConfig.
const EnvPrefix = "ERDVIEW_"

// loggerKey is used to store logger in context.
type loggerKey struct{}

// maxUpwardSearchLevels limits how far up the directory tree to search for config files.
const maxUpwardSearchLevels = 10

// flagKeys maps CLI flag names onto config keys. Flags not listed here are
// command options and never reach the config.
var flagKeys = map[string]string{
	"store":       "store.type",
	"store-path":  "store.path",
	"cache":       "cache.type",
	"cache-path":  "cache.path",
	"cache-ttl":   "cache.ttl",
	"backend":     "render.backend",
	"format":      "render.format",
	"max-depth":   "limits.max_depth",
	"addr":        "server.addr",
	"dump":        "server.dump",
	"watch":       "server.watch",
	"source":      "source.type",
	"dsn":         "source.dsn",
	"source-path": "source.path",
	"schemas":     "source.schemas",
	"log-level":   "log.level",
	"log-format":  "log.format",
}

// Package-level koanf instance and config file tracking
var (
	k              = koanf.New(".")
	configFileUsed string
	currentConfig  *Config // Stores the loaded config for access by commands
)

// ResetConfig resets the koanf instance. Used for testing.
func ResetConfig() {
	k = koanf.New(".")
	configFileUsed = ""
	currentConfig = nil
}

// findConfigFile returns the explicit path, or the first config file found
// upward from the working directory.
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}
	if root := intconfig.FindProjectRoot(cwd, maxUpwardSearchLevels); root != "" {
		return intconfig.FindConfigFile(root)
	}
	return ""
}

// loadDotEnv reads dir/.env into the process environment. Variables that
// are already set win. A missing file is not an error.
func loadDotEnv(dir string) error {
	path := filepath.Join(dir, ".env")
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	return nil
}

// envKey turns ERDVIEW_CACHE_MAX_BYTES into cache.max_bytes: the first
// underscore separates the section.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.Replace(s, "_", ".", 1)
}

// legacyRedisEnv maps REDIS_HOST and REDIS_PORT onto the redis section.
func legacyRedisEnv() map[string]any {
	out := make(map[string]any)
	if host := os.Getenv("REDIS_HOST"); host != "" {
		out["redis.host"] = host
	}
	if port := os.Getenv("REDIS_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			out["redis.port"] = p
		}
	}
	return out
}

// LoadConfig loads configuration from file, environment variables, and flags.
// Precedence (highest to lowest): flags > env vars > config file > defaults
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	// Reset koanf for fresh load
	k = koanf.New(".")

	configFileUsed = findConfigFile(cfgFile)
	baseDir := "."
	if configFileUsed != "" {
		baseDir = filepath.Dir(configFileUsed)
	}
	if err := loadDotEnv(baseDir); err != nil {
		return nil, err
	}

	// 1. Load defaults
	if err := k.Load(confmap.Provider(intconfig.Defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Load config file
	if configFileUsed != "" {
		if err := k.Load(file.Provider(configFileUsed), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFileUsed, err)
		}
	}

	// 3. Load environment variables, legacy names first
	if err := k.Load(confmap.Provider(legacyRedisEnv(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load redis env vars: %w", err)
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Load flags (highest priority - overrides env vars and config file)
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			// Only load flags that were explicitly set
			if !f.Changed {
				return "", nil
			}
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// 5. Unmarshal into Config struct
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
			WeaklyTypedInput: true,
			Result:           &cfg,
		},
	}); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// 6. Resolve relative paths against the config file directory
	if configFileUsed != "" {
		cfg.ResolvePaths(baseDir)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Store config for access by commands
	currentConfig = &cfg

	return &cfg, nil
}

// DefaultConfig returns the configuration used when nothing was loaded.
func DefaultConfig() *Config {
	var cfg Config
	intconfig.ApplyDefaults(&cfg)
	return &cfg
}

// GetConfigFileUsed returns the path to the config file being used, if any.
func GetConfigFileUsed() string {
	return configFileUsed
}

// GetCurrentConfig returns the currently loaded configuration.
// This is available after LoadConfig is called.
func GetCurrentConfig() *Config {
	return currentConfig
}

// LoggerKey returns the context key used for storing the logger.
// This allows the commands package to retrieve the logger from context
// without creating an import cycle with the cli package.
func LoggerKey() interface{} {
	return loggerKey{}
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	// Return discard logger as safe fallback
	return slog.New(slog.DiscardHandler)
}
