package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/leapstack-labs/erdview/internal/schema"
	"github.com/redis/go-redis/v9"
)

// DefaultRedisSocket is used when no address is configured.
const DefaultRedisSocket = "/var/run/redis/redis.sock"

// DefaultRedisKeyPrefix namespaces every key written by RedisStore.
const DefaultRedisKeyPrefix = "erd:"

// RedisConfig holds connection settings for Redis backed stores.
type RedisConfig struct {
	// Addr is host:port. When empty the unix socket is used.
	Addr     string
	Socket   string
	Password string
	DB       int
	// KeyPrefix is prepended to every key. Schema hashes live under
	// <prefix>schema:<name>, so an empty prefix gives schema:<name>.
	KeyPrefix string
}

// NewRedisClient builds a client from cfg, connecting over TCP when Addr is
// set and over the unix socket otherwise.
func NewRedisClient(cfg RedisConfig) *redis.Client {
	opts := &redis.Options{
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	if cfg.Addr != "" {
		opts.Network = "tcp"
		opts.Addr = cfg.Addr
	} else {
		opts.Network = "unix"
		opts.Addr = cfg.Socket
		if opts.Addr == "" {
			opts.Addr = DefaultRedisSocket
		}
	}
	return redis.NewClient(opts)
}

// RedisStore keeps one hash per schema, mapping table name to the encoded
// column record. A set indexes the schema names.
type RedisStore struct {
	client *redis.Client
	prefix string
	logger *slog.Logger
}

// NewRedisStore wraps client.
func NewRedisStore(client *redis.Client, prefix string, logger *slog.Logger) *RedisStore {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &RedisStore{client: client, prefix: prefix, logger: logger}
}

func (s *RedisStore) schemaKey(name string) string { return s.prefix + "schema:" + name }
func (s *RedisStore) indexKey() string             { return s.prefix + "schemas" }
func (s *RedisStore) snapshotKey() string          { return s.prefix + "snapshot" }

// Ping checks the connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	return nil
}

// Close closes the client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Columns implements Store.
func (s *RedisStore) Columns(ctx context.Context, t schema.Table) ([]schema.Column, error) {
	record, err := s.client.HGet(ctx, s.schemaKey(t.Schema), t.Name).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get columns of %s: %w", t, err)
	}

	columns, err := schema.DecodeColumns(record)
	if err != nil {
		return nil, fmt.Errorf("table %s: %w", t, err)
	}
	return columns, nil
}

// Schemas implements Catalog.
func (s *RedisStore) Schemas(ctx context.Context) ([]string, error) {
	names, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list schemas: %w", err)
	}
	sort.Strings(names)
	return names, nil
}

// Tables implements Catalog.
func (s *RedisStore) Tables(ctx context.Context, schemaName string) ([]string, error) {
	names, err := s.client.HKeys(ctx, s.schemaKey(schemaName)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list tables of %s: %w", schemaName, err)
	}
	sort.Strings(names)
	return names, nil
}

// Snapshot implements Versioned.
func (s *RedisStore) Snapshot(ctx context.Context) (string, error) {
	id, err := s.client.Get(ctx, s.snapshotKey()).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get snapshot: %w", err)
	}
	return id, nil
}

// Replace implements Writer. Old schema hashes are deleted and the new ones
// written inside a MULTI/EXEC block so readers never see a mix of both.
func (s *RedisStore) Replace(ctx context.Context, d schema.Dump, load Load) error {
	old, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return fmt.Errorf("failed to list schemas: %w", err)
	}

	records := make(map[string]map[string]any, len(d))
	for _, sc := range d {
		fields, ok := records[sc.Name]
		if !ok {
			fields = make(map[string]any, len(sc.Tables))
			records[sc.Name] = fields
		}
		for _, t := range sc.Tables {
			record, err := schema.EncodeColumns(t.Columns)
			if err != nil {
				return fmt.Errorf("table %s.%s: %w", sc.Name, t.Name, err)
			}
			fields[t.Name] = record
		}
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		keys := make([]string, 0, len(old)+1)
		for _, name := range old {
			keys = append(keys, s.schemaKey(name))
		}
		keys = append(keys, s.indexKey())
		pipe.Del(ctx, keys...)

		for name, fields := range records {
			if len(fields) > 0 {
				pipe.HSet(ctx, s.schemaKey(name), fields)
			}
			pipe.SAdd(ctx, s.indexKey(), name)
		}
		pipe.Set(ctx, s.snapshotKey(), load.ID, 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to write schema to redis: %w", err)
	}

	s.logger.Info("schema loaded", "snapshot", load.ID, "tables", d.TableCount(), "source", load.Source,
		"prefix", strings.TrimSuffix(s.prefix, ":"))
	return nil
}
