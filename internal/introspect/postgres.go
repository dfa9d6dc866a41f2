package introspect

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/erdview/internal/schema"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx database/sql driver
)

func init() {
	Register("postgres", func(logger *slog.Logger) Source { return NewPostgresSource(logger) })
}

const postgresColumnsQuery = `
	SELECT c.table_schema, c.table_name, c.column_name, c.data_type, c.is_nullable
	FROM information_schema.columns c
	JOIN information_schema.tables t
		ON t.table_schema = c.table_schema AND t.table_name = c.table_name
	WHERE t.table_type = 'BASE TABLE'
		AND c.table_schema NOT IN ('information_schema', 'pg_catalog', 'pg_toast')
	ORDER BY c.table_schema, c.table_name, c.ordinal_position
`

// Composite keys are unnested pairwise so that every FK column maps onto the
// matching referenced column.
const postgresRefsQuery = `
	SELECT ns.nspname, cl.relname, att.attname, fns.nspname, fcl.relname, fatt.attname
	FROM pg_constraint con
	CROSS JOIN LATERAL unnest(con.conkey, con.confkey) AS k(col, fcol)
	JOIN pg_class cl ON cl.oid = con.conrelid
	JOIN pg_namespace ns ON ns.oid = cl.relnamespace
	JOIN pg_attribute att ON att.attrelid = con.conrelid AND att.attnum = k.col
	JOIN pg_class fcl ON fcl.oid = con.confrelid
	JOIN pg_namespace fns ON fns.oid = fcl.relnamespace
	JOIN pg_attribute fatt ON fatt.attrelid = con.confrelid AND fatt.attnum = k.fcol
	WHERE con.contype = 'f'
	ORDER BY ns.nspname, cl.relname, con.conname, att.attnum
`

// PostgresSource introspects PostgreSQL through the pgx driver.
type PostgresSource struct {
	BaseSource
}

// NewPostgresSource creates an unconnected PostgreSQL source.
func NewPostgresSource(logger *slog.Logger) *PostgresSource {
	return &PostgresSource{BaseSource: BaseSource{Logger: logger}}
}

// Name implements Source.
func (s *PostgresSource) Name() string { return "postgres" }

// Connect implements Source.
func (s *PostgresSource) Connect(ctx context.Context, cfg Config) error {
	dsn := cfg.DSN
	if dsn == "" {
		dsn = buildPostgresDSN(cfg)
	}
	return s.open(ctx, "pgx", dsn, cfg)
}

// Introspect implements Source.
func (s *PostgresSource) Introspect(ctx context.Context) (schema.Dump, error) {
	return s.collect(ctx, postgresColumnsQuery, postgresRefsQuery)
}

// buildPostgresDSN constructs a key=value PostgreSQL connection string.
func buildPostgresDSN(cfg Config) string {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	port := cfg.Port
	if port == 0 {
		port = 5432
	}
	sslmode := "disable"
	if mode, ok := cfg.Options["sslmode"]; ok {
		sslmode = mode
	}

	dsn := fmt.Sprintf("host=%s port=%d dbname=%s sslmode=%s", host, port, cfg.Database, sslmode)
	if cfg.Username != "" {
		dsn += fmt.Sprintf(" user=%s", cfg.Username)
	}
	if cfg.Password != "" {
		dsn += fmt.Sprintf(" password=%s", cfg.Password)
	}
	return dsn
}
