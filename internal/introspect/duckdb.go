package introspect

import (
	"context"
	"log/slog"

	"github.com/leapstack-labs/erdview/internal/schema"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver
)

func init() {
	Register("duckdb", func(logger *slog.Logger) Source { return NewDuckDBSource(logger) })
}

const duckdbColumnsQuery = `
	SELECT c.table_schema, c.table_name, c.column_name, c.data_type, c.is_nullable
	FROM information_schema.columns c
	JOIN information_schema.tables t
		ON t.table_schema = c.table_schema AND t.table_name = c.table_name
	WHERE t.table_type = 'BASE TABLE'
		AND c.table_schema NOT IN ('information_schema', 'pg_catalog')
	ORDER BY c.table_schema, c.table_name, c.ordinal_position
`

// duckdb_constraints lists the columns of a key as parallel lists; unnesting
// both in one select list zips them. Foreign keys stay within one schema.
const duckdbRefsQuery = `
	SELECT schema_name, table_name, unnest(constraint_column_names),
		schema_name, referenced_table, unnest(referenced_column_names)
	FROM duckdb_constraints()
	WHERE constraint_type = 'FOREIGN KEY'
	ORDER BY schema_name, table_name, constraint_index
`

// DuckDBSource introspects a DuckDB database file.
type DuckDBSource struct {
	BaseSource
}

// NewDuckDBSource creates an unconnected DuckDB source.
func NewDuckDBSource(logger *slog.Logger) *DuckDBSource {
	return &DuckDBSource{BaseSource: BaseSource{Logger: logger}}
}

// Name implements Source.
func (s *DuckDBSource) Name() string { return "duckdb" }

// Connect implements Source. Use ":memory:" or an empty path for an
// in-memory database.
func (s *DuckDBSource) Connect(ctx context.Context, cfg Config) error {
	path := cfg.DSN
	if path == "" {
		path = cfg.Path
	}
	if path == ":memory:" {
		path = ""
	}
	return s.open(ctx, "duckdb", path, cfg)
}

// Introspect implements Source.
func (s *DuckDBSource) Introspect(ctx context.Context) (schema.Dump, error) {
	return s.collect(ctx, duckdbColumnsQuery, duckdbRefsQuery)
}
