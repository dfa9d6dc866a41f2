package introspect

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"

	"github.com/leapstack-labs/erdview/internal/schema"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

func init() {
	Register("sqlite", func(logger *slog.Logger) Source { return NewSQLiteSource(logger) })
}

// DefaultSQLiteSchema is the schema name reported for a sqlite database.
const DefaultSQLiteSchema = "main"

// SQLiteSource introspects a sqlite database file through its PRAGMA table
// functions.
type SQLiteSource struct {
	BaseSource
	schemaName string
}

// NewSQLiteSource creates an unconnected sqlite source.
func NewSQLiteSource(logger *slog.Logger) *SQLiteSource {
	return &SQLiteSource{BaseSource: BaseSource{Logger: logger}, schemaName: DefaultSQLiteSchema}
}

// Name implements Source.
func (s *SQLiteSource) Name() string { return "sqlite" }

// Connect implements Source. The schema name may be overridden with the
// "schema" option.
func (s *SQLiteSource) Connect(ctx context.Context, cfg Config) error {
	dsn := cfg.DSN
	if dsn == "" {
		if cfg.Path == "" {
			return fmt.Errorf("sqlite source needs a path")
		}
		dsn = fmt.Sprintf("file:%s?mode=ro", cfg.Path)
	}
	if name := cfg.Options["schema"]; name != "" {
		s.schemaName = name
	}
	return s.open(ctx, "sqlite", dsn, cfg)
}

type sqliteFK struct {
	from  schema.ColumnRef
	table string
	to    sql.NullString
	seq   int
}

// Introspect implements Source.
func (s *SQLiteSource) Introspect(ctx context.Context) (schema.Dump, error) {
	if s.DB == nil {
		return nil, fmt.Errorf("database connection not established")
	}

	names, err := s.tableNames(ctx)
	if err != nil {
		return nil, err
	}

	bld := newBuilder(s.Schemas)
	keys := make(map[string][]string)
	var fks []sqliteFK
	for _, name := range names {
		t := schema.Table{Schema: s.schemaName, Name: name}
		pk, err := s.columns(ctx, bld, t)
		if err != nil {
			return nil, err
		}
		keys[name] = pk

		more, err := s.foreignKeys(ctx, t)
		if err != nil {
			return nil, err
		}
		fks = append(fks, more...)
	}

	for _, fk := range fks {
		to := schema.ColumnRef{Schema: s.schemaName, Table: fk.table, Column: fk.to.String}
		if !fk.to.Valid {
			// REFERENCES t without a column list targets the primary key.
			pk := keys[fk.table]
			if fk.seq >= len(pk) {
				continue
			}
			to.Column = pk[fk.seq]
		}
		bld.reference(fk.from, to)
	}

	return bld.dump(), nil
}

func (s *SQLiteSource) tableNames(ctx context.Context) ([]string, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT name FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// columns adds the columns of t to bld and returns its primary key columns
// in key order.
func (s *SQLiteSource) columns(ctx context.Context, bld *builder, t schema.Table) ([]string, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT name, type, "notnull", pk FROM pragma_table_info(?) ORDER BY cid`, t.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to query columns of %s: %w", t, err)
	}
	defer func() { _ = rows.Close() }()

	type keyCol struct {
		name string
		pos  int
	}
	var pk []keyCol
	for rows.Next() {
		var c schema.Column
		var notNull, pos int
		if err := rows.Scan(&c.Name, &c.Type, &notNull, &pos); err != nil {
			return nil, fmt.Errorf("failed to scan column of %s: %w", t, err)
		}
		c.Null = schema.NullYes
		if notNull != 0 {
			c.Null = schema.NullNo
		}
		bld.column(t, c)
		if pos > 0 {
			pk = append(pk, keyCol{name: c.Name, pos: pos})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating columns of %s: %w", t, err)
	}

	sort.Slice(pk, func(i, j int) bool { return pk[i].pos < pk[j].pos })
	names := make([]string, len(pk))
	for i, k := range pk {
		names[i] = k.name
	}
	return names, nil
}

func (s *SQLiteSource) foreignKeys(ctx context.Context, t schema.Table) ([]sqliteFK, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT "table", "from", "to", seq FROM pragma_foreign_key_list(?) ORDER BY id, seq`, t.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to query foreign keys of %s: %w", t, err)
	}
	defer func() { _ = rows.Close() }()

	var out []sqliteFK
	for rows.Next() {
		fk := sqliteFK{from: schema.ColumnRef{Schema: t.Schema, Table: t.Name}}
		if err := rows.Scan(&fk.table, &fk.from.Column, &fk.to, &fk.seq); err != nil {
			return nil, fmt.Errorf("failed to scan foreign key of %s: %w", t, err)
		}
		out = append(out, fk)
	}
	return out, rows.Err()
}
