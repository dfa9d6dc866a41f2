// Package introspect reads table, column and foreign key metadata out of a
// live database and turns it into a schema.Dump that the loader can store.
//
// Each database type is a Source registered under its name:
//
//	src, err := introspect.Open(ctx, introspect.Config{Type: "postgres", DSN: dsn}, logger)
//	if err != nil {
//		return err
//	}
//	defer src.Close()
//	dump, err := src.Introspect(ctx)
package introspect

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strings"

	"github.com/leapstack-labs/erdview/internal/schema"
)

// Config holds the connection settings of a Source.
type Config struct {
	// Type is the registered source name, e.g. "postgres".
	Type string `koanf:"type"`

	// DSN is passed to the driver as is. When set, the host fields are ignored.
	DSN string `koanf:"dsn"`

	// Path is the database file for sqlite and duckdb.
	Path string `koanf:"path"`

	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Database string `koanf:"database"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`

	// Schemas restricts introspection to the named schemas. Empty means all
	// user schemas.
	Schemas []string `koanf:"schemas"`

	// Options contains additional driver-specific options.
	Options map[string]string `koanf:"options"`
}

// Source introspects one database.
type Source interface {
	// Connect opens the database described by cfg.
	Connect(ctx context.Context, cfg Config) error

	// Close releases the connection.
	Close() error

	// Introspect returns every table of the selected schemas with its
	// columns and references. PK back-references are derived from the FKs.
	Introspect(ctx context.Context) (schema.Dump, error)

	// Name returns the registered name.
	Name() string
}

// Open creates the source registered for cfg.Type and connects it.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (Source, error) {
	src, err := NewSource(cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := src.Connect(ctx, cfg); err != nil {
		return nil, err
	}
	return src, nil
}

// BaseSource provides the database/sql plumbing shared by the sources that
// can describe their catalog with two queries.
type BaseSource struct {
	DB      *sql.DB
	Schemas []string
	Logger  *slog.Logger
}

func (b *BaseSource) open(ctx context.Context, driver, dsn string, cfg Config) error {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return fmt.Errorf("failed to open %s connection: %w", driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping %s: %w", driver, err)
	}
	b.DB = db
	b.Schemas = cfg.Schemas
	return nil
}

// Close closes the database connection.
func (b *BaseSource) Close() error {
	if b.DB != nil {
		if b.Logger != nil {
			b.Logger.Debug("closing database connection")
		}
		return b.DB.Close()
	}
	return nil
}

// collect runs columnsQuery, whose rows are (schema, table, column, type,
// nullable), and refsQuery, whose rows are (schema, table, column,
// referenced schema, referenced table, referenced column).
func (b *BaseSource) collect(ctx context.Context, columnsQuery, refsQuery string) (schema.Dump, error) {
	if b.DB == nil {
		return nil, fmt.Errorf("database connection not established")
	}
	bld := newBuilder(b.Schemas)

	rows, err := b.DB.QueryContext(ctx, columnsQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query columns: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var t schema.Table
		var c schema.Column
		var nullable string
		if err := rows.Scan(&t.Schema, &t.Name, &c.Name, &c.Type, &nullable); err != nil {
			return nil, fmt.Errorf("failed to scan column: %w", err)
		}
		c.Null = nullFlag(nullable)
		bld.column(t, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating columns: %w", err)
	}

	refs, err := b.DB.QueryContext(ctx, refsQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query foreign keys: %w", err)
	}
	defer func() { _ = refs.Close() }()
	for refs.Next() {
		var from, to schema.ColumnRef
		if err := refs.Scan(&from.Schema, &from.Table, &from.Column, &to.Schema, &to.Table, &to.Column); err != nil {
			return nil, fmt.Errorf("failed to scan foreign key: %w", err)
		}
		bld.reference(from, to)
	}
	if err := refs.Err(); err != nil {
		return nil, fmt.Errorf("error iterating foreign keys: %w", err)
	}

	d := bld.dump()
	if b.Logger != nil {
		b.Logger.Debug("introspected database", "schemas", len(d), "tables", d.TableCount())
	}
	return d, nil
}

// nullFlag maps the catalog spellings of nullability onto "YES"/"NO".
func nullFlag(v string) schema.Nullability {
	switch strings.ToUpper(strings.TrimSpace(v)) {
	case "YES", "Y", "TRUE", "1":
		return schema.NullYes
	default:
		return schema.NullNo
	}
}

// builder accumulates catalog rows into a dump.
type builder struct {
	include map[string]bool
	tables  map[schema.Table][]schema.Column
	index   map[schema.ColumnRef]int
}

func newBuilder(schemas []string) *builder {
	b := &builder{
		tables: make(map[schema.Table][]schema.Column),
		index:  make(map[schema.ColumnRef]int),
	}
	if len(schemas) > 0 {
		b.include = make(map[string]bool, len(schemas))
		for _, s := range schemas {
			b.include[s] = true
		}
	}
	return b
}

func (b *builder) wanted(schemaName string) bool {
	return b.include == nil || b.include[schemaName]
}

// column appends c to t. Columns must arrive in ordinal order.
func (b *builder) column(t schema.Table, c schema.Column) {
	if !b.wanted(t.Schema) {
		return
	}
	b.index[schema.ColumnRef{Schema: t.Schema, Table: t.Name, Column: c.Name}] = len(b.tables[t])
	b.tables[t] = append(b.tables[t], c)
}

// reference records the FK from -> to. References out of filtered tables are
// dropped. The target may lie outside the selected schemas.
func (b *builder) reference(from, to schema.ColumnRef) {
	i, ok := b.index[from]
	if !ok {
		return
	}
	cols := b.tables[from.TableRef()]
	if slices.Contains(cols[i].FKReferences, to) {
		return
	}
	cols[i].FKReferences = append(cols[i].FKReferences, to)
}

func (b *builder) dump() schema.Dump {
	bySchema := make(map[string][]schema.DumpTable)
	for t, cols := range b.tables {
		bySchema[t.Schema] = append(bySchema[t.Schema], schema.DumpTable{Name: t.Name, Columns: cols})
	}
	names := make([]string, 0, len(bySchema))
	for name := range bySchema {
		names = append(names, name)
	}
	sort.Strings(names)

	d := make(schema.Dump, 0, len(names))
	for _, name := range names {
		tables := bySchema[name]
		sort.Slice(tables, func(i, j int) bool { return tables[i].Name < tables[j].Name })
		d = append(d, schema.DumpSchema{Name: name, Tables: tables})
	}
	d.DeriveBackReferences()
	return d
}
