package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/leapstack-labs/erdview/internal/schema"
	_ "modernc.org/sqlite" // sqlite driver
)

// SQLiteStore keeps one row per table, holding the encoded column record.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite schema store instance.
func NewSQLiteStore(logger *slog.Logger) *SQLiteStore {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SQLiteStore{logger: logger}
}

// Open opens a connection to the SQLite database.
// Use ":memory:" for an in-memory database.
func (s *SQLiteStore) Open(path string) error {
	if path == "" {
		path = ":memory:"
	}

	dsn := path
	if path != ":memory:" {
		dsn = fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// Every connection to ":memory:" is a separate database.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	s.db = db
	s.path = path
	s.logger.Debug("opened schema store", "path", path)
	return nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Path returns the database path passed to Open.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Columns implements Store.
func (s *SQLiteStore) Columns(ctx context.Context, t schema.Table) ([]schema.Column, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	var record string
	err := s.db.QueryRowContext(ctx,
		`SELECT columns FROM schema_tables WHERE schema_name = ? AND table_name = ?`,
		t.Schema, t.Name,
	).Scan(&record)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get columns of %s: %w", t, err)
	}

	columns, err := schema.DecodeColumns([]byte(record))
	if err != nil {
		return nil, fmt.Errorf("table %s: %w", t, err)
	}
	return columns, nil
}

// Schemas implements Catalog.
func (s *SQLiteStore) Schemas(ctx context.Context) ([]string, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}
	return s.queryStrings(ctx, `SELECT DISTINCT schema_name FROM schema_tables ORDER BY schema_name`)
}

// Tables implements Catalog.
func (s *SQLiteStore) Tables(ctx context.Context, schemaName string) ([]string, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}
	return s.queryStrings(ctx,
		`SELECT table_name FROM schema_tables WHERE schema_name = ? ORDER BY table_name`, schemaName)
}

func (s *SQLiteStore) queryStrings(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query catalog: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan catalog row: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Snapshot implements Versioned.
func (s *SQLiteStore) Snapshot(ctx context.Context) (string, error) {
	if s.db == nil {
		return "", fmt.Errorf("database not opened")
	}

	var id string
	err := s.db.QueryRowContext(ctx, `SELECT id FROM loads ORDER BY rowid DESC LIMIT 1`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get snapshot: %w", err)
	}
	return id, nil
}

// Loads returns the most recent loads, newest first.
func (s *SQLiteStore) Loads(ctx context.Context, limit int) ([]Load, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source, loaded_at FROM loads ORDER BY rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list loads: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var loads []Load
	for rows.Next() {
		var l Load
		if err := rows.Scan(&l.ID, &l.Source, &l.LoadedAt); err != nil {
			return nil, fmt.Errorf("failed to scan load: %w", err)
		}
		loads = append(loads, l)
	}
	return loads, rows.Err()
}

// Replace implements Writer. The previous content is removed and the dump
// written in a single transaction.
func (s *SQLiteStore) Replace(ctx context.Context, d schema.Dump, load Load) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}
	if load.LoadedAt.IsZero() {
		load.LoadedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM schema_tables`); err != nil {
		return fmt.Errorf("failed to clear schema tables: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO schema_tables (schema_name, table_name, columns) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, sc := range d {
		for _, t := range sc.Tables {
			record, err := schema.EncodeColumns(t.Columns)
			if err != nil {
				return fmt.Errorf("table %s.%s: %w", sc.Name, t.Name, err)
			}
			if _, err := stmt.ExecContext(ctx, sc.Name, t.Name, string(record)); err != nil {
				return fmt.Errorf("failed to insert table %s.%s: %w", sc.Name, t.Name, err)
			}
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO loads (id, source, table_count, loaded_at) VALUES (?, ?, ?, ?)`,
		load.ID, load.Source, d.TableCount(), load.LoadedAt,
	); err != nil {
		return fmt.Errorf("failed to record load: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit load: %w", err)
	}

	s.logger.Info("schema loaded", "snapshot", load.ID, "tables", d.TableCount(), "source", load.Source)
	return nil
}

// putRecord writes a raw column record. It exists for tests that need to
// store records the codec would never produce.
func (s *SQLiteStore) putRecord(ctx context.Context, t schema.Table, record string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO schema_tables (schema_name, table_name, columns) VALUES (?, ?, ?)`,
		t.Schema, t.Name, record)
	return err
}
