package introspect

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/erdview/internal/schema"
	"github.com/leapstack-labs/erdview/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createSQLiteDB(t *testing.T, ddl ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "app.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()
	for _, stmt := range ddl {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}
	return path
}

func TestSQLiteSource(t *testing.T) {
	path := createSQLiteDB(t,
		`CREATE TABLE author (id INTEGER PRIMARY KEY, name TEXT NOT NULL)`,
		`CREATE TABLE book (
			id INTEGER PRIMARY KEY,
			author_id INTEGER REFERENCES author(id),
			editor_id INTEGER REFERENCES author
		)`,
	)

	ctx := context.Background()
	src, err := Open(ctx, Config{Type: "sqlite", Path: path}, testutil.NewTestLogger(t))
	require.NoError(t, err)
	defer func() { _ = src.Close() }()

	d, err := src.Introspect(ctx)
	require.NoError(t, err)
	require.Len(t, d, 1)
	assert.Equal(t, DefaultSQLiteSchema, d[0].Name)
	require.Len(t, d[0].Tables, 2)

	author, book := d[0].Tables[0], d[0].Tables[1]
	assert.Equal(t, "author", author.Name)
	assert.Equal(t, schema.NullNo, author.Columns[1].Null)
	assert.Equal(t, "TEXT", author.Columns[1].Type)

	target := []schema.ColumnRef{{Schema: "main", Table: "author", Column: "id"}}
	assert.Equal(t, "author_id", book.Columns[1].Name)
	assert.Equal(t, target, book.Columns[1].FKReferences)
	assert.Equal(t, target, book.Columns[2].FKReferences, "an implicit reference targets the primary key")
	assert.Len(t, author.Columns[0].PKReferences, 2)
}

func TestSQLiteSource_Errors(t *testing.T) {
	_, err := Open(context.Background(), Config{Type: "sqlite"}, nil)
	assert.ErrorContains(t, err, "needs a path")

	src := NewSQLiteSource(nil)
	_, err = src.Introspect(context.Background())
	assert.Error(t, err)
}

func TestSQLiteSource_SchemaOption(t *testing.T) {
	path := createSQLiteDB(t, `CREATE TABLE t (id INTEGER PRIMARY KEY)`)

	ctx := context.Background()
	src, err := Open(ctx, Config{Type: "sqlite", Path: path, Options: map[string]string{"schema": "legacy"}}, nil)
	require.NoError(t, err)
	defer func() { _ = src.Close() }()

	d, err := src.Introspect(ctx)
	require.NoError(t, err)
	require.Len(t, d, 1)
	assert.Equal(t, "legacy", d[0].Name)
}
