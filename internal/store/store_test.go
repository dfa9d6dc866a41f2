package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/leapstack-labs/erdview/internal/schema"
	"github.com/leapstack-labs/erdview/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixtureDump() schema.Dump {
	return testutil.NewDump().
		FK(testutil.T("orders"), testutil.T("customers")).
		FK(schema.Table{Schema: "billing", Name: "invoices"}, testutil.T("orders")).
		Build()
}

func newSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s := NewSQLiteStore(testutil.NewTestLogger(t))
	require.NoError(t, s.Open(filepath.Join(t.TempDir(), "schema.db")))
	require.NoError(t, s.Migrate())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	s := NewRedisStore(NewRedisClient(RedisConfig{Addr: mr.Addr()}), DefaultRedisKeyPrefix, testutil.NewTestLogger(t))
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func TestSchemaStores(t *testing.T) {
	stores := map[string]func(t *testing.T) SchemaStore{
		"memory": func(_ *testing.T) SchemaStore { return NewMemoryStore() },
		"sqlite": func(t *testing.T) SchemaStore { return newSQLiteStore(t) },
		"redis": func(t *testing.T) SchemaStore {
			s, _ := newRedisStore(t)
			return s
		},
	}

	for name, newStore := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStore(t)

			snap, err := s.Snapshot(ctx)
			require.NoError(t, err)
			assert.Empty(t, snap, "empty store has no snapshot")

			require.NoError(t, s.Replace(ctx, fixtureDump(), Load{ID: "snap-1", Source: "test"}))

			snap, err = s.Snapshot(ctx)
			require.NoError(t, err)
			assert.Equal(t, "snap-1", snap)

			cols, err := s.Columns(ctx, testutil.T("orders"))
			require.NoError(t, err)
			require.Len(t, cols, 2)
			assert.Equal(t, "id", cols[0].Name)
			assert.Equal(t, "customers_id", cols[1].Name)
			assert.Equal(t, []schema.ColumnRef{{Schema: "s", Table: "customers", Column: "id"}}, cols[1].FKReferences)
			assert.Equal(t, []schema.ColumnRef{{Schema: "billing", Table: "invoices", Column: "orders_id"}}, cols[0].PKReferences)

			cols, err = s.Columns(ctx, testutil.T("missing"))
			require.NoError(t, err, "unknown table is not an error")
			assert.Empty(t, cols)

			schemas, err := s.Schemas(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"billing", "s"}, schemas)

			tables, err := s.Tables(ctx, "s")
			require.NoError(t, err)
			assert.Equal(t, []string{"customers", "orders"}, tables)

			// A second load replaces the first one entirely.
			require.NoError(t, s.Replace(ctx, testutil.Chain("A", "B"), Load{ID: "snap-2"}))

			cols, err = s.Columns(ctx, testutil.T("orders"))
			require.NoError(t, err)
			assert.Empty(t, cols)

			schemas, err = s.Schemas(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"s"}, schemas)

			snap, err = s.Snapshot(ctx)
			require.NoError(t, err)
			assert.Equal(t, "snap-2", snap)
		})
	}
}

func TestSQLiteStore_MalformedRecord(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)

	require.NoError(t, s.putRecord(ctx, testutil.T("broken"), `{"not":"a list"}`))

	_, err := s.Columns(ctx, testutil.T("broken"))
	require.Error(t, err)
	assert.ErrorIs(t, err, schema.ErrMalformedColumns)
	assert.Contains(t, err.Error(), "s.broken")
}

func TestSQLiteStore_NotOpened(t *testing.T) {
	s := NewSQLiteStore(nil)
	_, err := s.Columns(context.Background(), testutil.T("a"))
	assert.EqualError(t, err, "database not opened")
	assert.Error(t, s.Migrate())
	assert.NoError(t, s.Close())
}

func TestSQLiteStore_Loads(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)

	first := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.Replace(ctx, testutil.Chain("A"), Load{ID: "one", Source: "a.json", LoadedAt: first}))
	require.NoError(t, s.Replace(ctx, testutil.Chain("A"), Load{ID: "two", Source: "b.json", LoadedAt: first.Add(time.Hour)}))

	loads, err := s.Loads(ctx, 10)
	require.NoError(t, err)
	require.Len(t, loads, 2)
	assert.Equal(t, "two", loads[0].ID)
	assert.Equal(t, "a.json", loads[1].Source)

	version, err := s.MigrationVersion()
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)
}

func TestSQLiteStore_InMemory(t *testing.T) {
	ctx := context.Background()
	s := NewSQLiteStore(nil)
	require.NoError(t, s.Open(":memory:"))
	defer func() { _ = s.Close() }()
	require.NoError(t, s.Migrate())

	require.NoError(t, s.Replace(ctx, testutil.Chain("A", "B"), Load{ID: "mem"}))
	cols, err := s.Columns(ctx, testutil.T("A"))
	require.NoError(t, err)
	assert.Len(t, cols, 2)
}

func TestRedisStore_MalformedRecord(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStore(t)

	mr.HSet(DefaultRedisKeyPrefix+"schema:s", "broken", "[{oops")

	_, err := s.Columns(ctx, testutil.T("broken"))
	require.Error(t, err)
	assert.ErrorIs(t, err, schema.ErrMalformedColumns)
}

func TestRedisStore_UnprefixedLayout(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	s := NewRedisStore(NewRedisClient(RedisConfig{Addr: mr.Addr()}), "", nil)
	defer func() { _ = s.Close() }()

	require.NoError(t, s.Replace(ctx, testutil.Chain("A", "B"), Load{ID: "x"}))
	assert.True(t, mr.Exists("schema:s"))
	assert.True(t, mr.Exists("schemas"))

	got, err := mr.Get("snapshot")
	require.NoError(t, err)
	assert.Equal(t, "x", got)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, Config{Type: TypeMemory})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = Open(ctx, Config{Type: TypeSQLite, Path: filepath.Join(t.TempDir(), "x.db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	require.NoError(t, s.Close())

	mr := miniredis.RunT(t)
	s, err = Open(ctx, Config{Type: TypeRedis, Redis: RedisConfig{Addr: mr.Addr(), KeyPrefix: "t:"}})
	require.NoError(t, err)
	assert.IsType(t, &RedisStore{}, s)
	require.NoError(t, s.Close())

	_, err = Open(ctx, Config{Type: "cassandra"})
	assert.ErrorContains(t, err, "unknown store type")
}

func TestNewRedisClient_SocketFallback(t *testing.T) {
	c := NewRedisClient(RedisConfig{})
	defer func() { _ = c.Close() }()
	assert.Equal(t, "unix", c.Options().Network)
	assert.Equal(t, DefaultRedisSocket, c.Options().Addr)

	c2 := NewRedisClient(RedisConfig{Addr: "localhost:6379", DB: 2})
	defer func() { _ = c2.Close() }()
	assert.Equal(t, "tcp", c2.Options().Network)
	assert.Equal(t, 2, c2.Options().DB)
}
