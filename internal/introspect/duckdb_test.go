package introspect

import (
	"context"
	"testing"

	"github.com/leapstack-labs/erdview/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDuckDBSource(t *testing.T) {
	ctx := context.Background()
	src := NewDuckDBSource(nil)
	require.NoError(t, src.Connect(ctx, Config{Path: ":memory:"}))
	defer func() { _ = src.Close() }()

	for _, stmt := range []string{
		`CREATE SCHEMA sales`,
		`CREATE TABLE sales.region (id INTEGER PRIMARY KEY, name VARCHAR NOT NULL)`,
		`CREATE TABLE sales.store (id INTEGER PRIMARY KEY, region_id INTEGER REFERENCES sales.region(id))`,
	} {
		_, err := src.DB.ExecContext(ctx, stmt)
		require.NoError(t, err)
	}

	d, err := src.Introspect(ctx)
	require.NoError(t, err)

	var sales *schema.DumpSchema
	for i := range d {
		if d[i].Name == "sales" {
			sales = &d[i]
		}
	}
	require.NotNil(t, sales)
	require.Len(t, sales.Tables, 2)

	region, store := sales.Tables[0], sales.Tables[1]
	assert.Equal(t, "region", region.Name)
	assert.Equal(t, schema.NullNo, region.Columns[1].Null)
	assert.Equal(t, schema.NullYes, store.Columns[1].Null)
	assert.Equal(t,
		[]schema.ColumnRef{{Schema: "sales", Table: "region", Column: "id"}},
		store.Columns[1].FKReferences)
}
