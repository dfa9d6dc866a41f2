//go:build integration

package introspect

import (
	"context"
	"testing"

	"github.com/leapstack-labs/erdview/internal/schema"
	"github.com/leapstack-labs/erdview/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

func TestPostgresSource_Integration(t *testing.T) {
	ctx := context.Background()
	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("erd"),
		postgres.WithUsername("erd"),
		postgres.WithPassword("erd"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	src, err := Open(ctx, Config{Type: "postgres", DSN: dsn}, testutil.NewTestLogger(t))
	require.NoError(t, err)
	defer func() { _ = src.Close() }()

	ps := src.(*PostgresSource)
	for _, stmt := range []string{
		`CREATE SCHEMA crm`,
		`CREATE TABLE crm.account (id int, region text, PRIMARY KEY (id, region))`,
		`CREATE TABLE crm.contact (
			id serial PRIMARY KEY,
			account_id int NOT NULL,
			account_region text NOT NULL,
			FOREIGN KEY (account_id, account_region) REFERENCES crm.account (id, region)
		)`,
	} {
		_, err := ps.DB.ExecContext(ctx, stmt)
		require.NoError(t, err)
	}
	ps.Schemas = []string{"crm"}

	d, err := src.Introspect(ctx)
	require.NoError(t, err)
	require.Len(t, d, 1)
	require.Len(t, d[0].Tables, 2)

	contact := d[0].Tables[1]
	assert.Equal(t, "contact", contact.Name)
	assert.Equal(t, []schema.ColumnRef{{Schema: "crm", Table: "account", Column: "id"}}, contact.Columns[1].FKReferences)
	assert.Equal(t, []schema.ColumnRef{{Schema: "crm", Table: "account", Column: "region"}}, contact.Columns[2].FKReferences,
		"composite keys map column to column")
}
