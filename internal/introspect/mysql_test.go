package introspect

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMySQLDSN(t *testing.T) {
	dsn := buildMySQLDSN(Config{
		Host:     "db.example.com",
		Port:     3307,
		Database: "shop",
		Username: "reader",
		Password: "secret",
		Options:  map[string]string{"autocommit": "true"},
	})
	mc, err := mysql.ParseDSN(dsn)
	require.NoError(t, err)
	assert.Equal(t, "reader", mc.User)
	assert.Equal(t, "secret", mc.Passwd)
	assert.Equal(t, "tcp", mc.Net)
	assert.Equal(t, "db.example.com:3307", mc.Addr)
	assert.Equal(t, "shop", mc.DBName)
	assert.Equal(t, "true", mc.Params["autocommit"])

	mc, err = mysql.ParseDSN(buildMySQLDSN(Config{Database: "shop"}))
	require.NoError(t, err)
	assert.Equal(t, "localhost:3306", mc.Addr)
}

func TestMySQLSource_Introspect(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery("FROM information_schema.COLUMNS").WillReturnRows(
		sqlmock.NewRows([]string{"TABLE_SCHEMA", "TABLE_NAME", "COLUMN_NAME", "DATA_TYPE", "IS_NULLABLE"}).
			AddRow("shop", "orders", "id", "int", "NO").
			AddRow("shop", "orders", "product_id", "int", "YES").
			AddRow("shop", "products", "id", "int", "NO").
			AddRow("stock", "levels", "product_id", "int", "NO"))
	mock.ExpectQuery("FROM information_schema.KEY_COLUMN_USAGE").WillReturnRows(
		sqlmock.NewRows([]string{"TABLE_SCHEMA", "TABLE_NAME", "COLUMN_NAME", "REFERENCED_TABLE_SCHEMA", "REFERENCED_TABLE_NAME", "REFERENCED_COLUMN_NAME"}).
			AddRow("shop", "orders", "product_id", "shop", "products", "id").
			AddRow("stock", "levels", "product_id", "shop", "products", "id"))

	src := NewMySQLSource(nil)
	src.DB = db
	src.Schemas = []string{"shop"}

	d, err := src.Introspect(context.Background())
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	require.Len(t, d, 1, "stock is filtered out")
	products := d[0].Tables[1]
	assert.Equal(t, "products", products.Name)
	require.Len(t, products.Columns[0].PKReferences, 1, "references from filtered schemas are dropped")
	assert.Equal(t, "orders", products.Columns[0].PKReferences[0].Table)
}
