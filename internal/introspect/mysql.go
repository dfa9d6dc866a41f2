package introspect

import (
	"context"
	"log/slog"
	"net"
	"strconv"

	"github.com/go-sql-driver/mysql"
	"github.com/leapstack-labs/erdview/internal/schema"
)

func init() {
	Register("mysql", func(logger *slog.Logger) Source { return NewMySQLSource(logger) })
}

const mysqlColumnsQuery = `
	SELECT c.TABLE_SCHEMA, c.TABLE_NAME, c.COLUMN_NAME, c.DATA_TYPE, c.IS_NULLABLE
	FROM information_schema.COLUMNS c
	JOIN information_schema.TABLES t
		ON t.TABLE_SCHEMA = c.TABLE_SCHEMA AND t.TABLE_NAME = c.TABLE_NAME
	WHERE t.TABLE_TYPE = 'BASE TABLE'
		AND c.TABLE_SCHEMA NOT IN ('mysql', 'information_schema', 'performance_schema', 'sys')
	ORDER BY c.TABLE_SCHEMA, c.TABLE_NAME, c.ORDINAL_POSITION
`

const mysqlRefsQuery = `
	SELECT TABLE_SCHEMA, TABLE_NAME, COLUMN_NAME,
		REFERENCED_TABLE_SCHEMA, REFERENCED_TABLE_NAME, REFERENCED_COLUMN_NAME
	FROM information_schema.KEY_COLUMN_USAGE
	WHERE REFERENCED_TABLE_NAME IS NOT NULL
	ORDER BY TABLE_SCHEMA, TABLE_NAME, CONSTRAINT_NAME, ORDINAL_POSITION
`

// MySQLSource introspects MySQL and MariaDB. A MySQL database is reported
// as a schema.
type MySQLSource struct {
	BaseSource
}

// NewMySQLSource creates an unconnected MySQL source.
func NewMySQLSource(logger *slog.Logger) *MySQLSource {
	return &MySQLSource{BaseSource: BaseSource{Logger: logger}}
}

// Name implements Source.
func (s *MySQLSource) Name() string { return "mysql" }

// Connect implements Source.
func (s *MySQLSource) Connect(ctx context.Context, cfg Config) error {
	dsn := cfg.DSN
	if dsn == "" {
		dsn = buildMySQLDSN(cfg)
	}
	return s.open(ctx, "mysql", dsn, cfg)
}

// Introspect implements Source.
func (s *MySQLSource) Introspect(ctx context.Context) (schema.Dump, error) {
	return s.collect(ctx, mysqlColumnsQuery, mysqlRefsQuery)
}

func buildMySQLDSN(cfg Config) string {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	port := cfg.Port
	if port == 0 {
		port = 3306
	}

	mc := mysql.NewConfig()
	mc.User = cfg.Username
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(host, strconv.Itoa(port))
	mc.DBName = cfg.Database
	if len(cfg.Options) > 0 {
		mc.Params = make(map[string]string, len(cfg.Options))
		for k, v := range cfg.Options {
			mc.Params[k] = v
		}
	}
	return mc.FormatDSN()
}
