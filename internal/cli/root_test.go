package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/leapstack-labs/erdview/internal/cli/commands"
	"github.com/leapstack-labs/erdview/internal/cli/config"
	"github.com/leapstack-labs/erdview/internal/cli/testutil"
	"github.com/leapstack-labs/erdview/internal/explorer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the root command with args and returns what it printed.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	out, errOut := new(bytes.Buffer), new(bytes.Buffer)
	root.SetOut(out)
	root.SetErr(errOut)
	root.SetArgs(args)
	err := root.Execute()
	testutil.AssertNoANSI(t, errOut.String())
	return out.String(), err
}

func setupProject(t *testing.T) string {
	t.Helper()
	config.ResetConfig()
	t.Cleanup(config.ResetConfig)
	dir := testutil.SetupTestProject(t)
	t.Chdir(dir)
	return dir
}

func TestRootCommand(t *testing.T) {
	root := NewRootCmd()
	assert.Equal(t, "erdview", root.Use)
	assert.True(t, root.SilenceUsage)

	names := make(map[string]bool)
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "load", "introspect", "related", "route", "render-schema", "schemas", "tables", "loads", "cache", "doctor", "version", "completion"} {
		assert.True(t, names[want], "missing command %q", want)
	}
	for _, flag := range []string{"config", "store", "cache", "format", "max-depth", "log-level"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(flag), "flag %q should exist", flag)
	}
}

func TestLoadAndExplore(t *testing.T) {
	dir := setupProject(t)

	out, err := execute(t, "load", "schema.json")
	require.NoError(t, err)
	assert.Contains(t, out, "Loaded 4 tables in 2 schemas from schema.json")

	out, err = execute(t, "schemas")
	require.NoError(t, err)
	assert.Equal(t, "hr\nsales\n", out)

	out, err = execute(t, "tables", "hr", "--plain")
	require.NoError(t, err)
	assert.Equal(t, "departments\nemployees\n", out)

	out, err = execute(t, "tables", "sales")
	require.NoError(t, err)
	assert.Contains(t, out, "orders")
	assert.Contains(t, out, "2 TABLES")

	out, err = execute(t, "related", "sales.orders")
	require.NoError(t, err)
	assert.Contains(t, out, `"sales.customers" [label=`)
	assert.Contains(t, out, `"hr.employees" [label=`)
	assert.NotContains(t, out, `"hr.departments" [label=`)

	out, err = execute(t, "related", "sales.orders", "--depth", "2", "--exclude", "sales.customers")
	require.NoError(t, err)
	assert.Contains(t, out, `"hr.departments" [label=`)
	assert.NotContains(t, out, `"sales.customers" [label=`)

	out, err = execute(t, "route", "sales.customers", "hr.departments", "--list")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "1. "), out)
	assert.Contains(t, out, "hr.employees:department_id -> hr.departments:id")

	out, err = execute(t, "route", "sales.customers", "hr.departments", "--exclude", "hr.employees", "--list")
	require.NoError(t, err)
	assert.Equal(t, "No route from sales.customers to hr.departments\n", out)

	target := filepath.Join(dir, "hr.dot")
	_, err = execute(t, "render-schema", "hr", "-o", target)
	require.NoError(t, err)
	written, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(written), `digraph "hr" {`)

	out, err = execute(t, "loads")
	require.NoError(t, err)
	assert.Contains(t, out, "schema.json")
}

func TestCommandErrors(t *testing.T) {
	setupProject(t)
	_, err := execute(t, "load", "schema.json")
	require.NoError(t, err)

	_, err = execute(t, "related", "orders")
	assert.Error(t, err, "table needs a schema")

	_, err = execute(t, "related", "sales.orders", "--depth", "4")
	assert.ErrorIs(t, err, explorer.ErrInvalidRequest, "max_depth is 3 in the project config")

	_, err = execute(t, "tables", "nope")
	assert.Error(t, err)

	_, err = execute(t, "--format", "gif", "schemas")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "render.format")

	_, err = execute(t, "load", "--refs", "refs.csv", "schema.json")
	assert.Error(t, err)

	_, err = execute(t, "introspect")
	assert.Error(t, err)
}

func TestLoadCSV(t *testing.T) {
	dir := setupProject(t)
	testutil.WriteFile(t, filepath.Join(dir, "columns.csv"),
		"TABLE_SCHEMA;TABLE_NAME;COLUMN_NAME;DATA_TYPE;IS_NULLABLE\n"+
			"app;users;id;integer;NO\n"+
			"app;posts;id;integer;NO\n"+
			"app;posts;user_id;integer;YES\n")
	testutil.WriteFile(t, filepath.Join(dir, "refs.csv"),
		"FK schema;FK table;FK column;Referenced schema;Referenced table;Referenced column\n"+
			"app;posts;user_id;app;users;id\n")

	out, err := execute(t, "load", "--csv", "columns.csv", "--refs", "refs.csv")
	require.NoError(t, err)
	assert.Contains(t, out, "Loaded 2 tables in 1 schemas")

	out, err = execute(t, "route", "app.users", "app.posts", "--list")
	require.NoError(t, err)
	assert.Contains(t, out, "app.users:id -> app.posts:user_id")
}

func TestDoctor(t *testing.T) {
	setupProject(t)

	out, err := execute(t, "doctor")
	require.NoError(t, err, "an empty store is only a warning")
	assert.Contains(t, out, "nothing loaded")
	assert.Contains(t, out, "schema version 1")
	assert.Contains(t, out, "source (DOT only)")

	_, err = execute(t, "load", "schema.json")
	require.NoError(t, err)

	out, err = execute(t, "doctor", "--json")
	require.NoError(t, err)
	var checks []commands.HealthCheck
	require.NoError(t, json.Unmarshal([]byte(out), &checks))
	byName := make(map[string]commands.HealthCheck, len(checks))
	for _, c := range checks {
		byName[c.Name] = c
	}
	assert.Equal(t, commands.StatusOK, byName["snapshot"].Status)
	assert.Equal(t, "2 schemas", byName["schemas"].Detail)
	assert.Equal(t, "none", byName["cache"].Detail)

	out, err = execute(t, "--backend", "graphviz", "--store", "memory", "doctor", "--json")
	checks = nil
	require.NoError(t, json.Unmarshal([]byte(out), &checks))
	for _, c := range checks {
		if c.Name == "renderer" && c.Status == commands.StatusFail {
			assert.Error(t, err, "a missing graphviz binary fails the check")
		}
	}
}

func TestCachePurge(t *testing.T) {
	setupProject(t)

	out, err := execute(t, "cache", "purge")
	require.NoError(t, err)
	assert.Equal(t, "Purged none cache\n", out)

	out, err = execute(t, "--cache", "memory", "cache", "purge")
	require.NoError(t, err)
	assert.Equal(t, "Purged memory cache\n", out)
}

func TestVersionAndCompletion(t *testing.T) {
	setupProject(t)

	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "erdview v"+Version)

	out, err = execute(t, "completion", "bash")
	require.NoError(t, err)
	assert.Contains(t, out, "erdview")
}
