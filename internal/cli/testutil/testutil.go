// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
)

// ProjectConfig is the erdview.yaml written by SetupTestProject. Diagrams
// are rendered as DOT source so no Graphviz binary is needed, and nothing is
// cached so every command computes afresh.
const ProjectConfig = `store:
  type: sqlite
  path: .erdview/schema.db
cache:
  type: none
render:
  backend: source
  format: dot
limits:
  max_depth: 3
log:
  level: warn
`

// ProjectDump is a small schema: sales.orders references sales.customers
// and hr.employees, and hr.employees references hr.departments.
const ProjectDump = `[
  {"name": "sales", "tables": [
    {"name": "customers", "columns": [
      {"name": "id", "type": "integer", "null": "NO"}
    ]},
    {"name": "orders", "columns": [
      {"name": "id", "type": "integer", "null": "NO"},
      {"name": "customer_id", "type": "integer", "null": "NO",
       "fk_references": [{"schema": "sales", "table": "customers", "column": "id"}]},
      {"name": "employee_id", "type": "integer", "null": "YES",
       "fk_references": [{"schema": "hr", "table": "employees", "column": "id"}]}
    ]}
  ]},
  {"name": "hr", "tables": [
    {"name": "departments", "columns": [
      {"name": "id", "type": "integer", "null": "NO"}
    ]},
    {"name": "employees", "columns": [
      {"name": "id", "type": "integer", "null": "NO"},
      {"name": "department_id", "type": "integer", "null": "YES",
       "fk_references": [{"schema": "hr", "table": "departments", "column": "id"}]}
    ]}
  ]}
]
`

// SetupTestProject creates a temporary project holding erdview.yaml and
// schema.json. It returns the project directory.
func SetupTestProject(t *testing.T) string {
	t.Helper()

	tmpDir := t.TempDir()
	WriteFile(t, filepath.Join(tmpDir, "erdview.yaml"), ProjectConfig)
	WriteFile(t, filepath.Join(tmpDir, "schema.json"), ProjectDump)
	return tmpDir
}

// WriteFile writes content to path, failing the test on error.
func WriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatalf("failed to create directory for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

// ansiPattern matches ANSI escape codes.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI checks that a string contains no ANSI escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	if ansiPattern.MatchString(s) {
		t.Errorf("string contains ANSI escape codes: %q", s)
	}
}

// AssertContains checks that the string contains the expected substring.
func AssertContains(t *testing.T, s, expected string) {
	t.Helper()
	if !strings.Contains(s, expected) {
		t.Errorf("string %q does not contain expected %q", s, expected)
	}
}

// AssertNotContains checks that the string does not contain the substring.
func AssertNotContains(t *testing.T, s, unexpected string) {
	t.Helper()
	if strings.Contains(s, unexpected) {
		t.Errorf("string %q unexpectedly contains %q", s, unexpected)
	}
}
