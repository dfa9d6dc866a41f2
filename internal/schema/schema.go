// Package schema defines the table, column and reference types shared by the
// store, graph and render packages, together with the codecs for stored
// column records and schema dump files.
package schema

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/goccy/go-json"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// ErrMalformedColumns is returned when a stored column record cannot be decoded.
var ErrMalformedColumns = errors.New("malformed column record")

// Table identifies a table by schema and name. It is comparable and is used
// directly as a map key.
type Table struct {
	Schema string `json:"schema" validate:"required"`
	Name   string `json:"table" validate:"required"`
}

// String returns the dotted "schema.table" form.
func (t Table) String() string {
	return t.Schema + "." + t.Name
}

// IsZero reports whether t has neither schema nor name.
func (t Table) IsZero() bool {
	return t.Schema == "" && t.Name == ""
}

// Less orders tables by schema, then name.
func (t Table) Less(other Table) bool {
	if t.Schema != other.Schema {
		return t.Schema < other.Schema
	}
	return t.Name < other.Name
}

// ParseTable parses "schema.table". The first dot separates the schema, so
// table names may themselves contain dots.
func ParseTable(s string) (Table, error) {
	s = strings.TrimSpace(s)
	schemaName, tableName, ok := strings.Cut(s, ".")
	if !ok || schemaName == "" || tableName == "" {
		return Table{}, fmt.Errorf("invalid table %q: expected schema.table", s)
	}
	return Table{Schema: schemaName, Name: tableName}, nil
}

// ParseTableList parses a comma separated list of "schema.table" entries.
// Empty entries are skipped.
func ParseTableList(s string) ([]Table, error) {
	var tables []Table
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		t, err := ParseTable(part)
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return tables, nil
}

// ColumnRef points at a column of another (or the same) table.
type ColumnRef struct {
	Schema string `json:"schema" yaml:"schema"`
	Table  string `json:"table" yaml:"table"`
	Column string `json:"column" yaml:"column"`
}

// TableRef returns the table part of the reference.
func (r ColumnRef) TableRef() Table {
	return Table{Schema: r.Schema, Name: r.Table}
}

// String returns "schema.table:column", the port notation used in diagrams.
func (r ColumnRef) String() string {
	return r.Schema + "." + r.Table + ":" + r.Column
}

// Column is a single column of a table with its outgoing (FK) and incoming
// (PK) references.
type Column struct {
	Name         string      `json:"name" yaml:"name"`
	Type         string      `json:"type" yaml:"type"`
	Null         Nullability `json:"null" yaml:"null"`
	FKReferences []ColumnRef `json:"fk_references,omitempty" yaml:"fk_references,omitempty"`
	PKReferences []ColumnRef `json:"pk_references,omitempty" yaml:"pk_references,omitempty"`
}

// Nullability is a column's declared nullability, normally "YES" or "NO".
// Dumps may also spell it as a boolean.
type Nullability string

// Nullability values.
const (
	NullYes Nullability = "YES"
	NullNo  Nullability = "NO"
)

func nullabilityOf(b bool) Nullability {
	if b {
		return NullYes
	}
	return NullNo
}

// UnmarshalJSON accepts a string, a boolean or null.
func (n *Nullability) UnmarshalJSON(data []byte) error {
	switch string(bytes.TrimSpace(data)) {
	case "true":
		*n = NullYes
		return nil
	case "false":
		*n = NullNo
		return nil
	case "null":
		*n = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("null must be a string or a boolean: %w", err)
	}
	*n = Nullability(s)
	return nil
}

// UnmarshalYAML accepts a string or a boolean scalar.
func (n *Nullability) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: null must be a string or a boolean", value.Line)
	}
	if value.ShortTag() == "!!bool" {
		var b bool
		if err := value.Decode(&b); err != nil {
			return err
		}
		*n = nullabilityOf(b)
		return nil
	}
	if value.ShortTag() == "!!null" {
		*n = ""
		return nil
	}
	*n = Nullability(value.Value)
	return nil
}

// TableSet is a set of tables.
type TableSet map[Table]struct{}

// NewTableSet returns a set holding the given tables.
func NewTableSet(tables ...Table) TableSet {
	s := make(TableSet, len(tables))
	for _, t := range tables {
		s[t] = struct{}{}
	}
	return s
}

// Add inserts t.
func (s TableSet) Add(t Table) {
	s[t] = struct{}{}
}

// Has reports whether t is in the set. A nil set contains nothing.
func (s TableSet) Has(t Table) bool {
	_, ok := s[t]
	return ok
}

// Sorted returns the members ordered by schema, then name.
func (s TableSet) Sorted() []Table {
	out := make([]Table, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// Clone returns a shallow copy.
func (s TableSet) Clone() TableSet {
	out := make(TableSet, len(s))
	for t := range s {
		out[t] = struct{}{}
	}
	return out
}

// SortFold returns a copy of names ordered case-insensitively, the order in
// which schemas and tables are listed to users.
func SortFold(names []string) []string {
	out := make([]string, len(names))
	copy(out, names)
	collate.New(language.Und, collate.IgnoreCase).SortStrings(out)
	return out
}
