package schema

import (
	"fmt"
	"io"
	"sort"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// Dump is the exported description of a whole database: a list of schemas,
// each holding its tables and their columns.
type Dump []DumpSchema

// DumpSchema is one schema in a Dump.
type DumpSchema struct {
	Name   string      `json:"name" yaml:"name"`
	Tables []DumpTable `json:"tables" yaml:"tables"`
}

// DumpTable is one table in a DumpSchema.
type DumpTable struct {
	Name    string   `json:"name" yaml:"name"`
	Columns []Column `json:"columns" yaml:"columns"`
}

// Dump file formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// DecodeDump reads a dump in the given format ("json" or "yaml").
func DecodeDump(r io.Reader, format string) (Dump, error) {
	var d Dump
	switch format {
	case FormatJSON, "":
		if err := json.NewDecoder(r).Decode(&d); err != nil {
			return nil, fmt.Errorf("failed to decode json dump: %w", err)
		}
	case FormatYAML, "yml":
		if err := yaml.NewDecoder(r).Decode(&d); err != nil {
			return nil, fmt.Errorf("failed to decode yaml dump: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported dump format %q", format)
	}
	for _, s := range d {
		if s.Name == "" {
			return nil, fmt.Errorf("dump contains a schema without a name")
		}
		for _, t := range s.Tables {
			if t.Name == "" {
				return nil, fmt.Errorf("schema %s contains a table without a name", s.Name)
			}
		}
	}
	return d, nil
}

// EncodeDump writes d as indented JSON.
func EncodeDump(w io.Writer, d Dump) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(d); err != nil {
		return fmt.Errorf("failed to encode dump: %w", err)
	}
	return nil
}

// TableCount returns the number of tables across all schemas.
func (d Dump) TableCount() int {
	n := 0
	for _, s := range d {
		n += len(s.Tables)
	}
	return n
}

// DeriveBackReferences rebuilds every column's PK references as the mirror of
// the FK references found anywhere in the dump: if a.x references b.y, then
// b.y gets a PK reference to a.x. Existing PK references are replaced. FK
// targets that are not part of the dump are left dangling.
func (d Dump) DeriveBackReferences() {
	type colKey struct {
		table  Table
		column string
	}
	incoming := make(map[colKey][]ColumnRef)
	for _, s := range d {
		for _, t := range s.Tables {
			for _, c := range t.Columns {
				for _, fk := range c.FKReferences {
					k := colKey{table: fk.TableRef(), column: fk.Column}
					incoming[k] = append(incoming[k], ColumnRef{Schema: s.Name, Table: t.Name, Column: c.Name})
				}
			}
		}
	}

	for si := range d {
		s := &d[si]
		for ti := range s.Tables {
			t := &s.Tables[ti]
			for ci := range t.Columns {
				c := &t.Columns[ci]
				refs := incoming[colKey{table: Table{Schema: s.Name, Name: t.Name}, column: c.Name}]
				sort.SliceStable(refs, func(i, j int) bool {
					return refs[i].String() < refs[j].String()
				})
				c.PKReferences = refs
			}
		}
	}
}
