package testutil

import (
	"github.com/leapstack-labs/erdview/internal/schema"
)

// DumpBuilder assembles small schema dumps for tests.
type DumpBuilder struct {
	order  []schema.Table
	tables map[schema.Table][]schema.Column
}

// NewDump returns an empty builder.
func NewDump() *DumpBuilder {
	return &DumpBuilder{tables: make(map[schema.Table][]schema.Column)}
}

// Table declares a table with an "id" column. Declaring it twice is a no-op.
func (b *DumpBuilder) Table(schemaName, name string) *DumpBuilder {
	t := schema.Table{Schema: schemaName, Name: name}
	if _, ok := b.tables[t]; ok {
		return b
	}
	b.order = append(b.order, t)
	b.tables[t] = []schema.Column{{Name: "id", Type: "integer", Null: "NO"}}
	return b
}

// FK adds a column "<to.Name>_id" on from that references to.id. Both
// tables are declared if needed.
func (b *DumpBuilder) FK(from, to schema.Table) *DumpBuilder {
	b.Table(from.Schema, from.Name)
	b.Table(to.Schema, to.Name)
	b.tables[from] = append(b.tables[from], schema.Column{
		Name: to.Name + "_id",
		Type: "integer",
		Null: "YES",
		FKReferences: []schema.ColumnRef{
			{Schema: to.Schema, Table: to.Name, Column: "id"},
		},
	})
	return b
}

// Dangling adds an FK from "from" to a table that is not part of the dump.
func (b *DumpBuilder) Dangling(from, to schema.Table) *DumpBuilder {
	b.Table(from.Schema, from.Name)
	b.tables[from] = append(b.tables[from], schema.Column{
		Name:         to.Name + "_ref",
		Type:         "integer",
		Null:         "YES",
		FKReferences: []schema.ColumnRef{{Schema: to.Schema, Table: to.Name, Column: "id"}},
	})
	return b
}

// Build returns the dump with PK back-references derived.
func (b *DumpBuilder) Build() schema.Dump {
	var d schema.Dump
	index := make(map[string]int)
	for _, t := range b.order {
		i, ok := index[t.Schema]
		if !ok {
			i = len(d)
			index[t.Schema] = i
			d = append(d, schema.DumpSchema{Name: t.Schema})
		}
		cols := make([]schema.Column, len(b.tables[t]))
		copy(cols, b.tables[t])
		d[i].Tables = append(d[i].Tables, schema.DumpTable{Name: t.Name, Columns: cols})
	}
	d.DeriveBackReferences()
	return d
}

// T is shorthand for a table in schema "s".
func T(name string) schema.Table {
	return schema.Table{Schema: "s", Name: name}
}

// Chain returns the dump s.A -> s.B -> s.C ... where every table has an FK to
// the next one.
func Chain(names ...string) schema.Dump {
	b := NewDump()
	for i, name := range names {
		b.Table("s", name)
		if i > 0 {
			b.FK(T(names[i-1]), T(name))
		}
	}
	return b.Build()
}
