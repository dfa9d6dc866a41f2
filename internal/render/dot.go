// Package render turns a sub-graph of tables into a diagram: it writes a DOT
// document with one HTML-like table label per table, hands it to a layout
// Backend and gzip-compresses what comes back.
package render

import (
	"html"
	"strings"

	"github.com/leapstack-labs/erdview/internal/graph"
	"github.com/leapstack-labs/erdview/internal/schema"
)

// Layout policy. These are fixed and not part of any request.
const (
	LayoutEngine = "neato"
	Overlap      = "prism"
	Splines      = "spline"
	NodeShape    = "plaintext"
)

// DefaultGraphName names the generated digraph.
const DefaultGraphName = "erd"

// Subgraph is the input of a rendering: the tables to draw, their columns,
// and the edges between them.
type Subgraph struct {
	Name    string
	Tables  schema.TableSet
	Columns map[schema.Table][]schema.Column
	Edges   []graph.Edge
}

// KeyColumns returns, per table, only the columns that are an endpoint of
// one of the edges.
func (sg Subgraph) KeyColumns() map[schema.Table][]schema.Column {
	used := make(map[schema.ColumnRef]struct{}, 2*len(sg.Edges))
	for _, e := range sg.Edges {
		used[e.From] = struct{}{}
		used[e.To] = struct{}{}
	}

	out := make(map[schema.Table][]schema.Column, len(sg.Columns))
	for t, cols := range sg.Columns {
		var kept []schema.Column
		for _, c := range cols {
			if _, ok := used[schema.ColumnRef{Schema: t.Schema, Table: t.Name, Column: c.Name}]; ok {
				kept = append(kept, c)
			}
		}
		out[t] = kept
	}
	return out
}

// BuildDOT writes the DOT document for sg. Tables are emitted in sorted order
// and edges in the given order, so equal inputs give equal documents.
func BuildDOT(sg Subgraph, onlyKeyColumns bool) []byte {
	columns := sg.Columns
	if onlyKeyColumns {
		columns = sg.KeyColumns()
	}

	name := sg.Name
	if name == "" {
		name = DefaultGraphName
	}

	var b strings.Builder
	b.WriteString("digraph ")
	b.WriteString(quote(name))
	b.WriteString(" {\n")
	b.WriteString("\tgraph [layout=" + LayoutEngine + " overlap=" + Overlap + " splines=" + Splines + "];\n")
	b.WriteString("\tnode [shape=" + NodeShape + "];\n")

	for _, t := range sg.Tables.Sorted() {
		b.WriteString("\t")
		b.WriteString(quote(t.String()))
		b.WriteString(" [label=")
		writeLabel(&b, t, columns[t])
		b.WriteString("];\n")
	}

	for _, e := range sg.Edges {
		b.WriteString("\t")
		b.WriteString(endpoint(e.From))
		b.WriteString(" -> ")
		b.WriteString(endpoint(e.To))
		b.WriteString(";\n")
	}

	b.WriteString("}\n")
	return []byte(b.String())
}

func writeLabel(b *strings.Builder, t schema.Table, columns []schema.Column) {
	b.WriteString(`<<table><tr><td colspan="2">`)
	b.WriteString(html.EscapeString(t.String()))
	b.WriteString(`</td></tr>`)
	for _, c := range columns {
		b.WriteString(`<tr><td port="`)
		b.WriteString(html.EscapeString(c.Name))
		b.WriteString(`">`)
		b.WriteString(html.EscapeString(c.Name))
		b.WriteString(`</td><td>`)
		b.WriteString(html.EscapeString(c.Type))
		b.WriteString(`</td></tr>`)
	}
	b.WriteString(`</table>>`)
}

func endpoint(r schema.ColumnRef) string {
	return quote(r.Schema+"."+r.Table) + ":" + quote(r.Column)
}

// quote returns s as a DOT double-quoted ID.
func quote(s string) string {
	return `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`).Replace(s) + `"`
}
