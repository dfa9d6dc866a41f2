package graph

import (
	"github.com/leapstack-labs/erdview/internal/schema"
)

// SelectEdges returns the FK edges to draw for a partial expansion.
//
// An edge X -> Y is drawn when both tables are in tables and either X is not
// a frontier table or Y is a fully expanded one. Edges between two frontier
// tables are dropped: neither side had its adjacency read, so drawing them
// would show an arbitrary subset. PK references are not drawn; each one
// mirrors an FK edge drawn from the other side.
//
// Tables are walked in sorted order and columns in declared order, so the
// result is deterministic.
func SelectEdges(tables, frontier schema.TableSet, columns map[schema.Table][]schema.Column) []Edge {
	var edges []Edge
	for _, t := range tables.Sorted() {
		fromFrontier := frontier.Has(t)
		for _, c := range columns[t] {
			from := schema.ColumnRef{Schema: t.Schema, Table: t.Name, Column: c.Name}
			for _, ref := range c.FKReferences {
				to := ref.TableRef()
				if !tables.Has(to) {
					continue
				}
				if fromFrontier && frontier.Has(to) {
					continue
				}
				edges = append(edges, Edge{From: from, To: ref})
			}
		}
	}
	return edges
}
