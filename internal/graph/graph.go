// Package graph implements the traversals over the table reference graph:
// bounded breadth-first expansion from a seed table and route finding between
// two tables. Both treat FK and PK references as traversable edges and read
// columns lazily from a store.Store, one table at a time.
package graph

import (
	"context"
	"errors"
	"fmt"

	"github.com/leapstack-labs/erdview/internal/schema"
	"github.com/leapstack-labs/erdview/internal/store"
)

var (
	// ErrInvalidDepth is returned for a negative or over-limit depth.
	ErrInvalidDepth = errors.New("invalid depth")
	// ErrTooManyTables is returned when a traversal discovers more tables
	// than its limit allows.
	ErrTooManyTables = errors.New("too many tables")
)

// Default limits.
const (
	DefaultMaxDepth  = 6
	DefaultMaxTables = 2000
	DefaultMaxQueue  = 10000
)

// Limits bounds the work a single traversal may do. Zero values fall back to
// the defaults.
type Limits struct {
	MaxDepth  int
	MaxTables int
	MaxQueue  int
}

// DefaultLimits returns the default limits.
func DefaultLimits() Limits {
	return Limits{MaxDepth: DefaultMaxDepth, MaxTables: DefaultMaxTables, MaxQueue: DefaultMaxQueue}
}

func (l Limits) withDefaults() Limits {
	if l.MaxDepth <= 0 {
		l.MaxDepth = DefaultMaxDepth
	}
	if l.MaxTables <= 0 {
		l.MaxTables = DefaultMaxTables
	}
	if l.MaxQueue <= 0 {
		l.MaxQueue = DefaultMaxQueue
	}
	return l
}

// Edge is a reference between two columns, oriented from the referencing
// column (or, on a route, from the side nearer the start).
type Edge struct {
	From schema.ColumnRef
	To   schema.ColumnRef
}

// String returns "from -> to".
func (e Edge) String() string {
	return e.From.String() + " -> " + e.To.String()
}

// neighbor is a table reachable from a column through one reference.
type neighbor struct {
	table schema.Table
	edge  Edge
}

// neighbors lists every FK and PK reference of columns in order. References
// to the table itself are included; callers skip them through their visited
// checks.
func neighbors(t schema.Table, columns []schema.Column) []neighbor {
	var out []neighbor
	for _, c := range columns {
		from := schema.ColumnRef{Schema: t.Schema, Table: t.Name, Column: c.Name}
		for _, ref := range c.FKReferences {
			out = append(out, neighbor{table: ref.TableRef(), edge: Edge{From: from, To: ref}})
		}
		for _, ref := range c.PKReferences {
			out = append(out, neighbor{table: ref.TableRef(), edge: Edge{From: from, To: ref}})
		}
	}
	return out
}

// fetch reads the columns of t, checking ctx first so that a cancelled
// request stops between store calls.
func fetch(ctx context.Context, s store.Store, t schema.Table) ([]schema.Column, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	columns, err := s.Columns(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("failed to read columns of %s: %w", t, err)
	}
	return columns, nil
}

// FetchColumns returns the columns of every table in tables, reusing the
// entries already present in known.
func FetchColumns(ctx context.Context, s store.Store, tables schema.TableSet, known map[schema.Table][]schema.Column) (map[schema.Table][]schema.Column, error) {
	out := make(map[schema.Table][]schema.Column, len(tables))
	for _, t := range tables.Sorted() {
		if cols, ok := known[t]; ok {
			out[t] = cols
			continue
		}
		cols, err := fetch(ctx, s, t)
		if err != nil {
			return nil, err
		}
		out[t] = cols
	}
	return out, nil
}
