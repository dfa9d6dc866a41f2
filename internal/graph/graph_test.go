package graph

import (
	"context"
	"errors"
	"testing"

	"github.com/leapstack-labs/erdview/internal/schema"
	"github.com/leapstack-labs/erdview/internal/store"
	"github.com/leapstack-labs/erdview/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	tA = testutil.T("A")
	tB = testutil.T("B")
	tC = testutil.T("C")
	tD = testutil.T("D")
	tE = testutil.T("E")
	tZ = testutil.T("Z")
)

func newTraverser(t *testing.T, d schema.Dump) *Traverser {
	t.Helper()
	return NewTraverser(store.NewMemoryStoreFromDump(d), Limits{}, testutil.NewTestLogger(t))
}

func edgeNames(edges []Edge) []string {
	out := make([]string, 0, len(edges))
	for _, e := range edges {
		out = append(out, e.From.Table+"->"+e.To.Table)
	}
	return out
}

// brokenStore fails every lookup of one table with a decode error.
type brokenStore struct {
	store.Store
	broken schema.Table
}

func (b brokenStore) Columns(ctx context.Context, t schema.Table) ([]schema.Column, error) {
	if t == b.broken {
		return nil, schema.ErrMalformedColumns
	}
	return b.Store.Columns(ctx, t)
}

func TestExpand_Chain(t *testing.T) {
	tr := newTraverser(t, testutil.Chain("A", "B", "C"))
	ctx := context.Background()

	tests := []struct {
		name         string
		depth        int
		wantTables   schema.TableSet
		wantFrontier schema.TableSet
		wantEdges    []string
	}{
		{
			name:         "depth 0 is the seed alone",
			depth:        0,
			wantTables:   schema.NewTableSet(tA),
			wantFrontier: schema.NewTableSet(tA),
			wantEdges:    nil,
		},
		{
			name:         "depth 1 stops at B",
			depth:        1,
			wantTables:   schema.NewTableSet(tA, tB),
			wantFrontier: schema.NewTableSet(tB),
			wantEdges:    []string{"A->B"},
		},
		{
			name:         "depth 2 reaches C",
			depth:        2,
			wantTables:   schema.NewTableSet(tA, tB, tC),
			wantFrontier: schema.NewTableSet(tC),
			wantEdges:    []string{"A->B", "B->C"},
		},
		{
			name:         "depth beyond the graph empties the frontier",
			depth:        4,
			wantTables:   schema.NewTableSet(tA, tB, tC),
			wantFrontier: schema.NewTableSet(),
			wantEdges:    []string{"A->B", "B->C"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exp, err := tr.Expand(ctx, tA, tt.depth, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTables, exp.Tables)
			assert.Equal(t, tt.wantFrontier, exp.Frontier)

			cols, err := FetchColumns(ctx, tr.store, exp.Tables, exp.Columns)
			require.NoError(t, err)
			edges := SelectEdges(exp.Tables, exp.Frontier, cols)
			if tt.wantEdges == nil {
				assert.Empty(t, edges)
			} else {
				assert.Equal(t, tt.wantEdges, edgeNames(edges))
			}
		})
	}
}

func TestExpand_FollowsPKReferences(t *testing.T) {
	tr := newTraverser(t, testutil.Chain("A", "B", "C"))

	exp, err := tr.Expand(context.Background(), tC, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, schema.NewTableSet(tB, tC), exp.Tables, "C is only referenced, so B is reached via a PK reference")
	assert.Equal(t, schema.NewTableSet(tB), exp.Frontier)
}

func TestExpand_Monotonic(t *testing.T) {
	d := testutil.NewDump().
		FK(tA, tB).FK(tB, tC).FK(tC, tD).FK(tA, tE).FK(tE, tD).
		Build()
	tr := newTraverser(t, d)
	excluded := schema.NewTableSet(tE)

	var prev schema.TableSet
	for depth := 0; depth <= 5; depth++ {
		exp, err := tr.Expand(context.Background(), tA, depth, excluded)
		require.NoError(t, err)
		for table := range prev {
			assert.True(t, exp.Tables.Has(table), "depth %d lost %s", depth, table)
		}
		assert.False(t, exp.Tables.Has(tE), "excluded neighbor must not appear")
		for table := range exp.Frontier {
			assert.True(t, exp.Tables.Has(table), "frontier is a subset of tables")
		}
		prev = exp.Tables
	}
}

func TestExpand_Exclusion(t *testing.T) {
	tr := newTraverser(t, testutil.Chain("A", "B", "C"))
	ctx := context.Background()

	exp, err := tr.Expand(ctx, tA, 3, schema.NewTableSet(tB))
	require.NoError(t, err)
	assert.Equal(t, schema.NewTableSet(tA), exp.Tables, "C is only reachable through the excluded B")

	exp, err = tr.Expand(ctx, tA, 2, schema.NewTableSet(tA))
	require.NoError(t, err)
	assert.True(t, exp.Tables.Has(tA), "the seed is kept even when excluded")
	assert.Equal(t, schema.NewTableSet(tA, tB, tC), exp.Tables)
}

func TestExpand_Cycles(t *testing.T) {
	t.Run("self reference", func(t *testing.T) {
		d := testutil.NewDump().FK(tA, tA).Build()
		tr := newTraverser(t, d)

		exp, err := tr.Expand(context.Background(), tA, 3, nil)
		require.NoError(t, err)
		assert.Equal(t, schema.NewTableSet(tA), exp.Tables)
		assert.Empty(t, exp.Frontier)

		edges := SelectEdges(exp.Tables, exp.Frontier, exp.Columns)
		assert.Equal(t, []string{"A->A"}, edgeNames(edges))
	})

	t.Run("two table cycle", func(t *testing.T) {
		d := testutil.NewDump().FK(tA, tB).FK(tB, tA).Build()
		tr := newTraverser(t, d)

		exp, err := tr.Expand(context.Background(), tA, 5, nil)
		require.NoError(t, err)
		assert.Equal(t, schema.NewTableSet(tA, tB), exp.Tables)
		assert.Empty(t, exp.Frontier)
	})
}

func TestExpand_UnknownAndDangling(t *testing.T) {
	d := testutil.NewDump().Dangling(tA, tZ).Build()
	tr := newTraverser(t, d)
	ctx := context.Background()

	exp, err := tr.Expand(ctx, tA, 2, nil)
	require.NoError(t, err)
	assert.Equal(t, schema.NewTableSet(tA, tZ), exp.Tables, "a dangling target is a dead end, not an error")
	assert.Empty(t, exp.Columns[tZ])

	exp, err = tr.Expand(ctx, testutil.T("nope"), 2, nil)
	require.NoError(t, err)
	assert.Equal(t, schema.NewTableSet(testutil.T("nope")), exp.Tables)
}

func TestExpand_Errors(t *testing.T) {
	ctx := context.Background()
	tr := newTraverser(t, testutil.Chain("A", "B", "C"))

	_, err := tr.Expand(ctx, tA, -1, nil)
	assert.ErrorIs(t, err, ErrInvalidDepth)

	_, err = tr.Expand(ctx, tA, DefaultMaxDepth+1, nil)
	assert.ErrorIs(t, err, ErrInvalidDepth)

	limited := NewTraverser(store.NewMemoryStoreFromDump(testutil.Chain("A", "B", "C")), Limits{MaxTables: 2}, nil)
	_, err = limited.Expand(ctx, tA, 3, nil)
	assert.ErrorIs(t, err, ErrTooManyTables)

	broken := NewTraverser(brokenStore{Store: store.NewMemoryStoreFromDump(testutil.Chain("A", "B", "C")), broken: tB}, Limits{}, nil)
	_, err = broken.Expand(ctx, tA, 1, nil)
	require.NoError(t, err, "B is discovered but not read at depth 1")
	_, err = broken.Expand(ctx, tA, 2, nil)
	assert.ErrorIs(t, err, schema.ErrMalformedColumns)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = tr.Expand(cancelled, tA, 2, nil)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestFindRoute(t *testing.T) {
	ctx := context.Background()
	tr := newTraverser(t, testutil.Chain("A", "B", "C"))

	t.Run("two hop route", func(t *testing.T) {
		p, err := tr.FindRoute(ctx, tA, tC, nil)
		require.NoError(t, err)
		require.Len(t, p, 2)
		assert.Equal(t, schema.ColumnRef{Schema: "s", Table: "A", Column: "B_id"}, p[0].From)
		assert.Equal(t, schema.ColumnRef{Schema: "s", Table: "B", Column: "id"}, p[0].To)
		assert.Equal(t, schema.ColumnRef{Schema: "s", Table: "B", Column: "C_id"}, p[1].From)
		assert.Equal(t, schema.ColumnRef{Schema: "s", Table: "C", Column: "id"}, p[1].To)
	})

	t.Run("reverse direction uses PK references", func(t *testing.T) {
		p, err := tr.FindRoute(ctx, tC, tA, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"C->B", "B->A"}, edgeNames(p))
	})

	t.Run("unknown destination", func(t *testing.T) {
		p, err := tr.FindRoute(ctx, tA, tZ, nil)
		require.NoError(t, err)
		assert.Empty(t, p)
	})

	t.Run("start equals dest", func(t *testing.T) {
		p, err := tr.FindRoute(ctx, tA, tA, nil)
		require.NoError(t, err)
		assert.Empty(t, p)
	})

	t.Run("excluded intermediate blocks the route", func(t *testing.T) {
		p, err := tr.FindRoute(ctx, tA, tC, schema.NewTableSet(tB))
		require.NoError(t, err)
		assert.Empty(t, p)
	})

	t.Run("excluded endpoints are ignored", func(t *testing.T) {
		p, err := tr.FindRoute(ctx, tA, tC, schema.NewTableSet(tA, tC))
		require.NoError(t, err)
		assert.Len(t, p, 2)
	})
}

func TestFindRoute_Shortest(t *testing.T) {
	// A -> B -> C -> D -> E and A -> X -> E: the BFS must find the two hop route.
	tX := testutil.T("X")
	d := testutil.NewDump().
		FK(tA, tB).FK(tB, tC).FK(tC, tD).FK(tD, tE).
		FK(tA, tX).FK(tX, tE).
		Build()
	tr := newTraverser(t, d)

	p, err := tr.FindRoute(context.Background(), tA, tE, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"A->X", "X->E"}, edgeNames(p))
	assert.Equal(t, schema.NewTableSet(tA, tX, tE), p.Tables())
}

func TestFindRoutes(t *testing.T) {
	// A -> B -> D and A -> C -> D.
	d := testutil.NewDump().FK(tA, tB).FK(tA, tC).FK(tB, tD).FK(tC, tD).Build()
	tr := newTraverser(t, d)
	ctx := context.Background()

	paths, err := tr.FindRoutes(ctx, tA, tD, nil)
	require.NoError(t, err)
	require.Len(t, paths, 2)
	assert.Equal(t, []string{"A->B", "B->D"}, edgeNames(paths[0]))
	assert.Equal(t, []string{"A->C", "C->D"}, edgeNames(paths[1]))

	assert.Equal(t, schema.NewTableSet(tA, tB, tC, tD), RouteTables(tA, tD, paths...))
	assert.Len(t, RouteEdges(paths...), 4)
	assert.Len(t, RouteEdges(paths[0], paths[0]), 2, "edges are deduplicated")

	paths, err = tr.FindRoutes(ctx, tA, tZ, nil)
	require.NoError(t, err)
	assert.Empty(t, paths)

	limited := NewTraverser(store.NewMemoryStoreFromDump(d), Limits{MaxQueue: 2}, nil)
	_, err = limited.FindRoutes(ctx, tA, tZ, nil)
	assert.ErrorIs(t, err, ErrTooManyTables)
}

func TestSelectEdges_FrontierRule(t *testing.T) {
	// Expanding A by one reaches B and C, which reference each other. With
	// both on the frontier the B <-> C edges are dropped.
	d := testutil.NewDump().FK(tA, tB).FK(tA, tC).FK(tB, tC).FK(tC, tB).Build()
	tr := newTraverser(t, d)
	ctx := context.Background()

	exp, err := tr.Expand(ctx, tA, 1, nil)
	require.NoError(t, err)
	require.Equal(t, schema.NewTableSet(tB, tC), exp.Frontier)

	cols, err := FetchColumns(ctx, tr.store, exp.Tables, exp.Columns)
	require.NoError(t, err)
	edges := SelectEdges(exp.Tables, exp.Frontier, cols)
	assert.Equal(t, []string{"A->B", "A->C"}, edgeNames(edges))

	for _, e := range edges {
		assert.True(t, exp.Tables.Has(e.From.TableRef()))
		assert.True(t, exp.Tables.Has(e.To.TableRef()))
	}
}

func TestSelectEdges_FrontierToCore(t *testing.T) {
	// B is on the frontier and references the core table A: drawn.
	d := testutil.NewDump().FK(tB, tA).Build()
	tr := newTraverser(t, d)
	ctx := context.Background()

	exp, err := tr.Expand(ctx, tA, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, schema.NewTableSet(tA), exp.Core())

	cols, err := FetchColumns(ctx, tr.store, exp.Tables, exp.Columns)
	require.NoError(t, err)
	assert.Equal(t, []string{"B->A"}, edgeNames(SelectEdges(exp.Tables, exp.Frontier, cols)))
}
