package graph

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/erdview/internal/schema"
	"github.com/leapstack-labs/erdview/internal/store"
)

// Traverser runs expansions and route searches against a store.
type Traverser struct {
	store  store.Store
	limits Limits
	logger *slog.Logger
}

// NewTraverser creates a Traverser. A nil logger discards output.
func NewTraverser(s store.Store, limits Limits, logger *slog.Logger) *Traverser {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Traverser{store: s, limits: limits.withDefaults(), logger: logger}
}

// Limits returns the effective limits.
func (tr *Traverser) Limits() Limits {
	return tr.limits
}

// Expansion is the result of a bounded expansion.
type Expansion struct {
	// Tables holds every visited table plus the frontier.
	Tables schema.TableSet
	// Frontier holds the tables that were discovered but not expanded.
	Frontier schema.TableSet
	// Columns holds the columns read for the visited tables.
	Columns map[schema.Table][]schema.Column
}

// Core returns Tables without the Frontier: the fully expanded tables.
func (e *Expansion) Core() schema.TableSet {
	core := make(schema.TableSet, len(e.Tables))
	for t := range e.Tables {
		if !e.Frontier.Has(t) {
			core.Add(t)
		}
	}
	return core
}

// Expand walks outward from seed for exactly depth rounds. Each round reads
// the columns of every pending table, marks it visited and queues every
// referenced table not yet visited, pending or excluded for the next round.
//
// Depth 0 returns the seed as both the only table and the frontier. The seed
// is kept even when it appears in excluded.
func (tr *Traverser) Expand(ctx context.Context, seed schema.Table, depth int, excluded schema.TableSet) (*Expansion, error) {
	if depth < 0 || depth > tr.limits.MaxDepth {
		return nil, fmt.Errorf("%w: %d (allowed 0..%d)", ErrInvalidDepth, depth, tr.limits.MaxDepth)
	}

	visited := make(schema.TableSet)
	columns := make(map[schema.Table][]schema.Column)
	pending := []schema.Table{seed}
	inPending := schema.NewTableSet(seed)
	discovered := 1

	for round := 0; round < depth && len(pending) > 0; round++ {
		var next []schema.Table
		inNext := make(schema.TableSet)

		for _, t := range pending {
			cols, err := fetch(ctx, tr.store, t)
			if err != nil {
				return nil, err
			}
			columns[t] = cols
			visited.Add(t)

			for _, n := range neighbors(t, cols) {
				if visited.Has(n.table) || inPending.Has(n.table) || inNext.Has(n.table) || excluded.Has(n.table) {
					continue
				}
				discovered++
				if discovered > tr.limits.MaxTables {
					return nil, fmt.Errorf("%w: expansion of %s exceeded %d tables", ErrTooManyTables, seed, tr.limits.MaxTables)
				}
				inNext.Add(n.table)
				next = append(next, n.table)
			}
		}

		tr.logger.Debug("expanded layer", "seed", seed.String(), "round", round+1, "expanded", len(pending), "discovered", len(next))
		pending, inPending = next, inNext
	}

	tables := visited.Clone()
	for _, t := range pending {
		tables.Add(t)
	}
	return &Expansion{
		Tables:   tables,
		Frontier: inPending,
		Columns:  columns,
	}, nil
}
