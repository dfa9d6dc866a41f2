package graph

import (
	"context"
	"fmt"
	"slices"

	"github.com/leapstack-labs/erdview/internal/schema"
)

// Path is an ordered list of edges leading from a start table to a
// destination table. An empty path means either start == dest or no route.
type Path []Edge

// Tables returns every table the path touches.
func (p Path) Tables() schema.TableSet {
	set := make(schema.TableSet, len(p)+1)
	for _, e := range p {
		set.Add(e.From.TableRef())
		set.Add(e.To.TableRef())
	}
	return set
}

// FindRoute returns the shortest route from start to dest, treating FK and
// PK references alike as undirected edges. Tables in excluded are never
// entered, except start and dest themselves. An unreachable dest yields an
// empty path and no error.
func (tr *Traverser) FindRoute(ctx context.Context, start, dest schema.Table, excluded schema.TableSet) (Path, error) {
	paths, err := tr.search(ctx, start, dest, excluded, true)
	if err != nil || len(paths) == 0 {
		return nil, err
	}
	return paths[0], nil
}

// FindRoutes continues the search after dest is first reached and returns one
// path for every edge into dest seen from a dequeued table. Only the first
// route to each intermediate table is kept, so this is not an enumeration of
// all simple paths.
func (tr *Traverser) FindRoutes(ctx context.Context, start, dest schema.Table, excluded schema.TableSet) ([]Path, error) {
	return tr.search(ctx, start, dest, excluded, false)
}

func (tr *Traverser) search(ctx context.Context, start, dest schema.Table, excluded schema.TableSet, shortest bool) ([]Path, error) {
	if start == dest {
		return nil, nil
	}

	// routes keeps the first route found to each discovered table.
	routes := map[schema.Table]Path{start: nil}
	queue := []schema.Table{start}
	var found []Path

	for head := 0; head < len(queue); head++ {
		t := queue[head]
		cols, err := fetch(ctx, tr.store, t)
		if err != nil {
			return nil, err
		}

		for _, n := range neighbors(t, cols) {
			if n.table == t {
				continue
			}
			if n.table == dest {
				p := append(slices.Clone(routes[t]), n.edge)
				if shortest {
					tr.logger.Debug("route found", "start", start.String(), "dest", dest.String(), "hops", len(p), "dequeued", head+1)
					return []Path{p}, nil
				}
				found = append(found, p)
				continue
			}
			if _, seen := routes[n.table]; seen || excluded.Has(n.table) {
				continue
			}
			if len(routes) >= tr.limits.MaxQueue {
				return nil, fmt.Errorf("%w: route search from %s exceeded %d tables", ErrTooManyTables, start, tr.limits.MaxQueue)
			}
			routes[n.table] = append(slices.Clone(routes[t]), n.edge)
			queue = append(queue, n.table)
		}
	}

	tr.logger.Debug("route search finished", "start", start.String(), "dest", dest.String(), "paths", len(found), "dequeued", len(queue))
	return found, nil
}

// RouteTables returns start, dest and every table on paths.
func RouteTables(start, dest schema.Table, paths ...Path) schema.TableSet {
	set := schema.NewTableSet(start, dest)
	for _, p := range paths {
		for t := range p.Tables() {
			set.Add(t)
		}
	}
	return set
}

// RouteEdges returns the distinct edges of paths in first-seen order.
func RouteEdges(paths ...Path) []Edge {
	seen := make(map[Edge]struct{})
	var edges []Edge
	for _, p := range paths {
		for _, e := range p {
			if _, ok := seen[e]; ok {
				continue
			}
			seen[e] = struct{}{}
			edges = append(edges, e)
		}
	}
	return edges
}
