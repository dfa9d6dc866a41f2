// Package explorer exposes the cached entry points that turn a request into
// a rendered diagram: related tables around a seed, routes between two
// tables, and whole-schema diagrams.
package explorer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/leapstack-labs/erdview/internal/cache"
	"github.com/leapstack-labs/erdview/internal/graph"
	"github.com/leapstack-labs/erdview/internal/render"
	"github.com/leapstack-labs/erdview/internal/schema"
	"github.com/leapstack-labs/erdview/internal/store"
)

// ErrInvalidRequest is returned for requests that fail validation.
var ErrInvalidRequest = errors.New("invalid request")

// Operation names, part of every fingerprint.
const (
	OpRelatedTables = "related_tables"
	OpFindRoute     = "find_route"
	OpRenderSchema  = "render_schema"
)

// RelatedRequest asks for the tables around Seed, Depth references away.
type RelatedRequest struct {
	Seed           schema.Table
	Depth          int `validate:"gte=0"`
	Excluded       schema.TableSet
	OnlyKeyColumns bool
}

// RouteRequest asks for the route(s) between Start and Dest.
type RouteRequest struct {
	Start          schema.Table
	Dest           schema.Table
	Excluded       schema.TableSet
	OnlyKeyColumns bool
	// Shortest stops at the first route found. Otherwise one route per
	// edge into Dest is returned.
	Shortest bool
}

// SchemaRequest asks for every table of one schema.
type SchemaRequest struct {
	Schema         string `validate:"required"`
	OnlyKeyColumns bool
}

// Explorer is safe for concurrent use.
type Explorer struct {
	store     store.Store
	traverser *graph.Traverser
	renderer  *render.Renderer
	cache     *cache.ResultCache
	validate  *validator.Validate
	logger    *slog.Logger
}

// Config holds the collaborators of an Explorer.
type Config struct {
	Store    store.Store
	Renderer *render.Renderer
	// Cache defaults to a cache that never stores anything.
	Cache  *cache.ResultCache
	Limits graph.Limits
	Logger *slog.Logger
}

// New creates an Explorer.
func New(cfg Config) (*Explorer, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("schema store not specified")
	}
	if cfg.Renderer == nil {
		return nil, fmt.Errorf("renderer not specified")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	rc := cfg.Cache
	if rc == nil {
		rc = cache.New(cache.Nop{}, logger)
	}
	return &Explorer{
		store:     cfg.Store,
		traverser: graph.NewTraverser(cfg.Store, cfg.Limits, logger),
		renderer:  cfg.Renderer,
		cache:     rc,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		logger:    logger,
	}, nil
}

// Format returns the output format of every diagram.
func (e *Explorer) Format() string {
	return e.renderer.Format()
}

// Limits returns the traversal limits in effect.
func (e *Explorer) Limits() graph.Limits {
	return e.traverser.Limits()
}

func (e *Explorer) check(req any) error {
	if err := e.validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return nil
}

// params appends the render format and, when the store tracks one, the
// snapshot id, so that reloading a schema or switching formats never serves
// a stale diagram.
func (e *Explorer) params(ctx context.Context, params ...string) ([]string, error) {
	params = append(params, e.renderer.Format())
	if v, ok := e.store.(store.Versioned); ok {
		snap, err := v.Snapshot(ctx)
		if err != nil {
			return nil, err
		}
		params = append(params, snap)
	}
	return params, nil
}

// RelatedTables renders the tables within req.Depth references of req.Seed.
// Fingerprint parameters, in order: seed schema, seed table, depth, excluded
// tables, only-key-columns, format, snapshot.
func (e *Explorer) RelatedTables(ctx context.Context, req RelatedRequest) ([]byte, error) {
	if err := e.check(req); err != nil {
		return nil, err
	}
	if req.Depth > e.traverser.Limits().MaxDepth {
		return nil, fmt.Errorf("%w: %w: %d exceeds %d", ErrInvalidRequest, graph.ErrInvalidDepth, req.Depth, e.traverser.Limits().MaxDepth)
	}

	params, err := e.params(ctx,
		req.Seed.Schema,
		req.Seed.Name,
		cache.Int(req.Depth),
		cache.TableSetParam(req.Excluded),
		cache.Bool(req.OnlyKeyColumns),
	)
	if err != nil {
		return nil, err
	}

	return e.cache.GetOrCompute(ctx, OpRelatedTables, params, func(ctx context.Context) ([]byte, error) {
		exp, err := e.traverser.Expand(ctx, req.Seed, req.Depth, req.Excluded)
		if err != nil {
			return nil, err
		}
		columns, err := graph.FetchColumns(ctx, e.store, exp.Tables, exp.Columns)
		if err != nil {
			return nil, err
		}
		return e.renderer.Render(ctx, render.Subgraph{
			Tables:  exp.Tables,
			Columns: columns,
			Edges:   graph.SelectEdges(exp.Tables, exp.Frontier, columns),
		}, req.OnlyKeyColumns)
	})
}

// Routes runs the route search of req without rendering or caching.
func (e *Explorer) Routes(ctx context.Context, req RouteRequest) ([]graph.Path, error) {
	if err := e.check(req); err != nil {
		return nil, err
	}
	if req.Shortest {
		p, err := e.traverser.FindRoute(ctx, req.Start, req.Dest, req.Excluded)
		if err != nil || len(p) == 0 {
			return nil, err
		}
		return []graph.Path{p}, nil
	}
	return e.traverser.FindRoutes(ctx, req.Start, req.Dest, req.Excluded)
}

// FindRoute renders the route(s) between req.Start and req.Dest. When no
// route exists the diagram holds just the two endpoints.
// Fingerprint parameters, in order: start schema, start table, dest schema,
// dest table, excluded tables, only-key-columns, shortest, format, snapshot.
func (e *Explorer) FindRoute(ctx context.Context, req RouteRequest) ([]byte, error) {
	if err := e.check(req); err != nil {
		return nil, err
	}

	params, err := e.params(ctx,
		req.Start.Schema,
		req.Start.Name,
		req.Dest.Schema,
		req.Dest.Name,
		cache.TableSetParam(req.Excluded),
		cache.Bool(req.OnlyKeyColumns),
		cache.Bool(req.Shortest),
	)
	if err != nil {
		return nil, err
	}

	return e.cache.GetOrCompute(ctx, OpFindRoute, params, func(ctx context.Context) ([]byte, error) {
		paths, err := e.Routes(ctx, req)
		if err != nil {
			return nil, err
		}
		tables := graph.RouteTables(req.Start, req.Dest, paths...)
		columns, err := graph.FetchColumns(ctx, e.store, tables, nil)
		if err != nil {
			return nil, err
		}
		e.logger.Debug("rendering route", "start", req.Start.String(), "dest", req.Dest.String(), "paths", len(paths))
		return e.renderer.Render(ctx, render.Subgraph{
			Tables:  tables,
			Columns: columns,
			Edges:   graph.RouteEdges(paths...),
		}, req.OnlyKeyColumns)
	})
}

// RenderSchema renders every table of one schema with all FK edges between
// them. The store must be able to list tables.
// Fingerprint parameters, in order: schema, only-key-columns, format, snapshot.
func (e *Explorer) RenderSchema(ctx context.Context, req SchemaRequest) ([]byte, error) {
	if err := e.check(req); err != nil {
		return nil, err
	}
	catalog, ok := e.store.(store.Catalog)
	if !ok {
		return nil, fmt.Errorf("schema store cannot list tables")
	}

	params, err := e.params(ctx, req.Schema, cache.Bool(req.OnlyKeyColumns))
	if err != nil {
		return nil, err
	}

	return e.cache.GetOrCompute(ctx, OpRenderSchema, params, func(ctx context.Context) ([]byte, error) {
		names, err := catalog.Tables(ctx, req.Schema)
		if err != nil {
			return nil, err
		}
		if limit := e.traverser.Limits().MaxTables; len(names) > limit {
			return nil, fmt.Errorf("%w: schema %s has %d tables, limit is %d", graph.ErrTooManyTables, req.Schema, len(names), limit)
		}

		tables := make(schema.TableSet, len(names))
		for _, name := range names {
			tables.Add(schema.Table{Schema: req.Schema, Name: name})
		}
		columns, err := graph.FetchColumns(ctx, e.store, tables, nil)
		if err != nil {
			return nil, err
		}
		return e.renderer.Render(ctx, render.Subgraph{
			Name:    req.Schema,
			Tables:  tables,
			Columns: columns,
			Edges:   graph.SelectEdges(tables, nil, columns),
		}, req.OnlyKeyColumns)
	})
}
