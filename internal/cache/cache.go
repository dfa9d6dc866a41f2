// Package cache memoizes computed diagrams by request fingerprint.
//
// A ResultCache sits in front of a Store. On a hit it returns the stored
// bytes unchanged; on a miss it runs the compute function, stores the result
// and returns it. Store failures never fail a request: they are logged and
// the request is computed as if it had missed.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Store holds artifacts by key. Get reports a missing key with ok=false and
// a nil error.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
}

// ComputeFunc produces the artifact for a fingerprint on a miss.
type ComputeFunc func(ctx context.Context) ([]byte, error)

// ResultCache is safe for concurrent use.
type ResultCache struct {
	store  Store
	group  singleflight.Group
	logger *slog.Logger

	mu      sync.Mutex
	flights map[string]*flight
}

// flight is the context a shared computation runs with. It is cancelled
// once every caller waiting on it has gone.
type flight struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

// New creates a ResultCache over store.
func New(store Store, logger *slog.Logger) *ResultCache {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &ResultCache{store: store, logger: logger, flights: make(map[string]*flight)}
}

// GetOrCompute returns the artifact for (op, params), computing and storing
// it on a miss. Concurrent misses for the same fingerprint in this process
// share one computation. Each caller stops waiting when its own context is
// done; the computation is cancelled only when no caller is left.
// Errors returned by compute are passed through and never cached.
func (c *ResultCache) GetOrCompute(ctx context.Context, op string, params []string, compute ComputeFunc) ([]byte, error) {
	key := Fingerprint(op, params...)

	data, ok, err := c.store.Get(ctx, key)
	switch {
	case err != nil:
		storeErrors.WithLabelValues("get").Inc()
		c.logger.Warn("cache get failed, computing", "operation", op, "key", key, "error", err)
	case ok:
		cacheRequests.WithLabelValues(op, resultHit).Inc()
		c.logger.Debug("cache hit", "operation", op, "key", key, "bytes", len(data))
		return data, nil
	}

	for retried := false; ; retried = true {
		out, shared, err := c.share(ctx, op, key, compute)
		// A computation abandoned by all its earlier callers can still be
		// joined by a late one. Start over once rather than report its
		// cancellation.
		if errors.Is(err, context.Canceled) && ctx.Err() == nil && !retried {
			continue
		}
		if err != nil {
			cacheRequests.WithLabelValues(op, resultError).Inc()
			return nil, err
		}
		if shared {
			cacheRequests.WithLabelValues(op, resultShared).Inc()
		} else {
			cacheRequests.WithLabelValues(op, resultMiss).Inc()
		}
		return out, nil
	}
}

func (c *ResultCache) share(ctx context.Context, op, key string, compute ComputeFunc) ([]byte, bool, error) {
	f := c.join(ctx, key)
	defer c.leave(key, f)

	ch := c.group.DoChan(key, func() (any, error) {
		start := time.Now()
		out, err := compute(f.ctx)
		computeDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
		if err != nil {
			return nil, err
		}
		artifactBytes.WithLabelValues(op).Observe(float64(len(out)))

		if err := c.store.Set(f.ctx, key, out); err != nil {
			storeErrors.WithLabelValues("set").Inc()
			c.logger.Warn("cache set failed", "operation", op, "key", key, "error", err)
		}
		c.logger.Debug("cache miss computed", "operation", op, "key", key, "bytes", len(out), "duration", time.Since(start))
		return out, nil
	})

	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, false, res.Err
		}
		out, ok := res.Val.([]byte)
		if !ok {
			return nil, false, fmt.Errorf("unexpected cached value type %T", res.Val)
		}
		return out, res.Shared, nil
	}
}

// join registers a caller waiting on key and returns the flight to compute
// with.
func (c *ResultCache) join(ctx context.Context, key string) *flight {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, ok := c.flights[key]
	if !ok {
		fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		f = &flight{ctx: fctx, cancel: cancel}
		c.flights[key] = f
	}
	f.waiters++
	return f
}

func (c *ResultCache) leave(key string, f *flight) {
	c.mu.Lock()
	defer c.mu.Unlock()
	f.waiters--
	if f.waiters > 0 {
		return
	}
	f.cancel()
	if c.flights[key] == f {
		delete(c.flights, key)
	}
}

// Nop is a Store that never holds anything. It disables caching.
type Nop struct{}

// Get implements Store.
func (Nop) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }

// Set implements Store.
func (Nop) Set(context.Context, string, []byte) error { return nil }

// Close implements io.Closer.
func (Nop) Close() error { return nil }

// Purge implements ClosableStore.
func (Nop) Purge(context.Context) error { return nil }
