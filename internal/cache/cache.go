// Package cache provides the in-memory caches behind the retrieval pipeline:
// an unbounded map for resources, a bounded LRU for datums, and a
// handler-instance cache with name-indexed eviction.
package cache

import (
	"context"

	"golang.org/x/sync/singleflight"

	"github.com/mesh-intelligence/filestore/internal/telemetry"
)

// Cache is a string-keyed map with predicate invalidation. Implementations
// are safe for concurrent use.
type Cache[V any] interface {
	// Name labels the cache in metrics and logs.
	Name() string
	Get(key string) (V, bool)
	Put(key string, value V)
	// Invalidate removes every entry whose key satisfies pred and returns the
	// number removed.
	Invalidate(pred func(key string) bool) int
	Len() int
}

// Loader produces the value for a key on a cache miss.
type Loader[V any] func(ctx context.Context, key string) (V, error)

// Fetch returns the cached value for key, calling load and caching its result
// on a miss. Loader errors are returned and nothing is cached.
func Fetch[V any](ctx context.Context, c Cache[V], key string, load Loader[V]) (V, error) {
	v, _, err := fetch(ctx, c, key, load)
	return v, err
}

func fetch[V any](ctx context.Context, c Cache[V], key string, load Loader[V]) (V, bool, error) {
	if v, ok := c.Get(key); ok {
		return v, true, nil
	}
	v, err := load(ctx, key)
	if err != nil {
		return v, false, err
	}
	c.Put(key, v)
	return v, false, nil
}

// ReadThrough pairs a cache with the loader that fills it and records hit and
// miss counts. Concurrent misses on one key share a single load.
type ReadThrough[V any] struct {
	cache   Cache[V]
	load    Loader[V]
	metrics *telemetry.CacheMetrics
	group   singleflight.Group
}

// NewReadThrough returns a ReadThrough over c. A nil metrics records nothing.
func NewReadThrough[V any](c Cache[V], load Loader[V], metrics *telemetry.CacheMetrics) *ReadThrough[V] {
	return &ReadThrough[V]{cache: c, load: load, metrics: metrics}
}

// Get returns the value for key, loading it on a miss. The shared load keeps
// the first caller's context values but not its cancellation; a caller whose
// ctx ends stops waiting while the load continues for the others.
func (r *ReadThrough[V]) Get(ctx context.Context, key string) (V, error) {
	var zero V
	if v, ok := r.cache.Get(key); ok {
		r.metrics.Lookup(ctx, r.cache.Name(), true)
		return v, nil
	}
	r.metrics.Lookup(ctx, r.cache.Name(), false)
	loadCtx := context.WithoutCancel(ctx)
	ch := r.group.DoChan(key, func() (any, error) {
		v, _, err := fetch(loadCtx, r.cache, key, r.load)
		return v, err
	})
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		v, _ := res.Val.(V)
		return v, nil
	}
}

// Cache returns the underlying cache.
func (r *ReadThrough[V]) Cache() Cache[V] { return r.cache }
