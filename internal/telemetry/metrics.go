package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// CacheMetrics counts cache hits and misses, labelled by cache name.
type CacheMetrics struct {
	hits      metric.Int64Counter
	misses    metric.Int64Counter
	evictions metric.Int64Counter
}

// NewCacheMetrics registers the cache counters on meter. A nil meter uses the
// global filestore meter.
func NewCacheMetrics(meter metric.Meter) (*CacheMetrics, error) {
	if meter == nil {
		meter = otel.Meter(DefaultServiceName)
	}
	m := &CacheMetrics{}
	var err error
	m.hits, err = meter.Int64Counter("filestore.cache.hits",
		metric.WithDescription("Cache lookups served from memory"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, err
	}
	m.misses, err = meter.Int64Counter("filestore.cache.misses",
		metric.WithDescription("Cache lookups that fell through to the loader"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, err
	}
	m.evictions, err = meter.Int64Counter("filestore.cache.evictions",
		metric.WithDescription("Entries removed by invalidation"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// NopCacheMetrics returns counters that record nothing.
func NopCacheMetrics() *CacheMetrics {
	m, _ := NewCacheMetrics(noop.NewMeterProvider().Meter("noop"))
	return m
}

// Lookup records one cache lookup.
func (m *CacheMetrics) Lookup(ctx context.Context, cache string, hit bool) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("cache", cache))
	if hit {
		m.hits.Add(ctx, 1, attrs)
		return
	}
	m.misses.Add(ctx, 1, attrs)
}

// Evicted records n entries removed from cache.
func (m *CacheMetrics) Evicted(ctx context.Context, cache string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.evictions.Add(ctx, int64(n), metric.WithAttributes(attribute.String("cache", cache)))
}
