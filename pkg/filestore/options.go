package filestore

import (
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/filestore/internal/registry"
	"github.com/mesh-intelligence/filestore/internal/spec"
	"github.com/mesh-intelligence/filestore/internal/telemetry"
	"github.com/mesh-intelligence/filestore/pkg/types"
)

// Option configures a FileStore.
type Option func(*FileStore)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(fs *FileStore) {
		if l != nil {
			fs.logger = l
		}
	}
}

// WithTracer sets the tracer used for pipeline spans. The default is the
// global filestore tracer.
func WithTracer(t trace.Tracer) Option {
	return func(fs *FileStore) {
		if t != nil {
			fs.tracer = t
		}
	}
}

// WithDatumCacheSize bounds the datum cache. Zero keeps the default.
func WithDatumCacheSize(n int) Option {
	return func(fs *FileStore) {
		if n != 0 {
			fs.datumCacheSize = n
		}
	}
}

// WithValidator replaces the validator loaded with the built-in specs.
func WithValidator(v *spec.Validator) Option {
	return func(fs *FileStore) { fs.validator = v }
}

// WithRegistry uses r instead of a fresh registry. The FileStore's handler
// cache is installed as an evictor on r.
func WithRegistry(r *registry.Registry) Option {
	return func(fs *FileStore) { fs.registry = r }
}

// WithHandlers registers the given spec to factory bindings at construction.
func WithHandlers(bindings map[string]types.HandlerFactory) Option {
	return func(fs *FileStore) {
		for spec, f := range bindings {
			fs.initial[spec] = f
		}
	}
}

// WithCacheMetrics records cache hits, misses and evictions on m.
func WithCacheMetrics(m *telemetry.CacheMetrics) Option {
	return func(fs *FileStore) { fs.metrics = m }
}
