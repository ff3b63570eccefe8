// Package filestore resolves datum ids to the data they describe. A
// FileStore persists Resource and Datum documents through a DocumentStore,
// validates their kwargs against spec schemas, and retrieves data by
// dispatching each datum to the handler registered for its resource's spec.
//
// Retrieval reads through three caches: datums (bounded LRU), resources
// (unbounded) and handler instances (one per resource per handler
// implementation). Replacing or removing a handler registration evicts the
// instances that handler built.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/filestore/internal/cache"
	"github.com/mesh-intelligence/filestore/internal/registry"
	"github.com/mesh-intelligence/filestore/internal/spec"
	"github.com/mesh-intelligence/filestore/internal/telemetry"
	"github.com/mesh-intelligence/filestore/pkg/types"
)

// Version is the filestore release.
const Version = "0.1.0"

// Cache names used in metrics.
const (
	datumCacheName    = "datum"
	resourceCacheName = "resource"
)

// FileStore is safe for concurrent use.
type FileStore struct {
	store     types.DocumentStore
	registry  *registry.Registry
	validator *spec.Validator

	datums    *cache.ReadThrough[types.Datum]
	resources *cache.ReadThrough[types.Resource]
	handlers  *cache.HandlerCache

	logger  *zap.Logger
	tracer  trace.Tracer
	metrics *telemetry.CacheMetrics

	datumCacheSize int
	initial        map[string]types.HandlerFactory
}

// New returns a FileStore over store.
func New(store types.DocumentStore, opts ...Option) (*FileStore, error) {
	if store == nil {
		return nil, errors.New("filestore: nil document store")
	}
	fs := &FileStore{
		store:          store,
		logger:         zap.NewNop(),
		tracer:         telemetry.Tracer(),
		datumCacheSize: types.DefaultDatumCacheSize,
		initial:        make(map[string]types.HandlerFactory),
	}
	for _, opt := range opts {
		opt(fs)
	}

	if fs.validator == nil {
		v, err := spec.New()
		if err != nil {
			return nil, err
		}
		fs.validator = v
	}

	datums, err := cache.NewLRU[types.Datum](datumCacheName, fs.datumCacheSize)
	if err != nil {
		return nil, err
	}
	fs.datums = cache.NewReadThrough[types.Datum](datums, fs.loadDatum, fs.metrics)
	fs.resources = cache.NewReadThrough[types.Resource](cache.NewUnbounded[types.Resource](resourceCacheName), fs.loadResource, fs.metrics)
	fs.handlers = cache.NewHandlerCache(
		cache.WithMetrics(fs.metrics),
		cache.WithCloseHook(func(key cache.HandlerKey, err error) {
			if err != nil {
				fs.logger.Warn("handler close failed",
					zap.String("resource", key.ResourceID),
					zap.String("handler", key.Handler),
					zap.Error(err))
			}
		}),
	)

	if fs.registry == nil {
		fs.registry = registry.New(registry.WithLogger(fs.logger))
	}
	fs.registry.AddEvictor(fs.handlers)

	specs := make([]string, 0, len(fs.initial))
	for s := range fs.initial {
		specs = append(specs, s)
	}
	sort.Strings(specs)
	for _, s := range specs {
		if err := fs.registry.Register(s, fs.initial[s], false); err != nil {
			return nil, err
		}
	}
	return fs, nil
}

// RegisterHandler binds spec to f. Re-registering the bound factory is a
// no-op; binding a different one requires overwrite and evicts the cached
// instances built by the previous factory.
func (fs *FileStore) RegisterHandler(spec string, f types.HandlerFactory, overwrite bool) error {
	return fs.registry.Register(spec, f, overwrite)
}

// DeregisterHandler removes the binding for spec and evicts its cached
// instances. Removing an absent binding is a no-op.
func (fs *FileStore) DeregisterHandler(spec string) {
	fs.registry.Deregister(spec)
}

// WithTemporaryHandlers runs fn with overlay shadowing the current handler
// bindings. The previous bindings are restored when fn returns or panics,
// and instances built by the overlay's handlers are evicted.
func (fs *FileStore) WithTemporaryHandlers(overlay map[string]types.HandlerFactory, fn func() error) error {
	return fs.registry.WithTemporaryHandlers(overlay, fn)
}

// PushHandlers installs overlay and returns the function that removes it.
// See WithTemporaryHandlers.
func (fs *FileStore) PushHandlers(overlay map[string]types.HandlerFactory) (restore func()) {
	return fs.registry.Push(overlay)
}

// Specs returns the spec names with a registered handler.
func (fs *FileStore) Specs() []string { return fs.registry.Specs() }

// KnownSpecs returns the spec names with a validation schema.
func (fs *FileStore) KnownSpecs() []string { return fs.validator.Names() }

// Registry returns the handler registry.
func (fs *FileStore) Registry() *registry.Registry { return fs.registry }

// Close closes every cached handler instance, then closes the document
// store if it is an io.Closer.
func (fs *FileStore) Close() error {
	var errs []error
	if err := fs.handlers.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close handlers: %w", err))
	}
	if c, ok := fs.store.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (fs *FileStore) loadDatum(ctx context.Context, id string) (types.Datum, error) {
	fs.logger.Debug("datum cache miss", zap.String("datum_id", id))
	return fs.store.FindDatum(ctx, id)
}

func (fs *FileStore) loadResource(ctx context.Context, id string) (types.Resource, error) {
	fs.logger.Debug("resource cache miss", zap.String("resource_id", id))
	return fs.store.FindResource(ctx, id)
}
