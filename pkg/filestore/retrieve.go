package filestore

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/filestore/internal/cache"
	"github.com/mesh-intelligence/filestore/pkg/types"
)

// Retrieve returns the data addressed by datumID: the datum and its resource
// are read through their caches, the resource's spec is resolved to a handler
// factory, and the cached (or newly built) handler instance is called with
// the datum kwargs. The handler's result and error are returned unchanged.
func (fs *FileStore) Retrieve(ctx context.Context, datumID string) (any, error) {
	ctx, span := fs.tracer.Start(ctx, "filestore.Retrieve",
		trace.WithAttributes(attribute.String("datum.id", datumID)))
	defer span.End()

	d, err := fs.datums.Get(ctx, datumID)
	if err != nil {
		return nil, recordErr(span, err)
	}
	inst, err := fs.acquire(ctx, d.Resource)
	if err != nil {
		return nil, recordErr(span, err)
	}
	defer inst.Release()

	span.SetAttributes(attribute.String("handler", inst.Key.Handler))
	out, err := inst.Read(d.DatumKwargs.Clone())
	if err != nil {
		return nil, recordErr(span, err)
	}
	return out, nil
}

// GetDatum returns the datum with the given id through the datum cache. The
// returned kwargs are a copy; changing them does not affect the cache.
func (fs *FileStore) GetDatum(ctx context.Context, datumID string) (types.Datum, error) {
	d, err := fs.datums.Get(ctx, datumID)
	if err != nil {
		return types.Datum{}, err
	}
	return d.Clone(), nil
}

// GetResource returns the resource with the given id through the resource
// cache. The returned kwargs are a copy.
func (fs *FileStore) GetResource(ctx context.Context, resourceID string) (types.Resource, error) {
	r, err := fs.resources.Get(ctx, resourceID)
	if err != nil {
		return types.Resource{}, err
	}
	return r.Clone(), nil
}

// HandlerFor returns the handler instance serving resourceID, building and
// caching it if needed. Calls on the returned handler are serialized with
// other users of the same instance. The caller must call release when done;
// the instance stays open until then even if it is evicted.
func (fs *FileStore) HandlerFor(ctx context.Context, resourceID string) (h types.Handler, release func(), err error) {
	inst, err := fs.acquire(ctx, resourceID)
	if err != nil {
		return nil, nil, err
	}
	return inst, inst.Release, nil
}

// acquire returns the handler instance for the resource, held for the
// caller.
func (fs *FileStore) acquire(ctx context.Context, resourceID string) (*cache.Instance, error) {
	res, err := fs.resources.Get(ctx, resourceID)
	if err != nil {
		return nil, err
	}

	// Read before Resolve: an eviction between the two makes the epoch stale
	// and keeps an instance of a replaced factory out of the cache.
	epoch := fs.handlers.Epoch()
	factory, err := fs.registry.Resolve(res.Spec)
	if err != nil {
		return nil, err
	}

	key := cache.HandlerKey{ResourceID: res.ID, Handler: factory.Name()}
	if inst, ok := fs.handlers.Acquire(ctx, key); ok {
		return inst, nil
	}

	h, err := factory.New(res.ResourcePath, res.ResourceKwargs.Clone())
	if err != nil {
		return nil, err
	}
	inst, stored := fs.handlers.Store(cache.NewInstance(key, h), epoch)
	fs.logger.Debug("handler constructed",
		zap.String("resource", key.ResourceID),
		zap.String("handler", key.Handler),
		zap.Bool("cached", stored))
	return inst, nil
}

func recordErr(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
