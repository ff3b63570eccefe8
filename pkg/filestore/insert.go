package filestore

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/filestore/internal/spec"
	"github.com/mesh-intelligence/filestore/pkg/types"
)

// InsertResource validates kwargs against the spec's resource schema and
// persists a new resource. The spec does not need a registered handler;
// specs without a schema are stored unvalidated.
func (fs *FileStore) InsertResource(ctx context.Context, specName, resourcePath string, kwargs types.Kwargs) (types.Resource, error) {
	ctx, span := fs.tracer.Start(ctx, "filestore.InsertResource",
		trace.WithAttributes(attribute.String("spec", specName)))
	defer span.End()

	kw := kwargs.Clone()
	if err := fs.validator.Validate(specName, spec.KindResource, kw); err != nil {
		return types.Resource{}, recordErr(span, err)
	}

	r := types.Resource{
		ID:             newID(),
		Spec:           specName,
		ResourcePath:   resourcePath,
		ResourceKwargs: kw,
	}
	if err := fs.store.InsertResource(ctx, r); err != nil {
		return types.Resource{}, recordErr(span, err)
	}
	fs.logger.Info("resource inserted",
		zap.String("resource_id", r.ID),
		zap.String("spec", r.Spec),
		zap.String("path", r.ResourcePath))
	return r, nil
}

// InsertDatum validates kwargs against the resource spec's datum schema and
// persists a new datum. resource may be a types.Resource or a bare
// types.ResourceID, which is looked up first. A taken datum id fails with
// *types.ConflictError.
func (fs *FileStore) InsertDatum(ctx context.Context, resource types.ResourceRef, datumID string, kwargs types.Kwargs) (types.Datum, error) {
	ctx, span := fs.tracer.Start(ctx, "filestore.InsertDatum",
		trace.WithAttributes(attribute.String("datum.id", datumID)))
	defer span.End()

	res, err := fs.resolveRef(ctx, resource)
	if err != nil {
		return types.Datum{}, recordErr(span, err)
	}
	kw := kwargs.Clone()
	if err := fs.validator.Validate(res.Spec, spec.KindDatum, kw); err != nil {
		return types.Datum{}, recordErr(span, err)
	}

	d := types.Datum{DatumID: datumID, Resource: res.ID, DatumKwargs: kw}
	if err := fs.store.InsertDatum(ctx, d); err != nil {
		return types.Datum{}, recordErr(span, err)
	}
	fs.logger.Info("datum inserted", zap.String("datum_id", datumID), zap.String("resource_id", res.ID))
	return d, nil
}

// BulkInsertDatum inserts one datum per id, all referencing resource, in a
// single store round trip. ids and kwargsList must have equal length. Every
// item is validated against the datum schema before anything is written;
// any failure, including a taken id, leaves the store unchanged.
func (fs *FileStore) BulkInsertDatum(ctx context.Context, resource types.ResourceRef, ids []string, kwargsList []types.Kwargs) ([]types.Datum, error) {
	ctx, span := fs.tracer.Start(ctx, "filestore.BulkInsertDatum",
		trace.WithAttributes(attribute.Int("datum.count", len(ids))))
	defer span.End()

	if len(ids) != len(kwargsList) {
		return nil, recordErr(span, &types.ValidationError{Kind: string(spec.KindDatum), Expected: len(ids), Found: len(kwargsList)})
	}
	res, err := fs.resolveRef(ctx, resource)
	if err != nil {
		return nil, recordErr(span, err)
	}

	ds := make([]types.Datum, len(ids))
	for i, id := range ids {
		kw := kwargsList[i].Clone()
		if err := fs.validator.Validate(res.Spec, spec.KindDatum, kw); err != nil {
			return nil, recordErr(span, err)
		}
		ds[i] = types.Datum{DatumID: id, Resource: res.ID, DatumKwargs: kw}
	}
	if len(ds) == 0 {
		return ds, nil
	}
	if err := fs.store.BulkInsertDatum(ctx, ds); err != nil {
		return nil, recordErr(span, err)
	}
	fs.logger.Info("datums inserted", zap.Int("count", len(ds)), zap.String("resource_id", res.ID))
	return ds, nil
}

// resolveRef returns the full resource for ref, looking up bare ids.
func (fs *FileStore) resolveRef(ctx context.Context, ref types.ResourceRef) (types.Resource, error) {
	switch r := ref.(type) {
	case types.Resource:
		return r, nil
	case *types.Resource:
		if r != nil {
			return *r, nil
		}
	case nil:
	default:
		return fs.GetResource(ctx, ref.RefID())
	}
	return types.Resource{}, &types.NotFoundError{Kind: types.ResourceCollection}
}

func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}
