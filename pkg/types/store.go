package types

import (
	"context"
	"errors"
)

// Collection names in the document store.
const (
	ResourceCollection = "resource"
	DatumCollection    = "datum"
)

// DocumentStore persists Resource and Datum documents. Implementations
// enforce a unique index on Datum.DatumID and index datums by resource.
type DocumentStore interface {
	// InsertResource persists a new resource document.
	InsertResource(ctx context.Context, r Resource) error

	// FindResource returns the resource with the given id.
	// Returns a *NotFoundError if no such resource exists.
	FindResource(ctx context.Context, id string) (Resource, error)

	// InsertDatum persists a new datum document. Returns a *ConflictError if
	// the datum id is already taken and a *NotFoundError if the referenced
	// resource does not exist.
	InsertDatum(ctx context.Context, d Datum) error

	// BulkInsertDatum persists all datums in one round trip. Either all are
	// written or none are.
	BulkInsertDatum(ctx context.Context, ds []Datum) error

	// FindDatum returns the datum with the given datum id.
	// Returns a *NotFoundError if no such datum exists.
	FindDatum(ctx context.Context, datumID string) (Datum, error)

	// FindDatumsByResource returns every datum referencing the resource, in
	// insertion order.
	FindDatumsByResource(ctx context.Context, resourceID string) ([]Datum, error)
}

// Store is a DocumentStore with a connection lifecycle. Callers attach to a
// backend, use the collections, and detach when done.
type Store interface {
	DocumentStore

	// Attach connects the store to the backend described by config.
	// Creates the DataDir if it does not exist. Returns ErrAlreadyAttached if
	// called while already attached.
	Attach(config Config) error

	// Detach releases backend resources. Idempotent: multiple calls succeed.
	// After Detach, operations return ErrStoreDetached.
	Detach() error
}

// Store lifecycle errors.
var (
	ErrStoreDetached   = errors.New("store is detached")
	ErrAlreadyAttached = errors.New("store is already attached")
	ErrInvalidID       = errors.New("invalid document ID")
)
