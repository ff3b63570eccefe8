// Package sqlite implements the filestore document store on SQLite. It holds
// the resource and datum collections, enforces the unique datum id index,
// and exports to and imports from JSONL files.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/mesh-intelligence/filestore/pkg/types"
)

// Backend implements types.Store using SQLite.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config
	db       *sql.DB
}

// NewBackend creates a new SQLite backend instance.
// The backend is not attached; call Attach with a Config to initialize.
func NewBackend() *Backend {
	return &Backend{}
}

// Attach opens (or creates) filestore.db in config.DataDir and ensures the
// schema exists. Existing documents are kept.
// Returns ErrAlreadyAttached if already attached.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}

	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	dsn := "file:" + filepath.Join(dataDir, dbFile) + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, ddl := range append(append([]string(nil), schemaDDL...), indexDDL...) {
		if _, err := db.Exec(ddl); err != nil {
			db.Close()
			return fmt.Errorf("create schema: %w", err)
		}
	}

	b.db = db
	b.config = config
	b.attached = true
	return nil
}

// Detach closes the database. Idempotent. After Detach, all operations
// return ErrStoreDetached.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}
	b.attached = false
	if b.db != nil {
		err := b.db.Close()
		b.db = nil
		return err
	}
	return nil
}

// Close is Detach; it lets the backend be used as an io.Closer.
func (b *Backend) Close() error { return b.Detach() }

// InsertResource implements types.DocumentStore.
func (b *Backend) InsertResource(ctx context.Context, r types.Resource) error {
	if r.ID == "" {
		return types.ErrInvalidID
	}
	kwargs, err := encodeKwargs(r.ResourceKwargs)
	if err != nil {
		return fmt.Errorf("encode resource kwargs: %w", err)
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return types.ErrStoreDetached
	}
	_, err = b.db.ExecContext(ctx,
		`INSERT INTO resource (_id, spec, resource_path, resource_kwargs) VALUES (?, ?, ?, ?)`,
		r.ID, r.Spec, r.ResourcePath, kwargs)
	if err != nil {
		return fmt.Errorf("insert resource %s: %w", r.ID, err)
	}
	return nil
}

// FindResource implements types.DocumentStore.
func (b *Backend) FindResource(ctx context.Context, id string) (types.Resource, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return types.Resource{}, types.ErrStoreDetached
	}

	var (
		r      types.Resource
		kwargs string
	)
	err := b.db.QueryRowContext(ctx,
		`SELECT _id, spec, resource_path, resource_kwargs FROM resource WHERE _id = ?`, id).
		Scan(&r.ID, &r.Spec, &r.ResourcePath, &kwargs)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Resource{}, &types.NotFoundError{Kind: types.ResourceCollection, ID: id}
	}
	if err != nil {
		return types.Resource{}, fmt.Errorf("find resource %s: %w", id, err)
	}
	if r.ResourceKwargs, err = decodeKwargs(kwargs); err != nil {
		return types.Resource{}, fmt.Errorf("decode resource kwargs %s: %w", id, err)
	}
	return r, nil
}

// InsertDatum implements types.DocumentStore.
func (b *Backend) InsertDatum(ctx context.Context, d types.Datum) error {
	return b.BulkInsertDatum(ctx, []types.Datum{d})
}

// BulkInsertDatum implements types.DocumentStore. All datums are written in
// one transaction; the first failure rolls back the batch.
func (b *Backend) BulkInsertDatum(ctx context.Context, ds []types.Datum) error {
	rows := make([][]any, 0, len(ds))
	for _, d := range ds {
		if d.DatumID == "" {
			return types.ErrInvalidID
		}
		kwargs, err := encodeKwargs(d.DatumKwargs)
		if err != nil {
			return fmt.Errorf("encode datum kwargs %s: %w", d.DatumID, err)
		}
		rows = append(rows, []any{generateUUID(), d.DatumID, d.Resource, kwargs})
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return types.ErrStoreDetached
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin datum insert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO datum (_id, datum_id, resource, datum_kwargs) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare datum insert: %w", err)
	}
	defer stmt.Close()

	for i, row := range rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return datumInsertError(ds[i], err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit datum insert: %w", err)
	}
	return nil
}

// FindDatum implements types.DocumentStore.
func (b *Backend) FindDatum(ctx context.Context, datumID string) (types.Datum, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return types.Datum{}, types.ErrStoreDetached
	}

	var (
		d      types.Datum
		kwargs string
	)
	err := b.db.QueryRowContext(ctx,
		`SELECT datum_id, resource, datum_kwargs FROM datum WHERE datum_id = ?`, datumID).
		Scan(&d.DatumID, &d.Resource, &kwargs)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Datum{}, &types.NotFoundError{Kind: types.DatumCollection, ID: datumID}
	}
	if err != nil {
		return types.Datum{}, fmt.Errorf("find datum %s: %w", datumID, err)
	}
	if d.DatumKwargs, err = decodeKwargs(kwargs); err != nil {
		return types.Datum{}, fmt.Errorf("decode datum kwargs %s: %w", datumID, err)
	}
	return d, nil
}

// FindDatumsByResource implements types.DocumentStore.
func (b *Backend) FindDatumsByResource(ctx context.Context, resourceID string) ([]types.Datum, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrStoreDetached
	}

	rows, err := b.db.QueryContext(ctx,
		`SELECT datum_id, resource, datum_kwargs FROM datum WHERE resource = ? ORDER BY rowid`, resourceID)
	if err != nil {
		return nil, fmt.Errorf("find datums for resource %s: %w", resourceID, err)
	}
	defer rows.Close()

	var out []types.Datum
	for rows.Next() {
		var (
			d      types.Datum
			kwargs string
		)
		if err := rows.Scan(&d.DatumID, &d.Resource, &kwargs); err != nil {
			return nil, fmt.Errorf("scan datum: %w", err)
		}
		if d.DatumKwargs, err = decodeKwargs(kwargs); err != nil {
			return nil, fmt.Errorf("decode datum kwargs %s: %w", d.DatumID, err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// datumInsertError maps constraint violations to the filestore taxonomy.
func datumInsertError(d types.Datum, err error) error {
	switch constraintKind(err) {
	case constraintUnique:
		return &types.ConflictError{DatumID: d.DatumID}
	case constraintForeignKey:
		return &types.NotFoundError{Kind: types.ResourceCollection, ID: d.Resource}
	}
	return fmt.Errorf("insert datum %s: %w", d.DatumID, err)
}

type constraint int

const (
	constraintNone constraint = iota
	constraintUnique
	constraintForeignKey
)

func constraintKind(err error) constraint {
	var serr *msqlite.Error
	if errors.As(err, &serr) {
		switch serr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return constraintUnique
		case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
			return constraintForeignKey
		}
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return constraintUnique
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return constraintForeignKey
	}
	return constraintNone
}

// generateUUID generates a new UUID v7 for document IDs.
func generateUUID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}
