package filestore

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/filestore/internal/sqlite"
	"github.com/mesh-intelligence/filestore/pkg/types"
)

// newSQLiteStore attaches a SQLite backend in a temp dir.
func newSQLiteStore(t *testing.T) *sqlite.Backend {
	t.Helper()
	b := sqlite.NewBackend()
	require.NoError(t, b.Attach(types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()}))
	t.Cleanup(func() { b.Detach() })
	return b
}

// newTestStore returns a FileStore over a fresh SQLite backend.
func newTestStore(t *testing.T, opts ...Option) *FileStore {
	t.Helper()
	fs, err := New(newSQLiteStore(t), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { fs.Close() })
	return fs
}

// trackedHandler records reads and whether it was closed.
type trackedHandler struct {
	id     int
	closed atomic.Bool
	read   func(types.Kwargs) (any, error)
}

func (h *trackedHandler) Read(kwargs types.Kwargs) (any, error) {
	if h.closed.Load() {
		return nil, fmt.Errorf("handler %d read after close", h.id)
	}
	return h.read(kwargs)
}

func (h *trackedHandler) Close() error {
	h.closed.Store(true)
	return nil
}

// tracker builds factories whose instances are recorded for inspection.
type tracker struct {
	mu    sync.Mutex
	built []*trackedHandler
}

func (tr *tracker) factory(name string, read func(path string, rk, dk types.Kwargs) (any, error)) types.HandlerFactory {
	return types.NewHandlerFactory(name, func(path string, rk types.Kwargs) (types.Handler, error) {
		tr.mu.Lock()
		defer tr.mu.Unlock()
		h := &trackedHandler{id: len(tr.built)}
		h.read = func(dk types.Kwargs) (any, error) { return read(path, rk, dk) }
		tr.built = append(tr.built, h)
		return h, nil
	})
}

func (tr *tracker) count() int {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return len(tr.built)
}

func (tr *tracker) instance(i int) *trackedHandler {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return tr.built[i]
}

// labelled returns a read function that reports which factory served it.
func labelled(label string) func(string, types.Kwargs, types.Kwargs) (any, error) {
	return func(string, types.Kwargs, types.Kwargs) (any, error) { return label, nil }
}

// countingStore wraps a DocumentStore and counts lookups.
type countingStore struct {
	types.DocumentStore
	datumFinds    atomic.Int32
	resourceFinds atomic.Int32
}

func (c *countingStore) FindDatum(ctx context.Context, id string) (types.Datum, error) {
	c.datumFinds.Add(1)
	return c.DocumentStore.FindDatum(ctx, id)
}

func (c *countingStore) FindResource(ctx context.Context, id string) (types.Resource, error) {
	c.resourceFinds.Add(1)
	return c.DocumentStore.FindResource(ctx, id)
}

// seed inserts one resource of spec with a single datum and returns the
// datum id.
func seed(t *testing.T, fs *FileStore, spec string, rkwargs, dkwargs types.Kwargs) (types.Resource, string) {
	t.Helper()
	ctx := context.Background()
	res, err := fs.InsertResource(ctx, spec, "/data/file", rkwargs)
	require.NoError(t, err)
	id := "datum-" + res.ID
	_, err = fs.InsertDatum(ctx, res, id, dkwargs)
	require.NoError(t, err)
	return res, id
}
