package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/filestore/pkg/types"
)

type closingHandler struct {
	closed atomic.Int32
	active atomic.Int32
	maxAct atomic.Int32
}

func (h *closingHandler) Read(types.Kwargs) (any, error) {
	n := h.active.Add(1)
	defer h.active.Add(-1)
	for {
		m := h.maxAct.Load()
		if n <= m || h.maxAct.CompareAndSwap(m, n) {
			break
		}
	}
	return int(h.closed.Load()), nil
}

func (h *closingHandler) Close() error {
	h.closed.Add(1)
	return nil
}

func TestHandlerCache_StoreAndAcquire(t *testing.T) {
	c := NewHandlerCache()
	ctx := context.Background()
	key := HandlerKey{ResourceID: "r1", Handler: "tiff"}

	_, ok := c.Acquire(ctx, key)
	assert.False(t, ok)

	h := &closingHandler{}
	inst, stored := c.Store(NewInstance(key, h), c.Epoch())
	require.True(t, stored)
	inst.Release()

	got, ok := c.Acquire(ctx, key)
	require.True(t, ok)
	assert.Same(t, inst, got)
	got.Release()
	assert.Equal(t, 1, c.Len())
	assert.False(t, inst.Closed())
}

func TestHandlerCache_EvictHandlerClosesOnlyMatching(t *testing.T) {
	c := NewHandlerCache()
	epoch := c.Epoch()

	tiff1, tiff2, hdf := &closingHandler{}, &closingHandler{}, &closingHandler{}
	for key, h := range map[HandlerKey]*closingHandler{
		{ResourceID: "r1", Handler: "tiff"}: tiff1,
		{ResourceID: "r2", Handler: "tiff"}: tiff2,
		{ResourceID: "r1", Handler: "hdf5"}: hdf,
	} {
		inst, stored := c.Store(NewInstance(key, h), epoch)
		require.True(t, stored)
		inst.Release()
	}

	n := c.EvictHandler("tiff")
	assert.Equal(t, 2, n)
	assert.Equal(t, 1, c.Len())
	assert.EqualValues(t, 1, tiff1.closed.Load())
	assert.EqualValues(t, 1, tiff2.closed.Load())
	assert.EqualValues(t, 0, hdf.closed.Load())

	assert.Equal(t, 0, c.EvictHandler("tiff"))
}

func TestHandlerCache_StaleEpochNotCached(t *testing.T) {
	c := NewHandlerCache()
	key := HandlerKey{ResourceID: "r1", Handler: "tiff"}

	epoch := c.Epoch()
	c.EvictHandler("tiff")

	h := &closingHandler{}
	inst, stored := c.Store(NewInstance(key, h), epoch)
	assert.False(t, stored)
	assert.Equal(t, 0, c.Len())

	_, err := inst.Read(nil)
	require.NoError(t, err)
	assert.EqualValues(t, 0, h.closed.Load(), "usable until released")
	inst.Release()
	assert.EqualValues(t, 1, h.closed.Load())
}

func TestHandlerCache_StoreKeepsExisting(t *testing.T) {
	c := NewHandlerCache()
	key := HandlerKey{ResourceID: "r1", Handler: "tiff"}
	epoch := c.Epoch()

	first := &closingHandler{}
	winner, stored := c.Store(NewInstance(key, first), epoch)
	require.True(t, stored)

	second := &closingHandler{}
	got, stored := c.Store(NewInstance(key, second), epoch)
	assert.False(t, stored)
	assert.Same(t, winner, got)
	assert.EqualValues(t, 1, second.closed.Load(), "losing instance is closed")
	assert.EqualValues(t, 0, first.closed.Load())
	winner.Release()
	got.Release()
}

func TestHandlerCache_EvictWhileHeld(t *testing.T) {
	c := NewHandlerCache()
	key := HandlerKey{ResourceID: "r1", Handler: "tiff"}
	h := &closingHandler{}

	inst, _ := c.Store(NewInstance(key, h), c.Epoch())
	c.EvictHandler("tiff")
	assert.EqualValues(t, 0, h.closed.Load(), "held instance stays open")

	_, err := inst.Read(nil)
	require.NoError(t, err)
	inst.Release()
	assert.EqualValues(t, 1, h.closed.Load())
	assert.True(t, inst.Closed())
}

func TestHandlerCache_PutReplaces(t *testing.T) {
	c := NewHandlerCache()
	key := HandlerKey{ResourceID: "r1", Handler: "tiff"}
	old, replacement := &closingHandler{}, &closingHandler{}

	c.Put(key, old)
	c.Put(key, replacement)

	assert.EqualValues(t, 1, old.closed.Load())
	inst, ok := c.Acquire(context.Background(), key)
	require.True(t, ok)
	assert.Same(t, replacement, inst.Handler())
	inst.Release()
}

func TestHandlerCache_Invalidate(t *testing.T) {
	c := NewHandlerCache()
	c.Put(HandlerKey{ResourceID: "r1", Handler: "a"}, &closingHandler{})
	c.Put(HandlerKey{ResourceID: "r1", Handler: "b"}, &closingHandler{})
	c.Put(HandlerKey{ResourceID: "r2", Handler: "a"}, &closingHandler{})

	n := c.Invalidate(func(k HandlerKey) bool { return k.ResourceID == "r1" })
	assert.Equal(t, 2, n)
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, 1, c.EvictHandler("a"))
}

func TestHandlerCache_SerializesReads(t *testing.T) {
	c := NewHandlerCache()
	key := HandlerKey{ResourceID: "r1", Handler: "tiff"}
	h := &closingHandler{}
	c.Put(key, h)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			inst, ok := c.Acquire(context.Background(), key)
			if !ok {
				return
			}
			defer inst.Release()
			_, _ = inst.Read(nil)
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, h.maxAct.Load())
}

func TestHandlerCache_Close(t *testing.T) {
	var hooked []HandlerKey
	c := NewHandlerCache(WithCloseHook(func(k HandlerKey, _ error) { hooked = append(hooked, k) }))
	a, b := &closingHandler{}, &closingHandler{}
	c.Put(HandlerKey{ResourceID: "r1", Handler: "a"}, a)
	c.Put(HandlerKey{ResourceID: "r2", Handler: "b"}, b)

	require.NoError(t, c.Close())
	assert.Equal(t, 0, c.Len())
	assert.EqualValues(t, 1, a.closed.Load())
	assert.EqualValues(t, 1, b.closed.Load())
	assert.Len(t, hooked, 2)
	assert.Equal(t, 0, c.EvictHandler("a"))
}
