package cache

import (
	"context"
	"errors"
	"io"
	"sync"

	gocache "github.com/patrickmn/go-cache"

	"github.com/mesh-intelligence/filestore/internal/telemetry"
	"github.com/mesh-intelligence/filestore/pkg/types"
)

// HandlerCacheName labels the handler-instance cache in metrics.
const HandlerCacheName = "handler"

// HandlerKey identifies one handler instance: at most one live instance
// exists per resource per handler implementation.
type HandlerKey struct {
	ResourceID string
	Handler    string
}

func (k HandlerKey) String() string {
	return k.ResourceID + "\x00" + k.Handler
}

// Instance is a cached handler. Reads are serialized; the wrapped handler is
// closed once the instance has been evicted and every holder has released it.
type Instance struct {
	Key     HandlerKey
	handler types.Handler

	call sync.Mutex // serializes Read

	mu      sync.Mutex // guards refs, retired, closed
	refs    int
	retired bool
	closed  bool
	onClose func(error)
}

// NewInstance wraps h. The returned instance is held once by the caller.
func NewInstance(key HandlerKey, h types.Handler) *Instance {
	return &Instance{Key: key, handler: h, refs: 1}
}

// Handler returns the wrapped handler.
func (i *Instance) Handler() types.Handler { return i.handler }

// Read invokes the handler with kwargs. Concurrent reads on one instance run
// one at a time.
func (i *Instance) Read(kwargs types.Kwargs) (any, error) {
	i.call.Lock()
	defer i.call.Unlock()
	return i.handler.Read(kwargs)
}

// Release drops the caller's hold on the instance.
func (i *Instance) Release() {
	i.mu.Lock()
	i.refs--
	shouldClose := i.refs <= 0 && i.retired && !i.closed
	if shouldClose {
		i.closed = true
	}
	i.mu.Unlock()
	if shouldClose {
		_ = i.close()
	}
}

// Closed reports whether the wrapped handler has been closed.
func (i *Instance) Closed() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.closed
}

func (i *Instance) acquire() {
	i.mu.Lock()
	i.refs++
	i.mu.Unlock()
}

// retire marks the instance evicted and closes it if nobody holds it.
func (i *Instance) retire() error {
	i.mu.Lock()
	i.retired = true
	shouldClose := i.refs <= 0 && !i.closed
	if shouldClose {
		i.closed = true
	}
	i.mu.Unlock()
	if shouldClose {
		return i.close()
	}
	return nil
}

func (i *Instance) close() error {
	c, ok := i.handler.(io.Closer)
	if !ok {
		return nil
	}
	i.call.Lock()
	err := c.Close()
	i.call.Unlock()
	if i.onClose != nil {
		i.onClose(err)
	}
	return err
}

// HandlerCache holds handler instances keyed by HandlerKey, with a secondary
// index from handler name to keys so eviction by name touches only the
// matching entries.
type HandlerCache struct {
	mu    sync.Mutex // guards index, epoch and compound operations on items
	items *gocache.Cache
	index map[string]map[HandlerKey]struct{}
	epoch uint64

	metrics *telemetry.CacheMetrics
	onClose func(HandlerKey, error)
}

// HandlerCacheOption configures a HandlerCache.
type HandlerCacheOption func(*HandlerCache)

// WithMetrics records lookups and evictions on m.
func WithMetrics(m *telemetry.CacheMetrics) HandlerCacheOption {
	return func(c *HandlerCache) { c.metrics = m }
}

// WithCloseHook calls fn after an evicted handler has been closed.
func WithCloseHook(fn func(HandlerKey, error)) HandlerCacheOption {
	return func(c *HandlerCache) { c.onClose = fn }
}

// NewHandlerCache returns an empty handler cache.
func NewHandlerCache(opts ...HandlerCacheOption) *HandlerCache {
	c := &HandlerCache{
		items: gocache.New(gocache.NoExpiration, 0),
		index: make(map[string]map[HandlerKey]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.items.OnEvicted(func(_ string, v interface{}) {
		if inst, ok := v.(*Instance); ok {
			_ = inst.retire()
		}
	})
	return c
}

// Name labels the cache in metrics.
func (c *HandlerCache) Name() string { return HandlerCacheName }

// Epoch returns a counter that advances on every eviction. Snapshot it before
// resolving a handler factory and pass it to Store.
func (c *HandlerCache) Epoch() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epoch
}

// Acquire returns the cached instance for key, held once for the caller.
// The caller must Release it.
func (c *HandlerCache) Acquire(ctx context.Context, key HandlerKey) (*Instance, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.items.Get(key.String())
	c.metrics.Lookup(ctx, HandlerCacheName, ok)
	if !ok {
		return nil, false
	}
	inst := raw.(*Instance)
	inst.acquire()
	return inst, true
}

// Store caches inst under its key unless an eviction has happened since
// epoch was read. It returns the instance the caller should use, still held
// for the caller, and whether inst was stored.
//
// If another instance is already cached for the key, that instance is
// returned and inst is closed. If the epoch is stale, inst is returned
// uncached and is closed when the caller releases it.
func (c *HandlerCache) Store(inst *Instance, epoch uint64) (*Instance, bool) {
	c.mu.Lock()
	if c.epoch != epoch {
		c.mu.Unlock()
		inst.mu.Lock()
		inst.retired = true
		inst.mu.Unlock()
		return inst, false
	}
	if raw, ok := c.items.Get(inst.Key.String()); ok {
		existing := raw.(*Instance)
		existing.acquire()
		c.mu.Unlock()
		inst.Release()
		_ = inst.retire()
		return existing, false
	}
	c.put(inst)
	c.mu.Unlock()
	return inst, true
}

// Put caches h under key, replacing and closing any existing instance.
func (c *HandlerCache) Put(key HandlerKey, h types.Handler) {
	inst := NewInstance(key, h)
	inst.refs = 0
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch++
	c.items.Delete(key.String())
	c.put(inst)
}

// put stores inst. Callers hold c.mu.
func (c *HandlerCache) put(inst *Instance) {
	if c.onClose != nil {
		key, hook := inst.Key, c.onClose
		inst.onClose = func(err error) { hook(key, err) }
	}
	c.items.Set(inst.Key.String(), inst, gocache.NoExpiration)
	keys, ok := c.index[inst.Key.Handler]
	if !ok {
		keys = make(map[HandlerKey]struct{})
		c.index[inst.Key.Handler] = keys
	}
	keys[inst.Key] = struct{}{}
}

// EvictHandler removes every instance built by the named handler and returns
// the number removed. It implements registry.Evictor.
func (c *HandlerCache) EvictHandler(name string) int {
	c.mu.Lock()
	c.epoch++
	keys := c.index[name]
	delete(c.index, name)
	for key := range keys {
		c.items.Delete(key.String())
	}
	c.mu.Unlock()
	c.metrics.Evicted(context.Background(), HandlerCacheName, len(keys))
	return len(keys)
}

// Invalidate removes every instance whose key satisfies pred.
func (c *HandlerCache) Invalidate(pred func(HandlerKey) bool) int {
	c.mu.Lock()
	c.epoch++
	n := 0
	for name, keys := range c.index {
		for key := range keys {
			if !pred(key) {
				continue
			}
			delete(keys, key)
			c.items.Delete(key.String())
			n++
		}
		if len(keys) == 0 {
			delete(c.index, name)
		}
	}
	c.mu.Unlock()
	c.metrics.Evicted(context.Background(), HandlerCacheName, n)
	return n
}

// Len returns the number of cached instances.
func (c *HandlerCache) Len() int { return c.items.ItemCount() }

// Close evicts every instance and returns the errors from closing the
// instances nobody holds. Held instances are closed on release.
func (c *HandlerCache) Close() error {
	c.mu.Lock()
	c.epoch++
	insts := c.snapshot()
	c.index = make(map[string]map[HandlerKey]struct{})
	c.items.Flush()
	c.mu.Unlock()

	var errs []error
	for _, inst := range insts {
		if err := inst.retire(); err != nil {
			errs = append(errs, err)
		}
	}
	c.metrics.Evicted(context.Background(), HandlerCacheName, len(insts))
	return errors.Join(errs...)
}

// snapshot returns the cached instances. Callers hold c.mu.
func (c *HandlerCache) snapshot() []*Instance {
	items := c.items.Items()
	out := make([]*Instance, 0, len(items))
	for _, item := range items {
		out = append(out, item.Object.(*Instance))
	}
	return out
}
