// Package registry maps spec names to handler factories. A Registry is a
// stack of layers: scoped overlays push a layer that shadows the ones below
// it and are discarded on exit, restoring the previous bindings exactly.
//
// Replacing or removing a binding notifies every installed Evictor with the
// affected factory name so cached handler instances built by that factory
// are dropped.
package registry

import (
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/filestore/pkg/types"
)

// Evictor drops cached handler instances built by the named factory and
// reports how many were removed.
type Evictor interface {
	EvictHandler(name string) int
}

// Registry is a layered, concurrency-safe spec to handler-factory mapping.
type Registry struct {
	mu       sync.RWMutex
	top      *Layer
	evictors []Evictor
	logger   *zap.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for registration and eviction events.
func WithLogger(l *zap.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithEvictor installs e as an eviction hook.
func WithEvictor(e Evictor) Option {
	return func(r *Registry) { r.evictors = append(r.evictors, e) }
}

// New returns a Registry with a single empty root layer.
func New(opts ...Option) *Registry {
	r := &Registry{top: NewLayer(nil), logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// AddEvictor installs e as an eviction hook.
func (r *Registry) AddEvictor(e Evictor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evictors = append(r.evictors, e)
}

// Register binds spec to f in the top layer.
//
// Registering the factory already bound is a no-op. Binding a different
// factory fails with *types.DuplicateHandlerError unless overwrite is set, in
// which case the previous binding is removed and its cached instances are
// evicted before f is bound.
func (r *Registry) Register(spec string, f types.HandlerFactory, overwrite bool) error {
	r.mu.Lock()
	prev, ok := r.top.Get(spec)
	if ok && prev == f {
		r.mu.Unlock()
		return nil
	}
	if ok && !overwrite {
		r.mu.Unlock()
		return &types.DuplicateHandlerError{Spec: spec, Existing: prev.Name(), Requested: f.Name()}
	}
	r.top.Delete(spec)
	r.top.Set(spec, f)
	evictors := r.snapshotEvictors()
	r.mu.Unlock()

	r.logger.Debug("handler registered",
		zap.String("spec", spec),
		zap.String("handler", f.Name()),
		zap.Bool("replaced", ok))
	if ok {
		r.evict(evictors, prev.Name())
	}
	return nil
}

// Deregister removes the top-layer binding for spec and evicts its cached
// instances. Removing an absent binding is a no-op.
func (r *Registry) Deregister(spec string) {
	r.mu.Lock()
	prev, ok := r.top.Delete(spec)
	evictors := r.snapshotEvictors()
	r.mu.Unlock()

	if !ok {
		return
	}
	r.logger.Debug("handler deregistered", zap.String("spec", spec), zap.String("handler", prev.Name()))
	r.evict(evictors, prev.Name())
}

// Resolve returns the factory bound to spec in the nearest layer.
func (r *Registry) Resolve(spec string) (types.HandlerFactory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.top.Get(spec)
	if !ok {
		return nil, &types.KeyNotFoundError{Spec: spec}
	}
	return f, nil
}

// Specs returns every resolvable spec name, sorted.
func (r *Registry) Specs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]bool)
	for cur := r.top; cur != nil; cur = cur.parent {
		for spec := range cur.bindings {
			seen[spec] = true
		}
	}
	specs := make([]string, 0, len(seen))
	for spec := range seen {
		specs = append(specs, spec)
	}
	sort.Strings(specs)
	return specs
}

// Depth returns the number of layers currently stacked, including the root.
func (r *Registry) Depth() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.top.Depth()
}

// Push installs overlay as a new top layer and returns a function that
// discards it. The restore function unlinks exactly the layer Push created
// and evicts cached instances for every factory held by that layer. It is
// safe to call more than once; only the first call has an effect. Restoring
// out of order, as concurrent overlays do, removes only that layer and leaves
// the layers pushed after it in place.
func (r *Registry) Push(overlay map[string]types.HandlerFactory) (restore func()) {
	r.mu.Lock()
	layer := NewLayer(r.top)
	for spec, f := range overlay {
		layer.Set(spec, f)
	}
	r.top = layer
	evictors := r.snapshotEvictors()
	r.mu.Unlock()

	// A shadowing factory may share a name with the one it hides.
	r.evict(evictors, factoryNames(overlay)...)

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			r.unlink(layer)
			popped := layer.Own()
			evictors := r.snapshotEvictors()
			r.mu.Unlock()
			r.evict(evictors, factoryNames(popped)...)
		})
	}
}

// unlink removes layer from the chain under r.top. Callers hold r.mu.
func (r *Registry) unlink(layer *Layer) {
	if r.top == layer {
		r.top = layer.parent
		return
	}
	for cur := r.top; cur != nil; cur = cur.parent {
		if cur.parent == layer {
			cur.parent = layer.parent
			return
		}
	}
}

// WithTemporaryHandlers runs fn with overlay pushed on top of the current
// bindings. The overlay is discarded when fn returns, returns an error, or
// panics.
func (r *Registry) WithTemporaryHandlers(overlay map[string]types.HandlerFactory, fn func() error) error {
	restore := r.Push(overlay)
	defer restore()
	return fn()
}

// snapshotEvictors copies the evictor list. Callers hold r.mu.
func (r *Registry) snapshotEvictors() []Evictor {
	return append([]Evictor(nil), r.evictors...)
}

// evict runs outside r.mu so evictors may call back into the registry.
func (r *Registry) evict(evictors []Evictor, names ...string) {
	for _, name := range names {
		for _, e := range evictors {
			if n := e.EvictHandler(name); n > 0 {
				r.logger.Debug("evicted handler instances", zap.String("handler", name), zap.Int("count", n))
			}
		}
	}
}

func factoryNames(m map[string]types.HandlerFactory) []string {
	seen := make(map[string]bool, len(m))
	names := make([]string, 0, len(m))
	for _, f := range m {
		if name := f.Name(); !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
