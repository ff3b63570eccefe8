package registry

import "github.com/mesh-intelligence/filestore/pkg/types"

// Layer is one level of a parent-chained handler mapping. Lookups walk from
// the layer toward the root until a binding is found; writes touch only the
// layer itself. Layer is not safe for concurrent use; Registry guards it.
type Layer struct {
	parent   *Layer
	bindings map[string]types.HandlerFactory
}

// NewLayer returns an empty layer on top of parent. A nil parent makes a root.
func NewLayer(parent *Layer) *Layer {
	return &Layer{parent: parent, bindings: make(map[string]types.HandlerFactory)}
}

// Parent returns the layer this one falls back to, or nil for the root.
func (l *Layer) Parent() *Layer { return l.parent }

// Get resolves spec through l and its ancestors.
func (l *Layer) Get(spec string) (types.HandlerFactory, bool) {
	for cur := l; cur != nil; cur = cur.parent {
		if f, ok := cur.bindings[spec]; ok {
			return f, true
		}
	}
	return nil, false
}

// Set binds spec in l only.
func (l *Layer) Set(spec string, f types.HandlerFactory) {
	l.bindings[spec] = f
}

// Delete removes spec from l only and returns the removed factory.
func (l *Layer) Delete(spec string) (types.HandlerFactory, bool) {
	f, ok := l.bindings[spec]
	if ok {
		delete(l.bindings, spec)
	}
	return f, ok
}

// Own returns a copy of the bindings held directly by l.
func (l *Layer) Own() map[string]types.HandlerFactory {
	out := make(map[string]types.HandlerFactory, len(l.bindings))
	for k, v := range l.bindings {
		out[k] = v
	}
	return out
}

// Depth counts the layers from l to the root, inclusive.
func (l *Layer) Depth() int {
	n := 0
	for cur := l; cur != nil; cur = cur.parent {
		n++
	}
	return n
}
