package cache

import (
	gocache "github.com/patrickmn/go-cache"
)

// Unbounded is a Cache that never expires or evicts entries on its own.
type Unbounded[V any] struct {
	name  string
	items *gocache.Cache
}

// NewUnbounded returns an empty unbounded cache. No janitor goroutine is
// started.
func NewUnbounded[V any](name string) *Unbounded[V] {
	return &Unbounded[V]{
		name:  name,
		items: gocache.New(gocache.NoExpiration, 0),
	}
}

// Name implements Cache.
func (u *Unbounded[V]) Name() string { return u.name }

// Get implements Cache.
func (u *Unbounded[V]) Get(key string) (V, bool) {
	var zero V
	raw, ok := u.items.Get(key)
	if !ok {
		return zero, false
	}
	v, ok := raw.(V)
	if !ok {
		return zero, false
	}
	return v, true
}

// Put implements Cache.
func (u *Unbounded[V]) Put(key string, value V) {
	u.items.Set(key, value, gocache.NoExpiration)
}

// Invalidate implements Cache.
func (u *Unbounded[V]) Invalidate(pred func(key string) bool) int {
	n := 0
	for key := range u.items.Items() {
		if pred(key) {
			u.items.Delete(key)
			n++
		}
	}
	return n
}

// Len implements Cache.
func (u *Unbounded[V]) Len() int { return u.items.ItemCount() }
