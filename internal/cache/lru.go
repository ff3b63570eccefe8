package cache

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// LRU is a Cache bounded by entry count; the least recently used entry is
// dropped when a Put would exceed the bound.
type LRU[V any] struct {
	name  string
	items *lru.Cache[string, V]
}

// NewLRU returns an empty LRU cache holding at most size entries.
func NewLRU[V any](name string, size int) (*LRU[V], error) {
	items, err := lru.New[string, V](size)
	if err != nil {
		return nil, fmt.Errorf("create %s cache: %w", name, err)
	}
	return &LRU[V]{name: name, items: items}, nil
}

// Name implements Cache.
func (l *LRU[V]) Name() string { return l.name }

// Get implements Cache. A hit marks the entry most recently used.
func (l *LRU[V]) Get(key string) (V, bool) { return l.items.Get(key) }

// Put implements Cache.
func (l *LRU[V]) Put(key string, value V) { l.items.Add(key, value) }

// Invalidate implements Cache.
func (l *LRU[V]) Invalidate(pred func(key string) bool) int {
	n := 0
	for _, key := range l.items.Keys() {
		if pred(key) && l.items.Remove(key) {
			n++
		}
	}
	return n
}

// Len implements Cache.
func (l *LRU[V]) Len() int { return l.items.Len() }
