// Package cache provides a small in-process LRU cache used for read-mostly
// lookups such as task routing info. Entries are immutable once written,
// so no invalidation hooks are exposed.
package cache

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// LRU is a fixed-capacity, thread-safe LRU cache
type LRU[K comparable, V any] struct {
	inner *lru.Cache[K, V]
}

// NewLRU creates an LRU cache holding at most size entries
func NewLRU[K comparable, V any](size int) (*LRU[K, V], error) {
	inner, err := lru.New[K, V](size)
	if err != nil {
		return nil, err
	}
	return &LRU[K, V]{inner: inner}, nil
}

// Get returns the cached value for key, if present
func (c *LRU[K, V]) Get(key K) (V, bool) {
	return c.inner.Get(key)
}

// Set stores a value under key, evicting the least recently used entry
// when the cache is full
func (c *LRU[K, V]) Set(key K, value V) {
	c.inner.Add(key, value)
}

// Len returns the number of cached entries
func (c *LRU[K, V]) Len() int {
	return c.inner.Len()
}
