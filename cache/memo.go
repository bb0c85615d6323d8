package cache

import "sync"

// Memo memoizes the results of a pure function in a [BoundedCache].
//
// Memo is safe for concurrent use by multiple goroutines.
type Memo[K comparable, V any] struct {
	mu sync.Mutex
	c  *BoundedCache[K, V]
	fn func(K) V
}

// NewMemo returns a memoizer of fn holding up to capacity results.
func NewMemo[K comparable, V any](capacity int, fn func(K) V) *Memo[K, V] {
	return &Memo[K, V]{
		c:  NewBoundedCache[K, V](capacity),
		fn: fn,
	}
}

// Get returns fn(key), computing it only if the result is not cached.
//
// fn runs without the lock held, so concurrent misses on the same key may compute it more than once.
func (m *Memo[K, V]) Get(key K) V {
	m.mu.Lock()
	value, ok := m.c.Get(key)
	m.mu.Unlock()
	if ok {
		return value
	}

	value = m.fn(key)

	m.mu.Lock()
	m.c.Set(key, value)
	m.mu.Unlock()
	return value
}

// Len returns the number of cached results.
func (m *Memo[K, V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.c.Len()
}
