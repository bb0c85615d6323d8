// Package cache provides a bounded least-recently-used cache and a concurrency-safe memoizer built on it.
package cache

import (
	"iter"
	"math"
)

// Entry represents a key-value pair in the cache.
type Entry[K comparable, V any] struct {
	Key   K
	Value V
}

// nilIndex terminates the access list.
const nilIndex int32 = -1

type boundedNode[K comparable, V any] struct {
	prev int32
	next int32
	Entry[K, V]
}

// BoundedCache is an in-memory cache with a fixed upper bound on the number of entries.
//
// Nodes live in a slice and are linked by index in access order, where the tail is the
// most recently used node. When the cache is full, insertions reuse the least recently
// used node (the head of the list).
type BoundedCache[K comparable, V any] struct {
	indexByKey map[K]int32
	nodes      []boundedNode[K, V]
	capacity   int

	// head is the least recently used node.
	head int32
	// tail is the most recently used node.
	tail int32
}

// NewBoundedCache returns a new bounded cache with the given capacity.
// If capacity is not positive, the cache will be effectively unbounded.
func NewBoundedCache[K comparable, V any](capacity int) *BoundedCache[K, V] {
	if capacity <= 0 || capacity > math.MaxInt32 {
		capacity = math.MaxInt32
	}
	return &BoundedCache[K, V]{
		indexByKey: make(map[K]int32),
		capacity:   capacity,
		head:       nilIndex,
		tail:       nilIndex,
	}
}

// Len returns the number of entries in the cache.
func (c *BoundedCache[K, V]) Len() int {
	return len(c.indexByKey)
}

// Capacity returns the maximum number of entries the cache can hold.
func (c *BoundedCache[K, V]) Capacity() int {
	return c.capacity
}

// Contains returns whether the cache contains the given key.
//
// Unlike Get, this method does not update the access order of the cache.
func (c *BoundedCache[K, V]) Contains(key K) bool {
	_, ok := c.indexByKey[key]
	return ok
}

// Get returns the value associated with key.
func (c *BoundedCache[K, V]) Get(key K) (value V, ok bool) {
	idx, ok := c.indexByKey[key]
	if !ok {
		return value, false
	}
	c.moveToTail(idx)
	return c.nodes[idx].Value, true
}

// Set inserts or updates the value associated with key.
func (c *BoundedCache[K, V]) Set(key K, value V) {
	idx, ok := c.indexByKey[key]
	if !ok {
		c.insert(key, value)
		return
	}
	c.nodes[idx].Value = value
	c.moveToTail(idx)
}

// Insert adds a new key-value pair to the cache if the key does not already exist.
// It returns true if the insertion was successful, false if the key already exists.
func (c *BoundedCache[K, V]) Insert(key K, value V) bool {
	if _, ok := c.indexByKey[key]; ok {
		return false
	}
	c.insert(key, value)
	return true
}

// Clear removes all entries from the cache.
func (c *BoundedCache[K, V]) Clear() {
	clear(c.indexByKey)
	clear(c.nodes)
	c.nodes = c.nodes[:0]
	c.head = nilIndex
	c.tail = nilIndex
}

// All returns an iterator over all entries in the cache,
// starting from the least recently used (head) to the most recently used (tail).
func (c *BoundedCache[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for idx := c.head; idx != nilIndex; idx = c.nodes[idx].next {
			if !yield(c.nodes[idx].Key, c.nodes[idx].Value) {
				return
			}
		}
	}
}

// insert stores the key-value pair at the tail of the list,
// reusing the head node when the cache is full.
func (c *BoundedCache[K, V]) insert(key K, value V) {
	var idx int32
	if len(c.indexByKey) == c.capacity {
		idx = c.head
		delete(c.indexByKey, c.nodes[idx].Key)
		c.unlink(idx)
	} else {
		c.nodes = append(c.nodes, boundedNode[K, V]{})
		idx = int32(len(c.nodes) - 1)
	}

	c.nodes[idx].Entry = Entry[K, V]{Key: key, Value: value}
	c.indexByKey[key] = idx
	c.linkTail(idx)
}

// moveToTail promotes the node to the tail of the list,
// indicating that it was recently accessed.
func (c *BoundedCache[K, V]) moveToTail(idx int32) {
	if idx == c.tail {
		return
	}
	c.unlink(idx)
	c.linkTail(idx)
}

func (c *BoundedCache[K, V]) unlink(idx int32) {
	n := &c.nodes[idx]
	if n.prev != nilIndex {
		c.nodes[n.prev].next = n.next
	} else {
		c.head = n.next
	}
	if n.next != nilIndex {
		c.nodes[n.next].prev = n.prev
	} else {
		c.tail = n.prev
	}
}

func (c *BoundedCache[K, V]) linkTail(idx int32) {
	n := &c.nodes[idx]
	n.prev = c.tail
	n.next = nilIndex
	if c.tail != nilIndex {
		c.nodes[c.tail].next = idx
	} else {
		c.head = idx
	}
	c.tail = idx
}
