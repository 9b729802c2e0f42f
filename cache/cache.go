// Package cache provides a generic, thread-safe sharded LRU cache.
//
// The cache is split into a fixed number of shards selected by key hash,
// so that concurrent readers and writers rarely contend on the same lock.
// Each shard evicts its least recently used entry when it exceeds its
// per-shard capacity.
package cache

import (
	"hash/fnv"
	"sync"
)

// shardCount is the number of shards. A power of 2, so shard selection is
// a bitwise AND.
const shardCount = 16

// Hasher computes the hash used for shard selection.
type Hasher[K any] func(K) uint64

// StringHasher computes the FNV-1a hash of a string key.
func StringHasher(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s)) // fnv.Write never returns an error
	return h.Sum64()
}

// Cache is a sharded LRU cache. The zero value is not usable; create one
// with New. All methods are safe for concurrent use.
type Cache[K comparable, V any] struct {
	shards   [shardCount]shard[K, V]
	hasher   Hasher[K]
	capacity int // per shard
}

// New creates a cache holding up to capacity entries in total, with the
// given hasher for shard selection. A capacity below shardCount is raised
// to one entry per shard.
func New[K comparable, V any](capacity int, hasher Hasher[K]) *Cache[K, V] {
	perShard := capacity / shardCount
	if perShard < 1 {
		perShard = 1
	}
	c := &Cache[K, V]{hasher: hasher, capacity: perShard}
	for i := range c.shards {
		c.shards[i].entries = make(map[K]*entry[K, V])
	}
	return c
}

// Get returns the cached value for key, marking it most recently used.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	return c.shard(key).get(key)
}

// Set stores the value for key, evicting the shard's least recently used
// entry if the shard is full.
func (c *Cache[K, V]) Set(key K, value V) {
	c.shard(key).set(key, value, c.capacity)
}

// Delete removes the entry for key, if present.
func (c *Cache[K, V]) Delete(key K) {
	c.shard(key).delete(key)
}

// Clear removes all entries.
func (c *Cache[K, V]) Clear() {
	for i := range c.shards {
		c.shards[i].clear()
	}
}

// Len returns the number of cached entries.
func (c *Cache[K, V]) Len() int {
	n := 0
	for i := range c.shards {
		n += c.shards[i].len()
	}
	return n
}

func (c *Cache[K, V]) shard(key K) *shard[K, V] {
	return &c.shards[c.hasher(key)&(shardCount-1)]
}

// entry is a cache slot doubly linked in LRU order, head most recent.
type entry[K comparable, V any] struct {
	key        K
	value      V
	prev, next *entry[K, V]
}

type shard[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]*entry[K, V]
	head    *entry[K, V]
	tail    *entry[K, V]
}

func (s *shard[K, V]) get(key K) (V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	s.moveToFront(e)
	return e.value, true
}

func (s *shard[K, V]) set(key K, value V, capacity int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[key]; ok {
		e.value = value
		s.moveToFront(e)
		return
	}
	e := &entry[K, V]{key: key, value: value}
	s.entries[key] = e
	s.pushFront(e)
	if len(s.entries) > capacity {
		oldest := s.tail
		s.unlink(oldest)
		delete(s.entries, oldest.key)
	}
}

func (s *shard[K, V]) delete(key K) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[key]; ok {
		s.unlink(e)
		delete(s.entries, key)
	}
}

func (s *shard[K, V]) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.entries)
	s.head, s.tail = nil, nil
}

func (s *shard[K, V]) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *shard[K, V]) pushFront(e *entry[K, V]) {
	e.prev = nil
	e.next = s.head
	if s.head != nil {
		s.head.prev = e
	}
	s.head = e
	if s.tail == nil {
		s.tail = e
	}
}

func (s *shard[K, V]) moveToFront(e *entry[K, V]) {
	if e == s.head {
		return
	}
	s.unlink(e)
	s.pushFront(e)
}

func (s *shard[K, V]) unlink(e *entry[K, V]) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		s.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		s.tail = e.prev
	}
	e.prev, e.next = nil, nil
}
