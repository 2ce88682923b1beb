// Package cmap provides a concurrent-safe sharded map.
//
// It uses sharding to reduce lock contention: every key belongs to exactly
// one shard and each shard carries its own lock, so operations on different
// shards never block each other.
package cmap

import (
	"sync"

	"github.com/spaolacci/murmur3"
)

// DefaultShardCount is the default number of shards.
const DefaultShardCount = 16

// Map is a concurrent-safe, string-keyed sharded map.
type Map[V any] struct {
	shards    []*Shard[V]
	shardMask uint64
}

// NewWithShards creates a new sharded map with the specified shard count.
// shardCount must be a power of 2; anything else falls back to DefaultShardCount.
func NewWithShards[V any](shardCount int) *Map[V] {
	if !IsPowerOfTwo(shardCount) {
		shardCount = DefaultShardCount
	}

	m := &Map[V]{
		shards:    make([]*Shard[V], shardCount),
		shardMask: uint64(shardCount - 1),
	}

	for i := 0; i < shardCount; i++ {
		m.shards[i] = newShard[V]()
	}

	return m
}

// IsPowerOfTwo reports whether n is a positive power of two.
func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// Index maps a key to a shard index for a map whose shard count is mask+1.
//
// The hash is unseeded murmur3, so the result depends on the key alone and
// is identical across calls and across processes.
func Index(key string, mask uint64) int {
	return int(murmur3.Sum64([]byte(key)) & mask)
}

// ShardIndex returns the index of the shard that owns key.
func (m *Map[V]) ShardIndex(key string) int {
	return Index(key, m.shardMask)
}

// getShard returns the shard that owns key.
func (m *Map[V]) getShard(key string) *Shard[V] {
	return m.shards[m.ShardIndex(key)]
}

// Shard returns the shard at index i, for callers that work on one
// partition at a time. It panics if i is out of range.
func (m *Map[V]) Shard(i int) *Shard[V] {
	return m.shards[i]
}

// ShardCount returns the number of shards.
func (m *Map[V]) ShardCount() int {
	return len(m.shards)
}

// Get retrieves a value by key.
func (m *Map[V]) Get(key string) (V, bool) {
	return m.getShard(key).Get(key)
}

// Set stores a key-value pair, overwriting any previous value.
func (m *Map[V]) Set(key string, value V) {
	m.getShard(key).Set(key, value)
}

// SetIfAbsent sets the value only if the key does not exist.
// Returns true if the value was set, false if the key already exists.
func (m *Map[V]) SetIfAbsent(key string, value V) bool {
	return m.getShard(key).SetIfAbsent(key, value)
}

// SetIfPresent sets the value only if the key already exists.
// Returns true if the value was set, false if the key does not exist.
func (m *Map[V]) SetIfPresent(key string, value V) bool {
	return m.getShard(key).SetIfPresent(key, value)
}

// Delete removes a key and reports whether it was present.
func (m *Map[V]) Delete(key string) bool {
	return m.getShard(key).Delete(key)
}

// Count returns the total number of items.
//
// Shards are counted one after another, so the total is not a point-in-time
// figure while writers are active.
func (m *Map[V]) Count() int {
	count := 0
	for _, shard := range m.shards {
		count += shard.Len()
	}
	return count
}

// Clear removes all items shard by shard and returns how many were dropped.
//
// There is no global lock: a concurrent reader may observe a partially
// cleared map, and a concurrent writer may land in a shard that was
// already cleared.
func (m *Map[V]) Clear() int {
	dropped := 0
	for _, shard := range m.shards {
		dropped += shard.Clear()
	}
	return dropped
}

// ShardStats describes the occupancy of one shard.
type ShardStats struct {
	Index int `json:"index"`
	Count int `json:"count"`
}

// Stats returns statistics about all shards.
func (m *Map[V]) Stats() []ShardStats {
	stats := make([]ShardStats, len(m.shards))
	for i, shard := range m.shards {
		stats[i] = ShardStats{
			Index: i,
			Count: shard.Len(),
		}
	}
	return stats
}

// Shard is one independently locked partition of a Map.
type Shard[V any] struct {
	mu    sync.RWMutex
	items map[string]V
}

func newShard[V any]() *Shard[V] {
	return &Shard[V]{
		items: make(map[string]V),
	}
}

// Get retrieves a value by key.
func (s *Shard[V]) Get(key string) (V, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	val, ok := s.items[key]
	return val, ok
}

// Set stores a key-value pair.
func (s *Shard[V]) Set(key string, value V) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = value
}

// SetIfAbsent stores value under key unless the key is already present.
func (s *Shard[V]) SetIfAbsent(key string, value V) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[key]; ok {
		return false
	}

	s.items[key] = value
	return true
}

// SetIfPresent replaces the value under key if the key is present.
// The presence check and the write happen under one write lock, so a
// concurrent update of the same key cannot make this report a miss.
func (s *Shard[V]) SetIfPresent(key string, value V) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[key]; !ok {
		return false
	}

	s.items[key] = value
	return true
}

// Delete removes key and reports whether it was present.
func (s *Shard[V]) Delete(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.items[key]
	delete(s.items, key)
	return ok
}

// Clear drops every entry and returns how many there were.
func (s *Shard[V]) Clear() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.items)
	s.items = make(map[string]V)
	return n
}

// Len returns the number of entries in the shard.
func (s *Shard[V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
