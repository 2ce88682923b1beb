// Package cmap provides a concurrent map implementation for shardkv.
//
// This package implements a sharded concurrent map with the following
// features:
//
//   - Sharding: power-of-two shard count, selected by masking a murmur3 hash
//   - Fine-grained Locking: per-shard RWMutex, no global lock
//   - Conditional writes: SetIfAbsent / SetIfPresent hold the shard lock
//     across the presence check and the write
//   - Iteration: lazy iter.Seq2 sequences that copy a shard before yielding
//
// Usage:
//
//	m := cmap.NewWithShards[string](32)
//	m.SetIfAbsent("key", "value")
//	val, ok := m.Get("key")
//
// Thread Safety:
//
// All operations are thread-safe. Whole-map operations (Count, Clear, All,
// Items, Stats) visit shards one at a time and are not atomic across shards.
package cmap
