// Package memory provides the in-memory store behind shardkv.
//
// Store composes a sharded map of string keys to string values and adds
// bulk operations plus dump and load to a JSON file.
//
// Features:
//
//   - Sharded Storage: keys are spread over a power-of-two number of shards,
//     each guarded by its own RWMutex
//   - Conditional Writes: add-if-absent and update-if-present are single
//     critical sections on the owning shard
//   - Bulk Operations: per-key results with the list of skipped keys
//   - Dump/Load: whole-store persistence through package snapshot
//
// Thread Safety:
//
// Per-key operations are linearizable per key. Whole-store operations visit
// shards in sequence and give no isolation across shards.
package memory
