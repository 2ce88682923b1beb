package memory

import (
	"github.com/yndnr/shardkv/internal/storage/snapshot"
	"github.com/yndnr/shardkv/pkg/cmap"
)

// BulkResult reports the outcome of a multi-key operation.
//
// Failed lists the keys the operation skipped: already present for AddMany,
// absent for UpdateMany and RemoveMany. It is never nil.
type BulkResult struct {
	Count  int      `json:"count"`
	Failed []string `json:"failed"`
}

// Store is the in-memory key-value store.
//
// Every key lives in exactly one shard, chosen by cmap.Index. Per-key
// operations take that shard's lock only. Whole-store operations (Snapshot,
// ClearAll, Replace, Load) visit the shards one after another and are not
// atomic across the store: a concurrent writer may land between two shards.
type Store struct {
	entries *cmap.Map[string]
}

// Option configures the Store.
type Option func(*storeOptions)

type storeOptions struct {
	shardCount int
}

// WithShardCount sets the number of shards. Values that are not a power of
// two fall back to cmap.DefaultShardCount.
func WithShardCount(n int) Option {
	return func(o *storeOptions) {
		o.shardCount = n
	}
}

// New creates an empty store.
func New(opts ...Option) *Store {
	o := storeOptions{shardCount: cmap.DefaultShardCount}
	for _, opt := range opts {
		opt(&o)
	}

	return &Store{
		entries: cmap.NewWithShards[string](o.shardCount),
	}
}

// TryAdd stores value under key if the key is absent.
func (s *Store) TryAdd(key, value string) bool {
	return s.entries.SetIfAbsent(key, value)
}

// TryGet returns the value stored under key.
func (s *Store) TryGet(key string) (string, bool) {
	return s.entries.Get(key)
}

// TryUpdate replaces the value of an existing key.
//
// The presence check and the write happen under the same shard lock, so a
// concurrent update of the same key never makes this report absent.
func (s *Store) TryUpdate(key, value string) bool {
	return s.entries.SetIfPresent(key, value)
}

// TryRemove deletes key and reports whether it was present.
func (s *Store) TryRemove(key string) bool {
	return s.entries.Delete(key)
}

// AddMany applies TryAdd to every entry. Keys that already exist are
// reported in Failed and left unchanged. There is no rollback.
func (s *Store) AddMany(entries map[string]string) BulkResult {
	res := BulkResult{Failed: []string{}}
	for k, v := range entries {
		if s.entries.SetIfAbsent(k, v) {
			res.Count++
		} else {
			res.Failed = append(res.Failed, k)
		}
	}
	return res
}

// UpdateMany applies TryUpdate to every entry. Absent keys are reported in
// Failed.
func (s *Store) UpdateMany(entries map[string]string) BulkResult {
	res := BulkResult{Failed: []string{}}
	for k, v := range entries {
		if s.entries.SetIfPresent(k, v) {
			res.Count++
		} else {
			res.Failed = append(res.Failed, k)
		}
	}
	return res
}

// RemoveMany applies TryRemove to every key in order. A key listed twice is
// removed once and reported absent the second time.
func (s *Store) RemoveMany(keys []string) BulkResult {
	res := BulkResult{Failed: []string{}}
	for _, k := range keys {
		if s.entries.Delete(k) {
			res.Count++
		} else {
			res.Failed = append(res.Failed, k)
		}
	}
	return res
}

// Snapshot returns a copy of every entry. Shards are read one at a time, so
// the result is not a point-in-time view when writers are active.
func (s *Store) Snapshot() map[string]string {
	return s.entries.Items()
}

// ClearAll removes every entry, one shard at a time.
func (s *Store) ClearAll() {
	s.entries.Clear()
}

// Len returns the number of entries across all shards.
func (s *Store) Len() int {
	return s.entries.Count()
}

// ShardCount returns the fixed number of shards.
func (s *Store) ShardCount() int {
	return s.entries.ShardCount()
}

// ShardStats returns the entry count of every shard.
func (s *Store) ShardStats() []cmap.ShardStats {
	return s.entries.Stats()
}

// Replace clears the store and inserts entries.
//
// This is two passes over the shards. Writes that race with Replace may
// survive or be lost, and a reader may observe the store partially cleared
// or partially filled.
func (s *Store) Replace(entries map[string]string) {
	s.entries.Clear()
	for k, v := range entries {
		s.entries.Set(k, v)
	}
}

// Dump writes the current contents to path as a JSON object.
func (s *Store) Dump(path string) (*snapshot.Info, error) {
	return snapshot.WriteFile(path, s.Snapshot())
}

// Load replaces the contents of the store with the dump at path.
//
// The file is parsed completely before the store is touched. A missing
// file yields snapshot.ErrNotFound and malformed content yields
// snapshot.ErrCorrupt; in both cases the store is left as it was.
func (s *Store) Load(path string) (*snapshot.Info, error) {
	entries, info, err := snapshot.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s.Replace(entries)
	return info, nil
}
