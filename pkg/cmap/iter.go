package cmap

import "iter"

// entry is a copied key-value pair.
type entry[V any] struct {
	key   string
	value V
}

// All returns a sequence over the shard's entries.
//
// The sequence is lazy and restartable: the shard is read only when the
// sequence is ranged, and every range reads it again. Entries are copied
// under the read lock and yielded after the lock is released, so the loop
// body may call back into the map, including this shard.
func (s *Shard[V]) All() iter.Seq2[string, V] {
	return func(yield func(string, V) bool) {
		for _, e := range s.copyEntries() {
			if !yield(e.key, e.value) {
				return
			}
		}
	}
}

func (s *Shard[V]) copyEntries() []entry[V] {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]entry[V], 0, len(s.items))
	for k, v := range s.items {
		entries = append(entries, entry[V]{key: k, value: v})
	}
	return entries
}

// All returns a sequence over every entry in the map, shard by shard.
//
// Each shard is copied at the moment the iteration reaches it. The result
// is not a single point-in-time view of the whole map.
func (m *Map[V]) All() iter.Seq2[string, V] {
	return func(yield func(string, V) bool) {
		for _, shard := range m.shards {
			for k, v := range shard.All() {
				if !yield(k, v) {
					return
				}
			}
		}
	}
}

// Items returns a copy of all key-value pairs as a plain map.
func (m *Map[V]) Items() map[string]V {
	items := make(map[string]V, m.Count())
	for k, v := range m.All() {
		items[k] = v
	}
	return items
}
