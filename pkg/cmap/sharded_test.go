package cmap

import (
	"fmt"
	"sync"
	"testing"
)

// newMap returns a map with the default shard count.
func newMap[V any]() *Map[V] {
	return NewWithShards[V](DefaultShardCount)
}

func TestNewWithShards(t *testing.T) {
	tests := []struct {
		input    int
		expected int
	}{
		{0, DefaultShardCount},  // invalid → default
		{-1, DefaultShardCount}, // invalid → default
		{3, DefaultShardCount},  // not power of 2 → default
		{12, DefaultShardCount}, // not power of 2 → default
		{1, 1},
		{2, 2},
		{4, 4},
		{8, 8},
		{16, 16},
		{256, 256},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("shards=%d", tt.input), func(t *testing.T) {
			m := NewWithShards[int](tt.input)
			if len(m.shards) != tt.expected {
				t.Errorf("NewWithShards(%d) shard count = %d, want %d",
					tt.input, len(m.shards), tt.expected)
			}
			if m.shardMask != uint64(tt.expected-1) {
				t.Errorf("shardMask = %d, want %d", m.shardMask, tt.expected-1)
			}
		})
	}
}

func TestIsPowerOfTwo(t *testing.T) {
	for n, want := range map[int]bool{
		-4: false, 0: false, 1: true, 2: true, 3: false, 6: false, 64: true, 1024: true,
	} {
		if got := IsPowerOfTwo(n); got != want {
			t.Errorf("IsPowerOfTwo(%d) = %v, want %v", n, got, want)
		}
	}
}

func TestShardIndex_Deterministic(t *testing.T) {
	a := NewWithShards[int](16)
	b := NewWithShards[int](16)

	for i := 0; i < 1000; i++ {
		key := fmt.Sprintf("key-%d", i)
		first := a.ShardIndex(key)
		if first < 0 || first >= 16 {
			t.Fatalf("ShardIndex(%q) = %d, out of range", key, first)
		}
		if again := a.ShardIndex(key); again != first {
			t.Fatalf("ShardIndex(%q) changed between calls: %d then %d", key, first, again)
		}
		// Unseeded hash: independent maps agree.
		if other := b.ShardIndex(key); other != first {
			t.Fatalf("ShardIndex(%q) differs across maps: %d vs %d", key, first, other)
		}
	}
}

func TestShardIndex_UsesAllShards(t *testing.T) {
	m := NewWithShards[int](8)
	seen := make(map[int]bool)
	for i := 0; i < 1000; i++ {
		seen[m.ShardIndex(fmt.Sprintf("k%d", i))] = true
	}
	if len(seen) != 8 {
		t.Errorf("1000 keys landed in %d shards, want 8", len(seen))
	}
}

func TestSetAndGet(t *testing.T) {
	m := newMap[int]()

	m.Set("key1", 100)
	m.Set("key2", 200)

	val, ok := m.Get("key1")
	if !ok || val != 100 {
		t.Errorf("Get(key1) = (%d, %v), want (100, true)", val, ok)
	}

	val, ok = m.Get("key2")
	if !ok || val != 200 {
		t.Errorf("Get(key2) = (%d, %v), want (200, true)", val, ok)
	}

	val, ok = m.Get("nonexistent")
	if ok {
		t.Errorf("Get(nonexistent) = (%d, %v), want (0, false)", val, ok)
	}
}

func TestSetIfAbsent(t *testing.T) {
	m := newMap[string]()

	if !m.SetIfAbsent("k", "first") {
		t.Fatal("SetIfAbsent on new key should return true")
	}
	if m.SetIfAbsent("k", "second") {
		t.Fatal("SetIfAbsent on existing key should return false")
	}
	if v, _ := m.Get("k"); v != "first" {
		t.Errorf("value = %q, want %q", v, "first")
	}
}

func TestSetIfPresent(t *testing.T) {
	m := newMap[string]()

	if m.SetIfPresent("k", "v") {
		t.Fatal("SetIfPresent on absent key should return false")
	}
	if _, ok := m.Get("k"); ok {
		t.Fatal("SetIfPresent must not create the key")
	}

	m.Set("k", "old")
	if !m.SetIfPresent("k", "new") {
		t.Fatal("SetIfPresent on present key should return true")
	}
	if v, _ := m.Get("k"); v != "new" {
		t.Errorf("value = %q, want %q", v, "new")
	}
}

func TestDelete(t *testing.T) {
	m := newMap[int]()

	m.Set("key1", 100)
	if !m.Delete("key1") {
		t.Error("Delete(key1) should return true")
	}
	if _, ok := m.Get("key1"); ok {
		t.Error("key1 should not exist after deletion")
	}
	if m.Delete("key1") {
		t.Error("second Delete(key1) should return false")
	}
}

func TestCount(t *testing.T) {
	m := newMap[int]()

	if m.Count() != 0 {
		t.Errorf("Count() = %d, want 0", m.Count())
	}

	m.Set("key1", 1)
	m.Set("key2", 2)
	m.Set("key3", 3)

	if m.Count() != 3 {
		t.Errorf("Count() = %d, want 3", m.Count())
	}

	m.Delete("key2")
	if m.Count() != 2 {
		t.Errorf("Count() = %d, want 2", m.Count())
	}
}

func TestClear(t *testing.T) {
	m := newMap[int]()

	m.Set("key1", 1)
	m.Set("key2", 2)
	if dropped := m.Clear(); dropped != 2 {
		t.Errorf("Clear() dropped %d, want 2", dropped)
	}

	if m.Count() != 0 {
		t.Errorf("Count() after Clear() = %d, want 0", m.Count())
	}

	if dropped := m.Clear(); dropped != 0 {
		t.Errorf("Clear() on empty map dropped %d, want 0", dropped)
	}
}

func TestSameShardKeysAreIndependent(t *testing.T) {
	m := NewWithShards[string](4)

	// Find two distinct keys that land in the same shard.
	first := "seed"
	target := m.ShardIndex(first)
	var second string
	for i := 0; ; i++ {
		candidate := fmt.Sprintf("other-%d", i)
		if m.ShardIndex(candidate) == target {
			second = candidate
			break
		}
	}

	if !m.SetIfAbsent(first, "one") || !m.SetIfAbsent(second, "two") {
		t.Fatal("both keys should be added")
	}
	if v, _ := m.Get(first); v != "one" {
		t.Errorf("Get(%q) = %q, want %q", first, v, "one")
	}
	if v, _ := m.Get(second); v != "two" {
		t.Errorf("Get(%q) = %q, want %q", second, v, "two")
	}
	if n := m.Shard(target).Len(); n != 2 {
		t.Errorf("shard %d holds %d keys, want 2", target, n)
	}
}

func TestConcurrentAccess(t *testing.T) {
	m := newMap[int]()
	var wg sync.WaitGroup
	numGoroutines := 100
	numOps := 1000

	// Concurrent writes
	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for j := 0; j < numOps; j++ {
				m.Set(fmt.Sprintf("%d-%d", base, j), j)
			}
		}(i)
	}
	wg.Wait()

	if m.Count() != numGoroutines*numOps {
		t.Errorf("Count() = %d, want %d", m.Count(), numGoroutines*numOps)
	}

	// Concurrent mixed operations
	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for j := 0; j < numOps; j++ {
				key := fmt.Sprintf("%d-%d", base, j)
				m.SetIfPresent(key, j*2)
				m.Get(key)
				m.Delete(key)
			}
		}(i)
	}
	wg.Wait()
}

func TestConcurrentSetIfPresent_NoSpuriousMiss(t *testing.T) {
	m := NewWithShards[int](1)
	m.Set("hot", 0)

	var wg sync.WaitGroup
	misses := make(chan int, 64)
	for g := 0; g < 16; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				if !m.SetIfPresent("hot", g*1000+i) {
					misses <- g
					return
				}
			}
		}(g)
	}
	wg.Wait()
	close(misses)

	for g := range misses {
		t.Errorf("goroutine %d saw SetIfPresent report absent for a present key", g)
	}
}

func TestShardCount(t *testing.T) {
	m := NewWithShards[int](8)
	if m.ShardCount() != 8 {
		t.Errorf("ShardCount() = %d, want 8", m.ShardCount())
	}
}

func TestStats(t *testing.T) {
	m := NewWithShards[int](4)

	for i := 0; i < 100; i++ {
		m.Set(fmt.Sprintf("item-%d", i), i)
	}

	stats := m.Stats()
	if len(stats) != 4 {
		t.Errorf("Stats() length = %d, want 4", len(stats))
	}

	totalCount := 0
	for i, s := range stats {
		if s.Index != i {
			t.Errorf("stats[%d].Index = %d", i, s.Index)
		}
		totalCount += s.Count
	}
	if totalCount != 100 {
		t.Errorf("Total count from stats = %d, want 100", totalCount)
	}
}

func TestStructValue(t *testing.T) {
	type Person struct {
		Name string
		Age  int
	}

	m := newMap[Person]()

	m.Set("person1", Person{Name: "Alice", Age: 30})
	m.Set("person2", Person{Name: "Bob", Age: 25})

	val, ok := m.Get("person1")
	if !ok || val.Name != "Alice" || val.Age != 30 {
		t.Errorf("Get(person1) = (%+v, %v), want ({Alice 30}, true)", val, ok)
	}
}

func BenchmarkShardIndex(b *testing.B) {
	m := newMap[int]()
	keys := make([]string, 1024)
	for i := range keys {
		keys[i] = fmt.Sprintf("bench-key-%d", i)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.ShardIndex(keys[i&1023])
	}
}

func BenchmarkSetIfAbsentParallel(b *testing.B) {
	m := NewWithShards[int](64)
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			m.SetIfAbsent(fmt.Sprintf("k-%d", i), i)
			i++
		}
	})
}
