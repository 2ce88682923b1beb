package benchmark

import (
	"crypto/rand"
	"fmt"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/yndnr/shardkv/internal/storage/memory"
)

// KeyCounts are the store sizes used by the scaling benchmarks.
var KeyCounts = []int{1000, 10000, 100000}

// ShardCounts are compared by the contention benchmarks.
var ShardCounts = []int{1, 4, 16, 32, 128}

// newKeys returns n distinct keys in ULID order, so that neighbouring keys
// share long prefixes like real time-ordered identifiers.
func newKeys(n int) []string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	ts := ulid.Timestamp(time.Now())

	keys := make([]string, n)
	for i := range keys {
		keys[i] = "k-" + strings.ToLower(ulid.MustNew(ts, entropy).String())
	}
	return keys
}

// newEntries returns n entries with values of valueLen bytes.
func newEntries(n, valueLen int) map[string]string {
	value := strings.Repeat("v", valueLen)
	entries := make(map[string]string, n)
	for _, k := range newKeys(n) {
		entries[k] = value
	}
	return entries
}

// prefillStore adds count entries and returns their keys.
func prefillStore(store *memory.Store, count int) []string {
	keys := newKeys(count)
	for i, k := range keys {
		store.TryAdd(k, fmt.Sprintf("value-%d", i))
	}
	return keys
}

// reportMemory reports heap usage after a forced collection.
func reportMemory(b *testing.B, prefix string) {
	var m runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&m)
	b.ReportMetric(float64(m.Alloc)/(1024*1024), prefix+"_MB")
	b.ReportMetric(float64(m.NumGC), prefix+"_GC")
}

// runWithKeyCounts runs benchFn once per store size.
func runWithKeyCounts(b *testing.B, counts []int, benchFn func(b *testing.B, count int)) {
	for _, count := range counts {
		b.Run(fmt.Sprintf("keys_%d", count), func(b *testing.B) {
			benchFn(b, count)
		})
	}
}
