// Package metric provides Prometheus metrics for shardkv.
//
//   - prometheus.go: private registry, metric vectors and the /metrics handler
//   - collector.go: scrape-time collector for per-shard key counts
//
// Metrics include operation outcomes by result, bulk key counts, snapshot
// durations and sizes, and HTTP request counts and latencies. A nil
// *Registry is valid and records nothing.
package metric
