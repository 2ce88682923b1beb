// Package benchmark measures the store and the dump codec at several key
// and shard counts. It holds benchmarks only.
//
//	go test -run=^$ -bench=. -benchmem ./internal/tests/benchmark/
//
// BenchmarkStoreParallel is the one to watch when changing the shard
// count or the hash: it shows lock contention directly. Feed two runs to
// benchstat to compare them.
package benchmark
