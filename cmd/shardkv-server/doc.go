// Package main provides the entry point for shardkv-server.
//
// The server holds a sharded in-memory key-value store and exposes it over
// HTTP/HTTPS:
//
//   - Per-key and bulk operations under /kv
//   - Dump to and load from JSON files under storage.data_dir
//   - Shard statistics under /admin/v1
//   - Prometheus metrics on /metrics
//
// With server.resp.enabled (or -resp-addr) the same store is also served
// over the Redis protocol, so redis-cli and Redis client libraries work
// against it.
//
// With server.local.socket_path (or -socket) the HTTP API is also served,
// without rate limiting, on a Unix socket readable only by the server's
// user. shardkv-cli reaches it with --server unix:///path/to.sock.
//
// Usage:
//
//	shardkv-server [flags]
//	shardkv-server -config /etc/shardkv/server.yaml
//	shardkv-server -addr 0.0.0.0:5034 -log-level debug
//
// Configuration is read from defaults, then the YAML file, then SHARDKV_*
// environment variables, then command-line flags. Changes to log.level in
// the file are applied without a restart.
package main
