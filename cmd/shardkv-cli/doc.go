// Package main provides the entry point for shardkv-cli.
//
// The CLI talks to a shardkv server over HTTP:
//
//   - set, change, get, delete for single keys
//   - setmult, changemult, delmult for several keys at once
//   - getall, deleteall, dump, load for the whole store
//   - shards, status, health for inspection
//
// Usage:
//
//	shardkv-cli [global flags] command [args]
//	shardkv-cli -s localhost:5034 set color red
//	shardkv-cli -o json getall
//	shardkv-cli repl
//
// The repl command starts an interactive session that accepts lines such
// as SET key value, SETMULT {a:1 b:2} and DELMULT {a b}.
package main
