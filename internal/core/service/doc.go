// Package service provides the shardkv domain service.
//
// KVService sits between the transports and the store. It validates
// arguments, turns the store's boolean outcomes into domain errors, resolves
// dump paths against the data directory, and records metrics and logs for
// every operation. The storage dependency is the Store interface, so tests
// can substitute their own implementation.
package service
