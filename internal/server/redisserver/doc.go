// Package redisserver serves the key-value store over the Redis
// serialization protocol (RESP2), so stock Redis clients and redis-cli can
// talk to shardkv.
//
// Supported commands:
//   - PING, ECHO, QUIT, COMMAND
//   - GET, SET [NX|XX], SETNX, MGET, MSET, DEL, EXISTS
//   - KEYS, DBSIZE, FLUSHDB, FLUSHALL
//
// Every command goes through the same service as the HTTP API, so both
// front ends see one store. Domain errors are reported as
// "-ERR <code> <message>".
package redisserver
