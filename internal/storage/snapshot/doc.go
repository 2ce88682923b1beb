// Package snapshot provides dump and load support for shardkv.
//
// A dump is a single UTF-8 JSON object mapping every key to its string
// value. There is no envelope, version field or ordering guarantee:
//
//	{"user:1":"alice","αβ":"π"}
//
// Files are written to a temporary sibling and renamed into place. Reading
// decodes the whole file before returning, so a caller can validate a dump
// before touching live data.
package snapshot
