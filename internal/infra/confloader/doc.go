// Package confloader loads configuration with koanf.
//
// Sources, from lowest to highest priority:
//
//  1. Values already present in the target struct (defaults)
//  2. A YAML configuration file
//  3. Environment variables
//  4. Explicit overrides, typically command-line flags
//
// Environment variables are upper case and carry a prefix. A double
// underscore separates sections and a single underscore is kept inside a
// key, so SHARDKV_STORAGE__SHARD_COUNT sets storage.shard_count.
//
// Watcher reports changes of the configuration file through fsnotify so the
// caller can reload it.
package confloader
