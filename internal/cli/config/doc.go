// Package config holds the shardkv-cli settings file (~/.shardkv/cli.yaml).
//
// The file is optional. Values from it are defaults only: command-line flags
// and SHARDKV_SERVER take precedence over it.
package config
