// Package config defines the shardkv server configuration.
//
//   - spec.go: ServerConfig struct definition
//   - default.go: Default configuration values
//   - verify.go: Validation before the server starts
//   - sanitize.go: Copy of the config that is safe to log
//
// Configuration is loaded via internal/infra/confloader from a YAML file,
// SHARDKV_ environment variables and command-line flags.
package config
