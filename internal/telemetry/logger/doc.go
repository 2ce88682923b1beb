// Package logger provides structured logging for shardkv.
//
// It wraps log/slog:
//
//   - logger.go: Logger interface, configuration and the global level
//   - context.go: Context-aware logging with request IDs
//   - redact.go: Masking of secrets and, optionally, of stored values
//
// Features:
//
//   - JSON and text output formats
//   - Log level filtering, adjustable at runtime with SetLevel
//   - Value redaction so user data never reaches the log stream
//   - Context propagation for request tracing
package logger
