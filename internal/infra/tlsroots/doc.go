// Package tlsroots holds the TLS plumbing shared by the server and the CLI.
//
//   - roots.go: trust roots for clients (system pool plus an optional CA file)
//   - watcher.go: the server certificate, reloaded when its files change
//
// A failed reload keeps serving the previous certificate.
package tlsroots
