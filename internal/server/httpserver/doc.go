// Package httpserver provides the HTTP/HTTPS server for shardkv.
//
// The server wraps net/http with configured timeouts and optional TLS. The
// router places the API handler behind a middleware chain:
//
//	Recover -> RequestID -> Audit -> RateLimit -> handler
//
// RequestID tags every request with a ULID (or the inbound X-Request-ID).
// Audit writes the access log and the HTTP request metrics. RateLimit is a
// per-client-IP token bucket and is skipped when the limit is zero.
package httpserver
