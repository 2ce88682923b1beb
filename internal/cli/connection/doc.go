// Package connection talks to a shardkv server over HTTP.
//
// HTTPClient wraps net/http with the JSON envelope the server uses: every
// response carries code, message and request_id, plus data on success and
// details on some errors. Do decodes data into a caller-supplied value and
// turns error envelopes into *APIError.
//
// Servers are addressed by host:port, by http(s) URL, or by unix:// socket
// path for the server's local listener.
package connection
