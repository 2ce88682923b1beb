// Package handler provides the HTTP API of shardkv-server.
//
// Routes:
//
//   - Single key: POST /kv, PUT /kv, GET /kv/{key...}, DELETE /kv/{key...}
//   - Whole store: GET /kv, DELETE /kv
//   - Bulk: POST /kv/bulk, PUT /kv/bulk, DELETE /kv/bulk
//   - Persistence: POST /kv/dump, POST /kv/load
//   - Admin: GET /admin/v1/shards, GET /admin/v1/status/summary
//   - Health: GET /health, GET /ready, GET /metrics (when enabled)
//
// Every JSON response uses the Response envelope. Failures carry a
// domain error code in both the body and the X-Error-Code header.
package handler
