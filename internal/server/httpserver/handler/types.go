package handler

import (
	"strconv"
	"time"

	"github.com/yndnr/shardkv/pkg/cmap"
)

// Response is the standard API response envelope.
// All JSON responses use this format (except /metrics which uses Prometheus format).
type Response struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data,omitempty"`
	Details   any    `json:"details,omitempty"` // Additional error details
}

// NewResponse creates a success response.
func NewResponse(requestID string, data any) *Response {
	return &Response{
		Code:      "OK",
		Message:   "Success",
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Data:      data,
	}
}

// NewErrorResponse creates an error response.
func NewErrorResponse(requestID, code, message string, details any) *Response {
	return &Response{
		Code:      code,
		Message:   message,
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Details:   details,
	}
}

// KVRequest is the request body for POST /kv and PUT /kv.
type KVRequest struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// KVResponse carries one entry.
type KVResponse struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// KeyResponse names the key a write applied to.
type KeyResponse struct {
	Key string `json:"key"`
}

// ClearResponse is the response body for DELETE /kv.
type ClearResponse struct {
	Cleared bool `json:"cleared"`
}

// AddManyResponse is the response body for POST /kv/bulk.
type AddManyResponse struct {
	Added   int      `json:"added"`
	Skipped []string `json:"skipped"`
}

// UpdateManyResponse is the response body for PUT /kv/bulk.
type UpdateManyResponse struct {
	Updated int      `json:"updated"`
	Absent  []string `json:"absent"`
}

// RemoveManyResponse is the response body for DELETE /kv/bulk.
type RemoveManyResponse struct {
	Removed int      `json:"removed"`
	Absent  []string `json:"absent"`
}

// SkippedDetails accompanies a 409 from POST /kv/bulk.
type SkippedDetails struct {
	Skipped []string `json:"skipped"`
}

// AbsentDetails accompanies a 404 from PUT or DELETE /kv/bulk.
type AbsentDetails struct {
	Absent []string `json:"absent"`
}

// PathRequest is the request body for POST /kv/dump and POST /kv/load.
type PathRequest struct {
	Path string `json:"path"`
}

// SnapshotResponse describes a dump file that was written or loaded.
type SnapshotResponse struct {
	Path    string `json:"path"`
	Entries int    `json:"entries"`
	Bytes   int64  `json:"bytes"`
}

// ShardsResponse is the response body for GET /admin/v1/shards.
type ShardsResponse struct {
	ShardCount int               `json:"shard_count"`
	Total      int               `json:"total"`
	Shards     []cmap.ShardStats `json:"shards"`
}

// StatusResponse is the response body for GET /admin/v1/status/summary.
type StatusResponse struct {
	Status     string `json:"status"`
	Version    string `json:"version"`
	Commit     string `json:"commit"`
	GoVersion  string `json:"go_version"`
	Keys       int    `json:"keys"`
	ShardCount int    `json:"shard_count"`
	Time       string `json:"time"`
}

func formatBytes(n int64) string {
	return strconv.FormatInt(n, 10) + " bytes"
}
