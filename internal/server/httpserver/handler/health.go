package handler

import (
	"net/http"
	"time"
)

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// ReadyResponse is the body of GET /ready. The store is ready as soon as
// its shards exist, so this never fails once the server listens.
type ReadyResponse struct {
	Status     string `json:"status"`
	ShardCount int    `json:"shard_count"`
	Keys       int    `json:"keys"`
}

// handleHealth handles GET /health. It does not touch the store.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, HealthResponse{
		Status: "healthy",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, ReadyResponse{
		Status:     "ready",
		ShardCount: h.kv.ShardCount(),
		Keys:       h.kv.Len(),
	})
}
