package handler

import (
	"net/http"
	"time"

	"github.com/yndnr/shardkv/internal/infra/buildinfo"
)

// handleShards handles GET /admin/v1/shards.
func (h *Handler) handleShards(w http.ResponseWriter, r *http.Request) {
	stats := h.kv.ShardStats(r.Context())

	total := 0
	for _, s := range stats {
		total += s.Count
	}

	h.writeJSON(w, r, http.StatusOK, ShardsResponse{
		ShardCount: len(stats),
		Total:      total,
		Shards:     stats,
	})
}

// handleStatus handles GET /admin/v1/status/summary.
func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	info := buildinfo.Get()
	h.writeJSON(w, r, http.StatusOK, StatusResponse{
		Status:     "running",
		Version:    info.Version,
		Commit:     info.Commit,
		GoVersion:  info.GoVersion,
		Keys:       h.kv.Len(),
		ShardCount: h.kv.ShardCount(),
		Time:       time.Now().UTC().Format(time.RFC3339),
	})
}
