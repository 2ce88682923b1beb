package handler

import (
	"net/http"

	"github.com/yndnr/shardkv/internal/storage/snapshot"
)

// handleDump handles POST /kv/dump.
func (h *Handler) handleDump(w http.ResponseWriter, r *http.Request) {
	var req PathRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.handleServiceError(w, r, err, nil)
		return
	}

	info, err := h.kv.Dump(r.Context(), req.Path)
	if err != nil {
		h.handleServiceError(w, r, err, nil)
		return
	}
	h.writeJSON(w, r, http.StatusOK, snapshotResponse(info))
}

// handleLoad handles POST /kv/load. The store is only replaced when the
// whole file parsed.
func (h *Handler) handleLoad(w http.ResponseWriter, r *http.Request) {
	var req PathRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.handleServiceError(w, r, err, nil)
		return
	}

	info, err := h.kv.Load(r.Context(), req.Path)
	if err != nil {
		h.handleServiceError(w, r, err, nil)
		return
	}
	h.writeJSON(w, r, http.StatusOK, snapshotResponse(info))
}

func snapshotResponse(info *snapshot.Info) SnapshotResponse {
	return SnapshotResponse{
		Path:    info.Path,
		Entries: info.Entries,
		Bytes:   info.Size,
	}
}
