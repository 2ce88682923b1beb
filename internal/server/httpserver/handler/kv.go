package handler

import (
	"net/http"
)

// handleAdd handles POST /kv.
func (h *Handler) handleAdd(w http.ResponseWriter, r *http.Request) {
	var req KVRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.handleServiceError(w, r, err, nil)
		return
	}

	if err := h.kv.Add(r.Context(), req.Key, req.Value); err != nil {
		h.handleServiceError(w, r, err, nil)
		return
	}
	h.writeJSON(w, r, http.StatusOK, KeyResponse{Key: req.Key})
}

// handleUpdate handles PUT /kv.
func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req KVRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.handleServiceError(w, r, err, nil)
		return
	}

	if err := h.kv.Update(r.Context(), req.Key, req.Value); err != nil {
		h.handleServiceError(w, r, err, nil)
		return
	}
	h.writeJSON(w, r, http.StatusOK, KeyResponse{Key: req.Key})
}

// handleGet handles GET /kv/{key...}.
func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")

	value, err := h.kv.Get(r.Context(), key)
	if err != nil {
		h.handleServiceError(w, r, err, nil)
		return
	}
	h.writeJSON(w, r, http.StatusOK, KVResponse{Key: key, Value: value})
}

// handleRemove handles DELETE /kv/{key...}.
func (h *Handler) handleRemove(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")

	if err := h.kv.Remove(r.Context(), key); err != nil {
		h.handleServiceError(w, r, err, nil)
		return
	}
	h.writeJSON(w, r, http.StatusOK, KeyResponse{Key: key})
}

// handleGetAll handles GET /kv.
func (h *Handler) handleGetAll(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, h.kv.GetAll(r.Context()))
}

// handleClearAll handles DELETE /kv. An already empty store yields 204.
func (h *Handler) handleClearAll(w http.ResponseWriter, r *http.Request) {
	if !h.kv.ClearAll(r.Context()) {
		h.writeNoContent(w, r)
		return
	}
	h.writeJSON(w, r, http.StatusOK, ClearResponse{Cleared: true})
}
