package handler

import (
	"net/http"
	"slices"
)

// handleAddMany handles POST /kv/bulk.
//
// Responds 200 when at least one key was added and 409 with the skipped
// keys in details when none was.
func (h *Handler) handleAddMany(w http.ResponseWriter, r *http.Request) {
	var entries map[string]string
	if err := h.decodeJSON(w, r, &entries); err != nil {
		h.handleServiceError(w, r, err, nil)
		return
	}

	res, err := h.kv.AddMany(r.Context(), entries)
	slices.Sort(res.Failed)
	if err != nil {
		var details any
		if len(res.Failed) > 0 {
			details = SkippedDetails{Skipped: res.Failed}
		}
		h.handleServiceError(w, r, err, details)
		return
	}
	h.writeJSON(w, r, http.StatusOK, AddManyResponse{Added: res.Count, Skipped: res.Failed})
}

// handleUpdateMany handles PUT /kv/bulk.
func (h *Handler) handleUpdateMany(w http.ResponseWriter, r *http.Request) {
	var entries map[string]string
	if err := h.decodeJSON(w, r, &entries); err != nil {
		h.handleServiceError(w, r, err, nil)
		return
	}

	res, err := h.kv.UpdateMany(r.Context(), entries)
	slices.Sort(res.Failed)
	if err != nil {
		h.handleServiceError(w, r, err, absentDetails(res.Failed))
		return
	}
	h.writeJSON(w, r, http.StatusOK, UpdateManyResponse{Updated: res.Count, Absent: res.Failed})
}

// handleRemoveMany handles DELETE /kv/bulk.
//
// Absent keys are reported in request order.
func (h *Handler) handleRemoveMany(w http.ResponseWriter, r *http.Request) {
	var keys []string
	if err := h.decodeJSON(w, r, &keys); err != nil {
		h.handleServiceError(w, r, err, nil)
		return
	}

	res, err := h.kv.RemoveMany(r.Context(), keys)
	if err != nil {
		h.handleServiceError(w, r, err, absentDetails(res.Failed))
		return
	}
	h.writeJSON(w, r, http.StatusOK, RemoveManyResponse{Removed: res.Count, Absent: res.Failed})
}

func absentDetails(keys []string) any {
	if len(keys) == 0 {
		return nil
	}
	return AbsentDetails{Absent: keys}
}
