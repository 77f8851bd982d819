package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
)

// HandleBatch lists the current batch items.
func (h *Handler) HandleBatch(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.writeJSON(w, map[string]any{
			"items":   h.orchestrator.Items(),
			"running": h.orchestrator.Running(),
		})
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleBatchRun starts a run over the pending items. The run proceeds in
// the background; a second start while one is active is refused.
func (h *Handler) HandleBatchRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.orchestrator.Running() {
		h.writeError(w, "A batch run is already active", http.StatusConflict)
		return
	}

	autoCrop := r.URL.Query().Get("crop") != "false"
	go func() {
		if err := h.orchestrator.Run(context.Background(), autoCrop); err != nil {
			slog.Error("Batch run refused", "err", err)
		}
	}()

	// Headers freeze once the status line is written.
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	if err := json.NewEncoder(w).Encode(map[string]any{"started": true}); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
	}
}

// HandleBatchAccept moves every completed item into the catalog history.
func (h *Handler) HandleBatchAccept(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	entries := h.store.AcceptBatch(h.orchestrator.TakeCompleted())
	slog.Info("Batch items accepted into catalog", "count", len(entries))
	h.writeJSON(w, map[string]any{"accepted": len(entries)})
}

// HandleBatchItem routes per-item operations:
//
//	GET    /api/batch/{id}/image  render the item's preview image
//	PUT    /api/batch/{id}        edit one record field
//	POST   /api/batch/{id}/reset  put a failed item back to pending
//	DELETE /api/batch/{id}        remove the item
func (h *Handler) HandleBatchItem(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/batch/")
	id, action, _ := strings.Cut(path, "/")
	if id == "" {
		h.writeError(w, "Missing batch item id", http.StatusBadRequest)
		return
	}

	switch {
	case r.Method == http.MethodGet && action == "image":
		item, ok := h.orchestrator.Item(id)
		if !ok {
			h.writeError(w, "Batch item not found", http.StatusNotFound)
			return
		}
		// Prefer the cropped asset once processing produced one.
		data := item.Processed
		if len(data) == 0 {
			data = item.Source
		}
		w.Header().Set("Content-Type", http.DetectContentType(data))
		if _, err := w.Write(data); err != nil {
			slog.Error("Failed to stream preview image", "id", id, "err", err)
		}
	case r.Method == http.MethodPut && action == "":
		var req struct {
			Field string `json:"field"`
			Value string `json:"value"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
			return
		}
		h.orchestrator.EditField(id, req.Field, req.Value)
		h.writeJSON(w, map[string]any{"updated": true})
	case r.Method == http.MethodPost && action == "reset":
		h.orchestrator.Reset(id)
		h.writeJSON(w, map[string]any{"reset": true})
	case r.Method == http.MethodDelete && action == "":
		h.orchestrator.Remove(id)
		h.writeJSON(w, map[string]any{"deleted": true})
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}
