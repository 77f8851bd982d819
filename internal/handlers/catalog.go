package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
)

// HandleCatalog lists the store's collections.
func (h *Handler) HandleCatalog(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.writeJSON(w, map[string]any{
			"working": h.store.Working(),
			"history": h.store.History(),
			"archive": h.store.Archive(),
		})
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleCatalogEntry routes per-entry operations:
//
//	PUT    /api/catalog/{id}          edit one record field
//	POST   /api/catalog/{id}/restore  move an archived entry back to history
//	DELETE /api/catalog/{id}          delete from history or archive
func (h *Handler) HandleCatalogEntry(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/catalog/")
	id, action, _ := strings.Cut(path, "/")
	if id == "" {
		h.writeError(w, "Missing catalog entry id", http.StatusBadRequest)
		return
	}

	switch {
	case r.Method == http.MethodPut && action == "":
		var req struct {
			Field string `json:"field"`
			Value string `json:"value"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
			return
		}
		h.store.EditField(id, req.Field, req.Value)
		h.writeJSON(w, map[string]any{"updated": true})
	case r.Method == http.MethodPost && action == "restore":
		h.store.Restore(id)
		h.writeJSON(w, map[string]any{"restored": true})
	case r.Method == http.MethodDelete && action == "":
		h.store.DeleteEntry(id)
		h.writeJSON(w, map[string]any{"deleted": true})
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}
