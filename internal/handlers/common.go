package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/oldleaf/shelfscan/internal/batch"
	"github.com/oldleaf/shelfscan/internal/catalog"
	"github.com/oldleaf/shelfscan/internal/pipeline"
	"github.com/oldleaf/shelfscan/internal/synopsis"
	"github.com/oldleaf/shelfscan/internal/vision"
)

// Handler wires the catalog store, the cataloging pipeline, and the batch
// orchestrator behind the web API.
type Handler struct {
	store        *catalog.Store
	pipe         *pipeline.Pipeline
	orchestrator *batch.Orchestrator
}

func New() *Handler {
	pipe := pipeline.New(vision.New(""), synopsis.New(""))
	return &Handler{
		store:        catalog.New(),
		pipe:         pipe,
		orchestrator: batch.New(pipe),
	}
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	slog.Error(message)
	http.Error(w, message, code)
}
