package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/oldleaf/shelfscan/internal/export"
)

// HandleExport builds the import feed from the accepted history and streams
// it as a dated zip download. Every exported entry is then moved to the
// archive. An empty history is a quiet no-op (204).
func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	now := time.Now()
	feed, err := export.BuildFeed(h.store.History(), now)
	if errors.Is(err, export.ErrNothingToExport) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		h.writeError(w, "Failed to build feed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	h.store.ArchiveAll()

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", "attachment; filename="+export.ArchiveName(now))
	if _, err := w.Write(feed); err != nil {
		slog.Error("Failed to stream feed archive", "err", err)
	}
}

// HandleSnapshot streams the accepted history as a parquet file without
// touching the store.
func (h *Handler) HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	history := h.store.History()
	if len(history) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.apache.parquet")
	w.Header().Set("Content-Disposition", "attachment; filename=catalog.parquet")
	if err := export.WriteSnapshot(w, history); err != nil {
		slog.Error("Failed to stream catalog snapshot", "err", err)
	}
}
