package handlers

import (
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/oldleaf/shelfscan/internal/imaging"
	"github.com/oldleaf/shelfscan/internal/models"
)

const maxUploadBytes = 10 * 1024 * 1024

// HandleUpload accepts one or many cover photos and turns each into a
// pending batch item. The "mode" form value switches between single and
// multiple intake; non-image payloads are discarded silently at this
// boundary.
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseMultipartForm(64 << 20); err != nil {
		h.writeError(w, "Failed to parse upload: "+err.Error(), http.StatusBadRequest)
		return
	}

	var files []*multipart.FileHeader
	if r.MultipartForm != nil {
		files = r.MultipartForm.File["files"]
		if len(files) == 0 {
			files = r.MultipartForm.File["file"]
		}
	}
	if len(files) == 0 {
		h.writeError(w, "No files in upload", http.StatusBadRequest)
		return
	}

	if r.FormValue("mode") == "single" {
		files = files[:1]
	}

	added := []models.BatchItem{}
	skipped := 0
	for _, fh := range files {
		data, err := readUpload(fh)
		if err != nil {
			h.writeError(w, "Failed to read file: "+err.Error(), http.StatusBadRequest)
			return
		}
		if imaging.Format(data) == "" {
			skipped++
			continue
		}
		added = append(added, h.orchestrator.Add(fh.Filename, data))
	}

	slog.Info("Upload accepted", "images", len(added), "skipped", skipped)
	h.writeJSON(w, map[string]any{
		"added":   added,
		"skipped": skipped,
	})
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxUploadBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxUploadBytes {
		return nil, fmt.Errorf("file too large (max 10MB)")
	}
	return data, nil
}
