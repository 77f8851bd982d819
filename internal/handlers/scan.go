package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/oldleaf/shelfscan/internal/imaging"
	"github.com/oldleaf/shelfscan/internal/models"
	"github.com/oldleaf/shelfscan/internal/textutil"
)

// HandleScan runs a single cover photo through the pipeline and parks the
// result in the working slot for curation. An identification failure is
// returned to the operator, who may retry with the same photo; nothing is
// stored in that case.
func (h *Handler) HandleScan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseMultipartForm(64 << 20); err != nil {
		h.writeError(w, "Failed to parse upload: "+err.Error(), http.StatusBadRequest)
		return
	}

	var data []byte
	var filename string
	if r.MultipartForm != nil {
		for _, field := range []string{"file", "files"} {
			if fhs := r.MultipartForm.File[field]; len(fhs) > 0 {
				content, err := readUpload(fhs[0])
				if err != nil {
					h.writeError(w, "Failed to read file: "+err.Error(), http.StatusBadRequest)
					return
				}
				data = content
				filename = fhs[0].Filename
				break
			}
		}
	}
	if len(data) == 0 {
		h.writeError(w, "No file in upload", http.StatusBadRequest)
		return
	}
	if imaging.Format(data) == "" {
		h.writeError(w, "Payload is not an image", http.StatusBadRequest)
		return
	}

	autoCrop := r.FormValue("crop") != "false"
	result, err := h.pipe.Process(r.Context(), data, autoCrop, nil)
	if err != nil {
		h.writeError(w, "Identification failed: "+err.Error(), http.StatusBadGateway)
		return
	}

	entry := &models.CatalogEntry{
		BookRecord: models.BookRecord{
			Title:    result.Title,
			Author:   result.Author,
			Category: result.Category,
			Synopsis: result.Synopsis,
			Price:    textutil.PriceFromFilename(filename),
		},
		ID:        uuid.NewString(),
		Image:     result.Image,
		ImageName: filename,
		CreatedAt: time.Now(),
	}
	h.store.SetWorking(entry)
	h.writeJSON(w, entry)
}

// HandleWorkingAccept moves the working item into the catalog history.
func (h *Handler) HandleWorkingAccept(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	entry := h.store.TakeWorking()
	if entry == nil {
		h.writeError(w, "No working item to accept", http.StatusNotFound)
		return
	}
	h.writeJSON(w, h.store.Accept(entry.BookRecord, entry.Image, entry.ImageName))
}
