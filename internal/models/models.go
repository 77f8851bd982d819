package models

import "time"

// Status represents the lifecycle of a batch item.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusDone       Status = "done"
	StatusFailed     Status = "failed"
)

// BookRecord holds the curated listing fields for one book. Every field
// defaults to the empty string, never absent. Category may carry several
// labels joined by "/".
type BookRecord struct {
	Title    string `json:"title"`
	Author   string `json:"author"`
	Synopsis string `json:"synopsis"`
	Price    string `json:"price"`
	Category string `json:"category"`
}

// SetField assigns value to the named record field. Unknown field names are
// ignored and reported as false.
func (r *BookRecord) SetField(field, value string) bool {
	switch field {
	case "title":
		r.Title = value
	case "author":
		r.Author = value
	case "synopsis":
		r.Synopsis = value
	case "price":
		r.Price = value
	case "category":
		r.Category = value
	default:
		return false
	}
	return true
}

// BatchItem is one unit of work in a multi-image import run.
type BatchItem struct {
	ID        string     `json:"id"`
	Filename  string     `json:"filename"`
	Source    []byte     `json:"-"`
	Status    Status     `json:"status"`
	Record    BookRecord `json:"record"`
	Processed []byte     `json:"-"`
	ErrorNote string     `json:"error_note,omitempty"`
}

// CatalogEntry is an accepted, user-curated book record with its image,
// ready for export or already exported.
type CatalogEntry struct {
	BookRecord
	ID        string    `json:"id"`
	Image     []byte    `json:"-"`
	ImageName string    `json:"image_name"`
	CreatedAt time.Time `json:"created_at"`
}
