package export

import (
	"fmt"
	"io"

	"github.com/oldleaf/shelfscan/internal/models"
	"github.com/parquet-go/parquet-go"
)

// SnapshotRow is the flat parquet schema for one catalog entry. Image
// payloads stay out of the snapshot; it is metadata only.
type SnapshotRow struct {
	ID        string `parquet:"id"`
	Title     string `parquet:"title"`
	Author    string `parquet:"author"`
	Category  string `parquet:"category"`
	Price     string `parquet:"price"`
	Synopsis  string `parquet:"synopsis"`
	ImageName string `parquet:"image_name"`
	CreatedAt int64  `parquet:"created_at,timestamp(millisecond)"`
}

// WriteSnapshot writes the entries as a parquet file for offline analysis
// of the session's catalog.
func WriteSnapshot(w io.Writer, entries []models.CatalogEntry) error {
	rows := make([]SnapshotRow, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, SnapshotRow{
			ID:        entry.ID,
			Title:     entry.Title,
			Author:    entry.Author,
			Category:  entry.Category,
			Price:     entry.Price,
			Synopsis:  entry.Synopsis,
			ImageName: entry.ImageName,
			CreatedAt: entry.CreatedAt.UnixMilli(),
		})
	}

	writer := parquet.NewGenericWriter[SnapshotRow](w)
	if len(rows) > 0 {
		if _, err := writer.Write(rows); err != nil {
			return fmt.Errorf("failed to write snapshot rows: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize snapshot: %w", err)
	}
	return nil
}
