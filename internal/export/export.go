// Package export renders the accepted catalog as a bulk-import feed for the
// storefront: a CSV of product rows plus the image assets, packaged in a
// single zip archive.
package export

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/oldleaf/shelfscan/internal/models"
)

// ErrNothingToExport is returned when the history list is empty. Callers
// treat it as a quiet no-op rather than a user-facing error.
var ErrNothingToExport = errors.New("no catalog entries to export")

// header is the fixed column order the import plugin expects.
var header = []string{
	"parent_sku",
	"sku",
	"post_title",
	"post_excerpt",
	"post_content",
	"post_status",
	"regular_price",
	"sale_price",
	"stock_status",
	"stock",
	"manage_stock",
	"weight",
	"Images",
	"tax:product_type",
	"tax:product_cat",
	"tax:product_tag",
}

const csvName = "products.csv"

// BuildFeed serializes the entries into the import archive, keeping their
// order. Entries whose image payload is absent or has no recognizable image
// signature contribute no image file and an empty Images cell.
func BuildFeed(entries []models.CatalogEntry, now time.Time) ([]byte, error) {
	if len(entries) == 0 {
		return nil, ErrNothingToExport
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	var csvBuf bytes.Buffer
	w := csv.NewWriter(&csvBuf)
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("failed to write feed header: %w", err)
	}

	for _, entry := range entries {
		imageURL := ""
		if name := imageFileName(entry); name != "" {
			imageURL = imageURLFor(name, now)
			f, err := zw.Create("images/" + name)
			if err != nil {
				return nil, fmt.Errorf("failed to add image %s: %w", name, err)
			}
			if _, err := f.Write(entry.Image); err != nil {
				return nil, fmt.Errorf("failed to write image %s: %w", name, err)
			}
		} else {
			slog.Warn("Entry exported without image", "id", entry.ID, "title", entry.Title)
		}

		if err := w.Write(feedRow(entry, imageURL)); err != nil {
			return nil, fmt.Errorf("failed to write feed row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush feed rows: %w", err)
	}

	f, err := zw.Create(csvName)
	if err != nil {
		return nil, fmt.Errorf("failed to add %s: %w", csvName, err)
	}
	if _, err := f.Write(csvBuf.Bytes()); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", csvName, err)
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize archive: %w", err)
	}

	slog.Info("Feed archive built", "entries", len(entries), "bytes", buf.Len())
	return buf.Bytes(), nil
}

// feedRow builds one CSV row in header order. encoding/csv handles quoting
// and quote doubling.
func feedRow(entry models.CatalogEntry, imageURL string) []string {
	sku := entry.ID
	if len(sku) > 8 {
		sku = sku[:8]
	}
	return []string{
		"", // parent_sku
		sku,
		entry.Title + " – " + entry.Author,
		entry.Synopsis,
		entry.Synopsis,
		"publish",
		entry.Price,
		"", // sale_price
		"instock",
		"1",
		"yes",
		"", // weight
		imageURL,
		"simple",
		strings.ReplaceAll(entry.Category, "/", ","),
		entry.Author,
	}
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// slugify derives a filesystem-safe name from a title: lowercased, runs of
// anything non-alphanumeric collapsed to a single underscore, ends trimmed.
func slugify(title string) string {
	s := nonAlnum.ReplaceAllString(strings.ToLower(title), "_")
	return strings.Trim(s, "_")
}

// imageFileName returns "{slug}_{id}{ext}" for the entry, or "" when the
// image payload is absent or not a recognizable embedded image.
func imageFileName(entry models.CatalogEntry) string {
	if len(entry.Image) == 0 {
		return ""
	}
	ct := http.DetectContentType(entry.Image)
	if !strings.HasPrefix(ct, "image/") {
		return ""
	}

	ext := strings.ToLower(filepath.Ext(entry.ImageName))
	if ext == "" {
		ext = extensionFor(ct)
	}
	slug := slugify(entry.Title)
	if slug == "" {
		slug = "book"
	}
	return slug + "_" + entry.ID + ext
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}

// imageURLFor embeds the upload-date directory layout the storefront uses,
// so the imported rows point at where the assets will land.
func imageURLFor(name string, now time.Time) string {
	base := os.Getenv("FEED_BASE_URL")
	if base == "" {
		base = "https://example.com"
	}
	return fmt.Sprintf("%s/wp-content/uploads/%04d/%02d/%s",
		strings.TrimRight(base, "/"), now.Year(), int(now.Month()), name)
}

// ArchiveName returns the dated download name for the feed zip.
func ArchiveName(now time.Time) string {
	return fmt.Sprintf("book-feed-%s.zip", now.Format("2006-01-02"))
}
