package export

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"errors"
	"image"
	"image/png"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/oldleaf/shelfscan/internal/models"
	"github.com/parquet-go/parquet-go"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 8, 8))); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

func readZip(t *testing.T, data []byte) map[string][]byte {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("feed is not a valid zip: %v", err)
	}
	files := make(map[string][]byte, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("failed to open %s: %v", f.Name, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("failed to read %s: %v", f.Name, err)
		}
		files[f.Name] = content
	}
	return files
}

func TestBuildFeedEmptyHistory(t *testing.T) {
	if _, err := BuildFeed(nil, time.Now()); !errors.Is(err, ErrNothingToExport) {
		t.Errorf("BuildFeed(nil) error = %v, want ErrNothingToExport", err)
	}
}

func TestBuildFeed(t *testing.T) {
	t.Setenv("FEED_BASE_URL", "https://shop.example.org/")
	now := time.Date(2026, time.March, 9, 12, 0, 0, 0, time.UTC)

	entries := []models.CatalogEntry{
		{
			BookRecord: models.BookRecord{
				Title:    "The \"Annotated\" Alice",
				Author:   "Lewis Carroll",
				Synopsis: "A synopsis with \"quotes\", commas, and charm.",
				Price:    "650",
				Category: "English Literature/Children's Books",
			},
			ID:        "aaaabbbb-cccc-dddd-eeee-ffff00001111",
			Image:     pngBytes(t),
			ImageName: "650.alice.png",
		},
		{
			BookRecord: models.BookRecord{Title: "No Image Here", Author: "Anon", Price: "100"},
			ID:         "22223333-4444-5555-6666-777788889999",
			Image:      []byte("definitely not an image"),
			ImageName:  "junk.bin",
		},
	}

	feed, err := BuildFeed(entries, now)
	if err != nil {
		t.Fatalf("BuildFeed returned error: %v", err)
	}
	files := readZip(t, feed)

	rawCSV, ok := files[csvName]
	if !ok {
		t.Fatalf("archive is missing %s; has %v", csvName, len(files))
	}

	rows, err := csv.NewReader(bytes.NewReader(rawCSV)).ReadAll()
	if err != nil {
		t.Fatalf("feed CSV does not parse: %v", err)
	}
	if len(rows) != len(entries)+1 {
		t.Fatalf("CSV has %d rows, want %d entries + 1 header", len(rows), len(entries))
	}
	for i, col := range header {
		if rows[0][i] != col {
			t.Errorf("header[%d] = %q, want %q", i, rows[0][i], col)
		}
	}

	first := rows[1]
	if first[1] != "aaaabbbb" {
		t.Errorf("sku = %q, want the first 8 identity chars", first[1])
	}
	if first[2] != "The \"Annotated\" Alice – Lewis Carroll" {
		t.Errorf("post_title = %q", first[2])
	}
	if first[3] != entries[0].Synopsis || first[4] != entries[0].Synopsis {
		t.Error("excerpt and content must both carry the synopsis")
	}
	if first[5] != "publish" || first[8] != "instock" || first[9] != "1" || first[10] != "yes" || first[13] != "simple" {
		t.Errorf("literal cells wrong: %v", first)
	}
	if first[6] != "650" {
		t.Errorf("regular_price = %q", first[6])
	}
	if first[14] != "English Literature,Children's Books" {
		t.Errorf("tax:product_cat = %q, want slashes turned into commas", first[14])
	}
	if first[15] != "Lewis Carroll" {
		t.Errorf("tax:product_tag = %q, want the author reused", first[15])
	}

	wantImage := "images/the_annotated_alice_aaaabbbb-cccc-dddd-eeee-ffff00001111.png"
	if _, ok := files[wantImage]; !ok {
		t.Errorf("archive is missing %s", wantImage)
	}
	wantURL := "https://shop.example.org/wp-content/uploads/2026/03/the_annotated_alice_aaaabbbb-cccc-dddd-eeee-ffff00001111.png"
	if first[12] != wantURL {
		t.Errorf("Images = %q, want %q", first[12], wantURL)
	}

	// The second entry's payload has no image signature.
	second := rows[2]
	if second[12] != "" {
		t.Errorf("Images for signature-less entry = %q, want empty", second[12])
	}
	if len(files) != 2 {
		t.Errorf("archive holds %d files, want products.csv + 1 image", len(files))
	}

	// Standard escaping: internal quotes are doubled in the raw bytes.
	if !bytes.Contains(rawCSV, []byte(`""Annotated""`)) {
		t.Error("raw CSV must double internal quote characters")
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"The Old Man and the Sea", "the_old_man_and_the_sea"},
		{"  Héllo -- World!  ", "h_llo_world"},
		{"...", ""},
		{"UPPER case 123", "upper_case_123"},
	}
	for _, tt := range tests {
		if got := slugify(tt.in); got != tt.want {
			t.Errorf("slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestImageFileNameFallbacks(t *testing.T) {
	img := pngBytes(t)

	entry := models.CatalogEntry{
		BookRecord: models.BookRecord{Title: "..."},
		ID:         "id123",
		Image:      img,
		ImageName:  "photo",
	}
	// No usable slug and no filename extension: both fall back.
	if got := imageFileName(entry); got != "book_id123.png" {
		t.Errorf("imageFileName = %q, want \"book_id123.png\"", got)
	}

	if got := imageFileName(models.CatalogEntry{ID: "x"}); got != "" {
		t.Errorf("imageFileName with no payload = %q, want empty", got)
	}
}

func TestArchiveName(t *testing.T) {
	now := time.Date(2026, time.August, 2, 0, 0, 0, 0, time.UTC)
	if got := ArchiveName(now); got != "book-feed-2026-08-02.zip" {
		t.Errorf("ArchiveName = %q", got)
	}
}

func TestWriteSnapshotRoundTrip(t *testing.T) {
	entries := []models.CatalogEntry{
		{
			BookRecord: models.BookRecord{Title: "A", Author: "AA", Price: "100", Category: "History", Synopsis: "sa"},
			ID:         "id-a",
			ImageName:  "a.jpg",
			CreatedAt:  time.Date(2026, time.January, 5, 10, 0, 0, 0, time.UTC),
		},
		{
			BookRecord: models.BookRecord{Title: "B"},
			ID:         "id-b",
		},
	}

	var buf bytes.Buffer
	if err := WriteSnapshot(&buf, entries); err != nil {
		t.Fatalf("WriteSnapshot returned error: %v", err)
	}

	rows, err := parquet.Read[SnapshotRow](bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("snapshot does not parse as parquet: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("snapshot has %d rows, want 2", len(rows))
	}
	if rows[0].ID != "id-a" || rows[0].Title != "A" || rows[0].Price != "100" {
		t.Errorf("row 0 = %+v", rows[0])
	}
	if rows[0].CreatedAt != entries[0].CreatedAt.UnixMilli() {
		t.Errorf("row 0 created_at = %d, want %d", rows[0].CreatedAt, entries[0].CreatedAt.UnixMilli())
	}
	if strings.TrimSpace(rows[1].Title) != "B" {
		t.Errorf("row 1 title = %q", rows[1].Title)
	}
}
