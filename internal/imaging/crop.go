// Package imaging provides the cover-crop step of the cataloging pipeline.
package imaging

import (
	"bytes"
	"image"
	"image/draw"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"log/slog"
	"net/http"
	"strings"
)

// Box is a rectangle on the 0-1000 normalized scale used by the vision
// service: (ymin, xmin, ymax, xmax). Upstream does not guarantee
// ymin <= ymax or xmin <= xmax.
type Box struct {
	YMin float64
	XMin float64
	YMax float64
	XMax float64
}

const jpegQuality = 85

// Crop cuts the region described by box out of the encoded image data and
// returns it re-encoded as JPEG. Coordinates are scaled by dimension/1000
// and clamped to the image bounds. Crop never fails: a degenerate box, an
// undecodable source, or an encode error all return the original bytes
// unchanged, so a bad bounding box can never destroy the photo.
func Crop(data []byte, box Box) []byte {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		slog.Warn("Crop skipped, source not decodable", "err", err)
		return data
	}

	bounds := src.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()

	x := int(box.XMin * float64(w) / 1000)
	y := int(box.YMin * float64(h) / 1000)
	cw := int((box.XMax - box.XMin) * float64(w) / 1000)
	ch := int((box.YMax - box.YMin) * float64(h) / 1000)

	if x < 0 {
		x = 0
	}
	if y < 0 {
		y = 0
	}
	if cw > w-x {
		cw = w - x
	}
	if ch > h-y {
		ch = h - y
	}
	if cw <= 0 || ch <= 0 {
		slog.Warn("Crop skipped, degenerate region", "width", cw, "height", ch)
		return data
	}

	out := image.NewRGBA(image.Rect(0, 0, cw, ch))
	draw.Draw(out, out.Bounds(), src, image.Pt(bounds.Min.X+x, bounds.Min.Y+y), draw.Src)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, out, &jpeg.Options{Quality: jpegQuality}); err != nil {
		slog.Warn("Crop skipped, JPEG encode failed", "err", err)
		return data
	}
	return buf.Bytes()
}

// Format reports the image format ("jpeg", "png", ...) sniffed from the
// payload's signature, or "" when the payload is not a recognizable image.
// The name matches what the vision service expects for inline image parts.
func Format(data []byte) string {
	ct := http.DetectContentType(data)
	if !strings.HasPrefix(ct, "image/") {
		return ""
	}
	return strings.TrimPrefix(ct, "image/")
}
