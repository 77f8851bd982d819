// Package pipeline composes identification, cropping, and synopsis
// retrieval into the per-item cataloging transformation: one cover photo in,
// one catalog-ready record out.
package pipeline

import (
	"context"
	"strings"

	"github.com/oldleaf/shelfscan/internal/imaging"
	"github.com/oldleaf/shelfscan/internal/textutil"
	"github.com/oldleaf/shelfscan/internal/vision"
)

// Identifier is the vision service boundary. Identification is the one call
// in the pipeline that can fail hard.
type Identifier interface {
	Identify(ctx context.Context, image []byte) (*vision.Identification, error)
}

// Synopsizer is the synopsis service boundary. It is total: failures come
// back as placeholder text, never as an error.
type Synopsizer interface {
	Synopsize(ctx context.Context, title, author string) string
}

// Result is the catalog-ready output for one cover image.
type Result struct {
	Title    string
	Author   string
	Category string
	Synopsis string
	Image    []byte
}

// CategoryDelimiter joins multiple category labels into the single category
// field. The export step later swaps it for commas.
const CategoryDelimiter = "/"

const (
	DefaultTitle  = "Unknown Title"
	DefaultAuthor = "Unknown Author"
)

// Pipeline drives the per-item stages in a fixed order.
type Pipeline struct {
	identifier Identifier
	synopsizer Synopsizer
}

func New(identifier Identifier, synopsizer Synopsizer) *Pipeline {
	return &Pipeline{identifier: identifier, synopsizer: synopsizer}
}

// Process runs the full transformation for one image. The only hard failure
// is an identification error, which is returned unchanged; every later
// stage degrades to a safe default. progress, when non-nil, is called with
// a short stage label before each slow step.
func (p *Pipeline) Process(ctx context.Context, image []byte, autoCrop bool, progress func(stage string)) (*Result, error) {
	report := func(stage string) {
		if progress != nil {
			progress(stage)
		}
	}

	report("identifying")
	ident, err := p.identifier.Identify(ctx, image)
	if err != nil {
		return nil, err
	}

	title := textutil.TitleCase(ident.Title)
	if title == "" {
		title = DefaultTitle
	}
	author := textutil.TitleCase(ident.Author)
	if author == "" {
		author = DefaultAuthor
	}

	category := strings.Join(ident.Categories, CategoryDelimiter)

	processed := image
	if autoCrop && len(ident.Box) == 4 {
		report("cropping")
		processed = imaging.Crop(image, imaging.Box{
			YMin: ident.Box[0],
			XMin: ident.Box[1],
			YMax: ident.Box[2],
			XMax: ident.Box[3],
		})
	}

	report("writing synopsis")
	syn := p.synopsizer.Synopsize(ctx, title, author)

	return &Result{
		Title:    title,
		Author:   author,
		Category: category,
		Synopsis: syn,
		Image:    processed,
	}, nil
}
