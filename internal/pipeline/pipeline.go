// Package pipeline sequences media loading, model identification, and
// metadata resolution for one request under the admission gate.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/dkravets/reelid/internal/extract"
	"github.com/dkravets/reelid/internal/gate"
	"github.com/dkravets/reelid/internal/identify"
	"github.com/dkravets/reelid/internal/media"
	"github.com/dkravets/reelid/internal/metadata"
)

// ErrEmptyInput is returned for an empty reference list, before any gate
// slot is taken.
var ErrEmptyInput = errors.New("no media supplied")

// ErrUnknownSubject means the model answered below the confidence floor or
// could not relate the content to any film or show.
var ErrUnknownSubject = errors.New("could not identify a film or show")

// ErrNoExtractor is returned from IdentifyFromURL when no media-URL
// extractor was configured.
var ErrNoExtractor = errors.New("media extractor not configured")

// maxThumbnailRefs caps how many extractor thumbnails join the primary media
// URL in the prompt.
const maxThumbnailRefs = 4

type identifier interface {
	Identify(ctx context.Context, refs []media.Reference) (identify.Result, error)
}

type resolver interface {
	Resolve(ctx context.Context, title string) (*metadata.FilmRecord, error)
}

type Pipeline struct {
	gate       *gate.Gate
	identifier identifier
	resolver   resolver
	extractor  extract.Extractor
}

// New wires the pipeline. extractor may be nil when social-URL support is
// not configured.
func New(g *gate.Gate, id identifier, res resolver, ex extract.Extractor) *Pipeline {
	return &Pipeline{
		gate:       g,
		identifier: id,
		resolver:   res,
		extractor:  ex,
	}
}

// Identify runs the full pipeline for an ordered reference list. The gate
// slot is released on every exit path, and typed failures pass through
// unwrapped so the boundary can map them.
func (p *Pipeline) Identify(ctx context.Context, refs []media.Reference) (*metadata.FilmRecord, error) {
	if len(refs) == 0 {
		return nil, ErrEmptyInput
	}

	if err := p.gate.Acquire(ctx); err != nil {
		return nil, fmt.Errorf("acquiring pipeline slot: %w", err)
	}
	defer p.gate.Release()

	start := time.Now()

	result, err := p.identifier.Identify(ctx, refs)
	if err != nil {
		return nil, err
	}
	if result.Unknown() {
		log.Printf("[PIPELINE] no confident identification (confidence %.2f) after %v", result.Confidence, time.Since(start))
		return nil, ErrUnknownSubject
	}

	record, err := p.resolver.Resolve(ctx, result.Title)
	if err != nil {
		return nil, err
	}

	log.Printf("[PIPELINE] identified %q as %s %q in %v", result.Title, record.Kind, record.Title, time.Since(start))
	return record, nil
}

// IdentifyFromURL resolves a social-media page into media references and
// runs the same pipeline over them. The primary media URL leads the list so
// a video, when present, dominates the prompt.
func (p *Pipeline) IdentifyFromURL(ctx context.Context, pageURL string) (*metadata.FilmRecord, error) {
	if pageURL == "" {
		return nil, ErrEmptyInput
	}
	if p.extractor == nil {
		return nil, ErrNoExtractor
	}

	med, err := p.extractor.Extract(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	refs := make([]media.Reference, 0, 1+maxThumbnailRefs)
	if med.URL != "" {
		refs = append(refs, media.Reference(med.URL))
	}
	for _, thumb := range med.Thumbnails {
		if len(refs) >= 1+maxThumbnailRefs {
			break
		}
		refs = append(refs, media.Reference(thumb))
	}

	return p.Identify(ctx, refs)
}
