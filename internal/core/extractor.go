package core

import (
	"context"

	"github.com/atriumhq/atrium-backend/internal/models"
)

// Extraction is the result of pulling raw text out of a source blob.
// Segments are present only when the extractor knows time offsets
// (audio/video transcripts); documents return plain text.
type Extraction struct {
	Text     string
	Segments []TimedSegment
}

// TextExtractor pulls searchable text from a raw blob of one media kind.
// Implementations must categorize failures via the core error kinds:
// KindExtractionTimeout for deadline overruns, KindExtraction otherwise.
type TextExtractor interface {
	Extract(ctx context.Context, data []byte, contentType string) (*Extraction, error)
}

// ExtractorRegistry selects a TextExtractor by media kind, so new kinds are
// additive rather than another branch in the orchestrator.
type ExtractorRegistry struct {
	byKind map[models.MediaKind]TextExtractor
}

func NewExtractorRegistry() *ExtractorRegistry {
	return &ExtractorRegistry{byKind: make(map[models.MediaKind]TextExtractor)}
}

// Register binds an extractor to a media kind, replacing any previous one.
func (r *ExtractorRegistry) Register(kind models.MediaKind, ex TextExtractor) {
	r.byKind[kind] = ex
}

// For returns the extractor for kind, or a KindExtraction error when the
// kind has no registered extractor.
func (r *ExtractorRegistry) For(kind models.MediaKind) (TextExtractor, error) {
	ex, ok := r.byKind[kind]
	if !ok {
		return nil, Errorf(KindExtraction, nil, "unsupported media kind %q", kind)
	}
	return ex, nil
}
