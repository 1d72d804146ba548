// Package extract holds the per-media-kind text extractors behind the
// core.TextExtractor interface. Extraction calls are bounded by a hard
// timeout; overruns surface as a distinct, operator-retryable error kind.
package extract

import (
	"bytes"
	"context"
	"strings"
	"time"

	"code.sajari.com/docconv"

	"github.com/atriumhq/atrium-backend/internal/core"
)

// DefaultTimeout bounds a single extraction (OCR and transcription can be
// slow; anything past this is treated as stuck).
const DefaultTimeout = 120 * time.Second

// DocconvExtractor extracts text from document blobs (PDF, DOCX, images via
// OCR) using sajari/docconv, selected by the blob's content type.
type DocconvExtractor struct {
	useReadability bool
	timeout        time.Duration
}

var _ core.TextExtractor = (*DocconvExtractor)(nil)

func NewDocconvExtractor(useReadability bool, timeout time.Duration) *DocconvExtractor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &DocconvExtractor{useReadability: useReadability, timeout: timeout}
}

func (e *DocconvExtractor) Extract(ctx context.Context, data []byte, contentType string) (*core.Extraction, error) {
	type result struct {
		text string
		err  error
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	done := make(chan result, 1)
	go func() {
		res, err := docconv.Convert(bytes.NewReader(data), contentType, e.useReadability)
		if err != nil {
			done <- result{err: err}
			return
		}
		done <- result{text: res.Body}
	}()

	select {
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			return nil, core.Errorf(core.KindExtractionTimeout, ctx.Err(), "document extraction exceeded %s", e.timeout)
		}
		return nil, ctx.Err()
	case r := <-done:
		if r.err != nil {
			return nil, core.Errorf(core.KindExtraction, r.err, "docconv failed for %q", contentType)
		}
		return &core.Extraction{Text: strings.TrimSpace(r.text)}, nil
	}
}
