package extract

import (
	"context"
	"errors"
	"time"

	"github.com/atriumhq/atrium-backend/internal/core"
)

// TranscriptExtractor extracts text from audio/video blobs by delegating to
// a speech-to-text provider. Registered for both audio and video kinds.
type TranscriptExtractor struct {
	transcriber core.Transcriber
	timeout     time.Duration
}

var _ core.TextExtractor = (*TranscriptExtractor)(nil)

func NewTranscriptExtractor(t core.Transcriber, timeout time.Duration) *TranscriptExtractor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &TranscriptExtractor{transcriber: t, timeout: timeout}
}

func (e *TranscriptExtractor) Extract(ctx context.Context, data []byte, contentType string) (*core.Extraction, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	tr, err := e.transcriber.Transcribe(ctx, data, contentType)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == context.DeadlineExceeded {
			return nil, core.Errorf(core.KindExtractionTimeout, err, "transcription exceeded %s", e.timeout)
		}
		return nil, core.Errorf(core.KindExtraction, err, "transcription failed for %q", contentType)
	}

	out := &core.Extraction{Text: tr.Text}
	for _, sg := range tr.Segments {
		out.Segments = append(out.Segments, core.TimedSegment{
			Text:     sg.Text,
			StartSec: sg.StartSec,
			EndSec:   sg.EndSec,
		})
	}
	return out, nil
}
