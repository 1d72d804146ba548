package core

import "context"

// EmbeddingProvider turns text into embedding vectors.
type EmbeddingProvider interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// LLMProvider generates text; used for asset summaries.
type LLMProvider interface {
	Generate(ctx context.Context, systemPrompt string, userPrompt string) (string, error)
}

// Transcriber converts audio/video media into a transcript. Segments carry
// provider time offsets when the provider supplies them.
type Transcriber interface {
	Transcribe(ctx context.Context, data []byte, contentType string) (*Transcript, error)
}

// Transcript is the speech-to-text result for one media blob.
type Transcript struct {
	Text     string
	Segments []TimedSegment
}

// TimedSegment is one provider-delimited span of transcript text.
type TimedSegment struct {
	Text     string
	StartSec float64
	EndSec   float64
}

// EmbeddingTrigger hands a freshly-chunked asset to the embedding job.
// Implementations are fire-and-forget: a trigger failure is reported to the
// caller only so it can be logged, never to roll ingestion back.
type EmbeddingTrigger interface {
	TriggerEmbedding(assetID string) error
}
