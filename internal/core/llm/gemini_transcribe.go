package llm

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/atriumhq/atrium-backend/internal/core"
)

// GeminiTranscriber produces speech-to-text transcripts from audio/video
// blobs via the multimodal Gemini API. The provider returns a flat
// transcript; time ranges are interpolated downstream from the asset's
// known duration.
type GeminiTranscriber struct {
	client    *genai.Client
	modelName string
}

const transcribePrompt = "Transcribe the spoken content of this media verbatim. " +
	"Return only the transcript text, with paragraph breaks between speakers or topics."

func NewGeminiTranscriber(ctx context.Context, apiKey, modelName string) (*GeminiTranscriber, error) {
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}
	return &GeminiTranscriber{client: cl, modelName: modelName}, nil
}

func (g *GeminiTranscriber) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

func (g *GeminiTranscriber) Transcribe(ctx context.Context, data []byte, contentType string) (*core.Transcript, error) {
	m := g.client.GenerativeModel(g.modelName)

	resp, err := m.GenerateContent(ctx,
		genai.Blob{MIMEType: contentType, Data: data},
		genai.Text(transcribePrompt),
	)
	if err != nil {
		return nil, fmt.Errorf("gemini transcribe: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return &core.Transcript{}, nil
	}

	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return &core.Transcript{Text: strings.TrimSpace(b.String())}, nil
}

var _ core.Transcriber = (*GeminiTranscriber)(nil)
