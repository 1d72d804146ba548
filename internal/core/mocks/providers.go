package mocks

import (
	"context"
	"sync"

	"github.com/atriumhq/atrium-backend/internal/core"
)

// ObjectClient is an in-memory core.ObjectClient keyed by object key.
type ObjectClient struct {
	mu          sync.Mutex
	Files       map[string][]byte
	DownloadErr error
	UploadErr   error
}

var _ core.ObjectClient = (*ObjectClient)(nil)

func NewObjectClient() *ObjectClient {
	return &ObjectClient{Files: make(map[string][]byte)}
}

func (c *ObjectClient) UploadFile(_ context.Context, key string, data []byte, _ string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.UploadErr != nil {
		return "", c.UploadErr
	}
	c.Files[key] = append([]byte(nil), data...)
	return "mock://" + key, nil
}

// Put seeds an object directly, bypassing the upload path.
func (c *ObjectClient) Put(key string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Files[key] = append([]byte(nil), data...)
}

func (c *ObjectClient) DownloadFile(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.DownloadErr != nil {
		return nil, c.DownloadErr
	}
	data, ok := c.Files[key]
	if !ok {
		return nil, core.Errorf(core.KindDownload, nil, "object %q not found", key)
	}
	return append([]byte(nil), data...), nil
}

func (c *ObjectClient) DeleteFile(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.Files, key)
	return nil
}

// Extractor is a core.TextExtractor driven by a function or fixed result.
type Extractor struct {
	Result *core.Extraction
	Err    error
	Fn     func(ctx context.Context, data []byte, contentType string) (*core.Extraction, error)
}

var _ core.TextExtractor = (*Extractor)(nil)

func (e *Extractor) Extract(ctx context.Context, data []byte, contentType string) (*core.Extraction, error) {
	if e.Fn != nil {
		return e.Fn(ctx, data, contentType)
	}
	if e.Err != nil {
		return nil, e.Err
	}
	return e.Result, nil
}

// Embedder is a core.EmbeddingProvider returning deterministic vectors.
type Embedder struct {
	mu    sync.Mutex
	Err   error
	Dim   int
	Calls [][]string
}

var _ core.EmbeddingProvider = (*Embedder)(nil)

func (e *Embedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.Err != nil {
		return nil, e.Err
	}
	e.Calls = append(e.Calls, append([]string(nil), texts...))
	dim := e.Dim
	if dim == 0 {
		dim = 4
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		vec := make([]float32, dim)
		vec[0] = float32(len(t))
		out[i] = vec
	}
	return out, nil
}

// LLM is a core.LLMProvider returning a canned response.
type LLM struct {
	Response string
	Err      error
}

var _ core.LLMProvider = (*LLM)(nil)

func (l *LLM) Generate(_ context.Context, _ string, _ string) (string, error) {
	if l.Err != nil {
		return "", l.Err
	}
	return l.Response, nil
}

// Trigger records downstream stage trigger calls.
type Trigger struct {
	mu    sync.Mutex
	Err   error
	Fired []string
}

var _ core.EmbeddingTrigger = (*Trigger)(nil)

func (t *Trigger) TriggerEmbedding(assetID string) error { return t.fire(assetID) }

// TriggerSummary satisfies the ingestion summary trigger.
func (t *Trigger) TriggerSummary(assetID string) error { return t.fire(assetID) }

func (t *Trigger) fire(assetID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Err != nil {
		return t.Err
	}
	t.Fired = append(t.Fired, assetID)
	return nil
}

// FiredFor returns a snapshot of the asset IDs the trigger fired for.
func (t *Trigger) FiredFor() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.Fired...)
}
