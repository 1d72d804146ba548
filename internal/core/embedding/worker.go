// Package embedding runs the asynchronous embedding job. Ingestion hands
// assets over through a bounded queue; the worker embeds chunk text in
// batches and drives the asset's embedding status to a terminal value.
package embedding

import (
	"context"
	"log"
	"time"

	"github.com/atriumhq/atrium-backend/internal/core"
	"github.com/atriumhq/atrium-backend/internal/models"
)

// DefaultBatchSize is how many chunk texts go into one provider request.
const DefaultBatchSize = 16

// Worker consumes triggered asset IDs and writes chunk embeddings.
type Worker struct {
	store     core.AssetStore
	provider  core.EmbeddingProvider
	batchSize int
	jobs      chan string
}

var _ core.EmbeddingTrigger = (*Worker)(nil)

func NewWorker(store core.AssetStore, provider core.EmbeddingProvider, batchSize, queueSize int) *Worker {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Worker{store: store, provider: provider, batchSize: batchSize, jobs: make(chan string, queueSize)}
}

// TriggerEmbedding enqueues an asset without blocking. A full queue is an
// error the caller logs and swallows; the stage stays pending and an
// operator retry re-triggers it.
func (w *Worker) TriggerEmbedding(assetID string) error {
	select {
	case w.jobs <- assetID:
		return nil
	default:
		return core.Errorf(core.KindEmbedding, nil, "embedding queue full, asset %s not scheduled", assetID)
	}
}

// Start runs worker goroutines reading from the jobs channel.
func (w *Worker) Start(ctx context.Context, numWorkers int) {
	for i := 1; i <= numWorkers; i++ {
		go func(i int) {
			for {
				select {
				case <-ctx.Done():
					log.Printf("embedding: worker %d shutting down", i)
					return
				case assetID := <-w.jobs:
					if err := w.processOne(ctx, assetID); err != nil {
						log.Printf("embedding: asset %s failed: %v", assetID, err)
					}
				}
			}
		}(i)
	}
}

// processOne embeds every non-empty chunk of the asset and flips the
// embedding status pending -> processing -> completed/failed.
func (w *Worker) processOne(ctx context.Context, assetID string) error {
	if err := w.store.UpdateStageStatus(ctx, assetID, models.StageEmbedding, models.StatusProcessing, ""); err != nil {
		log.Printf("embedding: asset %s: processing transition not persisted: %v", assetID, err)
	}

	chunks, err := w.store.GetChunksByAsset(ctx, assetID)
	if err != nil {
		return w.fail(assetID, core.Errorf(core.KindPersistence, err, "load chunks"))
	}

	var todo []models.Chunk
	for _, ch := range chunks {
		if ch.Content != "" {
			todo = append(todo, ch)
		}
	}

	for start := 0; start < len(todo); start += w.batchSize {
		end := start + w.batchSize
		if end > len(todo) {
			end = len(todo)
		}
		batch := todo[start:end]

		texts := make([]string, len(batch))
		for i := range batch {
			texts[i] = batch[i].Content
		}
		vecs, err := w.provider.EmbedTexts(ctx, texts)
		if err != nil {
			return w.fail(assetID, core.Errorf(core.KindEmbedding, err, "embed batch"))
		}
		if len(vecs) != len(batch) {
			return w.fail(assetID, core.Errorf(core.KindEmbedding, nil, "embed size mismatch: got %d want %d", len(vecs), len(batch)))
		}
		for i := range batch {
			batch[i].Embedding = vecs[i]
		}
		if err := w.store.UpdateChunkEmbeddings(ctx, batch); err != nil {
			return w.fail(assetID, core.Errorf(core.KindPersistence, err, "write embeddings"))
		}
	}

	return w.store.UpdateStageStatus(ctx, assetID, models.StageEmbedding, models.StatusCompleted, "")
}

func (w *Worker) fail(assetID string, err error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if werr := w.store.UpdateStageStatus(ctx, assetID, models.StageEmbedding, models.StatusFailed, err.Error()); werr != nil {
		log.Printf("embedding: asset %s: failed status not persisted: %v", assetID, werr)
	}
	return err
}
