// Package ingest owns the per-asset ingestion workflow: blob download, text
// extraction, chunking, chunk persistence, stage status tracking and the
// fire-and-forget handoff to the embedding and summary jobs.
package ingest

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/atriumhq/atrium-backend/internal/core"
	"github.com/atriumhq/atrium-backend/internal/core/chunker"
	"github.com/atriumhq/atrium-backend/internal/models"
)

// Config tunes the orchestrator.
//
// TargetTokens:   approximate tokens per chunk.
// LookupAttempts: bounded retries for the "asset row not visible yet" gap
// right after creation.
// LookupDelay:    base delay between lookup retries (doubles per attempt).
// QueueSize:      capacity of the background ingestion queue.
type Config struct {
	TargetTokens   int
	LookupAttempts int
	LookupDelay    time.Duration
	QueueSize      int
}

func (c *Config) withDefaults() Config {
	out := Config{TargetTokens: chunker.DefaultTargetTokens, LookupAttempts: 5, LookupDelay: 200 * time.Millisecond, QueueSize: 64}
	if c == nil {
		return out
	}
	if c.TargetTokens > 0 {
		out.TargetTokens = c.TargetTokens
	}
	if c.LookupAttempts > 0 {
		out.LookupAttempts = c.LookupAttempts
	}
	if c.LookupDelay > 0 {
		out.LookupDelay = c.LookupDelay
	}
	if c.QueueSize > 0 {
		out.QueueSize = c.QueueSize
	}
	return out
}

// SummaryTrigger hands a chunked asset to the summary job. Same
// fire-and-forget contract as core.EmbeddingTrigger.
type SummaryTrigger interface {
	TriggerSummary(assetID string) error
}

// Orchestrator runs ingestion for one asset at a time per call. Callers must
// not invoke Ingest concurrently for the same asset: the chunk replacement
// step would race. The background queue serializes uploads; webhook callers
// carry the same invariant.
type Orchestrator struct {
	store      core.AssetStore
	obj        core.ObjectClient
	extractors *core.ExtractorRegistry
	embedTrig  core.EmbeddingTrigger
	sumTrig    SummaryTrigger
	cfg        Config
	jobs       chan string
}

// NewOrchestrator constructs the orchestrator with a bounded job queue.
// embedTrig and sumTrig may be nil, in which case the corresponding handoff
// is skipped.
func NewOrchestrator(store core.AssetStore, obj core.ObjectClient, extractors *core.ExtractorRegistry, embedTrig core.EmbeddingTrigger, sumTrig SummaryTrigger, cfg *Config) *Orchestrator {
	c := cfg.withDefaults()
	return &Orchestrator{
		store: store, obj: obj, extractors: extractors,
		embedTrig: embedTrig, sumTrig: sumTrig,
		cfg:  c,
		jobs: make(chan string, c.QueueSize),
	}
}

// Start runs worker goroutines reading from the jobs channel.
func (o *Orchestrator) Start(ctx context.Context, numWorkers int) {
	for w := 1; w <= numWorkers; w++ {
		go func(w int) {
			for {
				select {
				case <-ctx.Done():
					log.Printf("ingest: worker %d shutting down", w)
					return
				case assetID := <-o.jobs:
					log.Printf("ingest: worker %d processing asset %s", w, assetID)
					if _, err := o.Ingest(ctx, assetID); err != nil {
						log.Printf("ingest: asset %s failed: %v", assetID, err)
					}
				}
			}
		}(w)
	}
}

// Enqueue schedules an asset ID for background ingestion. If the queue is
// full, this call blocks until space frees up.
func (o *Orchestrator) Enqueue(assetID string) {
	o.jobs <- assetID
}

// Ingest turns the asset's source blob into persisted text chunks and drives
// the transcript stage status to a terminal value. Returns the number of
// chunks written. All failures come back categorized, and the transcript
// stage is never left in processing.
func (o *Orchestrator) Ingest(ctx context.Context, assetID string) (int, error) {
	asset, err := o.lookupAsset(ctx, assetID)
	if err != nil {
		return 0, err
	}

	// Best-effort: the terminal transition below is the authoritative one.
	if err := o.store.UpdateStageStatus(ctx, assetID, models.StageTranscript, models.StatusProcessing, ""); err != nil {
		log.Printf("ingest: asset %s: processing transition not persisted: %v", assetID, err)
	}

	data, err := o.obj.DownloadFile(ctx, asset.SourcePath)
	if err != nil {
		return 0, o.fail(assetID, core.Errorf(core.KindDownload, err, "download %q", asset.SourcePath))
	}

	ex, err := o.extractors.For(asset.MediaKind)
	if err != nil {
		return 0, o.fail(assetID, err)
	}
	extraction, err := ex.Extract(ctx, data, asset.ContentType)
	if err != nil {
		if core.KindOf(err) == "" {
			err = core.Errorf(core.KindExtraction, err, "extract %s", asset.MediaKind)
		}
		return 0, o.fail(assetID, err)
	}

	text := strings.TrimSpace(extraction.Text)
	if text == "" && len(extraction.Segments) == 0 {
		// Audio/video fall back to title+description when there is no
		// usable transcript; documents do not.
		if fb := fallbackText(asset); fb != "" {
			text = fb
			extraction = &core.Extraction{Text: fb}
		} else {
			return 0, o.fail(assetID, core.Errorf(core.KindEmptyContent, nil, "no extractable text for asset %s", assetID))
		}
	}

	if err := o.store.UpsertTranscript(ctx, assetID, fullText(extraction)); err != nil {
		return 0, o.fail(assetID, core.Errorf(core.KindPersistence, err, "store transcript"))
	}

	chunks := o.buildChunks(asset, extraction)
	if err := o.store.ReplaceChunks(ctx, assetID, chunks); err != nil {
		return 0, o.fail(assetID, core.Errorf(core.KindPersistence, err, "replace chunks"))
	}

	if err := o.store.UpdateStageStatus(ctx, assetID, models.StageTranscript, models.StatusCompleted, ""); err != nil {
		return 0, o.fail(assetID, core.Errorf(core.KindPersistence, err, "mark transcript completed"))
	}

	o.handoff(ctx, assetID)
	return len(chunks), nil
}

// RetryStage resets a failed stage and re-runs it. Transcript retries re-run
// the whole ingestion; embedding and summary retries re-trigger their jobs.
func (o *Orchestrator) RetryStage(ctx context.Context, assetID string, stage models.Stage) (int, error) {
	asset, err := o.store.GetAssetByID(ctx, assetID)
	if err != nil {
		return 0, core.Errorf(core.KindPersistence, err, "load asset %s", assetID)
	}
	if asset == nil {
		return 0, core.Errorf(core.KindNotFound, nil, "asset %s not found", assetID)
	}

	current := asset.StageStatusFor(stage)
	if !current.CanTransition(models.StatusProcessing) {
		return 0, core.Errorf(core.KindValidation, nil, "stage %s is %s, not retryable", stage, current)
	}

	switch stage {
	case models.StageTranscript:
		return o.Ingest(ctx, assetID)
	case models.StageEmbedding:
		if o.embedTrig == nil {
			return 0, core.Errorf(core.KindValidation, nil, "embedding job not configured")
		}
		if err := o.store.UpdateStageStatus(ctx, assetID, models.StageEmbedding, models.StatusPending, ""); err != nil {
			return 0, core.Errorf(core.KindPersistence, err, "reset embedding status")
		}
		if err := o.embedTrig.TriggerEmbedding(assetID); err != nil {
			return 0, core.Errorf(core.KindEmbedding, err, "trigger embedding")
		}
		return 0, nil
	case models.StageSummary:
		if o.sumTrig == nil {
			return 0, core.Errorf(core.KindValidation, nil, "summary job not configured")
		}
		if err := o.store.UpdateStageStatus(ctx, assetID, models.StageSummary, models.StatusPending, ""); err != nil {
			return 0, core.Errorf(core.KindPersistence, err, "reset summary status")
		}
		if err := o.sumTrig.TriggerSummary(assetID); err != nil {
			return 0, core.Errorf(core.KindPersistence, err, "trigger summary")
		}
		return 0, nil
	}
	return 0, core.Errorf(core.KindValidation, nil, "unknown stage %q", stage)
}

// lookupAsset resolves the asset record, retrying the known
// eventual-consistency gap right after creation.
func (o *Orchestrator) lookupAsset(ctx context.Context, assetID string) (*models.Asset, error) {
	var asset *models.Asset
	err := core.RetryWithBackoff(ctx, o.cfg.LookupAttempts, o.cfg.LookupDelay, func() error {
		a, err := o.store.GetAssetByID(ctx, assetID)
		if err != nil {
			return core.Errorf(core.KindPersistence, err, "load asset %s", assetID)
		}
		if a == nil {
			return core.Errorf(core.KindNotFound, nil, "asset %s not visible yet", assetID)
		}
		asset = a
		return nil
	})
	if err != nil {
		if core.KindOf(err) == "" {
			err = core.Errorf(core.KindNotFound, err, "asset %s lookup exhausted", assetID)
		}
		return nil, err
	}
	return asset, nil
}

// fail writes the terminal failed status before propagating the categorized
// error. The write uses a fresh context so a cancelled ingestion still lands
// on a terminal status instead of sticking in processing.
func (o *Orchestrator) fail(assetID string, err error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if werr := o.store.UpdateStageStatus(ctx, assetID, models.StageTranscript, models.StatusFailed, err.Error()); werr != nil {
		log.Printf("ingest: asset %s: failed status not persisted: %v", assetID, werr)
	}
	return err
}

// handoff fires the embedding and summary jobs. Their failures are logged
// and swallowed: text and chunks are already durably correct, and each job
// owns its own status field.
func (o *Orchestrator) handoff(ctx context.Context, assetID string) {
	if o.embedTrig != nil {
		if err := o.store.UpdateStageStatus(ctx, assetID, models.StageEmbedding, models.StatusPending, ""); err != nil {
			log.Printf("ingest: asset %s: embedding pending transition not persisted: %v", assetID, err)
		}
		if err := o.embedTrig.TriggerEmbedding(assetID); err != nil {
			log.Printf("ingest: asset %s: embedding trigger failed: %v", assetID, err)
		}
	}
	if o.sumTrig != nil {
		if err := o.store.UpdateStageStatus(ctx, assetID, models.StageSummary, models.StatusPending, ""); err != nil {
			log.Printf("ingest: asset %s: summary pending transition not persisted: %v", assetID, err)
		}
		if err := o.sumTrig.TriggerSummary(assetID); err != nil {
			log.Printf("ingest: asset %s: summary trigger failed: %v", assetID, err)
		}
	}
}

// buildChunks runs the chunker over the extraction and maps drafts to rows.
func (o *Orchestrator) buildChunks(asset *models.Asset, extraction *core.Extraction) []models.Chunk {
	opts := chunker.Options{TargetTokens: o.cfg.TargetTokens}
	if asset.DurationSeconds != nil {
		opts.DurationSeconds = *asset.DurationSeconds
	}

	var drafts []chunker.Draft
	if len(extraction.Segments) > 0 {
		segs := make([]chunker.Segment, len(extraction.Segments))
		for i, sg := range extraction.Segments {
			segs[i] = chunker.Segment{Text: sg.Text, StartSec: sg.StartSec, EndSec: sg.EndSec}
		}
		drafts = chunker.ChunkSegments(segs, opts)
	} else {
		drafts = chunker.Chunk(extraction.Text, opts)
	}

	rows := make([]models.Chunk, len(drafts))
	for i, d := range drafts {
		rows[i] = models.Chunk{
			ID:             uuid.NewString(),
			AssetID:        asset.ID,
			ChunkIndex:     d.Index,
			Content:        d.Content,
			TokenCount:     d.TokenCount,
			TimeRangeStart: d.StartSec,
			TimeRangeEnd:   d.EndSec,
		}
	}
	return rows
}

// fallbackText builds replacement content for media with no usable
// transcript. Documents return "" so empty extraction stays an error.
func fallbackText(asset *models.Asset) string {
	if asset.MediaKind == models.MediaDocument {
		return ""
	}
	parts := make([]string, 0, 2)
	if t := strings.TrimSpace(asset.Title); t != "" {
		parts = append(parts, t)
	}
	if d := strings.TrimSpace(asset.Description); d != "" {
		parts = append(parts, d)
	}
	return strings.Join(parts, "\n\n")
}

func fullText(extraction *core.Extraction) string {
	if extraction.Text != "" || len(extraction.Segments) == 0 {
		return extraction.Text
	}
	parts := make([]string, len(extraction.Segments))
	for i, sg := range extraction.Segments {
		parts[i] = sg.Text
	}
	return strings.Join(parts, "\n")
}
