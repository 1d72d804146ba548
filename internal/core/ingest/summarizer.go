package ingest

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/atriumhq/atrium-backend/internal/core"
	"github.com/atriumhq/atrium-backend/internal/models"
)

// Summarizer runs the asynchronous summary job: it condenses the leading
// chunks of a freshly-ingested asset into a short description via the LLM
// provider and drives summaryStatus to a terminal value.
type Summarizer struct {
	store core.AssetStore
	llm   core.LLMProvider
	jobs  chan string
}

var _ SummaryTrigger = (*Summarizer)(nil)

const (
	summaryChunkBudget = 6
	summarySystem      = "You write concise two-sentence summaries of intranet content for a search results page. Return only the summary."
)

func NewSummarizer(store core.AssetStore, llm core.LLMProvider, queueSize int) *Summarizer {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Summarizer{store: store, llm: llm, jobs: make(chan string, queueSize)}
}

// TriggerSummary enqueues an asset without blocking; a full queue is an
// error the caller logs and swallows.
func (s *Summarizer) TriggerSummary(assetID string) error {
	select {
	case s.jobs <- assetID:
		return nil
	default:
		return core.Errorf(core.KindPersistence, nil, "summary queue full, asset %s not scheduled", assetID)
	}
}

// Start runs a single summary worker; summaries are cheap and not urgent.
func (s *Summarizer) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				log.Println("summary: worker shutting down")
				return
			case assetID := <-s.jobs:
				if err := s.processOne(ctx, assetID); err != nil {
					log.Printf("summary: asset %s failed: %v", assetID, err)
				}
			}
		}
	}()
}

func (s *Summarizer) processOne(ctx context.Context, assetID string) error {
	if err := s.store.UpdateStageStatus(ctx, assetID, models.StageSummary, models.StatusProcessing, ""); err != nil {
		log.Printf("summary: asset %s: processing transition not persisted: %v", assetID, err)
	}

	chunks, err := s.store.GetChunksByAsset(ctx, assetID)
	if err != nil {
		return s.fail(assetID, core.Errorf(core.KindPersistence, err, "load chunks"))
	}

	var sb strings.Builder
	for i, ch := range chunks {
		if i >= summaryChunkBudget {
			break
		}
		sb.WriteString(ch.Content)
		sb.WriteString("\n\n")
	}
	body := strings.TrimSpace(sb.String())
	if body == "" {
		// Empty transcript sentinel: nothing to summarize, not a failure.
		return s.store.UpdateStageStatus(ctx, assetID, models.StageSummary, models.StatusCompleted, "")
	}

	summary, err := s.llm.Generate(ctx, summarySystem, body)
	if err != nil {
		return s.fail(assetID, core.Errorf(core.KindEmbedding, err, "generate summary"))
	}
	if err := s.store.UpdateAssetSummary(ctx, assetID, strings.TrimSpace(summary)); err != nil {
		return s.fail(assetID, core.Errorf(core.KindPersistence, err, "store summary"))
	}
	return s.store.UpdateStageStatus(ctx, assetID, models.StageSummary, models.StatusCompleted, "")
}

func (s *Summarizer) fail(assetID string, err error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if werr := s.store.UpdateStageStatus(ctx, assetID, models.StageSummary, models.StatusFailed, err.Error()); werr != nil {
		log.Printf("summary: asset %s: failed status not persisted: %v", assetID, werr)
	}
	return err
}
