package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/atriumhq/atrium-backend/internal/config"
	"github.com/atriumhq/atrium-backend/internal/core"
	db "github.com/atriumhq/atrium-backend/internal/core/database"
	"github.com/atriumhq/atrium-backend/internal/core/embedding"
	"github.com/atriumhq/atrium-backend/internal/core/extract"
	"github.com/atriumhq/atrium-backend/internal/core/ingest"
	"github.com/atriumhq/atrium-backend/internal/core/llm"
	objectclient "github.com/atriumhq/atrium-backend/internal/core/object-client"
	"github.com/atriumhq/atrium-backend/internal/core/search"
	"github.com/atriumhq/atrium-backend/internal/models"
)

type App struct {
	cfg          *config.Config
	Store        *db.DatabaseClient
	ObjectClient *objectclient.S3Client
	Orchestrator *ingest.Orchestrator
	EmbedWorker  *embedding.Worker
	Summarizer   *ingest.Summarizer
	SearchEngine *search.Engine
	Server       *Server
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	appCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	store, err := db.NewDatabaseClient(appCtx, cfg)
	if err != nil {
		return nil, err
	}
	log.Println("Database initialized and ready.")

	objClient, err := objectclient.NewS3Client(appCtx, cfg)
	if err != nil {
		return nil, err
	}
	log.Println("Object client initialized and ready.")

	embedder, err := llm.NewGeminiEmbedder(appCtx, cfg.AIAPIKey, cfg.EmbedModel)
	if err != nil {
		return nil, fmt.Errorf("couldn't initialize the embedder, %w", err)
	}

	llmProvider, err := llm.NewGeminiLLM(appCtx, cfg.AIAPIKey, cfg.GenModel)
	if err != nil {
		return nil, fmt.Errorf("couldn't initialize the llm provider, %w", err)
	}

	transcriber, err := llm.NewGeminiTranscriber(appCtx, cfg.AIAPIKey, cfg.GenModel)
	if err != nil {
		return nil, fmt.Errorf("couldn't initialize the transcriber, %w", err)
	}

	extractors := core.NewExtractorRegistry()
	extractors.Register(models.MediaDocument, extract.NewDocconvExtractor(false, extract.DefaultTimeout))
	transcriptExtractor := extract.NewTranscriptExtractor(transcriber, extract.DefaultTimeout)
	extractors.Register(models.MediaAudio, transcriptExtractor)
	extractors.Register(models.MediaVideo, transcriptExtractor)

	embedWorker := embedding.NewWorker(store, embedder, embedding.DefaultBatchSize, 64)
	summarizer := ingest.NewSummarizer(store, llmProvider, 64)

	orch := ingest.NewOrchestrator(store, objClient, extractors, embedWorker, summarizer, &ingest.Config{
		TargetTokens: cfg.TargetTokens,
	})

	engine := search.NewEngine(store, embedder)

	server := NewServer(cfg, store, objClient, orch, engine)

	return &App{
		cfg:          cfg,
		Store:        store,
		ObjectClient: objClient,
		Orchestrator: orch,
		EmbedWorker:  embedWorker,
		Summarizer:   summarizer,
		SearchEngine: engine,
		Server:       server,
	}, nil
}

// StartWorkers launches the background ingestion, embedding and summary
// workers; they exit when ctx is cancelled.
func (a *App) StartWorkers(ctx context.Context) {
	a.Orchestrator.Start(ctx, a.cfg.IngestWorkers)
	a.EmbedWorker.Start(ctx, a.cfg.EmbedWorkers)
	a.Summarizer.Start(ctx)
}

func (a *App) Close() {
	if a.Store != nil {
		_ = a.Store.Close()
	}
}
