// Package mocks provides in-memory fakes for the core interfaces, used by
// the ingestion, search and handler tests.
package mocks

import (
	"context"
	"sync"

	"github.com/atriumhq/atrium-backend/internal/core"
	"github.com/atriumhq/atrium-backend/internal/models"
)

// StatusWrite records one UpdateStageStatus call.
type StatusWrite struct {
	AssetID string
	Stage   models.Stage
	Status  models.StageStatus
	LastErr string
}

// AssetStore is an in-memory core.AssetStore. Per-method error fields and
// function overrides inject failures.
type AssetStore struct {
	mu sync.Mutex

	Assets      map[string]*models.Asset
	Chunks      map[string][]models.Chunk
	Transcripts map[string]string
	Rules       map[string][]models.VisibilityRule
	QueryLogs   []models.SearchQueryLog
	Matches     []core.ChunkMatch

	StatusWrites []StatusWrite

	GetAssetFn     func(id string) (*models.Asset, error)
	StatusErr      error
	TranscriptErr  error
	ReplaceErr     error
	MatchErr       error
	RulesErr       error
	QueryLogErr    error
	GetChunksErr   error
	UpdateEmbedErr error
}

var _ core.AssetStore = (*AssetStore)(nil)

func NewAssetStore() *AssetStore {
	return &AssetStore{
		Assets:      make(map[string]*models.Asset),
		Chunks:      make(map[string][]models.Chunk),
		Transcripts: make(map[string]string),
		Rules:       make(map[string][]models.VisibilityRule),
	}
}

func (s *AssetStore) CreateAsset(_ context.Context, asset *models.Asset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *asset
	s.Assets[asset.ID] = &cp
	return nil
}

func (s *AssetStore) GetAssetByID(_ context.Context, id string) (*models.Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.GetAssetFn != nil {
		return s.GetAssetFn(id)
	}
	a, ok := s.Assets[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (s *AssetStore) ListAssets(_ context.Context, limit int) ([]models.Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Asset, 0, len(s.Assets))
	for _, a := range s.Assets {
		out = append(out, *a)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *AssetStore) GetAssetsByIDs(_ context.Context, ids []string) (map[string]*models.Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]*models.Asset, len(ids))
	for _, id := range ids {
		if a, ok := s.Assets[id]; ok {
			cp := *a
			out[id] = &cp
		}
	}
	return out, nil
}

func (s *AssetStore) UpdateStageStatus(_ context.Context, assetID string, stage models.Stage, status models.StageStatus, lastErr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.StatusErr != nil {
		return s.StatusErr
	}
	s.StatusWrites = append(s.StatusWrites, StatusWrite{AssetID: assetID, Stage: stage, Status: status, LastErr: lastErr})
	a, ok := s.Assets[assetID]
	if !ok {
		return nil
	}
	switch stage {
	case models.StageTranscript:
		a.TranscriptStatus = status
	case models.StageEmbedding:
		a.EmbeddingStatus = status
	case models.StageSummary:
		a.SummaryStatus = status
	}
	a.LastError = lastErr
	return nil
}

func (s *AssetStore) UpdateAssetSummary(_ context.Context, assetID string, summary string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.Assets[assetID]; ok {
		a.Summary = summary
	}
	return nil
}

func (s *AssetStore) UpsertTranscript(_ context.Context, assetID string, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.TranscriptErr != nil {
		return s.TranscriptErr
	}
	s.Transcripts[assetID] = text
	return nil
}

func (s *AssetStore) ReplaceChunks(_ context.Context, assetID string, chunks []models.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ReplaceErr != nil {
		return s.ReplaceErr
	}
	s.Chunks[assetID] = append([]models.Chunk(nil), chunks...)
	return nil
}

func (s *AssetStore) GetChunksByAsset(_ context.Context, assetID string) ([]models.Chunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.GetChunksErr != nil {
		return nil, s.GetChunksErr
	}
	return append([]models.Chunk(nil), s.Chunks[assetID]...), nil
}

func (s *AssetStore) UpdateChunkEmbeddings(_ context.Context, chunks []models.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.UpdateEmbedErr != nil {
		return s.UpdateEmbedErr
	}
	for _, ch := range chunks {
		rows := s.Chunks[ch.AssetID]
		for i := range rows {
			if rows[i].ID == ch.ID {
				rows[i].Embedding = ch.Embedding
			}
		}
	}
	return nil
}

func (s *AssetStore) MatchChunks(_ context.Context, _ []float32, threshold float64, count int, _ core.ChunkFilters) ([]core.ChunkMatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.MatchErr != nil {
		return nil, s.MatchErr
	}
	var out []core.ChunkMatch
	for _, m := range s.Matches {
		if m.Similarity >= threshold {
			out = append(out, m)
		}
		if len(out) == count {
			break
		}
	}
	return out, nil
}

func (s *AssetStore) GetVisibilityRules(_ context.Context, assetIDs []string) (map[string][]models.VisibilityRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.RulesErr != nil {
		return nil, s.RulesErr
	}
	out := make(map[string][]models.VisibilityRule, len(assetIDs))
	for _, id := range assetIDs {
		if rules, ok := s.Rules[id]; ok {
			out[id] = append([]models.VisibilityRule(nil), rules...)
		}
	}
	return out, nil
}

func (s *AssetStore) InsertSearchQueryLog(_ context.Context, entry *models.SearchQueryLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.QueryLogErr != nil {
		return s.QueryLogErr
	}
	s.QueryLogs = append(s.QueryLogs, *entry)
	return nil
}

func (s *AssetStore) Close() error { return nil }

// LoggedQueries returns a snapshot of the analytics writes.
func (s *AssetStore) LoggedQueries() []models.SearchQueryLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.SearchQueryLog(nil), s.QueryLogs...)
}

// StatusHistory returns a snapshot of the stage status writes.
func (s *AssetStore) StatusHistory() []StatusWrite {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]StatusWrite(nil), s.StatusWrites...)
}
