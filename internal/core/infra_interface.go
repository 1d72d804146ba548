package core

import (
	"context"

	"github.com/atriumhq/atrium-backend/internal/models"
)

// ChunkFilters narrows a vector match to taxonomy facets of the owning asset.
// Zero-valued fields are ignored.
type ChunkFilters struct {
	Category    string `json:"category,omitempty"`
	Subcategory string `json:"subcategory,omitempty"`
	Series      string `json:"series,omitempty"`
	Tag         string `json:"tag,omitempty"`
}

// ChunkMatch is one row returned by the vector-similarity lookup.
type ChunkMatch struct {
	AssetID        string
	ChunkIndex     int
	Content        string
	Similarity     float64
	TimeRangeStart *float64
	TimeRangeEnd   *float64
}

// AssetStore defines all persistence the pipeline and search engine need.
// It abstracts Postgres/pgvector so higher layers never depend on a specific DB.
type AssetStore interface {
	CreateAsset(ctx context.Context, asset *models.Asset) error
	GetAssetByID(ctx context.Context, id string) (*models.Asset, error)
	ListAssets(ctx context.Context, limit int) ([]models.Asset, error)
	GetAssetsByIDs(ctx context.Context, ids []string) (map[string]*models.Asset, error)

	// UpdateStageStatus writes the status of one processing stage. lastErr
	// records the failure that produced a failed status and is cleared
	// otherwise.
	UpdateStageStatus(ctx context.Context, assetID string, stage models.Stage, status models.StageStatus, lastErr string) error
	UpdateAssetSummary(ctx context.Context, assetID string, summary string) error

	// UpsertTranscript stores the full extracted text for an asset,
	// replacing any prior record.
	UpsertTranscript(ctx context.Context, assetID string, text string) error

	// ReplaceChunks atomically swaps the asset's chunk set: all prior chunks
	// are deleted and the new set inserted in one transaction, so a reader
	// never observes a partially-replaced set.
	ReplaceChunks(ctx context.Context, assetID string, chunks []models.Chunk) error
	GetChunksByAsset(ctx context.Context, assetID string) ([]models.Chunk, error)
	UpdateChunkEmbeddings(ctx context.Context, chunks []models.Chunk) error

	// MatchChunks runs the vector-similarity lookup over embedded chunks.
	// Similarity is cosine, in [0,1]; rows below threshold are excluded.
	MatchChunks(ctx context.Context, embedding []float32, threshold float64, count int, filters ChunkFilters) ([]ChunkMatch, error)

	GetVisibilityRules(ctx context.Context, assetIDs []string) (map[string][]models.VisibilityRule, error)

	InsertSearchQueryLog(ctx context.Context, entry *models.SearchQueryLog) error

	Close() error
}

// ObjectClient defines interactions with S3 or any object storage. Abstract
// so AWS can be swapped for MinIO, GCS, etc.
type ObjectClient interface {
	UploadFile(ctx context.Context, key string, data []byte, contentType string) (url string, err error)
	DownloadFile(ctx context.Context, key string) ([]byte, error)
	DeleteFile(ctx context.Context, key string) error
}
