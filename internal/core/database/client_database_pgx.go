package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pgvector/pgvector-go"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/atriumhq/atrium-backend/internal/config"
	"github.com/atriumhq/atrium-backend/internal/core"
	"github.com/atriumhq/atrium-backend/internal/models"
)

// DatabaseClient implements core.AssetStore on Postgres with pgvector.
type DatabaseClient struct {
	db *sql.DB
}

var _ core.AssetStore = (*DatabaseClient)(nil)

func NewDatabaseClient(ctx context.Context, cfg *config.Config) (*DatabaseClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database client configuration is nil")
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// Sensible pool settings for an API service; adjust as needed.
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := EnsureBootstrapped(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	return &DatabaseClient{db: db}, nil
}

func (c *DatabaseClient) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

const assetColumns = `id, title, description, media_kind, content_type, source_path,
	duration_seconds, category, subcategory, series, tags, summary,
	transcript_status, embedding_status, summary_status, last_error,
	created_at, updated_at`

func scanAsset(row interface{ Scan(dest ...any) error }) (*models.Asset, error) {
	var a models.Asset
	var tags string
	err := row.Scan(
		&a.ID, &a.Title, &a.Description, &a.MediaKind, &a.ContentType, &a.SourcePath,
		&a.DurationSeconds, &a.Category, &a.Subcategory, &a.Series, &tags, &a.Summary,
		&a.TranscriptStatus, &a.EmbeddingStatus, &a.SummaryStatus, &a.LastError,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.Tags = splitTags(tags)
	return &a, nil
}

func (c *DatabaseClient) CreateAsset(ctx context.Context, asset *models.Asset) error {
	if asset == nil {
		return errors.New("nil asset")
	}
	const q = `
		INSERT INTO assets
			(id, title, description, media_kind, content_type, source_path,
			 duration_seconds, category, subcategory, series, tags,
			 transcript_status, embedding_status, summary_status, created_at, updated_at)
		VALUES
			($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			 COALESCE($15, now()), COALESCE($16, now()))
	`
	_, err := c.db.ExecContext(ctx, q,
		asset.ID, asset.Title, asset.Description, asset.MediaKind, asset.ContentType,
		asset.SourcePath, asset.DurationSeconds, asset.Category, asset.Subcategory,
		asset.Series, joinTags(asset.Tags),
		asset.TranscriptStatus, asset.EmbeddingStatus, asset.SummaryStatus,
		nullTime(asset.CreatedAt), nullTime(asset.UpdatedAt))
	return err
}

func (c *DatabaseClient) GetAssetByID(ctx context.Context, id string) (*models.Asset, error) {
	q := `SELECT ` + assetColumns + ` FROM assets WHERE id = $1`
	a, err := scanAsset(c.db.QueryRowContext(ctx, q, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (c *DatabaseClient) ListAssets(ctx context.Context, limit int) ([]models.Asset, error) {
	if limit <= 0 {
		limit = 100
	}
	q := `SELECT ` + assetColumns + ` FROM assets ORDER BY created_at DESC LIMIT $1`
	rows, err := c.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (c *DatabaseClient) GetAssetsByIDs(ctx context.Context, ids []string) (map[string]*models.Asset, error) {
	out := make(map[string]*models.Asset, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	q := `SELECT ` + assetColumns + ` FROM assets WHERE id = ANY($1)`
	rows, err := c.db.QueryContext(ctx, q, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		out[a.ID] = a
	}
	return out, rows.Err()
}

// stageColumn maps a stage to its status column. Column names come from a
// closed switch, never caller input.
func stageColumn(stage models.Stage) (string, error) {
	switch stage {
	case models.StageTranscript:
		return "transcript_status", nil
	case models.StageEmbedding:
		return "embedding_status", nil
	case models.StageSummary:
		return "summary_status", nil
	}
	return "", fmt.Errorf("unknown stage %q", stage)
}

func (c *DatabaseClient) UpdateStageStatus(ctx context.Context, assetID string, stage models.Stage, status models.StageStatus, lastErr string) error {
	col, err := stageColumn(stage)
	if err != nil {
		return err
	}
	q := fmt.Sprintf(`
		UPDATE assets
		SET %s = $2, last_error = $3, updated_at = now()
		WHERE id = $1
	`, col)
	res, err := c.db.ExecContext(ctx, q, assetID, status, lastErr)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("asset not found: %s", assetID)
	}
	return nil
}

func (c *DatabaseClient) UpdateAssetSummary(ctx context.Context, assetID string, summary string) error {
	const q = `
		UPDATE assets
		SET summary = $2, updated_at = now()
		WHERE id = $1
	`
	res, err := c.db.ExecContext(ctx, q, assetID, summary)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("asset not found: %s", assetID)
	}
	return nil
}

func (c *DatabaseClient) UpsertTranscript(ctx context.Context, assetID string, text string) error {
	const q = `
		INSERT INTO asset_transcripts (asset_id, content, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (asset_id) DO UPDATE SET content = EXCLUDED.content, updated_at = now()
	`
	_, err := c.db.ExecContext(ctx, q, assetID, text)
	return err
}

// ReplaceChunks swaps the asset's chunk set inside one transaction: prior
// chunks are deleted and the new set inserted before commit, so a concurrent
// reader never observes a partially-replaced set.
func (c *DatabaseClient) ReplaceChunks(ctx context.Context, assetID string, chunks []models.Chunk) error {
	tx, err := c.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM asset_chunks WHERE asset_id = $1`, assetID); err != nil {
		_ = tx.Rollback()
		return err
	}

	const q = `
		INSERT INTO asset_chunks
			(id, asset_id, chunk_index, content, token_count, time_range_start, time_range_end, embedding, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, COALESCE($9, now()))
	`
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for i := range chunks {
		ch := &chunks[i]
		var emb any
		if len(ch.Embedding) > 0 {
			emb = pgvector.NewVector(ch.Embedding)
		}
		if _, err := stmt.ExecContext(ctx,
			ch.ID, ch.AssetID, ch.ChunkIndex, ch.Content, ch.TokenCount,
			ch.TimeRangeStart, ch.TimeRangeEnd, emb, nullTime(ch.CreatedAt),
		); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (c *DatabaseClient) GetChunksByAsset(ctx context.Context, assetID string) ([]models.Chunk, error) {
	const q = `
		SELECT id, asset_id, chunk_index, content, token_count, time_range_start, time_range_end, embedding, created_at
		FROM asset_chunks
		WHERE asset_id = $1
		ORDER BY chunk_index ASC
	`
	rows, err := c.db.QueryContext(ctx, q, assetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Chunk
	for rows.Next() {
		var ch models.Chunk
		var emb *pgvector.Vector
		if err := rows.Scan(
			&ch.ID, &ch.AssetID, &ch.ChunkIndex, &ch.Content, &ch.TokenCount,
			&ch.TimeRangeStart, &ch.TimeRangeEnd, &emb, &ch.CreatedAt,
		); err != nil {
			return nil, err
		}
		if emb != nil {
			ch.Embedding = emb.Slice()
		}
		out = append(out, ch)
	}
	return out, rows.Err()
}

func (c *DatabaseClient) UpdateChunkEmbeddings(ctx context.Context, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	tx, err := c.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	const q = `UPDATE asset_chunks SET embedding = $2 WHERE id = $1`
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for i := range chunks {
		ch := &chunks[i]
		if _, err := stmt.ExecContext(ctx, ch.ID, pgvector.NewVector(ch.Embedding)); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// MatchChunks runs the cosine-similarity lookup over embedded chunks,
// filtered by the owning asset's taxonomy facets.
func (c *DatabaseClient) MatchChunks(ctx context.Context, embedding []float32, threshold float64, count int, filters core.ChunkFilters) ([]core.ChunkMatch, error) {
	const q = `
		SELECT c.asset_id, c.chunk_index, c.content,
		       1 - (c.embedding <=> $1) AS similarity,
		       c.time_range_start, c.time_range_end
		FROM asset_chunks c
		JOIN assets a ON a.id = c.asset_id
		WHERE c.embedding IS NOT NULL
		  AND 1 - (c.embedding <=> $1) >= $2
		  AND ($3 = '' OR a.category = $3)
		  AND ($4 = '' OR a.subcategory = $4)
		  AND ($5 = '' OR a.series = $5)
		  AND ($6 = '' OR a.tags LIKE '%' || $6 || '%')
		ORDER BY similarity DESC
		LIMIT $7
	`
	vec := pgvector.NewVector(embedding)
	rows, err := c.db.QueryContext(ctx, q, vec, threshold,
		filters.Category, filters.Subcategory, filters.Series, filters.Tag, count)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.ChunkMatch
	for rows.Next() {
		var m core.ChunkMatch
		if err := rows.Scan(&m.AssetID, &m.ChunkIndex, &m.Content, &m.Similarity,
			&m.TimeRangeStart, &m.TimeRangeEnd); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (c *DatabaseClient) GetVisibilityRules(ctx context.Context, assetIDs []string) (map[string][]models.VisibilityRule, error) {
	out := make(map[string][]models.VisibilityRule, len(assetIDs))
	if len(assetIDs) == 0 {
		return out, nil
	}
	const q = `
		SELECT id, asset_id, role, team, area, region
		FROM asset_visibility_rules
		WHERE asset_id = ANY($1)
	`
	rows, err := c.db.QueryContext(ctx, q, assetIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var r models.VisibilityRule
		if err := rows.Scan(&r.ID, &r.AssetID, &r.Role, &r.Team, &r.Area, &r.Region); err != nil {
			return nil, err
		}
		out[r.AssetID] = append(out[r.AssetID], r)
	}
	return out, rows.Err()
}

func (c *DatabaseClient) InsertSearchQueryLog(ctx context.Context, entry *models.SearchQueryLog) error {
	if entry == nil {
		return errors.New("nil query log entry")
	}
	const q = `
		INSERT INTO search_queries (id, viewer_id, query, filters, result_count, created_at)
		VALUES ($1, $2, $3, $4, $5, COALESCE($6, now()))
	`
	_, err := c.db.ExecContext(ctx, q,
		entry.ID, entry.ViewerID, entry.Query, entry.Filters, entry.ResultCount, nullTime(entry.CreatedAt))
	return err
}

func joinTags(tags []string) string {
	return strings.Join(tags, ",")
}

func splitTags(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
