// Package search serves ranked, access-filtered semantic queries over the
// chunk store: embed the query, match chunks by vector similarity, group per
// asset, aggregate relevance, drop assets the viewer may not see, sort.
package search

import (
	"context"
	"encoding/json"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/atriumhq/atrium-backend/internal/core"
	"github.com/atriumhq/atrium-backend/internal/models"
)

const (
	DefaultThreshold = 0.5
	DefaultCount     = 10
	MaxCount         = 100

	// HighlightLength bounds the best-chunk preview shown per result.
	HighlightLength = 280
)

// SortBy selects the result ordering.
type SortBy string

const (
	SortByRelevance SortBy = "relevance"
	SortByRecency   SortBy = "recency"
	SortByTitle     SortBy = "title"
)

// Request is one search invocation. Zero Threshold/Count/SortBy take the
// package defaults.
type Request struct {
	Query     string            `json:"query"`
	Filters   core.ChunkFilters `json:"filters"`
	Threshold float64           `json:"threshold"`
	Count     int               `json:"count"`
	SortBy    SortBy            `json:"sort_by"`
}

// MatchedChunk is one matching chunk inside a result, with its own
// similarity and optional time range.
type MatchedChunk struct {
	ChunkIndex     int      `json:"chunk_index"`
	Content        string   `json:"content"`
	Similarity     float64  `json:"similarity"`
	TimeRangeStart *float64 `json:"time_range_start,omitempty"`
	TimeRangeEnd   *float64 `json:"time_range_end,omitempty"`
}

// Result is one asset's ranked entry: aggregate relevance, a truncated
// best-chunk highlight and the sorted matching chunks.
type Result struct {
	AssetID             string           `json:"asset_id"`
	Title               string           `json:"title"`
	MediaKind           models.MediaKind `json:"media_kind"`
	Summary             string           `json:"summary,omitempty"`
	AggregateSimilarity float64          `json:"aggregate_similarity"`
	Highlight           string           `json:"highlight"`
	Chunks              []MatchedChunk   `json:"chunks"`
	CreatedAt           time.Time        `json:"created_at"`
}

// Response echoes the effective parameters alongside the bounded result set.
type Response struct {
	Results   []Result          `json:"results"`
	Total     int               `json:"total"`
	Query     string            `json:"query"`
	Threshold float64           `json:"threshold"`
	Count     int               `json:"count"`
	Filters   core.ChunkFilters `json:"filters"`
}

// Engine is the stateless search service. All dependencies are injected;
// requests are safe to run concurrently.
type Engine struct {
	store    core.AssetStore
	embedder core.EmbeddingProvider
}

func NewEngine(store core.AssetStore, embedder core.EmbeddingProvider) *Engine {
	return &Engine{store: store, embedder: embedder}
}

// Search runs the full query pipeline for one viewer. Validation problems
// come back as KindValidation, provider failures as KindEmbedding, store
// failures as KindPersistence; "no results" is a success with an empty set.
func (e *Engine) Search(ctx context.Context, req Request, viewer models.Viewer) (*Response, error) {
	req, err := normalize(req)
	if err != nil {
		return nil, err
	}

	vecs, err := e.embedder.EmbedTexts(ctx, []string{req.Query})
	if err != nil || len(vecs) == 0 {
		return nil, core.Errorf(core.KindEmbedding, err, "embed query")
	}

	matches, err := e.store.MatchChunks(ctx, vecs[0], req.Threshold, req.Count*4, req.Filters)
	if err != nil {
		return nil, core.Errorf(core.KindPersistence, err, "match chunks")
	}

	groups := groupByAsset(matches)
	results, err := e.assemble(ctx, groups, viewer)
	if err != nil {
		return nil, err
	}

	sortResults(results, req.SortBy)
	if len(results) > req.Count {
		results = results[:req.Count]
	}

	resp := &Response{
		Results:   results,
		Total:     len(results),
		Query:     req.Query,
		Threshold: req.Threshold,
		Count:     req.Count,
		Filters:   req.Filters,
	}
	e.logQuery(req, viewer, len(results))
	return resp, nil
}

func normalize(req Request) (Request, error) {
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		return req, core.Errorf(core.KindValidation, nil, "query must not be empty")
	}
	if req.Threshold == 0 {
		req.Threshold = DefaultThreshold
	}
	if req.Threshold < 0 || req.Threshold > 1 {
		return req, core.Errorf(core.KindValidation, nil, "threshold %v out of range [0,1]", req.Threshold)
	}
	if req.Count == 0 {
		req.Count = DefaultCount
	}
	if req.Count < 1 || req.Count > MaxCount {
		return req, core.Errorf(core.KindValidation, nil, "count %d out of range [1,%d]", req.Count, MaxCount)
	}
	switch req.SortBy {
	case "":
		req.SortBy = SortByRelevance
	case SortByRelevance, SortByRecency, SortByTitle:
	default:
		return req, core.Errorf(core.KindValidation, nil, "unknown sort %q", req.SortBy)
	}
	return req, nil
}

// groupByAsset folds the flat match rows into per-asset groups with mean
// similarity and the highest-similarity chunk as highlight source.
func groupByAsset(matches []core.ChunkMatch) map[string]*Result {
	groups := make(map[string]*Result)
	for _, m := range matches {
		g, ok := groups[m.AssetID]
		if !ok {
			g = &Result{AssetID: m.AssetID}
			groups[m.AssetID] = g
		}
		g.Chunks = append(g.Chunks, MatchedChunk{
			ChunkIndex:     m.ChunkIndex,
			Content:        m.Content,
			Similarity:     m.Similarity,
			TimeRangeStart: m.TimeRangeStart,
			TimeRangeEnd:   m.TimeRangeEnd,
		})
	}
	for _, g := range groups {
		sort.SliceStable(g.Chunks, func(i, j int) bool {
			return g.Chunks[i].Similarity > g.Chunks[j].Similarity
		})
		sum := 0.0
		for _, ch := range g.Chunks {
			sum += ch.Similarity
		}
		// Deliberately an unweighted mean of the matching chunks.
		g.AggregateSimilarity = sum / float64(len(g.Chunks))
		g.Highlight = truncate(g.Chunks[0].Content, HighlightLength)
	}
	return groups
}

// assemble enriches groups with asset metadata, then drops every asset the
// viewer may not see. Metadata and rules are fetched concurrently.
func (e *Engine) assemble(ctx context.Context, groups map[string]*Result, viewer models.Viewer) ([]Result, error) {
	ids := make([]string, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}

	var (
		assets map[string]*models.Asset
		rules  map[string][]models.VisibilityRule
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		assets, err = e.store.GetAssetsByIDs(gctx, ids)
		return err
	})
	g.Go(func() error {
		var err error
		rules, err = e.store.GetVisibilityRules(gctx, ids)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, core.Errorf(core.KindPersistence, err, "enrich results")
	}

	results := make([]Result, 0, len(groups))
	for id, res := range groups {
		asset, ok := assets[id]
		if !ok {
			// Chunk row outlived its asset; skip rather than show a ghost.
			continue
		}
		if !Visible(viewer, rules[id]) {
			continue
		}
		res.Title = asset.Title
		res.MediaKind = asset.MediaKind
		res.Summary = asset.Summary
		res.CreatedAt = asset.CreatedAt
		results = append(results, *res)
	}
	return results, nil
}

// Visible reports whether the viewer may see an asset with the given rules.
// Administrators bypass all rules; an asset with no rules is public.
func Visible(viewer models.Viewer, rules []models.VisibilityRule) bool {
	if viewer.IsAdmin() {
		return true
	}
	if len(rules) == 0 {
		return true
	}
	for _, r := range rules {
		if r.Matches(viewer) {
			return true
		}
	}
	return false
}

// sortResults orders results per the caller's choice with a deterministic
// assetID tiebreak so repeated queries rank identically.
func sortResults(results []Result, by SortBy) {
	less := func(i, j int) bool {
		a, b := results[i], results[j]
		switch by {
		case SortByRecency:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.After(b.CreatedAt)
			}
		case SortByTitle:
			if a.Title != b.Title {
				return a.Title < b.Title
			}
		default:
			if a.AggregateSimilarity != b.AggregateSimilarity {
				return a.AggregateSimilarity > b.AggregateSimilarity
			}
		}
		return a.AssetID < b.AssetID
	}
	sort.SliceStable(results, less)
}

// logQuery records the query for analytics, fire-and-forget: a logging
// failure never fails the search request.
func (e *Engine) logQuery(req Request, viewer models.Viewer, resultCount int) {
	filters, _ := json.Marshal(req.Filters)
	entry := &models.SearchQueryLog{
		ID:          uuid.NewString(),
		ViewerID:    viewer.ID,
		Query:       req.Query,
		Filters:     string(filters),
		ResultCount: resultCount,
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := e.store.InsertSearchQueryLog(ctx, entry); err != nil {
			log.Printf("search: query log write failed: %v", err)
		}
	}()
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return strings.TrimSpace(string(r[:limit])) + "…"
}
