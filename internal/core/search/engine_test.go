package search

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atriumhq/atrium-backend/internal/core"
	"github.com/atriumhq/atrium-backend/internal/core/mocks"
	"github.com/atriumhq/atrium-backend/internal/models"
)

func newEngine() (*Engine, *mocks.AssetStore) {
	store := mocks.NewAssetStore()
	return NewEngine(store, &mocks.Embedder{}), store
}

func seedTwoAssets(store *mocks.AssetStore) {
	store.Assets["assetX"] = &models.Asset{
		ID: "assetX", Title: "Expense Policy", MediaKind: models.MediaDocument,
		Summary: "How to file expenses.", CreatedAt: time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC),
	}
	store.Assets["assetY"] = &models.Asset{
		ID: "assetY", Title: "Travel Guide", MediaKind: models.MediaDocument,
		CreatedAt: time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC),
	}
	store.Matches = []core.ChunkMatch{
		{AssetID: "assetY", ChunkIndex: 0, Content: "book flights early", Similarity: 0.95},
		{AssetID: "assetY", ChunkIndex: 3, Content: "hotel per diem rules", Similarity: 0.9},
		{AssetID: "assetX", ChunkIndex: 2, Content: "submit receipts within thirty days", Similarity: 0.8},
		{AssetID: "assetX", ChunkIndex: 0, Content: "expense policy overview", Similarity: 0.6},
		{AssetID: "assetX", ChunkIndex: 5, Content: "approval flow for managers", Similarity: 0.55},
	}
}

func TestSearchGroupsAndAggregates(t *testing.T) {
	e, store := newEngine()
	seedTwoAssets(store)

	resp, err := e.Search(context.Background(), Request{Query: "travel expenses"}, models.Viewer{ID: "u1"})
	require.NoError(t, err)
	require.Len(t, resp.Results, 2)

	// Mean similarity ranks assetY (0.925) over assetX (0.65).
	y, x := resp.Results[0], resp.Results[1]
	assert.Equal(t, "assetY", y.AssetID)
	assert.InDelta(t, 0.925, y.AggregateSimilarity, 1e-9)
	assert.Equal(t, "assetX", x.AssetID)
	assert.InDelta(t, 0.65, x.AggregateSimilarity, 1e-9)

	// Chunks inside a result are ordered by their own similarity.
	require.Len(t, x.Chunks, 3)
	assert.Equal(t, 2, x.Chunks[0].ChunkIndex)
	assert.Equal(t, 0, x.Chunks[1].ChunkIndex)
	assert.Equal(t, 5, x.Chunks[2].ChunkIndex)

	// Highlight comes from the best chunk, and metadata is joined in.
	assert.Equal(t, "submit receipts within thirty days", x.Highlight)
	assert.Equal(t, "Expense Policy", x.Title)
	assert.Equal(t, "How to file expenses.", x.Summary)
}

func TestSearchEchoesEffectiveParameters(t *testing.T) {
	e, store := newEngine()
	seedTwoAssets(store)

	resp, err := e.Search(context.Background(), Request{Query: "  travel  "}, models.Viewer{})
	require.NoError(t, err)
	assert.Equal(t, "travel", resp.Query)
	assert.Equal(t, DefaultThreshold, resp.Threshold)
	assert.Equal(t, DefaultCount, resp.Count)
	assert.Equal(t, 2, resp.Total)
}

func TestSearchValidation(t *testing.T) {
	e, _ := newEngine()
	cases := []Request{
		{Query: "   "},
		{Query: "q", Threshold: 1.5},
		{Query: "q", Threshold: -0.2},
		{Query: "q", Count: MaxCount + 1},
		{Query: "q", Count: -3},
		{Query: "q", SortBy: "popularity"},
	}
	for _, req := range cases {
		_, err := e.Search(context.Background(), req, models.Viewer{})
		require.Error(t, err, "request %+v", req)
		assert.Equal(t, core.KindValidation, core.KindOf(err))
	}
}

func TestSearchEmbedderFailure(t *testing.T) {
	store := mocks.NewAssetStore()
	e := NewEngine(store, &mocks.Embedder{Err: errors.New("quota exceeded")})

	_, err := e.Search(context.Background(), Request{Query: "anything"}, models.Viewer{})
	require.Error(t, err)
	assert.Equal(t, core.KindEmbedding, core.KindOf(err))
}

func TestSearchNoMatchesIsEmptySuccess(t *testing.T) {
	e, _ := newEngine()
	resp, err := e.Search(context.Background(), Request{Query: "nothing indexed"}, models.Viewer{})
	require.NoError(t, err)
	assert.Empty(t, resp.Results)
	assert.Zero(t, resp.Total)
}

func TestSearchVisibilityFiltering(t *testing.T) {
	e, store := newEngine()
	seedTwoAssets(store)
	sales := "Sales"
	store.Rules["assetX"] = []models.VisibilityRule{{AssetID: "assetX", Team: &sales}}

	cases := []struct {
		name   string
		viewer models.Viewer
		want   []string
	}{
		{"matching team sees both", models.Viewer{Team: "Sales"}, []string{"assetY", "assetX"}},
		{"other team sees public only", models.Viewer{Team: "Ops"}, []string{"assetY"}},
		{"admin bypasses rules", models.Viewer{Role: models.AdminRole, Team: "Ops"}, []string{"assetY", "assetX"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := e.Search(context.Background(), Request{Query: "travel"}, tc.viewer)
			require.NoError(t, err)
			got := make([]string, len(resp.Results))
			for i, r := range resp.Results {
				got[i] = r.AssetID
			}
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestSearchSkipsOrphanedChunks(t *testing.T) {
	e, store := newEngine()
	seedTwoAssets(store)
	delete(store.Assets, "assetX")

	resp, err := e.Search(context.Background(), Request{Query: "travel"}, models.Viewer{})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "assetY", resp.Results[0].AssetID)
}

func TestSearchSortByRecencyAndTitle(t *testing.T) {
	e, store := newEngine()
	seedTwoAssets(store)

	resp, err := e.Search(context.Background(), Request{Query: "travel", SortBy: SortByRecency}, models.Viewer{})
	require.NoError(t, err)
	assert.Equal(t, "assetY", resp.Results[0].AssetID, "newest first")

	resp, err = e.Search(context.Background(), Request{Query: "travel", SortBy: SortByTitle}, models.Viewer{})
	require.NoError(t, err)
	assert.Equal(t, "Expense Policy", resp.Results[0].Title)
}

func TestSearchDeterministicTiebreak(t *testing.T) {
	e, store := newEngine()
	store.Assets["b"] = &models.Asset{ID: "b", Title: "B"}
	store.Assets["a"] = &models.Asset{ID: "a", Title: "A"}
	store.Matches = []core.ChunkMatch{
		{AssetID: "b", ChunkIndex: 0, Content: "x", Similarity: 0.7},
		{AssetID: "a", ChunkIndex: 0, Content: "y", Similarity: 0.7},
	}

	for i := 0; i < 5; i++ {
		resp, err := e.Search(context.Background(), Request{Query: "tie"}, models.Viewer{})
		require.NoError(t, err)
		require.Len(t, resp.Results, 2)
		assert.Equal(t, "a", resp.Results[0].AssetID, "equal scores fall back to asset ID order")
	}
}

func TestSearchBoundsResultCount(t *testing.T) {
	e, store := newEngine()
	for i := 0; i < 8; i++ {
		id := string(rune('a' + i))
		store.Assets[id] = &models.Asset{ID: id, Title: id}
		store.Matches = append(store.Matches, core.ChunkMatch{AssetID: id, Content: "body", Similarity: 0.9})
	}

	resp, err := e.Search(context.Background(), Request{Query: "q", Count: 3}, models.Viewer{})
	require.NoError(t, err)
	assert.Len(t, resp.Results, 3)
	assert.Equal(t, 3, resp.Total)
}

func TestSearchHighlightTruncated(t *testing.T) {
	e, store := newEngine()
	long := strings.Repeat("verylongword ", 60)
	store.Assets["a"] = &models.Asset{ID: "a", Title: "A"}
	store.Matches = []core.ChunkMatch{{AssetID: "a", Content: long, Similarity: 0.9}}

	resp, err := e.Search(context.Background(), Request{Query: "q"}, models.Viewer{})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	h := resp.Results[0].Highlight
	assert.True(t, strings.HasSuffix(h, "…"))
	assert.LessOrEqual(t, len([]rune(h)), HighlightLength+1)
}

func TestSearchLogsQuery(t *testing.T) {
	e, store := newEngine()
	seedTwoAssets(store)

	_, err := e.Search(context.Background(), Request{Query: "travel"}, models.Viewer{ID: "u42"})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(store.LoggedQueries()) == 1
	}, time.Second, 10*time.Millisecond)

	entry := store.LoggedQueries()[0]
	assert.Equal(t, "u42", entry.ViewerID)
	assert.Equal(t, "travel", entry.Query)
	assert.Equal(t, 2, entry.ResultCount)
}

func TestVisible(t *testing.T) {
	sales := "Sales"
	emea := "EMEA"
	rules := []models.VisibilityRule{{Team: &sales}, {Region: &emea}}

	assert.True(t, Visible(models.Viewer{Team: "Sales"}, rules))
	assert.True(t, Visible(models.Viewer{Region: "EMEA"}, rules), "passing any rule suffices")
	assert.False(t, Visible(models.Viewer{Team: "Ops", Region: "APAC"}, rules))
	assert.True(t, Visible(models.Viewer{Team: "Ops"}, nil), "no rules means public")
	assert.True(t, Visible(models.Viewer{Role: models.AdminRole}, rules))
}
