package chunker

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimateTokens(t *testing.T) {
	cases := []struct {
		text string
		want int
	}{
		{"", 0},
		{"   \n\t ", 0},
		{"one", 2},          // ceil(1/0.75)
		{"one two three", 4}, // ceil(3/0.75)
		{"a b c d e f", 8},  // ceil(6/0.75)
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, EstimateTokens(tc.text), "text %q", tc.text)
	}
}

func TestChunkEmptyInput(t *testing.T) {
	drafts := Chunk("", Options{TargetTokens: 100})
	require.Len(t, drafts, 1)
	assert.Equal(t, 0, drafts[0].Index)
	assert.Equal(t, "", drafts[0].Content)
	assert.Equal(t, 0, drafts[0].TokenCount)
	assert.Nil(t, drafts[0].StartSec)

	// With a known duration the sentinel chunk still covers the whole range.
	drafts = Chunk("   ", Options{TargetTokens: 100, DurationSeconds: 90})
	require.Len(t, drafts, 1)
	require.NotNil(t, drafts[0].StartSec)
	require.NotNil(t, drafts[0].EndSec)
	assert.Equal(t, 0.0, *drafts[0].StartSec)
	assert.Equal(t, 90.0, *drafts[0].EndSec)
}

func TestChunkDeterministic(t *testing.T) {
	text := sampleText(40)
	a := Chunk(text, Options{TargetTokens: 60})
	b := Chunk(text, Options{TargetTokens: 60})
	assert.Equal(t, a, b)
}

func TestChunkCoversAllText(t *testing.T) {
	text := sampleText(50)
	drafts := Chunk(text, Options{TargetTokens: 80})

	var joined strings.Builder
	for _, d := range drafts {
		joined.WriteString(d.Content)
		joined.WriteString(" ")
	}
	// Whitespace normalization aside, no words are lost or duplicated.
	assert.Equal(t,
		strings.Join(strings.Fields(text), " "),
		strings.Join(strings.Fields(joined.String()), " "))
}

func TestChunkIndicesDense(t *testing.T) {
	drafts := Chunk(sampleText(60), Options{TargetTokens: 50})
	require.Greater(t, len(drafts), 1)
	for i, d := range drafts {
		assert.Equal(t, i, d.Index)
	}
}

func TestChunkRespectsTokenBudget(t *testing.T) {
	// One giant paragraph of short sentences. Every sentence is far below
	// the budget, so after sentence-splitting no chunk should exceed it.
	var b strings.Builder
	for i := 0; i < 40; i++ {
		fmt.Fprintf(&b, "Alpha beta gamma delta epsilon zeta number %d. ", i)
	}
	target := 50
	drafts := Chunk(b.String(), Options{TargetTokens: target})
	require.Greater(t, len(drafts), 1)
	for _, d := range drafts {
		assert.LessOrEqual(t, d.TokenCount, target, "chunk %d too large", d.Index)
	}
}

func TestChunkSmallParagraphsMerge(t *testing.T) {
	text := "First short paragraph here.\n\nSecond short paragraph here."
	drafts := Chunk(text, Options{TargetTokens: 500})
	require.Len(t, drafts, 1)
	assert.Contains(t, drafts[0].Content, "First short paragraph")
	assert.Contains(t, drafts[0].Content, "Second short paragraph")
}

func TestChunkUnsplittableRun(t *testing.T) {
	// No sentence punctuation and no paragraph breaks: the text cannot be
	// split, so it comes back as a single oversized chunk rather than
	// being dropped.
	text := strings.Repeat("word ", 300)
	drafts := Chunk(text, Options{TargetTokens: 50})
	require.Len(t, drafts, 1)
	assert.Equal(t, EstimateTokens(text), drafts[0].TokenCount)
}

func TestChunkTimeInterpolation(t *testing.T) {
	text := sampleText(60)
	total := 600.0
	drafts := Chunk(text, Options{TargetTokens: 50, DurationSeconds: total})
	require.Greater(t, len(drafts), 2)

	require.NotNil(t, drafts[0].StartSec)
	assert.Equal(t, 0.0, *drafts[0].StartSec)
	last := drafts[len(drafts)-1]
	require.NotNil(t, last.EndSec)
	assert.InDelta(t, total, *last.EndSec, 1e-9)

	for i := 1; i < len(drafts); i++ {
		prev, cur := drafts[i-1], drafts[i]
		require.NotNil(t, prev.EndSec)
		require.NotNil(t, cur.StartSec)
		assert.InDelta(t, *prev.EndSec, *cur.StartSec, 1e-9, "ranges must be contiguous")
		assert.LessOrEqual(t, *cur.StartSec, *cur.EndSec)
	}
}

func TestChunkSegmentsMergesAndKeepsSpans(t *testing.T) {
	segs := []Segment{
		{Text: "Welcome to the onboarding session.", StartSec: 0, EndSec: 10},
		{Text: "Today we cover expense policy.", StartSec: 10, EndSec: 20},
		{Text: "Submit reports by Friday.", StartSec: 20, EndSec: 30},
	}
	drafts := ChunkSegments(segs, Options{TargetTokens: 500})
	require.Len(t, drafts, 1)
	require.NotNil(t, drafts[0].StartSec)
	require.NotNil(t, drafts[0].EndSec)
	assert.Equal(t, 0.0, *drafts[0].StartSec)
	assert.Equal(t, 30.0, *drafts[0].EndSec)
	assert.Contains(t, drafts[0].Content, "expense policy")
}

func TestChunkSegmentsSplitsByBudget(t *testing.T) {
	var segs []Segment
	for i := 0; i < 20; i++ {
		segs = append(segs, Segment{
			Text:     fmt.Sprintf("Segment %d covers one more minute of the recording here.", i),
			StartSec: float64(i * 60),
			EndSec:   float64((i + 1) * 60),
		})
	}
	drafts := ChunkSegments(segs, Options{TargetTokens: 40})
	require.Greater(t, len(drafts), 1)

	for i, d := range drafts {
		assert.Equal(t, i, d.Index)
		require.NotNil(t, d.StartSec)
		require.NotNil(t, d.EndSec)
		assert.Less(t, *d.StartSec, *d.EndSec)
	}
	// Whole recording stays covered end to end.
	assert.Equal(t, 0.0, *drafts[0].StartSec)
	assert.Equal(t, 1200.0, *drafts[len(drafts)-1].EndSec)
}

func TestChunkSegmentsOversizedSegment(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 60; i++ {
		fmt.Fprintf(&b, "Sentence %d of a single very long caption block. ", i)
	}
	segs := []Segment{{Text: b.String(), StartSec: 100, EndSec: 400}}
	drafts := ChunkSegments(segs, Options{TargetTokens: 50})
	require.Greater(t, len(drafts), 1)
	assert.InDelta(t, 100.0, *drafts[0].StartSec, 1e-9)
	assert.InDelta(t, 400.0, *drafts[len(drafts)-1].EndSec, 1e-9)
	for i := 1; i < len(drafts); i++ {
		assert.GreaterOrEqual(t, *drafts[i].StartSec, *drafts[i-1].StartSec)
	}
}

func TestChunkSegmentsAllBlank(t *testing.T) {
	drafts := ChunkSegments([]Segment{{Text: "  "}, {Text: "\n"}}, Options{TargetTokens: 50})
	require.Len(t, drafts, 1)
	assert.Equal(t, "", drafts[0].Content)
}

// sampleText builds n short paragraphs of a few sentences each.
func sampleText(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "Paragraph %d opens with context. It adds one supporting detail. It closes cleanly.\n\n", i)
	}
	return b.String()
}
