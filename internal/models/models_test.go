package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStageStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to StageStatus
		ok       bool
	}{
		{StatusNotStarted, StatusProcessing, true},
		{StatusNotStarted, StatusCompleted, false},
		{StatusNotStarted, StatusFailed, false},
		{StatusProcessing, StatusCompleted, true},
		{StatusProcessing, StatusPending, true},
		{StatusProcessing, StatusFailed, true},
		{StatusProcessing, StatusNotStarted, false},
		{StatusPending, StatusCompleted, true},
		{StatusPending, StatusFailed, true},
		{StatusPending, StatusProcessing, true},
		{StatusFailed, StatusProcessing, true},
		{StatusFailed, StatusCompleted, false},
		{StatusCompleted, StatusProcessing, false},
		{StatusCompleted, StatusFailed, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.ok, tc.from.CanTransition(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestStageStatusTerminal(t *testing.T) {
	assert.False(t, StatusNotStarted.Terminal())
	assert.False(t, StatusProcessing.Terminal())
	assert.True(t, StatusPending.Terminal())
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusFailed.Terminal())
}

func TestStageStatusFor(t *testing.T) {
	a := &Asset{
		TranscriptStatus: StatusCompleted,
		EmbeddingStatus:  StatusPending,
		SummaryStatus:    StatusFailed,
	}
	assert.Equal(t, StatusCompleted, a.StageStatusFor(StageTranscript))
	assert.Equal(t, StatusPending, a.StageStatusFor(StageEmbedding))
	assert.Equal(t, StatusFailed, a.StageStatusFor(StageSummary))
}

func TestMediaKindValid(t *testing.T) {
	assert.True(t, MediaDocument.Valid())
	assert.True(t, MediaAudio.Valid())
	assert.True(t, MediaVideo.Valid())
	assert.False(t, MediaKind("image").Valid())
	assert.False(t, MediaKind("").Valid())
}

func TestVisibilityRuleMatches(t *testing.T) {
	sales := "Sales"
	emea := "EMEA"
	viewer := Viewer{Role: "manager", Team: "Sales", Region: "APAC"}

	assert.True(t, VisibilityRule{Team: &sales}.Matches(viewer))
	assert.True(t, VisibilityRule{Team: &sales, Region: &emea}.Matches(viewer), "any one condition suffices")
	assert.False(t, VisibilityRule{Region: &emea}.Matches(viewer))
	assert.False(t, VisibilityRule{}.Matches(viewer), "empty rule matches nobody")
}

func TestViewerIsAdmin(t *testing.T) {
	assert.True(t, Viewer{Role: AdminRole}.IsAdmin())
	assert.False(t, Viewer{Role: "manager"}.IsAdmin())
}
