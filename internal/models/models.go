package models

import (
	"time"
)

// MediaKind classifies an asset's source media.
type MediaKind string

const (
	MediaDocument MediaKind = "document"
	MediaAudio    MediaKind = "audio"
	MediaVideo    MediaKind = "video"
)

// Valid reports whether k is one of the known media kinds.
func (k MediaKind) Valid() bool {
	switch k {
	case MediaDocument, MediaAudio, MediaVideo:
		return true
	}
	return false
}

// Stage names one processing concern tracked independently per asset.
type Stage string

const (
	StageTranscript Stage = "transcript"
	StageEmbedding  Stage = "embedding"
	StageSummary    Stage = "summary"
)

// StageStatus is the closed set of states a processing stage can be in.
type StageStatus string

const (
	StatusNotStarted StageStatus = "not_started"
	StatusProcessing StageStatus = "processing"
	StatusPending    StageStatus = "pending"
	StatusCompleted  StageStatus = "completed"
	StatusFailed     StageStatus = "failed"
)

// Terminal reports whether s is a state ingestion may legally leave behind.
func (s StageStatus) Terminal() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// CanTransition reports whether moving from s to next is a legal stage
// transition. Statuses only move forward, except that a failed or pending
// stage may re-enter processing on an explicit retry.
func (s StageStatus) CanTransition(next StageStatus) bool {
	switch s {
	case StatusNotStarted:
		return next == StatusProcessing
	case StatusProcessing:
		return next == StatusPending || next == StatusCompleted || next == StatusFailed
	case StatusPending:
		return next == StatusCompleted || next == StatusFailed || next == StatusProcessing
	case StatusFailed:
		return next == StatusProcessing
	case StatusCompleted:
		return false
	}
	return false
}

// Asset represents one document, audio or video item in the library.
type Asset struct {
	ID               string      `db:"id" json:"id"`
	Title            string      `db:"title" json:"title"`
	Description      string      `db:"description" json:"description,omitempty"`
	MediaKind        MediaKind   `db:"media_kind" json:"media_kind"`
	ContentType      string      `db:"content_type" json:"content_type,omitempty"`
	SourcePath       string      `db:"source_path" json:"source_path"`
	DurationSeconds  *float64    `db:"duration_seconds" json:"duration_seconds,omitempty"`
	Category         string      `db:"category" json:"category,omitempty"`
	Subcategory      string      `db:"subcategory" json:"subcategory,omitempty"`
	Series           string      `db:"series" json:"series,omitempty"`
	Tags             []string    `db:"tags" json:"tags,omitempty"`
	Summary          string      `db:"summary" json:"summary,omitempty"`
	TranscriptStatus StageStatus `db:"transcript_status" json:"transcript_status"`
	EmbeddingStatus  StageStatus `db:"embedding_status" json:"embedding_status"`
	SummaryStatus    StageStatus `db:"summary_status" json:"summary_status"`
	LastError        string      `db:"last_error" json:"last_error,omitempty"`
	CreatedAt        time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time   `db:"updated_at" json:"updated_at"`
}

// StageStatusFor returns the current status of the given stage.
func (a *Asset) StageStatusFor(stage Stage) StageStatus {
	switch stage {
	case StageEmbedding:
		return a.EmbeddingStatus
	case StageSummary:
		return a.SummaryStatus
	default:
		return a.TranscriptStatus
	}
}

// Chunk represents one text segment of an asset, the unit indexed for search.
// Chunk indices are dense and contiguous within an asset; the whole set is
// replaced atomically on re-ingestion.
type Chunk struct {
	ID             string    `db:"id" json:"id"`
	AssetID        string    `db:"asset_id" json:"asset_id"`
	ChunkIndex     int       `db:"chunk_index" json:"chunk_index"`
	Content        string    `db:"content" json:"content"`
	TokenCount     int       `db:"token_count" json:"token_count"`
	TimeRangeStart *float64  `db:"time_range_start" json:"time_range_start,omitempty"`
	TimeRangeEnd   *float64  `db:"time_range_end" json:"time_range_end,omitempty"`
	Embedding      []float32 `db:"embedding" json:"-"` // pgvector column, nil until embedded
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// VisibilityRule restricts which viewers may see an asset in search results.
// Each rule carries up to four conditions; a viewer passes a rule by matching
// any one of them, and passes the asset by passing any rule. An asset with no
// rules is visible to everyone.
type VisibilityRule struct {
	ID      string  `db:"id" json:"id"`
	AssetID string  `db:"asset_id" json:"asset_id"`
	Role    *string `db:"role" json:"role,omitempty"`
	Team    *string `db:"team" json:"team,omitempty"`
	Area    *string `db:"area" json:"area,omitempty"`
	Region  *string `db:"region" json:"region,omitempty"`
}

// Viewer is the identity search results are filtered for.
type Viewer struct {
	ID     string `json:"id"`
	Role   string `json:"role"`
	Team   string `json:"team"`
	Area   string `json:"area"`
	Region string `json:"region"`
}

// AdminRole is the role that bypasses all visibility rules.
const AdminRole = "admin"

// IsAdmin reports whether the viewer holds the administrative role.
func (v Viewer) IsAdmin() bool { return v.Role == AdminRole }

// Matches reports whether the viewer satisfies at least one of the rule's
// conditions. A rule with no conditions set matches nothing.
func (r VisibilityRule) Matches(v Viewer) bool {
	if r.Role != nil && *r.Role == v.Role {
		return true
	}
	if r.Team != nil && *r.Team == v.Team {
		return true
	}
	if r.Area != nil && *r.Area == v.Area {
		return true
	}
	if r.Region != nil && *r.Region == v.Region {
		return true
	}
	return false
}

// SearchQueryLog is the analytics record written for each search request.
// Writes are best-effort and never fail the request.
type SearchQueryLog struct {
	ID          string    `db:"id" json:"id"`
	ViewerID    string    `db:"viewer_id" json:"viewer_id"`
	Query       string    `db:"query" json:"query"`
	Filters     string    `db:"filters" json:"filters"`
	ResultCount int       `db:"result_count" json:"result_count"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
