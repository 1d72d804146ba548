package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/atriumhq/atrium-backend/internal/core"
	"github.com/atriumhq/atrium-backend/internal/core/ingest"
	"github.com/atriumhq/atrium-backend/internal/models"
)

// IngestHandler serves the ingestion webhook used by upload pipelines that
// put blobs in object storage directly (bulk imports, CMS hooks).
type IngestHandler struct {
	store        core.AssetStore
	orchestrator *ingest.Orchestrator
}

func NewIngestHandler(store core.AssetStore, orch *ingest.Orchestrator) *IngestHandler {
	return &IngestHandler{store: store, orchestrator: orch}
}

type ingestRequest struct {
	AssetID    string           `json:"asset_id"`
	SourcePath string           `json:"source_path,omitempty"`
	MediaKind  models.MediaKind `json:"media_kind,omitempty"`
	Title      string           `json:"title,omitempty"`
}

type ingestResponse struct {
	Success    bool   `json:"success"`
	ChunkCount int    `json:"chunk_count,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Ingest serves POST /api/ingest: synchronous ingestion of one asset.
// Callers must not invoke it concurrently for the same asset. When the asset
// row does not exist yet and the request carries source metadata, the row is
// created first.
func (h *IngestHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.AssetID == "" {
		writeError(w, http.StatusBadRequest, "asset_id is required")
		return
	}

	if req.SourcePath != "" {
		existing, err := h.store.GetAssetByID(r.Context(), req.AssetID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if existing == nil {
			if !req.MediaKind.Valid() {
				writeError(w, http.StatusBadRequest, "media_kind is required for new assets")
				return
			}
			asset := &models.Asset{
				ID:               req.AssetID,
				Title:            req.Title,
				MediaKind:        req.MediaKind,
				SourcePath:       req.SourcePath,
				TranscriptStatus: models.StatusNotStarted,
				EmbeddingStatus:  models.StatusNotStarted,
				SummaryStatus:    models.StatusNotStarted,
			}
			if err := h.store.CreateAsset(r.Context(), asset); err != nil {
				writeError(w, http.StatusInternalServerError, err.Error())
				return
			}
		}
	}

	count, err := h.orchestrator.Ingest(r.Context(), req.AssetID)
	if err != nil {
		writeJSON(w, statusForError(err), ingestResponse{Success: false, Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, ingestResponse{Success: true, ChunkCount: count})
}
