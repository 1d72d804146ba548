package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/atriumhq/atrium-backend/internal/core"
	"github.com/atriumhq/atrium-backend/internal/core/ingest"
	"github.com/atriumhq/atrium-backend/internal/models"
)

type AssetHandler struct {
	store        core.AssetStore
	objectclient core.ObjectClient
	orchestrator *ingest.Orchestrator
}

func NewAssetHandler(store core.AssetStore, objectclient core.ObjectClient, orch *ingest.Orchestrator) *AssetHandler {
	return &AssetHandler{store: store, objectclient: objectclient, orchestrator: orch}
}

// Upload handles multipart asset upload: blob to object storage, metadata
// row, then background ingestion.
func (h *AssetHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(64 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid file")
		return
	}
	defer file.Close()

	kind := models.MediaKind(r.FormValue("media_kind"))
	if !kind.Valid() {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown media_kind %q", kind))
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "read file")
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	// Sanitize filename to prevent path traversal or invalid characters.
	assetID := uuid.NewString()
	key := fmt.Sprintf("assets/%s/%s", assetID, filepath.Base(header.Filename))

	uploadCtx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	if _, err := h.objectclient.UploadFile(uploadCtx, key, data, contentType); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("upload failed: %v", err))
		return
	}

	title := strings.TrimSpace(r.FormValue("title"))
	if title == "" {
		title = header.Filename
	}

	asset := &models.Asset{
		ID:               assetID,
		Title:            title,
		Description:      r.FormValue("description"),
		MediaKind:        kind,
		ContentType:      contentType,
		SourcePath:       key,
		DurationSeconds:  parseDuration(r.FormValue("duration_seconds")),
		Category:         r.FormValue("category"),
		Subcategory:      r.FormValue("subcategory"),
		Series:           r.FormValue("series"),
		Tags:             splitCSV(r.FormValue("tags")),
		TranscriptStatus: models.StatusNotStarted,
		EmbeddingStatus:  models.StatusNotStarted,
		SummaryStatus:    models.StatusNotStarted,
	}

	if err := h.store.CreateAsset(uploadCtx, asset); err != nil {
		log.Printf("asset insert failed for %s: %v", assetID, err)
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to store asset metadata: %v", err))
		return
	}

	h.orchestrator.Enqueue(asset.ID)
	writeJSON(w, http.StatusOK, asset)
}

func (h *AssetHandler) List(w http.ResponseWriter, r *http.Request) {
	assets, err := h.store.ListAssets(r.Context(), 100)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, assets)
}

func (h *AssetHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	asset, err := h.store.GetAssetByID(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if asset == nil {
		writeError(w, http.StatusNotFound, "asset not found")
		return
	}
	writeJSON(w, http.StatusOK, asset)
}

type retryRequest struct {
	Stage models.Stage `json:"stage"`
}

type retryResponse struct {
	Success    bool `json:"success"`
	ChunkCount int  `json:"chunk_count,omitempty"`
}

// Retry serves POST /api/assets/{id}/retry: an operator re-running a failed
// processing stage.
func (h *AssetHandler) Retry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req retryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Stage == "" {
		req.Stage = models.StageTranscript
	}

	count, err := h.orchestrator.RetryStage(r.Context(), id, req.Stage)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, retryResponse{Success: true, ChunkCount: count})
}

func parseDuration(s string) *float64 {
	if s == "" {
		return nil
	}
	d, err := strconv.ParseFloat(s, 64)
	if err != nil || d <= 0 {
		return nil
	}
	return &d
}

func splitCSV(s string) []string {
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
