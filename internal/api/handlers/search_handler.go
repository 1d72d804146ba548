package handlers

import (
	"encoding/json"
	"net/http"

	middleware "github.com/atriumhq/atrium-backend/internal/api/middlewares"
	"github.com/atriumhq/atrium-backend/internal/core/search"
)

type SearchHandler struct {
	engine *search.Engine
}

func NewSearchHandler(engine *search.Engine) *SearchHandler {
	return &SearchHandler{engine: engine}
}

// Search serves POST /api/search: a semantic query ranked and filtered for
// the authenticated viewer.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	viewer, ok := middleware.ViewerFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "viewer identity missing")
		return
	}

	var req search.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.engine.Search(r.Context(), req, viewer)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
