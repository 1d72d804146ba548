package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/atriumhq/atrium-backend/internal/core"
)

type errorResponse struct {
	Success    bool   `json:"success"`
	Error      string `json:"error"`
	HTTPStatus int    `json:"httpStatus"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Success: false, Error: msg, HTTPStatus: status})
}

// statusForError maps the pipeline error taxonomy onto HTTP statuses:
// validation 400, not found 404, everything else 500.
func statusForError(err error) int {
	switch core.KindOf(err) {
	case core.KindValidation:
		return http.StatusBadRequest
	case core.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
