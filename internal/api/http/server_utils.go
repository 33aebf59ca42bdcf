package apihttp

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"mediavault/internal/domain"
	"mediavault/internal/usecase"
)

type errorEnvelope struct {
	Error errorPayload `json:"error"`
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorEnvelope{Error: errorPayload{Code: code, Message: message}})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "movie not found")
	case errors.Is(err, usecase.ErrAlreadyCached):
		writeError(w, http.StatusConflict, "already_cached", "movie is already cached")
	case errors.Is(err, usecase.ErrAlreadyInProgress):
		writeError(w, http.StatusConflict, "already_in_progress", "download already in progress")
	case errors.Is(err, usecase.ErrNotReady):
		writeError(w, http.StatusConflict, "not_ready", "movie is not cached yet")
	case errors.Is(err, usecase.ErrRepository):
		// Driver detail goes to the log, never into the response body.
		s.logger.Error("repository error", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "repository_error", "storage operation failed")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

type movieSummary struct {
	ID         domain.MovieID     `json:"id"`
	Title      string             `json:"title"`
	Year       int                `json:"year,omitempty"`
	Status     domain.MovieStatus `json:"status"`
	FileSize   int64              `json:"fileSize,omitempty"`
	Cached     bool               `json:"cached"`
	CategoryID domain.CategoryID  `json:"categoryId,omitempty"`
	CreatedAt  time.Time          `json:"createdAt"`
	UpdatedAt  time.Time          `json:"updatedAt"`
}

func summarizeMovie(m domain.Movie) movieSummary {
	return movieSummary{
		ID:         m.ID,
		Title:      m.Title,
		Year:       m.Year,
		Status:     m.Status,
		FileSize:   m.FileSize,
		Cached:     m.Cached(),
		CategoryID: m.CategoryID,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}
