package apihttp

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"mediavault/internal/domain"
)

const maxListLimit = 1000

func (s *Server) handleMovies(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.movies == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "movie repository not configured")
		return
	}

	filter, err := parseMovieFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	movies, listErr := s.movies.List(r.Context(), filter)
	if listErr != nil {
		s.logger.Error("list movies failed", slog.String("error", listErr.Error()))
		writeError(w, http.StatusInternalServerError, "repository_error", "storage operation failed")
		return
	}

	items := make([]movieSummary, 0, len(movies))
	for _, m := range movies {
		items = append(items, summarizeMovie(m))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": items, "count": len(items)})
}

// handleMovieByID routes /movies/{id}, /movies/{id}/download,
// /movies/{id}/task and /movies/{id}/cache.
func (s *Server) handleMovieByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/movies/")
	id, action, _ := strings.Cut(rest, "/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing movie id")
		return
	}
	movieID := domain.MovieID(id)

	switch action {
	case "":
		s.handleGetMovie(w, r, movieID)
	case "download":
		s.handleDownload(w, r, movieID)
	case "task":
		s.handleGetTask(w, r, movieID)
	case "cache":
		s.handleClearMovieCache(w, r, movieID)
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) handleGetMovie(w http.ResponseWriter, r *http.Request, id domain.MovieID) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.movies == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "movie repository not configured")
		return
	}
	movie, err := s.movies.Get(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, movie)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request, id domain.MovieID) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.startDownload == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "download use case not configured")
		return
	}
	task, err := s.startDownload.Execute(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, task)
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request, id domain.MovieID) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.tasks == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "task repository not configured")
		return
	}
	task, err := s.tasks.GetByMovie(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleClearMovieCache(w http.ResponseWriter, r *http.Request, id domain.MovieID) {
	if r.Method != http.MethodDelete {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.clearCache == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "cache use case not configured")
		return
	}
	if err := s.clearCache.Execute(r.Context(), id); err != nil {
		s.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.clearCache == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "cache use case not configured")
		return
	}
	result, err := s.clearCache.ExecuteAll(r.Context())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.categories == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "category repository not configured")
		return
	}
	categories, err := s.categories.List(r.Context())
	if err != nil {
		s.logger.Error("list categories failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "repository_error", "storage operation failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": categories, "count": len(categories)})
}

func parseMovieFilter(r *http.Request) (domain.MovieFilter, error) {
	query := r.URL.Query()
	filter := domain.MovieFilter{
		CategoryID: domain.CategoryID(strings.TrimSpace(query.Get("categoryId"))),
		Search:     strings.TrimSpace(query.Get("search")),
		SortBy:     strings.TrimSpace(query.Get("sortBy")),
	}

	if raw := strings.TrimSpace(query.Get("status")); raw != "" {
		status := domain.MovieStatus(raw)
		switch status {
		case domain.MoviePending, domain.MovieDownloading, domain.MovieReady, domain.MovieError:
			filter.Status = &status
		default:
			return domain.MovieFilter{}, errors.New("invalid status")
		}
	}

	switch strings.TrimSpace(query.Get("sortOrder")) {
	case "", "desc":
		filter.SortOrder = domain.SortDesc
	case "asc":
		filter.SortOrder = domain.SortAsc
	default:
		return domain.MovieFilter{}, errors.New("invalid sortOrder")
	}

	var err error
	if filter.Limit, err = parseNonNegativeInt(query.Get("limit")); err != nil {
		return domain.MovieFilter{}, errors.New("invalid limit")
	}
	if filter.Offset, err = parseNonNegativeInt(query.Get("offset")); err != nil {
		return domain.MovieFilter{}, errors.New("invalid offset")
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	return filter, nil
}

func parseNonNegativeInt(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0, errors.New("invalid number")
	}
	return value, nil
}
