package apihttp

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"

	"mediavault/internal/domain"
)

// handleStream serves cached movie bytes with byte-range support. The served
// window is bounded by the configured chunk size, so players issue a series
// of small range requests instead of one unbounded read.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.streamMovie == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "stream use case not configured")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/stream/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing movie id")
		return
	}

	rangeHeader := r.Header.Get("Range")
	result, err := s.streamMovie.Execute(r.Context(), domain.MovieID(id), rangeHeader)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	defer result.Reader.Close()

	w.Header().Set("Content-Type", result.ContentType)
	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Content-Length", strconv.FormatInt(result.ContentLength, 10))

	if result.IsPartial {
		w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", result.RangeStart, result.RangeEnd, result.FileSize))
		w.WriteHeader(http.StatusPartialContent)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	if r.Method == http.MethodHead {
		return
	}

	if _, err := io.Copy(w, result.Reader); err != nil && !isClientDisconnect(err) {
		s.logger.Warn("stream copy failed",
			slog.String("movieId", id),
			slog.String("error", err.Error()),
		)
	}
}

// isClientDisconnect reports whether the copy error is just the player
// closing the connection mid-read, which is routine for seeking video players.
func isClientDisconnect(err error) bool {
	if errors.Is(err, net.ErrClosed) {
		return true
	}
	var netErr *net.OpError
	if errors.As(err, &netErr) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "broken pipe") || strings.Contains(msg, "connection reset")
}
