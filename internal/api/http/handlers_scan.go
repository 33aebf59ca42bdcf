package apihttp

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"mediavault/internal/metrics"
)

const asyncScanTimeout = 30 * time.Minute

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.scanLibrary == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "scan use case not configured")
		return
	}

	root := s.scanRoot(r)
	start := time.Now()
	result, err := s.scanLibrary.Execute(r.Context(), root)
	metrics.ScanDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		writeError(w, http.StatusBadGateway, "scan_failed", err.Error())
		return
	}
	metrics.ScanErrors.Add(float64(len(result.Errors)))

	writeJSON(w, http.StatusOK, result)
}

// handleScanAsync acknowledges immediately and runs the scan in the
// background; the outcome is only observable in logs and discovered records.
func (s *Server) handleScanAsync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.scanLibrary == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "scan use case not configured")
		return
	}

	root := s.scanRoot(r)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), asyncScanTimeout)
		defer cancel()

		start := time.Now()
		result, err := s.scanLibrary.Execute(ctx, root)
		metrics.ScanDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			s.logger.Error("async scan failed",
				slog.String("root", root),
				slog.String("error", err.Error()),
			)
			return
		}
		metrics.ScanErrors.Add(float64(len(result.Errors)))
		s.logger.Info("async scan finished",
			slog.String("root", root),
			slog.Int("discovered", result.MoviesDiscovered),
			slog.Int("skipped", result.MoviesSkipped),
			slog.Int("errors", len(result.Errors)),
		)
		s.BroadcastMovies(ctx)
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "scanning", "root": root})
}

func (s *Server) scanRoot(r *http.Request) string {
	if root := strings.TrimSpace(r.URL.Query().Get("root")); root != "" {
		return root
	}
	return s.defaultRoot
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.health.Ping(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
