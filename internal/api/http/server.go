package apihttp

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"mediavault/internal/domain"
	domainports "mediavault/internal/domain/ports"
	"mediavault/internal/usecase"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type ScanLibraryUseCase interface {
	Execute(ctx context.Context, rootPath string) (usecase.ScanResult, error)
}

type StartDownloadUseCase interface {
	Execute(ctx context.Context, id domain.MovieID) (domain.DownloadTask, error)
}

type StreamMovieUseCase interface {
	Execute(ctx context.Context, id domain.MovieID, rangeHeader string) (usecase.StreamResult, error)
}

type ClearCacheUseCase interface {
	Execute(ctx context.Context, id domain.MovieID) error
	ExecuteAll(ctx context.Context) (usecase.ClearResult, error)
}

// HealthChecker reports whether the persistence collaborator is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

type Server struct {
	scanLibrary    ScanLibraryUseCase
	startDownload  StartDownloadUseCase
	streamMovie    StreamMovieUseCase
	clearCache     ClearCacheUseCase
	movies         domainports.MovieRepository
	categories     domainports.CategoryRepository
	tasks          domainports.TaskRepository
	health         HealthChecker
	defaultRoot    string
	allowedOrigins []string
	logger         *slog.Logger
	handler        http.Handler
	wsHub          *wsHub
}

type ServerOption func(*Server)

func WithMovies(repo domainports.MovieRepository) ServerOption {
	return func(s *Server) { s.movies = repo }
}

func WithCategories(repo domainports.CategoryRepository) ServerOption {
	return func(s *Server) { s.categories = repo }
}

func WithTasks(repo domainports.TaskRepository) ServerOption {
	return func(s *Server) { s.tasks = repo }
}

func WithStartDownload(uc StartDownloadUseCase) ServerOption {
	return func(s *Server) { s.startDownload = uc }
}

func WithStreamMovie(uc StreamMovieUseCase) ServerOption {
	return func(s *Server) { s.streamMovie = uc }
}

func WithClearCache(uc ClearCacheUseCase) ServerOption {
	return func(s *Server) { s.clearCache = uc }
}

func WithHealthChecker(h HealthChecker) ServerOption {
	return func(s *Server) { s.health = h }
}

// WithDefaultScanRoot sets the remote root used when a scan request carries
// no root query parameter.
func WithDefaultScanRoot(root string) ServerOption {
	return func(s *Server) { s.defaultRoot = root }
}

// WithAllowedOrigins configures the CORS allowed origins whitelist.
// When empty (default), any origin is permitted (development mode).
func WithAllowedOrigins(origins []string) ServerOption {
	return func(s *Server) { s.allowedOrigins = origins }
}

func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) { s.logger = logger }
}

func NewServer(scan ScanLibraryUseCase, opts ...ServerOption) *Server {
	s := &Server{scanLibrary: scan}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	s.wsHub = newWSHub(s.logger)
	go s.wsHub.run()

	mux := http.NewServeMux()
	mux.HandleFunc("/scan", s.handleScan)
	mux.HandleFunc("/scan/async", s.handleScanAsync)
	mux.HandleFunc("/movies", s.handleMovies)
	mux.HandleFunc("/movies/", s.handleMovieByID)
	mux.HandleFunc("/categories", s.handleCategories)
	mux.HandleFunc("/stream/", s.handleStream)
	mux.HandleFunc("/cache/clear", s.handleCacheClear)
	mux.HandleFunc("/internal/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/ws", s.handleWS)

	traced := otelhttp.NewHandler(loggingMiddleware(s.logger, mux), "mediavault",
		otelhttp.WithFilter(func(r *http.Request) bool {
			p := r.URL.Path
			return p != "/metrics" && p != "/internal/health" && !strings.HasPrefix(p, "/stream/")
		}),
	)
	s.handler = recoveryMiddleware(s.logger, rateLimitMiddleware(100, 200, metricsMiddleware(corsMiddleware(s.allowedOrigins, traced))))
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("ws upgrade failed", slog.String("error", err.Error()))
		return
	}
	sub := &wsSubscriber{
		hub:  s.wsHub,
		conn: conn,
		send: make(chan []byte, wsSendBacklog),
	}
	select {
	case s.wsHub.attach <- sub:
	case <-s.wsHub.done:
		conn.Close()
		return
	}
	go sub.writePump()
	go sub.readPump()
}

// ProgressSink returns a ports.ProgressSink that broadcasts download task
// snapshots over the websocket hub.
func (s *Server) ProgressSink() domainports.ProgressSink {
	return hubSink{hub: s.wsHub}
}

// BroadcastMovies pushes summaries of all movies to every websocket client.
func (s *Server) BroadcastMovies(ctx context.Context) {
	if s.movies == nil {
		return
	}
	movies, err := s.movies.List(ctx, domain.MovieFilter{})
	if err != nil {
		s.logger.Debug("ws broadcast movies failed", slog.String("error", err.Error()))
		return
	}
	summaries := make([]movieSummary, 0, len(movies))
	for _, m := range movies {
		summaries = append(summaries, summarizeMovie(m))
	}
	s.wsHub.Broadcast("movies", summaries)
}

// Close shuts down the websocket hub, disconnecting all clients.
func (s *Server) Close() {
	if s.wsHub != nil {
		s.wsHub.Close()
	}
}
