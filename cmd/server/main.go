package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	apihttp "mediavault/internal/api/http"
	"mediavault/internal/app"
	"mediavault/internal/domain"
	"mediavault/internal/metrics"
	mongorepo "mediavault/internal/repository/mongo"
	"mediavault/internal/telemetry"
	"mediavault/internal/transfer/httpget"
	"mediavault/internal/transfer/mega"
	"mediavault/internal/usecase"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.opentelemetry.io/contrib/instrumentation/go.mongodb.org/mongo-driver/mongo/otelmongo"
)

func main() {
	cfg := app.LoadConfig()
	logger := newLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	metrics.Register(prometheus.DefaultRegisterer)

	shutdownTracer, err := telemetry.Init(context.Background(), "mediavault")
	if err != nil {
		logger.Warn("otel init failed", slog.String("error", err.Error()))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	logger.Info("configuration loaded",
		slog.String("service", "mediavault"),
		slog.String("httpAddr", cfg.HTTPAddr),
		slog.String("logLevel", cfg.LogLevel),
		slog.String("logFormat", cfg.LogFormat),
		slog.String("cacheDir", cfg.CacheDir),
		slog.String("remoteScanRoot", cfg.RemoteScanRoot),
		slog.Int("scanIntervalMinutes", cfg.ScanInterval),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx, cancel := context.WithTimeout(rootCtx, 10*time.Second)
	defer cancel()

	mongoMonitor := otelmongo.NewMonitor()
	mongoClient, err := mongorepo.Connect(ctx, cfg.MongoURI, options.Client().SetMonitor(mongoMonitor))
	if err != nil {
		logger.Error("mongo connect failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := mongoClient.Ping(ctx, readpref.Primary()); err != nil {
		logger.Error("mongo ping failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	movies := mongorepo.NewMovieRepository(mongoClient, cfg.MongoDatabase)
	categories := mongorepo.NewCategoryRepository(mongoClient, cfg.MongoDatabase)
	tasks := mongorepo.NewTaskRepository(mongoClient, cfg.MongoDatabase)
	for _, ensure := range []func(context.Context) error{
		movies.EnsureIndexes, categories.EnsureIndexes, tasks.EnsureIndexes,
	} {
		if err := ensure(ctx); err != nil {
			logger.Warn("mongo ensure indexes failed", slog.String("error", err.Error()))
		}
	}

	if err := os.MkdirAll(cfg.CacheDir, 0o755); err != nil {
		logger.Error("cache dir create failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	megaClient := mega.NewClient(cfg.MegaListPath, cfg.MegaFetchPath, logger)
	httpClient := httpget.NewClient()
	guard := usecase.NewActiveTransfers()

	scanUC := usecase.ScanLibrary{
		Remote:     megaClient,
		Movies:     movies,
		Categories: categories,
		Extensions: cfg.VideoExtensions,
		Logger:     logger,
	}
	downloadUC := &usecase.StartDownload{
		Movies:     movies,
		Tasks:      tasks,
		Guard:      guard,
		CLI:        megaClient,
		HTTP:       httpClient,
		CacheDir:   cfg.CacheDir,
		CLITimeout: time.Duration(cfg.TransferTimeout) * time.Minute,
		Logger:     logger,
	}
	streamUC := usecase.StreamMovie{Movies: movies, ChunkBytes: cfg.StreamChunkBytes}
	clearUC := usecase.ClearCache{Movies: movies, Logger: logger}

	handler := apihttp.NewServer(scanUC,
		apihttp.WithMovies(movies),
		apihttp.WithCategories(categories),
		apihttp.WithTasks(tasks),
		apihttp.WithStartDownload(downloadUC),
		apihttp.WithStreamMovie(streamUC),
		apihttp.WithClearCache(clearUC),
		apihttp.WithHealthChecker(mongoHealth{client: mongoClient}),
		apihttp.WithDefaultScanRoot(cfg.RemoteScanRoot),
		apihttp.WithAllowedOrigins(cfg.CORSAllowedOrigins),
		apihttp.WithLogger(logger),
	)
	// Progress events flow out through the server's websocket hub, so the
	// sink can only be attached once the server exists.
	downloadUC.Events = handler.ProgressSink()

	go updateCacheMetrics(rootCtx, movies, handler, cfg.CacheMaxBytes, logger)
	if cfg.ScanInterval > 0 {
		go runScheduledScans(rootCtx, scanUC, cfg.RemoteScanRoot, time.Duration(cfg.ScanInterval)*time.Minute, logger)
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      0,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	logger.Info("server started", slog.String("addr", cfg.HTTPAddr))

	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	handler.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown error", slog.String("error", err.Error()))
	}
	if err := mongoClient.Disconnect(context.Background()); err != nil {
		logger.Warn("mongo disconnect error", slog.String("error", err.Error()))
	}

	logger.Info("server stopped")
}

type mongoHealth struct {
	client *mongo.Client
}

func (h mongoHealth) Ping(ctx context.Context) error {
	return h.client.Ping(ctx, readpref.Primary())
}

// updateCacheMetrics recomputes cache gauges from the movie store and pushes
// movie summaries to websocket clients. Exceeding the configured cache size
// limit is reported but not enforced; the operator clears entries manually.
func updateCacheMetrics(ctx context.Context, movies *mongorepo.MovieRepository, handler *apihttp.Server, maxBytes int64, logger *slog.Logger) {
	gaugeTicker := time.NewTicker(30 * time.Second)
	broadcastTicker := time.NewTicker(15 * time.Second)
	defer gaugeTicker.Stop()
	defer broadcastTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-gaugeTicker.C:
			ready := domain.MovieReady
			cached, err := movies.List(ctx, domain.MovieFilter{Status: &ready})
			if err != nil {
				continue
			}
			var totalBytes int64
			for _, m := range cached {
				totalBytes += m.FileSize
			}
			metrics.CacheSizeBytes.Set(float64(totalBytes))
			metrics.CachedMovies.Set(float64(len(cached)))
			if maxBytes > 0 && totalBytes > maxBytes {
				logger.Warn("cache size over limit",
					slog.Int64("sizeBytes", totalBytes),
					slog.Int64("maxBytes", maxBytes),
				)
			}
		case <-broadcastTicker.C:
			handler.BroadcastMovies(ctx)
		}
	}
}

func runScheduledScans(ctx context.Context, scanUC usecase.ScanLibrary, root string, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			start := time.Now()
			result, err := scanUC.Execute(ctx, root)
			metrics.ScanDuration.Observe(time.Since(start).Seconds())
			if err != nil {
				logger.Warn("scheduled scan failed", slog.String("error", err.Error()))
				continue
			}
			metrics.ScanErrors.Add(float64(len(result.Errors)))
			logger.Info("scheduled scan finished",
				slog.Int("discovered", result.MoviesDiscovered),
				slog.Int("skipped", result.MoviesSkipped),
				slog.Int("errors", len(result.Errors)),
			)
		}
	}
}

func newLogger(levelRaw, formatRaw string) *slog.Logger {
	level := parseLogLevel(levelRaw)
	options := &slog.HandlerOptions{Level: level}
	format := strings.ToLower(strings.TrimSpace(formatRaw))
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, options))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, options))
}

func parseLogLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
