package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mediavault",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests by method, path and status code.",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "mediavault",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   []float64{0.05, 0.1, 0.3, 0.5, 1, 2, 5, 10, 30},
	}, []string{"method", "path"})

	ActiveTransfers = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "mediavault",
		Name:      "active_transfers",
		Help:      "Number of movie transfers currently running.",
	})

	TransfersStarted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "mediavault",
		Name:      "transfers_started_total",
		Help:      "Total number of movie transfers started.",
	})

	TransfersCompleted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "mediavault",
		Name:      "transfers_completed_total",
		Help:      "Total number of movie transfers that completed successfully.",
	})

	TransfersFailed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "mediavault",
		Name:      "transfers_failed_total",
		Help:      "Total number of movie transfers that failed or timed out.",
	})

	BytesDownloaded = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "mediavault",
		Name:      "bytes_downloaded_total",
		Help:      "Total bytes written to the local cache by completed transfers.",
	})

	ScanDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "mediavault",
		Name:      "scan_duration_seconds",
		Help:      "Duration of remote library scans in seconds.",
		Buckets:   []float64{1, 5, 10, 30, 60, 120, 300},
	})

	ScanErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "mediavault",
		Name:      "scan_errors_total",
		Help:      "Total number of per-folder scan failures.",
	})

	CacheSizeBytes = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "mediavault",
		Name:      "cache_size_bytes",
		Help:      "Current total size of cached movie files in bytes.",
	})

	CachedMovies = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "mediavault",
		Name:      "cached_movies",
		Help:      "Number of movies currently cached on local disk.",
	})
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		ActiveTransfers,
		TransfersStarted,
		TransfersCompleted,
		TransfersFailed,
		BytesDownloaded,
		ScanDuration,
		ScanErrors,
		CacheSizeBytes,
		CachedMovies,
	)
}
