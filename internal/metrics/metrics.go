// Package metrics exposes Prometheus instrumentation for the HTTP
// surface, the coverer, the compressor, and the cache/audit/ingest
// collaborators.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "geocover_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geocover_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// WebSocket progress-stream metrics.
	WebSocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "geocover_websocket_connections_active",
			Help: "Number of active WebSocket progress-stream connections",
		},
	)

	WebSocketProgressMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geocover_websocket_progress_messages_total",
			Help: "Total number of progress milestones streamed over WebSocket",
		},
		[]string{"status"},
	)

	// Coverer metrics.
	CoverCellsMatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geocover_cover_cells_matched_total",
			Help: "Total number of grid cells matching the cover criterion",
		},
		[]string{"criterion"},
	)

	CoverDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "geocover_cover_duration_seconds",
			Help:    "Duration of Cover() calls in seconds",
			Buckets: []float64{.01, .05, .1, .5, 1, 5, 10, 30, 60},
		},
		[]string{"criterion"},
	)

	CoverErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geocover_cover_errors_total",
			Help: "Total number of Cover() calls that returned an error",
		},
		[]string{"reason"},
	)

	// Compressor metrics.
	CompressInputSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "geocover_compress_input_size",
			Help:    "Size of the geohash set passed to Compress()",
			Buckets: []float64{1, 10, 50, 100, 500, 1000, 5000, 20000},
		},
	)

	CompressOutputSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "geocover_compress_output_size",
			Help:    "Size of the geohash set returned by Compress()",
			Buckets: []float64{1, 10, 50, 100, 500, 1000, 5000, 20000},
		},
	)

	// Cache metrics (internal/cache).
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geocover_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"operation"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geocover_cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"operation"},
	)

	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geocover_cache_errors_total",
			Help: "Total number of cache backend errors",
		},
		[]string{"operation"},
	)

	// Audit log metrics (internal/audit).
	AuditWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geocover_audit_writes_total",
			Help: "Total number of coverer call audit records written",
		},
		[]string{"status"},
	)

	// MQTT ingestion metrics (internal/ingest).
	IngestMessagesReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "geocover_ingest_messages_received_total",
			Help: "Total number of geohash messages received over MQTT",
		},
	)

	IngestParseErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "geocover_ingest_parse_errors_total",
			Help: "Total number of malformed geohash ingestion messages",
		},
	)

	IngestConnectionStatus = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "geocover_ingest_connection_status",
			Help: "MQTT connection status (1 = connected, 0 = disconnected)",
		},
	)

	IngestSnapshotSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "geocover_ingest_snapshot_size",
			Help: "Number of geohashes in the accumulator's last published snapshot",
		},
	)

	// General application metrics.
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "geocover_app_info",
			Help: "Application build information",
		},
		[]string{"version", "commit", "build_time"},
	)
)

// SetAppInfo records the running build's version metadata.
func SetAppInfo(version, commit, buildTime string) {
	AppInfo.WithLabelValues(version, commit, buildTime).Set(1)
}
