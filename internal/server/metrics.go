package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the disparity server.
var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parallax_http_requests_total",
			Help: "Total number of HTTP requests processed, labeled by method, endpoint, and status code.",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "parallax_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds, labeled by method and endpoint.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	matchRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parallax_match_requests_total",
			Help: "Total number of disparity computations, labeled by request type and status.",
		},
		[]string{"type", "status"},
	)

	matchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "parallax_match_duration_seconds",
			Help:    "Disparity computation duration in seconds, labeled by request type.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50, 100},
		},
		[]string{"type"},
	)

	matchValidRatio = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "parallax_match_valid_ratio",
			Help:    "Share of pixels with a resolved disparity per computation, labeled by request type.",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		},
		[]string{"type"},
	)

	activeComputations = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "parallax_active_computations",
			Help: "Number of disparity computations currently running.",
		},
	)

	uploadSizeBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "parallax_upload_size_bytes",
			Help:    "Size of uploaded images in bytes.",
			Buckets: prometheus.ExponentialBuckets(1024, 10, 6), // 1KB to 100MB
		},
	)

	websocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "parallax_websocket_active_connections",
			Help: "Number of active WebSocket connections.",
		},
	)

	websocketMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parallax_websocket_messages_total",
			Help: "Total number of WebSocket messages, labeled by direction.",
		},
		[]string{"direction"},
	)
)
