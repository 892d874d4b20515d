// Package server exposes the stereo matcher over HTTP and WebSocket.
// Uploaded pairs are matched with a per-request matcher; admission to the
// compute stage is bounded so concurrent uploads cannot exhaust memory.
package server

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MeKo-Tech/parallax/internal/adcensus"
)

// Config holds the server configuration.
type Config struct {
	Host          string
	Port          int
	MaxUploadMB   int64
	CORSEnabled   bool
	TimeoutSec    int
	MaxConcurrent int
	Matcher       adcensus.Options
}

// Addr returns the listen address for the configured host and port.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Server handles disparity requests against a fixed matcher configuration.
// Per-request overrides are applied on a copy of the options.
type Server struct {
	matcherOpts adcensus.Options
	gate        *ComputeLimiter
	corsEnabled bool
	maxUploadMB int64
	timeoutSec  int
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Time    string `json:"time"`
}

// InfoResponse describes the matcher configuration and request limits.
type InfoResponse struct {
	Version       string                 `json:"version"`
	Matcher       map[string]interface{} `json:"matcher"`
	MaxUploadMB   int64                  `json:"max_upload_mb"`
	TimeoutSec    int                    `json:"timeout_sec"`
	MaxConcurrent int                    `json:"max_concurrent"`
}

// ErrorResponse is the JSON envelope for requests that fail before a
// result is produced.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// NewServer validates the configuration and creates a new server instance.
func NewServer(config Config) (*Server, error) {
	if err := config.Matcher.Validate(); err != nil {
		return nil, fmt.Errorf("invalid matcher options: %w", err)
	}
	if config.MaxUploadMB <= 0 {
		config.MaxUploadMB = 50
	}
	if config.TimeoutSec <= 0 {
		config.TimeoutSec = 120
	}

	return &Server{
		matcherOpts: config.Matcher,
		gate:        NewComputeLimiter(config.MaxConcurrent),
		corsEnabled: config.CORSEnabled,
		maxUploadMB: config.MaxUploadMB,
		timeoutSec:  config.TimeoutSec,
	}, nil
}

// SetupRoutes registers all HTTP routes on the given mux. The WebSocket
// endpoint is registered without the CORS wrapper because the upgrade
// needs the raw response writer.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.corsMiddleware(s.healthHandler))
	mux.HandleFunc("/v1/info", s.corsMiddleware(s.infoHandler))
	mux.HandleFunc("/v1/disparity", s.corsMiddleware(s.disparityHandler))
	mux.HandleFunc("/v1/disparity/stream", s.streamHandler)
	mux.Handle("/metrics", promhttp.Handler())
}
