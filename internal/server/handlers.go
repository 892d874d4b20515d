package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // decoders for uploaded pairs
	"image/png"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/MeKo-Tech/parallax/internal/adcensus"
	"github.com/MeKo-Tech/parallax/internal/imageio"
	"github.com/MeKo-Tech/parallax/internal/mempool"
	"github.com/MeKo-Tech/parallax/internal/stats"
	"github.com/MeKo-Tech/parallax/internal/version"
	"github.com/MeKo-Tech/parallax/internal/visualize"
)

const (
	formatGray  = "gray"
	formatColor = "color"
)

// healthHandler returns basic health information.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := HealthResponse{
		Status:  "healthy",
		Version: version.Version,
		Time:    time.Now().UTC().Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding health response: %v\n", err)
	}
}

// infoHandler reports the matcher configuration the server runs with.
func (s *Server) infoHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := InfoResponse{
		Version:       version.Version,
		Matcher:       matcherInfo(s.matcherOpts),
		MaxUploadMB:   s.maxUploadMB,
		TimeoutSec:    s.timeoutSec,
		MaxConcurrent: s.gate.Limit(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding info response: %v\n", err)
	}
}

func matcherInfo(opts adcensus.Options) map[string]interface{} {
	return map[string]interface{}{
		"min_disparity":   opts.MinDisparity,
		"max_disparity":   opts.MaxDisparity,
		"disparity_range": opts.DisparityRange(),
		"path_count":      opts.PathCount,
		"lr_check":        opts.DoLRCheck,
		"filling":         opts.DoFilling,
		"discontinuity":   opts.DoDiscontinuityAdjustment,
	}
}

// disparityHandler computes a disparity map from an uploaded stereo pair.
func (s *Server) disparityHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	left, right, err := s.parseMatchRequest(w, r)
	if err != nil {
		matchRequestsTotal.WithLabelValues("http", "error").Inc()
		return // error already written
	}

	opts, err := s.requestOptions(r)
	if err != nil {
		s.writeErrorResponse(w, err.Error(), http.StatusBadRequest)
		matchRequestsTotal.WithLabelValues("http", "error").Inc()
		return
	}

	result, err := s.computeDisparity(r.Context(), left, right, opts, "http")
	if err != nil {
		status := http.StatusInternalServerError
		var memErr *adcensus.MemoryLimitError
		if errors.As(err, &memErr) {
			status = http.StatusRequestEntityTooLarge
		}
		s.writeErrorResponse(w, fmt.Sprintf("Disparity computation failed: %v", err), status)
		return
	}

	s.writeMatchResponse(w, r, result)
}

// parseMatchRequest reads and decodes both views of the uploaded pair.
// Errors are written to the client before returning.
func (s *Server) parseMatchRequest(w http.ResponseWriter, r *http.Request) (image.Image, image.Image, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadMB*1024*1024)

	if err := r.ParseMultipartForm(s.maxUploadMB * 1024 * 1024); err != nil {
		s.writeErrorResponse(w, "Failed to parse form data", http.StatusBadRequest)
		return nil, nil, err
	}

	left, err := s.readImageFile(w, r, "left")
	if err != nil {
		return nil, nil, err
	}
	right, err := s.readImageFile(w, r, "right")
	if err != nil {
		return nil, nil, err
	}

	if err := imageio.ValidatePair(left, right); err != nil {
		s.writeErrorResponse(w, err.Error(), http.StatusBadRequest)
		return nil, nil, err
	}

	return left, right, nil
}

func (s *Server) readImageFile(w http.ResponseWriter, r *http.Request, field string) (image.Image, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		s.writeErrorResponse(w, fmt.Sprintf("No %s image provided", field), http.StatusBadRequest)
		return nil, err
	}
	defer func() { _ = file.Close() }()

	if header.Size > s.maxUploadMB*1024*1024 {
		s.writeErrorResponse(w, "File too large", http.StatusRequestEntityTooLarge)
		return nil, fmt.Errorf("%s image exceeds %d MB upload limit", field, s.maxUploadMB)
	}
	uploadSizeBytes.Observe(float64(header.Size))

	data, err := io.ReadAll(file)
	if err != nil {
		s.writeErrorResponse(w, fmt.Sprintf("Failed to read %s image data", field), http.StatusInternalServerError)
		return nil, err
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		s.writeErrorResponse(w, fmt.Sprintf("Invalid %s image format", field), http.StatusBadRequest)
		return nil, err
	}

	return img, nil
}

// requestOptions applies per-request form overrides to the configured
// matcher options. Validation happens when the matcher is created.
func (s *Server) requestOptions(r *http.Request) (adcensus.Options, error) {
	opts := s.matcherOpts

	overrides := []struct {
		field string
		dst   *int
	}{
		{"min_disparity", &opts.MinDisparity},
		{"max_disparity", &opts.MaxDisparity},
		{"path_count", &opts.PathCount},
	}
	for _, o := range overrides {
		v := r.FormValue(o.field)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return opts, fmt.Errorf("invalid %s: %q", o.field, v)
		}
		*o.dst = n
	}

	return opts, nil
}

// computeDisparity converts both views to packed BGR and runs the matcher,
// recording request metrics under the given type label. Admission is
// bounded by the compute limiter.
func (s *Server) computeDisparity(
	ctx context.Context,
	left, right image.Image,
	opts adcensus.Options,
	reqType string,
) (*adcensus.Result, error) {
	if err := s.gate.Acquire(ctx); err != nil {
		matchRequestsTotal.WithLabelValues(reqType, "error").Inc()
		return nil, err
	}
	defer s.gate.Release()
	activeComputations.Inc()
	defer activeComputations.Dec()

	leftBGR, width, height, err := imageio.ToBGRPooled(left)
	if err != nil {
		matchRequestsTotal.WithLabelValues(reqType, "error").Inc()
		return nil, err
	}
	defer mempool.PutUint8(leftBGR)

	rightBGR, _, _, err := imageio.ToBGRPooled(right)
	if err != nil {
		matchRequestsTotal.WithLabelValues(reqType, "error").Inc()
		return nil, err
	}
	defer mempool.PutUint8(rightBGR)

	matcher, err := adcensus.NewMatcher(width, height, opts)
	if err != nil {
		matchRequestsTotal.WithLabelValues(reqType, "error").Inc()
		return nil, err
	}

	start := time.Now()
	result, err := matcher.Compute(ctx, leftBGR, rightBGR)
	duration := time.Since(start)
	if err != nil {
		matchRequestsTotal.WithLabelValues(reqType, "error").Inc()
		return nil, err
	}

	matchRequestsTotal.WithLabelValues(reqType, "success").Inc()
	matchDuration.WithLabelValues(reqType).Observe(duration.Seconds())
	matchValidRatio.WithLabelValues(reqType).Observe(result.ValidRatio())

	return result, nil
}

// writeMatchResponse formats the result. Default is JSON; 'format' in the
// form or query selects a rendered PNG instead.
func (s *Server) writeMatchResponse(w http.ResponseWriter, r *http.Request, result *adcensus.Result) {
	format := r.FormValue("format")
	if format == "" {
		format = r.URL.Query().Get("format")
	}

	switch format {
	case formatGray, "png":
		s.writeImageResponse(w, result, false)
	case formatColor:
		s.writeImageResponse(w, result, true)
	default:
		s.writeJSONResponse(w, result)
	}
}

func (s *Server) writeJSONResponse(w http.ResponseWriter, result *adcensus.Result) {
	summary := stats.Summarize(result.Disparity)
	obj := struct {
		Disparity *adcensus.Result `json:"disparity"`
		Stats     *stats.Summary   `json:"stats"`
	}{Disparity: result, Stats: &summary}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(obj); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding disparity response: %v\n", err)
	}
}

func (s *Server) writeImageResponse(w http.ResponseWriter, result *adcensus.Result, colored bool) {
	img, err := renderDisparity(result, colored)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, visualize.ErrNoValidPixels) {
			status = http.StatusUnprocessableEntity
		}
		s.writeErrorResponse(w, fmt.Sprintf("Rendering failed: %v", err), status)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	if err := png.Encode(w, img); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding disparity image: %v\n", err)
	}
}

// renderDisparity converts a result into a grayscale or color-mapped image.
func renderDisparity(result *adcensus.Result, colored bool) (image.Image, error) {
	if colored {
		return visualize.ColorImage(result.Disparity, result.Width, result.Height)
	}
	return visualize.GrayImage(result.Disparity, result.Width, result.Height)
}

// writeErrorResponse writes a JSON error envelope with the given status.
func (s *Server) writeErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := ErrorResponse{Success: false, Error: message}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding error response: %v\n", err)
	}
}
