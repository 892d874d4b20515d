package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/MeKo-Tech/parallax/internal/adcensus"
	"github.com/MeKo-Tech/parallax/internal/imageio"
	"github.com/MeKo-Tech/parallax/internal/stats"
	"github.com/MeKo-Tech/parallax/internal/visualize"
)

const (
	// writeWait is the deadline for control frame writes.
	writeWait = 10 * time.Second

	// pongWait is how long a connection may stay silent before the read
	// loop gives up. Pings go out at a third of this interval.
	pongWait     = 60 * time.Second
	pingInterval = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // deployments front this with a proxy
	},
}

// WebSocketConnWriter abstracts the write side of a WebSocket connection.
type WebSocketConnWriter interface {
	WriteMessage(messageType int, data []byte) error
}

// StreamRequest is a disparity request sent over the WebSocket endpoint.
// Image payloads are base64-encoded PNG or JPEG bytes; encoding/json
// handles the base64 conversion for []byte fields.
type StreamRequest struct {
	Left    []byte                 `json:"left"`
	Right   []byte                 `json:"right"`
	Options map[string]interface{} `json:"options,omitempty"`

	// Format selects the rendered image in the completion frame:
	// "gray" (default), "color", or "none" for metadata only.
	Format string `json:"format,omitempty"`
}

// StreamResponse is a progress, completion or error frame sent to the client.
type StreamResponse struct {
	Type      string      `json:"type"`
	Status    string      `json:"status"`
	Progress  float64     `json:"progress"`
	Stage     string      `json:"stage,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
	Result    interface{} `json:"result,omitempty"`
	Error     string      `json:"error,omitempty"`
	ErrorType string      `json:"error_type,omitempty"`
}

// StreamResult is the payload of a completed stream request.
type StreamResult struct {
	Disparity *adcensus.Result `json:"disparity"`
	Stats     *stats.Summary   `json:"stats"`
	Image     []byte           `json:"image,omitempty"` // PNG bytes, base64 in JSON
}

// streamHandler upgrades the connection and serves disparity requests
// until the client disconnects.
func (s *Server) streamHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("WebSocket upgrade failed", "error", err)
		return
	}
	defer func() { _ = conn.Close() }()

	websocketConnections.Inc()
	defer websocketConnections.Dec()

	slog.Info("WebSocket connection established", "remote_addr", conn.RemoteAddr().String())

	s.handleWebSocketConnection(r.Context(), conn)
}

func (s *Server) handleWebSocketConnection(ctx context.Context, conn *websocket.Conn) {
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	// Keep the connection alive while long computations run.
	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(writeWait)); err != nil {
					return
				}
			}
		}
	}()

	for {
		if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			break
		}
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Error("WebSocket read failed", "error", err)
			}
			break
		}
		websocketMessagesTotal.WithLabelValues("received").Inc()

		if messageType == websocket.TextMessage {
			s.handleStreamMessage(ctx, conn, data)
		}
	}
}

// handleStreamMessage processes one disparity request. Progress frames are
// sent as pipeline stages complete; the final frame carries the result.
func (s *Server) handleStreamMessage(ctx context.Context, conn *websocket.Conn, data []byte) {
	var req StreamRequest
	if err := json.Unmarshal(data, &req); err != nil {
		s.sendStreamError(conn, "", "invalid_request", "Failed to parse request")
		return
	}

	requestID := strconv.FormatInt(time.Now().UnixNano(), 10)

	maxBytes := s.maxUploadMB * 1024 * 1024
	if int64(len(req.Left)) > maxBytes || int64(len(req.Right)) > maxBytes {
		s.sendStreamError(conn, requestID, "file_too_large", fmt.Sprintf("Image exceeds %d MB upload limit", s.maxUploadMB))
		return
	}
	uploadSizeBytes.Observe(float64(len(req.Left)))
	uploadSizeBytes.Observe(float64(len(req.Right)))

	left, err := decodeStreamImage(req.Left)
	if err != nil {
		s.sendStreamError(conn, requestID, "invalid_image", "Invalid left image: "+err.Error())
		return
	}
	right, err := decodeStreamImage(req.Right)
	if err != nil {
		s.sendStreamError(conn, requestID, "invalid_image", "Invalid right image: "+err.Error())
		return
	}
	if err := imageio.ValidatePair(left, right); err != nil {
		s.sendStreamError(conn, requestID, "invalid_pair", err.Error())
		return
	}

	opts, err := s.streamOptions(req.Options)
	if err != nil {
		s.sendStreamError(conn, requestID, "invalid_options", err.Error())
		return
	}

	s.sendStreamResponse(conn, StreamResponse{
		Type:      "disparity",
		Status:    "processing",
		Progress:  0.0,
		RequestID: requestID,
	})

	// Stage reports arrive on this goroutine, so writing to the
	// connection from the hook is safe.
	opts.Progress = func(stage string, completed, total int) {
		s.sendStreamResponse(conn, StreamResponse{
			Type:      "disparity",
			Status:    "processing",
			Progress:  float64(completed) / float64(total),
			Stage:     stage,
			RequestID: requestID,
		})
	}

	result, err := s.computeDisparity(ctx, left, right, opts, "websocket")
	if err != nil {
		s.sendStreamError(conn, requestID, "processing_failed", fmt.Sprintf("Disparity computation failed: %v", err))
		return
	}

	payload, err := buildStreamResult(result, req.Format)
	if err != nil {
		s.sendStreamError(conn, requestID, "rendering_failed", err.Error())
		return
	}

	s.sendStreamResponse(conn, StreamResponse{
		Type:      "disparity",
		Status:    "completed",
		Progress:  1.0,
		RequestID: requestID,
		Result:    payload,
	})
}

// decodeStreamImage decodes one image payload.
func decodeStreamImage(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, errors.New("missing image payload")
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	return img, err
}

// streamOptions applies per-request option overrides. JSON numbers arrive
// as float64, so numeric fields are converted defensively.
func (s *Server) streamOptions(options map[string]interface{}) (adcensus.Options, error) {
	opts := s.matcherOpts
	if options == nil {
		return opts, nil
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"min_disparity", &opts.MinDisparity},
		{"max_disparity", &opts.MaxDisparity},
		{"path_count", &opts.PathCount},
	}
	for _, o := range ints {
		v, ok := options[o.key]
		if !ok {
			continue
		}
		f, ok := v.(float64)
		if !ok {
			return opts, fmt.Errorf("option %s must be a number", o.key)
		}
		*o.dst = int(f)
	}

	bools := []struct {
		key string
		dst *bool
	}{
		{"lr_check", &opts.DoLRCheck},
		{"filling", &opts.DoFilling},
	}
	for _, o := range bools {
		v, ok := options[o.key]
		if !ok {
			continue
		}
		b, ok := v.(bool)
		if !ok {
			return opts, fmt.Errorf("option %s must be a boolean", o.key)
		}
		*o.dst = b
	}

	return opts, nil
}

// buildStreamResult assembles the completion payload. A map without any
// valid pixel cannot be rendered; the payload then carries metadata only.
func buildStreamResult(result *adcensus.Result, format string) (*StreamResult, error) {
	summary := stats.Summarize(result.Disparity)
	payload := &StreamResult{Disparity: result, Stats: &summary}

	if format == "none" {
		return payload, nil
	}

	img, err := renderDisparity(result, format == formatColor)
	if errors.Is(err, visualize.ErrNoValidPixels) {
		return payload, nil
	}
	if err != nil {
		return nil, fmt.Errorf("rendering disparity image: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding disparity image: %w", err)
	}
	payload.Image = buf.Bytes()

	return payload, nil
}

func (s *Server) sendStreamResponse(conn WebSocketConnWriter, response StreamResponse) {
	data, err := json.Marshal(response)
	if err != nil {
		slog.Error("Failed to marshal WebSocket response", "error", err)
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Error("Failed to send WebSocket response", "error", err)
		return
	}
	websocketMessagesTotal.WithLabelValues("sent").Inc()
}

func (s *Server) sendStreamError(conn WebSocketConnWriter, requestID, errorType, message string) {
	s.sendStreamResponse(conn, StreamResponse{
		Type:      "error",
		Status:    "error",
		RequestID: requestID,
		Error:     message,
		ErrorType: errorType,
	})
}
