package server

import (
	"bytes"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/parallax/internal/adcensus"
	"github.com/MeKo-Tech/parallax/internal/imageio"
	"github.com/MeKo-Tech/parallax/internal/testutil"
)

// testMatcherOptions returns options small enough for fast test runs.
func testMatcherOptions() adcensus.Options {
	opts := adcensus.DefaultOptions()
	opts.MaxDisparity = 8
	return opts
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	srv, err := NewServer(Config{
		MaxUploadMB: 10,
		CORSEnabled: true,
		TimeoutSec:  30,
		Matcher:     testMatcherOptions(),
	})
	require.NoError(t, err)
	return srv
}

// makePairPNGs renders a synthetic stereo pair as PNG byte slices.
func makePairPNGs(t *testing.T, width, height, shift int) ([]byte, []byte) {
	t.Helper()

	leftBGR, rightBGR := testutil.StripePair(width, height, shift)
	return encodePNG(t, leftBGR, width, height), encodePNG(t, rightBGR, width, height)
}

func encodePNG(t *testing.T, bgr []byte, width, height int) []byte {
	t.Helper()

	img, err := imageio.FromBGR(bgr, width, height)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// newMatchRequest builds a multipart POST against the disparity endpoint.
// Nil image data skips the corresponding file part.
func newMatchRequest(t *testing.T, leftPNG, rightPNG []byte, fields map[string]string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	if leftPNG != nil {
		part, err := writer.CreateFormFile("left", "left.png")
		require.NoError(t, err)
		_, err = part.Write(leftPNG)
		require.NoError(t, err)
	}
	if rightPNG != nil {
		part, err := writer.CreateFormFile("right", "right.png")
		require.NoError(t, err)
		_, err = part.Write(rightPNG)
		require.NoError(t, err)
	}
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/disparity", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}
