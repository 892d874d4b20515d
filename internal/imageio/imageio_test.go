package imageio

import (
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solidImage(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func TestIsSupportedImage(t *testing.T) {
	tests := []struct {
		path     string
		expected bool
	}{
		{"scene_left.png", true},
		{"scene_right.PNG", true},
		{"a.jpg", true},
		{"a.jpeg", true},
		{"a.bmp", true},
		{"a.tif", true},
		{"a.tiff", true},
		{"a.gif", false},
		{"a.txt", false},
		{"noext", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsSupportedImage(tt.path))
		})
	}
}

func TestLoadImage_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "left.png")

	src := solidImage(24, 16, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
	require.NoError(t, SaveImage(src, path))

	img, meta, err := LoadImage(path)
	require.NoError(t, err)
	require.NotNil(t, img)
	assert.Equal(t, "png", meta.Format)
	assert.Equal(t, 24, meta.Width)
	assert.Equal(t, 16, meta.Height)
	assert.Positive(t, meta.SizeBytes)
	assert.InDelta(t, 1.5, meta.AspectRatio, 1e-9)
}

func TestLoadImage_Errors(t *testing.T) {
	t.Run("empty path", func(t *testing.T) {
		_, _, err := LoadImage("")
		require.Error(t, err)
		var imgErr *ImageError
		require.ErrorAs(t, err, &imgErr)
		assert.Equal(t, "load", imgErr.Operation)
	})

	t.Run("unsupported extension", func(t *testing.T) {
		_, _, err := LoadImage("whatever.gif")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported format")
	})

	t.Run("missing file", func(t *testing.T) {
		_, _, err := LoadImage(filepath.Join(t.TempDir(), "missing.png"))
		require.Error(t, err)
	})
}

func TestValidatePair(t *testing.T) {
	left := solidImage(32, 24, color.NRGBA{R: 1, G: 2, B: 3, A: 255})
	right := solidImage(32, 24, color.NRGBA{R: 3, G: 2, B: 1, A: 255})

	assert.NoError(t, ValidatePair(left, right))

	t.Run("nil image", func(t *testing.T) {
		require.Error(t, ValidatePair(nil, right))
		require.Error(t, ValidatePair(left, nil))
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		tall := solidImage(32, 25, color.NRGBA{A: 255})
		err := ValidatePair(left, tall)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "dimension mismatch")
	})
}

func TestLoadStereoPair(t *testing.T) {
	dir := t.TempDir()
	leftPath := filepath.Join(dir, "scene_left.png")
	rightPath := filepath.Join(dir, "scene_right.png")

	require.NoError(t, SaveImage(solidImage(20, 10, color.NRGBA{R: 200, A: 255}), leftPath))
	require.NoError(t, SaveImage(solidImage(20, 10, color.NRGBA{B: 200, A: 255}), rightPath))

	left, right, err := LoadStereoPair(leftPath, rightPath)
	require.NoError(t, err)
	assert.Equal(t, left.Bounds(), right.Bounds())

	t.Run("mismatched sizes rejected", func(t *testing.T) {
		oddPath := filepath.Join(dir, "odd_right.png")
		require.NoError(t, SaveImage(solidImage(20, 11, color.NRGBA{A: 255}), oddPath))
		_, _, err := LoadStereoPair(leftPath, oddPath)
		require.Error(t, err)
	})

	t.Run("missing left", func(t *testing.T) {
		_, _, err := LoadStereoPair(filepath.Join(dir, "nope.png"), rightPath)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "left image")
	})
}

func TestSaveImage_CreatesDirectories(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "out", "disp.png")
	require.NoError(t, SaveImage(solidImage(8, 8, color.NRGBA{A: 255}), path))

	_, _, err := LoadImage(path)
	require.NoError(t, err)
}

func TestSaveImage_NilImage(t *testing.T) {
	err := SaveImage(nil, filepath.Join(t.TempDir(), "x.png"))
	require.Error(t, err)
}
