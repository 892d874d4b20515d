// Package imageio loads, validates and saves the images the matcher consumes
// and produces. Decoded images are converted to the contiguous 8-bit BGR
// buffers the engine operates on.
package imageio

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// ImageError represents errors that can occur while reading or writing images.
type ImageError struct {
	Operation string
	Err       error
}

func (e *ImageError) Error() string {
	return fmt.Sprintf("image error in %s: %v", e.Operation, e.Err)
}

func (e *ImageError) Unwrap() error {
	return e.Err
}

// SupportedImageExtensions lists supported file extensions for loading.
var SupportedImageExtensions = []string{".jpg", ".jpeg", ".png", ".bmp", ".tif", ".tiff"}

// IsSupportedImage reports whether the path has a supported image extension.
func IsSupportedImage(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, s := range SupportedImageExtensions {
		if ext == s {
			return true
		}
	}
	return false
}

// ImageMetadata captures lightweight file and pixel information.
type ImageMetadata struct {
	Path        string
	Format      string
	SizeBytes   int64
	Width       int
	Height      int
	AspectRatio float64
}

// LoadImage opens and decodes an image file, returning the image and metadata.
func LoadImage(path string) (image.Image, ImageMetadata, error) {
	if path == "" {
		err := &ImageError{Operation: "load", Err: errors.New("empty path")}
		return nil, ImageMetadata{}, err
	}
	if !IsSupportedImage(path) {
		err := &ImageError{Operation: "load", Err: fmt.Errorf("unsupported format: %s", filepath.Ext(path))}
		return nil, ImageMetadata{}, err
	}

	f, err := os.Open(path) //nolint:gosec // G304: Reading user-provided image file path is expected
	if err != nil {
		err = &ImageError{Operation: "load", Err: err}
		return nil, ImageMetadata{}, err
	}
	defer func() {
		if err := f.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Error closing image file: %v\n", err)
		}
	}()

	fi, statErr := f.Stat()
	if statErr != nil {
		return nil, ImageMetadata{}, &ImageError{Operation: "load", Err: statErr}
	}

	img, format, decErr := image.Decode(f)
	if decErr != nil {
		return nil, ImageMetadata{}, &ImageError{Operation: "decode", Err: decErr}
	}

	b := img.Bounds()
	meta := ImageMetadata{
		Path:        path,
		Format:      format,
		SizeBytes:   fi.Size(),
		Width:       b.Dx(),
		Height:      b.Dy(),
		AspectRatio: float64(b.Dx()) / float64(b.Dy()),
	}

	return img, meta, nil
}

// ValidatePair checks that two decoded images form a usable rectified pair:
// both non-nil, identical dimensions, non-degenerate size.
func ValidatePair(left, right image.Image) error {
	if left == nil || right == nil {
		return &ImageError{Operation: "validate", Err: errors.New("input image is nil")}
	}
	lb, rb := left.Bounds(), right.Bounds()
	if lb.Dx() <= 0 || lb.Dy() <= 0 {
		return &ImageError{Operation: "validate", Err: fmt.Errorf("degenerate image size %dx%d", lb.Dx(), lb.Dy())}
	}
	if lb.Dx() != rb.Dx() || lb.Dy() != rb.Dy() {
		return &ImageError{
			Operation: "validate",
			Err:       fmt.Errorf("dimension mismatch: left %dx%d, right %dx%d", lb.Dx(), lb.Dy(), rb.Dx(), rb.Dy()),
		}
	}
	return nil
}

// LoadStereoPair loads and validates a left/right image pair from disk.
func LoadStereoPair(leftPath, rightPath string) (image.Image, image.Image, error) {
	left, _, err := LoadImage(leftPath)
	if err != nil {
		return nil, nil, fmt.Errorf("loading left image: %w", err)
	}
	right, _, err := LoadImage(rightPath)
	if err != nil {
		return nil, nil, fmt.Errorf("loading right image: %w", err)
	}
	if err := ValidatePair(left, right); err != nil {
		return nil, nil, err
	}
	return left, right, nil
}

// SaveImage encodes img to path; the format is chosen from the extension.
func SaveImage(img image.Image, path string) error {
	if img == nil {
		return &ImageError{Operation: "save", Err: errors.New("input image is nil")}
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return &ImageError{Operation: "save", Err: err}
		}
	}
	if err := imaging.Save(img, path); err != nil {
		return &ImageError{Operation: "save", Err: err}
	}
	return nil
}
