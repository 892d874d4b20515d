// Package visualize renders disparity maps into viewable images. Valid
// disparities are normalized to the full byte range; invalid pixels map to
// the bottom of the range.
package visualize

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
)

// ErrNoValidPixels is returned when a disparity map contains no finite values.
var ErrNoValidPixels = errors.New("no valid disparity values found")

// Normalize maps the valid (finite) disparities in disp onto [0,255] and
// returns one byte per pixel. Invalid pixels become 0. If all valid pixels
// share one value the whole plane normalizes to 0.
func Normalize(disp []float32, width, height int) ([]uint8, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid dimensions %dx%d", width, height)
	}
	if len(disp) != width*height {
		return nil, fmt.Errorf("disparity length %d does not match %dx%d", len(disp), width, height)
	}

	minDisp := float32(math.Inf(1))
	maxDisp := float32(math.Inf(-1))
	anyValid := false
	for _, d := range disp {
		if !isValid(d) {
			continue
		}
		anyValid = true
		if d < minDisp {
			minDisp = d
		}
		if d > maxDisp {
			maxDisp = d
		}
	}
	if !anyValid {
		return nil, ErrNoValidPixels
	}

	out := make([]uint8, len(disp))
	if maxDisp <= minDisp {
		return out, nil
	}
	scale := 255.0 / float64(maxDisp-minDisp)
	for i, d := range disp {
		if !isValid(d) {
			continue
		}
		out[i] = uint8(math.Round(float64(d-minDisp) * scale)) //nolint:gosec // G115: rounded into [0,255]
	}
	return out, nil
}

// GrayImage renders the normalized disparity map as an 8-bit grayscale image.
func GrayImage(disp []float32, width, height int) (*image.Gray, error) {
	norm, err := Normalize(disp, width, height)
	if err != nil {
		return nil, err
	}
	img := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		copy(img.Pix[y*img.Stride:y*img.Stride+width], norm[y*width:(y+1)*width])
	}
	return img, nil
}

// ColorImage renders the normalized disparity map through a jet-style
// colormap. The colormap is applied to every pixel of the normalized plane,
// so invalid pixels take the color of the low end.
func ColorImage(disp []float32, width, height int) (*image.NRGBA, error) {
	norm, err := Normalize(disp, width, height)
	if err != nil {
		return nil, err
	}
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		row := img.Pix[y*img.Stride:]
		for x := 0; x < width; x++ {
			c := JetColor(norm[y*width+x])
			i := x * 4
			row[i] = c.R
			row[i+1] = c.G
			row[i+2] = c.B
			row[i+3] = 0xFF
		}
	}
	return img, nil
}

// JetColor maps a byte value onto the jet colormap: dark blue at 0 through
// cyan, yellow and orange to dark red at 255.
func JetColor(v uint8) color.NRGBA {
	t := float64(v) / 255.0
	r := jetChannel(1.5 - math.Abs(4*t-3))
	g := jetChannel(1.5 - math.Abs(4*t-2))
	b := jetChannel(1.5 - math.Abs(4*t-1))
	return color.NRGBA{R: r, G: g, B: b, A: 0xFF}
}

func jetChannel(v float64) uint8 {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	return uint8(v*255 + 0.5) //nolint:gosec // G115: clamped to [0,255]
}

func isValid(d float32) bool {
	return !math.IsInf(float64(d), 0) && !math.IsNaN(float64(d))
}
