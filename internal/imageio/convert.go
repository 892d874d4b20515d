package imageio

import (
	"errors"
	"image"

	"github.com/MeKo-Tech/parallax/internal/mempool"
	"github.com/disintegration/imaging"
)

// ToBGR converts a decoded image into a contiguous 8-bit 3-channel buffer in
// BGR channel order, row-major. Alpha is dropped.
func ToBGR(img image.Image) ([]byte, int, int, error) {
	if img == nil {
		return nil, 0, 0, &ImageError{Operation: "convert", Err: errors.New("input image is nil")}
	}
	nrgba := imaging.Clone(img)
	width := nrgba.Rect.Dx()
	height := nrgba.Rect.Dy()
	if width <= 0 || height <= 0 {
		return nil, 0, 0, &ImageError{Operation: "convert", Err: errors.New("invalid image dimensions")}
	}

	out := make([]byte, width*height*3)
	fillBGR(out, nrgba, width, height)
	return out, width, height, nil
}

// ToBGRPooled converts like ToBGR but draws the output buffer from the pool.
// The caller must return it via mempool.PutUint8 when done.
func ToBGRPooled(img image.Image) ([]byte, int, int, error) {
	if img == nil {
		return nil, 0, 0, &ImageError{Operation: "convert", Err: errors.New("input image is nil")}
	}
	nrgba := imaging.Clone(img)
	width := nrgba.Rect.Dx()
	height := nrgba.Rect.Dy()
	if width <= 0 || height <= 0 {
		return nil, 0, 0, &ImageError{Operation: "convert", Err: errors.New("invalid image dimensions")}
	}

	out := mempool.GetUint8(width * height * 3)
	fillBGR(out, nrgba, width, height)
	return out, width, height, nil
}

func fillBGR(dst []byte, nrgba *image.NRGBA, width, height int) {
	for y := 0; y < height; y++ {
		src := nrgba.Pix[y*nrgba.Stride:]
		row := dst[y*width*3:]
		for x := 0; x < width; x++ {
			si := x * 4
			di := x * 3
			row[di] = src[si+2]   // B
			row[di+1] = src[si+1] // G
			row[di+2] = src[si]   // R
		}
	}
}

// FromBGR builds an NRGBA image from a contiguous BGR buffer, the inverse of
// ToBGR. Used to round-trip engine inputs back into encodable images.
func FromBGR(data []byte, width, height int) (*image.NRGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, &ImageError{Operation: "convert", Err: errors.New("invalid image dimensions")}
	}
	if len(data) != width*height*3 {
		return nil, &ImageError{Operation: "convert", Err: errors.New("buffer length does not match dimensions")}
	}
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		row := data[y*width*3:]
		dst := img.Pix[y*img.Stride:]
		for x := 0; x < width; x++ {
			si := x * 3
			di := x * 4
			dst[di] = row[si+2]   // R
			dst[di+1] = row[si+1] // G
			dst[di+2] = row[si]   // B
			dst[di+3] = 0xFF
		}
	}
	return img, nil
}
