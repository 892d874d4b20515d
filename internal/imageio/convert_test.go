package imageio

import (
	"image"
	"image/color"
	"testing"

	"github.com/MeKo-Tech/parallax/internal/mempool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToBGR_ChannelOrder(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.SetNRGBA(0, 0, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
	img.SetNRGBA(1, 0, color.NRGBA{R: 200, G: 100, B: 50, A: 255})

	buf, w, h, err := ToBGR(img)
	require.NoError(t, err)
	assert.Equal(t, 2, w)
	assert.Equal(t, 1, h)
	require.Len(t, buf, 6)

	// pixel (0,0): B,G,R
	assert.Equal(t, byte(30), buf[0])
	assert.Equal(t, byte(20), buf[1])
	assert.Equal(t, byte(10), buf[2])
	// pixel (1,0)
	assert.Equal(t, byte(50), buf[3])
	assert.Equal(t, byte(100), buf[4])
	assert.Equal(t, byte(200), buf[5])
}

func TestToBGR_NilImage(t *testing.T) {
	_, _, _, err := ToBGR(nil)
	require.Error(t, err)
}

func TestToBGR_NonZeroOriginBounds(t *testing.T) {
	// Sub-images carry non-zero origin bounds; conversion must normalize them.
	base := image.NewNRGBA(image.Rect(0, 0, 10, 10))
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			base.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 20), G: uint8(y * 20), B: 5, A: 255}) //nolint:gosec // G115: small test values
		}
	}
	sub, ok := base.SubImage(image.Rect(2, 3, 7, 8)).(*image.NRGBA)
	require.True(t, ok)

	buf, w, h, err := ToBGR(sub)
	require.NoError(t, err)
	assert.Equal(t, 5, w)
	assert.Equal(t, 5, h)
	// first pixel corresponds to (2,3) in the base image
	assert.Equal(t, byte(5), buf[0])    // B
	assert.Equal(t, byte(60), buf[1])   // G = 3*20
	assert.Equal(t, byte(2*20), buf[2]) // R
}

func TestToBGRPooled(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 64, 48))
	buf, w, h, err := ToBGRPooled(img)
	require.NoError(t, err)
	assert.Equal(t, 64, w)
	assert.Equal(t, 48, h)
	assert.Len(t, buf, 64*48*3)
	mempool.PutUint8(buf)
}

func TestFromBGR_RoundTrip(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 3))
	for y := 0; y < 3; y++ {
		for x := 0; x < 4; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 50), G: uint8(y * 70), B: uint8(x + y), A: 255}) //nolint:gosec // G115: small test values
		}
	}

	buf, w, h, err := ToBGR(img)
	require.NoError(t, err)

	back, err := FromBGR(buf, w, h)
	require.NoError(t, err)
	assert.Equal(t, img.Pix, back.Pix)
}

func TestFromBGR_Errors(t *testing.T) {
	_, err := FromBGR(make([]byte, 5), 2, 1)
	require.Error(t, err)
	_, err = FromBGR(nil, 0, 0)
	require.Error(t, err)
}
