package adcensus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func uniformBGR(width, height int, value uint8) []byte {
	buf := make([]byte, width*height*3)
	for i := range buf {
		buf[i] = value
	}
	return buf
}

func TestBGRToGray(t *testing.T) {
	// one pixel per primary channel, packed B, G, R
	bgr := []byte{
		255, 0, 0,
		0, 255, 0,
		0, 0, 255,
		255, 255, 255,
	}
	gray := make([]uint8, 4)
	bgrToGray(bgr, gray, 4, 1, 1)

	assert.Equal(t, uint8(29), gray[0], "blue weight")
	assert.Equal(t, uint8(149), gray[1], "green weight")
	assert.Equal(t, uint8(76), gray[2], "red weight")
	assert.Equal(t, uint8(255), gray[3], "white stays white")
}

func TestCensusTransform_UniformImage(t *testing.T) {
	const width, height = 16, 12
	gray := make([]uint8, width*height)
	for i := range gray {
		gray[i] = 100
	}
	census := make([]uint64, width*height)
	censusTransform(gray, census, width, height, 2)

	for i, code := range census {
		assert.Zero(t, code, "pixel %d", i)
	}
}

func TestCensusTransform_BorderStaysZero(t *testing.T) {
	const width, height = 20, 14
	gray := make([]uint8, width*height)
	for i := range gray {
		gray[i] = uint8(i * 31 % 251) //nolint:gosec // bounded by modulus
	}
	census := make([]uint64, width*height)
	censusTransform(gray, census, width, height, 1)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			onBorder := y < censusHalfHeight || y >= height-censusHalfHeight ||
				x < censusHalfWidth || x >= width-censusHalfWidth
			if onBorder {
				assert.Zero(t, census[y*width+x], "border pixel (%d,%d)", x, y)
			}
		}
	}
}

func TestCensusTransform_FirstWindowCell(t *testing.T) {
	const width, height = 9, 11
	gray := make([]uint8, width*height)
	for i := range gray {
		gray[i] = 100
	}
	// center at (4, 5); only the top-left window cell is darker
	gray[(5-censusHalfHeight)*width+(4-censusHalfWidth)] = 50

	census := make([]uint64, width*height)
	censusTransform(gray, census, width, height, 1)

	// 63 cells scanned row-major, so the first one lands on bit 62
	assert.Equal(t, uint64(1)<<62, census[5*width+4])
}

func TestHamming(t *testing.T) {
	assert.Equal(t, 0, hamming(0, 0))
	assert.Equal(t, 3, hamming(0b1011, 0))
	assert.Equal(t, 1, hamming(0b1011, 0b1111))
	assert.Equal(t, 64, hamming(0, ^uint64(0)))
}
