package adcensus

import "math/bits"

// Census window extents: 9 rows by 7 columns around the center pixel.
const (
	censusHalfHeight = 4
	censusHalfWidth  = 3
)

// bgrToGray converts a packed BGR image to a single luma plane.
func bgrToGray(bgr []byte, gray []uint8, width, height, workers int) {
	parallelFor(workers, height, func(y int) {
		row := bgr[y*width*3 : (y+1)*width*3]
		out := gray[y*width : (y+1)*width]
		for x := 0; x < width; x++ {
			b := float64(row[x*3])
			g := float64(row[x*3+1])
			r := float64(row[x*3+2])
			out[x] = uint8(r*0.299 + g*0.587 + b*0.114)
		}
	})
}

// censusTransform computes a 9x7 census descriptor per pixel. Each bit is
// set when the neighbor's luma is below the center's, scanned row-major
// through the window. Pixels too close to the border keep a zero code.
func censusTransform(gray []uint8, census []uint64, width, height, workers int) {
	for i := range census[:width*height] {
		census[i] = 0
	}
	parallelFor(workers, height-2*censusHalfHeight, func(i int) {
		y := i + censusHalfHeight
		for x := censusHalfWidth; x < width-censusHalfWidth; x++ {
			center := gray[y*width+x]
			var code uint64
			for r := -censusHalfHeight; r <= censusHalfHeight; r++ {
				for c := -censusHalfWidth; c <= censusHalfWidth; c++ {
					code <<= 1
					if gray[(y+r)*width+(x+c)] < center {
						code |= 1
					}
				}
			}
			census[y*width+x] = code
		}
	})
}

// hamming counts differing bits between two census codes.
func hamming(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}
