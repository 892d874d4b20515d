package adcensus

import "github.com/MeKo-Tech/parallax/internal/mempool"

const maxArmLength = 255

// CrossArm holds the four arm lengths of a pixel's adaptive support cross.
type CrossArm struct {
	Left, Right, Top, Bottom uint8
}

// colorDist returns the largest per-channel absolute difference between two
// 3-byte BGR pixels.
func colorDist(a, b []byte) int {
	d := absDiffU8(a[0], b[0])
	if g := absDiffU8(a[1], b[1]); g > d {
		d = g
	}
	if r := absDiffU8(a[2], b[2]); r > d {
		d = r
	}
	return d
}

// buildArms grows the support cross of every pixel. Arms extend while the
// color stays close to both the anchor pixel and the previous pixel on the
// arm, with a tighter threshold once the arm exceeds CrossL2.
func buildArms(img []byte, arms []CrossArm, width, height int, opts Options) {
	parallelFor(opts.effectiveWorkers(), height, func(y int) {
		for x := 0; x < width; x++ {
			arm := &arms[y*width+x]
			arm.Left = growArm(img, width, height, x, y, -1, 0, opts)
			arm.Right = growArm(img, width, height, x, y, 1, 0, opts)
			arm.Top = growArm(img, width, height, x, y, 0, -1, opts)
			arm.Bottom = growArm(img, width, height, x, y, 0, 1, opts)
		}
	})
}

// growArm extends one arm from (x, y) along (dx, dy) and returns its
// length.
func growArm(img []byte, width, height, x, y, dx, dy int, opts Options) uint8 {
	maxLen := min(opts.CrossL1, maxArmLength)
	anchor := img[(y*width+x)*3:][:3]
	last := anchor
	length := 0
	xn, yn := x+dx, y+dy
	for n := 0; n < maxLen; n++ {
		if xn < 0 || xn >= width || yn < 0 || yn >= height {
			break
		}
		cur := img[(yn*width+xn)*3:][:3]
		if colorDist(cur, anchor) >= opts.CrossT1 {
			break
		}
		if n > 0 && colorDist(cur, last) >= opts.CrossT1 {
			break
		}
		if n+1 > opts.CrossL2 && colorDist(cur, anchor) >= opts.CrossT2 {
			break
		}
		length++
		last = cur
		xn += dx
		yn += dy
	}
	return uint8(length) //nolint:gosec // capped at maxArmLength
}

// horizontalSum writes into dst the sum of src over each pixel's horizontal
// arm, endpoints inclusive.
func horizontalSum(src, dst []float32, arms []CrossArm, width, height int) {
	for y := 0; y < height; y++ {
		row := y * width
		for x := 0; x < width; x++ {
			arm := arms[row+x]
			var sum float32
			for s := -int(arm.Left); s <= int(arm.Right); s++ {
				sum += src[row+x+s]
			}
			dst[row+x] = sum
		}
	}
}

// verticalSum is the vertical counterpart of horizontalSum.
func verticalSum(src, dst []float32, arms []CrossArm, width, height int) {
	for y := 0; y < height; y++ {
		row := y * width
		for x := 0; x < width; x++ {
			arm := arms[row+x]
			var sum float32
			for t := -int(arm.Top); t <= int(arm.Bottom); t++ {
				sum += src[(y+t)*width+x]
			}
			dst[row+x] = sum
		}
	}
}

// supportCounts fills the per-pixel support region sizes for both
// aggregation orders. A horizontal-first region stacks the row extents of
// the pixels on the vertical arm; vertical-first is the transpose.
func supportCounts(arms []CrossArm, width, height int, countH, countV []float32) {
	tmp := mempool.GetFloat32(width * height)
	defer mempool.PutFloat32(tmp)

	for i, arm := range arms[:width*height] {
		tmp[i] = float32(int(arm.Left) + int(arm.Right) + 1)
	}
	verticalSum(tmp, countH, arms, width, height)

	for i, arm := range arms[:width*height] {
		tmp[i] = float32(int(arm.Top) + int(arm.Bottom) + 1)
	}
	horizontalSum(tmp, countV, arms, width, height)
}

// aggregateCost smooths the raw volume over each pixel's support cross.
// Both arm orders run once against the raw costs, each normalized by its
// own region size, and dst receives their average.
func aggregateCost(raw, dst []float32, arms []CrossArm, width, height, dispRange, workers int) {
	n := width * height
	countH := mempool.GetFloat32(n)
	countV := mempool.GetFloat32(n)
	defer mempool.PutFloat32(countH)
	defer mempool.PutFloat32(countV)
	supportCounts(arms, width, height, countH, countV)

	parallelFor(workers, dispRange, func(di int) {
		plane := mempool.GetFloat32(n)
		tmp := mempool.GetFloat32(n)
		sumH := mempool.GetFloat32(n)
		defer mempool.PutFloat32(plane)
		defer mempool.PutFloat32(tmp)
		defer mempool.PutFloat32(sumH)

		for i := 0; i < n; i++ {
			plane[i] = raw[i*dispRange+di]
		}
		horizontalSum(plane, tmp, arms, width, height)
		verticalSum(tmp, sumH, arms, width, height)
		verticalSum(plane, tmp, arms, width, height)
		horizontalSum(tmp, plane, arms, width, height)
		for i := 0; i < n; i++ {
			a := sumH[i] / countH[i]
			b := plane[i] / countV[i]
			dst[i*dispRange+di] = (a + b) / 2
		}
	})
}
