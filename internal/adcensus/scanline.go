package adcensus

import "github.com/MeKo-Tech/parallax/internal/mempool"

// largeCost pads the disparity ends of the previous pixel's cost row so
// the d-1 and d+1 lookups never win there.
const largeCost float32 = 1e9

type point struct {
	x, y int
}

// scanDir is one scanline direction, unit steps on both axes.
type scanDir struct {
	dx, dy int
}

var (
	directions4 = []scanDir{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
	directions8 = []scanDir{{1, 0}, {-1, 0}, {0, 1}, {0, -1}, {1, 1}, {-1, -1}, {1, -1}, {-1, 1}}
)

// scanlineOptimize sums the smoothness-propagated cost of every scan
// direction into dst. Each direction reads the aggregated volume src
// independently; paths within one direction touch disjoint pixels and run
// in parallel.
func (p *pass) scanlineOptimize(src, dst []float32) {
	dr := p.opts.DisparityRange()
	for i := range dst[:p.width*p.height*dr] {
		dst[i] = 0
	}
	dirs := directions4
	if p.opts.PathCount == 8 {
		dirs = directions8
	}
	workers := p.opts.effectiveWorkers()
	for _, dir := range dirs {
		starts := p.pathStarts(dir)
		parallelFor(workers, len(starts), func(i int) {
			p.walkPath(src, dst, starts[i].x, starts[i].y, dir)
		})
	}
}

// pathStarts enumerates the entry pixels whose paths cover the image
// exactly once for the given direction.
func (p *pass) pathStarts(dir scanDir) []point {
	w, h := p.width, p.height
	var starts []point
	switch {
	case dir.dy == 0:
		x0 := 0
		if dir.dx < 0 {
			x0 = w - 1
		}
		for y := 0; y < h; y++ {
			starts = append(starts, point{x0, y})
		}
	case dir.dx == 0:
		y0 := 0
		if dir.dy < 0 {
			y0 = h - 1
		}
		for x := 0; x < w; x++ {
			starts = append(starts, point{x, y0})
		}
	default:
		y0 := 0
		if dir.dy < 0 {
			y0 = h - 1
		}
		for x := 0; x < w; x++ {
			starts = append(starts, point{x, y0})
		}
		x0 := 0
		if dir.dx < 0 {
			x0 = w - 1
		}
		for y := 0; y < h; y++ {
			if y != y0 {
				starts = append(starts, point{x0, y})
			}
		}
	}
	return starts
}

// penalties scales P1/P2 by the color gradients along the path: full
// strength in smooth regions, a quarter across an edge on one image, a
// tenth across edges on both.
func (p *pass) penalties(d1, d2 int) (float32, float32) {
	tso := p.opts.TSO
	switch {
	case d1 < tso && d2 < tso:
		return p.opts.P1, p.opts.P2
	case d1 >= tso && d2 >= tso:
		return p.opts.P1 / 10, p.opts.P2 / 10
	default:
		return p.opts.P1 / 4, p.opts.P2 / 4
	}
}

// walkPath propagates cost along a single path and accumulates the result
// into dst. The previous pixel's costs live in a buffer padded with
// largeCost on both disparity ends, and its minimum is subtracted from
// every updated value to keep the accumulation bounded on long paths.
func (p *pass) walkPath(src, dst []float32, x0, y0 int, dir scanDir) {
	dr := p.opts.DisparityRange()
	minD := p.opts.MinDisparity
	w, h := p.width, p.height

	last := mempool.GetFloat32(dr + 2)
	cur := mempool.GetFloat32(dr)
	defer mempool.PutFloat32(last)
	defer mempool.PutFloat32(cur)
	last[0], last[dr+1] = largeCost, largeCost

	// The first pixel of a path copies its aggregated cost unchanged.
	x, y := x0, y0
	base := (y*w + x) * dr
	minLast := largeCost
	for di := 0; di < dr; di++ {
		c := src[base+di]
		dst[base+di] += c
		last[di+1] = c
		minLast = min(minLast, c)
	}

	for x, y = x+dir.dx, y+dir.dy; x >= 0 && x < w && y >= 0 && y < h; x, y = x+dir.dx, y+dir.dy {
		base = (y*w + x) * dr
		ri := (y*w + x) * 3
		rp := ((y-dir.dy)*w + (x - dir.dx)) * 3
		d1 := colorDist(p.ref[ri:ri+3], p.ref[rp:rp+3])

		minCur := largeCost
		for di := 0; di < dr; di++ {
			d2 := d1
			xt := x + p.sign*(minD+di)
			xtPrev := xt - dir.dx
			if xt >= 0 && xt < w && xtPrev >= 0 && xtPrev < w {
				ti := (y*w + xt) * 3
				tp := ((y-dir.dy)*w + xtPrev) * 3
				d2 = colorDist(p.tgt[ti:ti+3], p.tgt[tp:tp+3])
			}
			p1, p2 := p.penalties(d1, d2)

			lr := src[base+di] + min(
				last[di+1],
				last[di]+p1,
				last[di+2]+p1,
				minLast+p2,
			) - minLast
			cur[di] = lr
			dst[base+di] += lr
			minCur = min(minCur, lr)
		}
		copy(last[1:dr+1], cur[:dr])
		minLast = minCur
	}
}
