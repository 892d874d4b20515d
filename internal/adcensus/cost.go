package adcensus

import "math"

// outOfRangeCost saturates candidates whose correspondence falls outside
// the target image.
const outOfRangeCost = 2.0

// pass bundles the inputs of one matching direction: the reference image,
// the target image it is matched against, their census codes, and the sign
// applied to a disparity when locating the corresponding target column.
// The left pass uses sign -1 (correspondence at x-d in the right image),
// the right pass uses sign +1.
type pass struct {
	width, height int
	opts          Options
	ref, tgt      []byte
	censusRef     []uint64
	censusTgt     []uint64
	sign          int
}

func absDiffU8(a, b byte) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}

// costAt computes the fused AD-census cost of matching reference pixel
// (x, y) at disparity d.
func (p *pass) costAt(x, y, d int) float32 {
	xt := x + p.sign*d
	if xt < 0 || xt >= p.width {
		return outOfRangeCost
	}
	ri := (y*p.width + x) * 3
	ti := (y*p.width + xt) * 3
	ad := float64(absDiffU8(p.ref[ri], p.tgt[ti])+
		absDiffU8(p.ref[ri+1], p.tgt[ti+1])+
		absDiffU8(p.ref[ri+2], p.tgt[ti+2])) / 3.0
	cen := float64(hamming(p.censusRef[y*p.width+x], p.censusTgt[y*p.width+xt]))
	costAD := 1.0 - math.Exp(-ad/float64(p.opts.LambdaAD))
	costCensus := 1.0 - math.Exp(-cen/float64(p.opts.LambdaCensus))
	return float32(costAD + costCensus)
}

// computeCost fills dst with the matching cost of every pixel and
// disparity candidate.
func (p *pass) computeCost(dst []float32) {
	dr := p.opts.DisparityRange()
	minD := p.opts.MinDisparity
	parallelFor(p.opts.effectiveWorkers(), p.height, func(y int) {
		for x := 0; x < p.width; x++ {
			base := (y*p.width + x) * dr
			for di := 0; di < dr; di++ {
				dst[base+di] = p.costAt(x, y, minD+di)
			}
		}
	})
}
