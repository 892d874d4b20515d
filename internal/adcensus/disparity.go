package adcensus

// selectDisparity runs winner-take-all over the optimized volume and fits a
// parabola through the winner's neighbors for sub-pixel precision. Ties go
// to the lower disparity. Winners at either end of the range keep their
// integer value since one parabola support is missing there.
func (p *pass) selectDisparity(volume, disp []float32) {
	dr := p.opts.DisparityRange()
	minD := p.opts.MinDisparity
	parallelFor(p.opts.effectiveWorkers(), p.height, func(y int) {
		for x := 0; x < p.width; x++ {
			base := (y*p.width + x) * dr
			best := 0
			bestCost := volume[base]
			for di := 1; di < dr; di++ {
				if c := volume[base+di]; c < bestCost {
					bestCost = c
					best = di
				}
			}
			d := float32(minD + best)
			if best > 0 && best < dr-1 {
				c1 := volume[base+best-1]
				c2 := volume[base+best+1]
				if denom := c1 + c2 - 2*bestCost; denom != 0 {
					d += (c1 - c2) / (2 * denom)
				}
			}
			disp[y*p.width+x] = d
		}
	})
}
