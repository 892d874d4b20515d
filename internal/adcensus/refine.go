package adcensus

import (
	"math"
	"slices"

	"github.com/MeKo-Tech/parallax/internal/mempool"
)

// detectOutliers cross-checks the two disparity maps. Pixels whose left and
// right values disagree beyond the threshold are invalidated in dispLeft
// and classified: if reprojecting through the right map lands on a farther
// surface the pixel was occluded, otherwise it is a plain mismatch.
func detectOutliers(dispLeft, dispRight []float32, width, height int, threshold float32) (occlusions, mismatches []point) {
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := y*width + x
			d := dispLeft[i]
			if d == Invalid {
				mismatches = append(mismatches, point{x, y})
				continue
			}
			colRight := int(math.Round(float64(x) - float64(d)))
			if colRight < 0 || colRight >= width {
				dispLeft[i] = Invalid
				mismatches = append(mismatches, point{x, y})
				continue
			}
			dr := dispRight[y*width+colRight]
			if absF32(d-dr) <= threshold {
				continue
			}
			colLeft := int(math.Round(float64(colRight) + float64(dr)))
			if colLeft > 0 && colLeft < width && dispLeft[y*width+colLeft] > d {
				occlusions = append(occlusions, point{x, y})
			} else {
				mismatches = append(mismatches, point{x, y})
			}
			dispLeft[i] = Invalid
		}
	}
	return occlusions, mismatches
}

func absF32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

// regionVote repeatedly fills invalidated pixels whose cross support region
// votes decisively for a single disparity. Mismatches are visited before
// occlusions on every iteration, and pixels filled early contribute votes
// to later ones. Both lists are reduced to the pixels still invalid.
func regionVote(disp []float32, arms []CrossArm, width, minD, maxD, thresholdSize int, thresholdRatio float32, occlusions, mismatches *[]point) {
	dr := maxD - minD + 1
	histogram := make([]int, dr)

	const iterations = 5
	for range iterations {
		for _, pixels := range [2]*[]point{mismatches, occlusions} {
			for _, px := range *pixels {
				i := px.y*width + px.x
				if disp[i] != Invalid {
					continue
				}
				for k := range histogram {
					histogram[k] = 0
				}
				arm := arms[i]
				for t := -int(arm.Top); t <= int(arm.Bottom); t++ {
					yt := px.y + t
					rowArm := arms[yt*width+px.x]
					for s := -int(rowArm.Left); s <= int(rowArm.Right); s++ {
						d := disp[yt*width+px.x+s]
						if d == Invalid {
							continue
						}
						histogram[int(math.Round(float64(d)))-minD]++
					}
				}
				best, maxVotes, count := 0, 0, 0
				for di, votes := range histogram {
					if votes > maxVotes {
						maxVotes = votes
						best = di
					}
					count += votes
				}
				if maxVotes > 0 && count > thresholdSize && float32(maxVotes)/float32(count) > thresholdRatio {
					disp[i] = float32(best + minD)
				}
			}
		}
	}

	*mismatches = dropFilled(disp, width, *mismatches)
	*occlusions = dropFilled(disp, width, *occlusions)
}

func dropFilled(disp []float32, width int, pixels []point) []point {
	kept := pixels[:0]
	for _, px := range pixels {
		if disp[px.y*width+px.x] == Invalid {
			kept = append(kept, px)
		}
	}
	return kept
}

// directionalFill interpolates the pixels region voting left behind. For
// each pixel it walks 16 rays and keeps the first valid disparity per ray;
// mismatches take the median of the collected values, occlusions the
// minimum since the hole belongs to the background. A pixel with no
// reachable candidates stays invalid.
func directionalFill(disp []float32, width, height, minD, maxD int, occlusions, mismatches []point) {
	maxSearch := max(maxD, -maxD, minD, -minD)
	candidates := make([]float32, 0, 16)

	for k, pixels := range [2][]point{mismatches, occlusions} {
		if len(pixels) == 0 {
			continue
		}
		fills := make([]float32, len(pixels))
		for n, px := range pixels {
			candidates = candidates[:0]
			for s := 0; s < 16; s++ {
				ang := float64(s) * math.Pi / 16
				sina, cosa := math.Sin(ang), math.Cos(ang)
				for m := 1; m < maxSearch; m++ {
					yy := int(math.Round(float64(px.y) + float64(m)*sina))
					xx := int(math.Round(float64(px.x) + float64(m)*cosa))
					if yy < 0 || yy >= height || xx < 0 || xx >= width {
						break
					}
					if d := disp[yy*width+xx]; d != Invalid {
						candidates = append(candidates, d)
						break
					}
				}
			}
			if len(candidates) == 0 {
				fills[n] = Invalid
				continue
			}
			if k == 0 {
				slices.Sort(candidates)
				fills[n] = candidates[len(candidates)/2]
			} else {
				fills[n] = slices.Min(candidates)
			}
		}
		for n, px := range pixels {
			disp[px.y*width+px.x] = fills[n]
		}
	}
}

// sobelEdges marks pixels whose disparity gradient magnitude exceeds the
// threshold. Border pixels stay unmarked.
func sobelEdges(disp []float32, edges []uint8, width, height int, threshold float32) {
	for y := 1; y < height-1; y++ {
		for x := 1; x < width-1; x++ {
			up := (y - 1) * width
			mid := y * width
			down := (y + 1) * width
			gx := -disp[up+x-1] + disp[up+x+1] +
				-2*disp[mid+x-1] + 2*disp[mid+x+1] +
				-disp[down+x-1] + disp[down+x+1]
			gy := -disp[up+x-1] - 2*disp[up+x] - disp[up+x+1] +
				disp[down+x-1] + 2*disp[down+x] + disp[down+x+1]
			if absF32(gx)+absF32(gy) > threshold {
				edges[mid+x] = 1
			}
		}
	}
}

// adjustDiscontinuities re-evaluates pixels on disparity edges against the
// raw pointwise matching cost. When a horizontal neighbor's disparity
// explains the reference pixel more cheaply, the pixel adopts it.
func (p *pass) adjustDiscontinuities(disp []float32) {
	const gradientThreshold = 5.0
	w, h := p.width, p.height
	edges := mempool.GetUint8(w * h)
	defer mempool.PutUint8(edges)
	sobelEdges(disp, edges, w, h, gradientThreshold)

	for y := 0; y < h; y++ {
		for x := 1; x < w-1; x++ {
			if edges[y*w+x] == 0 {
				continue
			}
			d := disp[y*w+x]
			if d == Invalid {
				continue
			}
			c0 := p.costAt(x, y, int(math.Round(float64(d))))
			for _, x2 := range [2]int{x - 1, x + 1} {
				d2 := disp[y*w+x2]
				if d2 == Invalid {
					continue
				}
				if c := p.costAt(x, y, int(math.Round(float64(d2)))); c < c0 {
					disp[y*w+x] = d2
					c0 = c
				}
			}
		}
	}
}

// medianFilter3x3 replaces every valid pixel with the median of the valid
// values in its 3x3 neighborhood. Invalid pixels pass through unchanged, so
// the filter neither fills nor creates holes.
func medianFilter3x3(disp []float32, width, height, workers int) {
	n := width * height
	src := mempool.GetFloat32(n)
	defer mempool.PutFloat32(src)
	copy(src, disp[:n])

	parallelFor(workers, height, func(y int) {
		var window [9]float32
		for x := 0; x < width; x++ {
			if src[y*width+x] == Invalid {
				continue
			}
			count := 0
			for r := max(0, y-1); r <= min(height-1, y+1); r++ {
				for c := max(0, x-1); c <= min(width-1, x+1); c++ {
					if v := src[r*width+c]; v != Invalid {
						window[count] = v
						count++
					}
				}
			}
			vals := window[:count]
			slices.Sort(vals)
			disp[y*width+x] = vals[count/2]
		}
	})
}
