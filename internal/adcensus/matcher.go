// Package adcensus implements dense two-frame stereo matching. The cost of
// a correspondence fuses absolute color difference with census similarity;
// costs are smoothed over adaptive cross-shaped support regions, optimized
// along multiple scanline directions, and the selected disparities pass
// through a multi-step refiner before the map is returned.
package adcensus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/MeKo-Tech/parallax/internal/common"
	"github.com/MeKo-Tech/parallax/internal/mempool"
)

// Pipeline stages reported through Options.Progress.
const totalStages = 6

// IsValid reports whether d holds a resolved disparity rather than the
// invalid sentinel.
func IsValid(d float32) bool {
	v := float64(d)
	return !math.IsInf(v, 1) && !math.IsNaN(v)
}

// MemoryLimitError reports that the estimated working set of a matcher
// exceeds the configured budget.
type MemoryLimitError struct {
	EstimatedBytes uint64
	LimitBytes     uint64
}

func (e *MemoryLimitError) Error() string {
	return fmt.Sprintf("estimated working set %d bytes exceeds memory limit %d bytes",
		e.EstimatedBytes, e.LimitBytes)
}

// EstimateMemory approximates the peak working set of a Compute call in
// bytes. The cost volumes dominate; census planes, disparity maps, arms and
// per-worker aggregation scratch make up the rest.
func EstimateMemory(width, height int, opts Options) uint64 {
	n := uint64(width) * uint64(height) //nolint:gosec // dimensions validated positive
	dr := uint64(opts.DisparityRange()) //nolint:gosec // range validated positive
	passes := uint64(1)
	if opts.DoLRCheck {
		passes = 2
	}
	workers := uint64(opts.effectiveWorkers()) //nolint:gosec // validated non-negative

	bytes := passes * 2 * n * dr * 4              // cost volumes
	bytes += 2 * n * 8                            // census codes
	bytes += 2 * n                                // luma planes
	bytes += (passes + 1) * n * 4                 // disparity maps and median scratch
	bytes += passes * n * 4                       // cross arms
	bytes += passes * (3*workers + 3) * n * 4     // aggregation planes
	return bytes
}

// Result holds a computed disparity map with its diagnostics.
type Result struct {
	Width        int `json:"width"`
	Height       int `json:"height"`
	MinDisparity int `json:"min_disparity"`
	MaxDisparity int `json:"max_disparity"`

	// Disparity stores one value per pixel in row-major order. Pixels
	// without a resolved value hold +Inf.
	Disparity []float32 `json:"-"`

	Occlusions    int `json:"occlusions"`
	Mismatches    int `json:"mismatches"`
	InvalidPixels int `json:"invalid_pixels"`

	// Stage timings of the reference pass; the right-view pass overlaps
	// the cost through selection stages and is not reported separately.
	Processing struct {
		CensusNs      int64 `json:"census_ns"`
		CostNs        int64 `json:"cost_ns"`
		AggregationNs int64 `json:"aggregation_ns"`
		ScanlineNs    int64 `json:"scanline_ns"`
		SelectionNs   int64 `json:"selection_ns"`
		RefinementNs  int64 `json:"refinement_ns"`
		TotalNs       int64 `json:"total_ns"`
	} `json:"processing"`
}

// At returns the disparity at pixel (x, y).
func (r *Result) At(x, y int) float32 {
	return r.Disparity[y*r.Width+x]
}

// ValidRatio reports the share of pixels holding a resolved disparity.
func (r *Result) ValidRatio() float64 {
	total := r.Width * r.Height
	if total == 0 {
		return 0
	}
	return float64(total-r.InvalidPixels) / float64(total)
}

// Matcher computes disparity maps for rectified stereo pairs of a fixed
// geometry. A Matcher is safe to reuse across pairs; concurrent Compute
// calls on the same instance are rejected.
type Matcher struct {
	width  int
	height int
	opts   Options
	mu     sync.Mutex
}

// NewMatcher validates the configuration against the image geometry.
func NewMatcher(width, height int, opts Options) (*Matcher, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("image dimensions must be positive, got %dx%d", width, height)
	}
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	if opts.MaxMemoryBytes > 0 {
		if est := EstimateMemory(width, height, opts); est > opts.MaxMemoryBytes {
			return nil, &MemoryLimitError{EstimatedBytes: est, LimitBytes: opts.MaxMemoryBytes}
		}
	}
	return &Matcher{width: width, height: height, opts: opts}, nil
}

// Width returns the configured image width.
func (m *Matcher) Width() int { return m.width }

// Height returns the configured image height.
func (m *Matcher) Height() int { return m.height }

// Options returns a copy of the matcher configuration.
func (m *Matcher) Options() Options { return m.opts }

// Info returns a snapshot of the matcher configuration.
func (m *Matcher) Info() map[string]interface{} {
	return map[string]interface{}{
		"width":           m.width,
		"height":          m.height,
		"min_disparity":   m.opts.MinDisparity,
		"max_disparity":   m.opts.MaxDisparity,
		"disparity_range": m.opts.DisparityRange(),
		"path_count":      m.opts.PathCount,
		"workers":         m.opts.effectiveWorkers(),
		"lr_check":        m.opts.DoLRCheck,
		"filling":         m.opts.DoFilling,
		"discontinuity":   m.opts.DoDiscontinuityAdjustment,
		"estimated_bytes": EstimateMemory(m.width, m.height, m.opts),
	}
}

func (m *Matcher) reportStage(stage string, completed int) {
	if m.opts.Progress != nil {
		m.opts.Progress(stage, completed, totalStages)
	}
}

// Compute runs the full pipeline on one rectified pair. Both buffers hold
// packed 3-byte BGR pixels in row-major order and must match the matcher
// geometry. The context is checked between stages, so a canceled compute
// returns without finishing the remaining work.
func (m *Matcher) Compute(ctx context.Context, left, right []byte) (*Result, error) {
	if !m.mu.TryLock() {
		return nil, errors.New("compute already in progress")
	}
	defer m.mu.Unlock()

	want := m.width * m.height * 3
	if len(left) != want || len(right) != want {
		return nil, fmt.Errorf("input buffers must hold %d bytes for %dx%d BGR, got left=%d right=%d",
			want, m.width, m.height, len(left), len(right))
	}

	slog.Debug("Starting disparity computation",
		"width", m.width,
		"height", m.height,
		"min_disparity", m.opts.MinDisparity,
		"max_disparity", m.opts.MaxDisparity,
		"paths", m.opts.PathCount,
		"lr_check", m.opts.DoLRCheck)

	total := common.NewNamedTimer("compute")
	res := &Result{
		Width:        m.width,
		Height:       m.height,
		MinDisparity: m.opts.MinDisparity,
		MaxDisparity: m.opts.MaxDisparity,
		Disparity:    make([]float32, m.width*m.height),
	}

	n := m.width * m.height
	workers := m.opts.effectiveWorkers()
	grayL := mempool.GetUint8(n)
	grayR := mempool.GetUint8(n)
	censusL := mempool.GetUint64(n)
	censusR := mempool.GetUint64(n)
	defer mempool.PutUint8(grayL)
	defer mempool.PutUint8(grayR)
	defer mempool.PutUint64(censusL)
	defer mempool.PutUint64(censusR)

	stage := common.NewNamedTimer("census")
	bgrToGray(left, grayL, m.width, m.height, workers)
	bgrToGray(right, grayR, m.width, m.height, workers)
	censusTransform(grayL, censusL, m.width, m.height, workers)
	censusTransform(grayR, censusR, m.width, m.height, workers)
	res.Processing.CensusNs = stage.Stop().Nanoseconds()
	m.reportStage("census", 1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// The right-view pass feeds the consistency check and runs alongside
	// the reference pass.
	var (
		dispRight []float32
		rightErr  error
		rightWG   sync.WaitGroup
	)
	if m.opts.DoLRCheck {
		dispRight = mempool.GetFloat32(n)
		defer mempool.PutFloat32(dispRight)
		rightPass := &pass{
			width: m.width, height: m.height, opts: m.opts,
			ref: right, tgt: left,
			censusRef: censusR, censusTgt: censusL,
			sign: 1,
		}
		rightWG.Add(1)
		defer rightWG.Wait()
		go func() {
			defer rightWG.Done()
			_, rightErr = rightPass.run(ctx, dispRight, nil)
		}()
	}

	leftPass := &pass{
		width: m.width, height: m.height, opts: m.opts,
		ref: left, tgt: right,
		censusRef: censusL, censusTgt: censusR,
		sign: -1,
	}
	arms, err := leftPass.run(ctx, res.Disparity, func(stage string, ns int64) {
		switch stage {
		case "cost":
			res.Processing.CostNs = ns
			m.reportStage(stage, 2)
		case "aggregation":
			res.Processing.AggregationNs = ns
			m.reportStage(stage, 3)
		case "scanline":
			res.Processing.ScanlineNs = ns
			m.reportStage(stage, 4)
		case "selection":
			res.Processing.SelectionNs = ns
			m.reportStage(stage, 5)
		}
	})
	if err != nil {
		return nil, err
	}
	rightWG.Wait()
	if rightErr != nil {
		return nil, rightErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stage = common.NewNamedTimer("refinement")
	if m.opts.DoLRCheck {
		occlusions, mismatches := detectOutliers(res.Disparity, dispRight, m.width, m.height, m.opts.LRCheckThreshold)
		res.Occlusions = len(occlusions)
		res.Mismatches = len(mismatches)
		if m.opts.DoFilling {
			regionVote(res.Disparity, arms, m.width,
				m.opts.MinDisparity, m.opts.MaxDisparity,
				m.opts.IRVThresholdSize, m.opts.IRVThresholdRatio,
				&occlusions, &mismatches)
			directionalFill(res.Disparity, m.width, m.height,
				m.opts.MinDisparity, m.opts.MaxDisparity,
				occlusions, mismatches)
		}
	}
	if m.opts.DoDiscontinuityAdjustment {
		leftPass.adjustDiscontinuities(res.Disparity)
	}
	medianFilter3x3(res.Disparity, m.width, m.height, workers)
	res.Processing.RefinementNs = stage.Stop().Nanoseconds()
	m.reportStage("refinement", 6)

	for _, d := range res.Disparity {
		if !IsValid(d) {
			res.InvalidPixels++
		}
	}
	res.Processing.TotalNs = total.Stop().Nanoseconds()

	slog.Debug("Disparity computation completed",
		"duration_ms", res.Processing.TotalNs/1000000,
		"invalid_pixels", res.InvalidPixels,
		"occlusions", res.Occlusions,
		"mismatches", res.Mismatches)
	return res, nil
}

// run executes the cost, aggregation, scanline and selection stages for one
// matching direction, writing per-pixel disparities into disp. The cross
// arms of the reference image are returned for the refinement steps.
// onStage, when non-nil, receives the duration of each completed stage.
func (p *pass) run(ctx context.Context, disp []float32, onStage func(stage string, ns int64)) ([]CrossArm, error) {
	report := onStage
	if report == nil {
		report = func(string, int64) {}
	}

	dr := p.opts.DisparityRange()
	n := p.width * p.height
	volA := mempool.GetFloat32(n * dr)
	volB := mempool.GetFloat32(n * dr)
	defer mempool.PutFloat32(volA)
	defer mempool.PutFloat32(volB)

	timer := common.NewNamedTimer("cost")
	p.computeCost(volA)
	report("cost", timer.Stop().Nanoseconds())
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	timer = common.NewNamedTimer("aggregation")
	arms := make([]CrossArm, n)
	buildArms(p.ref, arms, p.width, p.height, p.opts)
	aggregateCost(volA, volB, arms, p.width, p.height, dr, p.opts.effectiveWorkers())
	report("aggregation", timer.Stop().Nanoseconds())
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	timer = common.NewNamedTimer("scanline")
	p.scanlineOptimize(volB, volA)
	report("scanline", timer.Stop().Nanoseconds())
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	timer = common.NewNamedTimer("selection")
	p.selectDisparity(volA, disp)
	report("selection", timer.Stop().Nanoseconds())
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return arms, nil
}
