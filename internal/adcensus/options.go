package adcensus

import (
	"fmt"
	"math"
	"runtime"
)

// Invalid marks pixels without a resolved disparity in output maps.
var Invalid = float32(math.Inf(1))

// StageHook receives a notification after each pipeline stage completes.
// completed counts finished stages, total is the number of stages the
// current configuration will run.
type StageHook func(stage string, completed, total int)

// Options configures a Matcher. The zero value is not usable; start from
// DefaultOptions.
type Options struct {
	// Disparity search interval, inclusive on both ends.
	MinDisparity int
	MaxDisparity int

	// Cost fusion weights for the absolute-difference and census terms.
	LambdaAD     float32
	LambdaCensus float32

	// Cross arm growth: L1 caps arm length, beyond L2 the color threshold
	// tightens from T1 to T2.
	CrossL1 int
	CrossL2 int
	CrossT1 int
	CrossT2 int

	// Scanline smoothness penalties and the color gradient threshold that
	// relaxes them across edges.
	P1  float32
	P2  float32
	TSO int

	// Region voting: minimum votes in a support region and minimum share
	// the winning disparity must hold.
	IRVThresholdSize  int
	IRVThresholdRatio float32

	// Maximum disagreement between the left and right maps before a pixel
	// is invalidated.
	LRCheckThreshold float32

	DoLRCheck                 bool
	DoFilling                 bool
	DoDiscontinuityAdjustment bool

	// Number of scanline directions, 4 or 8.
	PathCount int

	// Workers bounds per-stage parallelism. 0 uses GOMAXPROCS.
	Workers int

	// MaxMemoryBytes rejects configurations whose estimated working set
	// exceeds the cap. 0 disables the check.
	MaxMemoryBytes uint64

	// Progress, when set, is invoked after each completed stage.
	Progress StageHook
}

// DefaultOptions returns the parameter set the matcher was tuned with.
func DefaultOptions() Options {
	return Options{
		MinDisparity:              0,
		MaxDisparity:              64,
		LambdaAD:                  10,
		LambdaCensus:              30,
		CrossL1:                   34,
		CrossL2:                   17,
		CrossT1:                   20,
		CrossT2:                   6,
		P1:                        1.0,
		P2:                        3.0,
		TSO:                       15,
		IRVThresholdSize:          20,
		IRVThresholdRatio:         0.4,
		LRCheckThreshold:          1.0,
		DoLRCheck:                 true,
		DoFilling:                 true,
		DoDiscontinuityAdjustment: false,
		PathCount:                 4,
		Workers:                   0,
		MaxMemoryBytes:            0,
	}
}

// DisparityRange returns the number of disparity candidates.
func (o Options) DisparityRange() int {
	return o.MaxDisparity - o.MinDisparity + 1
}

// Validate checks parameter consistency.
func (o Options) Validate() error {
	if o.MaxDisparity <= o.MinDisparity {
		return fmt.Errorf("disparity range invalid: max %d must exceed min %d", o.MaxDisparity, o.MinDisparity)
	}
	if o.LambdaAD <= 0 || o.LambdaCensus <= 0 {
		return fmt.Errorf("cost lambdas must be positive, got ad=%v census=%v", o.LambdaAD, o.LambdaCensus)
	}
	if o.CrossL1 < 1 || o.CrossL2 < 1 {
		return fmt.Errorf("cross arm limits must be at least 1, got L1=%d L2=%d", o.CrossL1, o.CrossL2)
	}
	if o.CrossT1 < 1 || o.CrossT2 < 1 {
		return fmt.Errorf("cross color thresholds must be at least 1, got t1=%d t2=%d", o.CrossT1, o.CrossT2)
	}
	if o.P1 < 0 || o.P2 < 0 {
		return fmt.Errorf("scanline penalties must be non-negative, got p1=%v p2=%v", o.P1, o.P2)
	}
	if o.TSO < 0 {
		return fmt.Errorf("tso must be non-negative, got %d", o.TSO)
	}
	if o.IRVThresholdSize < 0 {
		return fmt.Errorf("irv size threshold must be non-negative, got %d", o.IRVThresholdSize)
	}
	if o.IRVThresholdRatio < 0 || o.IRVThresholdRatio > 1 {
		return fmt.Errorf("irv ratio threshold must be in [0,1], got %v", o.IRVThresholdRatio)
	}
	if o.LRCheckThreshold <= 0 {
		return fmt.Errorf("lr check threshold must be positive, got %v", o.LRCheckThreshold)
	}
	if o.PathCount != 4 && o.PathCount != 8 {
		return fmt.Errorf("path count must be 4 or 8, got %d", o.PathCount)
	}
	if o.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", o.Workers)
	}
	return nil
}

func (o Options) effectiveWorkers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return runtime.GOMAXPROCS(0)
}
