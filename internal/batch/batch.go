// Package batch runs the stereo matcher over collections of image pairs
// with a worker pool, per-pair outputs and an aggregate report.
package batch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/MeKo-Tech/parallax/internal/adcensus"
	"github.com/MeKo-Tech/parallax/internal/imageio"
	"github.com/MeKo-Tech/parallax/internal/mempool"
	"github.com/MeKo-Tech/parallax/internal/stats"
	"github.com/MeKo-Tech/parallax/internal/visualize"
)

const skippedAfterFailure = "skipped after earlier failure"

// Config holds all settings for a batch run.
type Config struct {
	// Matcher configures the stereo engine used for every pair.
	Matcher adcensus.Options

	// Workers is the number of pairs processed concurrently (0 = NumCPU).
	// Each pair additionally parallelizes internally per Matcher.Workers.
	Workers int

	// ContinueOnError keeps the run going when a pair fails. When false,
	// the first failure stops the run and later pairs are marked skipped.
	ContinueOnError bool

	// OutputDir receives the disparity images. Empty disables image output.
	OutputDir string

	// Format selects the rendering: "gray", "color" or "both".
	Format string

	// Stats adds per-pair disparity statistics to the results.
	Stats bool

	// Progress receives run updates. Nil disables reporting.
	Progress ProgressCallback
}

// DefaultConfig returns sensible defaults for batch processing.
func DefaultConfig() Config {
	return Config{
		Matcher:         adcensus.DefaultOptions(),
		Workers:         0,
		ContinueOnError: true,
		OutputDir:       "output",
		Format:          "gray",
	}
}

// PairResult records the outcome for a single stereo pair.
type PairResult struct {
	Pair

	Width      int            `json:"width,omitempty"`
	Height     int            `json:"height,omitempty"`
	ValidRatio float64        `json:"valid_ratio,omitempty"`
	Occlusions int            `json:"occlusions,omitempty"`
	Mismatches int            `json:"mismatches,omitempty"`
	DurationNs int64          `json:"duration_ns,omitempty"`
	Stats      *stats.Summary `json:"stats,omitempty"`
	Outputs    []string       `json:"outputs,omitempty"`
	Error      string         `json:"error,omitempty"`
}

// Result aggregates a whole batch run.
type Result struct {
	Pairs       []PairResult `json:"pairs"`
	Total       int          `json:"total"`
	Succeeded   int          `json:"succeeded"`
	Failed      int          `json:"failed"`
	Skipped     int          `json:"skipped"`
	WorkerCount int          `json:"worker_count"`
	DurationNs  int64        `json:"duration_ns"`
}

// pairJob carries one pair through the worker pool.
type pairJob struct {
	index int
	pair  Pair
}

// pairOutcome is the per-pair result sent back by workers.
type pairOutcome struct {
	index  int
	result PairResult
	err    error
}

// Run processes the given pairs with a worker pool. Results keep the input
// order. When ContinueOnError is set, per-pair failures are recorded in the
// result and Run itself succeeds; otherwise the first failure is returned
// and unprocessed pairs are marked skipped.
func Run(ctx context.Context, pairs []Pair, config Config) (*Result, error) {
	if len(pairs) == 0 {
		return nil, errors.New("no stereo pairs provided")
	}
	if err := config.Matcher.Validate(); err != nil {
		return nil, fmt.Errorf("invalid matcher options: %w", err)
	}

	workers := config.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(pairs) {
		workers = len(pairs)
	}

	progress := config.Progress
	if progress == nil {
		progress = NoOpProgressCallback{}
	}
	progress.OnStart(len(pairs))
	defer progress.OnComplete()

	if config.OutputDir != "" {
		if err := os.MkdirAll(config.OutputDir, 0o750); err != nil {
			return nil, fmt.Errorf("cannot create output directory: %w", err)
		}
	}

	start := time.Now()

	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	jobs := make(chan pairJob, len(pairs))
	results := make(chan pairOutcome, len(pairs))

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runWorker(runCtx, jobs, results, config, stop)
		}()
	}

	go func() {
		defer close(jobs)
		for i, p := range pairs {
			select {
			case jobs <- pairJob{index: i, pair: p}:
			case <-runCtx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	outcomes := make(map[int]pairOutcome)
	processed := 0
	for outcome := range results {
		outcomes[outcome.index] = outcome
		processed++
		if outcome.err != nil {
			progress.OnError(processed, outcome.err)
		}
		progress.OnProgress(processed, len(pairs))
	}

	// Cancellation of the caller's context aborts the whole run.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stopped := runCtx.Err() != nil

	result := &Result{
		Pairs:       make([]PairResult, len(pairs)),
		Total:       len(pairs),
		WorkerCount: workers,
	}

	var firstError error
	for i, p := range pairs {
		pr := PairResult{Pair: p}
		outcome, ok := outcomes[i]

		switch {
		case ok && outcome.err == nil:
			pr = outcome.result
			result.Succeeded++
		case ok && stopped && errors.Is(outcome.err, context.Canceled):
			pr.Error = skippedAfterFailure
			result.Skipped++
		case ok:
			pr = outcome.result
			pr.Error = outcome.err.Error()
			result.Failed++
			if firstError == nil {
				firstError = fmt.Errorf("pair %s: %w", p.Name, outcome.err)
			}
		default:
			pr.Error = skippedAfterFailure
			result.Skipped++
		}
		result.Pairs[i] = pr
	}
	result.DurationNs = time.Since(start).Nanoseconds()

	if !config.ContinueOnError && firstError != nil {
		return result, firstError
	}
	return result, nil
}

// runWorker processes pairs from the jobs channel.
func runWorker(
	ctx context.Context,
	jobs <-chan pairJob,
	results chan<- pairOutcome,
	config Config,
	stop context.CancelFunc,
) {
	for {
		select {
		case job, ok := <-jobs:
			if !ok {
				return
			}

			res, err := processPair(ctx, job.pair, config)

			// The results channel is buffered for every job, so this
			// send cannot block.
			results <- pairOutcome{index: job.index, result: res, err: err}

			if err != nil && !config.ContinueOnError {
				stop()
				return
			}

		case <-ctx.Done():
			return
		}
	}
}

// processPair runs the full match for one pair and writes its outputs.
func processPair(ctx context.Context, pair Pair, config Config) (PairResult, error) {
	pr := PairResult{Pair: pair}
	start := time.Now()

	left, right, err := imageio.LoadStereoPair(pair.Left, pair.Right)
	if err != nil {
		return pr, err
	}

	leftBGR, width, height, err := imageio.ToBGRPooled(left)
	if err != nil {
		return pr, err
	}
	defer mempool.PutUint8(leftBGR)

	rightBGR, _, _, err := imageio.ToBGRPooled(right)
	if err != nil {
		return pr, err
	}
	defer mempool.PutUint8(rightBGR)

	matcher, err := adcensus.NewMatcher(width, height, config.Matcher)
	if err != nil {
		return pr, err
	}

	result, err := matcher.Compute(ctx, leftBGR, rightBGR)
	if err != nil {
		return pr, err
	}

	pr.Width = width
	pr.Height = height
	pr.ValidRatio = result.ValidRatio()
	pr.Occlusions = result.Occlusions
	pr.Mismatches = result.Mismatches

	if config.Stats {
		s := stats.Summarize(result.Disparity)
		pr.Stats = &s
	}

	outputs, err := saveOutputs(result, pair.Name, config)
	if err != nil {
		return pr, err
	}
	pr.Outputs = outputs

	pr.DurationNs = time.Since(start).Nanoseconds()
	return pr, nil
}

// saveOutputs renders and writes the disparity images for one pair.
func saveOutputs(result *adcensus.Result, name string, config Config) ([]string, error) {
	if config.OutputDir == "" {
		return nil, nil
	}

	var outputs []string

	if config.Format == "gray" || config.Format == "both" {
		img, err := visualize.GrayImage(result.Disparity, result.Width, result.Height)
		if err != nil {
			return nil, fmt.Errorf("rendering %s: %w", name, err)
		}
		path := filepath.Join(config.OutputDir, name+"_disparity.png")
		if err := imageio.SaveImage(img, path); err != nil {
			return nil, err
		}
		outputs = append(outputs, path)
	}

	if config.Format == "color" || config.Format == "both" {
		img, err := visualize.ColorImage(result.Disparity, result.Width, result.Height)
		if err != nil {
			return nil, fmt.Errorf("rendering %s: %w", name, err)
		}
		path := filepath.Join(config.OutputDir, name+"_disparity_color.png")
		if err := imageio.SaveImage(img, path); err != nil {
			return nil, err
		}
		outputs = append(outputs, path)
	}

	return outputs, nil
}
