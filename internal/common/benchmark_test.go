package common

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetMemoryStats(t *testing.T) {
	stats := GetMemoryStats()
	assert.Positive(t, stats.Alloc)
	assert.Positive(t, stats.TotalAlloc)
	assert.Positive(t, stats.Sys)

	str := stats.String()
	assert.Contains(t, str, "Alloc:")
	assert.Contains(t, str, "KB")
}

func TestBenchmarkResult(t *testing.T) {
	// Test successful result
	result := BenchmarkResult{
		Name:         "test_result",
		Duration:     100 * time.Millisecond,
		Iterations:   10,
		MemoryBefore: MemoryStats{Alloc: 1000},
		MemoryAfter:  MemoryStats{Alloc: 2000},
	}

	str := result.String()
	assert.Contains(t, str, "test_result")
	assert.Contains(t, str, "10 iterations")
	assert.Contains(t, str, "10ms")  // avg duration
	assert.Contains(t, str, "100ms") // total duration

	// Test error result
	errorResult := BenchmarkResult{
		Name:  "error_result",
		Error: errors.New("test error"),
	}

	str = errorResult.String()
	assert.Contains(t, str, "error_result")
	assert.Contains(t, str, "ERROR")
	assert.Contains(t, str, "test error")
}

func TestBenchmarkResultThroughput(t *testing.T) {
	result := BenchmarkResult{
		Name:       "throughput",
		Duration:   time.Second,
		Iterations: 2,
		Pixels:     500_000,
	}
	// 2 iterations of 0.5 MPix in one second
	assert.InDelta(t, 1.0, result.MegapixelsPerSecond(), 1e-9)
	assert.Contains(t, result.String(), "MPix/s")

	noPixels := BenchmarkResult{Name: "n", Duration: time.Second, Iterations: 1}
	assert.Zero(t, noPixels.MegapixelsPerSecond())
	assert.NotContains(t, noPixels.String(), "MPix/s")
}

func TestRunBenchmark(t *testing.T) {
	calls := 0
	result := RunBenchmark("counting", 3, 100, func() error {
		calls++
		return nil
	})
	assert.NoError(t, result.Error)
	assert.Equal(t, 3, result.Iterations)
	// 3 timed iterations plus one warmup
	assert.Equal(t, 4, calls)
	assert.Positive(t, result.Duration)
}

func TestRunBenchmarkError(t *testing.T) {
	result := RunBenchmark("failing", 5, 0, func() error {
		return errors.New("boom")
	})
	assert.Error(t, result.Error)
	assert.Contains(t, result.String(), "ERROR")
}

func TestRunBenchmarkInvalidIterations(t *testing.T) {
	result := RunBenchmark("none", 0, 0, func() error { return nil })
	assert.Error(t, result.Error)
}

func BenchmarkMemoryStatsRetrieval(b *testing.B) {
	for range b.N {
		GetMemoryStats()
	}
}
