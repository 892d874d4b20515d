// Package common provides shared utilities for benchmarking.
package common

import (
	"fmt"
	"runtime"
	"time"
)

// MemoryStats holds memory statistics for benchmarking.
type MemoryStats struct {
	Alloc         uint64
	TotalAlloc    uint64
	Sys           uint64
	HeapAlloc     uint64
	HeapObjects   uint64
	NumGC         uint32
	GCCPUFraction float64
}

// GetMemoryStats returns current memory statistics.
func GetMemoryStats() MemoryStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return MemoryStats{
		Alloc:         m.Alloc,
		TotalAlloc:    m.TotalAlloc,
		Sys:           m.Sys,
		HeapAlloc:     m.HeapAlloc,
		HeapObjects:   m.HeapObjects,
		NumGC:         m.NumGC,
		GCCPUFraction: m.GCCPUFraction,
	}
}

// String returns a formatted string representation of memory stats.
func (m MemoryStats) String() string {
	return fmt.Sprintf("Alloc: %d KB, Total: %d KB, Sys: %d KB, GC: %d (%.2f%% CPU)",
		m.Alloc/1024,
		m.TotalAlloc/1024,
		m.Sys/1024,
		m.NumGC,
		m.GCCPUFraction*100)
}

// BenchmarkResult holds the outcome of running a timed workload repeatedly.
type BenchmarkResult struct {
	Name         string
	Duration     time.Duration
	MemoryBefore MemoryStats
	MemoryAfter  MemoryStats
	Iterations   int
	Pixels       int64 // pixels processed per iteration, 0 if not applicable
	Error        error
}

// PerIteration returns the average duration of a single iteration.
func (br BenchmarkResult) PerIteration() time.Duration {
	if br.Iterations <= 0 {
		return 0
	}
	return br.Duration / time.Duration(br.Iterations)
}

// MegapixelsPerSecond returns throughput when Pixels is known, otherwise 0.
func (br BenchmarkResult) MegapixelsPerSecond() float64 {
	if br.Pixels <= 0 || br.Duration <= 0 {
		return 0
	}
	total := float64(br.Pixels) * float64(br.Iterations)
	return total / br.Duration.Seconds() / 1e6
}

// String returns a formatted string representation of the benchmark result.
func (br BenchmarkResult) String() string {
	if br.Error != nil {
		return fmt.Sprintf("%s: ERROR - %v", br.Name, br.Error)
	}

	memDiff := int64(br.MemoryAfter.Alloc) - int64(br.MemoryBefore.Alloc) //nolint:gosec // G115: Safe conversion for memory display
	s := fmt.Sprintf("%s: %d iterations, avg: %v, total: %v, mem: %+d KB",
		br.Name, br.Iterations, br.PerIteration(), br.Duration, memDiff/1024)
	if mps := br.MegapixelsPerSecond(); mps > 0 {
		s += fmt.Sprintf(", %.2f MPix/s", mps)
	}
	return s
}

// RunBenchmark executes fn the given number of iterations and reports timing
// and memory deltas. A warmup iteration runs first and is not counted.
func RunBenchmark(name string, iterations int, pixels int64, fn func() error) BenchmarkResult {
	result := BenchmarkResult{
		Name:       name,
		Iterations: iterations,
		Pixels:     pixels,
	}
	if iterations <= 0 {
		result.Error = fmt.Errorf("iterations must be positive, got %d", iterations)
		return result
	}

	// Warmup pass, not timed.
	if err := fn(); err != nil {
		result.Error = err
		return result
	}

	runtime.GC()
	result.MemoryBefore = GetMemoryStats()

	timer := NewNamedTimer(name)
	for i := 0; i < iterations; i++ {
		if err := fn(); err != nil {
			result.Error = err
			return result
		}
	}
	result.Duration = timer.Stop()
	result.MemoryAfter = GetMemoryStats()
	return result
}
