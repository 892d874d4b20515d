// Package common provides shared utilities including timing functionality.
package common

import (
	"fmt"
	"strings"
	"time"
)

// Timer provides timing utilities for instrumentation with optional naming.
type Timer struct {
	start    time.Time
	name     string
	duration time.Duration
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// NewNamedTimer creates a new timer with the given name.
func NewNamedTimer(name string) *Timer {
	return &Timer{
		name:  name,
		start: time.Now(),
	}
}

// Stop stops the timer and returns the elapsed duration.
func (t *Timer) Stop() time.Duration {
	t.duration = time.Since(t.start)
	return t.duration
}

// Duration returns the recorded duration (only valid after Stop()).
func (t *Timer) Duration() time.Duration {
	return t.duration
}

// Name returns the timer name (empty string if unnamed).
func (t *Timer) Name() string {
	return t.name
}

// String returns a formatted string representation of the timer.
func (t *Timer) String() string {
	if t.name != "" {
		return fmt.Sprintf("%s: %v", t.name, t.duration)
	}
	return fmt.Sprintf("%v", t.duration)
}

// StageTiming records how long one named stage of a multi-stage run took.
type StageTiming struct {
	Stage string
	Ns    int64
}

// StageTimings accumulates per-stage durations in execution order.
type StageTimings struct {
	stages []StageTiming
}

// Add appends a stage duration.
func (st *StageTimings) Add(stage string, d time.Duration) {
	st.stages = append(st.stages, StageTiming{Stage: stage, Ns: d.Nanoseconds()})
}

// Get returns the recorded duration in nanoseconds for a stage, or 0 if unknown.
func (st *StageTimings) Get(stage string) int64 {
	for _, s := range st.stages {
		if s.Stage == stage {
			return s.Ns
		}
	}
	return 0
}

// Stages returns the recorded stages in execution order.
func (st *StageTimings) Stages() []StageTiming {
	out := make([]StageTiming, len(st.stages))
	copy(out, st.stages)
	return out
}

// TotalNs returns the sum of all recorded stage durations in nanoseconds.
func (st *StageTimings) TotalNs() int64 {
	var total int64
	for _, s := range st.stages {
		total += s.Ns
	}
	return total
}

// String renders the timings as "stage1: 12ms, stage2: 3ms".
func (st *StageTimings) String() string {
	parts := make([]string, 0, len(st.stages))
	for _, s := range st.stages {
		parts = append(parts, fmt.Sprintf("%s: %v", s.Stage, time.Duration(s.Ns)))
	}
	return strings.Join(parts, ", ")
}
