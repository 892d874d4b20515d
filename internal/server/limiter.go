package server

import "context"

// DefaultMaxConcurrent is the admission limit used when none is configured.
// A single computation already parallelizes across cores, so two slots keep
// the CPU busy while another request uploads or renders.
const DefaultMaxConcurrent = 2

// ComputeLimiter bounds the number of disparity computations running at
// once. Computations are memory-hungry, so excess requests queue until a
// slot frees or their context expires rather than being rejected.
type ComputeLimiter struct {
	slots chan struct{}
}

// NewComputeLimiter creates a limiter with the given number of slots.
// A limit of zero or less falls back to DefaultMaxConcurrent.
func NewComputeLimiter(limit int) *ComputeLimiter {
	if limit <= 0 {
		limit = DefaultMaxConcurrent
	}
	return &ComputeLimiter{slots: make(chan struct{}, limit)}
}

// Acquire blocks until a compute slot is available or the context is done.
func (cl *ComputeLimiter) Acquire(ctx context.Context) error {
	select {
	case cl.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release returns a previously acquired slot.
func (cl *ComputeLimiter) Release() {
	<-cl.slots
}

// Limit returns the number of slots.
func (cl *ComputeLimiter) Limit() int {
	return cap(cl.slots)
}

// Active returns the number of slots currently held.
func (cl *ComputeLimiter) Active() int {
	return len(cl.slots)
}
