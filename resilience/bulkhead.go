package resilience

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// BulkheadConfig configures a Bulkhead.
type BulkheadConfig struct {
	// MaxConcurrent is the number of slots. Default: 10
	MaxConcurrent int

	// MaxWait bounds how long Acquire waits for a slot. Zero waits until the
	// caller's context ends.
	MaxWait time.Duration

	// FailFast rejects callers at once when every slot is taken.
	FailFast bool
}

// Bulkhead is a counting gate bounding how many operations run at once.
// Waiters are admitted in arrival order.
type Bulkhead struct {
	limit    int64
	maxWait  time.Duration
	failFast bool
	sem      *semaphore.Weighted

	inFlight atomic.Int64
	peak     atomic.Int64
	waiting  atomic.Int64
	rejected atomic.Int64
}

// NewBulkhead returns a gate with config.MaxConcurrent slots.
func NewBulkhead(config BulkheadConfig) *Bulkhead {
	limit := int64(config.MaxConcurrent)
	if limit <= 0 {
		limit = 10
	}
	return &Bulkhead{
		limit:    limit,
		maxWait:  config.MaxWait,
		failFast: config.FailFast,
		sem:      semaphore.NewWeighted(limit),
	}
}

// Acquire takes a slot. Every successful Acquire must be paired with a
// Release.
//
// It fails with ErrBulkheadFull when FailFast is set and no slot is free or
// when MaxWait passes, and with ctx.Err() when ctx ends first.
func (b *Bulkhead) Acquire(ctx context.Context) error {
	if !b.sem.TryAcquire(1) {
		if err := b.wait(ctx); err != nil {
			return err
		}
	}

	n := b.inFlight.Add(1)
	for {
		p := b.peak.Load()
		if n <= p || b.peak.CompareAndSwap(p, n) {
			return nil
		}
	}
}

func (b *Bulkhead) wait(ctx context.Context) error {
	if b.failFast {
		b.rejected.Add(1)
		return ErrBulkheadFull
	}

	waitCtx := ctx
	if b.maxWait > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, b.maxWait)
		defer cancel()
	}

	b.waiting.Add(1)
	err := b.sem.Acquire(waitCtx, 1)
	b.waiting.Add(-1)

	switch {
	case err == nil:
		return nil
	case ctx.Err() != nil:
		return ctx.Err()
	default:
		b.rejected.Add(1)
		return ErrBulkheadFull
	}
}

// Release frees a slot taken by Acquire. Extra calls are ignored.
func (b *Bulkhead) Release() {
	for {
		n := b.inFlight.Load()
		if n == 0 {
			return
		}
		if b.inFlight.CompareAndSwap(n, n-1) {
			b.sem.Release(1)
			return
		}
	}
}

// Execute runs op while holding a slot.
func (b *Bulkhead) Execute(ctx context.Context, op func(context.Context) error) error {
	if err := b.Acquire(ctx); err != nil {
		return err
	}
	defer b.Release()
	return op(ctx)
}

// BulkheadStats is a point-in-time view of a Bulkhead.
type BulkheadStats struct {
	Limit    int
	InFlight int
	Peak     int
	Waiting  int
	Rejected int64
}

// Available returns the number of free slots.
func (s BulkheadStats) Available() int {
	return s.Limit - s.InFlight
}

// Stats returns the current counters. Fields are read independently, so
// under load they may not be mutually consistent.
func (b *Bulkhead) Stats() BulkheadStats {
	return BulkheadStats{
		Limit:    int(b.limit),
		InFlight: int(b.inFlight.Load()),
		Peak:     int(b.peak.Load()),
		Waiting:  int(b.waiting.Load()),
		Rejected: b.rejected.Load(),
	}
}
