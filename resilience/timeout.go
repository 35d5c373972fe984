package resilience

import (
	"context"
	"errors"
	"runtime/debug"
	"sync/atomic"
	"time"
)

// DefaultTimeout applies when ExecuteWithTimeout is given a non-positive
// limit.
const DefaultTimeout = 30 * time.Second

var abandoned atomic.Int64

// Abandoned returns how many operations are still running after their
// caller stopped waiting for them. A value that keeps growing points at a
// client call that ignores context cancellation.
func Abandoned() int64 {
	return abandoned.Load()
}

// ExecuteWithTimeout runs op on its own goroutine and waits at most limit.
//
// op receives a context that is cancelled when the limit passes or ctx
// ends, so a well-behaved client unwinds; one that ignores its context is
// left to finish in the background and counted by Abandoned. A panic in op
// is returned as a *PanicError.
//
// The returned error is op's own error, ErrTimeout when the limit passed
// first, or ctx.Err() when the caller's context ended first.
func ExecuteWithTimeout(ctx context.Context, limit time.Duration, op func(context.Context) error) error {
	if limit <= 0 {
		limit = DefaultTimeout
	}
	opCtx, cancel := context.WithTimeout(ctx, limit)

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- &PanicError{Value: r, Stack: debug.Stack()}
			}
		}()
		done <- op(opCtx)
	}()

	select {
	case err := <-done:
		cancel()
		return err
	case <-opCtx.Done():
	}

	cancel()
	abandoned.Add(1)
	go func() {
		<-done
		abandoned.Add(-1)
	}()

	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(opCtx.Err(), context.DeadlineExceeded) {
		return ErrTimeout
	}
	return opCtx.Err()
}
