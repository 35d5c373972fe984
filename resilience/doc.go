// Package resilience provides the isolation primitives used by the health
// check engine.
//
// Two patterns are provided:
//
//   - Bulkhead: a counting gate that bounds how many operations are in flight
//     at once. Callers beyond the limit wait for a slot, optionally bounded by
//     MaxWait, or are rejected immediately when FailFast is set. Stats reports
//     in-flight, peak, waiting and rejected counts.
//
//   - ExecuteWithTimeout: runs an operation on its own goroutine under a
//     deadline. The caller regains control when the deadline passes even if
//     the operation is stuck in a blocking client call. A panic inside the
//     operation is returned as a *PanicError. Operations still running after
//     their caller gave up are counted by Abandoned.
//
// # Usage
//
//	gate := resilience.NewBulkhead(resilience.BulkheadConfig{MaxConcurrent: 4})
//	err := gate.Execute(ctx, func(ctx context.Context) error {
//	    return resilience.ExecuteWithTimeout(ctx, 2*time.Second, func(ctx context.Context) error {
//	        return db.PingContext(ctx)
//	    })
//	})
package resilience
