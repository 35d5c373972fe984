package resilience_test

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonwraymond/pulsecheck/resilience"
)

func ExampleNewBulkhead() {
	gate := resilience.NewBulkhead(resilience.BulkheadConfig{
		MaxConcurrent: 2,
		FailFast:      true,
	})
	ctx := context.Background()

	_ = gate.Acquire(ctx)
	_ = gate.Acquire(ctx)
	err := gate.Acquire(ctx)
	fmt.Println("Third caller:", err)

	gate.Release()
	fmt.Println("Available:", gate.Stats().Available())
	// Output:
	// Third caller: resilience: bulkhead at capacity
	// Available: 1
}

func ExampleBulkhead_Stats() {
	gate := resilience.NewBulkhead(resilience.BulkheadConfig{MaxConcurrent: 3})

	_ = gate.Execute(context.Background(), func(ctx context.Context) error {
		s := gate.Stats()
		fmt.Printf("In flight: %d of %d\n", s.InFlight, s.Limit)
		return nil
	})
	fmt.Println("Peak:", gate.Stats().Peak)
	// Output:
	// In flight: 1 of 3
	// Peak: 1
}

func ExampleExecuteWithTimeout() {
	err := resilience.ExecuteWithTimeout(context.Background(), 10*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	fmt.Println("Timed out:", errors.Is(err, resilience.ErrTimeout))
	// Output:
	// Timed out: true
}

func ExampleExecuteWithTimeout_panic() {
	err := resilience.ExecuteWithTimeout(context.Background(), time.Second, func(ctx context.Context) error {
		panic("unexpected nil client")
	})

	var pe *resilience.PanicError
	fmt.Println("Recovered panic:", errors.As(err, &pe))
	// Output:
	// Recovered panic: true
}
