// Package retry implements bounded retry with exponential backoff for
// startup-time connections. A worker that exhausts its attempts exits
// non-zero so the supervisor's restart policy applies instead of the process
// hanging in a half-started state.
package retry

import (
	"context"
	"fmt"
	"time"
)

// Policy controls attempt count and backoff growth.
type Policy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	OnRetry        func(attempt int, err error, backoff time.Duration)
}

// Operation is a retryable unit of work.
type Operation[T any] func() (T, error)

// Do runs op until it succeeds, attempts are exhausted, or ctx is cancelled.
// Backoff doubles between attempts.
func Do[T any](ctx context.Context, p Policy, op Operation[T]) (T, error) {
	backoff := p.InitialBackoff

	for attempt := 1; ; attempt++ {
		val, err := op()
		if err == nil {
			return val, nil
		}

		if attempt == p.MaxAttempts {
			var zero T
			return zero, fmt.Errorf("failed after %d attempts: %w", p.MaxAttempts, err)
		}

		if p.OnRetry != nil {
			p.OnRetry(attempt, err, backoff)
		}

		select {
		case <-time.After(backoff):
			backoff *= 2
		case <-ctx.Done():
			var zero T
			return zero, fmt.Errorf("context cancelled during retry: %w", ctx.Err())
		}
	}
}

// DoVoid is Do for operations without a result.
func DoVoid(ctx context.Context, p Policy, op func() error) error {
	_, err := Do(ctx, p, func() (struct{}, error) { return struct{}{}, op() })
	return err
}
