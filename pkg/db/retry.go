package db

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// RetryPolicy bounds how a scoped transaction is retried on write conflicts.
type RetryPolicy struct {
	Timeout     time.Duration
	MaxAttempts int
	Backoff     time.Duration
}

// Delay is the pause before the given retry attempt (1-based), growing linearly.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	return p.Backoff * time.Duration(attempt)
}

func (p RetryPolicy) attempts() int {
	return max(1, p.MaxAttempts)
}

// Run executes once until it succeeds, returns a non-retryable error or the
// policy is exhausted. Exhaustion, and the policy's own deadline firing while
// a conflict or lock wait is in progress, yield ErrLockTimeout. Non-retryable
// errors and cancellation of the caller's ctx are returned unchanged.
func (p RetryPolicy) Run(ctx context.Context, retryable func(error) bool, once func(ctx context.Context) error) error {
	parent := ctx
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	var lastErr error
	for attempt := 1; attempt <= p.attempts(); attempt++ {
		err := once(ctx)
		if err == nil {
			return nil
		}
		if parent.Err() != nil {
			if retryable(err) {
				return fmt.Errorf("%w: %w", parent.Err(), err)
			}
			return err
		}
		lockWait := ctx.Err() != nil && errors.Is(err, context.DeadlineExceeded)
		if !retryable(err) && !lockWait {
			return err
		}
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %v", ErrLockTimeout, err)
		}
		lastErr = err

		select {
		case <-ctx.Done():
			if parent.Err() != nil {
				return fmt.Errorf("%w: %w", parent.Err(), lastErr)
			}
			return fmt.Errorf("%w: %v", ErrLockTimeout, lastErr)
		case <-time.After(p.Delay(attempt)):
		}
	}
	return fmt.Errorf("%w after %d attempts: %v", ErrLockTimeout, p.attempts(), lastErr)
}
