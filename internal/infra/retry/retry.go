// Package retry implements a bounded retry policy with exponential backoff.
// The policy is a plain value (max attempts, backoff schedule, retryable
// predicate) so callers can test it with a fake sleeper.
package retry

import (
	"context"
	"time"
)

// Policy controls how an operation is retried.
type Policy struct {
	// MaxAttempts is the total number of tries, including the first.
	MaxAttempts int

	// InitialDelay is the wait after the first failure; it doubles on each
	// subsequent failure up to MaxDelay.
	InitialDelay time.Duration
	MaxDelay     time.Duration

	// Retryable decides whether an error is transient. Nil retries everything.
	Retryable func(error) bool

	// Sleep waits for the backoff delay. Nil uses a context-aware real sleep.
	// Tests inject a recorder here.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Default returns the submission retry policy: 3 attempts, 1s/2s backoff.
func Default() Policy {
	return Policy{
		MaxAttempts:  3,
		InitialDelay: 1 * time.Second,
		MaxDelay:     4 * time.Second,
	}
}

// Do runs fn up to MaxAttempts times, sleeping between failures. It returns
// nil on the first success, the last error once attempts are exhausted, and
// stops early on non-retryable errors or context cancellation.
func (p Policy) Do(ctx context.Context, fn func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = realSleep
	}

	delay := p.InitialDelay
	var lastErr error
	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if p.Retryable != nil && !p.Retryable(lastErr) {
			return lastErr
		}
		if i == attempts-1 {
			break
		}

		if err := sleep(ctx, delay); err != nil {
			return err
		}
		delay *= 2
		if p.MaxDelay > 0 && delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}
	return lastErr
}

func realSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
