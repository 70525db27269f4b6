// Package retry provides a bounded retry-with-backoff combinator shared by every
// network-facing component.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Default configuration values.
const (
	DefaultMaxRetries  = 3
	DefaultBaseDelay   = 1 * time.Second
	DefaultMaxDelay    = 10 * time.Second
	DefaultBackoffMult = 2.0
)

// ErrExhausted is wrapped by the error returned when every attempt failed.
var ErrExhausted = errors.New("max retries exceeded")

// Policy bounds the number of attempts and the delay between them.
type Policy struct {
	MaxRetries int           // retries after the first call; total calls <= MaxRetries+1
	BaseDelay  time.Duration // delay before the first retry
	MaxDelay   time.Duration // cap on any single delay
	Multiplier float64       // growth factor; 1 yields a fixed delay

	// Sleep blocks for d or until ctx is done. Defaults to a timer wait.
	Sleep func(ctx context.Context, d time.Duration) error
	// OnRetry is invoked before each retry sleep.
	OnRetry func(retry int, delay time.Duration, err error)
}

// DefaultPolicy returns the exponential policy used by RPC calls.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries: DefaultMaxRetries,
		BaseDelay:  DefaultBaseDelay,
		MaxDelay:   DefaultMaxDelay,
		Multiplier: DefaultBackoffMult,
	}
}

// Fixed returns a policy with a constant delay between attempts.
func Fixed(maxRetries int, delay time.Duration) Policy {
	return Policy{
		MaxRetries: maxRetries,
		BaseDelay:  delay,
		MaxDelay:   delay,
		Multiplier: 1,
	}
}

// Delay returns the wait before the given retry (1-based):
// BaseDelay * Multiplier^(retry-1), capped at MaxDelay.
func (p Policy) Delay(retry int) time.Duration {
	if retry < 1 || p.BaseDelay <= 0 {
		return 0
	}
	mult := p.Multiplier
	if mult < 1 {
		mult = 1
	}
	delay := float64(p.BaseDelay)
	for i := 1; i < retry; i++ {
		delay *= mult
		if p.MaxDelay > 0 && delay >= float64(p.MaxDelay) {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && time.Duration(delay) > p.MaxDelay {
		return p.MaxDelay
	}
	return time.Duration(delay)
}

func (p Policy) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
	return Sleep(ctx, d)
}

// Sleep waits for d, returning early with ctx.Err() on cancellation.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
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

// Always treats every error as retryable.
func Always(error) bool { return true }


// Do calls fn until it succeeds, the error is not retryable, the context is done,
// or MaxRetries retries have been spent. attempt is 1-based.
//
// A non-retryable error is returned unchanged. Exhaustion returns an error wrapping
// both ErrExhausted and the last error.
func Do[T any](ctx context.Context, p Policy, retryable func(error) bool, fn func(ctx context.Context, attempt int) (T, error)) (T, error) {
	var zero T
	if retryable == nil {
		retryable = Always
	}
	maxRetries := p.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	var lastErr error
	for attempt := 1; attempt <= maxRetries+1; attempt++ {
		if attempt > 1 {
			delay := p.Delay(attempt - 1)
			if p.OnRetry != nil {
				p.OnRetry(attempt-1, delay, lastErr)
			}
			if err := p.sleep(ctx, delay); err != nil {
				return zero, err
			}
		}

		result, err := fn(ctx, attempt)
		if err == nil {
			return result, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, ctxErr
		}
		if !retryable(err) {
			return zero, err
		}
		lastErr = err
	}

	return zero, fmt.Errorf("%w after %d attempts: %w", ErrExhausted, maxRetries+1, lastErr)
}
