// Package retry bounds loops that re-run an external step until it reports a
// usable result.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DefaultMaxAttempts matches the dependency resolution bound of the package driver.
const DefaultMaxAttempts = 10

// Policy encapsulates a bounded retry loop. It is immutable after construction.
type Policy struct {
	// MaxAttempts is the total number of attempts, the first one included.
	MaxAttempts int
	// OnRetry runs after a failed attempt and before the next one. It is not
	// called after the last attempt.
	OnRetry func(ctx context.Context, attempt int) error
	// Delay waits between attempts. Zero retries immediately.
	Delay time.Duration
}

// DefaultPolicy returns a policy with DefaultMaxAttempts and no delay.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: DefaultMaxAttempts}
}

// Validate ensures invariants; returns error if the policy is impossible to apply.
func (p Policy) Validate() error {
	if p.MaxAttempts <= 0 {
		return fmt.Errorf("max attempts must be >0, got %d", p.MaxAttempts)
	}
	if p.Delay < 0 {
		return fmt.Errorf("delay cannot be negative")
	}
	return nil
}

// WithOnRetry returns a copy of p with the cleanup hook replaced.
func (p Policy) WithOnRetry(fn func(ctx context.Context, attempt int) error) Policy {
	p.OnRetry = fn
	return p
}

// ExhaustedError is returned when every attempt asked for a retry.
type ExhaustedError struct {
	Attempts int
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("gave up after %d attempts", e.Attempts)
}

// Attempt is one iteration of a retried step. It returns again=true to ask for
// another attempt. A non-nil error ends the loop immediately.
type Attempt func(ctx context.Context, attempt int) (again bool, err error)

// Do runs fn until it stops asking for a retry, returns an error, or the
// attempts run out. It returns the number of attempts made.
func (p Policy) Do(ctx context.Context, fn Attempt) (int, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return attempt - 1, err
		}

		again, err := fn(ctx, attempt)
		if err != nil {
			return attempt, err
		}
		if !again {
			return attempt, nil
		}
		if attempt >= p.MaxAttempts {
			return attempt, &ExhaustedError{Attempts: attempt}
		}

		if p.OnRetry != nil {
			if err := p.OnRetry(ctx, attempt); err != nil {
				return attempt, fmt.Errorf("cleanup after attempt %d failed: %w", attempt, err)
			}
		}
		if p.Delay > 0 {
			select {
			case <-ctx.Done():
				return attempt, ctx.Err()
			case <-time.After(p.Delay):
			}
		}
	}
}

// IsExhausted reports whether err is an ExhaustedError.
func IsExhausted(err error) bool {
	var ex *ExhaustedError
	return errors.As(err, &ex)
}
