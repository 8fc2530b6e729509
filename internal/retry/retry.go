// Package retry executes fallible external operations under a bounded,
// independently testable retry policy. Policies are data: a combinator walks
// the schedule instead of each call site hand-rolling its own loop.
package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"
)

// Policy bounds the attempts made for one operation. Delay returns the pause
// before attempt n+1 (n starts at 1). Retryable decides whether a failure is
// worth another attempt; malformed-input style errors should return false so
// the call fails fast.
type Policy struct {
	MaxAttempts int
	Delay       func(attempt int) time.Duration
	Retryable   func(err error) bool
}

// OCRPolicy: 2 attempts, fixed 1s pause.
func OCRPolicy() Policy {
	return Policy{
		MaxAttempts: 2,
		Delay:       Fixed(time.Second),
		Retryable:   defaultRetryable,
	}
}

// SimplifyPolicy: 3 attempts, exponential 1s -> 2s -> 4s.
func SimplifyPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		Delay:       Exponential(time.Second),
		Retryable:   defaultRetryable,
	}
}

// PersistPolicy: 3 attempts, fixed 500ms pause.
func PersistPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		Delay:       Fixed(500 * time.Millisecond),
		Retryable:   defaultRetryable,
	}
}

// Fixed returns the same pause for every attempt.
func Fixed(d time.Duration) func(int) time.Duration {
	return func(int) time.Duration { return d }
}

// Exponential doubles the pause after each attempt: base, 2*base, 4*base, ...
func Exponential(base time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		d := base
		for i := 1; i < attempt; i++ {
			d *= 2
		}
		return d
	}
}

func defaultRetryable(err error) bool {
	type transient interface{ Transient() bool }
	var te transient
	if errors.As(err, &te) {
		return te.Transient()
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return ne.Timeout()
	}
	return false
}

// ExhaustedError reports that every attempt allowed by the policy failed.
// Last is the failure from the final attempt.
type ExhaustedError struct {
	Op       string
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s: exhausted %d attempts: %v", e.Op, e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error { return e.Last }

// Do runs op under the policy. Each attempt is logged with its number,
// elapsed time and outcome; the operation's payload never reaches the log.
// A non-retryable failure is returned as-is after the first attempt that
// produced it; exhaustion returns *ExhaustedError.
func Do[T any](ctx context.Context, name string, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		start := time.Now()
		result, err := op(ctx)
		elapsed := time.Since(start)

		if err == nil {
			zap.S().Infow("external call succeeded",
				"op", name, "attempt", attempt, "elapsed", elapsed)
			return result, nil
		}
		lastErr = err
		zap.S().Warnw("external call failed",
			"op", name, "attempt", attempt, "elapsed", elapsed, "error", err.Error())

		if p.Retryable != nil && !p.Retryable(err) {
			return zero, err
		}
		if attempt == p.MaxAttempts {
			break
		}
		if err := sleep(ctx, p.Delay(attempt)); err != nil {
			return zero, err
		}
	}

	return zero, &ExhaustedError{Op: name, Attempts: p.MaxAttempts, Last: lastErr}
}

func sleep(ctx context.Context, d time.Duration) error {
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
