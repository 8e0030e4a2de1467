package trends

import (
	"context"
	"fmt"
	"time"
)

// SleepFunc pauses for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the production SleepFunc.
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

// FixedRetry runs an operation up to maxAttempts times with a fixed pause
// before every attempt, the first one included. The pause is pacing against
// the provider's rate limiting, not backoff.
type FixedRetry struct {
	maxAttempts int
	delay       time.Duration
	sleep       SleepFunc
}

func NewFixedRetry(maxAttempts int, delay time.Duration, sleep SleepFunc) *FixedRetry {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if sleep == nil {
		sleep = Sleep
	}
	return &FixedRetry{
		maxAttempts: maxAttempts,
		delay:       delay,
		sleep:       sleep,
	}
}

func (r *FixedRetry) MaxAttempts() int {
	return r.maxAttempts
}

// Execute calls fn with 1-based attempt numbers until it returns nil.
//
// It returns the number of attempts made and one of: nil on success, the
// context error if pacing was interrupted, a fatal error from fn unchanged,
// or an error wrapping ErrRetriesExhausted and the last failure.
func (r *FixedRetry) Execute(ctx context.Context, fn func(attempt int) error) (int, error) {
	var lastErr error

	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		if err := r.sleep(ctx, r.delay); err != nil {
			return attempt - 1, err
		}

		err := fn(attempt)
		if err == nil {
			return attempt, nil
		}
		if ClassifyError(err) == SeverityFatal {
			return attempt, err
		}
		lastErr = err
	}

	return r.maxAttempts, fmt.Errorf("%w after %d attempt(s): %w", ErrRetriesExhausted, r.maxAttempts, lastErr)
}
