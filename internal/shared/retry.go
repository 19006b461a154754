package shared

import (
	"context"
	"time"
)

// RetryConfig bounds how often a conflicted settlement is re-attempted.
type RetryConfig struct {
	Attempts int
	BaseWait time.Duration
}

// DefaultRetry is suitable for per-request settlement retries.
var DefaultRetry = RetryConfig{Attempts: 3, BaseWait: 25 * time.Millisecond}

// WithRetry runs fn until it succeeds, returns a non-retryable error, or the
// attempt budget is exhausted. Waits double between attempts.
func WithRetry(ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) error) error {
	if cfg.Attempts <= 0 {
		cfg.Attempts = DefaultRetry.Attempts
	}
	wait := cfg.BaseWait
	if wait <= 0 {
		wait = DefaultRetry.BaseWait
	}

	var err error
	for attempt := 0; attempt < cfg.Attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
			wait *= 2
		}
		err = fn(ctx)
		if err == nil || !IsRetryable(err) {
			return err
		}
	}
	return err
}
