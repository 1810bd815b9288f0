package services

import (
	"context"
	"math"
	"time"

	"github.com/charmbracelet/log"
)

// RetryOptions tunes [WithRetry].
type RetryOptions struct {
	MaxAttempts int           // attempt cap, default 3
	Backoff     float64       // backoff base, delay = Backoff^attempt seconds, default 2
	Logger      *log.Logger   // optional
	Sleep       func(ctx context.Context, d time.Duration) error
}

func (o *RetryOptions) defaults() {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.Backoff <= 0 {
		o.Backoff = 2
	}
	if o.Sleep == nil {
		o.Sleep = func(ctx context.Context, d time.Duration) error {
			timer := time.NewTimer(d)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timer.C:
				return nil
			}
		}
	}
}

// WithRetry runs fn, retrying transient failures with exponential backoff.
//
// Only errors for which [IsTransient] holds are retried; authentication and
// not-found failures propagate immediately. When attempts are exhausted the
// last error is returned unchanged.
func WithRetry(ctx context.Context, opts RetryOptions, operation string, fn func() error) error {
	opts.defaults()

	var lastErr error
	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		if !IsTransient(lastErr) {
			return lastErr
		}

		if attempt == opts.MaxAttempts {
			break
		}

		delay := time.Duration(math.Pow(opts.Backoff, float64(attempt)) * float64(time.Second))
		if opts.Logger != nil {
			opts.Logger.Warn("retrying after transient failure",
				"operation", operation, "attempt", attempt, "max", opts.MaxAttempts, "delay", delay, "err", lastErr)
		}
		if err := opts.Sleep(ctx, delay); err != nil {
			return err
		}
	}

	if opts.Logger != nil {
		opts.Logger.Error("operation failed after retries", "operation", operation, "attempts", opts.MaxAttempts, "err", lastErr)
	}
	return lastErr
}
