package services

import (
	"context"
	"errors"
	"testing"
	"time"
)

func noSleep(slept *[]time.Duration) func(context.Context, time.Duration) error {
	return func(_ context.Context, d time.Duration) error {
		*slept = append(*slept, d)
		return nil
	}
}

func TestWithRetry(t *testing.T) {
	t.Run("succeeds first attempt", func(t *testing.T) {
		calls := 0
		err := WithRetry(context.Background(), RetryOptions{}, "op", func() error {
			calls++
			return nil
		})
		if err != nil {
			t.Fatalf("WithRetry failed: %v", err)
		}
		if calls != 1 {
			t.Errorf("calls = %d, want 1", calls)
		}
	})

	t.Run("retries transient then succeeds", func(t *testing.T) {
		var slept []time.Duration
		calls := 0
		err := WithRetry(context.Background(), RetryOptions{Sleep: noSleep(&slept)}, "op", func() error {
			calls++
			if calls < 3 {
				return NewAPIError("op", 503)
			}
			return nil
		})
		if err != nil {
			t.Fatalf("WithRetry failed: %v", err)
		}
		if calls != 3 {
			t.Errorf("calls = %d, want 3", calls)
		}
		// backoff = 2^attempt seconds
		want := []time.Duration{2 * time.Second, 4 * time.Second}
		if len(slept) != len(want) {
			t.Fatalf("slept %d times, want %d", len(slept), len(want))
		}
		for i := range want {
			if slept[i] != want[i] {
				t.Errorf("sleep %d = %v, want %v", i, slept[i], want[i])
			}
		}
	})

	t.Run("exhausts attempts and returns original error", func(t *testing.T) {
		var slept []time.Duration
		original := NewAPIError("op", 500)
		calls := 0
		err := WithRetry(context.Background(), RetryOptions{Sleep: noSleep(&slept)}, "op", func() error {
			calls++
			return original
		})
		if !errors.Is(err, original) {
			t.Errorf("expected original error, got %v", err)
		}
		if calls != 3 {
			t.Errorf("calls = %d, want 3", calls)
		}
	})

	t.Run("does not retry authentication errors", func(t *testing.T) {
		calls := 0
		err := WithRetry(context.Background(), RetryOptions{}, "op", func() error {
			calls++
			return NewAPIError("op", 401)
		})
		if calls != 1 {
			t.Errorf("calls = %d, want 1", calls)
		}
		if !IsAuthentication(err) {
			t.Errorf("expected authentication error, got %v", err)
		}
	})

	t.Run("does not retry not-found errors", func(t *testing.T) {
		calls := 0
		_ = WithRetry(context.Background(), RetryOptions{}, "op", func() error {
			calls++
			return NewAPIError("op", 404)
		})
		if calls != 1 {
			t.Errorf("calls = %d, want 1", calls)
		}
	})

	t.Run("stops on context cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		opts := RetryOptions{Sleep: func(ctx context.Context, d time.Duration) error {
			cancel()
			return ctx.Err()
		}}
		err := WithRetry(ctx, opts, "op", func() error {
			return NewAPIError("op", 503)
		})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}
