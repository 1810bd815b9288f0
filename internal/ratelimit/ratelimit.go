// package ratelimit implements sliding window admission control for outbound API calls.
//
// Each service key ("spotify", "tidal") gets an independent window of call
// timestamps covering the trailing period. Budgets are checked and recorded
// under a per-key lock so unrelated services never block each other.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/crosstune/internal/shared"
)

// Limiter tracks call timestamps per service key within a sliding window.
//
// The zero value is not usable; construct with [NewLimiter] and share a single
// instance between every component that issues calls for the same service.
type Limiter struct {
	mu      sync.Mutex
	windows map[string]*window
	logger  *log.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

type window struct {
	mu    sync.Mutex
	calls []time.Time
}

// NewLimiter creates a Limiter. The logger may be nil.
func NewLimiter(logger *log.Logger) *Limiter {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Limiter{
		windows: make(map[string]*window),
		logger:  logger,
		now:     time.Now,
		sleep:   sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// keyWindow returns the window for key, creating it if needed.
func (l *Limiter) keyWindow(key string) *window {
	l.mu.Lock()
	defer l.mu.Unlock()
	w, ok := l.windows[key]
	if !ok {
		w = &window{}
		l.windows[key] = w
	}
	return w
}

// Allow reports whether a call for key is admitted under the budget of at most
// limit calls per period. An admitted call is recorded immediately.
func (l *Limiter) Allow(key string, limit int, period time.Duration) bool {
	w := l.keyWindow(key)
	w.mu.Lock()
	defer w.mu.Unlock()

	now := l.now()
	w.prune(now.Add(-period))

	if len(w.calls) < limit {
		w.calls = append(w.calls, now)
		return true
	}
	return false
}

// prune drops timestamps at or before cutoff. Caller holds w.mu.
func (w *window) prune(cutoff time.Time) {
	kept := w.calls[:0]
	for _, ts := range w.calls {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	w.calls = kept
}

// Remaining returns how many calls for key are still admissible in the current window.
func (l *Limiter) Remaining(key string, limit int, period time.Duration) int {
	w := l.keyWindow(key)
	w.mu.Lock()
	defer w.mu.Unlock()

	w.prune(l.now().Add(-period))
	if remaining := limit - len(w.calls); remaining > 0 {
		return remaining
	}
	return 0
}

// Reset clears the recorded window for key.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.windows, key)
}

// Throttle runs fn once the budget for key admits a call.
//
// When the budget is exhausted and block is true, Throttle sleeps until the
// oldest recorded call leaves the window (at least one second) and retries.
// When block is false it fails immediately with [shared.ErrRateLimited].
func (l *Limiter) Throttle(ctx context.Context, key string, limit int, period time.Duration, block bool, fn func() error) error {
	for {
		if l.Allow(key, limit, period) {
			return fn()
		}

		if !block {
			return fmt.Errorf("%w for %s", shared.ErrRateLimited, key)
		}

		wait := l.waitTime(key, period)
		l.logger.Info("rate limit reached, waiting", "key", key, "wait", wait)
		if err := l.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// waitTime computes how long until the oldest call in the window expires.
// Always at least one second so a busy loop cannot form.
func (l *Limiter) waitTime(key string, period time.Duration) time.Duration {
	w := l.keyWindow(key)
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.calls) == 0 {
		return time.Second
	}

	oldest := w.calls[0]
	for _, ts := range w.calls[1:] {
		if ts.Before(oldest) {
			oldest = ts
		}
	}

	wait := oldest.Add(period).Sub(l.now())
	if wait < time.Second {
		wait = time.Second
	}
	return wait
}
