package analyze

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// IOThrottle limits the rate of directory visits of a scan.
//
// Two modes can be combined:
//   - IOPS limiting uses a token bucket with burst equal to maxIOPS
//   - fixed delay sleeps for ioDelay before every visit
//
// A nil throttle does nothing, so callers do not have to check it.
type IOThrottle struct {
	maxIOPS int
	ioDelay time.Duration
	limiter *rate.Limiter
	mu      sync.Mutex
}

// NewIOThrottle creates a throttle with IOPS limit and/or fixed delay.
// It returns nil if both are disabled.
//
//	NewIOThrottle(1000, 10*time.Millisecond) // 1000 IOPS + 10ms delay
//	NewIOThrottle(500, 0)                    // 500 IOPS only
//	NewIOThrottle(0, 0)                      // nil
func NewIOThrottle(maxIOPS int, ioDelay time.Duration) *IOThrottle {
	if maxIOPS <= 0 && ioDelay <= 0 {
		return nil
	}

	throttle := &IOThrottle{
		maxIOPS: maxIOPS,
		ioDelay: ioDelay,
	}
	if maxIOPS > 0 {
		throttle.limiter = rate.NewLimiter(rate.Limit(maxIOPS), maxIOPS)
	}
	return throttle
}

// Acquire blocks until the next directory visit is allowed.
// It returns ctx.Err() if the context is cancelled while waiting.
func (t *IOThrottle) Acquire(ctx context.Context) error {
	if t == nil {
		return nil
	}

	t.mu.Lock()
	limiter := t.limiter
	t.mu.Unlock()

	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}
	}

	if t.ioDelay > 0 {
		timer := time.NewTimer(t.ioDelay)
		defer timer.Stop()

		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return nil
}

// Reset drops tokens accumulated in the bucket
func (t *IOThrottle) Reset() {
	if t == nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.maxIOPS > 0 {
		t.limiter = rate.NewLimiter(rate.Limit(t.maxIOPS), t.maxIOPS)
	}
}

// IsEnabled returns true if throttling is active
func (t *IOThrottle) IsEnabled() bool {
	if t == nil {
		return false
	}
	return t.maxIOPS > 0 || t.ioDelay > 0
}
