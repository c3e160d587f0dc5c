package ratelimiter

import (
	"time"

	"go.uber.org/atomic"
)

// Counter is a fixed-window admission counter for a single (route, client)
// key. It divides time into consecutive windows of a fixed length and admits
// at most capacity requests per window.
//
// Fixed window is chosen over sliding-window or token-bucket variants for its
// O(1) memory and work per key. The known tradeoff is burstiness at window
// boundaries: up to 2x capacity may be admitted across a boundary. That is an
// intentional property of the algorithm, not a defect.
type Counter struct {
	capacity    int64
	windowMilli int64

	count       atomic.Int64
	windowStart atomic.Int64 // unix milliseconds, only ever advances
}

// NewCounter creates a counter admitting capacity requests per window.
// Both arguments must be positive; validation belongs to the configuration
// layer, which rejects bad policies before any counter is built.
func NewCounter(capacity int, window time.Duration) *Counter {
	c := &Counter{
		capacity:    int64(capacity),
		windowMilli: window.Milliseconds(),
	}
	c.windowStart.Store(time.Now().UnixMilli())
	return c
}

// Allow reports whether one more request fits in the current window. It is
// lock-free and safe for concurrent use: the window advance and the increment
// are independent CAS operations, so a request arriving exactly at a window
// boundary may be counted against either the old or the new window.
func (c *Counter) Allow() bool {
	now := time.Now().UnixMilli()
	start := c.windowStart.Load()

	// Advance the window at most once per boundary. Losing the CAS means
	// another goroutine already advanced it and reset the count.
	if now-start > c.windowMilli && c.windowStart.CompareAndSwap(start, now) {
		c.count.Store(0)
	}

	for {
		current := c.count.Load()
		if current >= c.capacity {
			return false
		}
		if c.count.CompareAndSwap(current, current+1) {
			return true
		}
	}
}

// Capacity returns the per-window request budget.
func (c *Counter) Capacity() int { return int(c.capacity) }

// Window returns the window length.
func (c *Counter) Window() time.Duration {
	return time.Duration(c.windowMilli) * time.Millisecond
}

// Remaining returns how many requests are still admissible in the current
// window. It is a point-in-time snapshot meant for response headers.
func (c *Counter) Remaining() int {
	left := c.capacity - c.count.Load()
	if left < 0 {
		return 0
	}
	return int(left)
}

// ResetAfter returns the time left until the current window elapses, floored
// at zero. Like Remaining, it is advisory only.
func (c *Counter) ResetAfter() time.Duration {
	elapsed := time.Now().UnixMilli() - c.windowStart.Load()
	left := c.windowMilli - elapsed
	if left < 0 {
		left = 0
	}
	return time.Duration(left) * time.Millisecond
}
