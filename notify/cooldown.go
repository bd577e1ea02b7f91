package notify

import (
	"context"
	"sync"
	"time"
)

// Cooldown forwards an event only when more than the configured interval
// has passed since the last forwarded one. The window is global, not per
// ROI. The first event always passes.
type Cooldown struct {
	next     Notifier
	interval time.Duration
	now      func() time.Time

	mu         sync.Mutex
	last       time.Time
	sent       bool
	suppressed int
}

// NewCooldown wraps next. A nil clock selects time.Now.
//
// @example
// alerts := notify.NewCooldown(notify.NewLog(logger), cfg.Cooldown(), nil)
func NewCooldown(next Notifier, interval time.Duration, clock func() time.Time) *Cooldown {
	if clock == nil {
		clock = time.Now
	}
	return &Cooldown{next: next, interval: interval, now: clock}
}

// Notify forwards event unless it falls inside the cooldown window.
// Suppressed events are dropped silently.
func (c *Cooldown) Notify(ctx context.Context, event Event) error {
	c.mu.Lock()
	now := c.now()
	if c.sent && now.Sub(c.last) <= c.interval {
		c.suppressed++
		c.mu.Unlock()
		return nil
	}
	c.last = now
	c.sent = true
	c.mu.Unlock()

	return c.next.Notify(ctx, event)
}

// Suppressed returns the number of events dropped so far.
func (c *Cooldown) Suppressed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.suppressed
}
