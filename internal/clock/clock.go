// SPDX-License-Identifier: MPL-2.0

// Package clock abstracts waiting so that polling loops can be tested without
// real sleeps.
package clock

import (
	"context"
	"sync"
	"time"
)

type (
	// Clock abstracts time operations for deterministic testing.
	// Production code uses Real; tests use Fake.
	Clock interface {
		// Now returns the current time.
		Now() time.Time

		// Sleep blocks for d or until ctx is done, whichever comes first.
		// It returns ctx.Err() when the context ended the wait.
		Sleep(ctx context.Context, d time.Duration) error
	}

	// Real implements Clock using actual system time.
	Real struct{}

	// Fake implements Clock with manually controlled time. Sleep advances the
	// fake time instantly and records the requested duration.
	Fake struct {
		mu      sync.Mutex
		current time.Time
		sleeps  []time.Duration
	}
)

// Now returns the current system time.
func (Real) Now() time.Time {
	return time.Now()
}

// Sleep waits for d, returning early with ctx.Err() on cancellation.
func (Real) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// NewFake creates a Fake clock initialized to the given time.
// If initial is zero, a fixed reference time is used for reproducibility.
func NewFake(initial time.Time) *Fake {
	if initial.IsZero() {
		initial = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	return &Fake{current: initial}
}

// Now returns the current fake time.
func (c *Fake) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Sleep records d and advances the fake time by it without blocking.
func (c *Fake) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
	c.current = c.current.Add(d)
	return nil
}

// Advance moves the fake time forward by d.
func (c *Fake) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
}

// Sleeps returns a copy of every duration passed to Sleep, in call order.
func (c *Fake) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]time.Duration, len(c.sleeps))
	copy(out, c.sleeps)
	return out
}
