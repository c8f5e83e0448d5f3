// SPDX-License-Identifier: MPL-2.0

package pve

import (
	"context"
	"fmt"
	"time"

	"github.com/pveprov/pveprov/internal/clock"
)

// Backoff describes a bounded retry schedule. The wait before attempt n
// (n >= 1) is Base * Factor^(n-1), capped at Max when Max is set.
// A Factor of 1 (or 0) gives a fixed interval.
type Backoff struct {
	Attempts int
	Base     time.Duration
	Factor   int
	Max      time.Duration
}

// Delay returns the wait before the given zero-based attempt.
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	d := b.Base
	if b.Factor > 1 {
		for range attempt - 1 {
			d *= time.Duration(b.Factor)
			if b.Max > 0 && d >= b.Max {
				return b.Max
			}
		}
	}
	if b.Max > 0 && d > b.Max {
		return b.Max
	}
	return d
}

// RetryWithBackoff retries op up to b.Attempts times, waiting on clk between
// attempts. Cancellation of ctx aborts the wait immediately.
//
// op returns (shouldRetry bool, err error). If shouldRetry is false, err is
// returned immediately (nil on success, non-nil on permanent failure).
// On retry exhaustion, the last error is returned.
func RetryWithBackoff(
	ctx context.Context,
	clk clock.Clock,
	b Backoff,
	op func(attempt int) (retry bool, err error),
) error {
	var lastErr error
	for attempt := range b.Attempts {
		if attempt > 0 {
			if err := clk.Sleep(ctx, b.Delay(attempt)); err != nil {
				return fmt.Errorf("retry aborted: %w", err)
			}
		}

		retry, err := op(attempt)
		if err == nil {
			return nil
		}
		if !retry {
			return err
		}
		lastErr = err
	}
	return lastErr
}
