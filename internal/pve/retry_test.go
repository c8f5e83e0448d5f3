// SPDX-License-Identifier: MPL-2.0

package pve

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/pveprov/pveprov/internal/clock"
)

func TestBackoff_Delay(t *testing.T) {
	t.Parallel()

	exp := Backoff{Base: time.Second, Factor: 2, Max: 10 * time.Second}
	var got []time.Duration
	for attempt := range 7 {
		got = append(got, exp.Delay(attempt))
	}
	want := []time.Duration{0, 1 * time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 10 * time.Second, 10 * time.Second}
	if !slices.Equal(got, want) {
		t.Errorf("exponential delays = %v, want %v", got, want)
	}

	fixed := Backoff{Base: 5 * time.Second}
	if fixed.Delay(1) != 5*time.Second || fixed.Delay(9) != 5*time.Second {
		t.Errorf("fixed delays = %v, %v", fixed.Delay(1), fixed.Delay(9))
	}
}

func TestRetryWithBackoff_SucceedsFirstAttempt(t *testing.T) {
	t.Parallel()

	clk := clock.NewFake(time.Time{})
	calls := 0
	err := RetryWithBackoff(context.Background(), clk, Backoff{Attempts: 3, Base: time.Second}, func(int) (bool, error) {
		calls++
		return false, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 || len(clk.Sleeps()) != 0 {
		t.Fatalf("calls = %d, sleeps = %v", calls, clk.Sleeps())
	}
}

func TestRetryWithBackoff_RetriesThenSucceeds(t *testing.T) {
	t.Parallel()

	clk := clock.NewFake(time.Time{})
	calls := 0
	err := RetryWithBackoff(context.Background(), clk, Backoff{Attempts: 5, Base: time.Second, Factor: 2}, func(attempt int) (bool, error) {
		calls++
		if attempt < 2 {
			return true, errors.New("transient")
		}
		return false, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
	if want := []time.Duration{time.Second, 2 * time.Second}; !slices.Equal(clk.Sleeps(), want) {
		t.Errorf("sleeps = %v, want %v", clk.Sleeps(), want)
	}
}

func TestRetryWithBackoff_ExhaustsRetries(t *testing.T) {
	t.Parallel()

	clk := clock.NewFake(time.Time{})
	calls := 0
	err := RetryWithBackoff(context.Background(), clk, Backoff{Attempts: 3, Base: time.Millisecond}, func(int) (bool, error) {
		calls++
		return true, errors.New("always transient")
	})
	if err == nil || err.Error() != "always transient" {
		t.Fatalf("expected last error, got: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestRetryWithBackoff_PermanentErrorStops(t *testing.T) {
	t.Parallel()

	permanent := errors.New("permanent")
	calls := 0
	err := RetryWithBackoff(context.Background(), clock.NewFake(time.Time{}), Backoff{Attempts: 5}, func(int) (bool, error) {
		calls++
		return false, permanent
	})
	if !errors.Is(err, permanent) || calls != 1 {
		t.Fatalf("err = %v, calls = %d", err, calls)
	}
}

func TestRetryWithBackoff_ContextCancelledBetweenRetries(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := RetryWithBackoff(ctx, clock.NewFake(time.Time{}), Backoff{Attempts: 5, Base: time.Second}, func(attempt int) (bool, error) {
		calls++
		if attempt == 0 {
			cancel()
			return true, errors.New("transient")
		}
		t.Fatal("should not reach second attempt")
		return false, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}
