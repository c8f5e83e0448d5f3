// SPDX-License-Identifier: MPL-2.0

package clock

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestFake_SleepAdvancesAndRecords(t *testing.T) {
	t.Parallel()

	c := NewFake(time.Time{})
	start := c.Now()

	if err := c.Sleep(context.Background(), 5*time.Second); err != nil {
		t.Fatalf("Sleep() error = %v", err)
	}
	if err := c.Sleep(context.Background(), 2*time.Second); err != nil {
		t.Fatalf("Sleep() error = %v", err)
	}

	if got := c.Now().Sub(start); got != 7*time.Second {
		t.Errorf("elapsed = %v, want 7s", got)
	}
	sleeps := c.Sleeps()
	if len(sleeps) != 2 || sleeps[0] != 5*time.Second || sleeps[1] != 2*time.Second {
		t.Errorf("Sleeps() = %v", sleeps)
	}
}

func TestFake_SleepHonorsCancelledContext(t *testing.T) {
	t.Parallel()

	c := NewFake(time.Time{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := c.Sleep(ctx, time.Second); !errors.Is(err, context.Canceled) {
		t.Fatalf("Sleep() error = %v, want context.Canceled", err)
	}
	if len(c.Sleeps()) != 0 {
		t.Error("cancelled sleep should not be recorded")
	}
}

func TestReal_SleepReturnsOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	if err := (Real{}).Sleep(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("Sleep() error = %v, want context.Canceled", err)
	}
	if time.Since(start) > time.Second {
		t.Error("Sleep() did not return promptly on cancellation")
	}
}

func TestFake_Advance(t *testing.T) {
	t.Parallel()

	ref := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	c := NewFake(ref)
	c.Advance(time.Minute)
	if got := c.Now(); !got.Equal(ref.Add(time.Minute)) {
		t.Errorf("Now() = %v, want %v", got, ref.Add(time.Minute))
	}
}
