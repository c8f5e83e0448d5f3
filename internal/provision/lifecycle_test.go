// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/pveprov/pveprov/internal/clock"
	"github.com/pveprov/pveprov/internal/pve"
	"github.com/pveprov/pveprov/internal/pve/pvetest"
	"github.com/pveprov/pveprov/internal/request"
)

func TestLifecycle_ReadyAfterBackoff(t *testing.T) {
	t.Parallel()

	eng := pvetest.New()
	eng.Guests[150] = pve.StatusStopped
	probes := 0
	eng.ExecFunc = func(pve.ContainerID, pve.ExecOptions, string) (*pve.ExecResult, error) {
		probes++
		if probes < 4 {
			return &pve.ExecResult{ExitCode: 1}, nil
		}
		return &pve.ExecResult{}, nil
	}
	clk := clock.NewFake(time.Time{})

	err := NewLifecycle(eng, WithClock(clk)).Start(context.Background(), buildRequest(t, request.Input{ID: request.Ptr(pve.ContainerID(150))}))
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}
	if !slices.Equal(clk.Sleeps(), want) {
		t.Errorf("sleeps = %v, want %v", clk.Sleeps(), want)
	}
	scripts := eng.ExecScripts()
	if len(scripts) != 4 || scripts[0] != routeProbe {
		t.Errorf("probe scripts = %q", scripts)
	}
}

func TestLifecycle_StaticWithoutGatewayProbesAddress(t *testing.T) {
	t.Parallel()

	eng := pvetest.New()
	req := buildRequest(t, request.Input{ID: request.Ptr(pve.ContainerID(150)), IP: request.Ptr("10.0.0.5/24")})
	if err := NewLifecycle(eng, WithClock(clock.NewFake(time.Time{}))).Start(context.Background(), req); err != nil {
		t.Fatal(err)
	}
	if scripts := eng.ExecScripts(); len(scripts) != 1 || scripts[0] != addrProbe {
		t.Errorf("probe scripts = %q", scripts)
	}
}

func TestLifecycle_StartFailure(t *testing.T) {
	t.Parallel()

	eng := pvetest.New()
	eng.Errs["start"] = errors.New("startup for container '150' failed")
	err := NewLifecycle(eng).Start(context.Background(), buildRequest(t, request.Input{ID: request.Ptr(pve.ContainerID(150))}))

	var serr *StartError
	if !errors.As(err, &serr) || serr.NotReady {
		t.Fatalf("Start() error = %v, want start failure", err)
	}
	if eng.Called("exec") {
		t.Error("no probe after a failed start")
	}
}

func TestLifecycle_NotReadyTimeout(t *testing.T) {
	t.Parallel()

	eng := pvetest.New()
	eng.StartedStatus = pve.StatusStopped
	clk := clock.NewFake(time.Time{})

	err := NewLifecycle(eng, WithClock(clk), WithBootTimeout(30*time.Second)).
		Start(context.Background(), buildRequest(t, request.Input{ID: request.Ptr(pve.ContainerID(150))}))

	var serr *StartError
	if !errors.As(err, &serr) || !serr.NotReady {
		t.Fatalf("Start() error = %v, want NotReady", err)
	}
	if !errors.Is(err, ErrStart) {
		t.Error("errors.Is(err, ErrStart) = false")
	}
	var total time.Duration
	for _, d := range clk.Sleeps() {
		if d > 10*time.Second {
			t.Errorf("sleep %v exceeds the backoff cap", d)
		}
		total += d
	}
	if total != 30*time.Second {
		t.Errorf("waited %v, want exactly the boot timeout", total)
	}
}

func TestLifecycle_Cancelled(t *testing.T) {
	t.Parallel()

	eng := pvetest.New()
	eng.StartedStatus = pve.StatusStopped
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewLifecycle(eng, WithClock(clock.NewFake(time.Time{}))).
		Start(ctx, buildRequest(t, request.Input{ID: request.Ptr(pve.ContainerID(150))}))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Start() error = %v, want context.Canceled", err)
	}
}
