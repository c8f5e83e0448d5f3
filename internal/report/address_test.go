// SPDX-License-Identifier: MPL-2.0

package report

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

const loopbackOnly = "1: lo    inet 127.0.0.1/8 scope host lo\\       valid_lft forever preferred_lft forever\n"

func dhcpRequest(t *testing.T) request.Request {
	t.Helper()
	r, _, err := request.Build(request.DefaultDefaults(), request.Input{ID: request.Ptr(pve.ContainerID(150))})
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestAddress_Static(t *testing.T) {
	t.Parallel()

	eng := pvetest.New()
	r, _, err := request.Build(request.DefaultDefaults(), request.Input{
		IP:      request.Ptr("192.168.1.50/24"),
		Gateway: request.Ptr("192.168.1.1"),
	})
	if err != nil {
		t.Fatal(err)
	}
	addr, ok := NewResolver(eng).Address(context.Background(), r)
	if !ok || addr != "192.168.1.50" {
		t.Errorf("Address() = %q, %v", addr, ok)
	}
	if eng.Called("exec") {
		t.Error("static address must not poll")
	}
}

func TestAddress_DHCPFoundAfterPolls(t *testing.T) {
	t.Parallel()

	eng := pvetest.New()
	polls := 0
	eng.ExecFunc = func(pve.ContainerID, pve.ExecOptions, string) (*pve.ExecResult, error) {
		polls++
		if polls < 3 {
			return &pve.ExecResult{Output: []byte(loopbackOnly)}, nil
		}
		return &pve.ExecResult{Output: []byte("2: eth0    inet 192.168.1.77/24 brd 192.168.1.255 scope global dynamic eth0\n")}, nil
	}
	clk := clock.NewFake(time.Time{})

	addr, ok := NewResolver(eng, WithClock(clk)).Address(context.Background(), dhcpRequest(t))
	if !ok || addr != "192.168.1.77" {
		t.Fatalf("Address() = %q, %v", addr, ok)
	}
	if len(clk.Sleeps()) != 2 {
		t.Errorf("sleeps = %v", clk.Sleeps())
	}
	calls := eng.Calls()
	if want := []string{"ip", "-4", "-o", "addr", "show", "dev", "eth0"}; !slices.Equal(calls[0].Args, want) {
		t.Errorf("poll command = %v", calls[0].Args)
	}
}

func TestAddress_DHCPTimeoutUsesPlaceholder(t *testing.T) {
	t.Parallel()

	eng := pvetest.New()
	eng.ExecFunc = func(pve.ContainerID, pve.ExecOptions, string) (*pve.ExecResult, error) {
		return &pve.ExecResult{Output: []byte(loopbackOnly)}, nil
	}
	clk := clock.NewFake(time.Time{})

	addr, ok := NewResolver(eng, WithClock(clk)).Address(context.Background(), dhcpRequest(t))
	if ok || addr != UnknownAddress {
		t.Fatalf("Address() = %q, %v, want placeholder", addr, ok)
	}
	polls := 0
	for _, op := range eng.Ops() {
		if op == "exec" {
			polls++
		}
	}
	if polls != 10 {
		t.Errorf("polls = %d, want 10", polls)
	}
	sleeps := clk.Sleeps()
	if len(sleeps) != 9 {
		t.Fatalf("sleeps = %v, want 9", sleeps)
	}
	for _, d := range sleeps {
		if d != 5*time.Second {
			t.Errorf("sleep = %v, want 5s", d)
		}
	}
}

func TestAddress_ExecErrorsAreNotFatal(t *testing.T) {
	t.Parallel()

	eng := pvetest.New()
	eng.Errs["exec"] = errors.New("container not running")

	addr, ok := NewResolver(eng, WithClock(clock.NewFake(time.Time{})), WithPoll(Poll{Attempts: 3, Interval: time.Second})).
		Address(context.Background(), dhcpRequest(t))
	if ok || addr != UnknownAddress {
		t.Errorf("Address() = %q, %v", addr, ok)
	}
}

func TestAddress_Cancelled(t *testing.T) {
	t.Parallel()

	eng := pvetest.New()
	ctx, cancel := context.WithCancel(context.Background())
	eng.ExecFunc = func(pve.ContainerID, pve.ExecOptions, string) (*pve.ExecResult, error) {
		cancel()
		return &pve.ExecResult{}, nil
	}

	addr, ok := NewResolver(eng, WithClock(clock.NewFake(time.Time{}))).Address(ctx, dhcpRequest(t))
	if ok || addr != UnknownAddress {
		t.Errorf("Address() = %q, %v", addr, ok)
	}
	if n := len(eng.Calls()); n != 1 {
		t.Errorf("polls after cancel = %d, want 1", n)
	}
}
