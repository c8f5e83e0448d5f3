// SPDX-License-Identifier: MPL-2.0

package report

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/pveprov/pveprov/internal/clock"
	"github.com/pveprov/pveprov/internal/pve"
	"github.com/pveprov/pveprov/internal/request"
)

// UnknownAddress replaces an address that could not be resolved.
const UnknownAddress = "<unknown-ip>"

// DefaultPoll is the DHCP address polling schedule.
var DefaultPoll = Poll{Attempts: 10, Interval: 5 * time.Second}

type (
	// Poll is a fixed-interval polling schedule.
	Poll struct {
		Attempts int
		Interval time.Duration
	}

	// Option configures a Resolver.
	Option func(*Resolver)

	// Resolver finds the address the container is reachable at.
	Resolver struct {
		engine pve.Engine
		clock  clock.Clock
		poll   Poll
		logger *log.Logger
	}
)

// WithClock sets the clock used between polls.
func WithClock(c clock.Clock) Option {
	return func(r *Resolver) { r.clock = c }
}

// WithPoll overrides DefaultPoll.
func WithPoll(p Poll) Option {
	return func(r *Resolver) { r.poll = p }
}

// WithLogger sets the phase logger.
func WithLogger(l *log.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// NewResolver creates a Resolver over engine.
func NewResolver(engine pve.Engine, opts ...Option) *Resolver {
	r := &Resolver{
		engine: engine,
		clock:  clock.Real{},
		poll:   DefaultPoll,
		logger: log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Address returns the container's IPv4 address and whether it was found.
// Static configurations answer from the request; DHCP is polled inside the
// container. On exhaustion or cancellation it returns UnknownAddress.
func (r *Resolver) Address(ctx context.Context, req request.Request) (string, bool) {
	if addr, ok := req.Network.StaticAddr(); ok {
		return addr, true
	}

	iface := req.Network.Name
	if iface == "" {
		iface = pve.DefaultInterface
	}
	opts := pve.ExecOptions{Command: []string{"ip", "-4", "-o", "addr", "show", "dev", iface}}

	for attempt := range r.poll.Attempts {
		if attempt > 0 {
			if err := r.clock.Sleep(ctx, r.poll.Interval); err != nil {
				break
			}
		}
		res, err := r.engine.Exec(ctx, req.ID, opts)
		if err != nil {
			r.logger.Debug("address poll failed", "attempt", attempt+1, "err", err)
			continue
		}
		if addr, ok := pve.ParseIPv4Addr(string(res.Output)); ok && res.ExitCode == 0 {
			return addr, true
		}
		r.logger.Debug("no address yet", "attempt", attempt+1)
	}

	r.logger.Warn("could not resolve container address", "id", req.ID)
	return UnknownAddress, false
}
