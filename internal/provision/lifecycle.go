// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pveprov/pveprov/internal/pve"
	"github.com/pveprov/pveprov/internal/request"
)

const (
	// DefaultBootTimeout bounds the wait for a started container to become ready.
	DefaultBootTimeout = 2 * time.Minute

	// routeProbe succeeds once the network stack has a default route.
	routeProbe = "test -e /run/systemd/system || true; ip -4 route show default | grep -q ."
	// addrProbe succeeds once eth0 carries an IPv4 address; used for static
	// configurations without a gateway, which never get a default route.
	addrProbe = "ip -4 -o addr show dev eth0 | grep -q inet"
)

var (
	// DefaultProbeBackoff spaces readiness probes: 1s, 2s, 4s, 8s, then 10s.
	DefaultProbeBackoff = pve.Backoff{Base: time.Second, Factor: 2, Max: 10 * time.Second}

	errNotReady = errors.New("readiness probe did not pass")
)

// Lifecycle starts a container and waits until it is ready for commands.
type Lifecycle struct {
	engine pve.Engine
	settings
}

// NewLifecycle creates a Lifecycle over engine.
func NewLifecycle(engine pve.Engine, opts ...Option) *Lifecycle {
	return &Lifecycle{engine: engine, settings: newSettings(opts)}
}

// Start runs pct start and then probes the container until it reports
// running and its network is up, backing off between probes. The wait is
// bounded by the boot timeout and by ctx.
//
// A failed start is a *StartError; a container that never became ready is a
// *StartError with NotReady set.
func (l *Lifecycle) Start(ctx context.Context, req request.Request) error {
	l.logger.Info("starting container", "id", req.ID)
	if err := l.engine.Start(ctx, req.ID); err != nil {
		return &StartError{ID: req.ID, Err: err}
	}

	script := routeProbe
	if !req.Network.IsDHCP() && req.Network.Gateway == "" {
		script = addrProbe
	}

	deadline := l.clock.Now().Add(l.bootTimeout)
	var lastErr error
	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			wait := l.probe.Delay(attempt)
			if remaining := deadline.Sub(l.clock.Now()); wait > remaining {
				wait = remaining
			}
			if err := l.clock.Sleep(ctx, wait); err != nil {
				return &StartError{ID: req.ID, NotReady: true, Err: err}
			}
		}

		ready, err := l.probeOnce(ctx, req.ID, script)
		if ready {
			l.logger.Info("container ready", "id", req.ID, "probes", attempt+1)
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return &StartError{ID: req.ID, NotReady: true, Err: ctxErr}
		}
		if err != nil {
			lastErr = err
		}
		l.logger.Debug("container not ready yet", "id", req.ID, "attempt", attempt+1, "err", err)

		if !l.clock.Now().Before(deadline) {
			if lastErr == nil {
				lastErr = errNotReady
			}
			return &StartError{
				ID:       req.ID,
				NotReady: true,
				Err:      fmt.Errorf("gave up after %s: %w", l.bootTimeout, lastErr),
			}
		}
	}
}

// probeOnce reports whether the container is running and script exits 0
// inside it.
func (l *Lifecycle) probeOnce(ctx context.Context, id pve.ContainerID, script string) (bool, error) {
	status, err := l.engine.Status(ctx, id)
	if err != nil {
		return false, err
	}
	if status != pve.StatusRunning {
		return false, fmt.Errorf("container is %s", status)
	}
	res, err := l.engine.Exec(ctx, id, pve.ExecOptions{Command: []string{"/bin/sh", "-c", script}})
	if err != nil {
		return false, err
	}
	return res.ExitCode == 0, nil
}
