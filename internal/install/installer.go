// SPDX-License-Identifier: MPL-2.0

package install

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/pveprov/pveprov/internal/clock"
	"github.com/pveprov/pveprov/internal/pve"
	"github.com/pveprov/pveprov/internal/request"
)

const outputTailLines = 20

// ErrInstallStep is the sentinel error wrapped by InstallStepError.
var ErrInstallStep = errors.New("install step failed")

type (
	// InstallStepError is returned when a step exits non-zero or cannot be
	// run at all. Later steps are not attempted.
	InstallStepError struct {
		Step     string
		Command  string
		ExitCode int
		// Output holds the last lines of the step's combined output.
		Output string
		Err    error
	}

	// Outcome summarizes an installer run.
	Outcome struct {
		RunID    string
		Ran      []string
		Skipped  []string
		Warnings []string
	}

	// Option configures an Installer.
	Option func(*Installer)

	// Installer runs the install steps inside a container.
	Installer struct {
		engine pve.Engine
		clock  clock.Clock
		logger *log.Logger
		newID  func() string
	}
)

// Error implements the error interface.
func (e *InstallStepError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("install step %s: %v", e.Step, e.Err)
	}
	return fmt.Sprintf("install step %s exited with status %d", e.Step, e.ExitCode)
}

// Unwrap returns ErrInstallStep and, when set, the underlying cause.
func (e *InstallStepError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrInstallStep}
	}
	return []error{ErrInstallStep, e.Err}
}

// WithClock sets the clock used for marker timestamps.
func WithClock(c clock.Clock) Option {
	return func(i *Installer) { i.clock = c }
}

// WithLogger sets the phase logger.
func WithLogger(l *log.Logger) Option {
	return func(i *Installer) { i.logger = l }
}

// New creates an Installer over engine.
func New(engine pve.Engine, opts ...Option) *Installer {
	i := &Installer{
		engine: engine,
		clock:  clock.Real{},
		logger: log.New(io.Discard),
		newID:  func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Run executes the steps for app in order, stopping at the first failure.
//
// A step recorded as completed by an earlier run of the same app is skipped
// when its check passes, or when it has no check. Once a step runs, every
// later step runs too, since it may depend on what the rerun replaced. The
// marker is rewritten after every successful step; a failed marker write
// only warns.
func (i *Installer) Run(ctx context.Context, req request.Request, app App) (Outcome, error) {
	steps, err := Steps(app, req)
	if err != nil {
		return Outcome{}, err
	}

	out := Outcome{RunID: i.newID()}

	prev, err := ReadMarker(ctx, i.engine, req.ID)
	if err != nil {
		out.Warnings = append(out.Warnings, fmt.Sprintf("%v; running every step", err))
		prev = Marker{}
	}
	if prev.App != "" && prev.App != app.Name {
		out.Warnings = append(out.Warnings,
			fmt.Sprintf("container was set up for %s, not %s; running every step", prev.App, app.Name))
		prev = Marker{}
	}

	marker := Marker{RunID: out.RunID, App: app.Name, Completed: slices.Clone(prev.Completed), LastCompleted: prev.LastCompleted}

	resumed := true
	for _, step := range steps {
		if resumed && prev.Done(step.Name) {
			skip, err := i.applied(ctx, req.ID, step)
			if err != nil {
				return out, err
			}
			if skip {
				i.logger.Info("skipping step", "step", step.Name)
				out.Skipped = append(out.Skipped, step.Name)
				continue
			}
		}

		resumed = false
		i.logger.Info("running step", "step", step.Name)
		if err := i.exec(ctx, req.ID, step); err != nil {
			return out, err
		}
		out.Ran = append(out.Ran, step.Name)

		marker.complete(step.Name, i.clock.Now())
		if err := WriteMarker(ctx, i.engine, req.ID, marker); err != nil {
			i.logger.Warn("install marker not saved", "err", err)
			out.Warnings = append(out.Warnings, err.Error())
		}
	}
	return out, nil
}

// applied reports whether a recorded step can be skipped.
func (i *Installer) applied(ctx context.Context, id pve.ContainerID, step Step) (bool, error) {
	if step.Check == "" {
		return true, nil
	}
	res, err := i.engine.Exec(ctx, id, bashOptions(step.Check))
	if err != nil {
		return false, &InstallStepError{Step: step.Name, Command: step.Check, ExitCode: -1, Err: err}
	}
	return res.ExitCode == 0, nil
}

func (i *Installer) exec(ctx context.Context, id pve.ContainerID, step Step) error {
	res, err := i.engine.Exec(ctx, id, bashOptions(step.Run))
	if err != nil {
		return &InstallStepError{Step: step.Name, Command: step.Run, ExitCode: -1, Err: err}
	}
	if res.ExitCode != 0 {
		return &InstallStepError{
			Step:     step.Name,
			Command:  step.Run,
			ExitCode: res.ExitCode,
			Output:   tail(string(res.Output), outputTailLines),
		}
	}
	i.logger.Debug("step output", "step", step.Name, "output", tail(string(res.Output), outputTailLines))
	return nil
}

// bashOptions runs script with bash -c and a non-interactive apt frontend.
func bashOptions(script string) pve.ExecOptions {
	return pve.ExecOptions{
		Command: []string{"bash", "-c", script},
		Env:     map[string]string{"DEBIAN_FRONTEND": "noninteractive"},
	}
}

// tail returns the last n lines of s.
func tail(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
