// SPDX-License-Identifier: MPL-2.0

package preflight

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/pveprov/pveprov/internal/prompt"
	"github.com/pveprov/pveprov/internal/pve"
	"github.com/pveprov/pveprov/internal/request"

	"golang.org/x/term"
)

var (
	// ErrEnvironment is the sentinel error wrapped by EnvironmentError.
	ErrEnvironment = errors.New("host environment not supported")
	// ErrArchitectureMismatch is the sentinel error wrapped by ArchitectureMismatchError.
	ErrArchitectureMismatch = errors.New("architecture mismatch")

	requiredTools = []pve.Tool{pve.ToolPct, pve.ToolPveam}
)

type (
	// Report is the outcome of a successful check.
	Report struct {
		// Interactive is the effective mode: the requested mode, downgraded
		// when no terminal is attached.
		Interactive bool
		HostArch    pve.Arch
		Warnings    []string
	}

	// EnvironmentError is returned when required host tools are missing.
	EnvironmentError struct {
		Missing []pve.Tool
	}

	// ArchitectureMismatchError is returned when the host cannot run the
	// requested template architecture and the mismatch was not accepted.
	ArchitectureMismatchError struct {
		Host     pve.Arch
		Template pve.Arch
	}

	// Option configures a Validator.
	Option func(*Validator)

	// Validator runs the preflight checks.
	Validator struct {
		engine     pve.Engine
		prompter   prompt.Prompter
		hostArch   pve.Arch
		isTerminal func() bool
	}
)

// Error implements the error interface.
func (e *EnvironmentError) Error() string {
	names := make([]string, len(e.Missing))
	for i, t := range e.Missing {
		names[i] = t.String()
	}
	return fmt.Sprintf("required Proxmox tools not found: %s", strings.Join(names, ", "))
}

// Unwrap returns ErrEnvironment for errors.Is() compatibility.
func (e *EnvironmentError) Unwrap() error { return ErrEnvironment }

// Error implements the error interface.
func (e *ArchitectureMismatchError) Error() string {
	return fmt.Sprintf("host architecture %s does not match template architecture %s", e.Host, e.Template)
}

// Unwrap returns ErrArchitectureMismatch for errors.Is() compatibility.
func (e *ArchitectureMismatchError) Unwrap() error { return ErrArchitectureMismatch }

// WithPrompter sets the prompter used to confirm an architecture mismatch.
func WithPrompter(p prompt.Prompter) Option {
	return func(v *Validator) { v.prompter = p }
}

// WithHostArch overrides the detected host architecture.
func WithHostArch(a pve.Arch) Option {
	return func(v *Validator) { v.hostArch = a }
}

// WithTerminalCheck overrides the stdin/stdout terminal detection.
func WithTerminalCheck(fn func() bool) Option {
	return func(v *Validator) { v.isTerminal = fn }
}

// New creates a Validator for engine. By default the host architecture comes
// from runtime.GOARCH and terminal detection uses golang.org/x/term.
func New(engine pve.Engine, opts ...Option) *Validator {
	v := &Validator{
		engine:     engine,
		hostArch:   pve.ArchFromGOARCH(runtime.GOARCH),
		isTerminal: StdioIsTerminal,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Check verifies the host against req. It never mutates anything.
//
// The terminal check runs before the architecture check so that a
// mismatch is only prompted for when prompting is actually possible.
func (v *Validator) Check(ctx context.Context, req request.Request) (Report, error) {
	report := Report{Interactive: req.Interactive, HostArch: v.hostArch}

	var missing []pve.Tool
	for _, tool := range requiredTools {
		if !v.engine.Available(tool) {
			missing = append(missing, tool)
		}
	}
	if len(missing) > 0 {
		return report, &EnvironmentError{Missing: missing}
	}
	if !v.engine.Available(pve.ToolQm) {
		report.Warnings = append(report.Warnings, "qm not found; id allocation only considers containers")
	}

	if report.Interactive && (v.prompter == nil || !v.isTerminal()) {
		report.Interactive = false
		report.Warnings = append(report.Warnings, "no terminal attached; continuing non-interactively")
	}

	if req.Arch != v.hostArch {
		mismatch := &ArchitectureMismatchError{Host: v.hostArch, Template: req.Arch}
		switch {
		case req.Force:
			report.Warnings = append(report.Warnings, mismatch.Error()+"; continuing because of --force")
		case report.Interactive:
			ok, err := v.prompter.Confirm(ctx, "Architecture mismatch",
				mismatch.Error()+". The container will probably not start. Continue anyway?", false)
			if err != nil {
				return report, err
			}
			if !ok {
				return report, mismatch
			}
			report.Warnings = append(report.Warnings, mismatch.Error()+"; continuing after confirmation")
		default:
			return report, mismatch
		}
	}

	return report, nil
}

// StdioIsTerminal reports whether both stdin and stdout are terminals.
func StdioIsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}
