// SPDX-License-Identifier: MPL-2.0

package preflight

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/pveprov/pveprov/internal/prompt"
	"github.com/pveprov/pveprov/internal/pve"
	"github.com/pveprov/pveprov/internal/pve/pvetest"
	"github.com/pveprov/pveprov/internal/request"
)

// confirmPrompter answers every Confirm with answer and counts the calls.
type confirmPrompter struct {
	answer bool
	err    error
	calls  int
}

func (c *confirmPrompter) Select(context.Context, string, []prompt.Option) (string, error) {
	return "", nil
}

func (c *confirmPrompter) Input(context.Context, string, string, func(string) error) (string, error) {
	return "", nil
}

func (c *confirmPrompter) Password(context.Context, string, string) (string, error) {
	return "", nil
}

func (c *confirmPrompter) Confirm(context.Context, string, string, bool) (bool, error) {
	c.calls++
	return c.answer, c.err
}

func testRequest(t *testing.T, in request.Input) request.Request {
	t.Helper()
	r, _, err := request.Build(request.DefaultDefaults(), in)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return r
}

func tty() bool   { return true }
func noTTY() bool { return false }

func TestCheck_MissingTools(t *testing.T) {
	t.Parallel()

	eng := pvetest.New()
	eng.Tools = map[pve.Tool]bool{pve.ToolQm: true}
	v := New(eng, WithHostArch(pve.ArchAMD64), WithTerminalCheck(noTTY))

	_, err := v.Check(context.Background(), testRequest(t, request.Input{}))
	var envErr *EnvironmentError
	if !errors.As(err, &envErr) {
		t.Fatalf("expected *EnvironmentError, got %v", err)
	}
	if !slices.Equal(envErr.Missing, []pve.Tool{pve.ToolPct, pve.ToolPveam}) {
		t.Errorf("Missing = %v", envErr.Missing)
	}
	if !errors.Is(err, ErrEnvironment) {
		t.Error("errors.Is(err, ErrEnvironment) = false")
	}
}

func TestCheck_QmOptional(t *testing.T) {
	t.Parallel()

	eng := pvetest.New()
	delete(eng.Tools, pve.ToolQm)
	v := New(eng, WithHostArch(pve.ArchAMD64), WithTerminalCheck(noTTY))

	report, err := v.Check(context.Background(), testRequest(t, request.Input{Interactive: request.Ptr(false)}))
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if len(report.Warnings) != 1 || !strings.Contains(report.Warnings[0], "qm") {
		t.Errorf("Warnings = %v", report.Warnings)
	}
}

func TestCheck_InteractiveDowngrade(t *testing.T) {
	t.Parallel()

	v := New(pvetest.New(), WithHostArch(pve.ArchAMD64), WithTerminalCheck(noTTY), WithPrompter(&confirmPrompter{}))
	report, err := v.Check(context.Background(), testRequest(t, request.Input{}))
	if err != nil {
		t.Fatalf("Check() error = %v, downgrade must not fail", err)
	}
	if report.Interactive {
		t.Error("Interactive should be downgraded without a terminal")
	}
	if len(report.Warnings) != 1 {
		t.Errorf("Warnings = %v, want one downgrade warning", report.Warnings)
	}
}

func TestCheck_InteractiveKeptWithTerminal(t *testing.T) {
	t.Parallel()

	v := New(pvetest.New(), WithHostArch(pve.ArchAMD64), WithTerminalCheck(tty), WithPrompter(&confirmPrompter{}))
	report, err := v.Check(context.Background(), testRequest(t, request.Input{}))
	if err != nil || !report.Interactive || len(report.Warnings) != 0 {
		t.Fatalf("Check() = %+v, %v", report, err)
	}
}

func TestCheck_ArchitectureMismatch(t *testing.T) {
	t.Parallel()

	arm := request.Input{Arch: request.Ptr(pve.ArchARM64)}

	tests := []struct {
		name        string
		in          request.Input
		terminal    bool
		answer      bool
		wantErr     bool
		wantPrompts int
	}{
		{"non-interactive fails", request.Input{Arch: arm.Arch, Interactive: request.Ptr(false)}, true, false, true, 0},
		{"force warns", request.Input{Arch: arm.Arch, Interactive: request.Ptr(false), Force: request.Ptr(true)}, true, false, false, 0},
		{"interactive accepted", arm, true, true, false, 1},
		{"interactive declined", arm, true, false, true, 1},
		{"downgraded then fails", arm, false, true, true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := &confirmPrompter{answer: tt.answer}
			check := noTTY
			if tt.terminal {
				check = tty
			}
			v := New(pvetest.New(), WithHostArch(pve.ArchAMD64), WithTerminalCheck(check), WithPrompter(p))

			report, err := v.Check(context.Background(), testRequest(t, tt.in))
			if tt.wantErr {
				if !errors.Is(err, ErrArchitectureMismatch) {
					t.Fatalf("Check() error = %v, want ErrArchitectureMismatch", err)
				}
			} else {
				if err != nil {
					t.Fatalf("Check() error = %v", err)
				}
				if len(report.Warnings) == 0 {
					t.Error("accepted mismatch should leave a warning")
				}
			}
			if p.calls != tt.wantPrompts {
				t.Errorf("prompts = %d, want %d", p.calls, tt.wantPrompts)
			}
		})
	}
}

func TestCheck_ArchitecturePromptCancelled(t *testing.T) {
	t.Parallel()

	p := &confirmPrompter{err: prompt.ErrCancelled}
	v := New(pvetest.New(), WithHostArch(pve.ArchAMD64), WithTerminalCheck(tty), WithPrompter(p))
	_, err := v.Check(context.Background(), testRequest(t, request.Input{Arch: request.Ptr(pve.ArchARM64)}))
	if !errors.Is(err, prompt.ErrCancelled) {
		t.Fatalf("Check() error = %v, want ErrCancelled", err)
	}
}
