// SPDX-License-Identifier: MPL-2.0

package pve

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const (
	// MinContainerID is the lowest id Proxmox accepts for guests and the floor
	// of automatic allocation.
	MinContainerID ContainerID = 100
	// MaxContainerID is the highest id Proxmox accepts for guests.
	MaxContainerID ContainerID = 999999999

	// StatusMissing means no container with the id exists.
	StatusMissing Status = "missing"
	// StatusStopped is reported by pct status for a stopped container.
	StatusStopped Status = "stopped"
	// StatusRunning is reported by pct status for a running container.
	StatusRunning Status = "running"

	// ArchAMD64 is the Proxmox name for x86_64 templates.
	ArchAMD64 Arch = "amd64"
	// ArchARM64 is the Proxmox name for aarch64 templates.
	ArchARM64 Arch = "arm64"
	// ArchI386 is the Proxmox name for 32-bit x86 templates.
	ArchI386 Arch = "i386"
)

var (
	// ErrInvalidContainerID is the sentinel error wrapped by InvalidContainerIDError.
	ErrInvalidContainerID = errors.New("invalid container id")
	// ErrInvalidArch is returned when an Arch is not one Proxmox supports.
	ErrInvalidArch = errors.New("invalid architecture")
	// ErrInvalidCreateOptions is the sentinel error wrapped by InvalidCreateOptionsError.
	ErrInvalidCreateOptions = errors.New("invalid create options")
)

type (
	// ContainerID is a Proxmox guest id. The zero value means "not assigned".
	ContainerID int

	// InvalidContainerIDError is returned when a ContainerID is outside the
	// range Proxmox accepts.
	InvalidContainerIDError struct {
		Value ContainerID
	}

	// Status is the run state of a container as reported by pct status.
	Status string

	// Arch is a Proxmox template architecture.
	Arch string

	// InvalidArchError is returned when an Arch is not recognized.
	InvalidArchError struct {
		Value Arch
	}

	// Features are the LXC feature flags passed via --features.
	Features struct {
		Nesting bool
		Keyctl  bool
		Fuse    bool
	}

	// CreateOptions carries the full parameter set of a pct create call.
	CreateOptions struct {
		ID              ContainerID
		Template        TemplateName
		TemplateStorage string
		Hostname        string
		Description     string
		Storage         string
		DiskGB          int
		MemoryMB        int
		SwapMB          int
		Cores           int
		Unprivileged    bool
		Features        Features
		Network         NetworkSpec
		Password        string
		OSType          string
		Arch            Arch
		OnBoot          bool
		Tags            []string
	}

	// InvalidCreateOptionsError is returned when CreateOptions has one or more
	// invalid fields. It wraps the individual field errors for inspection.
	InvalidCreateOptionsError struct {
		FieldErrs []error
	}

	// ExecOptions configures a command run inside a container.
	ExecOptions struct {
		// Command is the argv to run inside the container.
		Command []string
		// Env is passed through env(1) in front of Command.
		Env map[string]string
		// Stdin feeds the command. Nil means no input.
		Stdin io.Reader
		// Stdout and Stderr receive live output. When both are nil the
		// combined output is captured into ExecResult.Output instead.
		Stdout io.Writer
		Stderr io.Writer
	}

	// ExecResult is the outcome of a command run inside a container.
	// A non-zero exit status is reported in ExitCode, not as an error.
	ExecResult struct {
		ExitCode int
		Output   []byte
	}
)

// String returns the decimal form of the id.
func (id ContainerID) String() string { return strconv.Itoa(int(id)) }

// IsZero reports whether the id is unassigned.
func (id ContainerID) IsZero() bool { return id == 0 }

// Validate returns an error if the id is outside [MinContainerID, MaxContainerID].
func (id ContainerID) Validate() error {
	if id < MinContainerID || id > MaxContainerID {
		return &InvalidContainerIDError{Value: id}
	}
	return nil
}

// Error implements the error interface.
func (e *InvalidContainerIDError) Error() string {
	return fmt.Sprintf("invalid container id %d: must be between %d and %d", e.Value, MinContainerID, MaxContainerID)
}

// Unwrap returns ErrInvalidContainerID for errors.Is() compatibility.
func (e *InvalidContainerIDError) Unwrap() error { return ErrInvalidContainerID }

// ParseContainerID parses a decimal container id and validates its range.
func ParseContainerID(s string) (ContainerID, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w %q: %w", ErrInvalidContainerID, s, err)
	}
	id := ContainerID(n)
	if err := id.Validate(); err != nil {
		return 0, err
	}
	return id, nil
}

// String returns the architecture name.
func (a Arch) String() string { return string(a) }

// Validate returns an error if the architecture is not one Proxmox templates use.
func (a Arch) Validate() error {
	switch a {
	case ArchAMD64, ArchARM64, ArchI386:
		return nil
	default:
		return &InvalidArchError{Value: a}
	}
}

// Error implements the error interface.
func (e *InvalidArchError) Error() string {
	return fmt.Sprintf("invalid architecture %q (valid: amd64, arm64, i386)", e.Value)
}

// Unwrap returns ErrInvalidArch for errors.Is() compatibility.
func (e *InvalidArchError) Unwrap() error { return ErrInvalidArch }

// ArchFromGOARCH maps a Go architecture name to the Proxmox template name.
// Unknown values are returned unchanged so that mismatches stay visible.
func ArchFromGOARCH(goarch string) Arch {
	switch goarch {
	case "amd64":
		return ArchAMD64
	case "arm64":
		return ArchARM64
	case "386":
		return ArchI386
	default:
		return Arch(goarch)
	}
}

// String renders the flags in pct --features syntax ("nesting=1,keyctl=1").
// An empty string means no feature is enabled.
func (f Features) String() string {
	var parts []string
	if f.Nesting {
		parts = append(parts, "nesting=1")
	}
	if f.Keyctl {
		parts = append(parts, "keyctl=1")
	}
	if f.Fuse {
		parts = append(parts, "fuse=1")
	}
	return strings.Join(parts, ",")
}

// Error implements the error interface.
func (e *InvalidCreateOptionsError) Error() string {
	return fmt.Sprintf("invalid create options: %v", errors.Join(e.FieldErrs...))
}

// Unwrap returns ErrInvalidCreateOptions for errors.Is() compatibility.
func (e *InvalidCreateOptionsError) Unwrap() error { return ErrInvalidCreateOptions }

// Validate checks the fields a pct create call cannot do without.
func (o CreateOptions) Validate() error {
	var errs []error
	if err := o.ID.Validate(); err != nil {
		errs = append(errs, err)
	}
	if o.Template == "" {
		errs = append(errs, errors.New("template is required"))
	}
	if o.TemplateStorage == "" {
		errs = append(errs, errors.New("template storage is required"))
	}
	if o.Storage == "" {
		errs = append(errs, errors.New("rootfs storage is required"))
	}
	if o.DiskGB <= 0 {
		errs = append(errs, fmt.Errorf("disk size must be positive, got %d", o.DiskGB))
	}
	if o.MemoryMB <= 0 {
		errs = append(errs, fmt.Errorf("memory must be positive, got %d", o.MemoryMB))
	}
	if o.SwapMB < 0 {
		errs = append(errs, fmt.Errorf("swap must not be negative, got %d", o.SwapMB))
	}
	if o.Cores <= 0 {
		errs = append(errs, fmt.Errorf("cores must be positive, got %d", o.Cores))
	}
	if o.Arch != "" {
		if err := o.Arch.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := o.Network.Validate(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return &InvalidCreateOptionsError{FieldErrs: errs}
	}
	return nil
}
