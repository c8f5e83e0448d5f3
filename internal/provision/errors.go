// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"errors"
	"fmt"

	"github.com/pveprov/pveprov/internal/pve"
)

var (
	// ErrConflict is the sentinel error wrapped by ConflictError.
	ErrConflict = errors.New("container id already in use")
	// ErrTemplateFetch is the sentinel error wrapped by TemplateFetchError.
	ErrTemplateFetch = errors.New("template fetch failed")
	// ErrProvision is the sentinel error wrapped by ProvisionError.
	ErrProvision = errors.New("container provisioning failed")
	// ErrStart is the sentinel error wrapped by StartError.
	ErrStart = errors.New("container start failed")
	// ErrNoTemplate is returned inside a TemplateFetchError when no local or
	// downloadable template matches.
	ErrNoTemplate = errors.New("no matching template")
)

type (
	// ConflictError is returned when the requested id exists and replacing
	// it was neither forced nor confirmed.
	ConflictError struct {
		ID     pve.ContainerID
		Status pve.Status
	}

	// TemplateFetchError is returned when the OS template cannot be found
	// or downloaded.
	TemplateFetchError struct {
		OS      string
		Version string
		Arch    pve.Arch
		Err     error
	}

	// ProvisionError is returned when pct create, or the destroy of a
	// conflicting container, fails. It is never retried.
	ProvisionError struct {
		ID  pve.ContainerID
		Op  string
		Err error
	}

	// StartError is returned when a container fails to start, or started but
	// never became ready (NotReady).
	StartError struct {
		ID       pve.ContainerID
		NotReady bool
		Err      error
	}
)

// Error implements the error interface.
func (e *ConflictError) Error() string {
	return fmt.Sprintf("container %s already exists (%s)", e.ID, e.Status)
}

// Unwrap returns ErrConflict for errors.Is() compatibility.
func (e *ConflictError) Unwrap() error { return ErrConflict }

// Error implements the error interface.
func (e *TemplateFetchError) Error() string {
	return fmt.Sprintf("template %s-%s (%s): %v", e.OS, e.Version, e.Arch, e.Err)
}

// Unwrap returns ErrTemplateFetch and the underlying cause.
func (e *TemplateFetchError) Unwrap() []error { return []error{ErrTemplateFetch, e.Err} }

// Error implements the error interface.
func (e *ProvisionError) Error() string {
	return fmt.Sprintf("%s container %s: %v", e.Op, e.ID, e.Err)
}

// Unwrap returns ErrProvision and the underlying cause.
func (e *ProvisionError) Unwrap() []error { return []error{ErrProvision, e.Err} }

// Error implements the error interface.
func (e *StartError) Error() string {
	if e.NotReady {
		return fmt.Sprintf("container %s started but did not become ready: %v", e.ID, e.Err)
	}
	return fmt.Sprintf("start container %s: %v", e.ID, e.Err)
}

// Unwrap returns ErrStart and the underlying cause.
func (e *StartError) Unwrap() []error { return []error{ErrStart, e.Err} }
