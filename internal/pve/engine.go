// SPDX-License-Identifier: MPL-2.0

package pve

import (
	"context"
	"errors"
	"fmt"
)

const (
	// ToolPct manages containers.
	ToolPct Tool = "pct"
	// ToolPveam manages container templates.
	ToolPveam Tool = "pveam"
	// ToolQm manages virtual machines; only used to avoid id collisions.
	ToolQm Tool = "qm"
)

// ErrToolNotAvailable is the sentinel error wrapped by ToolNotAvailableError.
var ErrToolNotAvailable = errors.New("host tool not available")

type (
	// Tool names a Proxmox host command.
	Tool string

	// Engine defines the container-management operations the workflow uses.
	Engine interface {
		// Available reports whether the host tool was found.
		Available(tool Tool) bool

		// ListIDs returns every guest id in use on this node, containers and VMs.
		ListIDs(ctx context.Context) ([]ContainerID, error)
		// Status returns the container state, StatusMissing if it does not exist.
		Status(ctx context.Context, id ContainerID) (Status, error)

		// Create creates a stopped container.
		Create(ctx context.Context, opts CreateOptions) error
		// Start starts a container.
		Start(ctx context.Context, id ContainerID) error
		// Stop stops a running container immediately.
		Stop(ctx context.Context, id ContainerID) error
		// Destroy removes a stopped container and its volumes.
		Destroy(ctx context.Context, id ContainerID) error
		// Exec runs a command inside a running container.
		Exec(ctx context.Context, id ContainerID, opts ExecOptions) (*ExecResult, error)

		// LocalTemplates lists templates already stored on storage.
		LocalTemplates(ctx context.Context, storage string) ([]TemplateName, error)
		// AvailableTemplates lists downloadable system templates.
		AvailableTemplates(ctx context.Context) ([]TemplateName, error)
		// UpdateTemplateIndex refreshes the downloadable template index.
		UpdateTemplateIndex(ctx context.Context) error
		// DownloadTemplate fetches a template onto storage.
		DownloadTemplate(ctx context.Context, storage string, name TemplateName) error
	}

	// ToolNotAvailableError is returned when a required host tool is missing.
	ToolNotAvailableError struct {
		Tool Tool
	}
)

// String returns the tool name.
func (t Tool) String() string { return string(t) }

// Error implements the error interface.
func (e *ToolNotAvailableError) Error() string {
	return fmt.Sprintf("%s is not installed or not on PATH", e.Tool)
}

// Unwrap returns ErrToolNotAvailable for errors.Is() compatibility.
func (e *ToolNotAvailableError) Unwrap() error { return ErrToolNotAvailable }
