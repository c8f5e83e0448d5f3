// SPDX-License-Identifier: MPL-2.0

package request

import (
	"fmt"

	"github.com/pveprov/pveprov/internal/pve"
)

type (
	// Secrets are the application credentials injected into the app's
	// environment file.
	Secrets struct {
		DBPassword string
		JWTSecret  string
	}

	// Request is the resolved configuration of one provisioning run.
	// It is built once by Build and passed by value; phases that need to
	// record something (the allocated id) return an updated copy.
	Request struct {
		ID          pve.ContainerID
		Hostname    string
		Description string

		DiskGB       int
		MemoryMB     int
		SwapMB       int
		Cores        int
		Unprivileged bool
		Features     pve.Features

		Network pve.NetworkSpec

		OS              string
		OSVersion       string
		Arch            pve.Arch
		TemplateStorage string
		Storage         string

		Password          string
		PasswordGenerated bool

		App        string
		InstallDir string
		Secrets    Secrets

		Force       bool
		Interactive bool
		Debug       bool
	}

	// Warning is a non-fatal finding produced while building a request.
	Warning struct {
		Field   string
		Message string
	}
)

// String returns the warning as "field: message".
func (w Warning) String() string {
	return fmt.Sprintf("%s: %s", w.Field, w.Message)
}

// WithID returns a copy of r with the container id set.
func (r Request) WithID(id pve.ContainerID) Request {
	r.ID = id
	return r
}

// WithInteractive returns a copy of r with interactive mode set.
func (r Request) WithInteractive(interactive bool) Request {
	r.Interactive = interactive
	return r
}

// PrivilegeMode returns "unprivileged" or "privileged".
func (r Request) PrivilegeMode() string {
	if r.Unprivileged {
		return "unprivileged"
	}
	return "privileged"
}

// CreateOptions maps the request onto a pct create call for template.
func (r Request) CreateOptions(template pve.TemplateName) pve.CreateOptions {
	return pve.CreateOptions{
		ID:              r.ID,
		Template:        template,
		TemplateStorage: r.TemplateStorage,
		Hostname:        r.Hostname,
		Description:     r.Description,
		Storage:         r.Storage,
		DiskGB:          r.DiskGB,
		MemoryMB:        r.MemoryMB,
		SwapMB:          r.SwapMB,
		Cores:           r.Cores,
		Unprivileged:    r.Unprivileged,
		Features:        r.Features,
		Network:         r.Network,
		Password:        r.Password,
		OSType:          r.OS,
		Arch:            r.Arch,
		OnBoot:          true,
		Tags:            []string{"pveprov", r.App},
	}
}
