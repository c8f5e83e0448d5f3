// SPDX-License-Identifier: MPL-2.0

package request

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/pveprov/pveprov/internal/pve"
)

const minPasswordLength = 5

var hostnamePattern = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(\.[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$`)

type (
	// Input is one source of options. A nil field was not set by that source
	// and falls through to the next layer.
	Input struct {
		ID          *pve.ContainerID
		Hostname    *string
		Description *string

		DiskGB       *int
		MemoryMB     *int
		SwapMB       *int
		Cores        *int
		Unprivileged *bool
		Fuse         *bool

		Bridge   *string
		IP       *string
		Gateway  *string
		VLAN     *int
		MTU      *int
		Firewall *bool

		OS              *string
		OSVersion       *string
		Arch            *pve.Arch
		TemplateStorage *string
		Storage         *string

		Password *string

		App        *string
		InstallDir *string

		Force       *bool
		Interactive *bool
		Debug       *bool
	}

	// Defaults is the bottom layer: built-in values overlaid by the config
	// file and environment.
	Defaults struct {
		Hostname        string
		DiskGB          int
		MemoryMB        int
		SwapMB          int
		Cores           int
		Unprivileged    bool
		Fuse            bool
		Bridge          string
		MTU             int
		OS              string
		OSVersion       string
		Arch            pve.Arch
		TemplateStorage string
		Storage         string
		App             string
		InstallDir      string
		Interactive     bool
	}
)

// Ptr returns a pointer to v, for filling Input literals.
func Ptr[T any](v T) *T { return &v }

// DefaultDefaults returns the built-in defaults. Arch is left to the caller,
// which knows the host architecture.
func DefaultDefaults() Defaults {
	return Defaults{
		DiskGB:          32,
		MemoryMB:        4096,
		SwapMB:          512,
		Cores:           4,
		Bridge:          "vmbr0",
		OS:              "debian",
		OSVersion:       "12",
		Arch:            pve.ArchAMD64,
		TemplateStorage: "local",
		Storage:         "local-lvm",
		App:             "immich",
		Interactive:     true,
	}
}

// Build merges layers (highest priority first) over defaults, validates the
// result and fills generated credentials. It performs no I/O.
//
// A password is generated only when no layer supplied one; the app secrets
// are always generated here, once.
func Build(defaults Defaults, layers ...Input) (Request, []Warning, error) {
	r := Request{
		ID:              pick(layers, func(in Input) *pve.ContainerID { return in.ID }, 0),
		Hostname:        pick(layers, func(in Input) *string { return in.Hostname }, defaults.Hostname),
		Description:     pick(layers, func(in Input) *string { return in.Description }, ""),
		DiskGB:          pick(layers, func(in Input) *int { return in.DiskGB }, defaults.DiskGB),
		MemoryMB:        pick(layers, func(in Input) *int { return in.MemoryMB }, defaults.MemoryMB),
		SwapMB:          pick(layers, func(in Input) *int { return in.SwapMB }, defaults.SwapMB),
		Cores:           pick(layers, func(in Input) *int { return in.Cores }, defaults.Cores),
		Unprivileged:    pick(layers, func(in Input) *bool { return in.Unprivileged }, defaults.Unprivileged),
		OS:              pick(layers, func(in Input) *string { return in.OS }, defaults.OS),
		OSVersion:       pick(layers, func(in Input) *string { return in.OSVersion }, defaults.OSVersion),
		Arch:            pick(layers, func(in Input) *pve.Arch { return in.Arch }, defaults.Arch),
		TemplateStorage: pick(layers, func(in Input) *string { return in.TemplateStorage }, defaults.TemplateStorage),
		Storage:         pick(layers, func(in Input) *string { return in.Storage }, defaults.Storage),
		Password:        pick(layers, func(in Input) *string { return in.Password }, ""),
		App:             pick(layers, func(in Input) *string { return in.App }, defaults.App),
		InstallDir:      pick(layers, func(in Input) *string { return in.InstallDir }, defaults.InstallDir),
		Force:           pick(layers, func(in Input) *bool { return in.Force }, false),
		Interactive:     pick(layers, func(in Input) *bool { return in.Interactive }, defaults.Interactive),
		Debug:           pick(layers, func(in Input) *bool { return in.Debug }, false),
	}
	r.Network = pve.NetworkSpec{
		Name:     pve.DefaultInterface,
		Bridge:   pick(layers, func(in Input) *string { return in.Bridge }, defaults.Bridge),
		IP:       pick(layers, func(in Input) *string { return in.IP }, pve.DHCP),
		Gateway:  pick(layers, func(in Input) *string { return in.Gateway }, ""),
		VLAN:     pick(layers, func(in Input) *int { return in.VLAN }, 0),
		MTU:      pick(layers, func(in Input) *int { return in.MTU }, defaults.MTU),
		Firewall: pick(layers, func(in Input) *bool { return in.Firewall }, false),
	}
	if strings.TrimSpace(r.Network.IP) == "" {
		r.Network.IP = pve.DHCP
	}
	r.Features = pve.Features{
		Nesting: true,
		Keyctl:  r.Unprivileged,
		Fuse:    pick(layers, func(in Input) *bool { return in.Fuse }, defaults.Fuse),
	}
	if r.Hostname == "" {
		r.Hostname = r.App
	}
	if r.InstallDir == "" && r.App != "" {
		r.InstallDir = "/opt/" + r.App
	}

	if err := validate(r); err != nil {
		return Request{}, nil, err
	}

	var warnings []Warning
	if !r.Network.IsDHCP() && r.Network.Gateway == "" {
		warnings = append(warnings, Warning{
			Field:   "gateway",
			Message: fmt.Sprintf("static address %s has no gateway; the container will have no default route", r.Network.IP),
		})
	}

	if r.Password == "" {
		r.Password = GeneratePassword()
		r.PasswordGenerated = true
	}
	r.Secrets = Secrets{
		DBPassword: GenerateSecret(),
		JWTSecret:  GenerateSecret(),
	}

	return r, warnings, nil
}

// pick returns the first non-nil value among layers, or def.
func pick[T any](layers []Input, field func(Input) *T, def T) T {
	for _, in := range layers {
		if v := field(in); v != nil {
			return *v
		}
	}
	return def
}

func validate(r Request) error {
	if !r.ID.IsZero() {
		if err := r.ID.Validate(); err != nil {
			return &ConfigValidationError{Field: "ctid", Reason: err.Error(), Err: err}
		}
	}
	if !hostnamePattern.MatchString(r.Hostname) {
		return &ConfigValidationError{Field: "hostname", Reason: fmt.Sprintf("%q is not a valid DNS name", r.Hostname)}
	}
	checks := []struct {
		field string
		value int
		min   int
	}{
		{"disk-size", r.DiskGB, 1},
		{"memory", r.MemoryMB, 16},
		{"swap", r.SwapMB, 0},
		{"cores", r.Cores, 1},
	}
	for _, c := range checks {
		if c.value < c.min {
			return &ConfigValidationError{Field: c.field, Reason: fmt.Sprintf("must be at least %d, got %d", c.min, c.value)}
		}
	}
	if err := r.Network.Validate(); err != nil {
		return &ConfigValidationError{Field: "network", Reason: err.Error(), Err: err}
	}
	if r.OS == "" || r.OSVersion == "" {
		return &ConfigValidationError{Field: "os", Reason: "template os and version are required"}
	}
	if err := r.Arch.Validate(); err != nil {
		return &ConfigValidationError{Field: "arch", Reason: err.Error(), Err: err}
	}
	if r.Storage == "" || r.TemplateStorage == "" {
		return &ConfigValidationError{Field: "storage", Reason: "rootfs and template storage are required"}
	}
	if r.Password != "" && len(r.Password) < minPasswordLength {
		return &ConfigValidationError{Field: "password", Reason: fmt.Sprintf("must be at least %d characters", minPasswordLength)}
	}
	if r.App == "" {
		return &ConfigValidationError{Field: "app", Reason: "an application is required"}
	}
	if !strings.HasPrefix(r.InstallDir, "/") {
		return &ConfigValidationError{Field: "install-dir", Reason: fmt.Sprintf("%q must be an absolute path", r.InstallDir)}
	}
	return nil
}

// ParseDiskSize parses a disk size in gigabytes: "8", "8G", "8GB" or "1T".
func ParseDiskSize(s string) (int, error) {
	v := strings.ToUpper(strings.TrimSpace(s))
	v = strings.TrimSuffix(v, "B")
	mult := 1
	switch {
	case strings.HasSuffix(v, "T"):
		mult = 1024
		v = strings.TrimSuffix(v, "T")
	case strings.HasSuffix(v, "G"):
		v = strings.TrimSuffix(v, "G")
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, &ConfigValidationError{Field: "disk-size", Reason: fmt.Sprintf("%q is not a size like 8G", s)}
	}
	return n * mult, nil
}
