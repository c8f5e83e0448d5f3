// SPDX-License-Identifier: MPL-2.0

package prompt

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"strconv"
	"strings"

	"github.com/pveprov/pveprov/internal/pve"
	"github.com/pveprov/pveprov/internal/request"
)

const (
	modeDefault  = "default"
	modeAdvanced = "advanced"
)

// Collect runs the interactive settings flow and returns the answers as an
// input layer. Fields already set in flags are never asked. Choosing
// "Default settings" returns an empty layer.
//
// Cancellation is reported as a *request.ConfigValidationError wrapping
// ErrCancelled.
func Collect(ctx context.Context, p Prompter, d request.Defaults, flags request.Input) (request.Input, error) {
	var in request.Input

	mode, err := p.Select(ctx, "Settings", []Option{
		{Label: "Default settings", Value: modeDefault},
		{Label: "Advanced settings", Value: modeAdvanced},
	})
	if err != nil {
		return request.Input{}, cancelled(err)
	}
	if mode != modeAdvanced {
		return in, nil
	}

	steps := []func() error{
		func() error {
			if flags.ID != nil {
				return nil
			}
			v, err := p.Input(ctx, "Container ID", "empty = next free id", validateOptional(validateContainerID))
			if err != nil || v == "" {
				return err
			}
			id, _ := pve.ParseContainerID(v) //nolint:errcheck // validated above
			in.ID = &id
			return nil
		},
		askString(ctx, p, flags.Hostname, &in.Hostname, "Hostname", orDefault(d.Hostname, d.App), validateHostname),
		func() error {
			if flags.DiskGB != nil {
				return nil
			}
			v, err := p.Input(ctx, "Disk size (GB)", strconv.Itoa(d.DiskGB), validateOptional(validateDiskSize))
			if err != nil || v == "" {
				return err
			}
			n, _ := request.ParseDiskSize(v) //nolint:errcheck // validated above
			in.DiskGB = &n
			return nil
		},
		askInt(ctx, p, flags.Cores, &in.Cores, "CPU cores", d.Cores, 1),
		askInt(ctx, p, flags.MemoryMB, &in.MemoryMB, "Memory (MB)", d.MemoryMB, 16),
		askInt(ctx, p, flags.SwapMB, &in.SwapMB, "Swap (MB)", d.SwapMB, 0),
		func() error {
			if flags.Unprivileged != nil {
				return nil
			}
			v, err := p.Confirm(ctx, "Unprivileged container?",
				"Unprivileged containers map root to an unprivileged host user.", d.Unprivileged)
			if err != nil {
				return err
			}
			in.Unprivileged = &v
			return nil
		},
		func() error {
			if flags.Password != nil {
				return nil
			}
			v, err := p.Password(ctx, "Root password", "Leave empty to generate one.")
			if err != nil || v == "" {
				return err
			}
			in.Password = &v
			return nil
		},
		askString(ctx, p, flags.Bridge, &in.Bridge, "Bridge", d.Bridge, validateRequired),
		askString(ctx, p, flags.IP, &in.IP, "IPv4 address (CIDR)", pve.DHCP, validateIP),
		func() error {
			if flags.Gateway != nil || isDHCP(flags.IP, in.IP) {
				return nil
			}
			return askString(ctx, p, flags.Gateway, &in.Gateway, "Gateway", "empty = none", validateGateway)()
		},
		askInt(ctx, p, flags.VLAN, &in.VLAN, "VLAN tag", 0, 0),
	}

	for _, step := range steps {
		if err := step(); err != nil {
			return request.Input{}, cancelled(err)
		}
	}
	return in, nil
}

// ConfirmRequest shows the resolved settings and asks whether to proceed.
func ConfirmRequest(ctx context.Context, p Prompter, r request.Request) (bool, error) {
	ok, err := p.Confirm(ctx, "Create this container?", Summary(r), true)
	if err != nil {
		return false, cancelled(err)
	}
	return ok, nil
}

// Summary returns a short multi-line description of r.
func Summary(r request.Request) string {
	id := "next free"
	if !r.ID.IsZero() {
		id = r.ID.String()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "ID: %s  Hostname: %s  App: %s\n", id, r.Hostname, r.App)
	fmt.Fprintf(&b, "Disk: %dG on %s  Cores: %d  Memory: %dMB  Swap: %dMB\n",
		r.DiskGB, r.Storage, r.Cores, r.MemoryMB, r.SwapMB)
	fmt.Fprintf(&b, "Mode: %s  Network: %s", r.PrivilegeMode(), r.Network.Descriptor())
	return b.String()
}

// cancelled wraps ErrCancelled in the validation error callers expect and
// passes other errors through.
func cancelled(err error) error {
	if errors.Is(err, ErrCancelled) {
		return &request.ConfigValidationError{Reason: "interactive session cancelled", Err: err}
	}
	return err
}

func askString(ctx context.Context, p Prompter, flag *string, dst **string, title, placeholder string, validate func(string) error) func() error {
	return func() error {
		if flag != nil {
			return nil
		}
		v, err := p.Input(ctx, title, placeholder, validateOptional(validate))
		if err != nil || v == "" {
			return err
		}
		*dst = &v
		return nil
	}
}

func askInt(ctx context.Context, p Prompter, flag *int, dst **int, title string, def, minimum int) func() error {
	return func() error {
		if flag != nil {
			return nil
		}
		v, err := p.Input(ctx, title, strconv.Itoa(def), validateOptional(func(s string) error {
			n, err := strconv.Atoi(s)
			if err != nil {
				return fmt.Errorf("%q is not a number", s)
			}
			if n < minimum {
				return fmt.Errorf("must be at least %d", minimum)
			}
			return nil
		}))
		if err != nil || v == "" {
			return err
		}
		n, _ := strconv.Atoi(v) //nolint:errcheck // validated above
		*dst = &n
		return nil
	}
}

func isDHCP(layers ...*string) bool {
	for _, v := range layers {
		if v != nil {
			return pve.NetworkSpec{IP: *v}.IsDHCP()
		}
	}
	return true
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// validateOptional accepts the empty answer, meaning "keep the default".
func validateOptional(fn func(string) error) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return nil
		}
		return fn(strings.TrimSpace(s))
	}
}

func validateRequired(s string) error {
	if s == "" {
		return errors.New("a value is required")
	}
	return nil
}

func validateContainerID(s string) error {
	_, err := pve.ParseContainerID(s)
	return err
}

func validateDiskSize(s string) error {
	_, err := request.ParseDiskSize(s)
	return err
}

func validateHostname(s string) error {
	if strings.ContainsAny(s, " _/") {
		return fmt.Errorf("%q is not a valid hostname", s)
	}
	return nil
}

func validateIP(s string) error {
	if strings.EqualFold(s, pve.DHCP) {
		return nil
	}
	if prefix, err := netip.ParsePrefix(s); err != nil || !prefix.Addr().Is4() {
		return errors.New("use dhcp or an address like 192.168.1.50/24")
	}
	return nil
}

func validateGateway(s string) error {
	if addr, err := netip.ParseAddr(s); err != nil || !addr.Is4() {
		return errors.New("use an address like 192.168.1.1")
	}
	return nil
}
