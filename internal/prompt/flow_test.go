// SPDX-License-Identifier: MPL-2.0

package prompt

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/pveprov/pveprov/internal/pve"
	"github.com/pveprov/pveprov/internal/request"
)

// scriptedPrompter answers by question title and records what was asked.
type scriptedPrompter struct {
	answers  map[string]string
	confirms map[string]bool
	cancelAt string
	asked    []string
}

func (s *scriptedPrompter) answer(title string) (string, error) {
	s.asked = append(s.asked, title)
	if title == s.cancelAt {
		return "", ErrCancelled
	}
	return s.answers[title], nil
}

func (s *scriptedPrompter) Select(_ context.Context, title string, _ []Option) (string, error) {
	return s.answer(title)
}

func (s *scriptedPrompter) Input(_ context.Context, title, _ string, validate func(string) error) (string, error) {
	v, err := s.answer(title)
	if err != nil {
		return "", err
	}
	if validate != nil {
		if verr := validate(v); verr != nil {
			return "", verr
		}
	}
	return v, nil
}

func (s *scriptedPrompter) Password(_ context.Context, title, _ string) (string, error) {
	return s.answer(title)
}

func (s *scriptedPrompter) Confirm(_ context.Context, title, _ string, def bool) (bool, error) {
	if _, err := s.answer(title); err != nil {
		return false, err
	}
	if v, ok := s.confirms[title]; ok {
		return v, nil
	}
	return def, nil
}

func TestCollect_DefaultSettings(t *testing.T) {
	t.Parallel()

	p := &scriptedPrompter{answers: map[string]string{"Settings": modeDefault}}
	in, err := Collect(context.Background(), p, request.DefaultDefaults(), request.Input{})
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if in != (request.Input{}) {
		t.Errorf("default settings should produce an empty layer, got %+v", in)
	}
	if len(p.asked) != 1 {
		t.Errorf("asked %v, want only the menu", p.asked)
	}
}

func TestCollect_AdvancedAsksOnlyUnsetFields(t *testing.T) {
	t.Parallel()

	p := &scriptedPrompter{
		answers: map[string]string{
			"Settings":            modeAdvanced,
			"Container ID":        "210",
			"Disk size (GB)":      "64G",
			"CPU cores":           "6",
			"IPv4 address (CIDR)": "10.0.0.5/24",
			"Gateway":             "10.0.0.1",
			"VLAN tag":            "20",
		},
		confirms: map[string]bool{"Unprivileged container?": true},
	}
	flags := request.Input{Hostname: request.Ptr("fixed"), MemoryMB: request.Ptr(8192)}

	in, err := Collect(context.Background(), p, request.DefaultDefaults(), flags)
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}

	for _, title := range []string{"Hostname", "Memory (MB)"} {
		if slices.Contains(p.asked, title) {
			t.Errorf("%q was set by a flag and must not be asked", title)
		}
	}
	if in.ID == nil || *in.ID != 210 {
		t.Errorf("ID = %v", in.ID)
	}
	if in.DiskGB == nil || *in.DiskGB != 64 {
		t.Errorf("DiskGB = %v", in.DiskGB)
	}
	if in.Cores == nil || *in.Cores != 6 {
		t.Errorf("Cores = %v", in.Cores)
	}
	if in.Unprivileged == nil || !*in.Unprivileged {
		t.Errorf("Unprivileged = %v", in.Unprivileged)
	}
	if in.Password != nil {
		t.Error("empty password answer must leave the field unset")
	}
	if in.SwapMB != nil || in.Bridge != nil {
		t.Error("empty answers must leave fields unset")
	}

	r, warnings, err := request.Build(request.DefaultDefaults(), flags, in)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("warnings = %v", warnings)
	}
	if r.Hostname != "fixed" || r.MemoryMB != 8192 || r.ID != pve.ContainerID(210) {
		t.Errorf("merged request = %+v", r)
	}
	if !r.PasswordGenerated {
		t.Error("password should be generated")
	}
}

func TestCollect_SkipsGatewayForDHCP(t *testing.T) {
	t.Parallel()

	p := &scriptedPrompter{answers: map[string]string{"Settings": modeAdvanced}}
	if _, err := Collect(context.Background(), p, request.DefaultDefaults(), request.Input{}); err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if slices.Contains(p.asked, "Gateway") {
		t.Error("gateway must not be asked for dhcp")
	}
}

func TestCollect_CancelIsValidationError(t *testing.T) {
	t.Parallel()

	for _, at := range []string{"Settings", "Hostname", "Root password"} {
		t.Run(at, func(t *testing.T) {
			t.Parallel()
			p := &scriptedPrompter{
				answers:  map[string]string{"Settings": modeAdvanced},
				cancelAt: at,
			}
			_, err := Collect(context.Background(), p, request.DefaultDefaults(), request.Input{})
			if !errors.Is(err, request.ErrConfigValidation) || !errors.Is(err, ErrCancelled) {
				t.Fatalf("Collect() error = %v, want validation error wrapping ErrCancelled", err)
			}
		})
	}
}

func TestConfirmRequest(t *testing.T) {
	t.Parallel()

	r, _, err := request.Build(request.DefaultDefaults(), request.Input{ID: request.Ptr(pve.ContainerID(150))})
	if err != nil {
		t.Fatal(err)
	}
	p := &scriptedPrompter{confirms: map[string]bool{"Create this container?": false}}
	ok, err := ConfirmRequest(context.Background(), p, r)
	if err != nil || ok {
		t.Fatalf("ConfirmRequest() = %v, %v", ok, err)
	}

	s := Summary(r)
	for _, want := range []string{"ID: 150", "Hostname: immich", "privileged", "ip=dhcp"} {
		if !strings.Contains(s, want) {
			t.Errorf("Summary() missing %q:\n%s", want, s)
		}
	}
}

func TestValidators(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		fn    func(string) error
		input string
		ok    bool
	}{
		{"ip dhcp", validateIP, "DHCP", true},
		{"ip cidr", validateIP, "10.0.0.5/24", true},
		{"ip without prefix", validateIP, "10.0.0.5", false},
		{"ip ipv6", validateIP, "fd00::5/64", false},
		{"gateway", validateGateway, "10.0.0.1", true},
		{"gateway bad", validateGateway, "nope", false},
		{"gateway ipv6", validateGateway, "fd00::1", false},
		{"ctid low", validateContainerID, "99", false},
		{"ctid ok", validateContainerID, "100", true},
		{"optional empty", validateOptional(validateGateway), "  ", true},
		{"disk size", validateDiskSize, "8G", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if err := tt.fn(tt.input); (err == nil) != tt.ok {
				t.Errorf("validator(%q) error = %v, want ok=%v", tt.input, err, tt.ok)
			}
		})
	}
}

func TestMapAbort(t *testing.T) {
	t.Parallel()

	other := errors.New("boom")
	if !errors.Is(mapAbort(other), other) {
		t.Error("unrelated errors must pass through")
	}
	if mapAbort(nil) != nil {
		t.Error("nil must stay nil")
	}
}
