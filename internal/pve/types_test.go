// SPDX-License-Identifier: MPL-2.0

package pve

import (
	"errors"
	"testing"
)

func TestContainerID_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		id      ContainerID
		wantErr bool
	}{
		{0, true},
		{99, true},
		{100, false},
		{150, false},
		{MaxContainerID, false},
		{MaxContainerID + 1, true},
	}
	for _, tt := range tests {
		err := tt.id.Validate()
		if (err != nil) != tt.wantErr {
			t.Errorf("ContainerID(%d).Validate() error = %v, wantErr %v", tt.id, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, ErrInvalidContainerID) {
			t.Errorf("error should wrap ErrInvalidContainerID, got %v", err)
		}
	}
}

func TestParseContainerID(t *testing.T) {
	t.Parallel()

	id, err := ParseContainerID(" 150 ")
	if err != nil || id != 150 {
		t.Fatalf("ParseContainerID() = %d, %v", id, err)
	}
	if _, err := ParseContainerID("abc"); !errors.Is(err, ErrInvalidContainerID) {
		t.Errorf("expected ErrInvalidContainerID, got %v", err)
	}
	if _, err := ParseContainerID("42"); !errors.Is(err, ErrInvalidContainerID) {
		t.Errorf("expected range error, got %v", err)
	}
}

func TestArchFromGOARCH(t *testing.T) {
	t.Parallel()

	cases := map[string]Arch{"amd64": ArchAMD64, "arm64": ArchARM64, "386": ArchI386, "riscv64": "riscv64"}
	for in, want := range cases {
		if got := ArchFromGOARCH(in); got != want {
			t.Errorf("ArchFromGOARCH(%q) = %q, want %q", in, got, want)
		}
	}
	if err := Arch("riscv64").Validate(); !errors.Is(err, ErrInvalidArch) {
		t.Errorf("expected ErrInvalidArch, got %v", err)
	}
}

func TestFeatures_String(t *testing.T) {
	t.Parallel()

	if got := (Features{}).String(); got != "" {
		t.Errorf("empty features = %q", got)
	}
	if got := (Features{Nesting: true, Keyctl: true, Fuse: true}).String(); got != "nesting=1,keyctl=1,fuse=1" {
		t.Errorf("all features = %q", got)
	}
}

func TestCreateOptions_Validate(t *testing.T) {
	t.Parallel()

	valid := CreateOptions{
		ID:              150,
		Template:        "debian-12-standard_12.7-1_amd64.tar.zst",
		TemplateStorage: "local",
		Storage:         "local-lvm",
		DiskGB:          8,
		MemoryMB:        2048,
		Cores:           2,
		Arch:            ArchAMD64,
		Network:         NetworkSpec{Bridge: "vmbr0", IP: DHCP},
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	invalid := valid
	invalid.ID = 5
	invalid.DiskGB = 0
	invalid.Network.Bridge = ""
	err := invalid.Validate()
	if !errors.Is(err, ErrInvalidCreateOptions) {
		t.Fatalf("expected ErrInvalidCreateOptions, got %v", err)
	}
	var ce *InvalidCreateOptionsError
	if !errors.As(err, &ce) || len(ce.FieldErrs) != 3 {
		t.Errorf("expected 3 field errors, got %v", err)
	}
}
