// SPDX-License-Identifier: MPL-2.0

package pve

import (
	"errors"
	"fmt"
	"net/netip"
	"strconv"
	"strings"
)

const (
	// DHCP is the IP marker requesting an address from DHCP.
	DHCP = "dhcp"

	// DefaultInterface is the in-container interface name used for net0.
	DefaultInterface = "eth0"

	maxVLAN = 4094
)

// ErrInvalidNetworkSpec is the sentinel error wrapped by InvalidNetworkSpecError.
var ErrInvalidNetworkSpec = errors.New("invalid network spec")

type (
	// NetworkSpec describes the container's net0 interface.
	NetworkSpec struct {
		// Name is the interface name inside the container (default eth0).
		Name string
		// Bridge is the host bridge the veth attaches to.
		Bridge string
		// Firewall enables the Proxmox firewall on the interface.
		Firewall bool
		// IP is DHCP, empty (treated as DHCP) or an address in CIDR notation.
		IP string
		// Gateway is the IPv4 gateway; only meaningful with a static IP.
		Gateway string
		// VLAN is the 802.1Q tag; 0 means untagged.
		VLAN int
		// MTU overrides the interface MTU; 0 means bridge default.
		MTU int
	}

	// InvalidNetworkSpecError is returned when a NetworkSpec has invalid fields.
	InvalidNetworkSpecError struct {
		FieldErrs []error
	}
)

// IsDHCP reports whether the interface obtains its address from DHCP.
func (n NetworkSpec) IsDHCP() bool {
	return n.IP == "" || strings.EqualFold(n.IP, DHCP)
}

// StaticAddr returns the address part of a static IP, without prefix length.
// It returns false for DHCP specs or unparsable values.
func (n NetworkSpec) StaticAddr() (string, bool) {
	if n.IsDHCP() {
		return "", false
	}
	prefix, err := netip.ParsePrefix(n.IP)
	if err != nil {
		return "", false
	}
	return prefix.Addr().String(), true
}

// Descriptor renders the interface as the pct --net0 key=value list:
//
//	name=eth0,bridge=vmbr0,firewall=0,ip=dhcp,tag=20
//	name=eth0,bridge=vmbr0,firewall=0,ip=10.0.0.5/24,gw=10.0.0.1,tag=20
//
// The gateway is only emitted for static addresses. The tag follows the
// address in either mode, and mtu is appended whenever set.
func (n NetworkSpec) Descriptor() string {
	name := n.Name
	if name == "" {
		name = DefaultInterface
	}

	parts := []string{
		"name=" + name,
		"bridge=" + n.Bridge,
		"firewall=" + boolFlag(n.Firewall),
	}

	if n.IsDHCP() {
		parts = append(parts, "ip="+DHCP)
	} else {
		parts = append(parts, "ip="+n.IP)
		if n.Gateway != "" {
			parts = append(parts, "gw="+n.Gateway)
		}
	}
	if n.VLAN > 0 {
		parts = append(parts, "tag="+strconv.Itoa(n.VLAN))
	}

	if n.MTU > 0 {
		parts = append(parts, "mtu="+strconv.Itoa(n.MTU))
	}

	return strings.Join(parts, ",")
}

// Validate checks the bridge, address syntax, VLAN range and MTU. Only IPv4
// is accepted since the descriptor renders ip= and gw=.
// A static IP without a gateway is valid here; callers surface it as a warning.
func (n NetworkSpec) Validate() error {
	var errs []error
	if strings.TrimSpace(n.Bridge) == "" {
		errs = append(errs, errors.New("bridge is required"))
	}
	if !n.IsDHCP() {
		prefix, err := netip.ParsePrefix(n.IP)
		switch {
		case err != nil:
			errs = append(errs, fmt.Errorf("ip %q must be %q or an address in CIDR notation: %w", n.IP, DHCP, err))
		case !prefix.Addr().Is4():
			errs = append(errs, fmt.Errorf("ip %q is not an IPv4 address", n.IP))
		}
	}
	if n.Gateway != "" {
		addr, err := netip.ParseAddr(n.Gateway)
		switch {
		case err != nil:
			errs = append(errs, fmt.Errorf("gateway %q: %w", n.Gateway, err))
		case !addr.Is4():
			errs = append(errs, fmt.Errorf("gateway %q is not an IPv4 address", n.Gateway))
		}
	}
	if n.VLAN < 0 || n.VLAN > maxVLAN {
		errs = append(errs, fmt.Errorf("vlan tag %d out of range 0-%d (0 means untagged)", n.VLAN, maxVLAN))
	}
	if n.MTU < 0 {
		errs = append(errs, fmt.Errorf("mtu %d must not be negative", n.MTU))
	}
	if len(errs) > 0 {
		return &InvalidNetworkSpecError{FieldErrs: errs}
	}
	return nil
}

// Error implements the error interface.
func (e *InvalidNetworkSpecError) Error() string {
	return fmt.Sprintf("invalid network spec: %v", errors.Join(e.FieldErrs...))
}

// Unwrap returns ErrInvalidNetworkSpec for errors.Is() compatibility.
func (e *InvalidNetworkSpecError) Unwrap() error { return ErrInvalidNetworkSpec }

func boolFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
