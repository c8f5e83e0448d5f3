// SPDX-License-Identifier: MPL-2.0

package pve

import (
	"bufio"
	"net/netip"
	"strconv"
	"strings"
)

// ParseGuestList extracts guest ids from `pct list` or `qm list` output.
// Both print a header row followed by one row per guest whose first column
// is the numeric id; rows that do not start with a number are ignored.
func ParseGuestList(out string) []ContainerID {
	var ids []ContainerID
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		n, err := strconv.Atoi(fields[0])
		if err != nil {
			continue
		}
		ids = append(ids, ContainerID(n))
	}
	return ids
}

// ParseStatus reads the "status: <state>" line printed by `pct status`.
func ParseStatus(out string) (Status, bool) {
	for line := range strings.SplitSeq(out, "\n") {
		key, value, ok := strings.Cut(strings.TrimSpace(line), ":")
		if ok && strings.TrimSpace(key) == "status" {
			return Status(strings.TrimSpace(value)), true
		}
	}
	return "", false
}

// ParseLocalTemplates extracts template names from `pveam list <storage>`.
//
//	NAME                                                   SIZE
//	local:vztmpl/debian-12-standard_12.7-1_amd64.tar.zst   120.29MB
func ParseLocalTemplates(out string) []TemplateName {
	var names []TemplateName
	for line := range strings.SplitSeq(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		_, file, ok := strings.Cut(fields[0], ":vztmpl/")
		if !ok || file == "" {
			continue
		}
		names = append(names, TemplateName(file))
	}
	return names
}

// ParseAvailableTemplates extracts template names from
// `pveam available --section system`.
//
//	system          debian-12-standard_12.7-1_amd64.tar.zst
func ParseAvailableTemplates(out string) []TemplateName {
	var names []TemplateName
	for line := range strings.SplitSeq(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		names = append(names, TemplateName(fields[1]))
	}
	return names
}

// ParseIPv4Addr returns the first global IPv4 address in `ip -4 -o addr show`
// output, without prefix length.
func ParseIPv4Addr(out string) (string, bool) {
	fields := strings.Fields(out)
	for i := 0; i+1 < len(fields); i++ {
		if fields[i] != "inet" {
			continue
		}
		prefix, err := netip.ParsePrefix(fields[i+1])
		if err != nil {
			continue
		}
		addr := prefix.Addr()
		if addr.IsLoopback() || addr.IsLinkLocalUnicast() {
			continue
		}
		return addr.String(), true
	}
	return "", false
}
