// SPDX-License-Identifier: MPL-2.0

package pve

import (
	"slices"
	"strings"
)

// TemplateName is the file name of an LXC template as listed by pveam,
// e.g. "debian-12-standard_12.7-1_amd64.tar.zst".
type TemplateName string

// String returns the template file name.
func (t TemplateName) String() string { return string(t) }

// VolumeID returns the storage volume id pct create expects,
// e.g. "local:vztmpl/debian-12-standard_12.7-1_amd64.tar.zst".
func (t TemplateName) VolumeID(storage string) string {
	return storage + ":vztmpl/" + string(t)
}

// Matches reports whether the template is the given OS release for arch.
// The release matches on the "<os>-<version>-" prefix and the arch on the
// "_<arch>.tar" suffix, which is how Proxmox names its system templates.
func (t TemplateName) Matches(os, version string, arch Arch) bool {
	name := string(t)
	if !strings.HasPrefix(name, os+"-"+version+"-") {
		return false
	}
	return strings.Contains(name, "_"+string(arch)+".tar")
}

// SelectTemplate returns the newest template in candidates that matches the
// release, comparing names with embedded numbers ordered numerically.
func SelectTemplate(candidates []TemplateName, os, version string, arch Arch) (TemplateName, bool) {
	var matches []TemplateName
	for _, c := range candidates {
		if c.Matches(os, version, arch) {
			matches = append(matches, c)
		}
	}
	if len(matches) == 0 {
		return "", false
	}
	slices.SortFunc(matches, func(a, b TemplateName) int {
		return compareNatural(string(a), string(b))
	})
	return matches[len(matches)-1], true
}

// compareNatural orders strings treating runs of digits as numbers, so that
// "12.10-1" sorts after "12.7-1".
func compareNatural(a, b string) int {
	for a != "" && b != "" {
		da, ra := digitPrefix(a)
		db, rb := digitPrefix(b)
		if da != "" && db != "" {
			if c := compareDigits(da, db); c != 0 {
				return c
			}
			a, b = ra, rb
			continue
		}
		if a[0] != b[0] {
			if a[0] < b[0] {
				return -1
			}
			return 1
		}
		a, b = a[1:], b[1:]
	}
	return len(a) - len(b)
}

func digitPrefix(s string) (digits, rest string) {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	return s[:i], s[i:]
}

func compareDigits(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		return len(a) - len(b)
	}
	return strings.Compare(a, b)
}
