// SPDX-License-Identifier: MPL-2.0

// Package provision creates and boots the container: id allocation and
// conflict resolution, template acquisition, pct create, and a readiness
// probe that replaces a fixed settle delay.
package provision
