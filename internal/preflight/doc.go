// SPDX-License-Identifier: MPL-2.0

// Package preflight checks the host before anything is created: required
// Proxmox tools, a usable terminal for interactive mode, and the host and
// template architectures.
package preflight
