// SPDX-License-Identifier: MPL-2.0

// Package pve wraps the Proxmox VE container command surface (pct, pveam, qm).
//
// The Engine interface defines the operations the provisioning workflow needs:
// id listing, status, create/start/stop/destroy, command execution inside a
// container and template management. CLIEngine implements it by shelling out
// to the host tools through an injectable exec.Cmd factory so that argument
// construction and output parsing can be tested without a Proxmox host.
//
// Pure helpers live alongside the engine: NetworkSpec renders the --net0
// descriptor, and the parse functions read pct/qm/pveam/ip output.
package pve
