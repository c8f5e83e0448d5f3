// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"slices"
	"strings"

	"github.com/charmbracelet/glamour"
)

// Id identifies an entry of the issue catalog.
type Id int

const (
	// UsageId covers bad command-line input.
	UsageId Id = iota + 1
	// ConfigInvalidId covers rejected option values and cancelled prompts.
	ConfigInvalidId
	// EnvironmentMissingId covers hosts lacking the Proxmox tooling.
	EnvironmentMissingId
	// ArchitectureMismatchId covers host/template architecture mismatches.
	ArchitectureMismatchId
	// ContainerConflictId covers container id collisions.
	ContainerConflictId
	// TemplateFetchFailedId covers template download failures.
	TemplateFetchFailedId
	// ProvisionFailedId covers pct create failures.
	ProvisionFailedId
	// StartFailedId covers containers that fail to start or become ready.
	StartFailedId
	// InstallStepFailedId covers in-container installer step failures.
	InstallStepFailedId
)

type (
	// MarkdownMsg is Markdown text rendered for the user.
	MarkdownMsg string

	// HttpLink is a documentation URL.
	HttpLink string

	// Issue is a catalog entry with remediation guidance.
	Issue struct {
		id       Id
		mdMsg    MarkdownMsg
		docLinks []HttpLink
	}
)

var (
	render = glamour.Render

	catalog = map[Id]*Issue{
		UsageId: {
			id: UsageId,
			mdMsg: `
# Invalid command line

## Things you can try
- Run ` + "`pveprov --help`" + ` to list the supported flags.
- Values such as ` + "`--memory`" + ` and ` + "`--cores`" + ` must be positive integers.`,
		},
		ConfigInvalidId: {
			id: ConfigInvalidId,
			mdMsg: `
# Invalid provisioning settings

The requested container settings are inconsistent or incomplete.

## Things you can try
- Check the values passed on the command line.
- Inspect the defaults file with ` + "`pveprov config show`" + `.`,
		},
		EnvironmentMissingId: {
			id: EnvironmentMissingId,
			mdMsg: `
# This host is not a Proxmox VE node

` + "`pveprov`" + ` drives ` + "`pct`" + ` and ` + "`pveam`" + `, which ship with Proxmox VE.

## Things you can try
- Run the tool as root on a Proxmox VE host shell.
- Check that ` + "`/usr/sbin`" + ` is on your PATH.`,
			docLinks: []HttpLink{"https://pve.proxmox.com/pve-docs/pct.1.html"},
		},
		ArchitectureMismatchId: {
			id: ArchitectureMismatchId,
			mdMsg: `
# Architecture mismatch

The requested template architecture differs from the host CPU.

## Things you can try
- Pick a template matching the host with ` + "`--arch`" + ` defaults.
- Re-run with ` + "`--force`" + ` if you know the template runs on this host.`,
		},
		ContainerConflictId: {
			id: ContainerConflictId,
			mdMsg: `
# Container id already in use

## Things you can try
- Omit ` + "`--ctid`" + ` to let the next free id be picked.
- Re-run with ` + "`--force`" + ` to destroy and recreate the existing container.
  **This deletes its disks.**`,
		},
		TemplateFetchFailedId: {
			id: TemplateFetchFailedId,
			mdMsg: `
# Could not download the OS template

## Things you can try
~~~
$ pveam update
$ pveam available --section system
~~~
- Check that the template storage accepts ` + "`vztmpl`" + ` content.`,
			docLinks: []HttpLink{"https://pve.proxmox.com/wiki/Linux_Container#pct_container_images"},
		},
		ProvisionFailedId: {
			id: ProvisionFailedId,
			mdMsg: `
# Container creation failed

## Things you can try
- Check that the rootfs storage exists: ` + "`pvesm status`" + `.
- Check that the bridge exists on this node.`,
		},
		StartFailedId: {
			id: StartFailedId,
			mdMsg: `
# Container did not come up

## Things you can try
~~~
$ pct start <id> --debug
$ journalctl -u pve-container@<id>
~~~
- A slow host may need a larger ` + "`timeouts.boot`" + ` value in the config file.`,
		},
		InstallStepFailedId: {
			id: InstallStepFailedId,
			mdMsg: `
# Application install step failed

Completed steps are recorded inside the container, so re-running the same
command resumes after the last successful step.

## Things you can try
- Inspect the container: ` + "`pct enter <id>`" + `.
- Re-run with ` + "`--debug`" + ` to stream the step output.`,
		},
	}
)

// Get returns the catalog entry for id, or nil.
func Get(id Id) *Issue {
	return catalog[id]
}

// Id returns the catalog id.
func (i *Issue) Id() Id {
	return i.id
}

// MarkdownMsg returns the raw Markdown guidance.
func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

// DocLinks returns a copy of the documentation links.
func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

// Render renders the guidance with the given glamour style ("dark", "light",
// "notty", ...).
func (i *Issue) Render(stylePath string) (string, error) {
	var md strings.Builder
	md.WriteString(string(i.mdMsg))
	if len(i.docLinks) > 0 {
		md.WriteString("\n\n## See also\n")
		for _, link := range i.docLinks {
			md.WriteString("- <" + string(link) + ">\n")
		}
	}
	return render(md.String(), stylePath)
}
