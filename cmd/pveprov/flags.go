// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/pveprov/pveprov/internal/pve"
	"github.com/pveprov/pveprov/internal/request"
)

// provisionFlags holds the raw values of the root command's flags.
type provisionFlags struct {
	cfgFile        string
	debug          bool
	force          bool
	nonInteractive bool

	ctid        string
	hostname    string
	description string

	diskSize     string
	memory       int
	swap         int
	cores        int
	unprivileged bool
	fuse         bool

	bridge   string
	ip       string
	gateway  string
	vlan     int
	mtu      int
	firewall bool

	os              string
	osVersion       string
	arch            string
	templateStorage string
	storage         string

	password string

	app        string
	installDir string
}

func (f *provisionFlags) register(fs *pflag.FlagSet) {
	fs.BoolVar(&f.debug, "debug", false, "log every host command before it runs")
	fs.BoolVarP(&f.force, "force", "f", false, "replace an existing container and accept architecture mismatches")
	fs.BoolVarP(&f.nonInteractive, "non-interactive", "y", false, "never prompt; use flags, config and defaults")

	fs.StringVarP(&f.ctid, "ctid", "i", "", "container id (default: next free id from 100)")
	fs.StringVarP(&f.hostname, "hostname", "n", "", "container hostname (default: the app name)")
	fs.StringVar(&f.description, "description", "", "container description")

	fs.StringVarP(&f.diskSize, "disk-size", "d", "", "root disk size in GB, e.g. 32 or 32G")
	fs.IntVarP(&f.memory, "memory", "m", 0, "memory in MB")
	fs.IntVar(&f.swap, "swap", 0, "swap in MB")
	fs.IntVarP(&f.cores, "cores", "c", 0, "CPU cores")
	fs.BoolVarP(&f.unprivileged, "unprivileged", "u", false, "create an unprivileged container")
	fs.BoolVar(&f.fuse, "fuse", false, "enable the fuse feature")

	fs.StringVarP(&f.bridge, "bridge", "b", "", "network bridge")
	fs.StringVar(&f.ip, "ip", "", `IPv4 address in CIDR form, or "dhcp"`)
	fs.StringVarP(&f.gateway, "gateway", "g", "", "IPv4 gateway for a static address")
	fs.IntVar(&f.vlan, "vlan", 0, "VLAN tag")
	fs.IntVar(&f.mtu, "mtu", 0, "interface MTU")
	fs.BoolVar(&f.firewall, "firewall", false, "enable the Proxmox firewall on the interface")

	fs.StringVar(&f.os, "os", "", "template distribution, e.g. debian")
	fs.StringVar(&f.osVersion, "os-version", "", "template distribution version, e.g. 12")
	fs.StringVar(&f.arch, "arch", "", "template architecture (default: the host's)")
	fs.StringVar(&f.templateStorage, "template-storage", "", "storage holding container templates")
	fs.StringVarP(&f.storage, "storage", "s", "", "storage for the root disk")

	fs.StringVarP(&f.password, "password", "p", "", "root password (default: generated)")

	fs.StringVarP(&f.app, "app", "a", "", "application to deploy (see 'pveprov apps')")
	fs.StringVar(&f.installDir, "install-dir", "", "application directory inside the container")
}

// input converts the flags the user actually set into the highest-priority
// request layer. Flags left at their zero value do not override anything.
func (f *provisionFlags) input(cmd *cobra.Command) (request.Input, error) {
	changed := cmd.Flags().Changed
	var in request.Input

	if changed("ctid") {
		id, err := pve.ParseContainerID(f.ctid)
		if err != nil {
			return in, &UsageError{Err: fmt.Errorf("invalid argument %q for \"--ctid\" flag: %w", f.ctid, err)}
		}
		in.ID = &id
	}
	if changed("disk-size") {
		gb, err := request.ParseDiskSize(f.diskSize)
		if err != nil {
			return in, &UsageError{Err: fmt.Errorf("invalid argument %q for \"--disk-size\" flag: %w", f.diskSize, err)}
		}
		in.DiskGB = &gb
	}
	if changed("arch") {
		arch := pve.Arch(f.arch)
		in.Arch = &arch
	}

	setValue(changed, "hostname", f.hostname, &in.Hostname)
	setValue(changed, "description", f.description, &in.Description)
	setValue(changed, "bridge", f.bridge, &in.Bridge)
	setValue(changed, "ip", f.ip, &in.IP)
	setValue(changed, "gateway", f.gateway, &in.Gateway)
	setValue(changed, "os", f.os, &in.OS)
	setValue(changed, "os-version", f.osVersion, &in.OSVersion)
	setValue(changed, "template-storage", f.templateStorage, &in.TemplateStorage)
	setValue(changed, "storage", f.storage, &in.Storage)
	setValue(changed, "password", f.password, &in.Password)
	setValue(changed, "app", f.app, &in.App)
	setValue(changed, "install-dir", f.installDir, &in.InstallDir)

	setValue(changed, "memory", f.memory, &in.MemoryMB)
	setValue(changed, "swap", f.swap, &in.SwapMB)
	setValue(changed, "cores", f.cores, &in.Cores)
	setValue(changed, "vlan", f.vlan, &in.VLAN)
	setValue(changed, "mtu", f.mtu, &in.MTU)
	setValue(changed, "unprivileged", f.unprivileged, &in.Unprivileged)
	setValue(changed, "fuse", f.fuse, &in.Fuse)
	setValue(changed, "firewall", f.firewall, &in.Firewall)
	setValue(changed, "force", f.force, &in.Force)
	setValue(changed, "debug", f.debug, &in.Debug)
	if f.nonInteractive {
		in.Interactive = request.Ptr(false)
	}

	return in, nil
}

func setValue[T any](changed func(string) bool, name string, v T, dst **T) {
	if changed(name) {
		*dst = &v
	}
}
