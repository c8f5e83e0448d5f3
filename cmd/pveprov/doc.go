// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the pveprov CLI: the root command that provisions an
// LXC container and deploys an application into it, plus the config and apps
// subcommands.
package cmd
