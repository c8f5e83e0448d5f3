// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// newRootCommand creates the pveprov command tree. The root command itself
// runs the provisioning workflow.
func newRootCommand(app *App) *cobra.Command {
	flags := &provisionFlags{}

	rootCmd := &cobra.Command{
		Use:   "pveprov",
		Short: "Provision a Proxmox VE LXC container and deploy an app into it",
		Long: TitleStyle.Render("pveprov") + SubtitleStyle.Render(" - Proxmox VE LXC provisioning") + `

pveprov creates an LXC container on this Proxmox VE node, boots it, installs
Docker inside it and starts a docker compose application. Re-running against
the same container resumes after the last completed install step.

` + SubtitleStyle.Render("Examples:") + `
  pveprov                                   Interactive setup with defaults
  pveprov -y --ctid 150 --ip 192.168.1.50/24 --gateway 192.168.1.1
                                            Non-interactive, static address
  pveprov -y --ctid 150 --force             Replace container 150
  pveprov apps                              List deployable applications
  pveprov config init                       Write a default config file`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := runProvision(cmd, app, flags); err != nil {
				cmd.SilenceErrors = true
				cmd.SilenceUsage = true
				return &ExitError{Code: 1, Err: err}
			}
			return nil
		},
	}

	flags.register(rootCmd.Flags())
	rootCmd.PersistentFlags().StringVar(&flags.cfgFile, "config", "", "config file (default is $HOME/.config/pveprov/config.cue)")

	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &UsageError{Err: err}
	})
	rootCmd.SetIn(app.stdin)
	rootCmd.SetOut(app.stdout)
	rootCmd.SetErr(app.stderr)

	rootCmd.AddCommand(newConfigCommand(app, flags))
	rootCmd.AddCommand(newAppsCommand(app, flags))

	return rootCmd
}

// noArgs rejects positional arguments as a usage error.
func noArgs(cmd *cobra.Command, args []string) error {
	if err := cobra.NoArgs(cmd, args); err != nil {
		return &UsageError{Err: err}
	}
	return nil
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// errorHandler renders failures with their catalog guidance. It replaces
// fang's default handler so every error goes through the same renderer.
func (a *App) errorHandler(w io.Writer, _ fang.Styles, err error) {
	style := "dark"
	if !a.IsTerminal() {
		style = "notty"
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Err != nil {
		err = exitErr.Err
	}
	renderError(w, err, a.verbose, style)
}

// Execute builds the command tree and runs it. This is called by main.main().
func Execute() {
	app := NewApp(Dependencies{})
	if err := fang.Execute(
		context.Background(),
		newRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt, syscall.SIGTERM),
		fang.WithErrorHandler(app.errorHandler),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}
