// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pveprov/pveprov/internal/config"
)

// newConfigCommand creates the `pveprov config` command tree.
func newConfigCommand(app *App, flags *provisionFlags) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage pveprov configuration",
		Long: `Manage pveprov configuration.

Configuration is stored in $XDG_CONFIG_HOME/pveprov/config.cue
(~/.config/pveprov/config.cue by default). Every key can be overridden
from the environment as PVEPROV_<SECTION>_<KEY>, for example
PVEPROV_CONTAINER_STORAGE=local-zfs.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration as CUE",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfig(cmd, app, flags)
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show the configuration file path",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfigPath(cmd, flags)
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create the default configuration file",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(cmd)
		},
	})

	return cfgCmd
}

func showConfig(cmd *cobra.Command, app *App, flags *provisionFlags) error {
	opts := config.LoadOptions{ConfigFilePath: flags.cfgFile}
	cfg, err := app.Config.Load(cmd.Context(), opts)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	path, err := config.Locate(opts)
	if err != nil {
		return err
	}
	if path == "" {
		fmt.Fprintln(out, "// no config file found, showing defaults and environment overrides")
	} else {
		fmt.Fprintf(out, "// loaded from %s\n", path)
	}
	fmt.Fprint(out, config.GenerateCUE(cfg))
	return nil
}

func showConfigPath(cmd *cobra.Command, flags *provisionFlags) error {
	out := cmd.OutOrStdout()
	path, err := config.Locate(config.LoadOptions{ConfigFilePath: flags.cfgFile})
	if err != nil {
		return err
	}
	if path != "" {
		fmt.Fprintln(out, path)
		return nil
	}

	defaultPath, err := config.ConfigPath()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s %s\n", defaultPath, SubtitleStyle.Render("(not created yet, using defaults)"))
	return nil
}

func initConfig(cmd *cobra.Command) error {
	path, created, err := config.CreateDefaultConfig()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if !created {
		fmt.Fprintf(out, "%s %s\n", WarningStyle.Render("Config file already exists:"), path)
		return nil
	}
	fmt.Fprintf(out, "%s %s\n", SuccessStyle.Render("Created config file:"), path)
	return nil
}
