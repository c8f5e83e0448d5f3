// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pveprov/pveprov/internal/config"
)

// newAppsCommand creates `pveprov apps`, which lists the deployable applications.
func newAppsCommand(app *App, flags *provisionFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "apps",
		Short: "List deployable applications",
		Long: `List deployable applications.

The "compose" application is listed once app.compose_url is set in the
config file; it deploys any docker compose stack.`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.Config.Load(cmd.Context(), config.LoadOptions{ConfigFilePath: flags.cfgFile})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, TitleStyle.Render("Applications"))
			for _, a := range catalogFor(cfg).Apps() {
				marker := " "
				if a.Name == cfg.App.Name {
					marker = SuccessStyle.Render("*")
				}
				fmt.Fprintf(out, "%s %s  %s %s\n",
					marker,
					CmdStyle.Render(fmt.Sprintf("%-8s", a.Name)),
					a.Description,
					SubtitleStyle.Render(fmt.Sprintf("(port %d)", a.Port)),
				)
			}
			return nil
		},
	}
}
