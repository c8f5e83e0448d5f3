// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/pveprov/pveprov/internal/config"
	"github.com/pveprov/pveprov/internal/install"
	"github.com/pveprov/pveprov/internal/issue"
	"github.com/pveprov/pveprov/internal/preflight"
	"github.com/pveprov/pveprov/internal/prompt"
	"github.com/pveprov/pveprov/internal/provision"
	"github.com/pveprov/pveprov/internal/pve"
	"github.com/pveprov/pveprov/internal/report"
	"github.com/pveprov/pveprov/internal/request"
	"github.com/pveprov/pveprov/internal/workflow"
)

// runProvision is the root command: resolve the request, run every phase
// and print the summary.
func runProvision(cmd *cobra.Command, app *App, flags *provisionFlags) error {
	ctx := cmd.Context()

	cfg, err := app.Config.Load(ctx, config.LoadOptions{ConfigFilePath: flags.cfgFile})
	if err != nil {
		return err
	}
	app.verbose = flags.debug || cfg.UI.Verbose

	in, err := flags.input(cmd)
	if err != nil {
		return err
	}

	defaults := cfg.RequestDefaults(app.HostArch)
	interactive := defaults.Interactive && !flags.nonInteractive
	p := app.prompter(cfg.UI.Theme)

	req, warnings, err := resolveRequest(ctx, p, defaults, in, interactive && app.IsTerminal())
	if err != nil {
		return err
	}
	for _, w := range warnings {
		printWarning(app.stderr, w.String())
	}

	logger := app.newLogger(app.verbose || req.Debug)
	engine := app.NewEngine(logger)

	runner := workflow.New(workflowDependencies(app, cfg, engine, p, logger))
	res, err := runner.Run(ctx, req)
	if errors.Is(err, request.ErrConfigValidation) {
		return err
	}
	if err != nil {
		return issue.NewErrorContext().
			WithOperation(phaseOperation(res.Phase)).
			WithResource(containerResource(res.Request)).
			Wrap(err).
			BuildError()
	}

	return writeSummary(app, cfg, res)
}

// resolveRequest builds the request from flags and, when interactive, the
// prompt answers. A cancelled or declined form offers to start over instead
// of running with partial settings.
func resolveRequest(ctx context.Context, p prompt.Prompter, d request.Defaults, flags request.Input, interactive bool) (request.Request, []request.Warning, error) {
	if !interactive {
		return request.Build(d, flags)
	}

	for {
		req, warnings, err := collectOnce(ctx, p, d, flags)
		if err == nil || !errors.Is(err, prompt.ErrCancelled) {
			return req, warnings, err
		}
		again, confirmErr := p.Confirm(ctx, "Re-enter settings?", "Nothing has been changed on this host yet.", true)
		if confirmErr != nil || !again {
			return request.Request{}, nil, err
		}
	}
}

func collectOnce(ctx context.Context, p prompt.Prompter, d request.Defaults, flags request.Input) (request.Request, []request.Warning, error) {
	answers, err := prompt.Collect(ctx, p, d, flags)
	if err != nil {
		return request.Request{}, nil, err
	}
	req, warnings, err := request.Build(d, flags, answers)
	if err != nil {
		return request.Request{}, nil, err
	}
	ok, err := prompt.ConfirmRequest(ctx, p, req)
	if err != nil {
		return request.Request{}, nil, err
	}
	if !ok {
		return request.Request{}, nil, &request.ConfigValidationError{Reason: "settings were not confirmed", Err: prompt.ErrCancelled}
	}
	return req, warnings, nil
}

func workflowDependencies(app *App, cfg *config.Config, engine pve.Engine, p prompt.Prompter, logger *log.Logger) workflow.Dependencies {
	provisionOpts := []provision.Option{
		provision.WithPrompter(p),
		provision.WithClock(app.Clock),
		provision.WithLogger(logger.WithPrefix("provision")),
		provision.WithBootTimeout(cfg.Timeouts.Boot),
	}

	return workflow.Dependencies{
		Preflight: preflight.New(engine,
			preflight.WithPrompter(p),
			preflight.WithHostArch(app.HostArch),
			preflight.WithTerminalCheck(app.IsTerminal),
		),
		Provisioner: provision.NewProvisioner(engine, provisionOpts...),
		Lifecycle:   provision.NewLifecycle(engine, provisionOpts...),
		Installer: install.New(engine,
			install.WithClock(app.Clock),
			install.WithLogger(logger.WithPrefix("install")),
		),
		Resolver: report.NewResolver(engine,
			report.WithClock(app.Clock),
			report.WithPoll(report.Poll{Attempts: cfg.Timeouts.AddressAttempts, Interval: cfg.Timeouts.AddressInterval}),
			report.WithLogger(logger.WithPrefix("report")),
		),
		Catalog:   catalogFor(cfg),
		Logger:    logger,
		OnWarning: func(msg string) { printWarning(app.stderr, msg) },
	}
}

func catalogFor(cfg *config.Config) *install.Catalog {
	return install.NewCatalog(install.ComposeSource{
		ComposeURL: cfg.App.ComposeURL,
		EnvURL:     cfg.App.EnvURL,
		Port:       cfg.App.Port,
	})
}

func containerResource(req request.Request) string {
	if req.ID.IsZero() {
		return ""
	}
	return fmt.Sprintf("container %s", req.ID)
}

func writeSummary(app *App, cfg *config.Config, res workflow.Result) error {
	summary := report.Summary{
		ID:         res.Request.ID,
		Hostname:   res.Request.Hostname,
		Address:    res.Address,
		Resolved:   res.Resolved,
		App:        res.App.Name,
		Port:       res.App.Port,
		InstallDir: res.Request.InstallDir,
		Skipped:    res.Install.Skipped,
		Warnings:   res.Warnings,
	}
	if res.Request.PasswordGenerated {
		summary.Password = res.Request.Password
	}
	return summary.Write(app.stdout, app.summaryStyle(cfg.UI.Style))
}

// summaryStyle resolves "auto" to the plain style when output is not a terminal.
func (a *App) summaryStyle(style string) string {
	if style == "auto" && !a.IsTerminal() {
		return "notty"
	}
	return style
}
