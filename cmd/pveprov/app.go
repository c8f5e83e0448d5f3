// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"io"
	"os"
	"runtime"

	"github.com/charmbracelet/log"

	"github.com/pveprov/pveprov/internal/clock"
	"github.com/pveprov/pveprov/internal/config"
	"github.com/pveprov/pveprov/internal/preflight"
	"github.com/pveprov/pveprov/internal/prompt"
	"github.com/pveprov/pveprov/internal/pve"
)

type (
	// ConfigProvider loads configuration using explicit options.
	ConfigProvider interface {
		Load(ctx context.Context, opts config.LoadOptions) (*config.Config, error)
	}

	// EngineFactory builds the Proxmox engine for one run. The logger traces
	// host commands at debug level.
	EngineFactory func(logger *log.Logger) pve.Engine

	// PrompterFactory builds the interactive front end.
	PrompterFactory func(cfg prompt.Config) prompt.Prompter

	// App wires CLI services and shared dependencies. It is the composition root
	// for the CLI layer; every Cobra handler receives an App reference.
	App struct {
		Config      ConfigProvider
		NewEngine   EngineFactory
		NewPrompter PrompterFactory
		IsTerminal  func() bool
		HostArch    pve.Arch
		Clock       clock.Clock
		stdin       io.Reader
		stdout      io.Writer
		stderr      io.Writer

		// verbose is set once the run knows its log level; the error handler
		// reads it.
		verbose bool
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config      ConfigProvider
		NewEngine   EngineFactory
		NewPrompter PrompterFactory
		IsTerminal  func() bool
		HostArch    pve.Arch
		Clock       clock.Clock
		Stdin       io.Reader
		Stdout      io.Writer
		Stderr      io.Writer
	}
)

// NewApp creates an App, filling unset dependencies with production defaults.
func NewApp(deps Dependencies) *App {
	app := &App{
		Config:      deps.Config,
		NewEngine:   deps.NewEngine,
		NewPrompter: deps.NewPrompter,
		IsTerminal:  deps.IsTerminal,
		HostArch:    deps.HostArch,
		Clock:       deps.Clock,
		stdin:       deps.Stdin,
		stdout:      deps.Stdout,
		stderr:      deps.Stderr,
	}
	if app.Config == nil {
		app.Config = config.NewProvider()
	}
	if app.NewEngine == nil {
		app.NewEngine = func(logger *log.Logger) pve.Engine {
			return pve.NewCLIEngine(pve.WithLogger(logger))
		}
	}
	if app.NewPrompter == nil {
		app.NewPrompter = func(cfg prompt.Config) prompt.Prompter { return prompt.NewHuh(cfg) }
	}
	if app.IsTerminal == nil {
		app.IsTerminal = preflight.StdioIsTerminal
	}
	if app.HostArch == "" {
		app.HostArch = pve.ArchFromGOARCH(runtime.GOARCH)
	}
	if app.Clock == nil {
		app.Clock = clock.Real{}
	}
	if app.stdin == nil {
		app.stdin = os.Stdin
	}
	if app.stdout == nil {
		app.stdout = os.Stdout
	}
	if app.stderr == nil {
		app.stderr = os.Stderr
	}
	return app
}

// newLogger returns the run logger on stderr.
func (a *App) newLogger(debug bool) *log.Logger {
	logger := log.NewWithOptions(a.stderr, log.Options{Prefix: config.AppName})
	if debug {
		logger.SetLevel(log.DebugLevel)
	}
	return logger
}

// prompter builds the prompt front end on the App's streams.
func (a *App) prompter(theme string) prompt.Prompter {
	cfg := prompt.DefaultConfig()
	cfg.Theme = prompt.Theme(theme)
	cfg.Input = a.stdin
	cfg.Output = a.stderr
	return a.NewPrompter(cfg)
}
