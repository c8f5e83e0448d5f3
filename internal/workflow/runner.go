// SPDX-License-Identifier: MPL-2.0

package workflow

import (
	"context"
	"io"

	"github.com/charmbracelet/log"

	"github.com/pveprov/pveprov/internal/install"
	"github.com/pveprov/pveprov/internal/preflight"
	"github.com/pveprov/pveprov/internal/pve"
	"github.com/pveprov/pveprov/internal/request"
)

type (
	// Checker runs the preflight checks.
	Checker interface {
		Check(ctx context.Context, req request.Request) (preflight.Report, error)
	}

	// Provisioner allocates, fetches the template and creates the container.
	Provisioner interface {
		Allocate(ctx context.Context, req request.Request) (request.Request, []string, error)
		EnsureTemplate(ctx context.Context, req request.Request) (pve.TemplateName, []string, error)
		Create(ctx context.Context, req request.Request, template pve.TemplateName) error
	}

	// Starter boots the container and waits for readiness.
	Starter interface {
		Start(ctx context.Context, req request.Request) error
	}

	// Installer deploys the application.
	Installer interface {
		Run(ctx context.Context, req request.Request, app install.App) (install.Outcome, error)
	}

	// AddressResolver finds the container's address. It never fails.
	AddressResolver interface {
		Address(ctx context.Context, req request.Request) (string, bool)
	}

	// AppCatalog resolves application names.
	AppCatalog interface {
		Lookup(name string) (install.App, error)
	}

	// Dependencies are the phase implementations. All fields except Logger
	// and OnWarning are required.
	Dependencies struct {
		Preflight   Checker
		Provisioner Provisioner
		Lifecycle   Starter
		Installer   Installer
		Resolver    AddressResolver
		Catalog     AppCatalog
		Logger      *log.Logger
		// OnWarning is called for every warning as it is raised. When nil,
		// warnings go to Logger.
		OnWarning func(string)
	}

	// Result is the outcome of a run. On failure Phase is the phase that
	// failed and the other fields hold what was known at that point.
	Result struct {
		Phase    Phase
		Request  request.Request
		App      install.App
		Template pve.TemplateName
		Install  install.Outcome
		Address  string
		Resolved bool
		Warnings []string
	}

	// Runner executes the workflow.
	Runner struct {
		deps Dependencies
	}
)

// New creates a Runner.
func New(deps Dependencies) *Runner {
	if deps.Logger == nil {
		deps.Logger = log.New(io.Discard)
	}
	return &Runner{deps: deps}
}

// Run executes every phase in order for req and stops at the first error,
// which is returned unwrapped so callers can match its type.
func (r *Runner) Run(ctx context.Context, req request.Request) (Result, error) {
	res := Result{Request: req}

	app, err := r.deps.Catalog.Lookup(req.App)
	if err != nil {
		return res, &request.ConfigValidationError{Field: "app", Reason: err.Error(), Err: err}
	}
	res.App = app

	r.enter(&res, PhasePreflight)
	report, err := r.deps.Preflight.Check(ctx, res.Request)
	if err != nil {
		return res, err
	}
	r.warn(&res, report.Warnings...)
	res.Request = res.Request.WithInteractive(report.Interactive)

	r.enter(&res, PhaseAllocate)
	allocated, warnings, err := r.deps.Provisioner.Allocate(ctx, res.Request)
	r.warn(&res, warnings...)
	if err != nil {
		return res, err
	}
	res.Request = allocated

	r.enter(&res, PhaseTemplate)
	template, warnings, err := r.deps.Provisioner.EnsureTemplate(ctx, res.Request)
	r.warn(&res, warnings...)
	if err != nil {
		return res, err
	}
	res.Template = template

	r.enter(&res, PhaseCreate)
	if err := r.deps.Provisioner.Create(ctx, res.Request, template); err != nil {
		return res, err
	}

	r.enter(&res, PhaseStart)
	if err := r.deps.Lifecycle.Start(ctx, res.Request); err != nil {
		return res, err
	}

	r.enter(&res, PhaseInstall)
	outcome, err := r.deps.Installer.Run(ctx, res.Request, app)
	res.Install = outcome
	r.warn(&res, outcome.Warnings...)
	if err != nil {
		return res, err
	}

	r.enter(&res, PhaseReport)
	res.Address, res.Resolved = r.deps.Resolver.Address(ctx, res.Request)
	if !res.Resolved {
		r.warn(&res, "container address could not be resolved")
	}

	r.enter(&res, PhaseDone)
	return res, nil
}

func (r *Runner) enter(res *Result, p Phase) {
	res.Phase = p
	r.deps.Logger.Info("phase", "phase", p, "id", res.Request.ID)
}

func (r *Runner) warn(res *Result, warnings ...string) {
	for _, w := range warnings {
		res.Warnings = append(res.Warnings, w)
		if r.deps.OnWarning != nil {
			r.deps.OnWarning(w)
			continue
		}
		r.deps.Logger.Warn(w, "phase", res.Phase)
	}
}
