// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"context"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/charmbracelet/log"

	"github.com/pveprov/pveprov/internal/clock"
	"github.com/pveprov/pveprov/internal/prompt"
	"github.com/pveprov/pveprov/internal/pve"
	"github.com/pveprov/pveprov/internal/request"
)

// DefaultDownloadBackoff retries transient template download failures.
var DefaultDownloadBackoff = pve.Backoff{Attempts: 3, Base: 2 * time.Second, Factor: 2, Max: 10 * time.Second}

type (
	// Option configures a Provisioner or a Lifecycle.
	Option func(*settings)

	settings struct {
		prompter    prompt.Prompter
		clock       clock.Clock
		logger      *log.Logger
		download    pve.Backoff
		bootTimeout time.Duration
		probe       pve.Backoff
	}

	// Provisioner allocates the container id, resolves conflicts, fetches the
	// template and creates the container.
	Provisioner struct {
		engine pve.Engine
		settings
	}
)

// WithPrompter sets the prompter used to confirm destroying a conflicting
// container in interactive mode.
func WithPrompter(p prompt.Prompter) Option {
	return func(s *settings) { s.prompter = p }
}

// WithClock sets the clock used for retry and readiness waits.
func WithClock(c clock.Clock) Option {
	return func(s *settings) { s.clock = c }
}

// WithLogger sets the phase logger.
func WithLogger(l *log.Logger) Option {
	return func(s *settings) { s.logger = l }
}

// WithDownloadBackoff overrides DefaultDownloadBackoff.
func WithDownloadBackoff(b pve.Backoff) Option {
	return func(s *settings) { s.download = b }
}

// WithBootTimeout bounds the readiness wait after start.
func WithBootTimeout(d time.Duration) Option {
	return func(s *settings) { s.bootTimeout = d }
}

func newSettings(opts []Option) settings {
	s := settings{
		clock:       clock.Real{},
		logger:      log.New(io.Discard),
		download:    DefaultDownloadBackoff,
		bootTimeout: DefaultBootTimeout,
		probe:       DefaultProbeBackoff,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// NewProvisioner creates a Provisioner over engine.
func NewProvisioner(engine pve.Engine, opts ...Option) *Provisioner {
	return &Provisioner{engine: engine, settings: newSettings(opts)}
}

// Allocate returns req with a usable container id.
//
// An unset id becomes the smallest id >= 100 not reported by pct list or
// qm list. The scan is not atomic: a concurrent run can take the same id
// before Create. A set id that already exists is destroyed when req.Force
// is set or the user confirms interactively; otherwise a *ConflictError is
// returned and nothing is destroyed.
func (p *Provisioner) Allocate(ctx context.Context, req request.Request) (request.Request, []string, error) {
	if req.ID.IsZero() {
		ids, err := p.engine.ListIDs(ctx)
		if err != nil {
			return req, nil, fmt.Errorf("list guest ids: %w", err)
		}
		id := NextFreeID(ids)
		p.logger.Info("allocated container id", "id", id)
		return req.WithID(id), nil, nil
	}

	status, err := p.engine.Status(ctx, req.ID)
	if err != nil {
		return req, nil, fmt.Errorf("query container %s: %w", req.ID, err)
	}
	if status == pve.StatusMissing {
		return req, nil, nil
	}

	conflict := &ConflictError{ID: req.ID, Status: status}
	replace := req.Force
	if !replace && req.Interactive && p.prompter != nil {
		replace, err = p.prompter.Confirm(ctx, fmt.Sprintf("Container %s already exists", req.ID),
			fmt.Sprintf("Destroy container %s (%s) and create it again? This deletes its disks.", req.ID, status), false)
		if err != nil {
			return req, nil, err
		}
	}
	if !replace {
		return req, nil, conflict
	}

	warnings, err := p.replace(ctx, req.ID, status)
	return req, warnings, err
}

// replace stops (best effort) and destroys an existing container.
func (p *Provisioner) replace(ctx context.Context, id pve.ContainerID, status pve.Status) ([]string, error) {
	var warnings []string
	if status != pve.StatusStopped {
		p.logger.Info("stopping existing container", "id", id)
		if err := p.engine.Stop(ctx, id); err != nil {
			warnings = append(warnings, fmt.Sprintf("stop container %s: %v", id, err))
		}
	}
	p.logger.Info("destroying existing container", "id", id)
	if err := p.engine.Destroy(ctx, id); err != nil {
		return warnings, &ProvisionError{ID: id, Op: "destroy", Err: err}
	}
	return warnings, nil
}

// NextFreeID returns the smallest id >= pve.MinContainerID not in used.
func NextFreeID(used []pve.ContainerID) pve.ContainerID {
	sorted := slices.Clone(used)
	slices.Sort(sorted)
	id := pve.MinContainerID
	for _, u := range sorted {
		if u < id {
			continue
		}
		if u > id {
			break
		}
		id++
	}
	return id
}

// EnsureTemplate returns a local template for the request's OS, version and
// architecture, downloading the newest available one when none is stored.
// Transient download failures are retried; everything else is a
// *TemplateFetchError.
func (p *Provisioner) EnsureTemplate(ctx context.Context, req request.Request) (pve.TemplateName, []string, error) {
	fail := func(err error) (pve.TemplateName, []string, error) {
		return "", nil, &TemplateFetchError{OS: req.OS, Version: req.OSVersion, Arch: req.Arch, Err: err}
	}

	local, err := p.engine.LocalTemplates(ctx, req.TemplateStorage)
	if err != nil {
		return fail(err)
	}
	if name, ok := pve.SelectTemplate(local, req.OS, req.OSVersion, req.Arch); ok {
		p.logger.Info("using local template", "template", name)
		return name, nil, nil
	}

	var warnings []string
	if err := p.engine.UpdateTemplateIndex(ctx); err != nil {
		warnings = append(warnings, fmt.Sprintf("pveam update failed, using the cached index: %v", err))
	}

	available, err := p.engine.AvailableTemplates(ctx)
	if err != nil {
		return fail(err)
	}
	name, ok := pve.SelectTemplate(available, req.OS, req.OSVersion, req.Arch)
	if !ok {
		return fail(ErrNoTemplate)
	}

	p.logger.Info("downloading template", "template", name, "storage", req.TemplateStorage)
	err = pve.RetryWithBackoff(ctx, p.clock, p.download, func(attempt int) (bool, error) {
		if attempt > 0 {
			p.logger.Warn("retrying template download", "attempt", attempt+1)
		}
		err := p.engine.DownloadTemplate(ctx, req.TemplateStorage, name)
		return pve.IsTransientError(err), err
	})
	if err != nil {
		return fail(err)
	}
	return name, warnings, nil
}

// Create runs pct create for req. A failure is a *ProvisionError and is not
// retried.
func (p *Provisioner) Create(ctx context.Context, req request.Request, template pve.TemplateName) error {
	p.logger.Info("creating container", "id", req.ID, "hostname", req.Hostname, "net0", req.Network.Descriptor())
	if err := p.engine.Create(ctx, req.CreateOptions(template)); err != nil {
		return &ProvisionError{ID: req.ID, Op: "create", Err: err}
	}
	return nil
}
