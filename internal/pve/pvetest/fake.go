// SPDX-License-Identifier: MPL-2.0

// Package pvetest provides an in-memory pve.Engine for tests of the
// provisioning phases.
package pvetest

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"

	"github.com/pveprov/pveprov/internal/pve"
)

type (
	// Call records one Engine method invocation.
	Call struct {
		Op   string
		ID   pve.ContainerID
		Args []string
	}

	// ExecFunc answers an Exec call. Stdin has already been read into input.
	ExecFunc func(id pve.ContainerID, opts pve.ExecOptions, input string) (*pve.ExecResult, error)

	// Engine is a scriptable, in-memory pve.Engine.
	// The zero value is not usable; call New.
	Engine struct {
		mu sync.Mutex

		// Guests maps existing ids to their state.
		Guests map[pve.ContainerID]pve.Status
		// Tools lists the host tools reported as available.
		Tools map[pve.Tool]bool
		// Local and Remote are the templates returned by LocalTemplates and
		// AvailableTemplates.
		Local  []pve.TemplateName
		Remote []pve.TemplateName
		// Errs makes the named operation fail ("create", "start", "download", ...).
		Errs map[string]error
		// ErrQueue holds errors consumed one per call before Errs is consulted;
		// a nil entry lets that call succeed.
		ErrQueue map[string][]error
		// ExecFunc answers Exec; nil means every command exits 0.
		ExecFunc ExecFunc
		// StartedStatus is the state a container reports after Start.
		StartedStatus pve.Status

		calls   []Call
		created []pve.CreateOptions
	}
)

// New returns an engine with pct, pveam and qm available and no guests.
func New() *Engine {
	return &Engine{
		Guests:        make(map[pve.ContainerID]pve.Status),
		Tools:         map[pve.Tool]bool{pve.ToolPct: true, pve.ToolPveam: true, pve.ToolQm: true},
		Errs:          make(map[string]error),
		ErrQueue:      make(map[string][]error),
		StartedStatus: pve.StatusRunning,
	}
}

// Calls returns the recorded invocations in order.
func (f *Engine) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

// Ops returns only the operation names of the recorded invocations.
func (f *Engine) Ops() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	ops := make([]string, len(f.calls))
	for i, c := range f.calls {
		ops[i] = c.Op
	}
	return ops
}

// Called reports whether op was invoked at least once.
func (f *Engine) Called(op string) bool {
	return slices.Contains(f.Ops(), op)
}

// Created returns the options of every Create call.
func (f *Engine) Created() []pve.CreateOptions {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.created)
}

// ExecScripts returns the last argv element of every Exec call, which is the
// script for `bash -c <script>` invocations.
func (f *Engine) ExecScripts() []string {
	var out []string
	for _, c := range f.Calls() {
		if c.Op == "exec" && len(c.Args) > 0 {
			out = append(out, c.Args[len(c.Args)-1])
		}
	}
	return out
}

func (f *Engine) record(op string, id pve.ContainerID, args ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{Op: op, ID: id, Args: args})
	if q := f.ErrQueue[op]; len(q) > 0 {
		f.ErrQueue[op] = q[1:]
		return q[0]
	}
	return f.Errs[op]
}

// Available implements pve.Engine.
func (f *Engine) Available(tool pve.Tool) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Tools[tool]
}

// ListIDs implements pve.Engine.
func (f *Engine) ListIDs(_ context.Context) ([]pve.ContainerID, error) {
	if err := f.record("list", 0); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]pve.ContainerID, 0, len(f.Guests))
	for id := range f.Guests {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

// Status implements pve.Engine.
func (f *Engine) Status(_ context.Context, id pve.ContainerID) (pve.Status, error) {
	if err := f.record("status", id); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	st, ok := f.Guests[id]
	if !ok {
		return pve.StatusMissing, nil
	}
	return st, nil
}

// Create implements pve.Engine.
func (f *Engine) Create(_ context.Context, opts pve.CreateOptions) error {
	if err := f.record("create", opts.ID, opts.Hostname, opts.Network.Descriptor()); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.Guests[opts.ID]; exists {
		return fmt.Errorf("CT %d already exists on node", opts.ID)
	}
	f.Guests[opts.ID] = pve.StatusStopped
	f.created = append(f.created, opts)
	return nil
}

// Start implements pve.Engine.
func (f *Engine) Start(_ context.Context, id pve.ContainerID) error {
	if err := f.record("start", id); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Guests[id] = f.StartedStatus
	return nil
}

// Stop implements pve.Engine.
func (f *Engine) Stop(_ context.Context, id pve.ContainerID) error {
	if err := f.record("stop", id); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.Guests[id]; ok {
		f.Guests[id] = pve.StatusStopped
	}
	return nil
}

// Destroy implements pve.Engine.
func (f *Engine) Destroy(_ context.Context, id pve.ContainerID) error {
	if err := f.record("destroy", id); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.Guests, id)
	return nil
}

// Exec implements pve.Engine.
func (f *Engine) Exec(_ context.Context, id pve.ContainerID, opts pve.ExecOptions) (*pve.ExecResult, error) {
	if err := f.record("exec", id, opts.Command...); err != nil {
		return nil, err
	}
	var input string
	if opts.Stdin != nil {
		b, err := io.ReadAll(opts.Stdin)
		if err != nil {
			return nil, err
		}
		input = string(b)
	}
	if f.ExecFunc == nil {
		return &pve.ExecResult{}, nil
	}
	res, err := f.ExecFunc(id, opts, input)
	if res != nil && opts.Stdout != nil && len(res.Output) > 0 {
		_, _ = opts.Stdout.Write(res.Output)
	}
	return res, err
}

// LocalTemplates implements pve.Engine.
func (f *Engine) LocalTemplates(_ context.Context, storage string) ([]pve.TemplateName, error) {
	if err := f.record("templates-local", 0, storage); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.Local), nil
}

// AvailableTemplates implements pve.Engine.
func (f *Engine) AvailableTemplates(_ context.Context) ([]pve.TemplateName, error) {
	if err := f.record("templates-available", 0); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.Remote), nil
}

// UpdateTemplateIndex implements pve.Engine.
func (f *Engine) UpdateTemplateIndex(_ context.Context) error {
	return f.record("update-index", 0)
}

// DownloadTemplate implements pve.Engine.
func (f *Engine) DownloadTemplate(_ context.Context, storage string, name pve.TemplateName) error {
	if err := f.record("download", 0, storage, string(name)); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Local = append(f.Local, name)
	return nil
}

// ScriptContains returns an ExecFunc matcher helper: it reports whether the
// last argv element of opts contains substr.
func ScriptContains(opts pve.ExecOptions, substr string) bool {
	if len(opts.Command) == 0 {
		return false
	}
	return strings.Contains(opts.Command[len(opts.Command)-1], substr)
}

var _ pve.Engine = (*Engine)(nil)
