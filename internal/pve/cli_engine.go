// SPDX-License-Identifier: MPL-2.0

package pve

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"slices"
	"sort"
	"strings"

	"github.com/charmbracelet/log"
)

const redacted = "********"

type (
	// ExecCommandFunc is the function signature for creating exec.Cmd.
	// This allows injection of mock implementations for testing.
	ExecCommandFunc func(ctx context.Context, name string, arg ...string) *exec.Cmd

	// LookPathFunc resolves a tool name to a binary path.
	LookPathFunc func(file string) (string, error)

	// CLIEngineOption configures a CLIEngine.
	CLIEngineOption func(*CLIEngine)

	// CLIEngine implements Engine by running pct, pveam and qm.
	CLIEngine struct {
		paths       map[Tool]string
		execCommand ExecCommandFunc
		lookPath    LookPathFunc
		logger      *log.Logger
	}

	// CommandError describes a host command that exited unsuccessfully.
	// Args are already redacted and safe to print.
	CommandError struct {
		Tool     Tool
		Args     []string
		ExitCode int
		Output   string
		Err      error
	}
)

// Error implements the error interface.
func (e *CommandError) Error() string {
	msg := fmt.Sprintf("%s %s: %v", e.Tool, strings.Join(e.Args, " "), e.Err)
	if out := strings.TrimSpace(e.Output); out != "" {
		msg += ": " + lastLines(out, 3)
	}
	return msg
}

// Unwrap returns the underlying exec error.
func (e *CommandError) Unwrap() error { return e.Err }

// WithExecCommand sets a custom exec command function for testing.
func WithExecCommand(fn ExecCommandFunc) CLIEngineOption {
	return func(e *CLIEngine) {
		e.execCommand = fn
	}
}

// WithLookPath sets a custom binary resolver for testing.
func WithLookPath(fn LookPathFunc) CLIEngineOption {
	return func(e *CLIEngine) {
		e.lookPath = fn
	}
}

// WithLogger sets the logger used to trace every host command at debug level.
func WithLogger(l *log.Logger) CLIEngineOption {
	return func(e *CLIEngine) {
		e.logger = l
	}
}

// NewCLIEngine creates an engine, resolving pct, pveam and qm on PATH.
// Missing tools are recorded, not fatal; Available reports them.
func NewCLIEngine(opts ...CLIEngineOption) *CLIEngine {
	e := &CLIEngine{
		paths:       make(map[Tool]string),
		execCommand: exec.CommandContext,
		lookPath:    exec.LookPath,
		logger:      log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(e)
	}
	for _, tool := range []Tool{ToolPct, ToolPveam, ToolQm} {
		if path, err := e.lookPath(string(tool)); err == nil {
			e.paths[tool] = path
		}
	}
	return e
}

// Available reports whether the tool was found at construction time.
func (e *CLIEngine) Available(tool Tool) bool {
	return e.paths[tool] != ""
}

// --- Argument Builders ---

// CreateArgs constructs the arguments of a pct create call.
//
// Generated command: pct create <id> <storage>:vztmpl/<template> [options]
func (e *CLIEngine) CreateArgs(opts CreateOptions) []string {
	args := []string{
		"create", opts.ID.String(), opts.Template.VolumeID(opts.TemplateStorage),
		"--hostname", opts.Hostname,
		"--cores", fmt.Sprint(opts.Cores),
		"--memory", fmt.Sprint(opts.MemoryMB),
		"--swap", fmt.Sprint(opts.SwapMB),
		"--rootfs", fmt.Sprintf("%s:%d", opts.Storage, opts.DiskGB),
		"--net0", opts.Network.Descriptor(),
		"--unprivileged", boolFlag(opts.Unprivileged),
	}

	if features := opts.Features.String(); features != "" {
		args = append(args, "--features", features)
	}
	if opts.Password != "" {
		args = append(args, "--password", opts.Password)
	}
	if opts.OSType != "" {
		args = append(args, "--ostype", opts.OSType)
	}
	if opts.Arch != "" {
		args = append(args, "--arch", string(opts.Arch))
	}
	if opts.OnBoot {
		args = append(args, "--onboot", "1")
	}
	if opts.Description != "" {
		args = append(args, "--description", opts.Description)
	}
	if len(opts.Tags) > 0 {
		args = append(args, "--tags", strings.Join(opts.Tags, ";"))
	}

	return args
}

// ExecArgs constructs the arguments of a pct exec call. Environment
// variables are passed through env(1), sorted by key.
//
// Generated command: pct exec <id> -- [env K=V...] <command...>
func (e *CLIEngine) ExecArgs(id ContainerID, opts ExecOptions) []string {
	args := []string{"exec", id.String(), "--"}

	if len(opts.Env) > 0 {
		keys := make([]string, 0, len(opts.Env))
		for k := range opts.Env {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		args = append(args, "env")
		for _, k := range keys {
			args = append(args, k+"="+opts.Env[k])
		}
	}

	return append(args, opts.Command...)
}

// DestroyArgs constructs the arguments of a pct destroy call.
// --purge also drops the id from backup jobs and HA configuration.
func (e *CLIEngine) DestroyArgs(id ContainerID) []string {
	return []string{"destroy", id.String(), "--purge"}
}

// --- Engine Methods ---

// ListIDs returns the sorted, de-duplicated ids of containers and, when qm
// is installed, virtual machines.
func (e *CLIEngine) ListIDs(ctx context.Context) ([]ContainerID, error) {
	out, err := e.RunCommandWithOutput(ctx, ToolPct, "list")
	if err != nil {
		return nil, err
	}
	ids := ParseGuestList(out)

	if e.Available(ToolQm) {
		vmOut, err := e.RunCommandWithOutput(ctx, ToolQm, "list")
		if err != nil {
			return nil, err
		}
		ids = append(ids, ParseGuestList(vmOut)...)
	}

	slices.Sort(ids)
	return slices.Compact(ids), nil
}

// Status returns the container state. A missing configuration file is
// reported as StatusMissing rather than an error.
func (e *CLIEngine) Status(ctx context.Context, id ContainerID) (Status, error) {
	out, err := e.RunCommandCombined(ctx, ToolPct, "status", id.String())
	if err != nil {
		if strings.Contains(string(out), "does not exist") {
			return StatusMissing, nil
		}
		return "", err
	}
	status, ok := ParseStatus(string(out))
	if !ok {
		return "", fmt.Errorf("unexpected pct status output %q", strings.TrimSpace(string(out)))
	}
	return status, nil
}

// Create validates opts and runs pct create.
func (e *CLIEngine) Create(ctx context.Context, opts CreateOptions) error {
	if err := opts.Validate(); err != nil {
		return err
	}
	_, err := e.RunCommandCombined(ctx, ToolPct, e.CreateArgs(opts)...)
	return err
}

// Start runs pct start.
func (e *CLIEngine) Start(ctx context.Context, id ContainerID) error {
	_, err := e.RunCommandCombined(ctx, ToolPct, "start", id.String())
	return err
}

// Stop runs pct stop.
func (e *CLIEngine) Stop(ctx context.Context, id ContainerID) error {
	_, err := e.RunCommandCombined(ctx, ToolPct, "stop", id.String())
	return err
}

// Destroy runs pct destroy --purge.
func (e *CLIEngine) Destroy(ctx context.Context, id ContainerID) error {
	_, err := e.RunCommandCombined(ctx, ToolPct, e.DestroyArgs(id)...)
	return err
}

// Exec runs a command in a running container. A non-zero exit code is
// captured in ExecResult.ExitCode; only infrastructure failures (binary
// missing, context cancelled) are returned as errors.
func (e *CLIEngine) Exec(ctx context.Context, id ContainerID, opts ExecOptions) (*ExecResult, error) {
	cmd, err := e.CreateCommand(ctx, ToolPct, e.ExecArgs(id, opts)...)
	if err != nil {
		return nil, err
	}
	cmd.Stdin = opts.Stdin

	var combined bytes.Buffer
	if opts.Stdout == nil && opts.Stderr == nil {
		cmd.Stdout = &combined
		cmd.Stderr = &combined
	} else {
		cmd.Stdout = opts.Stdout
		cmd.Stderr = opts.Stderr
	}

	result := &ExecResult{}
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) || ctx.Err() != nil {
			return nil, fmt.Errorf("pct exec %s: %w", id, err)
		}
		result.ExitCode = exitErr.ExitCode()
	}
	result.Output = combined.Bytes()
	return result, nil
}

// LocalTemplates runs pveam list on storage.
func (e *CLIEngine) LocalTemplates(ctx context.Context, storage string) ([]TemplateName, error) {
	out, err := e.RunCommandWithOutput(ctx, ToolPveam, "list", storage)
	if err != nil {
		return nil, err
	}
	return ParseLocalTemplates(out), nil
}

// AvailableTemplates runs pveam available for the system section.
func (e *CLIEngine) AvailableTemplates(ctx context.Context) ([]TemplateName, error) {
	out, err := e.RunCommandWithOutput(ctx, ToolPveam, "available", "--section", "system")
	if err != nil {
		return nil, err
	}
	return ParseAvailableTemplates(out), nil
}

// UpdateTemplateIndex runs pveam update.
func (e *CLIEngine) UpdateTemplateIndex(ctx context.Context) error {
	_, err := e.RunCommandCombined(ctx, ToolPveam, "update")
	return err
}

// DownloadTemplate runs pveam download.
func (e *CLIEngine) DownloadTemplate(ctx context.Context, storage string, name TemplateName) error {
	_, err := e.RunCommandCombined(ctx, ToolPveam, "download", storage, string(name))
	return err
}

// --- Command Execution ---

// RunCommandCombined executes a host command and returns combined
// stdout/stderr. On failure the output is returned too, and the error is a
// *CommandError.
func (e *CLIEngine) RunCommandCombined(ctx context.Context, tool Tool, args ...string) ([]byte, error) {
	cmd, err := e.CreateCommand(ctx, tool, args...)
	if err != nil {
		return nil, err
	}
	out, err := cmd.CombinedOutput()
	if err != nil {
		return out, newCommandError(tool, args, out, err)
	}
	return out, nil
}

// RunCommandWithOutput executes a host command with stdout captured to a
// string; stderr only surfaces in the error.
func (e *CLIEngine) RunCommandWithOutput(ctx context.Context, tool Tool, args ...string) (string, error) {
	cmd, err := e.CreateCommand(ctx, tool, args...)
	if err != nil {
		return "", err
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", newCommandError(tool, args, stderr.Bytes(), err)
	}
	return stdout.String(), nil
}

// CreateCommand creates an exec.Cmd for a host tool and traces it at debug
// level with secrets redacted.
func (e *CLIEngine) CreateCommand(ctx context.Context, tool Tool, args ...string) (*exec.Cmd, error) {
	path := e.paths[tool]
	if path == "" {
		return nil, &ToolNotAvailableError{Tool: tool}
	}
	e.logger.Debug("exec", "cmd", string(tool)+" "+strings.Join(RedactArgs(args), " "))
	return e.execCommand(ctx, path, args...), nil
}

// RedactArgs returns a copy of args with the value following --password
// replaced.
func RedactArgs(args []string) []string {
	out := slices.Clone(args)
	for i := 0; i+1 < len(out); i++ {
		if out[i] == "--password" {
			out[i+1] = redacted
		}
	}
	return out
}

func newCommandError(tool Tool, args []string, out []byte, err error) *CommandError {
	ce := &CommandError{
		Tool:   tool,
		Args:   RedactArgs(args),
		Output: string(out),
		Err:    err,
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		ce.ExitCode = exitErr.ExitCode()
	}
	return ce
}

// lastLines returns at most n trailing lines of s, joined with " | ".
func lastLines(s string, n int) string {
	lines := strings.Split(s, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, " | ")
}
