// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/charmbracelet/fang"

	"github.com/pveprov/pveprov/internal/config"
	"github.com/pveprov/pveprov/internal/install"
	"github.com/pveprov/pveprov/internal/issue"
	"github.com/pveprov/pveprov/internal/preflight"
	"github.com/pveprov/pveprov/internal/provision"
	"github.com/pveprov/pveprov/internal/pve"
	"github.com/pveprov/pveprov/internal/request"
	"github.com/pveprov/pveprov/internal/workflow"
)

func TestClassifyError(t *testing.T) {
	t.Parallel()

	cause := errors.New("exit status 1")
	tests := []struct {
		name string
		err  error
		want issue.Id
	}{
		{"usage", &UsageError{Err: cause}, issue.UsageId},
		{"validation", &request.ConfigValidationError{Field: "ctid", Reason: "bad"}, issue.ConfigInvalidId},
		{"config file", &config.InvalidConfigError{FieldErrs: []error{cause}}, issue.ConfigInvalidId},
		{"environment", &preflight.EnvironmentError{Missing: []pve.Tool{pve.ToolPct}}, issue.EnvironmentMissingId},
		{"architecture", &preflight.ArchitectureMismatchError{Host: pve.ArchARM64, Template: pve.ArchAMD64}, issue.ArchitectureMismatchId},
		{"conflict", &provision.ConflictError{ID: 150, Status: pve.StatusRunning}, issue.ContainerConflictId},
		{"template", &provision.TemplateFetchError{OS: "debian", Version: "12", Arch: pve.ArchAMD64, Err: cause}, issue.TemplateFetchFailedId},
		{"create", &provision.ProvisionError{ID: 150, Op: "create", Err: cause}, issue.ProvisionFailedId},
		{"start", &provision.StartError{ID: 150, NotReady: true, Err: cause}, issue.StartFailedId},
		{"install step", &install.InstallStepError{Step: "docker-engine", ExitCode: 100, Err: cause}, issue.InstallStepFailedId},
		{
			"wrapped in context",
			issue.NewErrorContext().WithOperation("start the container").Wrap(&provision.StartError{ID: 150, Err: cause}).BuildError(),
			issue.StartFailedId,
		},
		{"unclassified", cause, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := classifyError(tt.err); got != tt.want {
				t.Errorf("classifyError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPhaseOperation(t *testing.T) {
	t.Parallel()

	if got := phaseOperation(workflow.PhaseInstall); got != "install the application" {
		t.Errorf("phaseOperation(install) = %q", got)
	}
	if got := phaseOperation(workflow.PhaseDone); got != "provision the container" {
		t.Errorf("phaseOperation(done) = %q", got)
	}
}

func TestRenderError_AppendsGuidance(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	renderError(&buf, &provision.ConflictError{ID: 150, Status: pve.StatusRunning}, false, "notty")

	out := buf.String()
	if !strings.Contains(out, "Error:") || !strings.Contains(out, "150") {
		t.Errorf("missing error line:\n%s", out)
	}
	if !strings.Contains(out, "Container id already in use") {
		t.Errorf("missing catalog guidance:\n%s", out)
	}
}

func TestRenderError_Unclassified(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	renderError(&buf, errors.New("boom"), false, "notty")
	if got := strings.TrimSpace(buf.String()); !strings.HasSuffix(got, "boom") {
		t.Errorf("renderError() = %q", got)
	}
}

func TestErrorHandler_UnwrapsExitError(t *testing.T) {
	t.Parallel()

	app := newTestApp(t, nil, false)
	var buf bytes.Buffer
	app.errorHandler(&buf, fang.Styles{}, &ExitError{Code: 1, Err: &provision.ConflictError{ID: 150}})

	out := buf.String()
	if strings.Contains(out, "exit status") {
		t.Errorf("rendered the exit wrapper instead of the cause:\n%s", out)
	}
	if !strings.Contains(out, "Container id already in use") {
		t.Errorf("missing catalog guidance:\n%s", out)
	}
}

func TestPrintWarning(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	printWarning(&buf, "container 150 could not be stopped")
	if got := buf.String(); !strings.Contains(got, "Warning:") || !strings.HasSuffix(got, "could not be stopped\n") {
		t.Errorf("printWarning() = %q", got)
	}
}
