// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/pveprov/pveprov/internal/config"
	"github.com/pveprov/pveprov/internal/install"
	"github.com/pveprov/pveprov/internal/issue"
	"github.com/pveprov/pveprov/internal/preflight"
	"github.com/pveprov/pveprov/internal/provision"
	"github.com/pveprov/pveprov/internal/request"
	"github.com/pveprov/pveprov/internal/workflow"
)

// classifyError maps a failure to the issue catalog entry with remediation
// guidance. It returns 0 when no entry applies.
func classifyError(err error) issue.Id {
	var usageErr *UsageError
	switch {
	case errors.As(err, &usageErr):
		return issue.UsageId
	case errors.Is(err, request.ErrConfigValidation), errors.Is(err, config.ErrInvalidConfig):
		return issue.ConfigInvalidId
	case errors.Is(err, preflight.ErrEnvironment):
		return issue.EnvironmentMissingId
	case errors.Is(err, preflight.ErrArchitectureMismatch):
		return issue.ArchitectureMismatchId
	case errors.Is(err, provision.ErrConflict):
		return issue.ContainerConflictId
	case errors.Is(err, provision.ErrTemplateFetch):
		return issue.TemplateFetchFailedId
	case errors.Is(err, provision.ErrProvision):
		return issue.ProvisionFailedId
	case errors.Is(err, provision.ErrStart):
		return issue.StartFailedId
	case errors.Is(err, install.ErrInstallStep):
		return issue.InstallStepFailedId
	default:
		return 0
	}
}

// phaseOperation names what a failed phase was doing, for "failed to ..." messages.
func phaseOperation(p workflow.Phase) string {
	switch p {
	case workflow.PhasePreflight:
		return "check the host"
	case workflow.PhaseAllocate:
		return "allocate a container id"
	case workflow.PhaseTemplate:
		return "fetch the OS template"
	case workflow.PhaseCreate:
		return "create the container"
	case workflow.PhaseStart:
		return "start the container"
	case workflow.PhaseInstall:
		return "install the application"
	default:
		return "provision the container"
	}
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
func formatErrorForDisplay(err error, verbose bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verbose)
	}
	return err.Error()
}

// renderError prints the styled error line followed by the catalog guidance
// for its category.
func renderError(w io.Writer, err error, verbose bool, style string) {
	fmt.Fprintf(w, "\n%s %s\n", ErrorStyle.Render("Error:"), formatErrorForDisplay(err, verbose))

	id := classifyError(err)
	if id == 0 {
		return
	}
	if entry := issue.Get(id); entry != nil {
		rendered, renderErr := entry.Render(style)
		if renderErr != nil {
			log.Warn("failed to render issue catalog entry", "issueID", id, "error", renderErr)
			return
		}
		fmt.Fprint(w, rendered)
	}
}

// printWarning prints a non-fatal warning with the amber marker.
func printWarning(w io.Writer, msg string) {
	fmt.Fprintf(w, "%s %s\n", WarningStyle.Render("Warning:"), msg)
}
