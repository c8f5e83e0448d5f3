// SPDX-License-Identifier: MPL-2.0

package workflow

import "fmt"

// Phase identifies a step of the provisioning workflow.
type Phase int

const (
	// PhasePreflight checks host tools, terminal and architecture.
	PhasePreflight Phase = iota
	// PhaseAllocate picks the container id and resolves conflicts.
	PhaseAllocate
	// PhaseTemplate makes the OS template available locally.
	PhaseTemplate
	// PhaseCreate runs pct create.
	PhaseCreate
	// PhaseStart boots the container and waits for readiness.
	PhaseStart
	// PhaseInstall runs the install steps inside the container.
	PhaseInstall
	// PhaseReport resolves the address for the summary.
	PhaseReport
	// PhaseDone means every phase succeeded.
	PhaseDone
)

var phaseNames = [...]string{
	PhasePreflight: "preflight",
	PhaseAllocate:  "allocate",
	PhaseTemplate:  "template",
	PhaseCreate:    "create",
	PhaseStart:     "start",
	PhaseInstall:   "install",
	PhaseReport:    "report",
	PhaseDone:      "done",
}

// String returns the lowercase phase name.
func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return fmt.Sprintf("phase(%d)", int(p))
	}
	return phaseNames[p]
}
