// SPDX-License-Identifier: MPL-2.0

package install

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"slices"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/pveprov/pveprov/internal/pve"
)

// MarkerPath is the install state file inside the container.
const MarkerPath = "/var/lib/pveprov/state.toml"

// Marker is the persisted install state.
type Marker struct {
	RunID         string    `toml:"run_id"`
	App           string    `toml:"app"`
	LastCompleted string    `toml:"last_completed"`
	Completed     []string  `toml:"completed"`
	UpdatedAt     time.Time `toml:"updated_at"`
}

// Done reports whether step is recorded as completed.
func (m Marker) Done(step string) bool {
	return slices.Contains(m.Completed, step)
}

// complete records step as the last completed one.
func (m *Marker) complete(step string, at time.Time) {
	if !m.Done(step) {
		m.Completed = append(m.Completed, step)
	}
	m.LastCompleted = step
	m.UpdatedAt = at
}

// ReadMarker loads the marker from the container. A missing or empty file
// yields the zero Marker.
func ReadMarker(ctx context.Context, engine pve.Engine, id pve.ContainerID) (Marker, error) {
	res, err := engine.Exec(ctx, id, pve.ExecOptions{
		Command: []string{"/bin/sh", "-c", "cat " + MarkerPath + " 2>/dev/null || true"},
	})
	if err != nil {
		return Marker{}, fmt.Errorf("read install marker: %w", err)
	}
	var m Marker
	if len(bytes.TrimSpace(res.Output)) == 0 {
		return m, nil
	}
	if err := toml.Unmarshal(res.Output, &m); err != nil {
		return Marker{}, fmt.Errorf("parse install marker %s: %w", MarkerPath, err)
	}
	return m, nil
}

// WriteMarker stores m in the container.
func WriteMarker(ctx context.Context, engine pve.Engine, id pve.ContainerID, m Marker) error {
	data, err := toml.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode install marker: %w", err)
	}
	res, err := engine.Exec(ctx, id, pve.ExecOptions{
		Command: []string{"/bin/sh", "-c", "mkdir -p " + path.Dir(MarkerPath) + " && cat > " + MarkerPath},
		Stdin:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("write install marker: %w", err)
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("write install marker: exit status %d: %s", res.ExitCode, tail(string(res.Output), 3))
	}
	return nil
}
