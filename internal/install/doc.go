// SPDX-License-Identifier: MPL-2.0

// Package install deploys the application inside a running container as an
// ordered list of named shell steps. Completed steps are recorded in a TOML
// marker inside the container so that a rerun skips what is already applied.
package install
