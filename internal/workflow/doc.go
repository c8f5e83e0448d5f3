// SPDX-License-Identifier: MPL-2.0

// Package workflow runs the provisioning phases in order over one resolved
// request: preflight, id allocation, template, create, start, install and
// report. It stops at the first error and performs no rollback.
package workflow
