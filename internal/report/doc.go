// SPDX-License-Identifier: MPL-2.0

// Package report resolves the container's address and prints the closing
// summary. Nothing in this package fails the run.
package report
