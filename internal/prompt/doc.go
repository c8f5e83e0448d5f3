// SPDX-License-Identifier: MPL-2.0

// Package prompt is the interactive front end of option resolution. It wraps
// charmbracelet/huh forms behind a small Prompter interface and turns the
// user's answers into a request.Input layer; it never builds the request
// itself.
package prompt
