// SPDX-License-Identifier: MPL-2.0

package cmd

import "fmt"

type (
	// ExitError signals a non-zero exit code without forcing os.Exit in RunE handlers.
	ExitError struct {
		Code int
		Err  error
	}

	// UsageError reports a command line that could not be parsed.
	UsageError struct {
		Err error
	}
)

// Error returns the error message for ExitError.
func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

// Unwrap returns the underlying error, if any.
func (e *ExitError) Unwrap() error {
	return e.Err
}

// Error implements the error interface.
func (e *UsageError) Error() string { return e.Err.Error() }

// Unwrap returns the flag parsing error.
func (e *UsageError) Unwrap() error { return e.Err }
