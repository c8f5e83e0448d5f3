// SPDX-License-Identifier: MPL-2.0

package request

import (
	"errors"
	"fmt"
)

// ErrConfigValidation is the sentinel error wrapped by ConfigValidationError.
var ErrConfigValidation = errors.New("invalid configuration")

// ConfigValidationError is returned when a merged option is unusable, or when
// an interactive session ended before every answer was collected (Err is then
// the prompt's cancellation error).
type ConfigValidationError struct {
	Field  string
	Reason string
	Err    error
}

// Error implements the error interface.
func (e *ConfigValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid configuration: %s", e.Reason)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Unwrap returns ErrConfigValidation and, when set, the underlying cause.
func (e *ConfigValidationError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrConfigValidation}
	}
	return []error{ErrConfigValidation, e.Err}
}
