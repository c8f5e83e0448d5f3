// SPDX-License-Identifier: MPL-2.0

package pve

import (
	"context"
	"errors"
	"strings"
)

// IsTransientError reports whether err is a host command failure that may
// succeed on retry: network hiccups while pveam talks to the template
// mirror, or a busy container lock.
//
// Context cancellation and deadline errors are explicitly non-transient.
func IsTransientError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	errStr := err.Error()

	if strings.Contains(errStr, "Temporary failure resolving") ||
		strings.Contains(errStr, "Could not resolve host") ||
		strings.Contains(errStr, "connection timed out") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "Connection reset by peer") {
		return true
	}

	// pveam and pct serialize on per-guest and storage lock files.
	if strings.Contains(errStr, "can't lock file") ||
		strings.Contains(errStr, "got timeout") {
		return true
	}

	return false
}
