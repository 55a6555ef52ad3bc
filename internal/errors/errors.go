// SPDX-License-Identifier: AGPL-3.0-only
package errors

import (
	"errors"
	"fmt"
)

// ErrTooManyToolCycles is returned by the turn loop when a turn exceeds the
// configured maximum number of dispatch cycles.
var ErrTooManyToolCycles = errors.New("tool loop exceeded maximum dispatch cycles")

// NotFound creates a formatted "not found" error
func NotFound(resource, id string) error {
	return fmt.Errorf("resource not found: %s with ID %s", resource, id)
}

// InvalidInput creates a formatted "invalid input" error
func InvalidInput(reason string) error {
	return fmt.Errorf("invalid input: %s", reason)
}

// ExternalCall creates an error describing a failed external-service call
func ExternalCall(service string, err error) error {
	return fmt.Errorf("%s call failed: %v", service, err)
}

// Internal creates a formatted "internal error" error
func Internal(err error) error {
	return fmt.Errorf("internal error: %v", err)
}
