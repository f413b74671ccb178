// Package domain holds errors shared by every storefront domain package.
package domain

import (
	"errors"
	"fmt"
)

// ErrBackendUnavailable marks any failed read or write against the configured
// persistence backend.
var ErrBackendUnavailable = errors.New("backend unavailable")

// Unavailable wraps a driver error so callers can match ErrBackendUnavailable
// while still seeing the underlying cause.
func Unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrBackendUnavailable, err)
}
