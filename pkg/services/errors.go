// Package services exposes the rule CRUD / execution surface consumed by
// the API layer.
package services

import (
	"errors"
	"fmt"
)

// ErrRuleNotFound indicates the rule id could not be resolved.
var ErrRuleNotFound = errors.New("rule not found")

// ValidationError wraps an invalid request before it reaches the registry.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %v", e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError creates a validation error.
func NewValidationError(err error) *ValidationError {
	return &ValidationError{Err: err}
}

// IsValidationError checks whether err is a request validation failure.
func IsValidationError(err error) bool {
	var validationErr *ValidationError

	return errors.As(err, &validationErr)
}
