// Package persistence provides standardized error types for store operations.
package persistence

import (
	"errors"
	"fmt"
)

var (
	// ErrRuleNotFound indicates a rule was not found by the given identifier.
	ErrRuleNotFound = errors.New("rule not found")

	// ErrRuleAlreadyExists indicates a rule with the same identifier already exists.
	ErrRuleAlreadyExists = errors.New("rule already exists")
)

// RuleError wraps rule store errors with operation context.
type RuleError struct {
	Op     string // Operation being performed (e.g., "RuleByID", "Save", "Delete")
	RuleID string // Rule ID if applicable
	Err    error  // Underlying error
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("%s operation failed for rule %s: %v", e.Op, e.RuleID, e.Err)
}

func (e *RuleError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for rule store errors.
func (e *RuleError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewRuleError creates a new rule store error with context.
func NewRuleError(op, ruleID string, err error) *RuleError {
	return &RuleError{
		Op:     op,
		RuleID: ruleID,
		Err:    err,
	}
}

// IsRuleNotFound checks if an error indicates a rule was not found.
func IsRuleNotFound(err error) bool {
	return errors.Is(err, ErrRuleNotFound)
}
