package models

import "time"

// ExecutionStatus is the aggregate outcome of one rule run.
type ExecutionStatus string

const (
	ExecutionStatusSuccess ExecutionStatus = "success"
	ExecutionStatusFailed  ExecutionStatus = "failed"
	ExecutionStatusPartial ExecutionStatus = "partial"
)

// ActionStatus is the outcome of a single action within a run.
type ActionStatus string

const (
	ActionStatusSuccess ActionStatus = "success"
	ActionStatusFailed  ActionStatus = "failed"
)

// ActionResult records the outcome of one executed action.
type ActionResult struct {
	Kind    ActionKind     `json:"kind"`
	Status  ActionStatus   `json:"status"`
	Message string         `json:"message,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// ExecutionRecord is the audit entry summarizing one rule run. Records are
// immutable once appended to the ledger.
type ExecutionRecord struct {
	ID         string          `json:"id"`
	RuleID     string          `json:"rule_id"`
	RuleName   string          `json:"rule_name"`
	OwnerID    string          `json:"owner_id"`
	Status     ExecutionStatus `json:"status"`
	Timestamp  time.Time       `json:"timestamp"`
	Actions    []ActionResult  `json:"actions"`
	Error      string          `json:"error,omitempty"`
	DurationMs int64           `json:"duration_ms"`
}

// DeriveStatus aggregates per-action outcomes: success when every action
// succeeded, failed when every action failed, partial otherwise. A run with
// no recorded actions counts as success.
func DeriveStatus(results []ActionResult) ExecutionStatus {
	failed := 0

	for _, result := range results {
		if result.Status == ActionStatusFailed {
			failed++
		}
	}

	switch {
	case failed == 0:
		return ExecutionStatusSuccess
	case failed == len(results):
		return ExecutionStatusFailed
	default:
		return ExecutionStatusPartial
	}
}
