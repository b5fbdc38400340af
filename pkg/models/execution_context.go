package models

import "time"

// ExecutionContext is the immutable per-run snapshot handed to every action
// in one run. TriggerData carries the event payload (matched email, derived
// fields) that conditional actions and templated configs read from.
type ExecutionContext struct {
	ExecutionID string         `json:"execution_id"`
	OwnerID     string         `json:"owner_id"`
	TriggerData map[string]any `json:"trigger_data,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
}
