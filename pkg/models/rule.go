// Package models defines the core domain models for the automation rule engine.
package models

import "time"

// TriggerKind identifies what class of event causes a rule to run.
type TriggerKind string

const (
	TriggerKindSchedule      TriggerKind = "schedule"
	TriggerKindEmail         TriggerKind = "email"
	TriggerKindSMS           TriggerKind = "sms"
	TriggerKindCalendarEvent TriggerKind = "calendar_event"
	TriggerKindWebhook       TriggerKind = "webhook"
	TriggerKindTimeBased     TriggerKind = "time_based"
)

// Trigger describes the condition class that causes a rule to run.
// Conditions are kind-specific: email triggers carry "patterns" (ordered
// list of substrings or regex fragments, OR-matched case-insensitively),
// schedule triggers carry "interval" (milliseconds) or "cron".
type Trigger struct {
	Kind       TriggerKind    `json:"kind"       validate:"required,oneof=schedule email sms calendar_event webhook time_based"`
	Conditions map[string]any `json:"conditions"`
}

// Rule is a named, owner-scoped trigger+actions definition.
type Rule struct {
	ID             string     `json:"id"`
	OwnerID        string     `json:"owner_id"    validate:"required"`
	Name           string     `json:"name"        validate:"required,min=3"`
	Description    string     `json:"description"`
	Trigger        Trigger    `json:"trigger"     validate:"required"`
	Actions        []Action   `json:"actions"     validate:"required,min=1,dive"`
	Enabled        bool       `json:"enabled"`
	CreatedAt      time.Time  `json:"created_at"`
	LastExecutedAt *time.Time `json:"last_executed_at,omitempty"`
	ExecutionCount int64      `json:"execution_count"`
}

// Patterns returns the email trigger patterns, or nil for other kinds.
func (r *Rule) Patterns() []string {
	raw, ok := r.Trigger.Conditions["patterns"]
	if !ok {
		return nil
	}

	switch v := raw.(type) {
	case []string:
		return v
	case []any:
		patterns := make([]string, 0, len(v))
		for _, p := range v {
			if s, ok := p.(string); ok {
				patterns = append(patterns, s)
			}
		}

		return patterns
	default:
		return nil
	}
}

// Clone returns a deep-enough copy for publishing outside the registry.
// Action configs are shared; they are treated as immutable by contract.
func (r *Rule) Clone() *Rule {
	clone := *r

	if r.LastExecutedAt != nil {
		at := *r.LastExecutedAt
		clone.LastExecutedAt = &at
	}

	clone.Actions = make([]Action, len(r.Actions))
	copy(clone.Actions, r.Actions)

	return &clone
}
