// Package events defines event types and structures for rule execution
// notifications.
package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/dmateus/mordomo/pkg/models"
)

type EventType string

// Topic is the event bus topic all engine events are published on.
const Topic = "mordomo.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	RuleTriggeredEvent     EventType = "rule.triggered"
	ExecutionFinishedEvent EventType = "execution.finished"
	ExecutionFailedEvent   EventType = "execution.failed"
)

type BaseEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	RuleID    string         `json:"rule_id"`
	OwnerID   string         `json:"owner_id,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

func NewBaseEvent(eventType EventType, ruleID string) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		RuleID:    ruleID,
	}
}

// RuleTriggered is published when a rule matched an inbound event, fired on
// schedule, or was invoked manually. Workers consume it and run the
// pipeline.
type RuleTriggered struct {
	BaseEvent

	TriggerKind models.TriggerKind `json:"trigger_kind"`
	TriggerData map[string]any     `json:"trigger_data,omitempty"`
}

func (r RuleTriggered) GetType() EventType {
	return RuleTriggeredEvent
}

// ExecutionFinished is published after a run completed (success, partial or
// failed) with the resulting record.
type ExecutionFinished struct {
	BaseEvent

	ExecutionID string                 `json:"execution_id"`
	Status      models.ExecutionStatus `json:"status"`
	DurationMs  int64                  `json:"duration_ms"`
}

func (e ExecutionFinished) GetType() EventType {
	return ExecutionFinishedEvent
}

// ExecutionFailed is published when a run could not be started or an
// unexpected error escaped the action loop.
type ExecutionFailed struct {
	BaseEvent

	ExecutionID string `json:"execution_id,omitempty"`
	Error       string `json:"error"`
}

func (e ExecutionFailed) GetType() EventType {
	return ExecutionFailedEvent
}
