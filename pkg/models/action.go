package models

// ActionKind identifies one step type of a rule's pipeline.
type ActionKind string

const (
	ActionKindSendNotification    ActionKind = "send_notification"
	ActionKindCreateCalendarEntry ActionKind = "create_calendar_entry"
	ActionKindUpdateCalendarEntry ActionKind = "update_calendar_entry"
	ActionKindWebhookCall         ActionKind = "webhook_call"
	ActionKindWait                ActionKind = "wait"
	ActionKindConditional         ActionKind = "conditional"
)

// Action is one step of a rule's pipeline. Config values are passed to the
// executor verbatim; template placeholders inside them are not resolved by
// the engine.
type Action struct {
	Kind    ActionKind     `json:"kind"    validate:"required,oneof=send_notification create_calendar_entry update_calendar_entry webhook_call wait conditional"`
	Config  map[string]any `json:"config"`
	DelayMs int64          `json:"delay_ms,omitempty"`
}

// BranchActions decodes the true/false branch of a conditional action
// config. Entries that are not action-shaped maps are skipped.
func BranchActions(raw any) []Action {
	list, ok := raw.([]any)
	if !ok {
		if actions, ok := raw.([]Action); ok {
			return actions
		}

		return nil
	}

	actions := make([]Action, 0, len(list))

	for _, item := range list {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}

		action := Action{Config: map[string]any{}}

		if kind, ok := entry["kind"].(string); ok {
			action.Kind = ActionKind(kind)
		}

		if config, ok := entry["config"].(map[string]any); ok {
			action.Config = config
		}

		switch delay := entry["delay_ms"].(type) {
		case float64:
			action.DelayMs = int64(delay)
		case int64:
			action.DelayMs = delay
		case int:
			action.DelayMs = int64(delay)
		}

		actions = append(actions, action)
	}

	return actions
}
