package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvaluateCondition_LiteralBooleans(t *testing.T) {
	data := map[string]any{}

	assert.True(t, EvaluateCondition(true, data))
	assert.True(t, EvaluateCondition("true", data))
	assert.False(t, EvaluateCondition(false, data))
	assert.False(t, EvaluateCondition("false", data))
}

func TestEvaluateCondition_Equals(t *testing.T) {
	data := map[string]any{"region": "EU"}

	assert.True(t, EvaluateCondition(map[string]any{
		"type": "equals", "field": "region", "value": "EU",
	}, data))

	assert.False(t, EvaluateCondition(map[string]any{
		"type": "equals", "field": "region", "value": "US",
	}, data))
}

func TestEvaluateCondition_Contains(t *testing.T) {
	data := map[string]any{"subject": "Re: appointment confirmed"}

	assert.True(t, EvaluateCondition(map[string]any{
		"type": "contains", "field": "subject", "value": "appointment",
	}, data))

	assert.False(t, EvaluateCondition(map[string]any{
		"type": "contains", "field": "subject", "value": "invoice",
	}, data))
}

func TestEvaluateCondition_NumericComparisons(t *testing.T) {
	data := map[string]any{"amount": 42.5}

	assert.True(t, EvaluateCondition(map[string]any{
		"type": "greater_than", "field": "amount", "value": 10,
	}, data))

	assert.True(t, EvaluateCondition(map[string]any{
		"type": "less_than", "field": "amount", "value": "100",
	}, data))

	assert.False(t, EvaluateCondition(map[string]any{
		"type": "greater_than", "field": "amount", "value": 100,
	}, data))
}

func TestEvaluateCondition_UnsupportedShapesNeverThrow(t *testing.T) {
	data := map[string]any{"region": "EU"}

	assert.False(t, EvaluateCondition(nil, data))
	assert.False(t, EvaluateCondition(42, data))
	assert.False(t, EvaluateCondition("not-a-bool", data))
	assert.False(t, EvaluateCondition(map[string]any{"type": "regex_match", "field": "region", "value": ".*"}, data))
	assert.False(t, EvaluateCondition(map[string]any{"type": "equals", "field": "missing", "value": "x"}, data))
	assert.False(t, EvaluateCondition(map[string]any{"type": "equals"}, data))
}

func TestDeriveStatus(t *testing.T) {
	success := ActionResult{Status: ActionStatusSuccess}
	failed := ActionResult{Status: ActionStatusFailed}

	assert.Equal(t, ExecutionStatusSuccess, DeriveStatus([]ActionResult{success, success}))
	assert.Equal(t, ExecutionStatusFailed, DeriveStatus([]ActionResult{failed, failed}))
	assert.Equal(t, ExecutionStatusPartial, DeriveStatus([]ActionResult{success, failed}))
	assert.Equal(t, ExecutionStatusSuccess, DeriveStatus(nil))
}

func TestRulePatterns(t *testing.T) {
	rule := Rule{Trigger: Trigger{
		Kind: TriggerKindEmail,
		Conditions: map[string]any{
			"patterns": []any{"doctor", "dentist", 42},
		},
	}}

	assert.Equal(t, []string{"doctor", "dentist"}, rule.Patterns())

	noPatterns := Rule{Trigger: Trigger{Kind: TriggerKindSchedule, Conditions: map[string]any{}}}
	assert.Nil(t, noPatterns.Patterns())
}

func TestBranchActions(t *testing.T) {
	raw := []any{
		map[string]any{
			"kind":     "send_notification",
			"config":   map[string]any{"message": "hi"},
			"delay_ms": float64(250),
		},
		"not-an-action",
	}

	actions := BranchActions(raw)

	assert.Len(t, actions, 1)
	assert.Equal(t, ActionKindSendNotification, actions[0].Kind)
	assert.Equal(t, "hi", actions[0].Config["message"])
	assert.Equal(t, int64(250), actions[0].DelayMs)

	assert.Nil(t, BranchActions(nil))
	assert.Nil(t, BranchActions("nope"))
}
