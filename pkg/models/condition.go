// Package models provides condition evaluation for conditional actions.
package models

import (
	"fmt"
	"strconv"
	"strings"
)

// Condition is the structured comparison form of a conditional action:
// {type, field, value} compared against the execution context's trigger
// data. A bare boolean-as-string ("true"/"false") is also accepted.
type Condition struct {
	Type  string `json:"type"`
	Field string `json:"field"`
	Value any    `json:"value"`
}

// EvaluateCondition evaluates a conditional action's "condition" config
// value against trigger data. Unsupported shapes evaluate to false rather
// than erroring, so a malformed conditional never takes down a pipeline.
func EvaluateCondition(raw any, triggerData map[string]any) bool {
	switch v := raw.(type) {
	case bool:
		return v
	case string:
		result, err := strconv.ParseBool(v)
		if err != nil {
			return false
		}

		return result
	case map[string]any:
		cond := Condition{Field: stringValue(v["field"]), Value: v["value"]}
		cond.Type = stringValue(v["type"])

		return cond.Evaluate(triggerData)
	case Condition:
		return v.Evaluate(triggerData)
	default:
		return false
	}
}

// Evaluate compares the condition against triggerData[cond.Field].
func (c Condition) Evaluate(triggerData map[string]any) bool {
	if c.Field == "" {
		return false
	}

	actual, ok := triggerData[c.Field]
	if !ok {
		return false
	}

	switch c.Type {
	case "equals":
		return stringValue(actual) == stringValue(c.Value)
	case "contains":
		return strings.Contains(stringValue(actual), stringValue(c.Value))
	case "greater_than":
		left, right, ok := numericPair(actual, c.Value)

		return ok && left > right
	case "less_than":
		left, right, ok := numericPair(actual, c.Value)

		return ok && left < right
	default:
		return false
	}
}

func stringValue(v any) string {
	if v == nil {
		return ""
	}

	if s, ok := v.(string); ok {
		return s
	}

	return fmt.Sprintf("%v", v)
}

func numericPair(a, b any) (float64, float64, bool) {
	left, okA := toFloat(a)
	right, okB := toFloat(b)

	return left, right, okA && okB
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)

		return f, err == nil
	default:
		return 0, false
	}
}
