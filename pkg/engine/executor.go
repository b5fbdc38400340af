// Package engine implements the rule execution pipeline: matching, running
// ordered action pipelines, and dispatching scheduled and queued work.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmateus/mordomo/pkg/models"
	"github.com/dmateus/mordomo/pkg/registry"
	"github.com/dmateus/mordomo/pkg/rules"
)

var (
	// ErrRuleNotFound signals a run request for an unknown rule. No
	// execution record is produced.
	ErrRuleNotFound = errors.New("rule not found")

	// ErrRuleDisabled signals a run request for a disabled rule. No
	// execution record is produced.
	ErrRuleDisabled = errors.New("rule is disabled")
)

// Executor runs a rule's ordered action pipeline against an execution
// context, isolating per-action failures, appending the resulting record to
// the ledger and updating rule stats.
type Executor struct {
	registry  *rules.Registry
	executors *registry.Registry
	ledger    *rules.Ledger
	logger    *slog.Logger
}

func NewExecutor(ruleRegistry *rules.Registry, executorRegistry *registry.Registry, ledger *rules.Ledger, logger *slog.Logger) *Executor {
	return &Executor{
		registry:  ruleRegistry,
		executors: executorRegistry,
		ledger:    ledger,
		logger:    logger.With("module", "pipeline_executor"),
	}
}

// Run executes the rule's actions strictly in order. A single action
// failure never aborts the remaining pipeline; the aggregate status is
// derived from the per-action outcomes. The record is ledgered and stats
// are updated on every completed run, including fully failed ones.
func (e *Executor) Run(ctx context.Context, ruleID string, triggerData map[string]any) (*models.ExecutionRecord, error) {
	rule, err := e.registry.Get(ctx, ruleID)
	if err != nil {
		return nil, ErrRuleNotFound
	}

	if !rule.Enabled {
		return nil, ErrRuleDisabled
	}

	executionCtx := models.ExecutionContext{
		ExecutionID: "exec-" + uuid.New().String()[:8],
		OwnerID:     rule.OwnerID,
		TriggerData: triggerData,
		Timestamp:   time.Now().UTC(),
	}

	logger := e.logger.With(
		"rule_id", rule.ID,
		"owner_id", rule.OwnerID,
		"execution_id", executionCtx.ExecutionID,
	)
	logger.InfoContext(ctx, "Starting rule execution", "actions", len(rule.Actions))

	started := time.Now()

	record := &models.ExecutionRecord{
		ID:        uuid.New().String(),
		RuleID:    rule.ID,
		RuleName:  rule.Name,
		OwnerID:   rule.OwnerID,
		Timestamp: executionCtx.Timestamp,
	}

	results, runErr := e.runPipeline(ctx, logger, rule.Actions, executionCtx)

	record.Actions = results
	record.DurationMs = time.Since(started).Milliseconds()

	if runErr != nil {
		// The loop itself broke, not an individual action. The record is
		// still ledgered and stats still updated.
		logger.ErrorContext(ctx, "Run failed outside action isolation", "error", runErr)
		record.Status = models.ExecutionStatusFailed
		record.Error = runErr.Error()
	} else {
		record.Status = models.DeriveStatus(results)
	}

	e.ledger.Append(record)
	e.registry.UpdateStats(ctx, rule.ID, time.Now().UTC())

	logger.InfoContext(ctx, "Completed rule execution",
		"status", record.Status,
		"duration_ms", record.DurationMs,
	)

	return record, nil
}

// runPipeline guards the action loop against escaping panics, which mark
// the whole run failed. Outcomes appended before the panic stay on the
// record through the named return.
func (e *Executor) runPipeline(ctx context.Context, logger *slog.Logger, actions []models.Action, executionCtx models.ExecutionContext) (results []models.ActionResult, runErr error) {
	defer func() {
		if r := recover(); r != nil {
			runErr = fmt.Errorf("action loop panicked: %v", r)
		}
	}()

	results = make([]models.ActionResult, 0, len(actions))

	for _, action := range actions {
		if action.DelayMs > 0 {
			e.delay(ctx, logger, action.DelayMs)
		}

		results = append(results, e.runAction(ctx, logger, action, executionCtx))
	}

	return results, nil
}

// runActions executes a conditional branch's action list with the same
// per-action failure isolation as the top-level pipeline.
func (e *Executor) runActions(ctx context.Context, logger *slog.Logger, actions []models.Action, executionCtx models.ExecutionContext) []models.ActionResult {
	results := make([]models.ActionResult, 0, len(actions))

	for _, action := range actions {
		if action.DelayMs > 0 {
			e.delay(ctx, logger, action.DelayMs)
		}

		results = append(results, e.runAction(ctx, logger, action, executionCtx))
	}

	return results
}

func (e *Executor) runAction(ctx context.Context, logger *slog.Logger, action models.Action, executionCtx models.ExecutionContext) models.ActionResult {
	logger = logger.With("action_kind", action.Kind)

	if action.Kind == models.ActionKindConditional {
		return e.runConditional(ctx, logger, action, executionCtx)
	}

	executor, err := e.executors.CreateExecutor(action.Kind, action.Config)
	if err != nil {
		logger.WarnContext(ctx, "Failed to create action executor", "error", err)

		return failedResult(action.Kind, err)
	}

	outcome, err := executor.Execute(ctx, executionCtx, logger)
	if err != nil {
		logger.WarnContext(ctx, "Action failed, continuing pipeline", "error", err)

		return failedResult(action.Kind, err)
	}

	result := models.ActionResult{
		Kind:    action.Kind,
		Status:  models.ActionStatusSuccess,
		Message: outcome.Message,
		Details: outcome.Details,
	}

	return result
}

// runConditional evaluates the action's condition against trigger data and
// runs the chosen branch through the same action routine. Branch outcomes
// are not separately ledgered; only their counts surface in this action's
// own result.
func (e *Executor) runConditional(ctx context.Context, logger *slog.Logger, action models.Action, executionCtx models.ExecutionContext) models.ActionResult {
	matched := models.EvaluateCondition(action.Config["condition"], executionCtx.TriggerData)

	branch := "false"
	branchActions := models.BranchActions(action.Config["false_actions"])

	if matched {
		branch = "true"
		branchActions = models.BranchActions(action.Config["true_actions"])
	}

	logger.InfoContext(ctx, "Evaluated conditional", "branch", branch, "actions", len(branchActions))

	branchResults := e.runActions(ctx, logger.With("branch", branch), branchActions, executionCtx)

	failed := 0

	for _, result := range branchResults {
		if result.Status == models.ActionStatusFailed {
			failed++
		}
	}

	return models.ActionResult{
		Kind:    models.ActionKindConditional,
		Status:  models.ActionStatusSuccess,
		Message: fmt.Sprintf("executed %d actions from %s branch", len(branchResults), branch),
		Details: map[string]any{
			"branch":           branch,
			"actions_executed": len(branchResults),
			"actions_failed":   failed,
		},
	}
}

// delay suspends the pipeline before an action without blocking the
// process; other rules' executions keep running.
func (e *Executor) delay(ctx context.Context, logger *slog.Logger, delayMs int64) {
	logger.DebugContext(ctx, "Delaying action", "delay_ms", delayMs)

	timer := time.NewTimer(time.Duration(delayMs) * time.Millisecond)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

func failedResult(kind models.ActionKind, err error) models.ActionResult {
	return models.ActionResult{
		Kind:    kind,
		Status:  models.ActionStatusFailed,
		Message: err.Error(),
		Details: map[string]any{"error": err.Error()},
	}
}
