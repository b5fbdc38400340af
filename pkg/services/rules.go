package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/dmateus/mordomo/pkg/engine"
	"github.com/dmateus/mordomo/pkg/models"
	"github.com/dmateus/mordomo/pkg/persistence"
	"github.com/dmateus/mordomo/pkg/rules"
)

// RuleService is the thin pass-through surface over the registry, ledger,
// executor and scheduler that the API layer consumes.
type RuleService struct {
	registry  *rules.Registry
	ledger    *rules.Ledger
	executor  *engine.Executor
	scheduler *engine.Scheduler
	store     persistence.RuleStore
	validate  *validator.Validate
	logger    *slog.Logger
}

func NewRuleService(
	registry *rules.Registry,
	ledger *rules.Ledger,
	executor *engine.Executor,
	scheduler *engine.Scheduler,
	store persistence.RuleStore,
	logger *slog.Logger,
) *RuleService {
	return &RuleService{
		registry:  registry,
		ledger:    ledger,
		executor:  executor,
		scheduler: scheduler,
		store:     store,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		logger:    logger.With("module", "rule_service"),
	}
}

// ExecuteResult is what callers of ExecuteRule receive. Success reports
// whether the run produced anything useful; partial runs still count as
// success and are distinguished through Record.Status.
type ExecuteResult struct {
	Success bool                    `json:"success"`
	Record  *models.ExecutionRecord `json:"execution_log,omitempty"`
}

func (s *RuleService) ListRulesForOwner(ctx context.Context, ownerID string) []*models.Rule {
	return s.registry.Load(ctx, ownerID)
}

func (s *RuleService) GetRule(ctx context.Context, id string) (*models.Rule, error) {
	rule, err := s.registry.Get(ctx, id)
	if err != nil {
		return nil, ErrRuleNotFound
	}

	return rule, nil
}

// CreateRule validates and persists a new rule, and installs its schedule
// when applicable.
func (s *RuleService) CreateRule(ctx context.Context, rule *models.Rule) (*models.Rule, error) {
	if err := s.validate.Struct(rule); err != nil {
		return nil, NewValidationError(err)
	}

	rule.ID = ""
	rule.ExecutionCount = 0
	rule.LastExecutedAt = nil

	id := s.registry.Upsert(ctx, rule)
	rule.ID = id

	s.reschedule(rule)

	s.logger.InfoContext(ctx, "Created rule", "rule_id", id, "owner_id", rule.OwnerID)

	return rule, nil
}

// UpdateRule applies edits to name/description/trigger/actions/enabled.
// Stats fields are preserved from the existing rule.
func (s *RuleService) UpdateRule(ctx context.Context, id string, rule *models.Rule) (*models.Rule, error) {
	existing, err := s.registry.Get(ctx, id)
	if err != nil {
		return nil, ErrRuleNotFound
	}

	rule.ID = id
	rule.CreatedAt = existing.CreatedAt
	rule.ExecutionCount = existing.ExecutionCount
	rule.LastExecutedAt = existing.LastExecutedAt

	if err := s.validate.Struct(rule); err != nil {
		return nil, NewValidationError(err)
	}

	s.registry.Upsert(ctx, rule)
	s.reschedule(rule)

	return rule, nil
}

// DeleteRule removes the rule from scheduler, store and registry. In-flight
// executions already queued for it complete as no-ops in the worker.
func (s *RuleService) DeleteRule(ctx context.Context, id string) (bool, error) {
	s.scheduler.Unregister(id)

	deleted, err := s.registry.Delete(ctx, id)
	if err != nil {
		// Best-effort store fallback: the registry entry is gone either way.
		s.logger.WarnContext(ctx, "Rule deleted from registry, store delete failed",
			"rule_id", id, "error", err)
	}

	return deleted, nil
}

// ToggleRule flips the enabled flag.
func (s *RuleService) ToggleRule(ctx context.Context, id string, enabled bool) (*models.Rule, error) {
	rule, err := s.registry.Get(ctx, id)
	if err != nil {
		return nil, ErrRuleNotFound
	}

	rule.Enabled = enabled
	s.registry.Upsert(ctx, rule)
	s.reschedule(rule)

	return rule, nil
}

// ExecuteRule runs a rule on demand. Missing or disabled rules yield
// Success=false with no record and no ledger entry.
func (s *RuleService) ExecuteRule(ctx context.Context, id string, triggerData map[string]any) (*ExecuteResult, error) {
	if triggerData == nil {
		triggerData = map[string]any{"manual": true}
	}

	record, err := s.executor.Run(ctx, id, triggerData)
	if err != nil {
		if errors.Is(err, engine.ErrRuleNotFound) || errors.Is(err, engine.ErrRuleDisabled) {
			return &ExecuteResult{Success: false}, nil
		}

		return nil, err
	}

	return &ExecuteResult{
		Success: record.Status != models.ExecutionStatusFailed,
		Record:  record,
	}, nil
}

func (s *RuleService) ListExecutionLogs(ownerID string, limit int) []*models.ExecutionRecord {
	return s.ledger.ListForOwner(ownerID, limit)
}

func (s *RuleService) ListExecutionLogsForRule(ruleID string, limit int) []*models.ExecutionRecord {
	return s.ledger.ListForRule(ruleID, limit)
}

// HealthCheck reports store health.
func (s *RuleService) HealthCheck(ctx context.Context) error {
	return s.store.HealthCheck(ctx)
}

// reschedule keeps the scheduler consistent with the rule's current
// definition: idempotent re-register for enabled schedule rules, removal
// otherwise.
func (s *RuleService) reschedule(rule *models.Rule) {
	schedulable := rule.Trigger.Kind == models.TriggerKindSchedule ||
		rule.Trigger.Kind == models.TriggerKindTimeBased

	if schedulable && rule.Enabled {
		if err := s.scheduler.Register(rule); err != nil {
			s.logger.Warn("Failed to schedule rule", "rule_id", rule.ID, "error", err)
		}

		return
	}

	s.scheduler.Unregister(rule.ID)
}
