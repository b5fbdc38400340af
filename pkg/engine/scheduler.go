package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/dmateus/mordomo/pkg/eventbus"
	"github.com/dmateus/mordomo/pkg/events"
	"github.com/dmateus/mordomo/pkg/models"
	"github.com/dmateus/mordomo/pkg/rules"
)

// Scheduler re-invokes schedule-triggered rules for the lifetime of the
// process. Rules with conditions.interval (milliseconds) fire on a fixed
// period; rules with conditions.cron fire per a standard cron expression.
// Cron parsing is delegated to robfig/cron; the scheduler only owns
// dispatch and idempotent rescheduling.
type Scheduler struct {
	registry  *rules.Registry
	publisher eventbus.EventPublisher
	logger    *slog.Logger
	cron      *cron.Cron

	mu      sync.Mutex
	ctx     context.Context
	entries map[string]*scheduleEntry
}

type scheduleEntry struct {
	cancel context.CancelFunc
	cronID cron.EntryID
	isCron bool
}

func NewScheduler(registry *rules.Registry, publisher eventbus.EventPublisher, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		registry:  registry,
		publisher: publisher,
		logger:    logger.With("module", "scheduler"),
		cron: cron.New(cron.WithChain(
			cron.SkipIfStillRunning(cron.DefaultLogger),
			cron.Recover(cron.DefaultLogger),
		)),
		ctx:     context.Background(),
		entries: make(map[string]*scheduleEntry),
	}
}

// Start registers every schedule-kind rule currently in the registry and
// begins dispatching.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	registered := 0

	for _, kind := range []models.TriggerKind{models.TriggerKindSchedule, models.TriggerKindTimeBased} {
		for _, rule := range s.registry.ByKind(kind) {
			if !rule.Enabled {
				continue
			}

			if err := s.Register(rule); err != nil {
				s.logger.WarnContext(ctx, "Skipping unschedulable rule", "rule_id", rule.ID, "error", err)

				continue
			}

			registered++
		}
	}

	s.cron.Start()
	s.logger.InfoContext(ctx, "Scheduler started", "rules", registered)

	return nil
}

// Register installs the rule's timer. Re-registering the same rule id
// cancels any previously scheduled timer first, so an edited rule never
// fires twice per period.
func (s *Scheduler) Register(rule *models.Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.remove(rule.ID)

	if interval := intervalMs(rule.Trigger.Conditions); interval > 0 {
		tickCtx, cancel := context.WithCancel(s.ctx)
		s.entries[rule.ID] = &scheduleEntry{cancel: cancel}

		go s.tick(tickCtx, rule.ID, rule.Trigger.Kind, time.Duration(interval)*time.Millisecond)

		s.logger.Info("Registered interval rule", "rule_id", rule.ID, "interval_ms", interval)

		return nil
	}

	if expr, ok := rule.Trigger.Conditions["cron"].(string); ok && expr != "" {
		ruleID, kind := rule.ID, rule.Trigger.Kind

		cronID, err := s.cron.AddFunc(expr, func() {
			s.fire(s.context(), ruleID, kind)
		})
		if err != nil {
			return fmt.Errorf("invalid cron expression for rule %s: %w", rule.ID, err)
		}

		s.entries[rule.ID] = &scheduleEntry{cronID: cronID, isCron: true}
		s.logger.Info("Registered cron rule", "rule_id", rule.ID, "cron", expr)

		return nil
	}

	return fmt.Errorf("rule %s has neither interval nor cron condition", rule.ID)
}

// Unregister cancels the rule's timer, if any.
func (s *Scheduler) Unregister(ruleID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.remove(ruleID)
}

// Stop cancels all timers and stops the cron dispatcher.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id := range s.entries {
		s.remove(id)
	}

	s.cron.Stop()
}

// remove must be called with the mutex held.
func (s *Scheduler) remove(ruleID string) {
	entry, ok := s.entries[ruleID]
	if !ok {
		return
	}

	if entry.isCron {
		s.cron.Remove(entry.cronID)
	} else {
		entry.cancel()
	}

	delete(s.entries, ruleID)
}

func (s *Scheduler) context() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.ctx
}

func (s *Scheduler) tick(ctx context.Context, ruleID string, kind models.TriggerKind, period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.fire(ctx, ruleID, kind)
		case <-ctx.Done():
			return
		}
	}
}

func (s *Scheduler) fire(ctx context.Context, ruleID string, kind models.TriggerKind) {
	triggered := events.RuleTriggered{
		BaseEvent:   events.NewBaseEvent(events.RuleTriggeredEvent, ruleID),
		TriggerKind: kind,
		TriggerData: map[string]any{
			"scheduled": true,
			"fired_at":  time.Now().UTC().Format(time.RFC3339),
		},
	}

	if err := s.publisher.Publish(ctx, ruleID, triggered); err != nil {
		s.logger.ErrorContext(ctx, "Failed to dispatch scheduled rule",
			"rule_id", ruleID, "error", err)
	}
}

func intervalMs(conditions map[string]any) int64 {
	switch v := conditions["interval"].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	default:
		return 0
	}
}
