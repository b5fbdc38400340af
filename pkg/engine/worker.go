package engine

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dmateus/mordomo/pkg/eventbus"
	"github.com/dmateus/mordomo/pkg/events"
)

// Worker consumes rule.triggered events from the bus and runs the pipeline
// executor, so matched and scheduled rules execute concurrently in-flight
// rather than serialized behind the matcher.
type Worker struct {
	id       string
	executor *Executor
	eventBus eventbus.EventBus
	logger   *slog.Logger
}

func NewWorker(id string, executor *Executor, eventBus eventbus.EventBus, logger *slog.Logger) *Worker {
	return &Worker{
		id:       id,
		executor: executor,
		eventBus: eventBus,
		logger:   logger.With("module", "worker", "worker_id", id),
	}
}

// Start subscribes to triggered events. It returns once the subscription
// is installed; consumption happens on the bus's goroutine.
func (w *Worker) Start(ctx context.Context) error {
	if err := w.eventBus.Handle(events.RuleTriggeredEvent, w.handleRuleTriggered); err != nil {
		return err
	}

	if err := w.eventBus.Subscribe(ctx); err != nil {
		w.logger.ErrorContext(ctx, "Failed to subscribe to event bus", "error", err)

		return err
	}

	w.logger.InfoContext(ctx, "Worker started")

	return nil
}

func (w *Worker) handleRuleTriggered(ctx context.Context, event any) error {
	triggered, ok := event.(*events.RuleTriggered)
	if !ok {
		w.logger.ErrorContext(ctx, "Invalid event type for RuleTriggered")

		return nil
	}

	logger := w.logger.With(
		"rule_id", triggered.RuleID,
		"trigger_kind", triggered.TriggerKind,
		"event_id", triggered.ID,
	)
	logger.InfoContext(ctx, "Processing rule triggered event")

	record, err := w.executor.Run(ctx, triggered.RuleID, triggered.TriggerData)
	if err != nil {
		// A rule deleted or disabled after dispatch is a no-op, not a
		// failure worth redelivering.
		if errors.Is(err, ErrRuleNotFound) || errors.Is(err, ErrRuleDisabled) {
			logger.InfoContext(ctx, "Skipping rule", "reason", err)

			return nil
		}

		failed := events.ExecutionFailed{
			BaseEvent: events.NewBaseEvent(events.ExecutionFailedEvent, triggered.RuleID),
			Error:     err.Error(),
		}

		if publishErr := w.eventBus.Publish(ctx, triggered.RuleID, failed); publishErr != nil {
			logger.ErrorContext(ctx, "Failed to publish execution failed event", "error", publishErr)
		}

		return err
	}

	finished := events.ExecutionFinished{
		BaseEvent:   events.NewBaseEvent(events.ExecutionFinishedEvent, triggered.RuleID),
		ExecutionID: record.ID,
		Status:      record.Status,
		DurationMs:  record.DurationMs,
	}
	finished.OwnerID = record.OwnerID

	if err := w.eventBus.Publish(ctx, triggered.RuleID, finished); err != nil {
		logger.ErrorContext(ctx, "Failed to publish execution finished event", "error", err)
	}

	return nil
}
