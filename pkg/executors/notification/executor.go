// Package notification provides the send_notification action executor.
package notification

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dmateus/mordomo/pkg/models"
	"github.com/dmateus/mordomo/pkg/protocol"
)

var ErrMessageRequired = errors.New("notification message is required")

func NewExecutorFactory() protocol.ExecutorFactory {
	return &ExecutorFactory{}
}

type ExecutorFactory struct{}

func (*ExecutorFactory) Kind() models.ActionKind {
	return models.ActionKindSendNotification
}

func (f *ExecutorFactory) Create(config map[string]any) (protocol.ActionExecutor, error) {
	message, _ := config["message"].(string)
	if message == "" {
		return nil, ErrMessageRequired
	}

	channel, _ := config["channel"].(string)
	if channel == "" {
		channel = "push"
	}

	title, _ := config["title"].(string)

	return &Executor{
		channel: channel,
		title:   title,
		message: message,
	}, nil
}

// Executor hands a notification to the delivery gateway. Delivery mechanics
// live upstream; the executor's responsibility ends at the handoff. Message
// and title may contain unresolved template placeholders and are passed
// through untouched.
type Executor struct {
	channel string
	title   string
	message string
}

func (e *Executor) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (*protocol.Outcome, error) {
	logger = logger.With("action_kind", "send_notification", "channel", e.channel)

	logger.InfoContext(ctx, "Dispatching notification",
		"owner_id", executionCtx.OwnerID,
		"title", e.title,
	)

	return &protocol.Outcome{
		Message: "notification dispatched",
		Details: map[string]any{
			"channel": e.channel,
			"title":   e.title,
			"message": e.message,
		},
	}, nil
}
