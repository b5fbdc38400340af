// Package protocol defines the contracts between the engine and action
// executors.
package protocol

import (
	"context"
	"log/slog"

	"github.com/dmateus/mordomo/pkg/models"
)

// Outcome is what a successful executor invocation produces. Failures are
// signalled through the error return instead.
type Outcome struct {
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// ActionExecutor runs one configured action against an execution context.
// Executors own their own timeouts; the engine applies none. Config values
// reach the executor verbatim, including unresolved template placeholders.
type ActionExecutor interface {
	Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (*Outcome, error)
}

// ExecutorFactory creates executor instances for one action kind.
type ExecutorFactory interface {
	Create(config map[string]any) (ActionExecutor, error)
	Kind() models.ActionKind
}
