// Package wait provides the wait action executor.
package wait

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dmateus/mordomo/pkg/models"
	"github.com/dmateus/mordomo/pkg/protocol"
)

var ErrDurationRequired = errors.New("wait duration_ms must be a positive number")

func NewExecutorFactory() protocol.ExecutorFactory {
	return &ExecutorFactory{}
}

type ExecutorFactory struct{}

func (*ExecutorFactory) Kind() models.ActionKind {
	return models.ActionKindWait
}

func (f *ExecutorFactory) Create(config map[string]any) (protocol.ActionExecutor, error) {
	var durationMs int64

	switch v := config["duration_ms"].(type) {
	case float64:
		durationMs = int64(v)
	case int64:
		durationMs = v
	case int:
		durationMs = int64(v)
	}

	if durationMs <= 0 {
		return nil, ErrDurationRequired
	}

	return &Executor{duration: time.Duration(durationMs) * time.Millisecond}, nil
}

// Executor suspends the pipeline for the configured duration. The wait is
// cooperative: it yields on context cancellation instead of blocking the
// process.
type Executor struct {
	duration time.Duration
}

func (e *Executor) Execute(ctx context.Context, _ models.ExecutionContext, logger *slog.Logger) (*protocol.Outcome, error) {
	logger.InfoContext(ctx, "Waiting", "duration", e.duration)

	timer := time.NewTimer(e.duration)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	return &protocol.Outcome{
		Message: "waited " + e.duration.String(),
		Details: map[string]any{"duration_ms": e.duration.Milliseconds()},
	}, nil
}
