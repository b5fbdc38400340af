// Package calendar provides the create_calendar_entry and
// update_calendar_entry action executors.
package calendar

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dmateus/mordomo/pkg/models"
	"github.com/dmateus/mordomo/pkg/protocol"
)

var (
	ErrTitleRequired   = errors.New("calendar entry title is required")
	ErrEntryIDRequired = errors.New("calendar entry id is required for updates")
)

func NewCreateExecutorFactory() protocol.ExecutorFactory {
	return &createFactory{}
}

func NewUpdateExecutorFactory() protocol.ExecutorFactory {
	return &updateFactory{}
}

type createFactory struct{}

func (*createFactory) Kind() models.ActionKind {
	return models.ActionKindCreateCalendarEntry
}

func (f *createFactory) Create(config map[string]any) (protocol.ActionExecutor, error) {
	title, _ := config["title"].(string)
	if title == "" {
		return nil, ErrTitleRequired
	}

	return &Executor{update: false, config: config}, nil
}

type updateFactory struct{}

func (*updateFactory) Kind() models.ActionKind {
	return models.ActionKindUpdateCalendarEntry
}

func (f *updateFactory) Create(config map[string]any) (protocol.ActionExecutor, error) {
	entryID, _ := config["entry_id"].(string)
	if entryID == "" {
		return nil, ErrEntryIDRequired
	}

	return &Executor{update: true, config: config}, nil
}

// Executor stages a calendar write for the calendar service. The entry
// payload is assembled from config verbatim; field values may contain
// unresolved template placeholders.
type Executor struct {
	update bool
	config map[string]any
}

func (e *Executor) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (*protocol.Outcome, error) {
	entry := map[string]any{
		"owner_id": executionCtx.OwnerID,
	}

	for _, field := range []string{"entry_id", "calendar_id", "title", "start_time", "end_time", "location", "notes"} {
		if value, ok := e.config[field]; ok {
			entry[field] = value
		}
	}

	if e.update {
		logger.InfoContext(ctx, "Staging calendar entry update", "entry_id", entry["entry_id"])

		return &protocol.Outcome{
			Message: "calendar entry update staged",
			Details: map[string]any{"entry": entry},
		}, nil
	}

	entry["entry_id"] = uuid.New().String()

	logger.InfoContext(ctx, "Staging calendar entry creation", "entry_id", entry["entry_id"])

	return &protocol.Outcome{
		Message: "calendar entry staged",
		Details: map[string]any{"entry": entry},
	}, nil
}
