package cmd

import (
	"log/slog"

	"github.com/dmateus/mordomo/pkg/executors/calendar"
	"github.com/dmateus/mordomo/pkg/executors/notification"
	"github.com/dmateus/mordomo/pkg/executors/wait"
	"github.com/dmateus/mordomo/pkg/executors/webhookcall"
	"github.com/dmateus/mordomo/pkg/registry"
)

// NewRegistry builds the executor registry with all native action kinds.
// The conditional kind is dispatched inside the engine and has no factory.
func NewRegistry(logger *slog.Logger) *registry.Registry {
	reg := registry.NewRegistry(logger)

	reg.RegisterExecutor(notification.NewExecutorFactory())
	reg.RegisterExecutor(calendar.NewCreateExecutorFactory())
	reg.RegisterExecutor(calendar.NewUpdateExecutorFactory())
	reg.RegisterExecutor(webhookcall.NewExecutorFactory())
	reg.RegisterExecutor(wait.NewExecutorFactory())

	return reg
}
