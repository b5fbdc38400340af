// Package registry maps action kinds to their executor factories.
package registry

import (
	"fmt"
	"log/slog"

	"github.com/dmateus/mordomo/pkg/models"
	"github.com/dmateus/mordomo/pkg/protocol"
)

type Registry struct {
	logger    *slog.Logger
	factories map[models.ActionKind]protocol.ExecutorFactory
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:    logger,
		factories: make(map[models.ActionKind]protocol.ExecutorFactory),
	}
}

func (r *Registry) RegisterExecutor(factory protocol.ExecutorFactory) {
	r.factories[factory.Kind()] = factory
}

// CreateExecutor builds an executor for the action's kind from its config.
func (r *Registry) CreateExecutor(kind models.ActionKind, config map[string]any) (protocol.ActionExecutor, error) {
	factory, ok := r.factories[kind]
	if !ok {
		return nil, fmt.Errorf("action kind '%s' not registered", kind)
	}

	return factory.Create(config)
}

// Kinds returns the registered action kinds.
func (r *Registry) Kinds() []models.ActionKind {
	kinds := make([]models.ActionKind, 0, len(r.factories))
	for kind := range r.factories {
		kinds = append(kinds, kind)
	}

	return kinds
}
