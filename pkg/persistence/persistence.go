// Package persistence provides the storage abstraction for automation rules.
package persistence

import (
	"context"

	"github.com/dmateus/mordomo/pkg/models"
)

// RuleStore is the durable CRUD surface the engine consumes. Implementations
// must return ErrRuleNotFound when a rule id cannot be resolved.
type RuleStore interface {
	CreateRule(ctx context.Context, rule *models.Rule) (string, error)
	RuleByID(ctx context.Context, id string) (*models.Rule, error)
	RulesByOwner(ctx context.Context, ownerID string) ([]*models.Rule, error)
	Rules(ctx context.Context) ([]*models.Rule, error)
	UpdateRule(ctx context.Context, rule *models.Rule) error
	DeleteRule(ctx context.Context, id string) error
	HealthCheck(ctx context.Context) error

	Close(ctx context.Context) error
}
