// Package cmd provides common initialization for command-line entrypoints.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dmateus/mordomo/pkg/persistence"
	"github.com/dmateus/mordomo/pkg/persistence/file"
	"github.com/dmateus/mordomo/pkg/persistence/postgres"
	"github.com/dmateus/mordomo/pkg/persistence/redis"
)

// NewPersistence selects the rule store by the database URL scheme:
// postgres://, redis://, or a file path (default).
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) persistence.RuleStore {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		store, err := postgres.NewStore(ctx, logger, databaseURL)
		if err != nil {
			panic(fmt.Errorf("failed to create postgres store: %w", err))
		}

		return store
	case strings.HasPrefix(databaseURL, "redis://"), strings.HasPrefix(databaseURL, "rediss://"):
		store, err := redis.NewStore(ctx, logger, databaseURL)
		if err != nil {
			panic(fmt.Errorf("failed to create redis store: %w", err))
		}

		return store
	default:
		return file.NewStore(databaseURL)
	}
}
