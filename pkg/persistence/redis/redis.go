// Package redis provides Redis rule persistence, keyed one hash entry per
// rule with a per-owner index set.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"

	"github.com/dmateus/mordomo/pkg/models"
	"github.com/dmateus/mordomo/pkg/persistence"
)

const (
	rulesKey      = "mordomo:rules"
	ownerIndexKey = "mordomo:owners:%s:rules"
)

// Store implements persistence.RuleStore backed by Redis.
type Store struct {
	client goredis.UniversalClient
	logger *slog.Logger
}

// NewStore connects to Redis using a redis:// URL.
func NewStore(ctx context.Context, logger *slog.Logger, databaseURL string) (*Store, error) {
	opts, err := goredis.ParseURL(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := goredis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &Store{client: client, logger: logger.With("module", "redis_store")}, nil
}

func (s *Store) CreateRule(ctx context.Context, rule *models.Rule) (string, error) {
	if err := s.write(ctx, rule); err != nil {
		return "", persistence.NewRuleError("Create", rule.ID, err)
	}

	return rule.ID, nil
}

func (s *Store) RuleByID(ctx context.Context, id string) (*models.Rule, error) {
	data, err := s.client.HGet(ctx, rulesKey, id).Result()
	if errors.Is(err, goredis.Nil) {
		return nil, persistence.NewRuleError("RuleByID", id, persistence.ErrRuleNotFound)
	}

	if err != nil {
		return nil, persistence.NewRuleError("RuleByID", id, err)
	}

	var rule models.Rule
	if err := json.Unmarshal([]byte(data), &rule); err != nil {
		return nil, persistence.NewRuleError("RuleByID", id, err)
	}

	return &rule, nil
}

func (s *Store) Rules(ctx context.Context) ([]*models.Rule, error) {
	entries, err := s.client.HGetAll(ctx, rulesKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}

	rules := make([]*models.Rule, 0, len(entries))

	for id, data := range entries {
		var rule models.Rule
		if err := json.Unmarshal([]byte(data), &rule); err != nil {
			return nil, fmt.Errorf("failed to unmarshal rule %s: %w", id, err)
		}

		rules = append(rules, &rule)
	}

	return rules, nil
}

func (s *Store) RulesByOwner(ctx context.Context, ownerID string) ([]*models.Rule, error) {
	ids, err := s.client.SMembers(ctx, fmt.Sprintf(ownerIndexKey, ownerID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list rules for owner %s: %w", ownerID, err)
	}

	rules := make([]*models.Rule, 0, len(ids))

	for _, id := range ids {
		rule, err := s.RuleByID(ctx, id)
		if persistence.IsRuleNotFound(err) {
			// Stale index entry, drop it.
			s.client.SRem(ctx, fmt.Sprintf(ownerIndexKey, ownerID), id)

			continue
		}

		if err != nil {
			return nil, err
		}

		rules = append(rules, rule)
	}

	return rules, nil
}

func (s *Store) UpdateRule(ctx context.Context, rule *models.Rule) error {
	exists, err := s.client.HExists(ctx, rulesKey, rule.ID).Result()
	if err != nil {
		return persistence.NewRuleError("Update", rule.ID, err)
	}

	if !exists {
		return persistence.NewRuleError("Update", rule.ID, persistence.ErrRuleNotFound)
	}

	if err := s.write(ctx, rule); err != nil {
		return persistence.NewRuleError("Update", rule.ID, err)
	}

	return nil
}

func (s *Store) DeleteRule(ctx context.Context, id string) error {
	rule, err := s.RuleByID(ctx, id)
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.HDel(ctx, rulesKey, id)
	pipe.SRem(ctx, fmt.Sprintf(ownerIndexKey, rule.OwnerID), id)

	if _, err := pipe.Exec(ctx); err != nil {
		return persistence.NewRuleError("Delete", id, err)
	}

	return nil
}

func (s *Store) HealthCheck(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}

	return nil
}

func (s *Store) Close(_ context.Context) error {
	return s.client.Close()
}

func (s *Store) write(ctx context.Context, rule *models.Rule) error {
	data, err := json.Marshal(rule)
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, rulesKey, rule.ID, data)
	pipe.SAdd(ctx, fmt.Sprintf(ownerIndexKey, rule.OwnerID), rule.ID)

	_, err = pipe.Exec(ctx)

	return err
}
