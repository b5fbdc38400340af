// Package postgres provides PostgreSQL rule persistence.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq" // postgres driver

	"github.com/dmateus/mordomo/pkg/models"
	"github.com/dmateus/mordomo/pkg/persistence"
)

const schema = `
	CREATE TABLE IF NOT EXISTS rules (
		id UUID PRIMARY KEY,
		owner_id VARCHAR(255) NOT NULL,
		name VARCHAR(255) NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		trigger JSONB NOT NULL,
		actions JSONB NOT NULL,
		enabled BOOLEAN NOT NULL DEFAULT true,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL,
		last_executed_at TIMESTAMP WITH TIME ZONE,
		execution_count BIGINT NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_rules_owner_id ON rules(owner_id);
	CREATE INDEX IF NOT EXISTS idx_rules_enabled ON rules(enabled);
`

// Store implements persistence.RuleStore backed by PostgreSQL. Trigger and
// action definitions are stored as JSONB documents.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewStore connects to PostgreSQL and ensures the rules table exists.
func NewStore(ctx context.Context, logger *slog.Logger, databaseURL string) (*Store, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	if err := database.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := database.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Store{db: database, logger: logger.With("module", "postgres_store")}, nil
}

func (s *Store) CreateRule(ctx context.Context, rule *models.Rule) (string, error) {
	trigger, actions, err := marshalDocuments(rule)
	if err != nil {
		return "", persistence.NewRuleError("Create", rule.ID, err)
	}

	query := `
		INSERT INTO rules (id, owner_id, name, description, trigger, actions, enabled, created_at, last_executed_at, execution_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err = s.db.ExecContext(ctx, query,
		rule.ID, rule.OwnerID, rule.Name, rule.Description,
		trigger, actions, rule.Enabled, rule.CreatedAt,
		nullableTime(rule.LastExecutedAt), rule.ExecutionCount)
	if err != nil {
		return "", persistence.NewRuleError("Create", rule.ID, err)
	}

	return rule.ID, nil
}

func (s *Store) RuleByID(ctx context.Context, id string) (*models.Rule, error) {
	query := selectColumns + ` WHERE id = $1`

	rule, err := scanRule(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.NewRuleError("RuleByID", id, persistence.ErrRuleNotFound)
	}

	if err != nil {
		return nil, persistence.NewRuleError("RuleByID", id, err)
	}

	return rule, nil
}

func (s *Store) Rules(ctx context.Context) ([]*models.Rule, error) {
	return s.query(ctx, selectColumns+` ORDER BY created_at DESC`)
}

func (s *Store) RulesByOwner(ctx context.Context, ownerID string) ([]*models.Rule, error) {
	return s.query(ctx, selectColumns+` WHERE owner_id = $1 ORDER BY created_at DESC`, ownerID)
}

func (s *Store) UpdateRule(ctx context.Context, rule *models.Rule) error {
	trigger, actions, err := marshalDocuments(rule)
	if err != nil {
		return persistence.NewRuleError("Update", rule.ID, err)
	}

	query := `
		UPDATE rules
		SET owner_id = $2, name = $3, description = $4, trigger = $5,
		    actions = $6, enabled = $7, last_executed_at = $8, execution_count = $9
		WHERE id = $1
	`

	result, err := s.db.ExecContext(ctx, query,
		rule.ID, rule.OwnerID, rule.Name, rule.Description,
		trigger, actions, rule.Enabled,
		nullableTime(rule.LastExecutedAt), rule.ExecutionCount)
	if err != nil {
		return persistence.NewRuleError("Update", rule.ID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewRuleError("Update", rule.ID, err)
	}

	if affected == 0 {
		return persistence.NewRuleError("Update", rule.ID, persistence.ErrRuleNotFound)
	}

	return nil
}

func (s *Store) DeleteRule(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM rules WHERE id = $1`, id)
	if err != nil {
		return persistence.NewRuleError("Delete", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewRuleError("Delete", id, err)
	}

	if affected == 0 {
		return persistence.NewRuleError("Delete", id, persistence.ErrRuleNotFound)
	}

	return nil
}

func (s *Store) HealthCheck(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

func (s *Store) Close(_ context.Context) error {
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

const selectColumns = `
	SELECT id, owner_id, name, description, trigger, actions, enabled, created_at, last_executed_at, execution_count
	FROM rules
`

func (s *Store) query(ctx context.Context, query string, args ...any) ([]*models.Rule, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			s.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	rules := make([]*models.Rule, 0)

	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}

		rules = append(rules, rule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rules: %w", err)
	}

	return rules, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRule(row rowScanner) (*models.Rule, error) {
	var (
		rule           models.Rule
		triggerJSON    []byte
		actionsJSON    []byte
		lastExecutedAt sql.NullTime
	)

	err := row.Scan(&rule.ID, &rule.OwnerID, &rule.Name, &rule.Description,
		&triggerJSON, &actionsJSON, &rule.Enabled, &rule.CreatedAt,
		&lastExecutedAt, &rule.ExecutionCount)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(triggerJSON, &rule.Trigger); err != nil {
		return nil, fmt.Errorf("failed to unmarshal trigger: %w", err)
	}

	if err := json.Unmarshal(actionsJSON, &rule.Actions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal actions: %w", err)
	}

	if lastExecutedAt.Valid {
		at := lastExecutedAt.Time
		rule.LastExecutedAt = &at
	}

	return &rule, nil
}

func marshalDocuments(rule *models.Rule) ([]byte, []byte, error) {
	trigger, err := json.Marshal(rule.Trigger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal trigger: %w", err)
	}

	actions, err := json.Marshal(rule.Actions)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal actions: %w", err)
	}

	return trigger, actions, nil
}

func nullableTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}

	return sql.NullTime{Time: *t, Valid: true}
}
