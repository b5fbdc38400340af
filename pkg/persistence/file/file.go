// Package file provides file-based rule persistence, the default store for
// development and single-node deployments.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dmateus/mordomo/pkg/models"
	"github.com/dmateus/mordomo/pkg/persistence"
)

// Store implements persistence.RuleStore on top of a directory of JSON
// files, one file per rule.
type Store struct {
	root string
	mu   sync.Mutex
}

// NewStore creates a file store rooted at the given directory, accepting a
// plain path or a file:// URL.
func NewStore(root string) *Store {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Store{root: cleanRoot}
}

func (s *Store) rulesDir() string {
	return filepath.Join(s.root, "rules")
}

func (s *Store) rulePath(id string) string {
	return filepath.Join(s.rulesDir(), id+".json")
}

func (s *Store) CreateRule(_ context.Context, rule *models.Rule) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.write(rule); err != nil {
		return "", persistence.NewRuleError("Create", rule.ID, err)
	}

	return rule.ID, nil
}

func (s *Store) RuleByID(_ context.Context, id string) (*models.Rule, error) {
	data, err := os.ReadFile(s.rulePath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.NewRuleError("RuleByID", id, persistence.ErrRuleNotFound)
		}

		return nil, persistence.NewRuleError("RuleByID", id, err)
	}

	var rule models.Rule
	if err := json.Unmarshal(data, &rule); err != nil {
		return nil, persistence.NewRuleError("RuleByID", id, err)
	}

	return &rule, nil
}

func (s *Store) Rules(ctx context.Context) ([]*models.Rule, error) {
	root := os.DirFS(s.rulesDir())

	jsonFiles, err := fs.Glob(root, "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list rule files: %w", err)
	}

	rules := make([]*models.Rule, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		ruleID := strings.TrimSuffix(file, ".json")

		rule, err := s.RuleByID(ctx, ruleID)
		if err != nil {
			return nil, fmt.Errorf("failed to load rule %s: %w", ruleID, err)
		}

		rules = append(rules, rule)
	}

	return rules, nil
}

func (s *Store) RulesByOwner(ctx context.Context, ownerID string) ([]*models.Rule, error) {
	all, err := s.Rules(ctx)
	if err != nil {
		return nil, err
	}

	owned := make([]*models.Rule, 0, len(all))

	for _, rule := range all {
		if rule.OwnerID == ownerID {
			owned = append(owned, rule)
		}
	}

	return owned, nil
}

func (s *Store) UpdateRule(ctx context.Context, rule *models.Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.rulePath(rule.ID)); os.IsNotExist(err) {
		return persistence.NewRuleError("Update", rule.ID, persistence.ErrRuleNotFound)
	}

	if err := s.write(rule); err != nil {
		return persistence.NewRuleError("Update", rule.ID, err)
	}

	return nil
}

func (s *Store) DeleteRule(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.rulePath(id))
	if os.IsNotExist(err) {
		return persistence.NewRuleError("Delete", id, persistence.ErrRuleNotFound)
	}

	return err
}

// HealthCheck verifies the root directory exists.
func (s *Store) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(s.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

// Close performs any necessary cleanup. Nothing to clean up for files.
func (s *Store) Close(_ context.Context) error {
	return nil
}

func (s *Store) write(rule *models.Rule) error {
	if err := os.MkdirAll(s.rulesDir(), 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(rule, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(s.rulePath(rule.ID), data, 0o644)
}
