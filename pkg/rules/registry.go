// Package rules holds the in-memory working set of the engine: the rule
// registry bridging the durable store, and the execution ledger.
package rules

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmateus/mordomo/pkg/models"
	"github.com/dmateus/mordomo/pkg/persistence"
)

// Registry is the process-wide index of rule-id to rule definition, kept
// consistent with the rule store. Store outages degrade to in-memory
// operation instead of failing callers: the registry is authoritative for
// this process's scheduling decisions.
type Registry struct {
	store  persistence.RuleStore
	logger *slog.Logger

	mu    sync.RWMutex
	rules map[string]*models.Rule

	// dirty tracks rules whose last store write failed; they live in-memory
	// only until a flush succeeds.
	dirty map[string]bool
}

func NewRegistry(store persistence.RuleStore, logger *slog.Logger) *Registry {
	return &Registry{
		store:  store,
		logger: logger.With("module", "rule_registry"),
		rules:  make(map[string]*models.Rule),
		dirty:  make(map[string]bool),
	}
}

// Load repopulates the index from the store, optionally scoped to one
// owner. On store failure the prior in-memory state is left intact and
// returned: a transient read error must never empty the registry. Rules
// whose store write previously failed are flushed first and kept in the
// index even when the store still doesn't know them.
func (r *Registry) Load(ctx context.Context, ownerID string) []*models.Rule {
	r.flushUnpersisted(ctx)

	var (
		loaded []*models.Rule
		err    error
	)

	if ownerID == "" {
		loaded, err = r.store.Rules(ctx)
	} else {
		loaded, err = r.store.RulesByOwner(ctx, ownerID)
	}

	if err != nil {
		r.logger.WarnContext(ctx, "Store load failed, keeping in-memory rules", "error", err, "owner_id", ownerID)

		return r.snapshot(ownerID)
	}

	r.mu.Lock()

	for id, rule := range r.rules {
		if r.dirty[id] {
			continue
		}

		if ownerID == "" || rule.OwnerID == ownerID {
			delete(r.rules, id)
		}
	}

	for _, rule := range loaded {
		r.rules[rule.ID] = rule
	}

	r.mu.Unlock()

	return r.snapshot(ownerID)
}

// flushUnpersisted retries the store write for every dirty rule. Rules
// that persist successfully stop being dirty; the rest stay in-memory
// until the next attempt.
func (r *Registry) flushUnpersisted(ctx context.Context) {
	r.mu.RLock()

	pending := make([]*models.Rule, 0, len(r.dirty))

	for id := range r.dirty {
		if rule, ok := r.rules[id]; ok {
			pending = append(pending, rule.Clone())
		}
	}

	r.mu.RUnlock()

	for _, rule := range pending {
		if err := r.persist(ctx, rule); err != nil {
			continue
		}

		r.logger.InfoContext(ctx, "Flushed unpersisted rule to store", "rule_id", rule.ID)

		r.mu.Lock()
		delete(r.dirty, rule.ID)
		r.mu.Unlock()
	}
}

// Upsert writes through to the store first. If the store write fails, the
// rule is kept in-memory only (with a locally generated id when needed) so
// rule creation never hard-fails the caller.
func (r *Registry) Upsert(ctx context.Context, rule *models.Rule) string {
	if rule.ID == "" {
		rule.ID = uuid.New().String()
	}

	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = time.Now().UTC()
	}

	err := r.persist(ctx, rule)
	if err != nil {
		r.logger.WarnContext(ctx, "Store write failed, keeping rule in-memory only",
			"rule_id", rule.ID, "error", err)
	}

	r.mu.Lock()
	r.rules[rule.ID] = rule.Clone()

	if err != nil {
		r.dirty[rule.ID] = true
	} else {
		delete(r.dirty, rule.ID)
	}

	r.mu.Unlock()

	return rule.ID
}

// persist writes a rule through to the store, creating or updating as
// appropriate.
func (r *Registry) persist(ctx context.Context, rule *models.Rule) error {
	existing, _ := r.store.RuleByID(ctx, rule.ID)

	if existing == nil {
		_, err := r.store.CreateRule(ctx, rule)

		return err
	}

	return r.store.UpdateRule(ctx, rule)
}

// Get resolves a rule registry-first. On a miss it attempts a single lazy
// load from the store before declaring not-found, covering rules created by
// another process instance.
func (r *Registry) Get(ctx context.Context, id string) (*models.Rule, error) {
	r.mu.RLock()
	rule, ok := r.rules[id]
	r.mu.RUnlock()

	if ok {
		return rule.Clone(), nil
	}

	stored, err := r.store.RuleByID(ctx, id)
	if err != nil {
		return nil, persistence.NewRuleError("Get", id, persistence.ErrRuleNotFound)
	}

	r.mu.Lock()
	r.rules[id] = stored
	r.mu.Unlock()

	return stored.Clone(), nil
}

// Delete removes the rule from the store, then from the registry. A store
// delete failure does not keep the rule alive locally; it is returned to
// the caller as non-fatal. The bool reports whether the rule was known.
func (r *Registry) Delete(ctx context.Context, id string) (bool, error) {
	storeErr := r.store.DeleteRule(ctx, id)
	if storeErr != nil && !persistence.IsRuleNotFound(storeErr) {
		r.logger.WarnContext(ctx, "Store delete failed, removing from registry anyway",
			"rule_id", id, "error", storeErr)
	}

	r.mu.Lock()
	_, existed := r.rules[id]
	delete(r.rules, id)
	delete(r.dirty, id)
	r.mu.Unlock()

	deleted := existed || storeErr == nil

	if storeErr != nil && !persistence.IsRuleNotFound(storeErr) {
		return deleted, storeErr
	}

	return deleted, nil
}

// UpdateStats records a completed run: increments the execution count by
// one and stamps the execution time. The in-memory increment is never
// rolled back; a store write failure is logged only, since this process's
// next scheduling decision reads the in-memory value.
func (r *Registry) UpdateStats(ctx context.Context, id string, executedAt time.Time) {
	r.mu.Lock()

	rule, ok := r.rules[id]
	if !ok {
		r.mu.Unlock()
		r.logger.WarnContext(ctx, "Stats update for unknown rule", "rule_id", id)

		return
	}

	rule.ExecutionCount++
	at := executedAt
	rule.LastExecutedAt = &at

	updated := rule.Clone()
	r.mu.Unlock()

	if err := r.store.UpdateRule(ctx, updated); err != nil {
		r.logger.WarnContext(ctx, "Store stats update failed",
			"rule_id", id, "execution_count", updated.ExecutionCount, "error", err)
	}
}

// EnabledByOwnerAndKind returns enabled rules for one owner with the given
// trigger kind, used by the trigger matcher.
func (r *Registry) EnabledByOwnerAndKind(ownerID string, kind models.TriggerKind) []*models.Rule {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := make([]*models.Rule, 0)

	for _, rule := range r.rules {
		if rule.Enabled && rule.OwnerID == ownerID && rule.Trigger.Kind == kind {
			matched = append(matched, rule.Clone())
		}
	}

	return matched
}

// ByKind returns all rules with the given trigger kind, enabled or not,
// used by the scheduler to build its dispatch table.
func (r *Registry) ByKind(kind models.TriggerKind) []*models.Rule {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := make([]*models.Rule, 0)

	for _, rule := range r.rules {
		if rule.Trigger.Kind == kind {
			matched = append(matched, rule.Clone())
		}
	}

	return matched
}

func (r *Registry) snapshot(ownerID string) []*models.Rule {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rules := make([]*models.Rule, 0, len(r.rules))

	for _, rule := range r.rules {
		if ownerID == "" || rule.OwnerID == ownerID {
			rules = append(rules, rule.Clone())
		}
	}

	return rules
}
