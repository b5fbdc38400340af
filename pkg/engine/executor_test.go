package engine

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmateus/mordomo/pkg/eventbus"
	"github.com/dmateus/mordomo/pkg/models"
	"github.com/dmateus/mordomo/pkg/persistence"
	"github.com/dmateus/mordomo/pkg/protocol"
	"github.com/dmateus/mordomo/pkg/registry"
	"github.com/dmateus/mordomo/pkg/rules"
)

// memoryStore is a minimal in-memory RuleStore for engine tests.
type memoryStore struct {
	mu    sync.Mutex
	rules map[string]*models.Rule
}

func newMemoryStore(seed ...*models.Rule) *memoryStore {
	store := &memoryStore{rules: make(map[string]*models.Rule)}
	for _, rule := range seed {
		store.rules[rule.ID] = rule
	}

	return store
}

func (s *memoryStore) CreateRule(_ context.Context, rule *models.Rule) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules[rule.ID] = rule.Clone()

	return rule.ID, nil
}

func (s *memoryStore) RuleByID(_ context.Context, id string) (*models.Rule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rule, ok := s.rules[id]
	if !ok {
		return nil, persistence.NewRuleError("RuleByID", id, persistence.ErrRuleNotFound)
	}

	return rule.Clone(), nil
}

func (s *memoryStore) Rules(_ context.Context) ([]*models.Rule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := make([]*models.Rule, 0, len(s.rules))
	for _, rule := range s.rules {
		all = append(all, rule.Clone())
	}

	return all, nil
}

func (s *memoryStore) RulesByOwner(ctx context.Context, ownerID string) ([]*models.Rule, error) {
	all, _ := s.Rules(ctx)

	owned := make([]*models.Rule, 0)

	for _, rule := range all {
		if rule.OwnerID == ownerID {
			owned = append(owned, rule)
		}
	}

	return owned, nil
}

func (s *memoryStore) UpdateRule(_ context.Context, rule *models.Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules[rule.ID] = rule.Clone()

	return nil
}

func (s *memoryStore) DeleteRule(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rules, id)

	return nil
}

func (s *memoryStore) HealthCheck(_ context.Context) error { return nil }
func (s *memoryStore) Close(_ context.Context) error       { return nil }

// stubFactory builds executors that succeed or fail based on config, and
// records every execution marker it sees.
type stubFactory struct {
	kind models.ActionKind

	mu      sync.Mutex
	markers []string
}

func (f *stubFactory) Kind() models.ActionKind { return f.kind }

func (f *stubFactory) Create(config map[string]any) (protocol.ActionExecutor, error) {
	return &stubExecutor{factory: f, config: config}, nil
}

func (f *stubFactory) seen() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]string, len(f.markers))
	copy(out, f.markers)

	return out
}

type stubExecutor struct {
	factory *stubFactory
	config  map[string]any
}

func (e *stubExecutor) Execute(_ context.Context, _ models.ExecutionContext, _ *slog.Logger) (*protocol.Outcome, error) {
	if marker, ok := e.config["marker"].(string); ok {
		e.factory.mu.Lock()
		e.factory.markers = append(e.factory.markers, marker)
		e.factory.mu.Unlock()
	}

	if fail, _ := e.config["fail"].(bool); fail {
		return nil, errors.New("send failed")
	}

	if escape, _ := e.config["panic"].(bool); escape {
		panic("boom")
	}

	return &protocol.Outcome{Message: "ok", Details: map[string]any{"stub": true}}, nil
}

// capturePublisher collects published events for assertions.
type capturePublisher struct {
	mu     sync.Mutex
	events []eventbus.Event
}

func (p *capturePublisher) Publish(_ context.Context, _ string, event eventbus.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)

	return nil
}

func (p *capturePublisher) published() []eventbus.Event {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]eventbus.Event, len(p.events))
	copy(out, p.events)

	return out
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

type executorFixture struct {
	registry     *rules.Registry
	ledger       *rules.Ledger
	executor     *Executor
	notification *stubFactory
	calendar     *stubFactory
}

func newExecutorFixture(t *testing.T, seed ...*models.Rule) *executorFixture {
	t.Helper()

	logger := quietLogger()
	store := newMemoryStore(seed...)

	ruleRegistry := rules.NewRegistry(store, logger)
	ruleRegistry.Load(context.Background(), "")

	notification := &stubFactory{kind: models.ActionKindSendNotification}
	calendar := &stubFactory{kind: models.ActionKindCreateCalendarEntry}

	executorRegistry := registry.NewRegistry(logger)
	executorRegistry.RegisterExecutor(notification)
	executorRegistry.RegisterExecutor(calendar)

	ledger := rules.NewLedger(rules.DefaultLedgerCap)

	return &executorFixture{
		registry:     ruleRegistry,
		ledger:       ledger,
		executor:     NewExecutor(ruleRegistry, executorRegistry, ledger, logger),
		notification: notification,
		calendar:     calendar,
	}
}

func pipelineRule(id string, actions ...models.Action) *models.Rule {
	return &models.Rule{
		ID:      id,
		OwnerID: "alice",
		Name:    "Appointment rule",
		Trigger: models.Trigger{Kind: models.TriggerKindEmail, Conditions: map[string]any{
			"patterns": []any{"appointment"},
		}},
		Actions: actions,
		Enabled: true,
	}
}

func TestExecutorRun_AllActionsSucceed(t *testing.T) {
	ctx := context.Background()
	rule := pipelineRule("r1",
		models.Action{Kind: models.ActionKindCreateCalendarEntry, Config: map[string]any{}},
		models.Action{Kind: models.ActionKindSendNotification, Config: map[string]any{}},
	)

	fixture := newExecutorFixture(t, rule)

	record, err := fixture.executor.Run(ctx, "r1", map[string]any{"manual": true})
	require.NoError(t, err)

	assert.Equal(t, models.ExecutionStatusSuccess, record.Status)
	assert.Equal(t, "r1", record.RuleID)
	assert.Equal(t, "alice", record.OwnerID)
	require.Len(t, record.Actions, 2)
	assert.Equal(t, models.ActionStatusSuccess, record.Actions[0].Status)
	assert.Equal(t, models.ActionStatusSuccess, record.Actions[1].Status)

	// Ledgered and counted.
	assert.Len(t, fixture.ledger.ListForOwner("alice", 0), 1)

	updated, err := fixture.registry.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), updated.ExecutionCount)
	assert.NotNil(t, updated.LastExecutedAt)
}

func TestExecutorRun_SingleFailureYieldsPartial(t *testing.T) {
	ctx := context.Background()
	rule := pipelineRule("r1",
		models.Action{Kind: models.ActionKindCreateCalendarEntry, Config: map[string]any{}},
		models.Action{Kind: models.ActionKindSendNotification, Config: map[string]any{"fail": true}},
	)

	fixture := newExecutorFixture(t, rule)

	record, err := fixture.executor.Run(ctx, "r1", nil)
	require.NoError(t, err)

	assert.Equal(t, models.ExecutionStatusPartial, record.Status)
	require.Len(t, record.Actions, 2)
	assert.Equal(t, models.ActionStatusSuccess, record.Actions[0].Status)
	assert.Equal(t, models.ActionStatusFailed, record.Actions[1].Status)
	assert.Contains(t, record.Actions[1].Details, "error")

	// Stats still increment on partial runs.
	updated, _ := fixture.registry.Get(ctx, "r1")
	assert.Equal(t, int64(1), updated.ExecutionCount)
}

func TestExecutorRun_AllFailuresYieldFailed(t *testing.T) {
	ctx := context.Background()
	rule := pipelineRule("r1",
		models.Action{Kind: models.ActionKindSendNotification, Config: map[string]any{"fail": true}},
		models.Action{Kind: models.ActionKindSendNotification, Config: map[string]any{"fail": true}},
	)

	fixture := newExecutorFixture(t, rule)

	record, err := fixture.executor.Run(ctx, "r1", nil)
	require.NoError(t, err)

	assert.Equal(t, models.ExecutionStatusFailed, record.Status)
	assert.Len(t, fixture.ledger.ListForOwner("alice", 0), 1)
}

func TestExecutorRun_FailureDoesNotAbortPipeline(t *testing.T) {
	ctx := context.Background()
	rule := pipelineRule("r1",
		models.Action{Kind: models.ActionKindSendNotification, Config: map[string]any{"fail": true, "marker": "first"}},
		models.Action{Kind: models.ActionKindSendNotification, Config: map[string]any{"marker": "second"}},
	)

	fixture := newExecutorFixture(t, rule)

	record, err := fixture.executor.Run(ctx, "r1", nil)
	require.NoError(t, err)

	assert.Equal(t, models.ExecutionStatusPartial, record.Status)
	assert.Equal(t, []string{"first", "second"}, fixture.notification.seen())
}

func TestExecutorRun_DisabledRule(t *testing.T) {
	ctx := context.Background()
	rule := pipelineRule("r1", models.Action{Kind: models.ActionKindSendNotification, Config: map[string]any{}})
	rule.Enabled = false

	fixture := newExecutorFixture(t, rule)

	record, err := fixture.executor.Run(ctx, "r1", nil)
	require.ErrorIs(t, err, ErrRuleDisabled)
	assert.Nil(t, record)

	// No record, no stats update.
	assert.Empty(t, fixture.ledger.ListForOwner("alice", 0))

	unchanged, _ := fixture.registry.Get(ctx, "r1")
	assert.Equal(t, int64(0), unchanged.ExecutionCount)
}

func TestExecutorRun_UnknownRule(t *testing.T) {
	fixture := newExecutorFixture(t)

	record, err := fixture.executor.Run(context.Background(), "missing", nil)
	require.ErrorIs(t, err, ErrRuleNotFound)
	assert.Nil(t, record)
}

func TestExecutorRun_UnregisteredActionKindFails(t *testing.T) {
	ctx := context.Background()
	rule := pipelineRule("r1",
		models.Action{Kind: models.ActionKindWebhookCall, Config: map[string]any{}},
		models.Action{Kind: models.ActionKindSendNotification, Config: map[string]any{}},
	)

	fixture := newExecutorFixture(t, rule)

	record, err := fixture.executor.Run(ctx, "r1", nil)
	require.NoError(t, err)

	assert.Equal(t, models.ExecutionStatusPartial, record.Status)
	assert.Equal(t, models.ActionStatusFailed, record.Actions[0].Status)
}

func TestExecutorRun_DelayBeforeAction(t *testing.T) {
	ctx := context.Background()
	rule := pipelineRule("r1",
		models.Action{Kind: models.ActionKindSendNotification, Config: map[string]any{}, DelayMs: 30},
	)

	fixture := newExecutorFixture(t, rule)

	started := time.Now()

	record, err := fixture.executor.Run(ctx, "r1", nil)
	require.NoError(t, err)

	assert.Equal(t, models.ExecutionStatusSuccess, record.Status)
	assert.GreaterOrEqual(t, time.Since(started), 30*time.Millisecond)
}

func TestExecutorRun_PanicMarksRunFailed(t *testing.T) {
	ctx := context.Background()
	rule := pipelineRule("r1",
		models.Action{Kind: models.ActionKindSendNotification, Config: map[string]any{}},
		models.Action{Kind: models.ActionKindSendNotification, Config: map[string]any{"panic": true}},
		models.Action{Kind: models.ActionKindSendNotification, Config: map[string]any{"marker": "unreached"}},
	)

	fixture := newExecutorFixture(t, rule)

	record, err := fixture.executor.Run(ctx, "r1", nil)
	require.NoError(t, err)

	assert.Equal(t, models.ExecutionStatusFailed, record.Status)
	assert.Contains(t, record.Error, "panicked")
	assert.Contains(t, record.Error, "boom")

	// Outcomes recorded before the panic survive; later actions never ran.
	require.Len(t, record.Actions, 1)
	assert.Equal(t, models.ActionStatusSuccess, record.Actions[0].Status)
	assert.Empty(t, fixture.notification.seen())

	// The failed run is still ledgered and counted.
	assert.Len(t, fixture.ledger.ListForOwner("alice", 0), 1)

	updated, getErr := fixture.registry.Get(ctx, "r1")
	require.NoError(t, getErr)
	assert.Equal(t, int64(1), updated.ExecutionCount)
	assert.NotNil(t, updated.LastExecutedAt)
}

func TestExecutorRun_RecordsDuration(t *testing.T) {
	rule := pipelineRule("r1", models.Action{Kind: models.ActionKindSendNotification, Config: map[string]any{}})
	fixture := newExecutorFixture(t, rule)

	record, err := fixture.executor.Run(context.Background(), "r1", nil)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, record.DurationMs, int64(0))
	assert.NotEmpty(t, record.ID)
	assert.False(t, record.Timestamp.IsZero())
}
