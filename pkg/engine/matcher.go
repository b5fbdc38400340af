package engine

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/dmateus/mordomo/pkg/eventbus"
	"github.com/dmateus/mordomo/pkg/events"
	"github.com/dmateus/mordomo/pkg/models"
	"github.com/dmateus/mordomo/pkg/rules"
)

// Matcher evaluates inbound email events against the pattern conditions of
// every enabled email rule belonging to the event's owner, and publishes a
// triggered event per match for the workers to execute.
type Matcher struct {
	registry  *rules.Registry
	publisher eventbus.EventPublisher
	logger    *slog.Logger
}

func NewMatcher(registry *rules.Registry, publisher eventbus.EventPublisher, logger *slog.Logger) *Matcher {
	return &Matcher{
		registry:  registry,
		publisher: publisher,
		logger:    logger.With("module", "trigger_matcher"),
	}
}

// ProcessEvent is fire-and-forget from the caller's perspective: every
// matched rule is dispatched independently and one rule's publish failure
// does not prevent the others from running.
func (m *Matcher) ProcessEvent(ctx context.Context, event models.EmailEvent) {
	candidates := m.registry.EnabledByOwnerAndKind(event.OwnerID, models.TriggerKindEmail)

	m.logger.DebugContext(ctx, "Matching email event",
		"owner_id", event.OwnerID,
		"candidates", len(candidates),
	)

	content := event.Subject + " " + event.Body
	matches := 0

	for _, rule := range candidates {
		matchedPatterns := matchPatterns(rule.Patterns(), content)
		if len(matchedPatterns) == 0 {
			continue
		}

		matches++

		triggered := events.RuleTriggered{
			BaseEvent:   events.NewBaseEvent(events.RuleTriggeredEvent, rule.ID),
			TriggerKind: models.TriggerKindEmail,
			TriggerData: map[string]any{
				"email": map[string]any{
					"subject": event.Subject,
					"body":    event.Body,
					"from":    event.From,
				},
				"matched_patterns": matchedPatterns,
				"trigger_id":       uuid.New().String(),
			},
		}
		triggered.OwnerID = event.OwnerID

		if err := m.publisher.Publish(ctx, rule.ID, triggered); err != nil {
			m.logger.ErrorContext(ctx, "Failed to dispatch matched rule",
				"rule_id", rule.ID, "error", err)
		}
	}

	m.logger.InfoContext(ctx, "Completed trigger matching",
		"owner_id", event.OwnerID,
		"matches", matches,
	)
}

// matchPatterns returns the patterns that match the content, OR semantics.
// Each pattern is tried case-insensitively as a substring first, then as a
// regular expression; patterns that are invalid regexes simply don't match.
func matchPatterns(patterns []string, content string) []string {
	lowered := strings.ToLower(content)
	matched := make([]string, 0)

	for _, pattern := range patterns {
		if pattern == "" {
			continue
		}

		if strings.Contains(lowered, strings.ToLower(pattern)) {
			matched = append(matched, pattern)

			continue
		}

		re, err := regexp.Compile("(?i)" + pattern)
		if err != nil {
			continue
		}

		if re.MatchString(content) {
			matched = append(matched, pattern)
		}
	}

	return matched
}
