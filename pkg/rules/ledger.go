package rules

import (
	"sort"
	"sync"

	"github.com/dmateus/mordomo/pkg/models"
)

// DefaultLedgerCap is the per-owner history cap.
const DefaultLedgerCap = 100

// Ledger is the bounded, per-owner history of execution records. Records
// are immutable once appended; insertion past the cap evicts the oldest
// entry. Lists are newest-first.
type Ledger struct {
	cap int

	mu      sync.RWMutex
	byOwner map[string][]*models.ExecutionRecord
}

func NewLedger(capacity int) *Ledger {
	if capacity <= 0 {
		capacity = DefaultLedgerCap
	}

	return &Ledger{
		cap:     capacity,
		byOwner: make(map[string][]*models.ExecutionRecord),
	}
}

// Append inserts a record at the head of its owner's history.
func (l *Ledger) Append(record *models.ExecutionRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()

	history := l.byOwner[record.OwnerID]

	updated := make([]*models.ExecutionRecord, 0, len(history)+1)
	updated = append(updated, record)
	updated = append(updated, history...)

	if len(updated) > l.cap {
		updated = updated[:l.cap]
	}

	l.byOwner[record.OwnerID] = updated
}

// ListForOwner returns up to limit records for the owner, newest first.
// A non-positive limit returns the full retained history.
func (l *Ledger) ListForOwner(ownerID string, limit int) []*models.ExecutionRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()

	history := l.byOwner[ownerID]
	if limit <= 0 || limit > len(history) {
		limit = len(history)
	}

	out := make([]*models.ExecutionRecord, limit)
	copy(out, history[:limit])

	return out
}

// ListForRule scans across all owners' histories for one rule's records.
// Rule ids are globally unique, so the scan is unambiguous.
func (l *Ledger) ListForRule(ruleID string, limit int) []*models.ExecutionRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]*models.ExecutionRecord, 0)

	for _, history := range l.byOwner {
		for _, record := range history {
			if record.RuleID == ruleID {
				out = append(out, record)
			}
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})

	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}

	return out
}
