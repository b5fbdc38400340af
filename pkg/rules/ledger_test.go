package rules

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmateus/mordomo/pkg/models"
)

func record(id, ruleID, owner string, at time.Time) *models.ExecutionRecord {
	return &models.ExecutionRecord{
		ID:        id,
		RuleID:    ruleID,
		OwnerID:   owner,
		Status:    models.ExecutionStatusSuccess,
		Timestamp: at,
	}
}

func TestLedgerNewestFirst(t *testing.T) {
	ledger := NewLedger(10)
	base := time.Now()

	ledger.Append(record("e1", "r1", "alice", base))
	ledger.Append(record("e2", "r1", "alice", base.Add(time.Second)))

	listed := ledger.ListForOwner("alice", 0)
	require.Len(t, listed, 2)
	assert.Equal(t, "e2", listed[0].ID)
	assert.Equal(t, "e1", listed[1].ID)
}

func TestLedgerEviction(t *testing.T) {
	ledger := NewLedger(100)
	base := time.Now()

	for i := 0; i < 101; i++ {
		ledger.Append(record(fmt.Sprintf("e%d", i), "r1", "alice", base.Add(time.Duration(i)*time.Millisecond)))
	}

	listed := ledger.ListForOwner("alice", 0)
	require.Len(t, listed, 100)

	// Oldest entry evicted, newest retained.
	assert.Equal(t, "e100", listed[0].ID)
	assert.Equal(t, "e1", listed[99].ID)
}

func TestLedgerCapIsPerOwner(t *testing.T) {
	ledger := NewLedger(2)
	base := time.Now()

	ledger.Append(record("a1", "r1", "alice", base))
	ledger.Append(record("a2", "r1", "alice", base.Add(time.Second)))
	ledger.Append(record("a3", "r1", "alice", base.Add(2*time.Second)))
	ledger.Append(record("b1", "r2", "bob", base))

	assert.Len(t, ledger.ListForOwner("alice", 0), 2)
	assert.Len(t, ledger.ListForOwner("bob", 0), 1)
}

func TestLedgerListLimit(t *testing.T) {
	ledger := NewLedger(10)
	base := time.Now()

	for i := 0; i < 5; i++ {
		ledger.Append(record(fmt.Sprintf("e%d", i), "r1", "alice", base.Add(time.Duration(i)*time.Second)))
	}

	assert.Len(t, ledger.ListForOwner("alice", 3), 3)
	assert.Len(t, ledger.ListForOwner("alice", 50), 5)
}

func TestLedgerListForRule(t *testing.T) {
	ledger := NewLedger(10)
	base := time.Now()

	ledger.Append(record("e1", "r1", "alice", base))
	ledger.Append(record("e2", "r2", "alice", base.Add(time.Second)))
	ledger.Append(record("e3", "r1", "bob", base.Add(2*time.Second)))

	// Scans across owners, newest first.
	listed := ledger.ListForRule("r1", 0)
	require.Len(t, listed, 2)
	assert.Equal(t, "e3", listed[0].ID)
	assert.Equal(t, "e1", listed[1].ID)

	assert.Len(t, ledger.ListForRule("r1", 1), 1)
	assert.Empty(t, ledger.ListForRule("unknown", 0))
}
