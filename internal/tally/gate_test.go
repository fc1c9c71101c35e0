package tally

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tallybi/tallybi/internal/log"
	"github.com/tallybi/tallybi/internal/snapshot"
)

func newTestGate(t *testing.T) *Gate {
	t.Helper()
	store, err := snapshot.New(t.TempDir(), log.NewNop())
	require.NoError(t, err)
	return NewGate(store, log.NewNop())
}

func passthrough(raw string) (string, error) { return raw, nil }

func TestGate_LiveResultIsCached(t *testing.T) {
	g := newTestGate(t)

	got := g.Resolve("ledgers",
		func() string { return "live data" },
		passthrough)
	assert.Equal(t, "live data", got)

	up, known := g.Reachable()
	assert.True(t, up)
	assert.True(t, known)

	record, ok := g.Store().Load("ledgers")
	require.True(t, ok)
	assert.Equal(t, "live data", record.Data)
}

func TestGate_FallsBackToSnapshot(t *testing.T) {
	g := newTestGate(t)

	g.Resolve("ledgers", func() string { return "cached listing" }, passthrough)

	got := g.Resolve("ledgers",
		func() string { return errEnvelope("Cannot connect to Tally at http://localhost:9000") },
		passthrough)

	assert.Contains(t, got, "⚠️ Tally is offline. Showing cached data from just now:")
	assert.Contains(t, got, "cached listing")

	up, known := g.Reachable()
	assert.False(t, up)
	assert.True(t, known)
}

func TestGate_NoSnapshotNoData(t *testing.T) {
	g := newTestGate(t)

	got := g.Resolve("trial_balance",
		func() string { return errEnvelope("Tally request timed out") },
		passthrough)
	assert.Equal(t, "❌ Tally is offline and no cached data available for this query.", got)
}

func TestGate_FormatFailureFallsBack(t *testing.T) {
	g := newTestGate(t)

	g.Resolve("pnl", func() string { return "good" }, passthrough)

	// A live fetch whose payload cannot be parsed counts as a failure too.
	got := g.Resolve("pnl",
		func() string { return "<garbage that parses badly>" },
		func(string) (string, error) { return "", errors.New("malformed") })

	assert.Contains(t, got, "Showing cached data from")
	assert.Contains(t, got, "good")
}

func TestGate_FailureDoesNotOverwriteSnapshot(t *testing.T) {
	g := newTestGate(t)

	g.Resolve("debtors", func() string { return "v1" }, passthrough)
	g.Resolve("debtors", func() string { return errEnvelope("down") }, passthrough)

	record, ok := g.Store().Load("debtors")
	require.True(t, ok)
	assert.Equal(t, "v1", record.Data)
}

func TestGate_ReachableUnknownBeforeFirstResolve(t *testing.T) {
	g := newTestGate(t)
	up, known := g.Reachable()
	assert.False(t, up)
	assert.False(t, known)
}
