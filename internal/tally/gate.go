package tally

import (
	"sync/atomic"

	"github.com/tallybi/tallybi/internal/log"
	"github.com/tallybi/tallybi/internal/snapshot"
)

// Reachability states tracked by the Gate. Best-effort and last-observed:
// used only for status reporting, never for routing a query.
const (
	reachUnknown int32 = iota
	reachUp
	reachDown
)

const noDataMessage = "❌ Tally is offline and no cached data available for this query."

func staleMessage(age, data string) string {
	return "⚠️ Tally is offline. Showing cached data from " + age + ":\n" +
		"─────────────────────────────\n" + data
}

// Gate wraps fetch-then-format with the snapshot cache. On success the
// formatted result is persisted under the query key and returned. On any
// failure (transport error, in-band <ERROR> marker, format/parse error)
// the most recent snapshot is returned with a staleness banner, or a hard
// "no data" message when none exists. Resolve never returns a Go error:
// every outcome is user-presentable text.
type Gate struct {
	store     *snapshot.Store
	logger    log.Logger
	reachable atomic.Int32
}

// NewGate creates a Gate backed by the given snapshot store.
func NewGate(store *snapshot.Store, logger log.Logger) *Gate {
	return &Gate{store: store, logger: logger}
}

// Store exposes the underlying snapshot store (the status tool reads cache
// ages from it).
func (g *Gate) Store() *snapshot.Store { return g.store }

// Reachable reports the last-observed backend state. known is false until
// the first resolve completes.
func (g *Gate) Reachable() (up, known bool) {
	state := g.reachable.Load()
	return state == reachUp, state != reachUnknown
}

// Resolve runs fetch, then format, caching on success and falling back to
// the snapshot for key on failure. Collapsing "network down" and "response
// unparsable" into one failure class keeps a single fallback path for both.
func (g *Gate) Resolve(key string, fetch func() string, format func(raw string) (string, error)) string {
	raw := fetch()
	if !IsError(raw) {
		formatted, err := format(raw)
		if err == nil {
			if err := g.store.Save(key, formatted); err != nil {
				// A failed save only costs future offline coverage; the
				// live answer is still good.
				g.logger.Warn("snapshot save failed", "key", key, "error", err)
			}
			g.reachable.Store(reachUp)
			return formatted
		}
		g.logger.Warn("tally response unparsable", "key", key, "error", err)
	}

	g.reachable.Store(reachDown)

	if record, ok := g.store.Load(key); ok {
		g.logger.Info("serving stale snapshot", "key", key, "age", g.store.Age(key))
		return staleMessage(g.store.Age(key), record.Data)
	}
	return noDataMessage
}
