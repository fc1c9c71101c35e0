package orchestrator

import (
	"sync"

	"github.com/tallybi/tallybi/internal/llm"
)

// userState holds one user's conversation history. Its mutex is held for
// the entire duration of a query, so a second query from the same user
// waits for the first to finish; tool-call rounds never interleave per
// user. Distinct users proceed independently.
type userState struct {
	mu    sync.Mutex
	turns []llm.Message
}

// histories maps user ids to their conversation state. Owned exclusively
// by the Orchestrator; no other component reads or writes it.
type histories struct {
	mu    sync.Mutex
	users map[string]*userState
}

func newHistories() *histories {
	return &histories{users: make(map[string]*userState)}
}

// get returns the state for userID, creating it on first use.
func (h *histories) get(userID string) *userState {
	h.mu.Lock()
	defer h.mu.Unlock()
	state, ok := h.users[userID]
	if !ok {
		state = &userState{}
		h.users[userID] = state
	}
	return state
}

// clear drops a user's history entirely.
func (h *histories) clear(userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.users, userID)
}

// append records turns and trims to the most recent limit entries. Called
// once per completed query, never mid-round.
func (u *userState) append(limit int, turns ...llm.Message) {
	u.turns = append(u.turns, turns...)
	if len(u.turns) > limit {
		u.turns = u.turns[len(u.turns)-limit:]
	}
}
