// Package bot implements the Telegram front end: commands, inline keyboards,
// and the multi-step conversation that collects a new ask. The package owns
// no lifecycle rules of its own; it registers users, applies the access gate,
// and hands completed payloads to the ask service.
package bot

import "sync"

// flowState enumerates the steps of the new-ask conversation.
type flowState int

const (
	stateIdle flowState = iota
	statePickingAssignees
	stateCollectingText
	stateConfirming
)

// askSession is the per-user scratch state of one new-ask conversation:
// which assignees are currently selected (in pick order) and the request
// text once entered. Sessions are keyed by user id so concurrent users
// never share selection state.
type askSession struct {
	State    flowState
	Selected map[int64]struct{}
	Order    []int64
	Text     string
}

// toggle flips an assignee in or out of the selection, preserving first-pick
// order for the ones that remain.
func (s *askSession) toggle(userID int64) {
	if _, ok := s.Selected[userID]; ok {
		delete(s.Selected, userID)
		for i, id := range s.Order {
			if id == userID {
				s.Order = append(s.Order[:i], s.Order[i+1:]...)
				break
			}
		}
		return
	}
	s.Selected[userID] = struct{}{}
	s.Order = append(s.Order, userID)
}

// sessionStore holds active conversations keyed by user id. It is safe for
// concurrent use from the update loop.
type sessionStore struct {
	mu sync.Mutex
	m  map[int64]*askSession
}

func newSessionStore() *sessionStore {
	return &sessionStore{m: make(map[int64]*askSession)}
}

// begin replaces any existing conversation for userID with a fresh one in
// the assignee-picking state.
func (st *sessionStore) begin(userID int64) *askSession {
	st.mu.Lock()
	defer st.mu.Unlock()
	s := &askSession{
		State:    statePickingAssignees,
		Selected: make(map[int64]struct{}),
	}
	st.m[userID] = s
	return s
}

// get returns the active conversation for userID, or nil.
func (st *sessionStore) get(userID int64) *askSession {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.m[userID]
}

// clear discards userID's conversation.
func (st *sessionStore) clear(userID int64) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.m, userID)
}
