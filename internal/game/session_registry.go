// internal/game/session_registry.go
package game

import (
	"sync"

	"github.com/google/uuid"
)

// SeatRef routes a connection identity to its session and seat.
type SeatRef struct {
	Session *Session
	Slot    int
}

// SessionRegistry owns the set of live sessions and the identity to
// (session, seat) bindings used to route inbound events. Bindings are
// written only on join (by the MatchQueue path) and on disconnect/close.
type SessionRegistry struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
	bindings map[uuid.UUID]SeatRef
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		sessions: make(map[uuid.UUID]*Session),
		bindings: make(map[uuid.UUID]SeatRef),
	}
}

func (r *SessionRegistry) AddSession(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = s
}

func (r *SessionRegistry) GetSession(id uuid.UUID) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	return s, ok
}

func (r *SessionRegistry) RemoveSession(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// Bind records where a connection is seated.
func (r *SessionRegistry) Bind(connID uuid.UUID, s *Session, slot int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bindings[connID] = SeatRef{Session: s, Slot: slot}
}

// Unbind drops a connection's seat binding, if any.
func (r *SessionRegistry) Unbind(connID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.bindings, connID)
}

// Lookup resolves a connection to its seat, if it has one.
func (r *SessionRegistry) Lookup(connID uuid.UUID) (SeatRef, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ref, ok := r.bindings[connID]
	return ref, ok
}
