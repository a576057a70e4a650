// internal/game/match_queue.go
package game

import (
	"log"
	"sync"

	"github.com/google/uuid"
)

// MatchQueue keeps a waiting list per requested room code and groups exactly
// five pending identities into a new session. A joiner is first offered any
// open seat in an existing session for the same code (including seats
// vacated by disconnects); only then do they queue.
type MatchQueue struct {
	mu       sync.Mutex
	waiting  map[string][]*Occupant
	sessions map[string][]uuid.UUID

	registry *SessionRegistry

	// SessionFactory creates a fully wired session for a room code and is
	// expected to register it with the registry. Defaults to NewSession so
	// the queue is usable standalone in tests.
	SessionFactory func(roomCode string) *Session
}

func NewMatchQueue(registry *SessionRegistry) *MatchQueue {
	q := &MatchQueue{
		waiting:  make(map[string][]*Occupant),
		sessions: make(map[string][]uuid.UUID),
		registry: registry,
	}
	q.SessionFactory = func(roomCode string) *Session {
		s := NewSession(roomCode)
		registry.AddSession(s)
		return s
	}
	return q
}

// Join routes an identity toward a seat: backfill an existing session's
// vacancy if possible, otherwise queue; a full complement of five waiting
// identities forms a new session seated in arrival order.
func (q *MatchQueue) Join(roomCode string, oc *Occupant) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, sid := range q.sessions[roomCode] {
		sess, ok := q.registry.GetSession(sid)
		if !ok {
			continue
		}
		if slot, seated := sess.Seat(oc); seated {
			q.registry.Bind(oc.ConnID, sess, slot)
			log.Printf("queue: %q backfilled into session %s seat %d", oc.Name, sess.ID, slot)
			return
		}
	}

	q.waiting[roomCode] = append(q.waiting[roomCode], oc)
	if len(q.waiting[roomCode]) < SlotsPerSession {
		return
	}

	group := q.waiting[roomCode][:SlotsPerSession]
	q.waiting[roomCode] = q.waiting[roomCode][SlotsPerSession:]
	if len(q.waiting[roomCode]) == 0 {
		delete(q.waiting, roomCode)
	}

	sess := q.SessionFactory(roomCode)
	q.sessions[roomCode] = append(q.sessions[roomCode], sess.ID)
	for _, member := range group {
		slot, seated := sess.Seat(member)
		if !seated {
			// Cannot happen on a fresh session; log and drop rather than wedge.
			log.Printf("queue: no seat for %q in fresh session %s", member.Name, sess.ID)
			continue
		}
		q.registry.Bind(member.ConnID, sess, slot)
	}
	log.Printf("queue: formed session %s for room %q", sess.ID, roomCode)
}

// Leave removes a still-waiting identity, used when a connection drops
// before being grouped. Room codes with no waiters and no sessions are
// forgotten to bound memory.
func (q *MatchQueue) Leave(roomCode string, connID uuid.UUID) {
	q.mu.Lock()
	defer q.mu.Unlock()

	list := q.waiting[roomCode]
	for i, oc := range list {
		if oc.ConnID == connID {
			q.waiting[roomCode] = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(q.waiting[roomCode]) == 0 {
		delete(q.waiting, roomCode)
	}
	q.forgetIfEmptyUnsafe(roomCode)
}

// ForgetSession drops a closed session from its room code's set.
func (q *MatchQueue) ForgetSession(roomCode string, sessionID uuid.UUID) {
	q.mu.Lock()
	defer q.mu.Unlock()

	ids := q.sessions[roomCode]
	for i, id := range ids {
		if id == sessionID {
			q.sessions[roomCode] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	if len(q.sessions[roomCode]) == 0 {
		delete(q.sessions, roomCode)
	}
	q.forgetIfEmptyUnsafe(roomCode)
}

// WaitingCount reports how many identities are queued for a room code.
func (q *MatchQueue) WaitingCount(roomCode string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.waiting[roomCode])
}

func (q *MatchQueue) forgetIfEmptyUnsafe(roomCode string) {
	if len(q.waiting[roomCode]) == 0 && len(q.sessions[roomCode]) == 0 {
		delete(q.waiting, roomCode)
		delete(q.sessions, roomCode)
	}
}
