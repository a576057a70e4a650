// internal/game/session_test.go
package game

import (
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jordwess/knavery/internal/models"
)

// mockBroadcaster collects events instead of sending them over WS.
type mockBroadcaster struct {
	mu     sync.Mutex
	events []Event               // every event, in emission order
	byConn map[uuid.UUID][]Event // per-recipient view
}

func newMockBroadcaster() *mockBroadcaster {
	return &mockBroadcaster{
		byConn: make(map[uuid.UUID][]Event),
	}
}

func (mb *mockBroadcaster) sendFn(to []uuid.UUID, ev Event) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.events = append(mb.events, ev)
	for _, id := range to {
		mb.byConn[id] = append(mb.byConn[id], ev)
	}
}

func (mb *mockBroadcaster) lastOfType(t EventType) *Event {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	for i := len(mb.events) - 1; i >= 0; i-- {
		if mb.events[i].Type == t {
			ev := mb.events[i]
			return &ev
		}
	}
	return nil
}

func (mb *mockBroadcaster) countOfType(t EventType) int {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	n := 0
	for _, ev := range mb.events {
		if ev.Type == t {
			n++
		}
	}
	return n
}

func (mb *mockBroadcaster) lastForConn(id uuid.UUID, t EventType) *Event {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	events := mb.byConn[id]
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Type == t {
			ev := events[i]
			return &ev
		}
	}
	return nil
}

// newTestSession builds a session with a deterministic rng, captured events,
// and timers long enough that they never fire during a test.
func newTestSession(seed int64) (*Session, *mockBroadcaster) {
	mb := newMockBroadcaster()
	s := NewSession("TESTROOM")
	s.rng = rand.New(rand.NewSource(seed))
	s.SendFn = mb.sendFn
	s.BotDelay = time.Hour
	s.CloseDelay = time.Hour
	return s, mb
}

func seatHumans(t *testing.T, s *Session, n int) []uuid.UUID {
	t.Helper()
	ids := make([]uuid.UUID, n)
	names := []string{"Alice", "Bob", "Carol", "Dave", "Eve"}
	for i := 0; i < n; i++ {
		ids[i] = uuid.New()
		idx, ok := s.Seat(&Occupant{ConnID: ids[i], Name: names[i]})
		require.True(t, ok)
		require.Equal(t, i, idx)
	}
	return ids
}

func (s *Session) snapshot() (st State, active, phase, round, assassinations int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.active, s.phase, s.round, s.assassinations
}

func TestSeatFillsInOrder(t *testing.T) {
	s, mb := newTestSession(1)
	ids := seatHumans(t, s, 5)

	_, ok := s.Seat(&Occupant{ConnID: uuid.New(), Name: "Frank"})
	assert.False(t, ok, "sixth joiner must be refused")
	assert.False(t, s.HasVacancy())

	roster := mb.lastOfType(EventUpdatePlayers)
	require.NotNil(t, roster)
	assert.Equal(t, []string{"Alice", "Bob", "Carol", "Dave", "Eve"}, roster.Names)
	assert.Len(t, ids, 5)
}

func TestReadyIsIdempotent(t *testing.T) {
	s, mb := newTestSession(1)
	ids := seatHumans(t, s, 5)

	s.HandleReady(ids[0], true)
	s.HandleReady(ids[0], true) // repeat must not toggle

	ev := mb.lastOfType(EventReadyCount)
	require.NotNil(t, ev)
	require.NotNil(t, ev.Count)
	assert.Equal(t, 1, *ev.Count)
	assert.Equal(t, StateLobby, s.State())

	s.HandleReady(ids[0], false)
	ev = mb.lastOfType(EventReadyCount)
	require.NotNil(t, ev.Count)
	assert.Equal(t, 0, *ev.Count)
}

func TestGameStartsWhenAllReady(t *testing.T) {
	s, mb := newTestSession(2)
	ids := seatHumans(t, s, 5)

	for i, id := range ids {
		s.HandleReady(id, true)
		if i < 4 {
			assert.Equal(t, StateLobby, s.State())
		}
	}
	assert.Equal(t, StatePlaying, s.State())

	// Every seat holds a role and exactly one is the knave.
	knaves := 0
	for i, id := range ids {
		role := mb.lastForConn(id, EventGameStart)
		require.NotNil(t, role, "seat %d got no role", i)
		require.NotNil(t, role.Role)
		if role.Role.IsKnave() {
			knaves++
		}
	}
	assert.Equal(t, 1, knaves)

	// First round of phase one opens on seat 0.
	_, active, phase, round, _ := s.snapshot()
	assert.Equal(t, 1, phase)
	assert.Equal(t, 0, round)
	assert.Equal(t, 0, active)

	start := mb.lastOfType(EventRoundStart)
	require.NotNil(t, start)
	assert.Len(t, start.Attackers, 2)

	turn := mb.lastOfType(EventTurnIsOccurring)
	require.NotNil(t, turn)
	require.NotNil(t, turn.Slot)
	assert.Equal(t, 0, *turn.Slot)
}

func TestCardChoiceOnlyFromActiveSeat(t *testing.T) {
	s, mb := newTestSession(3)
	ids := seatHumans(t, s, 5)
	for _, id := range ids {
		s.HandleReady(id, true)
	}

	s.HandleCardChoice(ids[1], 0) // not seat 1's turn
	_, active, _, _, _ := s.snapshot()
	assert.Equal(t, 0, active)

	s.HandleCardChoice(ids[0], 5) // out of the offered range
	_, active, _, _, _ = s.snapshot()
	assert.Equal(t, 0, active)

	s.HandleCardChoice(ids[0], 1)
	_, active, _, _, _ = s.snapshot()
	assert.Equal(t, 1, active)

	// Seat 1 now gets a private offer of three cards.
	offer := mb.lastForConn(ids[1], EventTakeTurn)
	require.NotNil(t, offer)
	assert.Len(t, offer.Hand, 3)
	assert.Len(t, offer.Played, 1)
}

// playThrough drives the game to completion by always playing the first
// offered card from whichever seat is active.
func playThrough(t *testing.T, s *Session, ids []uuid.UUID) {
	t.Helper()
	for i := 0; i < 5*roundsPerPhase*phasesPerGame+1; i++ {
		st, active, _, _, _ := s.snapshot()
		if st != StatePlaying {
			return
		}
		s.HandleCardChoice(ids[active], 0)
	}
	t.Fatal("game did not finish within the expected number of turns")
}

func TestFullPlaythroughReachesVerdict(t *testing.T) {
	for seed := int64(0); seed < 8; seed++ {
		s, mb := newTestSession(seed)
		ids := seatHumans(t, s, 5)

		var result *Result
		var resultMu sync.Mutex
		done := make(chan struct{})
		s.OnResult = func(res Result) {
			resultMu.Lock()
			result = &res
			resultMu.Unlock()
			close(done)
		}

		for _, id := range ids {
			s.HandleReady(id, true)
		}
		playThrough(t, s, ids)

		end := mb.lastOfType(EventEndGame)
		require.NotNil(t, end, "seed %d: no end-of-game event", seed)
		require.NotNil(t, end.Assassinations)
		st, _, _, _, assassinations := s.snapshot()
		assert.Equal(t, assassinations, *end.Assassinations)

		if assassinations == votingThreshold {
			assert.Equal(t, StateVoting, st, "seed %d", seed)
			continue
		}
		assert.Equal(t, StateClosed, st, "seed %d", seed)

		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatalf("seed %d: result never emitted", seed)
		}
		resultMu.Lock()
		res := *result
		resultMu.Unlock()
		if assassinations >= assassinationCap {
			assert.Equal(t, "knaves", res.Winner)
		} else {
			assert.Equal(t, "knights", res.Winner)
		}
		assert.False(t, res.KnaveEscaped)
		assert.GreaterOrEqual(t, res.KnaveSlot, 0)
	}
}

func TestRoundOpenerRotation(t *testing.T) {
	s, _ := newTestSession(4)
	ids := seatHumans(t, s, 5)
	for _, id := range ids {
		s.HandleReady(id, true)
	}

	seen := make(map[int][]int) // phase -> opener per round
	for {
		st, active, phase, _, _ := s.snapshot()
		if st != StatePlaying {
			break
		}
		if s.turnAtStart() {
			seen[phase] = append(seen[phase], active)
		}
		s.HandleCardChoice(ids[active], 0)
	}

	for phase, openers := range seen {
		for round, opener := range openers {
			want := (4*(phase-1) + round) % SlotsPerSession
			assert.Equal(t, want, opener, "phase %d round %d", phase, round)
		}
	}
	// Across two phases all openers must differ from the naive
	// round-robin of a single phase.
	if len(seen[2]) > 0 {
		assert.NotEqual(t, seen[1][0], seen[2][0])
	}
}

// turnAtStart reports whether no card has been played yet this round.
func (s *Session) turnAtStart() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.turn == 0
}

func TestDisconnectPreservesSeatState(t *testing.T) {
	s, mb := newTestSession(5)
	ids := seatHumans(t, s, 5)
	for _, id := range ids {
		s.HandleReady(id, true)
	}
	require.Equal(t, StatePlaying, s.State())

	s.HandleDisconnect(ids[2])

	assert.Equal(t, StatePlaying, s.State(), "session survives while humans remain")
	slot := s.Slots[2]
	assert.Nil(t, slot.Occupant)
	assert.NotNil(t, slot.Role, "role stays with the seat")
	assert.Len(t, slot.Hand, cardsPerHand)

	roster := mb.lastOfType(EventUpdatePlayers)
	require.NotNil(t, roster)
	assert.Len(t, roster.Names, 4)
}

func TestReplacementInheritsSeat(t *testing.T) {
	s, mb := newTestSession(6)
	ids := seatHumans(t, s, 5)
	for _, id := range ids {
		s.HandleReady(id, true)
	}

	// Vacate the active seat; the turn stalls until someone takes it over.
	s.HandleDisconnect(ids[0])
	_, active, _, _, _ := s.snapshot()
	require.Equal(t, 0, active)

	sub := uuid.New()
	idx, ok := s.Seat(&Occupant{ConnID: sub, Name: "Sub"})
	require.True(t, ok)
	assert.Equal(t, 0, idx)

	// The replacement is told its inherited role and re-offered the turn.
	role := mb.lastForConn(sub, EventGameStart)
	require.NotNil(t, role)
	offer := mb.lastForConn(sub, EventTakeTurn)
	require.NotNil(t, offer)
	assert.Len(t, offer.Hand, 3)
}

func TestLastHumanLeavingClosesSession(t *testing.T) {
	s, _ := newTestSession(7)
	ids := seatHumans(t, s, 1)
	s.FillWithBots()

	var closedMu sync.Mutex
	var closedWith []uuid.UUID
	s.OnClose = func(_ *Session, occupants []uuid.UUID) {
		closedMu.Lock()
		defer closedMu.Unlock()
		closedWith = occupants
	}

	s.HandleDisconnect(ids[0])

	assert.Equal(t, StateClosed, s.State())
	closedMu.Lock()
	defer closedMu.Unlock()
	assert.Len(t, closedWith, 4, "the four bots were still seated at teardown")
}

func TestChatRebroadcast(t *testing.T) {
	s, mb := newTestSession(8)
	ids := seatHumans(t, s, 2)

	s.Chat(ids[1], "hello room")
	ev := mb.lastOfType(EventMessageRecieve)
	require.NotNil(t, ev)
	assert.Equal(t, "Bob", ev.Sender)
	assert.Equal(t, "hello room", ev.Text)

	s.Chat(uuid.New(), "not seated") // dropped
	assert.Equal(t, 1, mb.countOfType(EventMessageRecieve))
}

func TestCloseIsIdempotent(t *testing.T) {
	s, _ := newTestSession(9)
	seatHumans(t, s, 2)

	calls := 0
	var callsMu sync.Mutex
	s.OnClose = func(_ *Session, _ []uuid.UUID) {
		callsMu.Lock()
		calls++
		callsMu.Unlock()
	}

	s.Close()
	s.Close()

	callsMu.Lock()
	defer callsMu.Unlock()
	assert.Equal(t, 1, calls)
}

// enterVoting forces the session into the voting phase with the knave at the
// given seat, bypassing the play phases.
func enterVoting(s *Session, knaveSlot int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.knaveSlot = knaveSlot
	for i, slot := range s.Slots {
		role := models.JackOf(models.Suits[i%len(models.Suits)])
		if i == knaveSlot {
			role = models.Joker()
		}
		slot.Role = &role
	}
	s.assassinations = votingThreshold
	s.beginVotingUnsafe()
}

func TestVotingTopTalliedKnaveEscapes(t *testing.T) {
	s, mb := newTestSession(10)
	ids := seatHumans(t, s, 5)
	enterVoting(s, 2)

	// Three votes on the knave, two elsewhere: no other seat strictly
	// exceeds the knave's tally.
	s.HandleVote(ids[0], 2)
	s.HandleVote(ids[1], 2)
	s.HandleVote(ids[2], 0)
	s.HandleVote(ids[3], 2)
	s.HandleVote(ids[4], 1)

	ev := mb.lastOfType(EventEndVoting)
	require.NotNil(t, ev)
	require.NotNil(t, ev.Slot)
	require.NotNil(t, ev.Escaped)
	assert.Equal(t, 2, *ev.Slot)
	assert.True(t, *ev.Escaped)
}

func TestVotingTieFavorsKnave(t *testing.T) {
	s, mb := newTestSession(11)
	ids := seatHumans(t, s, 5)
	enterVoting(s, 4)

	// Two on the knave, two on seat 0, one on seat 1: a tie at the top.
	s.HandleVote(ids[0], 4)
	s.HandleVote(ids[1], 4)
	s.HandleVote(ids[2], 0)
	s.HandleVote(ids[3], 0)
	s.HandleVote(ids[4], 1)

	ev := mb.lastOfType(EventEndVoting)
	require.NotNil(t, ev)
	require.NotNil(t, ev.Escaped)
	assert.True(t, *ev.Escaped, "ties go to the knave")
	assert.Equal(t, StateClosed, s.State())
}

func TestVotingExposedWhenOutTallied(t *testing.T) {
	s, mb := newTestSession(12)
	ids := seatHumans(t, s, 5)
	enterVoting(s, 3)

	// The room piles onto an innocent seat; its tally strictly exceeds
	// the knave's, which exposes the knave.
	s.HandleVote(ids[0], 0)
	s.HandleVote(ids[1], 0)
	s.HandleVote(ids[2], 0)
	s.HandleVote(ids[3], 1)
	s.HandleVote(ids[4], 1)

	ev := mb.lastOfType(EventEndVoting)
	require.NotNil(t, ev)
	require.NotNil(t, ev.Escaped)
	assert.False(t, *ev.Escaped, "seat 0 strictly out-tallied the knave")
}

func TestDuplicateVoteRejected(t *testing.T) {
	s, mb := newTestSession(13)
	ids := seatHumans(t, s, 5)
	enterVoting(s, 1)

	s.HandleVote(ids[0], 1)
	s.HandleVote(ids[0], 2) // second vote from the same seat
	s.HandleVote(ids[0], 3)

	assert.Equal(t, 1, mb.countOfType(EventMessageRecieve), "only one vote announcement")
	assert.Equal(t, StateVoting, s.State(), "four votes still outstanding")
	assert.Equal(t, 1, s.Slots[1].VoteTally)
	assert.Equal(t, 0, s.Slots[2].VoteTally)
}

func TestVoteOutOfRangeRejected(t *testing.T) {
	s, _ := newTestSession(14)
	ids := seatHumans(t, s, 5)
	enterVoting(s, 1)

	s.HandleVote(ids[0], -1)
	s.HandleVote(ids[0], SlotsPerSession)
	assert.False(t, s.Slots[0].HasVoted)
}

func TestFillWithBotsStartsLobby(t *testing.T) {
	s, mb := newTestSession(15)
	ids := seatHumans(t, s, 1)
	s.HandleReady(ids[0], true)
	require.Equal(t, StateLobby, s.State())

	s.FillWithBots()

	assert.Equal(t, StatePlaying, s.State(), "bots arrive ready, completing the lobby")
	roster := mb.lastOfType(EventUpdatePlayers)
	require.NotNil(t, roster)
	assert.Len(t, roster.Names, 5)
}

func TestBotPlaysItsTurn(t *testing.T) {
	s, _ := newTestSession(16)
	ids := seatHumans(t, s, 1)
	s.BotDelay = 5 * time.Millisecond
	s.HandleReady(ids[0], true)
	s.FillWithBots()
	require.Equal(t, StatePlaying, s.State())

	// Seat 0 is the human opener; after its play the four bots should each
	// move on their own within a few delay intervals.
	s.HandleCardChoice(ids[0], 0)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		st, _, _, round, _ := s.snapshot()
		if st != StatePlaying || round > 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("bots never finished the opening round")
}

func TestBotVotesResolveVoting(t *testing.T) {
	s, mb := newTestSession(17)
	ids := seatHumans(t, s, 1)
	s.BotDelay = 5 * time.Millisecond
	s.FillWithBots()
	enterVoting(s, 0)

	s.HandleVote(ids[0], 3)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s.State() == StateClosed {
			ev := mb.lastOfType(EventEndVoting)
			require.NotNil(t, ev)
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("bot votes never completed the tally")
}
