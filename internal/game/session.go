// internal/game/session.go
package game

import (
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jordwess/knavery/internal/models"
)

// State is the session's lifecycle phase.
type State string

const (
	StateLobby   State = "lobby"
	StatePlaying State = "playing"
	StateVoting  State = "voting"
	StateClosed  State = "closed"
)

const (
	// assassinationCap ends the game outright in the attackers' favor.
	assassinationCap = 4
	// votingThreshold is the exact assassination count that forces a vote.
	votingThreshold = 3

	defaultBotDelay   = 1500 * time.Millisecond
	defaultCloseDelay = 10 * time.Second
)

// Result summarizes a finished match for the history sinks.
type Result struct {
	SessionID      uuid.UUID `json:"session_id"`
	RoomCode       string    `json:"room_code"`
	Assassinations int       `json:"assassinations"`
	KnaveSlot      int       `json:"knave_slot"`
	KnaveEscaped   bool      `json:"knave_escaped"`
	Winner         string    `json:"winner"` // "knights" or "knaves"
	FinishedAt     time.Time `json:"finished_at"`
}

// Session is the per-room game engine. All mutating entry points acquire the
// session mutex; lowercase helpers assume it is held. Cross-session work
// (registry, queue, sinks) happens only through the callback fields, which
// are invoked outside the lock unless noted otherwise.
type Session struct {
	ID       uuid.UUID
	RoomCode string

	Slots [SlotsPerSession]*RoomSlot

	state          State
	phase          int // 0 before the first deal, then 1 or 2
	round          int // 0..3 within a phase
	turn           int // 0..4 within a round
	active         int // seat whose turn it is
	attackDeck     []models.Card
	played         []models.Card
	assassinations int
	knaveSlot      int

	votes int // votes cast this voting phase

	// turnEpoch increments on every turn advance so a delayed bot move can
	// detect it is stale and drop itself.
	turnEpoch  int
	closeTimer *time.Timer
	closed     bool

	rng *rand.Rand
	mu  sync.Mutex

	// BotDelay paces synthetic moves so spectators can follow the stream.
	// CloseDelay keeps the final result on screen before teardown.
	BotDelay   time.Duration
	CloseDelay time.Duration

	// SendFn delivers an event to a set of connections in emission order.
	// It must not block: the session invokes it while holding its lock so
	// that the outward stream reflects transitions in order.
	SendFn func(to []uuid.UUID, ev Event)

	// OnClose runs once, outside the session lock, after teardown.
	OnClose func(s *Session, occupants []uuid.UUID)

	// OnResult receives the final match summary on its own goroutine.
	OnResult func(res Result)
}

// NewSession builds an empty lobby-state session for a room code.
func NewSession(roomCode string) *Session {
	s := &Session{
		ID:         uuid.New(),
		RoomCode:   roomCode,
		state:      StateLobby,
		knaveSlot:  -1,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
		BotDelay:   defaultBotDelay,
		CloseDelay: defaultCloseDelay,
	}
	for i := range s.Slots {
		s.Slots[i] = &RoomSlot{Index: i}
	}
	return s
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// HasVacancy reports whether a joining player could take a seat.
func (s *Session) HasVacancy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return false
	}
	for _, slot := range s.Slots {
		if !slot.Occupied() {
			return true
		}
	}
	return false
}

// Seat places an occupant in the first vacant seat and returns its index.
// If the game is already underway the new occupant inherits the seat's role
// (re-announced privately) and hand; a reseat of the active seat re-offers
// the pending turn.
func (s *Session) Seat(oc *Occupant) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return -1, false
	}
	var slot *RoomSlot
	for _, sl := range s.Slots {
		if !sl.Occupied() {
			slot = sl
			break
		}
	}
	if slot == nil {
		return -1, false
	}

	slot.Occupant = oc
	log.Printf("session %s: %q seated at %d", s.ID, oc.Name, slot.Index)

	s.broadcastRosterUnsafe()
	if slot.Role != nil && !oc.IsBot {
		s.sendToUnsafe(oc.ConnID, newGameStartEvent(*slot.Role))
	}
	if s.state == StatePlaying && slot.Index == s.active {
		s.offerTurnUnsafe()
	}
	if s.state == StateVoting && oc.IsBot && !slot.HasVoted {
		s.scheduleBotVoteUnsafe(slot.Index)
	}
	return slot.Index, true
}

// HandleReady records a ready/unready change. The stored flag is
// authoritative: repeating the same state is a no-op, not a toggle.
func (s *Session) HandleReady(connID uuid.UUID, ready bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateLobby {
		return
	}
	slot := s.findSlotUnsafe(connID)
	if slot == nil {
		return
	}
	slot.Ready = ready
	s.broadcastUnsafe(newReadyCountEvent(s.readyCountUnsafe()))
	s.maybeStartUnsafe()
}

// Chat rebroadcasts a message from a seated player to the whole room.
func (s *Session) Chat(connID uuid.UUID, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot := s.findSlotUnsafe(connID)
	if slot == nil {
		return
	}
	s.broadcastUnsafe(newChatEvent(slot.Occupant.Name, text))
}

// HandleCardChoice plays one of the active seat's offered cards. Out-of-turn
// or malformed choices are dropped without effect.
func (s *Session) HandleCardChoice(connID uuid.UUID, choice int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StatePlaying {
		return
	}
	if choice < 0 || choice > 2 {
		return
	}
	slot := s.findSlotUnsafe(connID)
	if slot == nil || slot.Index != s.active {
		return
	}
	if choice >= len(slot.Hand) {
		return
	}
	s.applyChoiceUnsafe(slot, choice)
}

// HandleVote casts a seated player's single vote for a seat index.
// Duplicate votes and out-of-range targets are dropped.
func (s *Session) HandleVote(connID uuid.UUID, target int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateVoting {
		return
	}
	if target < 0 || target >= SlotsPerSession {
		return
	}
	slot := s.findSlotUnsafe(connID)
	if slot == nil || slot.HasVoted {
		return
	}
	s.castVoteUnsafe(slot.Index, target)
}

// FillWithBots seats a ready bot in every vacant seat. During play the bot
// immediately takes over a pending turn; during voting it schedules a vote.
func (s *Session) FillWithBots() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return
	}
	filled := false
	for _, slot := range s.Slots {
		if slot.Occupied() {
			continue
		}
		slot.Occupant = &Occupant{
			ConnID: uuid.New(),
			Name:   fmt.Sprintf("Bot %d", slot.Index+1),
			IsBot:  true,
		}
		slot.Ready = true
		filled = true

		if s.state == StateVoting && !slot.HasVoted {
			s.scheduleBotVoteUnsafe(slot.Index)
		}
	}
	if !filled {
		return
	}

	s.broadcastRosterUnsafe()
	switch s.state {
	case StateLobby:
		s.maybeStartUnsafe()
	case StatePlaying:
		if s.Slots[s.active].BotSeated() {
			s.scheduleBotTurnUnsafe()
		}
	}
}

// HandleDisconnect vacates the identity's seat, preserving the seat's role,
// hand and vote state for a future occupant. A session with no humans left
// closes immediately.
func (s *Session) HandleDisconnect(connID uuid.UUID) {
	s.mu.Lock()

	slot := s.findSlotUnsafe(connID)
	if slot == nil {
		s.mu.Unlock()
		return
	}
	log.Printf("session %s: %q left seat %d", s.ID, slot.Occupant.Name, slot.Index)
	slot.vacate()

	if s.humanCountUnsafe() == 0 {
		onClose, occupants := s.teardownUnsafe()
		s.mu.Unlock()
		if onClose != nil {
			onClose(s, occupants)
		}
		return
	}

	s.broadcastRosterUnsafe()
	if s.state == StateVoting && s.votes >= s.occupiedCountUnsafe() {
		s.finishVotingUnsafe()
	}
	s.mu.Unlock()
}

// Close tears the session down: stops timers, releases every seat and fires
// OnClose exactly once.
func (s *Session) Close() {
	s.mu.Lock()
	onClose, occupants := s.teardownUnsafe()
	s.mu.Unlock()
	if onClose != nil {
		onClose(s, occupants)
	}
}

// --- internals; every func below assumes the session lock is held ---

func (s *Session) teardownUnsafe() (func(*Session, []uuid.UUID), []uuid.UUID) {
	if s.closed {
		return nil, nil
	}
	s.closed = true
	s.state = StateClosed
	if s.closeTimer != nil {
		s.closeTimer.Stop()
		s.closeTimer = nil
	}
	var occupants []uuid.UUID
	for _, slot := range s.Slots {
		if slot.Occupied() {
			occupants = append(occupants, slot.Occupant.ConnID)
			slot.vacate()
		}
	}
	log.Printf("session %s closed (room %q)", s.ID, s.RoomCode)
	return s.OnClose, occupants
}

func (s *Session) findSlotUnsafe(connID uuid.UUID) *RoomSlot {
	for _, slot := range s.Slots {
		if slot.Occupied() && slot.Occupant.ConnID == connID {
			return slot
		}
	}
	return nil
}

func (s *Session) occupiedCountUnsafe() int {
	n := 0
	for _, slot := range s.Slots {
		if slot.Occupied() {
			n++
		}
	}
	return n
}

func (s *Session) humanCountUnsafe() int {
	n := 0
	for _, slot := range s.Slots {
		if slot.Occupied() && !slot.Occupant.IsBot {
			n++
		}
	}
	return n
}

func (s *Session) readyCountUnsafe() int {
	n := 0
	for _, slot := range s.Slots {
		if slot.Occupied() && slot.Ready {
			n++
		}
	}
	return n
}

// broadcastRosterUnsafe recomputes and emits the display-name roster plus the
// current ready count, which changes with every membership change.
func (s *Session) broadcastRosterUnsafe() {
	names := make([]string, 0, SlotsPerSession)
	for _, slot := range s.Slots {
		if slot.Occupied() {
			names = append(names, slot.Occupant.Name)
		}
	}
	s.broadcastUnsafe(newUpdatePlayersEvent(names))
	s.broadcastUnsafe(newReadyCountEvent(s.readyCountUnsafe()))
}

func (s *Session) maybeStartUnsafe() {
	occupied := s.occupiedCountUnsafe()
	if occupied == 0 || s.readyCountUnsafe() != occupied {
		return
	}
	s.startGameUnsafe()
}

func (s *Session) startGameUnsafe() {
	roles := NewRoleDeck(s.rng)
	for i, slot := range s.Slots {
		role := roles[i]
		slot.Role = &role
		if role.IsKnave() {
			s.knaveSlot = i
		}
		if slot.Occupied() && !slot.Occupant.IsBot {
			s.sendToUnsafe(slot.Occupant.ConnID, newGameStartEvent(role))
		}
	}
	s.assassinations = 0
	s.phase = 0
	s.state = StatePlaying
	log.Printf("session %s: game started, knave at seat %d", s.ID, s.knaveSlot)
	s.startPhaseUnsafe()
}

func (s *Session) startPhaseUnsafe() {
	deck := NewActionDeck(s.rng)
	for i, slot := range s.Slots {
		slot.Hand = append([]models.Card(nil), deck[i*cardsPerHand:(i+1)*cardsPerHand]...)
	}
	s.attackDeck = append([]models.Card(nil), deck[SlotsPerSession*cardsPerHand:]...)
	s.round = 0
	s.phase++
	s.startRoundUnsafe()
}

func (s *Session) startRoundUnsafe() {
	s.turn = 0
	s.active = (4*(s.phase-1) + s.round) % SlotsPerSession
	s.played = nil
	s.turnEpoch++

	a0, a1 := s.attackersUnsafe()
	s.broadcastUnsafe(newRoundStartEvent([]models.Card{a0, a1}))
	s.offerTurnUnsafe()
}

func (s *Session) attackersUnsafe() (models.Card, models.Card) {
	return s.attackDeck[2*s.round], s.attackDeck[2*s.round+1]
}

// offerTurnUnsafe announces whose turn it is and privately offers the active
// seat its three frontmost cards. The played pool is reshuffled before every
// broadcast purely to obfuscate play order; the order carries no meaning.
func (s *Session) offerTurnUnsafe() {
	if s.turn >= SlotsPerSession {
		s.endRoundUnsafe()
		return
	}

	shuffleCards(s.rng, s.played)
	s.broadcastUnsafe(newTurnEvent(s.active))

	slot := s.Slots[s.active]
	switch {
	case !slot.Occupied():
		// Stall until a replacement or bot takes the seat; the turn is
		// re-offered on reseat.
		log.Printf("session %s: seat %d vacant, holding turn", s.ID, s.active)
	case slot.BotSeated():
		s.scheduleBotTurnUnsafe()
	default:
		s.sendToUnsafe(slot.Occupant.ConnID,
			newTakeTurnEvent(s.offeredHandUnsafe(slot), append([]models.Card(nil), s.played...)))
	}
}

// offeredHandUnsafe returns a copy of the seat's three frontmost cards.
func (s *Session) offeredHandUnsafe(slot *RoomSlot) []models.Card {
	n := 3
	if len(slot.Hand) < n {
		n = len(slot.Hand)
	}
	return append([]models.Card(nil), slot.Hand[:n]...)
}

func (s *Session) applyChoiceUnsafe(slot *RoomSlot, choice int) {
	card := slot.Hand[choice]
	slot.Hand = append(slot.Hand[:choice], slot.Hand[choice+1:]...)
	s.played = append(s.played, card)

	s.turn++
	s.active = (s.active + 1) % SlotsPerSession
	s.turnEpoch++
	s.offerTurnUnsafe()
}

func (s *Session) endRoundUnsafe() {
	a0, a1 := s.attackersUnsafe()
	check := EvaluateDefense(a0, a1, s.played)
	defended := check.Succeeded()
	s.broadcastUnsafe(newRoundEndEvent(defended, append([]models.Card(nil), s.played...)))

	if !defended {
		s.assassinations++
		if s.assassinations >= assassinationCap {
			s.endGameUnsafe()
			return
		}
	}

	if s.round == roundsPerPhase-1 {
		if s.phase < phasesPerGame {
			s.startPhaseUnsafe()
		} else {
			s.endGameUnsafe()
		}
		return
	}
	s.round++
	s.startRoundUnsafe()
}

func (s *Session) endGameUnsafe() {
	s.broadcastUnsafe(newEndGameEvent(s.assassinations))

	if s.assassinations == votingThreshold {
		s.beginVotingUnsafe()
		return
	}

	winner := "knights"
	if s.assassinations >= assassinationCap {
		winner = "knaves"
	}
	s.emitResultUnsafe(winner, false)
	s.scheduleCloseUnsafe()
}

func (s *Session) beginVotingUnsafe() {
	s.state = StateVoting
	s.votes = 0
	for _, slot := range s.Slots {
		slot.HasVoted = false
		slot.VoteTally = 0
		if slot.BotSeated() {
			s.scheduleBotVoteUnsafe(slot.Index)
		}
	}
	log.Printf("session %s: voting opened", s.ID)
}

func (s *Session) castVoteUnsafe(voter, target int) {
	s.Slots[voter].HasVoted = true
	s.Slots[target].VoteTally++
	s.votes++

	s.broadcastUnsafe(newChatEvent(s.seatNameUnsafe(voter),
		fmt.Sprintf("Voted for %s.", s.seatNameUnsafe(target))))

	if s.votes >= s.occupiedCountUnsafe() {
		s.finishVotingUnsafe()
	}
}

func (s *Session) seatNameUnsafe(idx int) string {
	if slot := s.Slots[idx]; slot.Occupied() {
		return slot.Occupant.Name
	}
	return fmt.Sprintf("seat %d", idx+1)
}

// finishVotingUnsafe tallies the vote. Ties favor the knave, who escapes
// unless some other seat received strictly more votes.
func (s *Session) finishVotingUnsafe() {
	knaveTally := s.Slots[s.knaveSlot].VoteTally
	escaped := true
	for i, slot := range s.Slots {
		if i != s.knaveSlot && slot.VoteTally > knaveTally {
			escaped = false
			break
		}
	}
	s.broadcastUnsafe(newEndVotingEvent(s.knaveSlot, escaped))

	winner := "knights"
	if escaped {
		winner = "knaves"
	}
	s.emitResultUnsafe(winner, escaped)
	s.scheduleCloseUnsafe()
}

func (s *Session) emitResultUnsafe(winner string, escaped bool) {
	if s.OnResult == nil {
		return
	}
	res := Result{
		SessionID:      s.ID,
		RoomCode:       s.RoomCode,
		Assassinations: s.assassinations,
		KnaveSlot:      s.knaveSlot,
		KnaveEscaped:   escaped,
		Winner:         winner,
		FinishedAt:     time.Now().UTC(),
	}
	go s.OnResult(res)
}

// scheduleCloseUnsafe freezes the session (further input becomes a no-op)
// and tears it down after the result-display grace period.
func (s *Session) scheduleCloseUnsafe() {
	s.state = StateClosed
	s.closeTimer = time.AfterFunc(s.CloseDelay, s.Close)
}

// scheduleBotTurnUnsafe arranges the active bot's delayed move. The captured
// epoch voids the timer if the turn has advanced or the session is gone by
// the time it fires.
func (s *Session) scheduleBotTurnUnsafe() {
	epoch := s.turnEpoch
	time.AfterFunc(s.BotDelay, func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		if s.state != StatePlaying || s.turnEpoch != epoch {
			return
		}
		slot := s.Slots[s.active]
		if !slot.BotSeated() {
			return
		}
		a0, a1 := s.attackersUnsafe()
		isKnave := slot.Role != nil && slot.Role.IsKnave()
		choice := ChooseCard(isKnave, s.offeredHandUnsafe(slot), a0, a1, s.played)
		s.applyChoiceUnsafe(slot, choice)
	})
}

func (s *Session) scheduleBotVoteUnsafe(idx int) {
	time.AfterFunc(s.BotDelay, func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		if s.state != StateVoting {
			return
		}
		slot := s.Slots[idx]
		if !slot.BotSeated() || slot.HasVoted {
			return
		}
		s.castVoteUnsafe(idx, ChooseVote(s.rng, idx))
	})
}

// broadcastUnsafe sends to every human occupant. SendFn must not block.
func (s *Session) broadcastUnsafe(ev Event) {
	if s.SendFn == nil {
		return
	}
	to := make([]uuid.UUID, 0, SlotsPerSession)
	for _, slot := range s.Slots {
		if slot.Occupied() && !slot.Occupant.IsBot {
			to = append(to, slot.Occupant.ConnID)
		}
	}
	if len(to) > 0 {
		s.SendFn(to, ev)
	}
}

func (s *Session) sendToUnsafe(connID uuid.UUID, ev Event) {
	if s.SendFn != nil {
		s.SendFn([]uuid.UUID{connID}, ev)
	}
}
