// internal/game/slot.go
package game

import (
	"github.com/google/uuid"

	"github.com/jordwess/knavery/internal/models"
)

// Occupant identifies who currently holds a seat. Bots carry a generated id
// with no live connection behind it.
type Occupant struct {
	ConnID uuid.UUID
	Name   string
	IsBot  bool
}

// RoomSlot is one of the five fixed seats in a session. Seats are never
// added or removed: a disconnect only clears the occupant, leaving the
// seat's role, hand and vote state in place so a replacement can inherit
// them mid-game.
type RoomSlot struct {
	Index    int
	Occupant *Occupant

	Ready bool

	// Role is assigned once per game start; Hand is re-dealt each phase.
	Role *models.Card
	Hand []models.Card

	// Voting-phase state, reset when voting begins.
	HasVoted  bool
	VoteTally int
}

// Occupied reports whether anyone (human or bot) holds the seat.
func (s *RoomSlot) Occupied() bool {
	return s.Occupant != nil
}

// BotSeated reports whether the seat is held by a synthetic player.
func (s *RoomSlot) BotSeated() bool {
	return s.Occupant != nil && s.Occupant.IsBot
}

// vacate clears the occupant and ready flag, preserving game state.
func (s *RoomSlot) vacate() {
	s.Occupant = nil
	s.Ready = false
}
