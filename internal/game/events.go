// internal/game/events.go
package game

import (
	"github.com/jordwess/knavery/internal/models"
)

// EventType names the outbound events. These strings are the compatibility
// surface consumed by clients and must not be renamed.
type EventType string

const (
	EventUpdatePlayers   EventType = "UpdatePlayers"          // roster of display names
	EventMessageRecieve  EventType = "Message_Recieve"        // chat rebroadcast (sic, legacy spelling)
	EventReadyCount      EventType = "NumberOfReadyPlayers"   // ready count after a toggle
	EventGameStart       EventType = "GameStart"              // private role reveal
	EventRoundStart      EventType = "RoundStart"             // the round's two attacker cards
	EventTurnIsOccurring EventType = "TurnIsOccurring"        // which seat is up
	EventTakeTurn        EventType = "TakeTurn"               // private card offer to the active seat
	EventRoundEnd        EventType = "RoundEnd"               // defense verdict plus the played pool
	EventEndGame         EventType = "endGame"                // final assassination count
	EventEndVoting       EventType = "endVoting"              // knave seat and whether it escaped
)

// Event is a single outbound message. Optional fields use pointers so that
// zero values (seat 0, count 0, false) still serialize.
type Event struct {
	Type EventType `json:"type"`

	Names  []string `json:"names,omitempty"`  // UpdatePlayers
	Sender string   `json:"sender,omitempty"` // Message_Recieve
	Text   string   `json:"text,omitempty"`   // Message_Recieve

	Count *int `json:"count,omitempty"` // NumberOfReadyPlayers

	Role      *models.Card  `json:"role,omitempty"`      // GameStart
	Attackers []models.Card `json:"attackers,omitempty"` // RoundStart

	Slot   *int          `json:"slot,omitempty"`   // TurnIsOccurring, endVoting
	Hand   []models.Card `json:"hand,omitempty"`   // TakeTurn
	Played []models.Card `json:"played,omitempty"` // TakeTurn, RoundEnd

	Defended       *bool `json:"defended,omitempty"`       // RoundEnd
	Assassinations *int  `json:"assassinations,omitempty"` // endGame
	Escaped        *bool `json:"escaped,omitempty"`        // endVoting
}

func newUpdatePlayersEvent(names []string) Event {
	return Event{Type: EventUpdatePlayers, Names: names}
}

func newChatEvent(sender, text string) Event {
	return Event{Type: EventMessageRecieve, Sender: sender, Text: text}
}

func newReadyCountEvent(n int) Event {
	return Event{Type: EventReadyCount, Count: &n}
}

func newGameStartEvent(role models.Card) Event {
	return Event{Type: EventGameStart, Role: &role}
}

func newRoundStartEvent(attackers []models.Card) Event {
	return Event{Type: EventRoundStart, Attackers: attackers}
}

func newTurnEvent(slot int) Event {
	return Event{Type: EventTurnIsOccurring, Slot: &slot}
}

func newTakeTurnEvent(hand, played []models.Card) Event {
	return Event{Type: EventTakeTurn, Hand: hand, Played: played}
}

func newRoundEndEvent(defended bool, played []models.Card) Event {
	return Event{Type: EventRoundEnd, Defended: &defended, Played: played}
}

func newEndGameEvent(assassinations int) Event {
	return Event{Type: EventEndGame, Assassinations: &assassinations}
}

func newEndVotingEvent(knaveSlot int, escaped bool) Event {
	return Event{Type: EventEndVoting, Slot: &knaveSlot, Escaped: &escaped}
}
