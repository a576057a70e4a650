// internal/models/card.go
package models

import (
	"encoding/json"
	"fmt"
)

// Suits enumerates the four action-card suits. The pseudo-suit "Joker" only
// ever appears on the knave's role card.
var Suits = []string{"Clubs", "Diamonds", "Hearts", "Spades"}

const (
	JokerSuit = "Joker"
	JackFace  = "Jack"
	JokerFace = "Joker"
)

// Card is an immutable playing card. Action cards carry a numeric Value
// (2-11); role cards carry a Face ("Jack" or "Joker") and no numeric value.
// On the wire both share the shape {suit: string, value: number|string}.
type Card struct {
	Suit  string
	Value int
	Face  string
}

// NewActionCard returns a suited action card with the given value.
func NewActionCard(suit string, value int) Card {
	return Card{Suit: suit, Value: value}
}

// JackOf returns the defender role card for a suit.
func JackOf(suit string) Card {
	return Card{Suit: suit, Face: JackFace}
}

// Joker returns the knave role card.
func Joker() Card {
	return Card{Suit: JokerSuit, Face: JokerFace}
}

// IsRole reports whether the card is a role card rather than an action card.
func (c Card) IsRole() bool {
	return c.Face != ""
}

// IsKnave reports whether the card is the Joker role card.
func (c Card) IsKnave() bool {
	return c.Face == JokerFace
}

func (c Card) String() string {
	if c.IsRole() {
		return fmt.Sprintf("%s of %s", c.Face, c.Suit)
	}
	return fmt.Sprintf("%d of %s", c.Value, c.Suit)
}

type cardWire struct {
	Suit  string      `json:"suit"`
	Value interface{} `json:"value"`
}

// MarshalJSON emits the compatibility wire shape: role cards serialize their
// face string as the value, action cards their number.
func (c Card) MarshalJSON() ([]byte, error) {
	w := cardWire{Suit: c.Suit}
	if c.IsRole() {
		w.Value = c.Face
	} else {
		w.Value = c.Value
	}
	return json.Marshal(w)
}

// UnmarshalJSON accepts both value encodings.
func (c *Card) UnmarshalJSON(data []byte) error {
	var w cardWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	c.Suit = w.Suit
	c.Value = 0
	c.Face = ""
	switch v := w.Value.(type) {
	case float64:
		c.Value = int(v)
	case string:
		c.Face = v
	case nil:
	default:
		return fmt.Errorf("card value must be a number or string, got %T", w.Value)
	}
	return nil
}
