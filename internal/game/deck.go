// internal/game/deck.go
package game

import (
	"math/rand"

	"github.com/jordwess/knavery/internal/models"
)

const (
	// SlotsPerSession is fixed; the deal layout and role deck assume it.
	SlotsPerSession = 5

	minActionValue = 2
	maxActionValue = 11

	cardsPerHand   = 6
	roundsPerPhase = 4
	phasesPerGame  = 2
)

// NewRoleDeck builds and shuffles the five role cards: one Jack per suit plus
// the single Joker. One role is dealt to each of the five seats.
func NewRoleDeck(rng *rand.Rand) []models.Card {
	roles := make([]models.Card, 0, SlotsPerSession)
	for _, suit := range models.Suits {
		roles = append(roles, models.JackOf(suit))
	}
	roles = append(roles, models.Joker())
	shuffleCards(rng, roles)
	return roles
}

// NewActionDeck builds and shuffles the 40-card action deck: each suit times
// values 2 through 11.
func NewActionDeck(rng *rand.Rand) []models.Card {
	deck := make([]models.Card, 0, len(models.Suits)*(maxActionValue-minActionValue+1))
	for _, suit := range models.Suits {
		for v := minActionValue; v <= maxActionValue; v++ {
			deck = append(deck, models.NewActionCard(suit, v))
		}
	}
	shuffleCards(rng, deck)
	return deck
}

// shuffleCards permutes cards uniformly in place.
func shuffleCards(rng *rand.Rand, cards []models.Card) {
	rng.Shuffle(len(cards), func(i, j int) {
		cards[i], cards[j] = cards[j], cards[i]
	})
}
