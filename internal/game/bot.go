// internal/game/bot.go
package game

import (
	"math/rand"

	"github.com/jordwess/knavery/internal/models"
)

// Bot decision weights. The policy is a fixed heuristic, not optimal play:
// a card is scored by its value plus a bonus for covering a still-unmet
// defense condition, and knights maximize while knaves minimize.
const (
	botPrimeBonus = 7
	botSuitBonus  = 10
)

// ChooseVote picks a uniformly random seat other than self.
func ChooseVote(rng *rand.Rand, self int) int {
	v := rng.Intn(SlotsPerSession - 1)
	if v >= self {
		v++
	}
	return v
}

// ChooseCard returns the index of the card a bot plays from its offered hand,
// given its role, the round's attackers and the cards played so far.
//
// If the defense is already mathematically secured, the outcome can no longer
// change this round: a knight dumps its lowest card to conserve strength and
// a knave burns its highest. Otherwise each candidate is scored and a knight
// plays the highest-scoring card, a knave the lowest. Ties resolve to the
// lowest index.
func ChooseCard(isKnave bool, hand []models.Card, a0, a1 models.Card, played []models.Card) int {
	if len(hand) == 0 {
		return 0
	}

	check := EvaluateDefense(a0, a1, played)
	if check.Succeeded() {
		best := 0
		for i, c := range hand {
			if isKnave && c.Value > hand[best].Value {
				best = i
			}
			if !isKnave && c.Value < hand[best].Value {
				best = i
			}
		}
		return best
	}

	best := 0
	bestScore := scoreCard(hand[0], a1, check)
	for i := 1; i < len(hand); i++ {
		score := scoreCard(hand[i], a1, check)
		if (isKnave && score < bestScore) || (!isKnave && score > bestScore) {
			best = i
			bestScore = score
		}
	}
	return best
}

// scoreCard weighs a candidate card by value and by whether it would satisfy
// a defense condition no prior play has met.
func scoreCard(c models.Card, a1 models.Card, check DefenseCheck) int {
	score := c.Value
	if IsPrimeValue(c.Value) && !check.PrimeMet {
		score += botPrimeBonus
	}
	if c.Suit == a1.Suit && !check.SuitMet {
		score += botSuitBonus
	}
	return score
}
