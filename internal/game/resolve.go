// internal/game/resolve.go
package game

import "github.com/jordwess/knavery/internal/models"

// primeValues are the card values that satisfy the prime requirement of a
// round's defense.
var primeValues = map[int]bool{2: true, 3: true, 5: true, 7: true, 11: true}

// IsPrimeValue reports whether a card value counts toward the prime
// requirement.
func IsPrimeValue(v int) bool {
	return primeValues[v]
}

// AttackPower is the threshold the played pool's value sum must exceed:
// triple the first attacker's value plus double the second's.
func AttackPower(a0, a1 models.Card) int {
	return 3*a0.Value + 2*a1.Value
}

// DefenseCheck is the decomposed result of evaluating a played-card pool
// against a pair of attackers. It is exposed piecewise because the bot policy
// needs the individual conditions, not just the verdict.
type DefenseCheck struct {
	Sum      int
	Power    int
	SuitMet  bool
	PrimeMet bool
}

// Succeeded reports whether the defense repels the attack: the pool's sum
// strictly exceeds the attack power, at least one pool card matches the
// second attacker's suit, and at least one pool card has a prime value.
func (c DefenseCheck) Succeeded() bool {
	return c.Sum > c.Power && c.SuitMet && c.PrimeMet
}

// EvaluateDefense is a pure function of the attackers and the cards played so
// far. It serves both authoritative round resolution and bot look-ahead on a
// partially played round.
func EvaluateDefense(a0, a1 models.Card, played []models.Card) DefenseCheck {
	check := DefenseCheck{Power: AttackPower(a0, a1)}
	for _, card := range played {
		check.Sum += card.Value
		if card.Suit == a1.Suit {
			check.SuitMet = true
		}
		if IsPrimeValue(card.Value) {
			check.PrimeMet = true
		}
	}
	return check
}
