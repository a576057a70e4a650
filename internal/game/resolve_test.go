// internal/game/resolve_test.go
package game

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jordwess/knavery/internal/models"
)

func TestAttackPower(t *testing.T) {
	a0 := models.NewActionCard("Hearts", 4)
	a1 := models.NewActionCard("Spades", 6)
	assert.Equal(t, 24, AttackPower(a0, a1))
}

func TestEvaluateDefense(t *testing.T) {
	a0 := models.NewActionCard("Hearts", 4)
	a1 := models.NewActionCard("Spades", 6) // needed suit Spades, power 24

	pool := []models.Card{
		models.NewActionCard("Spades", 9),
		models.NewActionCard("Clubs", 9),
		models.NewActionCard("Diamonds", 7), // the only prime
	}
	check := EvaluateDefense(a0, a1, pool)
	assert.Equal(t, 25, check.Sum)
	assert.True(t, check.SuitMet)
	assert.True(t, check.PrimeMet)
	assert.True(t, check.Succeeded())

	// Dropping the only prime flips the verdict even though the sum would
	// still clear the power with a replacement non-prime.
	noPrime := []models.Card{
		models.NewActionCard("Spades", 9),
		models.NewActionCard("Clubs", 9),
		models.NewActionCard("Diamonds", 8),
	}
	check = EvaluateDefense(a0, a1, noPrime)
	assert.False(t, check.PrimeMet)
	assert.False(t, check.Succeeded())
}

func TestDefenseRequiresStrictSum(t *testing.T) {
	a0 := models.NewActionCard("Clubs", 2)
	a1 := models.NewActionCard("Clubs", 3) // power 12

	exact := []models.Card{
		models.NewActionCard("Clubs", 5),
		models.NewActionCard("Clubs", 7),
	}
	assert.False(t, EvaluateDefense(a0, a1, exact).Succeeded(), "sum == power must fail")

	over := append(exact, models.NewActionCard("Hearts", 2))
	assert.True(t, EvaluateDefense(a0, a1, over).Succeeded())
}

func TestIsPrimeValue(t *testing.T) {
	for _, v := range []int{2, 3, 5, 7, 11} {
		assert.True(t, IsPrimeValue(v), "%d", v)
	}
	for _, v := range []int{4, 6, 8, 9, 10} {
		assert.False(t, IsPrimeValue(v), "%d", v)
	}
}
