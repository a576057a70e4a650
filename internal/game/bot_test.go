// internal/game/bot_test.go
package game

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jordwess/knavery/internal/models"
)

func TestChooseVoteNeverSelf(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for self := 0; self < SlotsPerSession; self++ {
		hit := map[int]bool{}
		for i := 0; i < 200; i++ {
			v := ChooseVote(rng, self)
			assert.NotEqual(t, self, v)
			assert.GreaterOrEqual(t, v, 0)
			assert.Less(t, v, SlotsPerSession)
			hit[v] = true
		}
		assert.Len(t, hit, SlotsPerSession-1, "self %d: every other seat reachable", self)
	}
}

func TestChooseCardSecuredDefense(t *testing.T) {
	a0 := models.NewActionCard("Hearts", 2)
	a1 := models.NewActionCard("Spades", 2) // power 10
	played := []models.Card{
		models.NewActionCard("Spades", 7), // suit and prime covered
		models.NewActionCard("Clubs", 9),  // sum 16 > 10
	}

	hand := []models.Card{
		models.NewActionCard("Diamonds", 8),
		models.NewActionCard("Clubs", 3),
		models.NewActionCard("Hearts", 11),
	}

	// Outcome already fixed: knight conserves, knave burns.
	assert.Equal(t, 1, ChooseCard(false, hand, a0, a1, played), "knight dumps its lowest")
	assert.Equal(t, 2, ChooseCard(true, hand, a0, a1, played), "knave burns its highest")
}

func TestChooseCardScoresUnmetConditions(t *testing.T) {
	a0 := models.NewActionCard("Hearts", 10)
	a1 := models.NewActionCard("Spades", 10) // power 50, nothing met yet

	hand := []models.Card{
		models.NewActionCard("Clubs", 10),  // score 10
		models.NewActionCard("Spades", 4),  // score 4+10 = 14 (needed suit)
		models.NewActionCard("Hearts", 11), // score 11+7 = 18 (prime)
	}

	assert.Equal(t, 2, ChooseCard(false, hand, a0, a1, nil), "knight takes the top score")
	assert.Equal(t, 0, ChooseCard(true, hand, a0, a1, nil), "knave takes the bottom score")
}

func TestChooseCardTieGoesToLowestIndex(t *testing.T) {
	a0 := models.NewActionCard("Hearts", 10)
	a1 := models.NewActionCard("Spades", 10)

	hand := []models.Card{
		models.NewActionCard("Clubs", 8),
		models.NewActionCard("Diamonds", 8),
		models.NewActionCard("Clubs", 4),
	}
	assert.Equal(t, 0, ChooseCard(false, hand, a0, a1, nil))
}

func TestChooseCardEmptyHand(t *testing.T) {
	a0 := models.NewActionCard("Hearts", 2)
	a1 := models.NewActionCard("Spades", 2)
	assert.Equal(t, 0, ChooseCard(false, nil, a0, a1, nil))
}
