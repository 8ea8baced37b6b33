package deck

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStandardDeck(t *testing.T) {
	d := NewStandard(rand.NewSource(1))
	assert.Equal(t, 52, d.Size())

	seen := make(map[uint32]bool)
	suits := make(map[Suit]int)
	for _, c := range d.Draw(52) {
		assert.False(t, seen[c.ID], "duplicate card id %d", c.ID)
		seen[c.ID] = true
		suits[c.Suit]++
	}
	for _, suit := range []Suit{Spades, Hearts, Diamonds, Clubs} {
		assert.Equal(t, 13, suits[suit])
	}
	assert.True(t, d.Empty())
}

func TestStandardWithJokers(t *testing.T) {
	d := NewStandardWithJokers(2, rand.NewSource(1))
	assert.Equal(t, 54, d.Size())
	jokers := 0
	for _, c := range d.Draw(54) {
		if c.IsJoker() {
			jokers++
			assert.Equal(t, NoSuit, c.Suit)
		}
	}
	assert.Equal(t, 2, jokers)
}

func TestDalmutiDeck(t *testing.T) {
	d := NewDalmuti(rand.NewSource(1))
	assert.Equal(t, 80, d.Size())

	byRank := make(map[int]int)
	seen := make(map[uint32]bool)
	for _, c := range d.Draw(80) {
		assert.False(t, seen[c.ID], "duplicate card id %d", c.ID)
		seen[c.ID] = true
		byRank[c.Rank]++
	}
	for rank := 1; rank <= DalmutiLowestRank; rank++ {
		assert.Equal(t, rank, byRank[rank], "rank %d multiplicity", rank)
	}
	assert.Equal(t, 2, byRank[DalmutiJester])
}

func TestSeatPickDeck(t *testing.T) {
	d := NewSeatPick(5, rand.NewSource(1))
	assert.Equal(t, 5, d.Size())
	ranks := make(map[int]bool)
	for _, c := range d.Draw(5) {
		ranks[c.Rank] = true
	}
	for rank := 1; rank <= 5; rank++ {
		assert.True(t, ranks[rank])
	}
}

func TestDrawDepletes(t *testing.T) {
	d := NewStandard(rand.NewSource(7)).Shuffle()
	first := d.Draw(5)
	assert.Equal(t, 5, len(first))
	assert.Equal(t, 47, d.Size())

	card, ok := d.DrawOne()
	assert.True(t, ok)
	assert.Equal(t, 46, d.Size())
	assert.NotZero(t, card.ID)
}

func TestRemoveByIDs(t *testing.T) {
	hand := []Card{
		{ID: 1, Suit: Spades, Rank: 5},
		{ID: 2, Suit: Hearts, Rank: 5},
		{ID: 3, Suit: Clubs, Rank: 9},
	}

	remaining, removed, ok := RemoveByIDs(hand, []uint32{1, 3})
	assert.True(t, ok)
	assert.Equal(t, 1, len(remaining))
	assert.Equal(t, 2, len(removed))
	assert.Equal(t, uint32(2), remaining[0].ID)

	// unknown id leaves the hand untouched
	remaining, _, ok = RemoveByIDs(hand, []uint32{1, 99})
	assert.False(t, ok)
	assert.Equal(t, 3, len(remaining))
}
