package poker

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"gamehall.com/server/deck"
)

func c(r int, s deck.Suit) deck.Card {
	return deck.Card{Rank: r, Suit: s}
}

func hand(cs ...deck.Card) []deck.Card {
	for i := range cs {
		cs[i].ID = uint32(i + 1)
	}
	return cs
}

func TestCategories(t *testing.T) {
	testCases := []struct {
		name     string
		cards    []deck.Card
		expected Category
	}{
		{
			name: "royal flush",
			cards: hand(c(deck.Ace, deck.Spades), c(deck.King, deck.Spades), c(deck.Queen, deck.Spades),
				c(deck.Jack, deck.Spades), c(10, deck.Spades)),
			expected: RoyalFlush,
		},
		{
			name: "straight flush",
			cards: hand(c(9, deck.Hearts), c(8, deck.Hearts), c(7, deck.Hearts),
				c(6, deck.Hearts), c(5, deck.Hearts)),
			expected: StraightFlush,
		},
		{
			name: "four of a kind",
			cards: hand(c(7, deck.Hearts), c(7, deck.Spades), c(7, deck.Clubs),
				c(7, deck.Diamonds), c(2, deck.Hearts)),
			expected: FourOfAKind,
		},
		{
			name: "full house",
			cards: hand(c(6, deck.Hearts), c(6, deck.Spades), c(6, deck.Clubs),
				c(9, deck.Diamonds), c(9, deck.Hearts)),
			expected: FullHouse,
		},
		{
			name: "flush",
			cards: hand(c(deck.King, deck.Clubs), c(10, deck.Clubs), c(8, deck.Clubs),
				c(5, deck.Clubs), c(2, deck.Clubs)),
			expected: Flush,
		},
		{
			name: "straight",
			cards: hand(c(10, deck.Hearts), c(9, deck.Spades), c(8, deck.Clubs),
				c(7, deck.Diamonds), c(6, deck.Hearts)),
			expected: Straight,
		},
		{
			name: "ace low straight",
			cards: hand(c(deck.Ace, deck.Hearts), c(2, deck.Spades), c(3, deck.Clubs),
				c(4, deck.Diamonds), c(5, deck.Hearts)),
			expected: Straight,
		},
		{
			name: "three of a kind",
			cards: hand(c(4, deck.Hearts), c(4, deck.Spades), c(4, deck.Clubs),
				c(9, deck.Diamonds), c(2, deck.Hearts)),
			expected: ThreeOfAKind,
		},
		{
			name: "two pair",
			cards: hand(c(4, deck.Hearts), c(4, deck.Spades), c(9, deck.Clubs),
				c(9, deck.Diamonds), c(2, deck.Hearts)),
			expected: TwoPair,
		},
		{
			name: "pair",
			cards: hand(c(4, deck.Hearts), c(4, deck.Spades), c(9, deck.Clubs),
				c(deck.Jack, deck.Diamonds), c(2, deck.Hearts)),
			expected: Pair,
		},
		{
			name: "high card",
			cards: hand(c(deck.King, deck.Hearts), c(9, deck.Spades), c(7, deck.Clubs),
				c(5, deck.Diamonds), c(2, deck.Hearts)),
			expected: HighCard,
		},
	}

	for _, tc := range testCases {
		rank := Evaluate(tc.cards)
		assert.Equal(t, tc.expected, rank.Category, tc.name)
	}
}

func TestAceLowStraightRanksBelowSixHigh(t *testing.T) {
	wheel := Evaluate(hand(c(deck.Ace, deck.Hearts), c(2, deck.Spades), c(3, deck.Clubs),
		c(4, deck.Diamonds), c(5, deck.Hearts)))
	sixHigh := Evaluate(hand(c(2, deck.Hearts), c(3, deck.Spades), c(4, deck.Clubs),
		c(5, deck.Diamonds), c(6, deck.Hearts)))
	assert.True(t, Compare(sixHigh, wheel) > 0)
}

func TestBestFiveOfSeven(t *testing.T) {
	// seven cards hiding a flush
	seven := hand(
		c(deck.Ace, deck.Spades), c(deck.King, deck.Spades), c(9, deck.Spades),
		c(4, deck.Spades), c(2, deck.Spades), c(deck.Ace, deck.Hearts), c(deck.Ace, deck.Clubs))
	rank := Evaluate(seven)
	assert.Equal(t, Flush, rank.Category)

	// seven cards hiding a full house
	seven = hand(
		c(8, deck.Spades), c(8, deck.Hearts), c(8, deck.Clubs),
		c(deck.King, deck.Spades), c(deck.King, deck.Hearts), c(3, deck.Diamonds), c(2, deck.Clubs))
	rank = Evaluate(seven)
	assert.Equal(t, FullHouse, rank.Category)
	assert.Equal(t, []int{8, deck.King}, rank.Tiebreaks[:2])
}

func TestKickerComparison(t *testing.T) {
	// pair of nines, ace kicker vs king kicker
	aceKicker := Evaluate(hand(c(9, deck.Hearts), c(9, deck.Spades), c(deck.Ace, deck.Clubs),
		c(7, deck.Diamonds), c(2, deck.Hearts)))
	kingKicker := Evaluate(hand(c(9, deck.Clubs), c(9, deck.Diamonds), c(deck.King, deck.Hearts),
		c(7, deck.Spades), c(2, deck.Clubs)))
	assert.True(t, Compare(aceKicker, kingKicker) > 0)

	// identical ranks chop
	chopA := Evaluate(hand(c(9, deck.Hearts), c(9, deck.Spades), c(deck.Ace, deck.Clubs),
		c(7, deck.Diamonds), c(2, deck.Hearts)))
	chopB := Evaluate(hand(c(9, deck.Clubs), c(9, deck.Diamonds), c(deck.Ace, deck.Hearts),
		c(7, deck.Spades), c(2, deck.Clubs)))
	assert.Equal(t, 0, Compare(chopA, chopB))
}

func TestHigherCategoryWins(t *testing.T) {
	flush := Evaluate(hand(c(deck.King, deck.Clubs), c(10, deck.Clubs), c(8, deck.Clubs),
		c(5, deck.Clubs), c(2, deck.Clubs)))
	straight := Evaluate(hand(c(deck.Ace, deck.Hearts), c(deck.King, deck.Spades), c(deck.Queen, deck.Clubs),
		c(deck.Jack, deck.Diamonds), c(10, deck.Hearts)))
	assert.True(t, Compare(flush, straight) > 0)
}
