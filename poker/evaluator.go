package poker

import (
	"fmt"
	"sort"

	"gamehall.com/server/deck"
)

// Category is the standard 10-way hand classification. Higher is better.
type Category int

const (
	HighCard Category = iota + 1
	Pair
	TwoPair
	ThreeOfAKind
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
	RoyalFlush
)

var categoryToString = map[Category]string{
	HighCard:      "High Card",
	Pair:          "Pair",
	TwoPair:       "Two Pair",
	ThreeOfAKind:  "Three of a Kind",
	Straight:      "Straight",
	Flush:         "Flush",
	FullHouse:     "Full House",
	FourOfAKind:   "Four of a Kind",
	StraightFlush: "Straight Flush",
	RoyalFlush:    "Royal Flush",
}

func (c Category) String() string {
	return categoryToString[c]
}

// HandRank is the score of one five-card hand. Tiebreaks are ordered most
// significant first and are category specific (pair rank before kickers,
// straight high card, and so on).
type HandRank struct {
	Category  Category
	Tiebreaks []int
	Cards     []deck.Card
}

// Compare returns >0 when a beats b, <0 when b beats a and 0 on an exact
// tie (a chopped pot).
func Compare(a HandRank, b HandRank) int {
	if a.Category != b.Category {
		return int(a.Category) - int(b.Category)
	}
	for i := range a.Tiebreaks {
		if i >= len(b.Tiebreaks) {
			break
		}
		if a.Tiebreaks[i] != b.Tiebreaks[i] {
			return a.Tiebreaks[i] - b.Tiebreaks[i]
		}
	}
	return 0
}

// Evaluate scores the best five-card hand out of 5, 6 or 7 cards.
func Evaluate(cards []deck.Card) HandRank {
	switch len(cards) {
	case 5:
		return five(cards)
	case 6:
		return dropOne(cards, five)
	case 7:
		return dropOne(cards, func(six []deck.Card) HandRank {
			return dropOne(six, five)
		})
	default:
		panic(fmt.Sprintf("Only support 5, 6 and 7 cards, got %d", len(cards)))
	}
}

func dropOne(cards []deck.Card, eval func([]deck.Card) HandRank) HandRank {
	var best HandRank
	targets := make([]deck.Card, len(cards)-1)
	for i := 0; i < len(cards); i++ {
		copy(targets, cards[:i])
		copy(targets[i:], cards[i+1:])
		rank := eval(targets)
		if best.Category == 0 || Compare(rank, best) > 0 {
			best = rank
		}
	}
	return best
}

func five(cards []deck.Card) HandRank {
	hand := make([]deck.Card, 5)
	copy(hand, cards)
	sort.Slice(hand, func(i, j int) bool { return hand[i].Rank > hand[j].Rank })

	flush := true
	for i := 1; i < 5; i++ {
		if hand[i].Suit != hand[0].Suit {
			flush = false
			break
		}
	}

	straightHigh := straightHighCard(hand)
	straight := straightHigh > 0

	if flush && straight {
		if straightHigh == deck.Ace {
			return HandRank{Category: RoyalFlush, Tiebreaks: []int{straightHigh}, Cards: hand}
		}
		return HandRank{Category: StraightFlush, Tiebreaks: []int{straightHigh}, Cards: hand}
	}

	// group ranks by multiplicity, then by rank, most significant first
	counts := make(map[int]int)
	for _, c := range hand {
		counts[c.Rank]++
	}
	type group struct {
		rank  int
		count int
	}
	groups := make([]group, 0, 5)
	for rank, count := range counts {
		groups = append(groups, group{rank, count})
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].count != groups[j].count {
			return groups[i].count > groups[j].count
		}
		return groups[i].rank > groups[j].rank
	})
	tiebreaks := make([]int, 0, 5)
	for _, g := range groups {
		tiebreaks = append(tiebreaks, g.rank)
	}

	switch {
	case groups[0].count == 4:
		return HandRank{Category: FourOfAKind, Tiebreaks: tiebreaks, Cards: hand}
	case groups[0].count == 3 && groups[1].count == 2:
		return HandRank{Category: FullHouse, Tiebreaks: tiebreaks, Cards: hand}
	case flush:
		return HandRank{Category: Flush, Tiebreaks: tiebreaks, Cards: hand}
	case straight:
		return HandRank{Category: Straight, Tiebreaks: []int{straightHigh}, Cards: hand}
	case groups[0].count == 3:
		return HandRank{Category: ThreeOfAKind, Tiebreaks: tiebreaks, Cards: hand}
	case groups[0].count == 2 && groups[1].count == 2:
		return HandRank{Category: TwoPair, Tiebreaks: tiebreaks, Cards: hand}
	case groups[0].count == 2:
		return HandRank{Category: Pair, Tiebreaks: tiebreaks, Cards: hand}
	default:
		return HandRank{Category: HighCard, Tiebreaks: tiebreaks, Cards: hand}
	}
}

// straightHighCard expects hand sorted by rank descending. Returns the high
// card of the straight, 5 for the ace-low wheel, 0 when not a straight.
func straightHighCard(hand []deck.Card) int {
	consecutive := true
	for i := 1; i < 5; i++ {
		if hand[i-1].Rank != hand[i].Rank+1 {
			consecutive = false
			break
		}
	}
	if consecutive {
		return hand[0].Rank
	}

	// A-5-4-3-2 wheel
	if hand[0].Rank == deck.Ace &&
		hand[1].Rank == 5 && hand[2].Rank == 4 && hand[3].Rank == 3 && hand[4].Rank == 2 {
		return 5
	}
	return 0
}
