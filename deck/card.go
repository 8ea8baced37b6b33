package deck

import "fmt"

type Suit string

const (
	Hearts   Suit = "h"
	Diamonds Suit = "d"
	Clubs    Suit = "c"
	Spades   Suit = "s"
	NoSuit   Suit = ""
)

// Standard deck ranks. 2-10 are face value, J=11, Q=12, K=13, A=14.
// Jokers carry JokerRank and no suit.
const (
	Jack      = 11
	Queen     = 12
	King      = 13
	Ace       = 14
	JokerRank = 15
)

// Dalmuti deck ranks run 1 (best) through 12, with rank r appearing r times.
// The two jesters carry DalmutiJester and act as wildcards.
const (
	DalmutiLowestRank = 12
	DalmutiJester     = 13
)

// Card is immutable once dealt. ID is unique within one deck build and is
// how players reference cards in actions.
type Card struct {
	ID   uint32 `json:"id"`
	Suit Suit   `json:"suit,omitempty"`
	Rank int    `json:"rank"`
}

func (c Card) IsJoker() bool {
	return c.Rank == JokerRank
}

func (c Card) String() string {
	if c.Suit == NoSuit {
		return fmt.Sprintf("R%d", c.Rank)
	}
	var rankStr string
	switch c.Rank {
	case Jack:
		rankStr = "J"
	case Queen:
		rankStr = "Q"
	case King:
		rankStr = "K"
	case Ace:
		rankStr = "A"
	default:
		rankStr = fmt.Sprintf("%d", c.Rank)
	}
	return fmt.Sprintf("%s%s", rankStr, c.Suit)
}

func CardsToString(cards []Card) string {
	str := "["
	for i, c := range cards {
		if i > 0 {
			str += " "
		}
		str += c.String()
	}
	return str + "]"
}

// FindByID returns the index of the card with the given id, or -1.
func FindByID(cards []Card, id uint32) int {
	for i, c := range cards {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// RemoveByIDs removes the identified cards from hand. The second return is
// false (and hand is untouched) when any id is not present.
func RemoveByIDs(hand []Card, ids []uint32) ([]Card, []Card, bool) {
	removed := make([]Card, 0, len(ids))
	remaining := make([]Card, len(hand))
	copy(remaining, hand)
	for _, id := range ids {
		idx := FindByID(remaining, id)
		if idx < 0 {
			return hand, nil, false
		}
		removed = append(removed, remaining[idx])
		remaining = append(remaining[:idx], remaining[idx+1:]...)
	}
	return remaining, removed, true
}
