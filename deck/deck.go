package deck

import (
	crypto_rand "crypto/rand"
	"encoding/binary"
	"math/rand"
)

// Deck owns the undealt cards for one room round. Builders assign every card
// a unique id so engines can track ownership without duplication.
type Deck struct {
	cards   []Card
	randGen *rand.Rand
}

func newSeed() rand.Source {
	var b [8]byte
	_, err := crypto_rand.Read(b[:])
	if err != nil {
		panic("cannot seed math/rand package with cryptographically secure random number generator")
	}
	return rand.NewSource(int64(binary.LittleEndian.Uint64(b[:])))
}

func newDeck(cards []Card, source rand.Source) *Deck {
	if source == nil {
		source = newSeed()
	}
	return &Deck{
		cards:   cards,
		randGen: rand.New(source),
	}
}

// NewStandard builds a 52-card deck. Pass a source for deterministic tests,
// nil for a crypto-seeded shuffle.
func NewStandard(source rand.Source) *Deck {
	return newDeck(standardCards(0), source)
}

// NewStandardWithJokers builds a 52+n card deck for OneCard.
func NewStandardWithJokers(jokers int, source rand.Source) *Deck {
	return newDeck(standardCards(jokers), source)
}

// NewDalmuti builds the 80-card Dalmuti deck: rank r appears r times for
// ranks 1..12, plus two jesters.
func NewDalmuti(source rand.Source) *Deck {
	cards := make([]Card, 0, 80)
	var id uint32 = 1
	for rank := 1; rank <= DalmutiLowestRank; rank++ {
		for i := 0; i < rank; i++ {
			cards = append(cards, Card{ID: id, Rank: rank})
			id++
		}
	}
	cards = append(cards, Card{ID: id, Rank: DalmutiJester})
	id++
	cards = append(cards, Card{ID: id, Rank: DalmutiJester})
	return newDeck(cards, source)
}

// NewFromCards builds a deck with a fixed card order. Tests use it to
// script deals.
func NewFromCards(cards []Card, source rand.Source) *Deck {
	return newDeck(cards, source)
}

// NewSeatPick builds the face-down rank deck used for Dalmuti seat
// selection: one card per participant, ranks 1..n.
func NewSeatPick(n int, source rand.Source) *Deck {
	cards := make([]Card, n)
	for i := 0; i < n; i++ {
		cards[i] = Card{ID: uint32(i + 1), Rank: i + 1}
	}
	return newDeck(cards, source)
}

func standardCards(jokers int) []Card {
	suits := []Suit{Spades, Hearts, Diamonds, Clubs}
	cards := make([]Card, 0, 52+jokers)
	var id uint32 = 1
	for rank := 2; rank <= Ace; rank++ {
		for _, suit := range suits {
			cards = append(cards, Card{ID: id, Suit: suit, Rank: rank})
			id++
		}
	}
	for i := 0; i < jokers; i++ {
		cards = append(cards, Card{ID: id, Rank: JokerRank})
		id++
	}
	return cards
}

func (d *Deck) Shuffle() *Deck {
	for i := range d.cards {
		loc := d.randGen.Intn(len(d.cards))
		d.cards[i], d.cards[loc] = d.cards[loc], d.cards[i]
	}
	return d
}

// ShuffleCards shuffles an arbitrary pile in place with a fresh
// crypto-seeded generator. Used for the Dalmuti market pool and mid-round
// hand shuffles.
func ShuffleCards(cards []Card) {
	randGen := rand.New(newSeed())
	for i := range cards {
		loc := randGen.Intn(len(cards))
		cards[i], cards[loc] = cards[loc], cards[i]
	}
}

func (d *Deck) Draw(n int) []Card {
	if n > len(d.cards) {
		n = len(d.cards)
	}
	cards := make([]Card, n)
	copy(cards, d.cards[:n])
	d.cards = d.cards[n:]
	return cards
}

func (d *Deck) DrawOne() (Card, bool) {
	if len(d.cards) == 0 {
		return Card{}, false
	}
	card := d.cards[0]
	d.cards = d.cards[1:]
	return card, true
}

// Refill puts cards back at the bottom of the deck and reshuffles. Used
// when the OneCard draw pile runs out and the discard is recycled.
func (d *Deck) Refill(cards []Card) {
	d.cards = append(d.cards, cards...)
	d.Shuffle()
}

func (d *Deck) Size() int {
	return len(d.cards)
}

func (d *Deck) Empty() bool {
	return len(d.cards) == 0
}
