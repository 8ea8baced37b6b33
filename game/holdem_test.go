package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gamehall.com/server/deck"
)

// scriptedHoldem builds an engine mid-hand with explicit contributions and
// hole cards, bypassing blinds and the random deal.
func scriptedHoldem(host *fakeHost, ids ...string) *HoldemEngine {
	e := NewHoldemEngine(host, testPlayers(ids...))
	e.buttonIdx = 0
	e.folded = make(map[string]bool)
	e.allIn = make(map[string]bool)
	e.sittingOut = make(map[string]bool)
	e.acted = make(map[string]bool)
	e.contributed = make(map[string]int64)
	return e
}

// Heads up: A is all-in for 300 with a flush, B has 500 in with top pair.
// A wins exactly the 300-level pot; the excess 200 returns to B.
func TestHoldemSidePotScenario(t *testing.T) {
	host := newFakeHost(100)
	e := scriptedHoldem(host, "A", "B")
	e.phase = HoldemRiver
	e.community = []deck.Card{
		{ID: 1, Rank: deck.Ace, Suit: deck.Hearts},
		{ID: 2, Rank: deck.King, Suit: deck.Hearts},
		{ID: 3, Rank: 5, Suit: deck.Hearts},
		{ID: 4, Rank: 2, Suit: deck.Clubs},
		{ID: 5, Rank: 9, Suit: deck.Diamonds},
	}
	e.players[0].Hand = []deck.Card{
		{ID: 6, Rank: deck.Queen, Suit: deck.Hearts},
		{ID: 7, Rank: deck.Jack, Suit: deck.Hearts},
	}
	e.players[1].Hand = []deck.Card{
		{ID: 8, Rank: deck.Ace, Suit: deck.Spades},
		{ID: 9, Rank: 9, Suit: deck.Clubs},
	}
	e.contributed["A"] = 300
	e.contributed["B"] = 500
	e.allIn["A"] = true

	e.settleShowdown()
	require.Equal(t, HoldemShowdown, e.phase)

	records := e.TakeSettlement()
	require.Len(t, records, 2)
	byPlayer := make(map[string]SettlementRecord)
	var total int64
	for _, r := range records {
		byPlayer[r.PlayerID] = r
		total += r.Payout
	}
	assert.Equal(t, int64(600), byPlayer["A"].Payout)
	assert.Equal(t, OutcomeWin, byPlayer["A"].Outcome)
	assert.Equal(t, int64(200), byPlayer["B"].Payout)
	assert.Equal(t, int64(800), total)
}

func TestHoldemChopRemainderToEarliestSeat(t *testing.T) {
	host := newFakeHost(100)
	e := scriptedHoldem(host, "A", "B", "C", "D")
	e.phase = HoldemRiver
	// the board plays for everyone still in
	e.community = []deck.Card{
		{ID: 1, Rank: deck.Ace, Suit: deck.Hearts},
		{ID: 2, Rank: deck.King, Suit: deck.Hearts},
		{ID: 3, Rank: deck.Queen, Suit: deck.Hearts},
		{ID: 4, Rank: deck.Jack, Suit: deck.Hearts},
		{ID: 5, Rank: 10, Suit: deck.Hearts},
	}
	e.players[0].Hand = []deck.Card{{ID: 6, Rank: 2, Suit: deck.Clubs}, {ID: 7, Rank: 3, Suit: deck.Clubs}}
	e.players[1].Hand = []deck.Card{{ID: 8, Rank: 2, Suit: deck.Spades}, {ID: 9, Rank: 3, Suit: deck.Spades}}
	e.players[2].Hand = []deck.Card{{ID: 10, Rank: 2, Suit: deck.Diamonds}, {ID: 11, Rank: 3, Suit: deck.Diamonds}}
	e.contributed["A"] = 33
	e.contributed["B"] = 33
	e.contributed["C"] = 33
	e.contributed["D"] = 1
	e.folded["D"] = true

	e.settleShowdown()
	records := e.TakeSettlement()
	byPlayer := make(map[string]SettlementRecord)
	var total int64
	for _, r := range records {
		byPlayer[r.PlayerID] = r
		total += r.Payout
	}
	assert.Equal(t, int64(100), total)
	// three-way chop of the 100 pot; the folded chip's remainder lands on
	// the earliest winning seat after the button
	assert.Equal(t, int64(34), byPlayer["B"].Payout)
	assert.Equal(t, int64(33), byPlayer["A"].Payout)
	assert.Equal(t, int64(33), byPlayer["C"].Payout)
	assert.Equal(t, OutcomeFold, byPlayer["D"].Outcome)
}

func TestHoldemBettingRules(t *testing.T) {
	host := newFakeHost(100)
	host.ledger.SetBalance("A", 10000)
	host.ledger.SetBalance("B", 10000)
	host.ledger.SetBalance("C", 10000)
	e := NewHoldemEngine(host, testPlayers("A", "B", "C"))
	require.NoError(t, e.Start())
	require.Equal(t, HoldemPreflop, e.phase)

	// blinds collected: small 50, big 100
	assert.Equal(t, int64(150), e.pot())
	assert.Equal(t, int64(100), e.currentBet)

	first := e.players[e.turnIdx]
	// cannot check facing the big blind
	err := e.HandleAction(first.ID, Action{Verb: VerbCheck})
	assert.IsType(t, RejectedActionError{}, err)

	// min-raise is enforced
	err = e.HandleAction(first.ID, Action{Verb: VerbRaise, Amount: 150})
	assert.IsType(t, RejectedActionError{}, err)

	require.NoError(t, e.HandleAction(first.ID, Action{Verb: VerbRaise, Amount: 300}))
	assert.Equal(t, int64(300), e.currentBet)
	assert.Equal(t, int64(200), e.lastRaise)

	// the raise reopened action for everyone else
	assert.False(t, e.acted[e.players[e.turnIdx].ID])
}

func TestHoldemFoldToOneSettlesImmediately(t *testing.T) {
	host := newFakeHost(100)
	host.ledger.SetBalance("A", 10000)
	host.ledger.SetBalance("B", 10000)
	e := NewHoldemEngine(host, testPlayers("A", "B"))
	require.NoError(t, e.Start())

	folder := e.players[e.turnIdx]
	require.NoError(t, e.HandleAction(folder.ID, Action{Verb: VerbFold}))
	require.Equal(t, HoldemShowdown, e.phase)

	records := e.TakeSettlement()
	require.Len(t, records, 2)
	var total, pot int64
	for _, r := range records {
		total += r.Payout
		pot += r.Wagered
		if r.PlayerID == folder.ID {
			assert.Equal(t, OutcomeFold, r.Outcome)
			assert.Equal(t, int64(0), r.Payout)
		}
	}
	assert.Equal(t, pot, total)
}

func TestHoldemDisconnectForcesFold(t *testing.T) {
	host := newFakeHost(100)
	host.ledger.SetBalance("A", 10000)
	host.ledger.SetBalance("B", 10000)
	host.ledger.SetBalance("C", 10000)
	e := NewHoldemEngine(host, testPlayers("A", "B", "C"))
	require.NoError(t, e.Start())

	current := e.players[e.turnIdx]
	current.Connected = false
	e.SetConnectionStatus(current.ID, false)

	// facing the big blind, the forced default is a fold
	assert.True(t, e.folded[current.ID])
	assert.NotEqual(t, current.ID, e.players[e.turnIdx].ID)
}

func TestHoldemUnfundedSeatsSitOut(t *testing.T) {
	host := newFakeHost(100)
	host.ledger.SetBalance("A", 10000)
	host.ledger.SetBalance("B", 10)
	host.ledger.SetBalance("C", 10000)
	e := NewHoldemEngine(host, testPlayers("A", "B", "C"))
	require.NoError(t, e.Start())

	assert.True(t, e.sittingOut["B"])
	assert.Len(t, e.seated(), 2)
	balance, _ := host.ledger.GetBalance("B")
	assert.Equal(t, int64(10), balance)
}
