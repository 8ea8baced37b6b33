package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemoryLedgerDeductFailsClosed(t *testing.T) {
	l := NewMemoryLedger()
	l.SetBalance("p1", 100)

	assert.False(t, l.Deduct("p1", 101))
	balance, err := l.GetBalance("p1")
	assert.NoError(t, err)
	assert.Equal(t, int64(100), balance)

	assert.True(t, l.Deduct("p1", 100))
	balance, _ = l.GetBalance("p1")
	assert.Equal(t, int64(0), balance)

	// nothing left
	assert.False(t, l.Deduct("p1", 1))
}

func TestMemoryLedgerCredit(t *testing.T) {
	l := NewMemoryLedger()
	l.Credit("p1", 250)
	l.Credit("p1", 0)
	l.Credit("p1", -10)

	balance, err := l.GetBalance("p1")
	assert.NoError(t, err)
	assert.Equal(t, int64(250), balance)
}

func TestMemoryLedgerRoundResults(t *testing.T) {
	l := NewMemoryLedger()
	l.RecordRoundResult("p1", RoundResult{GameType: "BLACKJACK", Outcome: "WIN", Wagered: 50, Earned: 100})
	l.RecordRoundResult("p1", RoundResult{GameType: "BLACKJACK", Outcome: "LOSE", Wagered: 50, Earned: 0})

	results := l.RoundResults("p1")
	assert.Equal(t, 2, len(results))
	assert.Equal(t, "WIN", results[0].Outcome)
	assert.Equal(t, int64(100), results[0].Earned)
}
