// Package ledger is the balance collaborator consumed by the game server.
// The server never stores balances itself; every monetary effect of a round
// flows through this interface exactly once.
package ledger

// RoundResult is the fire-and-forget audit entry posted after settlement.
type RoundResult struct {
	GameType string `json:"gameType"`
	Outcome  string `json:"outcome"`
	Wagered  int64  `json:"wagered"`
	Earned   int64  `json:"earned"`
}

type Ledger interface {
	GetBalance(playerID string) (int64, error)

	// Deduct fails closed: either the full amount is removed or the
	// balance is untouched and false is returned.
	Deduct(playerID string, amount int64) bool

	Credit(playerID string, amount int64)

	// RecordRoundResult must never block game progression; callers invoke
	// it from a goroutine and ignore failures.
	RecordRoundResult(playerID string, result RoundResult)
}
