package game

// Outcome tags stamped on settlement records.
const (
	OutcomeWin       = "WIN"
	OutcomeLose      = "LOSE"
	OutcomePush      = "PUSH"
	OutcomeBlackjack = "BLACKJACK"
	OutcomeBust      = "BUST"
	OutcomeFold      = "FOLD"
	OutcomeRank1     = "RANK_1"
)

// SettlementRecord is produced once per finished round per player and
// consumed exactly once by the ledger. Payout is gross: the wagered amount
// was already collected when the bet or escrow happened, so posting the
// record credits Payout and nothing else.
type SettlementRecord struct {
	PlayerID string `json:"playerId"`
	Wagered  int64  `json:"wagered"`
	Payout   int64  `json:"payout"`
	Outcome  string `json:"outcome"`
}
