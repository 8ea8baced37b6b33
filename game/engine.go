package game

import (
	"gamehall.com/server/ledger"
	"gamehall.com/server/timer"
)

// Engine is the lifecycle contract shared by all four rulesets. One
// concrete engine is selected by the room's game type at start time.
//
// Engines are plain state machines: they are only ever driven from the
// owning room's message loop, so they hold no locks of their own.
type Engine interface {
	// Start deals and shuffles deterministically into the initial phase.
	Start() error

	// HandleAction validates the verb against (phase, turn, ownership)
	// and either fully applies it or returns a RejectedActionError with
	// no partial mutation.
	HandleAction(playerID string, action Action) error

	// SetConnectionStatus is never a no-op while a round is live: a
	// disconnect forces the player's pending decision to its variant
	// default so the turn always advances.
	SetConnectionStatus(playerID string, connected bool)

	// TimerFired delivers an expired countdown. The room has already
	// discarded stale sequences; the engine still re-validates the
	// phase/turn the timer was armed against.
	TimerFired(msg timer.Msg)

	// Serialize renders the public view plus the viewer's own private
	// fields. Concealed information is redacted here, never stored
	// redacted.
	Serialize(viewerID string) *Snapshot

	// TakeSettlement returns the round's settlement records exactly
	// once: the first call after the terminal phase returns them and
	// clears the pending set; any other call returns nil.
	TakeSettlement() []SettlementRecord

	// Finished reports whether the current round reached its terminal
	// phase.
	Finished() bool

	// NextRound advances or reconstructs the machine for the following
	// round, folding in any waiting players.
	NextRound() error

	// JoinWaiting registers a mid-game joiner the engine folds in at the
	// next round boundary.
	JoinWaiting(p *Player) error
}

// Host is what an engine may ask of its room: countdowns, the ledger for
// bet-time balance checks, and the room's configuration. Implemented by
// Room; tests substitute a fake.
type Host interface {
	RoomID() string
	Stake() int64
	Settings() *Settings
	Ledger() ledger.Ledger
	ResetTimer(playerID string, seconds int, tag string)
	CancelTimer()
}

func newEngine(host Host, gameType GameType, players []*Player, pot int64) Engine {
	switch gameType {
	case GameDalmuti:
		return NewDalmutiEngine(host, players, pot)
	case GameOneCard:
		return NewOneCardEngine(host, players, pot)
	case GameBlackjack:
		return NewBlackjackEngine(host, players)
	case GameHoldem:
		return NewHoldemEngine(host, players)
	}
	return nil
}

// minPlayers is 1 for solo blackjack against the house, 2 otherwise.
func minPlayers(gameType GameType) int {
	if gameType == GameBlackjack {
		return 1
	}
	return 2
}

// stakeEscrowed reports whether the variant collects its stake up front at
// start/restart. Blackjack and holdem deduct at bet time instead.
func stakeEscrowed(gameType GameType) bool {
	return gameType == GameDalmuti || gameType == GameOneCard
}
