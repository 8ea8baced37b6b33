package game

import (
	"errors"
	"fmt"
)

var (
	ErrRoomNotFound     = errors.New("room not found")
	ErrEngineNotStarted = errors.New("game has not started")
	ErrNotEnoughPlayers = errors.New("not enough players to start")
	ErrNotOwner         = errors.New("only the room owner can do that")
	ErrAlreadyPlaying   = errors.New("game already in progress")
	ErrRoomFull         = errors.New("room is full")
	ErrAlreadyJoined    = errors.New("player already in the room")
	ErrPlayerNotInRoom  = errors.New("player is not in the room")
	ErrRoundNotFinished = errors.New("round is not finished")
)

// RejectedActionError covers the wrong-phase / not-your-turn / invalid-card
// family. The engine state is guaranteed untouched when one is returned.
type RejectedActionError struct {
	Reason string
}

func (e RejectedActionError) Error() string {
	return e.Reason
}

func rejectf(format string, args ...interface{}) error {
	return RejectedActionError{Reason: fmt.Sprintf(format, args...)}
}

// InsufficientFundsError aborts the specific action or the whole start
// call; no partial charge survives.
type InsufficientFundsError struct {
	PlayerID string
	Amount   int64
}

func (e InsufficientFundsError) Error() string {
	return fmt.Sprintf("player %s has insufficient funds for %d", e.PlayerID, e.Amount)
}
