package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gamehall.com/server/ledger"
)

func newTestManager() (*Manager, *fakeReceiver, *ledger.MemoryLedger) {
	receiver := newFakeReceiver()
	l := ledger.NewMemoryLedger()
	m := NewManager(receiver, l, NewMemoryRoomStateTracker(), Settings{})
	return m, receiver, l
}

func TestManagerCreateRoom(t *testing.T) {
	m, _, _ := newTestManager()
	defer m.Stop()

	_, err := m.CreateRoom("p1", "Alice", "bad", GameType("CANASTA"), 0, nil)
	assert.IsType(t, RejectedActionError{}, err)

	snapshot, err := m.CreateRoom("p1", "Alice", "table one", GameOneCard, 100, nil)
	require.NoError(t, err)
	assert.Equal(t, RoomStatusLobby, snapshot.Status)
	assert.Equal(t, GameOneCard, snapshot.GameType)
	require.Len(t, snapshot.Players, 1)
	assert.Equal(t, "p1", snapshot.Players[0].ID)
}

func TestManagerJoinAndList(t *testing.T) {
	m, _, _ := newTestManager()
	defer m.Stop()

	snapshot, err := m.CreateRoom("p1", "Alice", "table", GameBlackjack, 0, nil)
	require.NoError(t, err)
	roomID := snapshot.RoomID

	require.NoError(t, m.JoinRoom(roomID, "p2", "Bob"))
	assert.Equal(t, ErrAlreadyJoined, m.JoinRoom(roomID, "p2", "Bob"))
	assert.Equal(t, ErrRoomNotFound, m.JoinRoom("nope", "p3", "Eve"))

	rooms := m.ListRooms()
	require.Len(t, rooms, 1)
	assert.Equal(t, 2, rooms[0].PlayerCount)
	assert.Equal(t, RoomStatusLobby, rooms[0].Status)
}

func TestManagerStartValidations(t *testing.T) {
	m, _, l := newTestManager()
	defer m.Stop()

	snapshot, err := m.CreateRoom("p1", "Alice", "table", GameOneCard, 100, nil)
	require.NoError(t, err)
	roomID := snapshot.RoomID

	// two players minimum for onecard
	l.SetBalance("p1", 1000)
	assert.Equal(t, ErrNotEnoughPlayers, m.StartGame(roomID, "p1"))

	require.NoError(t, m.JoinRoom(roomID, "p2", "Bob"))
	assert.Equal(t, ErrNotOwner, m.StartGame(roomID, "p2"))
}

// An escrow failure aborts start atomically: no engine, no balance change.
func TestManagerEscrowAbortsAtomically(t *testing.T) {
	m, _, l := newTestManager()
	defer m.Stop()

	snapshot, err := m.CreateRoom("p1", "Alice", "table", GameDalmuti, 100, nil)
	require.NoError(t, err)
	roomID := snapshot.RoomID
	require.NoError(t, m.JoinRoom(roomID, "p2", "Bob"))

	l.SetBalance("p1", 500)
	l.SetBalance("p2", 50)

	err = m.StartGame(roomID, "p1")
	assert.IsType(t, InsufficientFundsError{}, err)

	balance, _ := l.GetBalance("p1")
	assert.Equal(t, int64(500), balance)
	balance, _ = l.GetBalance("p2")
	assert.Equal(t, int64(50), balance)

	state, err := m.GetState(roomID, "p1")
	require.NoError(t, err)
	assert.Equal(t, RoomStatusLobby, state.Status)
}

func TestManagerStartEscrowsAndPlays(t *testing.T) {
	m, receiver, l := newTestManager()
	defer m.Stop()

	snapshot, err := m.CreateRoom("p1", "Alice", "table", GameOneCard, 100, nil)
	require.NoError(t, err)
	roomID := snapshot.RoomID
	require.NoError(t, m.JoinRoom(roomID, "p2", "Bob"))

	l.SetBalance("p1", 1000)
	l.SetBalance("p2", 1000)
	require.NoError(t, m.StartGame(roomID, "p1"))

	balance, _ := l.GetBalance("p1")
	assert.Equal(t, int64(900), balance)

	state, err := m.GetState(roomID, "p1")
	require.NoError(t, err)
	assert.Equal(t, RoomStatusPlaying, state.Status)
	assert.Equal(t, OneCardPlaying, state.Phase)

	// a rejected action notifies only the caller, with no state change
	off := "p1"
	if state.TurnPlayerID == "p1" {
		off = "p2"
	}
	err = m.HandleAction(roomID, off, Action{Verb: VerbDraw})
	assert.IsType(t, RejectedActionError{}, err)
	notices := receiver.playerMessages(off)
	require.NotEmpty(t, notices)
	assert.Equal(t, RoomMessageRejected, notices[len(notices)-1].Type)

	// own hand attaches only to the requesting player's view
	ownState, err := m.GetState(roomID, "p1")
	require.NoError(t, err)
	for _, v := range ownState.Players {
		if v.ID == "p1" {
			assert.Len(t, v.Hand, v.HandCount)
		} else {
			assert.Empty(t, v.Hand)
		}
	}
}

func TestManagerLeaveInLobby(t *testing.T) {
	m, _, _ := newTestManager()
	defer m.Stop()

	snapshot, err := m.CreateRoom("p1", "Alice", "table", GameBlackjack, 0, nil)
	require.NoError(t, err)
	roomID := snapshot.RoomID
	require.NoError(t, m.JoinRoom(roomID, "p2", "Bob"))

	// owner leaves, ownership transfers and p2 can start
	require.NoError(t, m.LeaveRoom(roomID, "p1"))
	require.NoError(t, m.StartGame(roomID, "p2"))
}

func TestManagerDestroyRoom(t *testing.T) {
	m, _, _ := newTestManager()
	defer m.Stop()

	snapshot, err := m.CreateRoom("p1", "Alice", "table", GameBlackjack, 0, nil)
	require.NoError(t, err)
	roomID := snapshot.RoomID

	m.DestroyRoom(roomID)
	assert.Equal(t, ErrRoomNotFound, m.JoinRoom(roomID, "p2", "Bob"))
	_, err = m.GetState(roomID, "p1")
	assert.Equal(t, ErrRoomNotFound, err)
}
