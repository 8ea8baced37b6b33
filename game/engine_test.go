package game

import (
	"sync"

	"gamehall.com/server/ledger"
)

// fakeHost stands in for a Room in engine tests: it records timer arms
// instead of running a countdown, so forced transitions are driven by
// calling TimerFired directly.
type fakeHost struct {
	roomID   string
	stake    int64
	settings Settings
	ledger   *ledger.MemoryLedger

	lastTimerPlayer string
	lastTimerTag    string
	timerCancelled  bool
}

func newFakeHost(stake int64) *fakeHost {
	settings := Settings{}
	settings.fillDefaults()
	return &fakeHost{
		roomID:   "room-test",
		stake:    stake,
		settings: settings,
		ledger:   ledger.NewMemoryLedger(),
	}
}

func (h *fakeHost) RoomID() string           { return h.roomID }
func (h *fakeHost) Stake() int64             { return h.stake }
func (h *fakeHost) Settings() *Settings      { return &h.settings }
func (h *fakeHost) Ledger() ledger.Ledger    { return h.ledger }
func (h *fakeHost) CancelTimer()             { h.timerCancelled = true }
func (h *fakeHost) ResetTimer(playerID string, seconds int, tag string) {
	h.lastTimerPlayer = playerID
	h.lastTimerTag = tag
	h.timerCancelled = false
}

func testPlayers(ids ...string) []*Player {
	players := make([]*Player, len(ids))
	for i, id := range ids {
		players[i] = NewPlayer(id, "name-"+id)
	}
	return players
}

// fakeReceiver captures transport traffic for manager tests.
type fakeReceiver struct {
	lock     sync.Mutex
	messages []*RoomMessage
	private  map[string][]*RoomMessage
	lists    [][]RoomSummary
}

func newFakeReceiver() *fakeReceiver {
	return &fakeReceiver{private: make(map[string][]*RoomMessage)}
}

func (r *fakeReceiver) BroadcastRoomMessage(roomID string, message *RoomMessage) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.messages = append(r.messages, message)
}

func (r *fakeReceiver) SendPlayerMessage(roomID string, playerID string, message *RoomMessage) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.private[playerID] = append(r.private[playerID], message)
}

func (r *fakeReceiver) BroadcastRoomList(rooms []RoomSummary) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.lists = append(r.lists, rooms)
}

func (r *fakeReceiver) playerMessages(playerID string) []*RoomMessage {
	r.lock.Lock()
	defer r.lock.Unlock()
	return append([]*RoomMessage(nil), r.private[playerID]...)
}
