package game

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"gamehall.com/server/ledger"
)

var managerLogger = log.With().Str("logger_name", "game::manager").Logger()

const idleRoomTimeout = 30 * time.Minute

// Manager is the session orchestrator: the room registry plus the reaper
// that tears down idle tables. Everything below it is per-room
// single-writer state.
type Manager struct {
	lock     sync.Mutex
	rooms    map[string]*Room
	receiver MessageReceiver
	ledger   ledger.Ledger
	persist  PersistRoomState
	defaults Settings

	chEndReaper chan bool
}

func NewManager(receiver MessageReceiver, l ledger.Ledger, persist PersistRoomState, defaults Settings) *Manager {
	defaults.fillDefaults()
	return &Manager{
		rooms:       make(map[string]*Room),
		receiver:    receiver,
		ledger:      l,
		persist:     persist,
		defaults:    defaults,
		chEndReaper: make(chan bool, 1),
	}
}

// Start launches the idle-room reaper.
func (m *Manager) Start() {
	go m.reaperLoop()
}

func (m *Manager) Stop() {
	m.chEndReaper <- true

	m.lock.Lock()
	ids := make([]string, 0, len(m.rooms))
	for id := range m.rooms {
		ids = append(ids, id)
	}
	m.lock.Unlock()
	for _, id := range ids {
		m.DestroyRoom(id)
	}
}

func validGameType(gameType GameType) bool {
	switch gameType {
	case GameDalmuti, GameOneCard, GameBlackjack, GameHoldem:
		return true
	}
	return false
}

func (m *Manager) CreateRoom(ownerID string, ownerName string, name string,
	gameType GameType, stake int64, settings *Settings) (*Snapshot, error) {

	if !validGameType(gameType) {
		return nil, rejectf("unknown game type %s", gameType)
	}
	if stake < 0 {
		return nil, rejectf("stake cannot be negative")
	}

	roomSettings := m.defaults
	if settings != nil {
		roomSettings = *settings
	}

	room := newRoom(m, ownerID, ownerName, name, gameType, stake, roomSettings)
	m.lock.Lock()
	m.rooms[room.id] = room
	m.lock.Unlock()

	managerLogger.Info().
		Str("room", room.id).
		Str("owner", ownerID).
		Msgf("Created %s room %q with stake %d", gameType, name, stake)

	go m.publishRoomList()
	return m.GetState(room.id, ownerID)
}

func (m *Manager) getRoom(roomID string) (*Room, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	room, ok := m.rooms[roomID]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return room, nil
}

func (m *Manager) JoinRoom(roomID string, playerID string, playerName string) error {
	room, err := m.getRoom(roomID)
	if err != nil {
		return err
	}
	return room.do(roomRequest{kind: reqJoin, playerID: playerID, playerName: playerName}).err
}

func (m *Manager) LeaveRoom(roomID string, playerID string) error {
	room, err := m.getRoom(roomID)
	if err != nil {
		return err
	}
	return room.do(roomRequest{kind: reqLeave, playerID: playerID}).err
}

func (m *Manager) StartGame(roomID string, callerID string) error {
	room, err := m.getRoom(roomID)
	if err != nil {
		return err
	}
	return room.do(roomRequest{kind: reqStart, playerID: callerID}).err
}

func (m *Manager) RestartRound(roomID string, callerID string) error {
	room, err := m.getRoom(roomID)
	if err != nil {
		return err
	}
	return room.do(roomRequest{kind: reqRestart, playerID: callerID}).err
}

func (m *Manager) HandleAction(roomID string, playerID string, action Action) error {
	room, err := m.getRoom(roomID)
	if err != nil {
		return err
	}
	return room.do(roomRequest{kind: reqAction, playerID: playerID, action: action}).err
}

// SetConnectionStatus marks a player (dis)connected. During play the
// engine force-resolves that player's pending decision so the turn always
// advances without them.
func (m *Manager) SetConnectionStatus(roomID string, playerID string, connected bool) error {
	room, err := m.getRoom(roomID)
	if err != nil {
		return err
	}
	return room.do(roomRequest{kind: reqConnStatus, playerID: playerID, connected: connected}).err
}

func (m *Manager) GetState(roomID string, viewerID string) (*Snapshot, error) {
	room, err := m.getRoom(roomID)
	if err != nil {
		return nil, err
	}
	resp := room.do(roomRequest{kind: reqSnapshot, viewerID: viewerID})
	if resp.err != nil {
		return nil, resp.err
	}
	return resp.snapshot, nil
}

func (m *Manager) ListRooms() []RoomSummary {
	m.lock.Lock()
	rooms := make([]*Room, 0, len(m.rooms))
	for _, room := range m.rooms {
		rooms = append(rooms, room)
	}
	m.lock.Unlock()

	summaries := make([]RoomSummary, 0, len(rooms))
	for _, room := range rooms {
		resp := room.do(roomRequest{kind: reqSummary})
		if resp.err != nil {
			continue
		}
		summaries = append(summaries, resp.summary)
	}
	return summaries
}

func (m *Manager) publishRoomList() {
	m.receiver.BroadcastRoomList(m.ListRooms())
}

func (m *Manager) DestroyRoom(roomID string) {
	m.lock.Lock()
	room, ok := m.rooms[roomID]
	if ok {
		delete(m.rooms, roomID)
	}
	m.lock.Unlock()
	if !ok {
		return
	}

	select {
	case room.chEnd <- true:
	case <-room.chDone:
	}
	if err := m.persist.Remove(roomID); err != nil {
		managerLogger.Error().Str("room", roomID).Msgf("Failed to remove persisted state: %v", err)
	}
	managerLogger.Info().Str("room", roomID).Msg("Room destroyed")
	go m.publishRoomList()
}

func (m *Manager) reaperLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-m.chEndReaper:
			return
		case <-ticker.C:
			m.reapIdleRooms()
		}
	}
}

func (m *Manager) reapIdleRooms() {
	m.lock.Lock()
	rooms := make([]*Room, 0, len(m.rooms))
	for _, room := range m.rooms {
		rooms = append(rooms, room)
	}
	m.lock.Unlock()

	now := time.Now()
	for _, room := range rooms {
		resp := room.do(roomRequest{kind: reqSummary})
		if resp.err != nil {
			continue
		}
		idle := now.Sub(room.LastActivity())
		if resp.summary.PlayerCount == 0 || idle > idleRoomTimeout {
			managerLogger.Info().
				Str("room", room.id).
				Msgf("Reaping room (players %d, idle %s)", resp.summary.PlayerCount, idle)
			m.DestroyRoom(room.id)
		}
	}
}
