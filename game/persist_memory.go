package game

import (
	"fmt"
	"sync"

	jsoniter "github.com/json-iterator/go"
)

type MemoryRoomStateTracker struct {
	lock        sync.Mutex
	activeRooms map[string][]byte
}

func NewMemoryRoomStateTracker() *MemoryRoomStateTracker {
	return &MemoryRoomStateTracker{
		activeRooms: make(map[string][]byte),
	}
}

func (m *MemoryRoomStateTracker) Load(roomID string) (*Snapshot, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	if stateBytes, ok := m.activeRooms[roomID]; ok {
		snapshot := Snapshot{}
		err := jsoniter.Unmarshal(stateBytes, &snapshot)
		if err != nil {
			return nil, err
		}
		return &snapshot, nil
	}
	return nil, fmt.Errorf("Room state for key: %s is not found", roomID)
}

func (m *MemoryRoomStateTracker) Save(roomID string, snapshot *Snapshot) error {
	stateInBytes, err := jsoniter.Marshal(snapshot)
	if err != nil {
		return err
	}
	m.lock.Lock()
	defer m.lock.Unlock()
	m.activeRooms[roomID] = stateInBytes
	return nil
}

func (m *MemoryRoomStateTracker) Remove(roomID string) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	delete(m.activeRooms, roomID)
	return nil
}
