package game

// PersistRoomState stores the latest serialized snapshot of each room so
// observers (and a restarted server) can read where a room left off.
type PersistRoomState interface {
	Load(roomID string) (*Snapshot, error)
	Save(roomID string, snapshot *Snapshot) error
	Remove(roomID string) error
}
