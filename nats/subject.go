package nats

import "fmt"

// Subject layout. Every room has one broadcast subject plus one private
// subject per player; the lobby listing rides a single global subject.
//
// room.<roomID>                  serialized state for everyone
// room.<roomID>.player.<playerID> private view and rejection notices
// rooms.list                     open room summaries

const RoomListSubject = "rooms.list"

func RoomSubject(roomID string) string {
	return fmt.Sprintf("room.%s", roomID)
}

func PlayerSubject(roomID string, playerID string) string {
	return fmt.Sprintf("room.%s.player.%s", roomID, playerID)
}
