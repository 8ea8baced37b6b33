package nats

import (
	jsoniter "github.com/json-iterator/go"
	natsgo "github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"gamehall.com/server/game"
)

var natsLogger = log.With().Str("logger_name", "nats::broadcaster").Logger()

// Broadcaster pushes serialized room state over NATS. It is the game
// layer's MessageReceiver; the game layer never sees the connection.
type Broadcaster struct {
	nc *natsgo.Conn
}

func NewBroadcaster(natsURL string) (*Broadcaster, error) {
	nc, err := natsgo.Connect(natsURL)
	if err != nil {
		natsLogger.Error().Msgf("Failed to connect to nats server at %s: %v", natsURL, err)
		return nil, err
	}
	return &Broadcaster{nc: nc}, nil
}

func (b *Broadcaster) publish(subject string, v interface{}) {
	data, err := jsoniter.Marshal(v)
	if err != nil {
		natsLogger.Error().Msgf("Failed to marshal message for %s: %v", subject, err)
		return
	}
	if err := b.nc.Publish(subject, data); err != nil {
		natsLogger.Error().Msgf("Failed to publish to %s: %v", subject, err)
	}
}

func (b *Broadcaster) BroadcastRoomMessage(roomID string, message *game.RoomMessage) {
	b.publish(RoomSubject(roomID), message)
}

func (b *Broadcaster) SendPlayerMessage(roomID string, playerID string, message *game.RoomMessage) {
	b.publish(PlayerSubject(roomID, playerID), message)
}

func (b *Broadcaster) BroadcastRoomList(rooms []game.RoomSummary) {
	b.publish(RoomListSubject, rooms)
}

// SubscribeRoom delivers every broadcast for one room. The returned func
// unsubscribes.
func (b *Broadcaster) SubscribeRoom(roomID string, cb func(data []byte)) (func(), error) {
	return b.subscribe(RoomSubject(roomID), cb)
}

// SubscribePlayer delivers one player's private messages for one room.
func (b *Broadcaster) SubscribePlayer(roomID string, playerID string, cb func(data []byte)) (func(), error) {
	return b.subscribe(PlayerSubject(roomID, playerID), cb)
}

func (b *Broadcaster) subscribe(subject string, cb func(data []byte)) (func(), error) {
	sub, err := b.nc.Subscribe(subject, func(msg *natsgo.Msg) {
		cb(msg.Data)
	})
	if err != nil {
		return nil, err
	}
	return func() { _ = sub.Unsubscribe() }, nil
}

func (b *Broadcaster) Close() {
	b.nc.Close()
}
