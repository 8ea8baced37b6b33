package game

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"

	jsoniter "github.com/json-iterator/go"
)

type RedisRoomStateTracker struct {
	rdclient *redis.Client
}

func NewRedisRoomStateTracker(redisURL string, redisPW string, redisDB int) *RedisRoomStateTracker {
	rdclient := redis.NewClient(&redis.Options{
		Addr:     redisURL,
		Password: redisPW,
		DB:       redisDB,
	})
	return &RedisRoomStateTracker{
		rdclient: rdclient,
	}
}

func (r *RedisRoomStateTracker) key(roomID string) string {
	return "roomstate:" + roomID
}

func (r *RedisRoomStateTracker) Load(roomID string) (*Snapshot, error) {
	stateBytes, err := r.rdclient.Get(context.Background(), r.key(roomID)).Result()
	if err == redis.Nil {
		return nil, fmt.Errorf("Room state for key: %s is not found", roomID)
	} else if err != nil {
		return nil, err
	}
	snapshot := &Snapshot{}
	err = jsoniter.Unmarshal([]byte(stateBytes), snapshot)
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

func (r *RedisRoomStateTracker) Save(roomID string, snapshot *Snapshot) error {
	stateInBytes, err := jsoniter.Marshal(snapshot)
	if err != nil {
		return err
	}
	return r.rdclient.Set(context.Background(), r.key(roomID), stateInBytes, 0).Err()
}

func (r *RedisRoomStateTracker) Remove(roomID string) error {
	return r.rdclient.Del(context.Background(), r.key(roomID)).Err()
}
