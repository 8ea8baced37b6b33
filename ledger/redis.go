package ledger

import (
	"context"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"

	jsoniter "github.com/json-iterator/go"
)

var redisLedgerLogger = log.With().Str("logger_name", "ledger::redis").Logger()

const balanceKey = "ledger:balances"

// deduct only when the full amount is covered, in one round trip
var deductScript = redis.NewScript(`
local balance = tonumber(redis.call('HGET', KEYS[1], ARGV[1]) or '0')
local amount = tonumber(ARGV[2])
if balance < amount then
	return 0
end
redis.call('HINCRBY', KEYS[1], ARGV[1], -amount)
return 1
`)

// RedisLedger keeps balances in a Redis hash so they survive server
// restarts. Deduct is atomic via a Lua script.
type RedisLedger struct {
	rdclient *redis.Client
}

func NewRedisLedger(redisURL string, redisPW string, redisDB int) *RedisLedger {
	rdclient := redis.NewClient(&redis.Options{
		Addr:     redisURL,
		Password: redisPW,
		DB:       redisDB,
	})
	return &RedisLedger{
		rdclient: rdclient,
	}
}

func (r *RedisLedger) GetBalance(playerID string) (int64, error) {
	balance, err := r.rdclient.HGet(context.Background(), balanceKey, playerID).Int64()
	if err == redis.Nil {
		return 0, nil
	} else if err != nil {
		return 0, err
	}
	return balance, nil
}

func (r *RedisLedger) SetBalance(playerID string, amount int64) error {
	return r.rdclient.HSet(context.Background(), balanceKey, playerID, amount).Err()
}

func (r *RedisLedger) Deduct(playerID string, amount int64) bool {
	if amount < 0 {
		return false
	}
	ok, err := deductScript.Run(context.Background(), r.rdclient,
		[]string{balanceKey}, playerID, amount).Int()
	if err != nil {
		redisLedgerLogger.Error().
			Str("player", playerID).
			Msgf("Deduct failed: %v", err)
		return false
	}
	return ok == 1
}

func (r *RedisLedger) Credit(playerID string, amount int64) {
	if amount <= 0 {
		return
	}
	err := r.rdclient.HIncrBy(context.Background(), balanceKey, playerID, amount).Err()
	if err != nil {
		redisLedgerLogger.Error().
			Str("player", playerID).
			Msgf("Credit failed: %v", err)
	}
}

func (r *RedisLedger) RecordRoundResult(playerID string, result RoundResult) {
	data, err := jsoniter.Marshal(result)
	if err != nil {
		return
	}
	key := "ledger:results:" + playerID
	err = r.rdclient.LPush(context.Background(), key, data).Err()
	if err != nil {
		redisLedgerLogger.Error().
			Str("player", playerID).
			Msgf("RecordRoundResult failed: %v", err)
	}
}
