package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"gamehall.com/server/config"
	"gamehall.com/server/game"
	"gamehall.com/server/ledger"
	"gamehall.com/server/nats"
	"gamehall.com/server/rest"
	"gamehall.com/server/util"
)

var mainLogger = log.With().Str("logger_name", "main::main").Logger()

func main() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if err := godotenv.Load(); err != nil {
		mainLogger.Debug().Msgf("No .env file loaded: %v", err)
	}

	env := util.GameServerEnvironment
	serverConfig, err := config.Load(env.GetConfigFile())
	if err != nil {
		mainLogger.Fatal().Msgf("Failed to load config: %v", err)
	}

	broadcaster, err := nats.NewBroadcaster(env.GetNatsURL())
	if err != nil {
		mainLogger.Fatal().Msgf("Failed to connect to nats: %v", err)
	}
	defer broadcaster.Close()

	var roomLedger ledger.Ledger
	var persist game.PersistRoomState
	switch env.GetPersistMethod() {
	case "redis":
		redisAddr := fmt.Sprintf("%s:%d", env.GetRedisHost(), env.GetRedisPort())
		roomLedger = ledger.NewRedisLedger(redisAddr, env.GetRedisPW(), env.GetRedisDB())
		persist = game.NewRedisRoomStateTracker(redisAddr, env.GetRedisPW(), env.GetRedisDB())
	case "memory":
		roomLedger = ledger.NewMemoryLedger()
		persist = game.NewMemoryRoomStateTracker()
	default:
		mainLogger.Fatal().Msgf("Invalid PERSIST_METHOD %s", env.GetPersistMethod())
	}

	defaults := serverConfig.DefaultSettings
	if defaults.TurnTimeSec == 0 {
		defaults.TurnTimeSec = env.GetPlayTimeout()
	}

	manager := game.NewManager(broadcaster, roomLedger, persist, defaults)
	manager.Start()
	defer manager.Stop()

	if err := rest.RunRestServer(manager, broadcaster, serverConfig.RestAddr); err != nil {
		mainLogger.Error().Msgf("REST server exited: %v", err)
		os.Exit(1)
	}
}
