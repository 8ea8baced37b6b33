package util

import (
	"os"
	"strconv"

	"github.com/rs/zerolog/log"
)

var environmentLogger = log.With().Str("logger_name", "util::environment").Logger()

type gameServerEnvironment struct {
	PersistMethod string
	RedisHost     string
	RedisPort     string
	RedisPW       string
	RedisDB       string
	NatsURL       string
	PlayTimeout   string
	ConfigFile    string
}

// GameServerEnvironment is a helper object for accessing environment variables.
var GameServerEnvironment = &gameServerEnvironment{
	PersistMethod: "PERSIST_METHOD",
	RedisHost:     "REDIS_HOST",
	RedisPort:     "REDIS_PORT",
	RedisPW:       "REDIS_PW",
	RedisDB:       "REDIS_DB",
	NatsURL:       "NATS_URL",
	PlayTimeout:   "PLAY_TIMEOUT",
	ConfigFile:    "CONFIG_FILE",
}

func (g *gameServerEnvironment) GetPersistMethod() string {
	method := os.Getenv(g.PersistMethod)
	if method == "" {
		return "memory"
	}
	return method
}

func (g *gameServerEnvironment) GetRedisHost() string {
	host := os.Getenv(g.RedisHost)
	if host == "" {
		return "localhost"
	}
	return host
}

func (g *gameServerEnvironment) GetRedisPort() int {
	portStr := os.Getenv(g.RedisPort)
	if portStr == "" {
		return 6379
	}
	portNum, err := strconv.Atoi(portStr)
	if err != nil {
		environmentLogger.Error().Msgf("Invalid Redis port %s", portStr)
		return 6379
	}
	return portNum
}

func (g *gameServerEnvironment) GetRedisPW() string {
	return os.Getenv(g.RedisPW)
}

func (g *gameServerEnvironment) GetRedisDB() int {
	dbStr := os.Getenv(g.RedisDB)
	if dbStr == "" {
		return 0
	}
	dbNum, err := strconv.Atoi(dbStr)
	if err != nil {
		environmentLogger.Error().Msgf("Invalid Redis db %s", dbStr)
		return 0
	}
	return dbNum
}

func (g *gameServerEnvironment) GetNatsURL() string {
	url := os.Getenv(g.NatsURL)
	if url == "" {
		return "nats://localhost:4222"
	}
	return url
}

// GetPlayTimeout returns the per-turn action timeout in seconds.
func (g *gameServerEnvironment) GetPlayTimeout() int {
	timeoutStr := os.Getenv(g.PlayTimeout)
	if timeoutStr == "" {
		return 15
	}
	timeout, err := strconv.Atoi(timeoutStr)
	if err != nil {
		environmentLogger.Error().Msgf("Invalid play timeout %s", timeoutStr)
		return 15
	}
	return timeout
}

func (g *gameServerEnvironment) GetConfigFile() string {
	return os.Getenv(g.ConfigFile)
}
