package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"gamehall.com/server/game"
)

var restLogger = log.With().Str("logger_name", "rest::rest").Logger()

var roomManager *game.Manager
var subscriber Subscriber

// Subscriber feeds websocket attachments with the room broadcasts the
// game layer publishes. Implemented by the nats broadcaster.
type Subscriber interface {
	SubscribeRoom(roomID string, cb func(data []byte)) (func(), error)
	SubscribePlayer(roomID string, playerID string, cb func(data []byte)) (func(), error)
}

type appError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func replyError(c *gin.Context, err error) {
	code := http.StatusInternalServerError
	switch err.(type) {
	case game.RejectedActionError, InsufficientFunds:
		code = http.StatusBadRequest
	}
	if err == game.ErrRoomNotFound {
		code = http.StatusNotFound
	}
	c.IndentedJSON(code, appError{Code: code, Message: err.Error()})
}

// InsufficientFunds aliases the game error so the switch above stays local.
type InsufficientFunds = game.InsufficientFundsError

func RunRestServer(manager *game.Manager, sub Subscriber, addr string) error {
	roomManager = manager
	subscriber = sub

	r := gin.Default()
	r.Use(playerRateLimit())

	r.POST("/create-room", createRoom)
	r.GET("/rooms", listRooms)
	r.POST("/join-room", joinRoom)
	r.POST("/leave-room", leaveRoom)
	r.POST("/start-game", startGame)
	r.POST("/restart-round", restartRound)
	r.POST("/action", handleAction)
	r.GET("/room-state", roomState)
	r.GET("/ws", attachWebsocket)

	restLogger.Info().Msgf("REST server listening on %s", addr)
	return r.Run(addr)
}

type createRoomReq struct {
	PlayerID   string         `json:"playerId"`
	PlayerName string         `json:"playerName"`
	Name       string         `json:"name"`
	GameType   game.GameType  `json:"gameType"`
	Stake      int64          `json:"stake"`
	Settings   *game.Settings `json:"settings"`
}

func createRoom(c *gin.Context) {
	var req createRoomReq
	if err := c.BindJSON(&req); err != nil {
		restLogger.Error().Msgf("Failed to parse create-room request: %v", err)
		return
	}
	snapshot, err := roomManager.CreateRoom(req.PlayerID, req.PlayerName, req.Name, req.GameType, req.Stake, req.Settings)
	if err != nil {
		replyError(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

func listRooms(c *gin.Context) {
	c.JSON(http.StatusOK, roomManager.ListRooms())
}

type roomReq struct {
	RoomID     string `json:"roomId"`
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
}

func joinRoom(c *gin.Context) {
	var req roomReq
	if err := c.BindJSON(&req); err != nil {
		restLogger.Error().Msgf("Failed to parse join-room request: %v", err)
		return
	}
	if err := roomManager.JoinRoom(req.RoomID, req.PlayerID, req.PlayerName); err != nil {
		replyError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func leaveRoom(c *gin.Context) {
	var req roomReq
	if err := c.BindJSON(&req); err != nil {
		restLogger.Error().Msgf("Failed to parse leave-room request: %v", err)
		return
	}
	if err := roomManager.LeaveRoom(req.RoomID, req.PlayerID); err != nil {
		replyError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func startGame(c *gin.Context) {
	var req roomReq
	if err := c.BindJSON(&req); err != nil {
		restLogger.Error().Msgf("Failed to parse start-game request: %v", err)
		return
	}
	if err := roomManager.StartGame(req.RoomID, req.PlayerID); err != nil {
		replyError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func restartRound(c *gin.Context) {
	var req roomReq
	if err := c.BindJSON(&req); err != nil {
		restLogger.Error().Msgf("Failed to parse restart-round request: %v", err)
		return
	}
	if err := roomManager.RestartRound(req.RoomID, req.PlayerID); err != nil {
		replyError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

type actionReq struct {
	RoomID   string      `json:"roomId"`
	PlayerID string      `json:"playerId"`
	Action   game.Action `json:"action"`
}

func handleAction(c *gin.Context) {
	var req actionReq
	if err := c.BindJSON(&req); err != nil {
		restLogger.Error().Msgf("Failed to parse action request: %v", err)
		return
	}
	if err := roomManager.HandleAction(req.RoomID, req.PlayerID, req.Action); err != nil {
		replyError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func roomState(c *gin.Context) {
	roomID := c.Query("roomId")
	playerID := c.Query("playerId")
	snapshot, err := roomManager.GetState(roomID, playerID)
	if err != nil {
		replyError(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}
