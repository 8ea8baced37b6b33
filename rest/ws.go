package rest

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"nhooyr.io/websocket"
)

// attachWebsocket streams one room's broadcasts, plus the caller's private
// messages, over a websocket. Attaching marks the player connected;
// dropping the socket marks them disconnected, which forces their pending
// decision in a live round.
func attachWebsocket(c *gin.Context) {
	roomID := c.Query("roomId")
	playerID := c.Query("playerId")
	if roomID == "" || playerID == "" {
		c.Status(http.StatusBadRequest)
		return
	}

	conn, err := websocket.Accept(c.Writer, c.Request, nil)
	if err != nil {
		restLogger.Error().Msgf("Failed to accept websocket for %s/%s: %v", roomID, playerID, err)
		return
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	send := func(data []byte) {
		if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
			cancel()
		}
	}
	unsubRoom, err := subscriber.SubscribeRoom(roomID, send)
	if err != nil {
		conn.Close(websocket.StatusInternalError, "subscribe failed")
		return
	}
	defer unsubRoom()
	unsubPlayer, err := subscriber.SubscribePlayer(roomID, playerID, send)
	if err != nil {
		conn.Close(websocket.StatusInternalError, "subscribe failed")
		return
	}
	defer unsubPlayer()

	if err := roomManager.SetConnectionStatus(roomID, playerID, true); err != nil {
		conn.Close(websocket.StatusPolicyViolation, err.Error())
		return
	}
	defer func() {
		if err := roomManager.SetConnectionStatus(roomID, playerID, false); err != nil {
			restLogger.Debug().Msgf("Disconnect for %s/%s: %v", roomID, playerID, err)
		}
	}()

	// drain the read side; clients act over REST, the socket is downstream
	// only, so the first read error is the disconnect signal
	for {
		if _, _, err := conn.Read(ctx); err != nil {
			conn.Close(websocket.StatusNormalClosure, "")
			return
		}
	}
}
