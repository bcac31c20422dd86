package chat

import (
	"errors"
	"net/http"
	"time"

	"github.com/ageniuscoder/mmchat/gateway/internal/auth"
	"github.com/ageniuscoder/mmchat/gateway/internal/config"
	"github.com/ageniuscoder/mmchat/gateway/internal/logger"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Allow CORS for demo; tighten in prod.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// RegisterWS mounts GET /ws. The credential is read from ?token=<JWT> or an
// Authorization: Bearer <JWT> header. The socket is upgraded before the token
// is checked so a rejection can be reported as an error frame.
func RegisterWS(rg *gin.RouterGroup, hub *Hub, resolver *auth.Resolver, limits config.LimitsConfig, log logger.ILogger) {
	rg.GET("/ws", func(c *gin.Context) {
		token := auth.TokenFromRequest(c.Request)

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Warn("WS", "upgrade failed", map[string]interface{}{"error": err.Error()})
			return
		}

		var limiter *rate.Limiter
		if limits.EventRate > 0 {
			limiter = rate.NewLimiter(rate.Limit(limits.EventRate), limits.EventBurst)
		}
		client := NewClient(hub, conn, limiter)

		id, err := resolver.Resolve(token)
		if err != nil {
			msg := "invalid token"
			if errors.Is(err, auth.ErrMissingCredential) {
				msg = "missing token"
			}
			log.Info("WS", "handshake rejected", map[string]interface{}{
				"conn_id": client.ID, "remote": c.ClientIP(), "reason": err.Error(),
			})
			reject(conn, msg)
			client.setState(StateDisconnected)
			return
		}
		client.Authenticate(id)

		if !hub.Attach(client) {
			reject(conn, "server shutting down")
			return
		}

		go client.writePump()
		go client.readPump()
	})
}

// reject sends one error frame and a policy-violation close, then drops the socket.
func reject(conn *websocket.Conn, message string) {
	deadline := time.Now().Add(writeWait)
	conn.SetWriteDeadline(deadline)
	if frame, err := encodeFrame(EventError, errorPayload{Message: message}); err == nil {
		conn.WriteMessage(websocket.TextMessage, frame)
	}
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, message), deadline)
	conn.Close()
}
