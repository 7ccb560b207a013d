package realtime

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"campusnest/market/internal/auth"
	"campusnest/market/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// ServeWS upgrades an authenticated request to a websocket bound to h.
// The token travels in the "token" query parameter since browsers cannot set headers on upgrade.
func ServeWS(h *Hub, jwtSecret, allowedOrigin string) gin.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return allowedOrigin == "*" || origin == "" || origin == allowedOrigin
		},
	}

	return func(c *gin.Context) {
		claims, err := auth.ValidateJWT(c.Query("token"), jwtSecret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or missing token"})
			return
		}

		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			slog.Warn("websocket upgrade failed", "error", err)
			return
		}

		cn := newConn(claims.UserID)
		slog.Info("socket connected", "user_id", claims.UserID, "role", claims.Role)

		go writePump(ws, cn)
		readPump(ws, h, cn, claims)

		h.leave(cn)
		close(cn.send)
		slog.Info("socket disconnected", "user_id", claims.UserID)
	}
}

func readPump(ws *websocket.Conn, h *Hub, cn *conn, claims *auth.Claims) {
	ws.SetReadLimit(maxMessageSize)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg Message
		if err := ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("socket read error", "user_id", cn.userID, "error", err)
			}
			return
		}

		switch msg.Event {
		case EventJoinRoom:
			var data JoinRoomData
			if err := json.Unmarshal(msg.Data, &data); err != nil {
				reply(cn, EventError, gin.H{"message": "invalid join_room payload"})
				continue
			}
			// only the caller's own room may be joined
			if data.UserID != claims.UserID || models.Role(data.Role) != claims.Role {
				slog.Warn("rejected join_room for foreign room", "user_id", claims.UserID, "requested", data.UserID)
				reply(cn, EventError, gin.H{"message": "cannot join another user's room"})
				continue
			}
			room := claims.Role.Room(claims.UserID)
			h.join(cn, room)
			reply(cn, EventRoomJoined, gin.H{"room": room})
		default:
			slog.Debug("ignoring client event", "event", msg.Event, "user_id", cn.userID)
		}
	}
}

// reply writes directly to one connection's queue.
func reply(cn *conn, event string, payload any) {
	frame, err := encode(event, payload)
	if err != nil {
		return
	}
	select {
	case cn.send <- frame:
	default:
	}
}

func writePump(ws *websocket.Conn, cn *conn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		ws.Close()
	}()

	for {
		select {
		case frame, ok := <-cn.send:
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
