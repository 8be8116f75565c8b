package handlers

import (
	"github.com/gin-gonic/gin"
	gorilla "github.com/gorilla/websocket"
	"github.com/move-league/move-league-backend/internal/api/middleware"
	"github.com/move-league/move-league-backend/internal/websocket"
)

// WebSocketHandler streams the caller's notifications.
type WebSocketHandler struct {
	hub      *websocket.Hub
	upgrader *gorilla.Upgrader
}

func NewWebSocketHandler(hub *websocket.Hub, allowedOrigins []string) *WebSocketHandler {
	return &WebSocketHandler{
		hub:      hub,
		upgrader: websocket.NewUpgrader(allowedOrigins),
	}
}

// HandleWebSocket GET /ws
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	websocket.ServeWs(h.hub, h.upgrader, c.Writer, c.Request, middleware.UserID(c))
}
