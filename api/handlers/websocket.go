package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/collab-workspace/backend/internal/ws"
)

// WebSocketHandler handles WebSocket attach requests for workspaces.
type WebSocketHandler struct {
	wsHandler *ws.Handler
}

// NewWebSocketHandler creates a new WebSocketHandler.
func NewWebSocketHandler(wsHandler *ws.Handler) *WebSocketHandler {
	return &WebSocketHandler{
		wsHandler: wsHandler,
	}
}

// Attach handles GET /api/ws/:userId/:workspaceId - joins a workspace over
// WebSocket. The handshake path carries the {userId}/{workspaceId} pair; an
// upstream authentication layer is trusted to have vetted the user id.
func (h *WebSocketHandler) Attach(c *gin.Context) {
	userID := c.Param("userId")
	workspaceID := c.Param("workspaceId")

	// Identity validation happens after the upgrade so the peer receives a
	// policy close code instead of a plain HTTP error.
	if err := h.wsHandler.HandleConnection(c.Writer, c.Request, userID, workspaceID); err != nil {
		// Upgrade failure already produced an HTTP response.
		return
	}
}

// RegisterRoutes registers the WebSocket handler routes on a Gin router group.
func (h *WebSocketHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/ws/:userId/:workspaceId", h.Attach)
}
