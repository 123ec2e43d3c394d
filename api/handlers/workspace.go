// Package handlers provides HTTP API request handlers.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/collab-workspace/backend/internal/model"
	"github.com/collab-workspace/backend/internal/store"
	"github.com/collab-workspace/backend/internal/ws"
)

// WorkspaceHandler handles HTTP requests for workspace management.
type WorkspaceHandler struct {
	store    *store.WorkspaceStore
	registry *ws.HubManager
}

// NewWorkspaceHandler creates a new WorkspaceHandler.
func NewWorkspaceHandler(workspaceStore *store.WorkspaceStore, registry *ws.HubManager) *WorkspaceHandler {
	return &WorkspaceHandler{
		store:    workspaceStore,
		registry: registry,
	}
}

// AddMemberRequest represents the request body for adding a workspace member.
type AddMemberRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Role   string `json:"role"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error details.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// sendError sends an error response with the appropriate status code.
func sendError(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// getUserID extracts the user ID from the request context.
// In a real deployment this comes from authentication middleware.
func getUserID(c *gin.Context) string {
	if userID, exists := c.Get("userID"); exists {
		if id, ok := userID.(string); ok {
			return id
		}
	}
	return "default-user"
}

// Create handles POST /api/workspaces - creates a new workspace.
func (h *WorkspaceHandler) Create(c *gin.Context) {
	var req model.CreateWorkspaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body: "+err.Error())
		return
	}

	if req.OwnerID == "" {
		req.OwnerID = getUserID(c)
	}

	workspace, err := h.store.CreateWorkspace(req.Name, req.Description, req.OwnerID, req.IsPublic)
	if err != nil {
		if errors.Is(err, model.ErrNameRequired) || errors.Is(err, model.ErrOwnerRequired) {
			sendError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
			return
		}
		sendError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create workspace: "+err.Error())
		return
	}

	c.JSON(http.StatusCreated, workspace)
}

// Get handles GET /api/workspaces/:id - returns a workspace projection.
func (h *WorkspaceHandler) Get(c *gin.Context) {
	workspaceID := c.Param("id")

	info, ok := h.store.GetWorkspaceInfo(workspaceID)
	if !ok {
		sendError(c, http.StatusNotFound, "WORKSPACE_NOT_FOUND", "Workspace "+workspaceID+" not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"workspace":          info,
		"active_connections": h.registry.ConnectionCount(workspaceID),
	})
}

// History handles GET /api/workspaces/:id/history - returns the bounded
// broadcast history in arrival order.
func (h *WorkspaceHandler) History(c *gin.Context) {
	workspaceID := c.Param("id")

	if _, ok := h.store.GetWorkspaceInfo(workspaceID); !ok {
		sendError(c, http.StatusNotFound, "WORKSPACE_NOT_FOUND", "Workspace "+workspaceID+" not found")
		return
	}

	history := h.store.History(workspaceID)
	if history == nil {
		history = []*model.Message{}
	}
	c.JSON(http.StatusOK, gin.H{"messages": history})
}

// AddMember handles POST /api/workspaces/:id/users - adds a workspace member.
func (h *WorkspaceHandler) AddMember(c *gin.Context) {
	workspaceID := c.Param("id")

	var req AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body: "+err.Error())
		return
	}

	if !h.store.AddUser(workspaceID, req.UserID, model.ParseRole(req.Role)) {
		sendError(c, http.StatusNotFound, "WORKSPACE_NOT_FOUND", "Workspace "+workspaceID+" not found")
		return
	}

	c.Status(http.StatusNoContent)
}

// RemoveMember handles DELETE /api/workspaces/:id/users/:userId - removes a
// membership record. Live connections are unaffected.
func (h *WorkspaceHandler) RemoveMember(c *gin.Context) {
	workspaceID := c.Param("id")
	userID := c.Param("userId")

	if !h.store.RemoveUser(workspaceID, userID) {
		sendError(c, http.StatusNotFound, "MEMBER_NOT_FOUND", "No member "+userID+" in workspace "+workspaceID)
		return
	}

	c.Status(http.StatusNoContent)
}

// ListForUser handles GET /api/users/:id/workspaces - lists the workspaces a
// user is a member of.
func (h *WorkspaceHandler) ListForUser(c *gin.Context) {
	userID := c.Param("id")

	infos := h.store.GetUserWorkspaces(userID)
	if infos == nil {
		infos = []*store.WorkspaceInfo{}
	}
	c.JSON(http.StatusOK, gin.H{"workspaces": infos})
}

// RegisterRoutes registers the workspace handler routes on a Gin router group.
func (h *WorkspaceHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/workspaces", h.Create)
	rg.GET("/workspaces/:id", h.Get)
	rg.GET("/workspaces/:id/history", h.History)
	rg.POST("/workspaces/:id/users", h.AddMember)
	rg.DELETE("/workspaces/:id/users/:userId", h.RemoveMember)
	rg.GET("/users/:id/workspaces", h.ListForUser)
}
