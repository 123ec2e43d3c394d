package model

import (
	"time"
)

// Role represents a user's permission tier within a workspace.
type Role string

const (
	RoleOwner  Role = "OWNER"
	RoleAdmin  Role = "ADMIN"
	RoleEditor Role = "EDITOR"
	RoleViewer Role = "VIEWER"
)

// CanEditProject reports whether the role is allowed to mutate project data.
// Every tier except VIEWER has write access.
func CanEditProject(role Role) bool {
	switch role {
	case RoleOwner, RoleAdmin, RoleEditor:
		return true
	default:
		return false
	}
}

// ParseRole converts a wire string into a Role. Unknown or empty input
// defaults to VIEWER.
func ParseRole(s string) Role {
	switch Role(s) {
	case RoleOwner, RoleAdmin, RoleEditor, RoleViewer:
		return Role(s)
	default:
		return RoleViewer
	}
}

// User is a workspace-scoped membership record. Membership is distinct from
// live connection presence: a User stays in the workspace after its
// connections close and is only removed by an explicit removal call.
type User struct {
	ID             string         `json:"id"`
	Username       string         `json:"username"`
	Role           Role           `json:"role"`
	JoinedAt       time.Time      `json:"joined_at"`
	LastActive     time.Time      `json:"last_active"`
	CursorPosition map[string]any `json:"cursor_position,omitempty"`
	AvatarURL      string         `json:"avatar_url,omitempty"`
}

// MemberSummary is the member projection carried in the join-time replay
// frame and in workspace info responses.
type MemberSummary struct {
	ID       string    `json:"id"`
	Username string    `json:"username"`
	Role     Role      `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}

// Summary returns the replay-frame projection of the user.
func (u *User) Summary() MemberSummary {
	return MemberSummary{
		ID:       u.ID,
		Username: u.Username,
		Role:     u.Role,
		JoinedAt: u.JoinedAt,
	}
}

// Workspace is a named collaborative context grouping members and shared
// project state. Workspaces live for the duration of the process.
type Workspace struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	OwnerID     string           `json:"owner_id"`
	Users       map[string]*User `json:"users"`
	ProjectData map[string]any   `json:"project_data"`
	Settings    map[string]any   `json:"settings"`
	IsPublic    bool             `json:"is_public"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// CreateWorkspaceRequest represents a request to create a new workspace.
type CreateWorkspaceRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	OwnerID     string `json:"owner_id"`
	IsPublic    bool   `json:"is_public"`
}

// Validate validates the create workspace request.
func (r *CreateWorkspaceRequest) Validate() error {
	if r.Name == "" {
		return ErrNameRequired
	}
	if r.OwnerID == "" {
		return ErrOwnerRequired
	}
	return nil
}
