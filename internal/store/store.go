// Package store owns the in-memory workspace state and every
// invariant-preserving mutation on it.
package store

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/collab-workspace/backend/internal/buffer"
	"github.com/collab-workspace/backend/internal/model"
)

// HistoryCapacity is the maximum number of broadcast messages retained per
// workspace. The oldest entry is evicted first once the cap is exceeded.
const HistoryCapacity = 100

// workspaceState bundles a workspace with its bounded broadcast history.
type workspaceState struct {
	workspace *model.Workspace
	history   *buffer.History
}

// WorkspaceStore is the single ownership boundary for workspace, membership,
// and history state. All reads and writes are serialized through one RWMutex
// so concurrent mutations never interleave their read-modify-write steps.
//
// The store is constructed once at process start and passed explicitly to
// connection handlers; there is no ambient global instance.
type WorkspaceStore struct {
	mu         sync.RWMutex
	workspaces map[string]*workspaceState
}

// NewWorkspaceStore creates an empty WorkspaceStore.
func NewWorkspaceStore() *WorkspaceStore {
	return &WorkspaceStore{
		workspaces: make(map[string]*workspaceState),
	}
}

// CreateWorkspace allocates a fresh workspace with a unique id, an empty
// project-data map, an empty bounded history, and the owner registered as its
// first member with role OWNER.
func (s *WorkspaceStore) CreateWorkspace(name, description, ownerID string, isPublic bool) (*model.Workspace, error) {
	if name == "" {
		return nil, model.ErrNameRequired
	}
	if ownerID == "" {
		return nil, model.ErrOwnerRequired
	}

	now := time.Now().UTC()
	ws := &model.Workspace{
		ID:          uuid.New().String(),
		Name:        name,
		Description: description,
		OwnerID:     ownerID,
		Users:       make(map[string]*model.User),
		ProjectData: make(map[string]any),
		Settings:    make(map[string]any),
		IsPublic:    isPublic,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	ws.Users[ownerID] = &model.User{
		ID:         ownerID,
		Username:   ownerID,
		Role:       model.RoleOwner,
		JoinedAt:   now,
		LastActive: now,
	}

	s.mu.Lock()
	s.workspaces[ws.ID] = &workspaceState{
		workspace: ws,
		history:   buffer.NewHistory(HistoryCapacity),
	}
	s.mu.Unlock()

	return ws, nil
}

// AddUser registers a user as a member of the workspace. It is idempotent:
// if the user is already a member, the existing record (including its role)
// is left untouched. Returns false if the workspace is unknown.
func (s *WorkspaceStore) AddUser(workspaceID, userID string, role model.Role) bool {
	if userID == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.workspaces[workspaceID]
	if !ok {
		return false
	}

	if _, exists := state.workspace.Users[userID]; !exists {
		now := time.Now().UTC()
		state.workspace.Users[userID] = &model.User{
			ID:         userID,
			Username:   userID,
			Role:       role,
			JoinedAt:   now,
			LastActive: now,
		}
	}
	state.workspace.UpdatedAt = time.Now().UTC()

	return true
}

// RemoveUser deletes a user's membership record. This is the only path that
// removes membership; closing a connection never does.
func (s *WorkspaceStore) RemoveUser(workspaceID, userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.workspaces[workspaceID]
	if !ok {
		return false
	}

	if _, exists := state.workspace.Users[userID]; !exists {
		return false
	}

	delete(state.workspace.Users, userID)
	state.workspace.UpdatedAt = time.Now().UTC()
	return true
}

// UpdateProjectData shallow-merges the patch into the workspace project data.
// It fails without mutating anything when the workspace is unknown, the user
// is not a member, or the user's role is VIEWER.
func (s *WorkspaceStore) UpdateProjectData(workspaceID, userID string, patch map[string]any) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.workspaces[workspaceID]
	if !ok {
		return false
	}

	user, ok := state.workspace.Users[userID]
	if !ok {
		return false
	}
	if !model.CanEditProject(user.Role) {
		return false
	}

	for k, v := range patch {
		state.workspace.ProjectData[k] = v
	}

	now := time.Now().UTC()
	state.workspace.UpdatedAt = now
	user.LastActive = now
	return true
}

// UpdateCursor opportunistically records a member's ephemeral cursor
// position. Unknown workspaces or non-members are skipped silently.
func (s *WorkspaceStore) UpdateCursor(workspaceID, userID string, pos map[string]any) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.workspaces[workspaceID]
	if !ok {
		return false
	}

	user, ok := state.workspace.Users[userID]
	if !ok {
		return false
	}

	user.CursorPosition = pos
	user.LastActive = time.Now().UTC()
	return true
}

// TouchUser updates a member's lastActive timestamp. Used by HEARTBEAT.
func (s *WorkspaceStore) TouchUser(workspaceID, userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.workspaces[workspaceID]
	if !ok {
		return false
	}

	user, ok := state.workspace.Users[userID]
	if !ok {
		return false
	}

	user.LastActive = time.Now().UTC()
	return true
}

// WorkspaceInfo is a read-only projection of a workspace for dashboards and
// the management API. It carries copies, never live references.
type WorkspaceInfo struct {
	ID          string                `json:"id"`
	Name        string                `json:"name"`
	Description string                `json:"description"`
	OwnerID     string                `json:"owner_id"`
	Members     []model.MemberSummary `json:"members"`
	ProjectData map[string]any        `json:"project_data"`
	Settings    map[string]any        `json:"settings"`
	IsPublic    bool                  `json:"is_public"`
	HistoryLen  int                   `json:"history_len"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

// GetWorkspaceInfo returns a consistent projection of the workspace. The
// snapshot is built under the store lock so it never observes a partially
// applied mutation.
func (s *WorkspaceStore) GetWorkspaceInfo(workspaceID string) (*WorkspaceInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.workspaces[workspaceID]
	if !ok {
		return nil, false
	}

	return s.infoLocked(state), true
}

// GetUserWorkspaces returns projections of every workspace the user is a
// member of, ordered by creation time.
func (s *WorkspaceStore) GetUserWorkspaces(userID string) []*WorkspaceInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var infos []*WorkspaceInfo
	for _, state := range s.workspaces {
		if _, ok := state.workspace.Users[userID]; ok {
			infos = append(infos, s.infoLocked(state))
		}
	}

	sort.Slice(infos, func(i, j int) bool {
		if infos[i].CreatedAt.Equal(infos[j].CreatedAt) {
			return infos[i].ID < infos[j].ID
		}
		return infos[i].CreatedAt.Before(infos[j].CreatedAt)
	})
	return infos
}

// Members returns the member summaries of a workspace, sorted by join time.
func (s *WorkspaceStore) Members(workspaceID string) []model.MemberSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.workspaces[workspaceID]
	if !ok {
		return nil
	}
	return membersLocked(state.workspace)
}

// ProjectData returns a copy of the workspace project data.
func (s *WorkspaceStore) ProjectData(workspaceID string) map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.workspaces[workspaceID]
	if !ok {
		return nil
	}
	return copyMap(state.workspace.ProjectData)
}

// MemberRole returns the role of a workspace member.
func (s *WorkspaceStore) MemberRole(workspaceID, userID string) (model.Role, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.workspaces[workspaceID]
	if !ok {
		return "", false
	}
	user, ok := state.workspace.Users[userID]
	if !ok {
		return "", false
	}
	return user.Role, true
}

// AppendHistory appends a broadcast message to the workspace's bounded
// history. Returns false if the workspace is unknown.
func (s *WorkspaceStore) AppendHistory(workspaceID string, msg *model.Message) bool {
	s.mu.RLock()
	state, ok := s.workspaces[workspaceID]
	s.mu.RUnlock()

	if !ok {
		return false
	}

	// History has its own lock; appends stay FIFO because the broadcast
	// engine serializes emission.
	state.history.Append(msg)
	return true
}

// History returns a snapshot of the workspace's broadcast history in
// insertion order.
func (s *WorkspaceStore) History(workspaceID string) []*model.Message {
	s.mu.RLock()
	state, ok := s.workspaces[workspaceID]
	s.mu.RUnlock()

	if !ok {
		return nil
	}
	return state.history.Snapshot()
}

// infoLocked builds a WorkspaceInfo projection. Caller must hold s.mu.
func (s *WorkspaceStore) infoLocked(state *workspaceState) *WorkspaceInfo {
	ws := state.workspace
	return &WorkspaceInfo{
		ID:          ws.ID,
		Name:        ws.Name,
		Description: ws.Description,
		OwnerID:     ws.OwnerID,
		Members:     membersLocked(ws),
		ProjectData: copyMap(ws.ProjectData),
		Settings:    copyMap(ws.Settings),
		IsPublic:    ws.IsPublic,
		HistoryLen:  state.history.Len(),
		CreatedAt:   ws.CreatedAt,
		UpdatedAt:   ws.UpdatedAt,
	}
}

func membersLocked(ws *model.Workspace) []model.MemberSummary {
	members := make([]model.MemberSummary, 0, len(ws.Users))
	for _, u := range ws.Users {
		members = append(members, u.Summary())
	}
	sort.Slice(members, func(i, j int) bool {
		if members[i].JoinedAt.Equal(members[j].JoinedAt) {
			return members[i].ID < members[j].ID
		}
		return members[i].JoinedAt.Before(members[j].JoinedAt)
	})
	return members
}

func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
