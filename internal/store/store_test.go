package store

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/collab-workspace/backend/internal/model"
)

func TestCreateWorkspace(t *testing.T) {
	s := NewWorkspaceStore()

	ws, err := s.CreateWorkspace("Design Review", "weekly review board", "owner1", false)
	if err != nil {
		t.Fatalf("failed to create workspace: %v", err)
	}

	if ws.ID == "" {
		t.Error("expected a generated workspace id")
	}
	if ws.Name != "Design Review" {
		t.Errorf("expected name 'Design Review', got %q", ws.Name)
	}
	if ws.OwnerID != "owner1" {
		t.Errorf("expected owner 'owner1', got %q", ws.OwnerID)
	}

	// The users map contains exactly the owner with role OWNER
	if len(ws.Users) != 1 {
		t.Fatalf("expected exactly 1 member, got %d", len(ws.Users))
	}
	owner, ok := ws.Users["owner1"]
	if !ok {
		t.Fatal("owner is not a member of the new workspace")
	}
	if owner.Role != model.RoleOwner {
		t.Errorf("expected owner role OWNER, got %s", owner.Role)
	}

	if len(ws.ProjectData) != 0 {
		t.Errorf("expected empty project data, got %v", ws.ProjectData)
	}
	if got := s.History(ws.ID); len(got) != 0 {
		t.Errorf("expected empty history, got %d entries", len(got))
	}
}

func TestCreateWorkspace_Validation(t *testing.T) {
	s := NewWorkspaceStore()

	if _, err := s.CreateWorkspace("", "d", "owner1", false); err != model.ErrNameRequired {
		t.Errorf("expected ErrNameRequired, got %v", err)
	}
	if _, err := s.CreateWorkspace("W", "d", "", false); err != model.ErrOwnerRequired {
		t.Errorf("expected ErrOwnerRequired, got %v", err)
	}
}

func TestCreateWorkspace_UniqueIDs(t *testing.T) {
	s := NewWorkspaceStore()

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		ws, err := s.CreateWorkspace("W", "d", "owner1", false)
		if err != nil {
			t.Fatalf("failed to create workspace: %v", err)
		}
		if seen[ws.ID] {
			t.Fatalf("duplicate workspace id %s", ws.ID)
		}
		seen[ws.ID] = true
	}
}

func TestAddUser(t *testing.T) {
	s := NewWorkspaceStore()
	ws, _ := s.CreateWorkspace("W", "d", "owner1", false)

	if !s.AddUser(ws.ID, "u2", model.RoleEditor) {
		t.Fatal("expected add_user to succeed")
	}

	role, ok := s.MemberRole(ws.ID, "u2")
	if !ok {
		t.Fatal("u2 is not a member")
	}
	if role != model.RoleEditor {
		t.Errorf("expected role EDITOR, got %s", role)
	}

	// Unknown workspace
	if s.AddUser("no-such-workspace", "u2", model.RoleEditor) {
		t.Error("expected add_user to fail for unknown workspace")
	}
}

func TestAddUser_Idempotent(t *testing.T) {
	s := NewWorkspaceStore()
	ws, _ := s.CreateWorkspace("W", "d", "owner1", false)

	s.AddUser(ws.ID, "u2", model.RoleEditor)

	// A second add never duplicates the entry or changes the assigned role
	if !s.AddUser(ws.ID, "u2", model.RoleViewer) {
		t.Fatal("expected repeated add_user to succeed")
	}

	role, _ := s.MemberRole(ws.ID, "u2")
	if role != model.RoleEditor {
		t.Errorf("repeated add_user overwrote role: got %s", role)
	}

	info, _ := s.GetWorkspaceInfo(ws.ID)
	if len(info.Members) != 2 {
		t.Errorf("expected 2 members, got %d", len(info.Members))
	}

	// Re-adding the owner must not demote them
	s.AddUser(ws.ID, "owner1", model.RoleViewer)
	role, _ = s.MemberRole(ws.ID, "owner1")
	if role != model.RoleOwner {
		t.Errorf("re-adding the owner changed their role to %s", role)
	}
}

func TestRemoveUser(t *testing.T) {
	s := NewWorkspaceStore()
	ws, _ := s.CreateWorkspace("W", "d", "owner1", false)
	s.AddUser(ws.ID, "u2", model.RoleEditor)

	if !s.RemoveUser(ws.ID, "u2") {
		t.Fatal("expected remove_user to succeed")
	}
	if _, ok := s.MemberRole(ws.ID, "u2"); ok {
		t.Error("u2 still a member after removal")
	}

	if s.RemoveUser(ws.ID, "u2") {
		t.Error("expected removing a non-member to fail")
	}
	if s.RemoveUser("no-such-workspace", "u2") {
		t.Error("expected remove_user to fail for unknown workspace")
	}
}

func TestUpdateProjectData_EditorMerges(t *testing.T) {
	s := NewWorkspaceStore()
	ws, _ := s.CreateWorkspace("W", "d", "owner1", false)
	s.AddUser(ws.ID, "u2", model.RoleEditor)

	if !s.UpdateProjectData(ws.ID, "u2", map[string]any{"k": "v"}) {
		t.Fatal("expected editor update to succeed")
	}

	info, _ := s.GetWorkspaceInfo(ws.ID)
	if info.ProjectData["k"] != "v" {
		t.Errorf("expected project_data[k]=v, got %v", info.ProjectData)
	}

	// Shallow merge: untouched keys are preserved, colliding keys overwritten
	if !s.UpdateProjectData(ws.ID, "u2", map[string]any{"k": "v2", "other": 1}) {
		t.Fatal("expected second update to succeed")
	}
	info, _ = s.GetWorkspaceInfo(ws.ID)
	if info.ProjectData["k"] != "v2" {
		t.Errorf("expected overwritten key, got %v", info.ProjectData["k"])
	}
	if info.ProjectData["other"] != 1 {
		t.Errorf("expected new key to be merged, got %v", info.ProjectData["other"])
	}
}

func TestUpdateProjectData_ViewerDenied(t *testing.T) {
	s := NewWorkspaceStore()
	ws, _ := s.CreateWorkspace("W", "d", "owner1", false)
	s.AddUser(ws.ID, "u2", model.RoleEditor)
	s.AddUser(ws.ID, "u3", model.RoleViewer)
	s.UpdateProjectData(ws.ID, "u2", map[string]any{"k": "v"})

	before, _ := s.GetWorkspaceInfo(ws.ID)
	beforeJSON, _ := json.Marshal(before.ProjectData)

	if s.UpdateProjectData(ws.ID, "u3", map[string]any{"k": "x"}) {
		t.Fatal("expected viewer update to be denied")
	}

	after, _ := s.GetWorkspaceInfo(ws.ID)
	afterJSON, _ := json.Marshal(after.ProjectData)
	if string(beforeJSON) != string(afterJSON) {
		t.Errorf("viewer denial mutated project data: before=%s after=%s", beforeJSON, afterJSON)
	}
}

func TestUpdateProjectData_Failures(t *testing.T) {
	s := NewWorkspaceStore()
	ws, _ := s.CreateWorkspace("W", "d", "owner1", false)

	if s.UpdateProjectData("no-such-workspace", "owner1", map[string]any{"k": "v"}) {
		t.Error("expected failure for unknown workspace")
	}
	if s.UpdateProjectData(ws.ID, "stranger", map[string]any{"k": "v"}) {
		t.Error("expected failure for non-member")
	}

	info, _ := s.GetWorkspaceInfo(ws.ID)
	if len(info.ProjectData) != 0 {
		t.Errorf("failed updates mutated project data: %v", info.ProjectData)
	}
}

func TestUpdateProjectData_RoleMatrix(t *testing.T) {
	cases := []struct {
		role model.Role
		want bool
	}{
		{model.RoleOwner, true},
		{model.RoleAdmin, true},
		{model.RoleEditor, true},
		{model.RoleViewer, false},
	}

	for _, tc := range cases {
		s := NewWorkspaceStore()
		ws, _ := s.CreateWorkspace("W", "d", "owner1", false)
		s.AddUser(ws.ID, "u2", tc.role)

		got := s.UpdateProjectData(ws.ID, "u2", map[string]any{"k": "v"})
		if got != tc.want {
			t.Errorf("role %s: expected %v, got %v", tc.role, tc.want, got)
		}
	}
}

func TestGetWorkspaceInfo_SnapshotIsACopy(t *testing.T) {
	s := NewWorkspaceStore()
	ws, _ := s.CreateWorkspace("W", "d", "owner1", false)
	s.UpdateProjectData(ws.ID, "owner1", map[string]any{"k": "v"})

	info, _ := s.GetWorkspaceInfo(ws.ID)
	info.ProjectData["k"] = "tampered"

	fresh, _ := s.GetWorkspaceInfo(ws.ID)
	if fresh.ProjectData["k"] != "v" {
		t.Error("mutating a projection changed the stored workspace")
	}
}

func TestGetUserWorkspaces(t *testing.T) {
	s := NewWorkspaceStore()

	ws1, _ := s.CreateWorkspace("First", "d", "owner1", false)
	ws2, _ := s.CreateWorkspace("Second", "d", "owner2", false)
	s.CreateWorkspace("Third", "d", "owner3", false)
	s.AddUser(ws2.ID, "owner1", model.RoleEditor)

	infos := s.GetUserWorkspaces("owner1")
	if len(infos) != 2 {
		t.Fatalf("expected 2 workspaces for owner1, got %d", len(infos))
	}
	if infos[0].ID != ws1.ID || infos[1].ID != ws2.ID {
		t.Errorf("expected creation order [%s %s], got [%s %s]", ws1.ID, ws2.ID, infos[0].ID, infos[1].ID)
	}

	if got := s.GetUserWorkspaces("nobody"); len(got) != 0 {
		t.Errorf("expected no workspaces for unknown user, got %d", len(got))
	}
}

func TestUpdateCursorAndTouchUser(t *testing.T) {
	s := NewWorkspaceStore()
	ws, _ := s.CreateWorkspace("W", "d", "owner1", false)
	s.AddUser(ws.ID, "u2", model.RoleViewer)

	if !s.UpdateCursor(ws.ID, "u2", map[string]any{"x": 10, "y": 4}) {
		t.Error("expected cursor update for a member to succeed")
	}
	if s.UpdateCursor(ws.ID, "stranger", map[string]any{"x": 1}) {
		t.Error("expected cursor update for a non-member to be skipped")
	}

	if !s.TouchUser(ws.ID, "u2") {
		t.Error("expected touch for a member to succeed")
	}
	if s.TouchUser("no-such-workspace", "u2") {
		t.Error("expected touch for unknown workspace to fail")
	}
}

func TestAppendHistory_Bound(t *testing.T) {
	s := NewWorkspaceStore()
	ws, _ := s.CreateWorkspace("W", "d", "owner1", false)

	for i := 0; i < HistoryCapacity+1; i++ {
		ok := s.AppendHistory(ws.ID, &model.Message{
			ID:   fmt.Sprintf("msg-%d", i),
			Type: model.MessageTypeChatMessage,
		})
		if !ok {
			t.Fatalf("append %d failed", i)
		}
	}

	history := s.History(ws.ID)
	if len(history) != HistoryCapacity {
		t.Fatalf("expected history length %d, got %d", HistoryCapacity, len(history))
	}

	// After the 101st broadcast the oldest entry is evicted and the
	// remaining 100 retain their relative order
	if history[0].ID != "msg-1" {
		t.Errorf("expected oldest entry msg-1, got %s", history[0].ID)
	}
	if history[len(history)-1].ID != fmt.Sprintf("msg-%d", HistoryCapacity) {
		t.Errorf("unexpected newest entry %s", history[len(history)-1].ID)
	}

	if s.AppendHistory("no-such-workspace", &model.Message{ID: "x"}) {
		t.Error("expected append to fail for unknown workspace")
	}
}

func TestScenario_EditorThenViewer(t *testing.T) {
	s := NewWorkspaceStore()

	ws, err := s.CreateWorkspace("W", "d", "owner1", false)
	if err != nil {
		t.Fatalf("failed to create workspace: %v", err)
	}

	if !s.AddUser(ws.ID, "u2", model.RoleEditor) {
		t.Fatal("failed to add u2")
	}
	if !s.UpdateProjectData(ws.ID, "u2", map[string]any{"k": "v"}) {
		t.Fatal("expected u2 (EDITOR) update to return true")
	}
	info, _ := s.GetWorkspaceInfo(ws.ID)
	if info.ProjectData["k"] != "v" {
		t.Fatalf("expected project_data {k:v}, got %v", info.ProjectData)
	}

	if !s.AddUser(ws.ID, "u3", model.RoleViewer) {
		t.Fatal("failed to add u3")
	}
	if s.UpdateProjectData(ws.ID, "u3", map[string]any{"k": "x"}) {
		t.Fatal("expected u3 (VIEWER) update to return false")
	}
	info, _ = s.GetWorkspaceInfo(ws.ID)
	if info.ProjectData["k"] != "v" {
		t.Errorf("viewer update changed project data: %v", info.ProjectData)
	}
}
