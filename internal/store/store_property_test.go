package store

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/collab-workspace/backend/internal/model"
)

// Property: add_user is idempotent — adding the same user any number of
// times never duplicates the membership entry or changes the assigned role.
func TestAddUserIdempotenceProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	roleGen := gen.OneConstOf(model.RoleAdmin, model.RoleEditor, model.RoleViewer)

	properties.Property("repeated add_user never duplicates or reassigns", prop.ForAll(
		func(userID string, firstRole, secondRole model.Role, repeats int) bool {
			s := NewWorkspaceStore()
			ws, err := s.CreateWorkspace("W", "d", "owner1", false)
			if err != nil {
				return false
			}

			if !s.AddUser(ws.ID, userID, firstRole) {
				return false
			}

			for i := 0; i < repeats; i++ {
				if !s.AddUser(ws.ID, userID, secondRole) {
					return false
				}
			}

			role, ok := s.MemberRole(ws.ID, userID)
			if !ok || role != firstRole {
				return false
			}

			info, _ := s.GetWorkspaceInfo(ws.ID)
			return len(info.Members) == 2
		},
		gen.Identifier().SuchThat(func(s string) bool { return s != "owner1" }),
		roleGen,
		roleGen,
		gen.IntRange(1, 10),
	))

	properties.TestingRun(t)
}

// Property: a VIEWER can never mutate project data — the call returns false
// and the stored data stays byte-for-byte identical.
func TestViewerImmutabilityProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	patchGen := gen.MapOf(gen.Identifier(), gen.AlphaString())

	properties.Property("viewer updates always fail without mutation", prop.ForAll(
		func(seed, patch map[string]string) bool {
			s := NewWorkspaceStore()
			ws, err := s.CreateWorkspace("W", "d", "owner1", false)
			if err != nil {
				return false
			}
			s.AddUser(ws.ID, "viewer1", model.RoleViewer)

			if len(seed) > 0 {
				if !s.UpdateProjectData(ws.ID, "owner1", toPatch(seed)) {
					return false
				}
			}

			before, _ := s.GetWorkspaceInfo(ws.ID)
			beforeJSON, _ := json.Marshal(before.ProjectData)

			if s.UpdateProjectData(ws.ID, "viewer1", toPatch(patch)) {
				return false
			}

			after, _ := s.GetWorkspaceInfo(ws.ID)
			afterJSON, _ := json.Marshal(after.ProjectData)
			return string(beforeJSON) == string(afterJSON)
		},
		patchGen,
		patchGen,
	))

	properties.TestingRun(t)
}

// Property: an EDITOR merge applies every supplied key and never deletes an
// untouched existing key.
func TestEditorMergePreservesKeysProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	patchGen := gen.MapOf(gen.Identifier(), gen.AlphaString())

	properties.Property("shallow merge preserves untouched keys", prop.ForAll(
		func(seed, patch map[string]string) bool {
			s := NewWorkspaceStore()
			ws, err := s.CreateWorkspace("W", "d", "owner1", false)
			if err != nil {
				return false
			}
			s.AddUser(ws.ID, "editor1", model.RoleEditor)

			if len(seed) > 0 {
				if !s.UpdateProjectData(ws.ID, "owner1", toPatch(seed)) {
					return false
				}
			}
			if !s.UpdateProjectData(ws.ID, "editor1", toPatch(patch)) {
				return false
			}

			info, _ := s.GetWorkspaceInfo(ws.ID)

			// Every patched key holds the patched value
			for k, v := range patch {
				if info.ProjectData[k] != v {
					return false
				}
			}
			// Every seeded key not in the patch is untouched
			for k, v := range seed {
				if _, overwritten := patch[k]; overwritten {
					continue
				}
				if info.ProjectData[k] != v {
					return false
				}
			}
			return true
		},
		patchGen,
		patchGen,
	))

	properties.TestingRun(t)
}

// Property: the per-workspace history never exceeds its capacity and always
// holds the most recent messages in arrival order.
func TestHistoryBoundProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("history stays bounded and ordered", prop.ForAll(
		func(total int) bool {
			s := NewWorkspaceStore()
			ws, err := s.CreateWorkspace("W", "d", "owner1", false)
			if err != nil {
				return false
			}

			ids := make([]string, total)
			for i := 0; i < total; i++ {
				msg := &model.Message{
					ID:   fmt.Sprintf("msg-%d", i),
					Type: model.MessageTypeChatMessage,
				}
				ids[i] = msg.ID
				s.AppendHistory(ws.ID, msg)
				if s.History(ws.ID) == nil && total > 0 {
					return false
				}
			}

			history := s.History(ws.ID)
			want := total
			if want > HistoryCapacity {
				want = HistoryCapacity
			}
			if len(history) != want {
				return false
			}

			offset := total - want
			for i, msg := range history {
				if msg.ID != ids[offset+i] {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 250),
	))

	properties.TestingRun(t)
}

func toPatch(m map[string]string) map[string]any {
	patch := make(map[string]any, len(m))
	for k, v := range m {
		patch[k] = v
	}
	return patch
}
