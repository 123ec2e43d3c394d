package ws

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/collab-workspace/backend/internal/model"
	"github.com/collab-workspace/backend/internal/store"
	"github.com/collab-workspace/backend/pkg/assist"
)

// systemSender identifies server-originated frames in the envelope.
const systemSender = "system"

// Router interprets inbound frames and decides the store mutation and
// outbound frame(s) per message type. Each frame is handled independently: a
// malformed or failing frame never aborts processing of subsequent frames on
// the same or other connections.
type Router struct {
	store     *store.WorkspaceStore
	engine    *Engine
	responder assist.Responder
}

// NewRouter creates a new message router.
func NewRouter(workspaceStore *store.WorkspaceStore, engine *Engine, responder assist.Responder) *Router {
	if responder == nil {
		responder = assist.NewEchoResponder()
	}
	return &Router{
		store:     workspaceStore,
		engine:    engine,
		responder: responder,
	}
}

// HandleFrame dispatches one inbound frame from a client. A panic raised
// while handling the frame is recovered, logged, and converted into an ERROR
// unicast to the sender; the connection stays open.
func (r *Router) HandleFrame(client *Client, frame *Inbound) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("Recovered from handler fault for user %s: %v", client.UserID(), rec)
			r.sendError(client, fmt.Sprintf("internal error handling %s message", frame.Type), frame)
		}
	}()

	data, err := decodePayload(frame.Data)
	if err != nil {
		r.sendError(client, "malformed payload: "+err.Error(), frame)
		return
	}

	workspaceID := client.WorkspaceID()
	userID := client.UserID()

	switch frame.Type {
	case model.MessageTypeProjectUpdate:
		// Silent authorization denial: a rejected update emits nothing.
		if r.store.UpdateProjectData(workspaceID, userID, data) {
			r.engine.Broadcast(workspaceID, model.MessageTypeProjectUpdate, userID, data, nil)
		}

	case model.MessageTypeCursorUpdate:
		// Ephemeral presence data is relayed regardless of role. The store
		// update is opportunistic and skipped silently for unknown users.
		r.store.UpdateCursor(workspaceID, userID, data)
		r.engine.Broadcast(workspaceID, model.MessageTypeCursorUpdate, userID, data, nil)

	case model.MessageTypeChatMessage:
		r.engine.Broadcast(workspaceID, model.MessageTypeChatMessage, userID, data, nil)

	case model.MessageTypeAIRequest:
		response := r.responder.Respond(workspaceID, userID, data)
		r.engine.Broadcast(workspaceID, model.MessageTypeAIResponse, systemSender, response, nil)

	case model.MessageTypeHeartbeat:
		r.store.TouchUser(workspaceID, userID)

	default:
		r.sendError(client, fmt.Sprintf("unknown message type: %q", frame.Type), frame)
	}
}

// sendError unicasts an ERROR frame to the offending sender only, carrying
// the error text and the original message.
func (r *Router) sendError(client *Client, text string, frame *Inbound) {
	r.engine.Unicast(client, model.MessageTypeError, systemSender, map[string]any{
		"error":    text,
		"original": originalFrame(frame),
	}, nil)
}

// originalFrame rebuilds the inbound frame for inclusion in an ERROR payload.
func originalFrame(frame *Inbound) map[string]any {
	var data any
	if len(frame.Data) > 0 {
		if err := json.Unmarshal(frame.Data, &data); err != nil {
			data = string(frame.Data)
		}
	}
	return map[string]any{
		"type": string(frame.Type),
		"data": data,
	}
}

// decodePayload parses the raw frame payload into an object. An absent
// payload decodes to an empty object; anything other than a JSON object is
// rejected.
func decodePayload(raw json.RawMessage) (map[string]any, error) {
	if len(raw) == 0 {
		return map[string]any{}, nil
	}

	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("expected an object: %w", err)
	}
	if data == nil {
		data = map[string]any{}
	}
	return data, nil
}
