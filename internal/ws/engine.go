package ws

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/collab-workspace/backend/internal/logger"
	"github.com/collab-workspace/backend/internal/model"
	"github.com/collab-workspace/backend/internal/store"
)

// Inbound is the client -> server wire frame. The payload is kept raw so a
// malformed body surfaces per-message instead of failing the whole frame.
type Inbound struct {
	Type model.MessageType `json:"type"`
	Data json.RawMessage   `json:"data"`
}

// Engine fans broadcast messages out to every live connection of a
// workspace. Delivery is fire-and-forget: there is no acknowledgement, retry,
// or redelivery queue. A peer that is offline when a broadcast occurs never
// receives that frame; dead connections are discovered lazily on a failed
// send and pruned from the live set.
//
// Envelope construction, the history append, and the fan-out happen under one
// mutex, so every receiving peer observes broadcasts in the single order the
// engine emitted them.
type Engine struct {
	store    *store.WorkspaceStore
	registry *HubManager

	mu       sync.Mutex
	eventLog *logger.EventLog
}

// NewEngine creates a broadcast engine over the given store and registry.
func NewEngine(workspaceStore *store.WorkspaceStore, registry *HubManager) *Engine {
	return &Engine{
		store:    workspaceStore,
		registry: registry,
	}
}

// SetEventLog attaches an optional JSON-lines recorder for broadcast
// envelopes.
func (e *Engine) SetEventLog(l *logger.EventLog) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.eventLog = l
}

// Broadcast builds the wire envelope, appends it to the workspace's bounded
// history, and delivers it independently to every live connection of the
// workspace. A delivery failure on one connection is logged and that
// connection is removed from the live set; the remaining connections still
// receive the message. Returns the emitted envelope.
func (e *Engine) Broadcast(workspaceID string, msgType model.MessageType, senderID string, data, metadata map[string]any) *model.Message {
	msg := newEnvelope(workspaceID, msgType, senderID, data, metadata)

	payload, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Failed to marshal %s broadcast for workspace %s: %v", msgType, workspaceID, err)
		return msg
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.store.AppendHistory(workspaceID, msg)

	if e.eventLog != nil {
		if err := e.eventLog.Record(msg); err != nil {
			log.Printf("Failed to record broadcast event: %v", err)
		}
	}

	hub := e.registry.Get(workspaceID)
	if hub == nil {
		return msg
	}

	for _, client := range hub.Clients() {
		if !client.TrySend(payload) {
			log.Printf("Dropping dead connection for user %s in workspace %s", client.UserID(), workspaceID)
			e.registry.Unregister(client)
		}
	}

	return msg
}

// Unicast builds a wire envelope and delivers it to a single connection
// only. Unicast frames are not recorded in the workspace history.
func (e *Engine) Unicast(client *Client, msgType model.MessageType, senderID string, data, metadata map[string]any) *model.Message {
	msg := newEnvelope(client.WorkspaceID(), msgType, senderID, data, metadata)

	payload, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Failed to marshal %s unicast: %v", msgType, err)
		return msg
	}

	if !client.TrySend(payload) {
		log.Printf("Dropping dead connection for user %s in workspace %s", client.UserID(), client.WorkspaceID())
		e.registry.Unregister(client)
	}

	return msg
}

// newEnvelope builds the canonical outbound wire envelope.
func newEnvelope(workspaceID string, msgType model.MessageType, senderID string, data, metadata map[string]any) *model.Message {
	if data == nil {
		data = map[string]any{}
	}
	if metadata == nil {
		metadata = map[string]any{}
	}
	return &model.Message{
		ID:          uuid.New().String(),
		Type:        msgType,
		SenderID:    senderID,
		WorkspaceID: workspaceID,
		Data:        data,
		Timestamp:   time.Now().UTC(),
		Metadata:    metadata,
	}
}
