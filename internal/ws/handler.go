package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/collab-workspace/backend/internal/model"
	"github.com/collab-workspace/backend/internal/store"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 65536
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// TODO: Implement proper origin checking in production
		return true
	},
}

// Handler drives the per-connection state machine: CONNECTING (handshake and
// identity extraction), ESTABLISHED (registered, receive loop), CLOSED
// (cleanup exactly once).
type Handler struct {
	store    *store.WorkspaceStore
	registry *HubManager
	engine   *Engine
	router   *Router
}

// NewHandler creates a new WebSocket connection handler.
func NewHandler(workspaceStore *store.WorkspaceStore, registry *HubManager, engine *Engine, router *Router) *Handler {
	return &Handler{
		store:    workspaceStore,
		registry: registry,
		engine:   engine,
		router:   router,
	}
}

// HandleConnection upgrades the HTTP request and runs the connection
// lifecycle. The (userID, workspaceID) pair comes from the handshake path; a
// connection missing either is rejected with a policy close code and never
// reaches the established state, so it requires no further cleanup.
//
// On success the connection is registered, membership is ensured (a new
// member defaults to VIEWER; an existing role is left untouched), a
// USER_JOINED event is broadcast, and a PROJECT_LOAD state replay is unicast
// to the new connection only.
func (h *Handler) HandleConnection(w http.ResponseWriter, r *http.Request, userID, workspaceID string) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	if userID == "" || workspaceID == "" {
		h.reject(conn, "missing user or workspace id")
		return nil
	}

	if _, ok := h.store.GetWorkspaceInfo(workspaceID); !ok {
		h.reject(conn, "unknown workspace: "+workspaceID)
		return nil
	}

	client := NewClient(conn, userID, workspaceID)
	h.registry.Register(client)

	// Membership is created lazily on first join and survives disconnects.
	h.store.AddUser(workspaceID, userID, model.RoleViewer)

	h.engine.Broadcast(workspaceID, model.MessageTypeUserJoined, userID, map[string]any{
		"user_id": userID,
	}, nil)

	h.sendProjectLoad(client)

	go h.writePump(client)
	go h.readPump(client)

	return nil
}

// reject closes a connection that never reached the established state with a
// policy violation close code.
func (h *Handler) reject(conn *websocket.Conn, reason string) {
	deadline := time.Now().Add(writeWait)
	msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason)
	if err := conn.WriteControl(websocket.CloseMessage, msg, deadline); err != nil {
		log.Printf("Failed to write rejection close frame: %v", err)
	}
	conn.Close()
}

// sendProjectLoad unicasts the full state replay (current project data plus
// the member list) to a newly established connection.
func (h *Handler) sendProjectLoad(client *Client) {
	members := h.store.Members(client.WorkspaceID())
	users := make([]any, 0, len(members))
	for _, m := range members {
		users = append(users, m)
	}

	h.engine.Unicast(client, model.MessageTypeProjectLoad, systemSender, map[string]any{
		"project_data": h.store.ProjectData(client.WorkspaceID()),
		"users":        users,
	}, nil)
}

// teardown runs the CLOSED transition exactly once per connection regardless
// of which path triggered it: the connection is dropped from the registries
// and a USER_LEFT event is broadcast. The membership record is deliberately
// left in place; only an explicit removal call deletes it.
func (h *Handler) teardown(client *Client) {
	client.teardown.Do(func() {
		h.registry.Unregister(client)
		client.Conn().Close()

		h.engine.Broadcast(client.WorkspaceID(), model.MessageTypeUserLeft, client.UserID(), map[string]any{
			"user_id": client.UserID(),
		}, nil)
	})
}

// readPump runs the established receive loop: read a frame, parse it, and
// dispatch to the router. A parse failure is logged and the loop continues
// without closing the connection; faults inside a single frame's handling
// are contained by the router.
func (h *Handler) readPump(client *Client) {
	defer h.teardown(client)

	client.Conn().SetReadLimit(maxMessageSize)
	client.Conn().SetReadDeadline(time.Now().Add(pongWait))
	client.Conn().SetPongHandler(func(string) error {
		client.Conn().SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := client.Conn().ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Printf("WebSocket error for user %s: %v", client.UserID(), err)
			}
			break
		}

		var frame Inbound
		if err := json.Unmarshal(message, &frame); err != nil {
			log.Printf("Failed to unmarshal frame from user %s: %v", client.UserID(), err)
			continue
		}

		h.router.HandleFrame(client, &frame)
	}
}

// writePump pumps queued outbound messages to the WebSocket connection and
// keeps the peer alive with periodic pings.
func (h *Handler) writePump(client *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.Conn().Close()
	}()

	for {
		select {
		case message, ok := <-client.SendChan():
			client.Conn().SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The registry closed the client
				client.Conn().WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// Each envelope goes in its own frame so clients can parse
			// messages one by one
			if err := client.Conn().WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

			n := len(client.SendChan())
			for i := 0; i < n; i++ {
				queued := <-client.SendChan()
				client.Conn().SetWriteDeadline(time.Now().Add(writeWait))
				if err := client.Conn().WriteMessage(websocket.TextMessage, queued); err != nil {
					return
				}
			}
		case <-ticker.C:
			client.Conn().SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.Conn().WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SetCheckOrigin sets a custom origin checker for the WebSocket upgrader.
func SetCheckOrigin(fn func(r *http.Request) bool) {
	upgrader.CheckOrigin = fn
}
