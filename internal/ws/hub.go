package ws

import (
	"sync"

	"github.com/gorilla/websocket"
)

// Client represents one live WebSocket connection of a workspace member.
type Client struct {
	conn        *websocket.Conn
	userID      string
	workspaceID string
	send        chan []byte
	mu          sync.Mutex
	closed      bool
	teardown    sync.Once
}

// NewClient creates a new WebSocket client.
func NewClient(conn *websocket.Conn, userID, workspaceID string) *Client {
	return &Client{
		conn:        conn,
		userID:      userID,
		workspaceID: workspaceID,
		send:        make(chan []byte, 256),
	}
}

// TrySend queues a message for delivery to the client. It reports false when
// the client is already closed or its send buffer is full; in the latter case
// the client is closed so the caller can prune it from the live set.
func (c *Client) TrySend(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}

	select {
	case c.send <- data:
		return true
	default:
		// Buffer full, treat the peer as dead
		c.closeLocked()
		return false
	}
}

// Close closes the client's send channel.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

func (c *Client) closeLocked() {
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// IsClosed returns true if the client is closed.
func (c *Client) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// UserID returns the user id the connection authenticated as.
func (c *Client) UserID() string {
	return c.userID
}

// WorkspaceID returns the workspace the connection is attached to.
func (c *Client) WorkspaceID() string {
	return c.workspaceID
}

// Conn returns the underlying WebSocket connection.
func (c *Client) Conn() *websocket.Conn {
	return c.conn
}

// SendChan returns the send channel for the client.
func (c *Client) SendChan() <-chan []byte {
	return c.send
}

// Hub holds the live connection set of a single workspace. A hub with zero
// clients stays alive: workspaces are never evicted, and members reconnect.
type Hub struct {
	workspaceID string
	clients     map[*Client]bool
	mu          sync.RWMutex
}

// NewHub creates a new Hub for the given workspace.
func NewHub(workspaceID string) *Hub {
	return &Hub{
		workspaceID: workspaceID,
		clients:     make(map[*Client]bool),
	}
}

// WorkspaceID returns the workspace id for this hub.
func (h *Hub) WorkspaceID() string {
	return h.workspaceID
}

// Register adds a client to the hub.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client] = true
}

// Unregister removes a client from the hub and closes it.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	delete(h.clients, client)
	h.mu.Unlock()

	client.Close()
}

// Clients returns a snapshot of the currently registered clients.
func (h *Hub) Clients() []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	return clients
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close closes all client connections.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.clients = make(map[*Client]bool)
	h.mu.Unlock()

	for _, client := range clients {
		client.Close()
	}
}

// HubManager is the connection registry: it maps each workspace to its live
// connection set and each user to their connections across workspaces.
type HubManager struct {
	hubs   map[string]*Hub
	byUser map[string]map[*Client]bool
	mu     sync.RWMutex
}

// NewHubManager creates a new HubManager.
func NewHubManager() *HubManager {
	return &HubManager{
		hubs:   make(map[string]*Hub),
		byUser: make(map[string]map[*Client]bool),
	}
}

// GetOrCreate returns an existing hub or creates a new one for the workspace.
func (m *HubManager) GetOrCreate(workspaceID string) *Hub {
	m.mu.Lock()
	defer m.mu.Unlock()

	if hub, ok := m.hubs[workspaceID]; ok {
		return hub
	}

	hub := NewHub(workspaceID)
	m.hubs[workspaceID] = hub
	return hub
}

// Get returns the hub for the workspace, or nil if not found.
func (m *HubManager) Get(workspaceID string) *Hub {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.hubs[workspaceID]
}

// Register adds a client to its workspace hub and to the user index.
func (m *HubManager) Register(client *Client) {
	hub := m.GetOrCreate(client.WorkspaceID())
	hub.Register(client)

	m.mu.Lock()
	conns, ok := m.byUser[client.UserID()]
	if !ok {
		conns = make(map[*Client]bool)
		m.byUser[client.UserID()] = conns
	}
	conns[client] = true
	m.mu.Unlock()
}

// Unregister removes a client from its workspace hub and the user index,
// closing the client. Safe to call more than once for the same client.
func (m *HubManager) Unregister(client *Client) {
	if hub := m.Get(client.WorkspaceID()); hub != nil {
		hub.Unregister(client)
	} else {
		client.Close()
	}

	m.mu.Lock()
	if conns, ok := m.byUser[client.UserID()]; ok {
		delete(conns, client)
		if len(conns) == 0 {
			delete(m.byUser, client.UserID())
		}
	}
	m.mu.Unlock()
}

// ConnectionCount returns the number of live connections in a workspace.
func (m *HubManager) ConnectionCount(workspaceID string) int {
	hub := m.Get(workspaceID)
	if hub == nil {
		return 0
	}
	return hub.ClientCount()
}

// UserConnectionCount returns the number of live connections a user holds
// across all workspaces.
func (m *HubManager) UserConnectionCount(userID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byUser[userID])
}

// Close closes all hubs and connections.
func (m *HubManager) Close() {
	m.mu.Lock()
	hubs := make([]*Hub, 0, len(m.hubs))
	for _, hub := range m.hubs {
		hubs = append(hubs, hub)
	}
	m.hubs = make(map[string]*Hub)
	m.byUser = make(map[string]map[*Client]bool)
	m.mu.Unlock()

	for _, hub := range hubs {
		hub.Close()
	}
}
