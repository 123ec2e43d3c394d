package model

import (
	"time"
)

// MessageType represents the type of a collaboration message.
type MessageType string

const (
	// Client -> Server message types
	MessageTypeProjectUpdate MessageType = "PROJECT_UPDATE"
	MessageTypeCursorUpdate  MessageType = "CURSOR_UPDATE"
	MessageTypeChatMessage   MessageType = "CHAT_MESSAGE"
	MessageTypeAIRequest     MessageType = "AI_REQUEST"
	MessageTypeHeartbeat     MessageType = "HEARTBEAT"

	// Server -> Client message types
	MessageTypeAIResponse  MessageType = "AI_RESPONSE"
	MessageTypeUserJoined  MessageType = "USER_JOINED"
	MessageTypeUserLeft    MessageType = "USER_LEFT"
	MessageTypeProjectLoad MessageType = "PROJECT_LOAD"
	MessageTypeError       MessageType = "ERROR"
)

// Message is the canonical wire envelope wrapping a typed payload with
// sender, workspace, and timestamp metadata. It doubles as the per-workspace
// history record.
type Message struct {
	ID          string         `json:"id"`
	Type        MessageType    `json:"type"`
	SenderID    string         `json:"sender_id"`
	WorkspaceID string         `json:"workspace_id"`
	Data        map[string]any `json:"data"`
	Timestamp   time.Time      `json:"timestamp"`
	Metadata    map[string]any `json:"metadata"`
}
