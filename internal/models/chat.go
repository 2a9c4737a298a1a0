package models

import (
	"time"

	"github.com/google/uuid"
)

// Chat is a single conversation thread owned by one user. Chats are created
// on demand, deleted explicitly, and never mutated otherwise.
type Chat struct {
	ID        uuid.UUID `json:"id"`
	UserEmail string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}

// MessageAuthor describes who wrote a message. The assistant is identified
// by the fixed "Chad" display name.
type MessageAuthor struct {
	ID     string `json:"_id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

// Message is one persisted utterance within a chat. Immutable once created;
// readers order by CreatedAt ascending.
type Message struct {
	ID        uuid.UUID     `json:"id"`
	ChatID    uuid.UUID     `json:"chatId"`
	Text      string        `json:"text"`
	CreatedAt time.Time     `json:"createdAt"`
	Author    MessageAuthor `json:"user"`
}

// AssistantAuthor is the fixed author descriptor attached to every
// model-generated message.
var AssistantAuthor = MessageAuthor{
	ID:     "chadgpt",
	Name:   "Chad",
	Avatar: "/chad.png",
}

// OutboundMessage is the ephemeral role/content pair sent upstream. Never
// persisted.
type OutboundMessage struct {
	Role    string `json:"role"` // "system" | "user" | "assistant"
	Content string `json:"content"`
}

// PromptRequest is the body of POST /api/prompt. Identity comes from the
// bearer token, not the body.
type PromptRequest struct {
	OutboundMessages []OutboundMessage `json:"outboundMessages"`
	ID               string            `json:"id"`
	Model            string            `json:"model"`
	Timezone         string            `json:"timezone"`
}

// StreamChunk is one relayed completion fragment on the wire.
type StreamChunk struct {
	Content string `json:"content"`
}

type ModelOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

type ModelsResponse struct {
	ModelOptions []ModelOption `json:"modelOptions"`
}

type ChatResponse struct {
	Success bool   `json:"success"`
	ChatID  string `json:"chatId,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

type DeleteResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// APIError is the uniform failure body for every endpoint.
type APIError struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// WSMessage is a push notification delivered over the WebSocket hub.
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}
