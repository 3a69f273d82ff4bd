package websocket

import (
	"encoding/json"

	"ai-chat-be/internal/dto"
)

// Socket event names shared with the browser client.
const (
	EventJoinChat    = "join_chat"
	EventJoinedChat  = "joined_chat"
	EventLeaveChat   = "leave_chat"
	EventSendMessage = "send_message"
	EventNewMessage  = "new_message"
	EventTyping      = "typing"
	EventUserTyping  = "user_typing"
	EventChatUpdated = "chat_updated"
	EventError       = "error"
)

// Envelope is the wire format for every frame in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func NewEnvelope(event string, data interface{}) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Data: raw})
}

// JoinChatPayload is sent by clients for join_chat and leave_chat.
type JoinChatPayload struct {
	ChatId string `json:"chat_id"`
}

// SendMessagePayload mirrors the REST append body for socket-first clients.
type SendMessagePayload struct {
	ChatId      string                  `json:"chat_id"`
	Content     string                  `json:"content"`
	Attachments []dto.AttachmentPayload `json:"attachments,omitempty"`
}

// TypingPayload toggles the sender's typing indicator in a room.
type TypingPayload struct {
	ChatId   string `json:"chat_id"`
	IsTyping bool   `json:"is_typing"`
}

// UserTypingPayload is broadcast to the other members of a room.
type UserTypingPayload struct {
	ChatId   string `json:"chat_id"`
	UserId   string `json:"user_id"`
	Username string `json:"username,omitempty"`
	IsTyping bool   `json:"is_typing"`
}

// ChatUpdatedPayload notifies participants that chat metadata changed.
type ChatUpdatedPayload struct {
	ChatId      string               `json:"chat_id"`
	Title       string               `json:"title,omitempty"`
	LastMessage *dto.MessageResponse `json:"last_message,omitempty"`
}

// ErrorPayload is sent back on a single connection when an inbound frame fails.
type ErrorPayload struct {
	Message string `json:"message"`
}
