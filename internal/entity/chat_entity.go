package entity

import (
	"time"

	"github.com/google/uuid"
)

// Attachment describes a file referenced by a message. The binary content
// lives under the upload tree and is served statically; only the descriptor
// is embedded in the message.
type Attachment struct {
	Filename string `json:"filename"`
	Path     string `json:"path"`
	MimeType string `json:"mimetype"`
}

// Message is owned exclusively by its parent Chat. Messages are append-only:
// they are never edited in place and disappear only when the chat is deleted.
// SenderId is nil exactly when IsAI is true.
type Message struct {
	Id          uuid.UUID
	ChatId      uuid.UUID
	SenderId    *uuid.UUID
	Content     string
	IsAI        bool
	Timestamp   time.Time
	Attachments []Attachment
}

type Chat struct {
	Id           uuid.UUID
	Title        string
	Participants []uuid.UUID
	Messages     []Message
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasParticipant reports whether userId is in the participant set.
func (c *Chat) HasParticipant(userId uuid.UUID) bool {
	for _, p := range c.Participants {
		if p == userId {
			return true
		}
	}
	return false
}

// LastMessage returns the newest message, or nil for an empty chat.
func (c *Chat) LastMessage() *Message {
	if len(c.Messages) == 0 {
		return nil
	}
	return &c.Messages[len(c.Messages)-1]
}
