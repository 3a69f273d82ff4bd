package dto

import (
	"time"

	"github.com/google/uuid"
)

type AttachmentPayload struct {
	Filename string `json:"filename" validate:"required"`
	Path     string `json:"path" validate:"required"`
	MimeType string `json:"mimetype"`
}

type CreateChatRequest struct {
	Title string `json:"title"`
}

type RenameChatRequest struct {
	Title string `json:"title" validate:"required"`
}

type AppendMessageRequest struct {
	Content     string              `json:"content" validate:"required"`
	Attachments []AttachmentPayload `json:"attachments" validate:"omitempty,dive"`
}

type MessageResponse struct {
	Id          uuid.UUID           `json:"id"`
	ChatId      uuid.UUID           `json:"chatId"`
	Sender      *SenderResponse     `json:"sender,omitempty"`
	Content     string              `json:"content"`
	IsAI        bool                `json:"isAI"`
	Timestamp   time.Time           `json:"timestamp"`
	Attachments []AttachmentPayload `json:"attachments,omitempty"`
}

// ChatSummaryResponse is the list view: messages are excluded for payload
// size, only the count and the newest message survive.
type ChatSummaryResponse struct {
	Id           uuid.UUID        `json:"id"`
	Title        string           `json:"title"`
	Participants []UserResponse   `json:"participants"`
	MessageCount int64            `json:"messageCount"`
	LastMessage  *MessageResponse `json:"lastMessage,omitempty"`
	CreatedAt    time.Time        `json:"createdAt"`
	UpdatedAt    time.Time        `json:"updatedAt"`
}

type ChatDetailResponse struct {
	Id           uuid.UUID         `json:"id"`
	Title        string            `json:"title"`
	Participants []UserResponse    `json:"participants"`
	Messages     []MessageResponse `json:"messages"`
	MessageCount int64             `json:"messageCount"`
	CreatedAt    time.Time         `json:"createdAt"`
	UpdatedAt    time.Time         `json:"updatedAt"`
}
