package dto

import "github.com/google/uuid"

// MessageAppendedEvent travels over the in-process bus and the durable bus
// after a message is committed. Participants is snapshotted at publish time
// so consumers do not have to reload the chat.
type MessageAppendedEvent struct {
	ChatId       uuid.UUID       `json:"chatId"`
	ChatTitle    string          `json:"chatTitle"`
	Message      MessageResponse `json:"message"`
	Participants []uuid.UUID     `json:"participants"`
}

// ChatUpdatedEvent travels over the in-process bus when chat metadata
// changes without a new message, currently only on rename.
type ChatUpdatedEvent struct {
	ChatId       uuid.UUID   `json:"chatId"`
	Title        string      `json:"title"`
	Participants []uuid.UUID `json:"participants"`
}
