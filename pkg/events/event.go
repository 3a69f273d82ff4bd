package events

import "time"

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "MESSAGE_APPENDED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// BaseEvent is a generic implementation used when re-hydrating events off the
// wire; producers should prefer the typed constructors below.
type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

const (
	TypeMessageAppended = "MESSAGE_APPENDED"
	TypeUserRegistered  = "USER_REGISTERED"
)

// NewMessageAppendedEvent signals that a message was persisted to a chat and
// should be fanned out to its participants.
func NewMessageAppendedEvent(chatId, chatTitle, messageId, senderId, content string, isAI bool, participants []string) Event {
	return BaseEvent{
		Type: TypeMessageAppended,
		Data: map[string]interface{}{
			"chat_id":      chatId,
			"chat_title":   chatTitle,
			"message_id":   messageId,
			"sender_id":    senderId,
			"content":      content,
			"is_ai":        isAI,
			"participants": participants,
		},
		OccurredAt: time.Now(),
	}
}

// NewUserRegisteredEvent signals that a new account was created.
func NewUserRegisteredEvent(userId, email, username string) Event {
	return BaseEvent{
		Type: TypeUserRegistered,
		Data: map[string]interface{}{
			"user_id":  userId,
			"email":    email,
			"username": username,
		},
		OccurredAt: time.Now(),
	}
}
