package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Chat is the relational port of the original embedded-document layout.
// Messages live in their own table with a cascading FK; every append or
// rename runs inside one transaction that also bumps UpdatedAt, which
// restores the single-writer guarantee the embedded array used to provide.
type Chat struct {
	Id           uuid.UUID         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Title        string            `gorm:"type:text;not null"`
	Participants []ChatParticipant `gorm:"foreignKey:ChatId;constraint:OnDelete:CASCADE"`
	Messages     []ChatMessage     `gorm:"foreignKey:ChatId;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time         `gorm:"autoCreateTime;<-:create"`
	UpdatedAt    time.Time         `gorm:"index"`
}

func (Chat) TableName() string {
	return "chats"
}

type ChatParticipant struct {
	ChatId    uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserId    uuid.UUID `gorm:"type:uuid;primaryKey;index"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (ChatParticipant) TableName() string {
	return "chat_participants"
}

type ChatMessage struct {
	Id          uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ChatId      uuid.UUID      `gorm:"type:uuid;not null;index:idx_chat_messages_chat_ts,priority:1"`
	SenderId    *uuid.UUID     `gorm:"type:uuid"`
	Content     string         `gorm:"type:text;not null"`
	IsAI        bool           `gorm:"not null;default:false"`
	Timestamp   time.Time      `gorm:"not null;index:idx_chat_messages_chat_ts,priority:2"`
	Attachments datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt   time.Time      `gorm:"autoCreateTime"`
}

func (ChatMessage) TableName() string {
	return "chat_messages"
}
