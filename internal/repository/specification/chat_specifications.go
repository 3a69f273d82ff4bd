package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ByParticipant limits chats to those the user belongs to.
type ByParticipant struct {
	UserID uuid.UUID
}

func (s ByParticipant) Apply(db *gorm.DB) *gorm.DB {
	return db.Where(
		"id IN (?)",
		db.Session(&gorm.Session{NewDB: true}).
			Table("chat_participants").
			Select("chat_id").
			Where("user_id = ?", s.UserID),
	)
}

type ByChatID struct {
	ChatID uuid.UUID
}

func (s ByChatID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("chat_id = ?", s.ChatID)
}

// MessagesChronological orders messages the way clients render them.
type MessagesChronological struct{}

func (s MessagesChronological) Apply(db *gorm.DB) *gorm.DB {
	return db.Order("timestamp ASC, created_at ASC")
}
