package contract

import (
	"context"
	"time"

	"ai-chat-be/internal/entity"
	"ai-chat-be/internal/repository/specification"

	"github.com/google/uuid"
)

type ChatRepository interface {
	// Create persists the chat together with its participant rows.
	Create(ctx context.Context, chat *entity.Chat) error
	Delete(ctx context.Context, id uuid.UUID) error
	Rename(ctx context.Context, id uuid.UUID, title string, updatedAt time.Time) error
	// TouchUpdatedAt bumps the chat's last-update timestamp. Called in the
	// same transaction as a message append.
	TouchUpdatedAt(ctx context.Context, id uuid.UUID, updatedAt time.Time) error
	// FindOne loads a chat with its participant set but without messages.
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Chat, error)
	// FindAll loads chats with participants, without messages.
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Chat, error)
}

type ChatMessageRepository interface {
	// Append inserts the message, letting the store assign id when unset.
	Append(ctx context.Context, message *entity.Message) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Message, error)
	// FindLast returns up to n newest messages of a chat in chronological order.
	FindLast(ctx context.Context, chatId uuid.UUID, n int) ([]*entity.Message, error)
	CountByChat(ctx context.Context, chatId uuid.UUID) (int64, error)
	LastByChat(ctx context.Context, chatId uuid.UUID) (*entity.Message, error)
}
