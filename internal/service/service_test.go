package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"ai-chat-be/internal/entity"
	"ai-chat-be/internal/repository/contract"
	"ai-chat-be/internal/repository/specification"
	"ai-chat-be/internal/repository/unitofwork"

	"github.com/google/uuid"
)

// memStore is an in-memory stand-in for the persistence layer, shared by the
// service tests. It interprets the same specifications the GORM
// implementations do.
type memStore struct {
	mu       sync.Mutex
	users    map[uuid.UUID]*entity.User
	chats    map[uuid.UUID]*entity.Chat
	messages map[uuid.UUID][]*entity.Message
}

func newMemStore() *memStore {
	return &memStore{
		users:    make(map[uuid.UUID]*entity.User),
		chats:    make(map[uuid.UUID]*entity.Chat),
		messages: make(map[uuid.UUID][]*entity.Message),
	}
}

type memFactory struct {
	store *memStore
}

func newMemFactory(store *memStore) unitofwork.RepositoryFactory {
	return &memFactory{store: store}
}

func (f *memFactory) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return &memUow{store: f.store}
}

type memUow struct {
	store *memStore
}

func (u *memUow) Begin(ctx context.Context) error { return nil }
func (u *memUow) Commit() error                   { return nil }
func (u *memUow) Rollback() error                 { return nil }

func (u *memUow) UserRepository() contract.UserRepository {
	return &memUserRepo{store: u.store}
}

func (u *memUow) ChatRepository() contract.ChatRepository {
	return &memChatRepo{store: u.store}
}

func (u *memUow) ChatMessageRepository() contract.ChatMessageRepository {
	return &memMessageRepo{store: u.store}
}

// --- users ---

type memUserRepo struct {
	store *memStore
}

func (r *memUserRepo) Create(ctx context.Context, user *entity.User) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	clone := *user
	r.store.users[user.Id] = &clone
	return nil
}

func (r *memUserRepo) Update(ctx context.Context, user *entity.User) error {
	return r.Create(ctx, user)
}

func (r *memUserRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.User, error) {
	users, err := r.FindAll(ctx, specs...)
	if err != nil || len(users) == 0 {
		return nil, err
	}
	return users[0], nil
}

func (r *memUserRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var out []*entity.User
	for _, user := range r.store.users {
		if userMatches(user, specs) {
			clone := *user
			out = append(out, &clone)
		}
	}
	return out, nil
}

func userMatches(user *entity.User, specs []specification.Specification) bool {
	for _, spec := range specs {
		switch s := spec.(type) {
		case specification.ByID:
			if user.Id != s.ID {
				return false
			}
		case specification.ByIDs:
			found := false
			for _, id := range s.IDs {
				if user.Id == id {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		case specification.ByEmail:
			if user.Email != s.Email {
				return false
			}
		case specification.ByUsername:
			if user.Username != s.Username {
				return false
			}
		}
	}
	return true
}

func (r *memUserRepo) CreateProvider(ctx context.Context, provider *entity.UserProvider) error {
	return nil
}

func (r *memUserRepo) FindProvider(ctx context.Context, specs ...specification.Specification) (*entity.UserProvider, error) {
	return nil, nil
}

func (r *memUserRepo) ExistsByIds(ctx context.Context, ids []uuid.UUID) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, id := range ids {
		if _, ok := r.store.users[id]; !ok {
			return false, nil
		}
	}
	return true, nil
}

// --- chats ---

type memChatRepo struct {
	store *memStore
}

func (r *memChatRepo) Create(ctx context.Context, chat *entity.Chat) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	clone := *chat
	r.store.chats[chat.Id] = &clone
	return nil
}

func (r *memChatRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	delete(r.store.chats, id)
	delete(r.store.messages, id)
	return nil
}

func (r *memChatRepo) Rename(ctx context.Context, id uuid.UUID, title string, updatedAt time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if chat, ok := r.store.chats[id]; ok {
		chat.Title = title
		chat.UpdatedAt = updatedAt
	}
	return nil
}

func (r *memChatRepo) TouchUpdatedAt(ctx context.Context, id uuid.UUID, updatedAt time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if chat, ok := r.store.chats[id]; ok {
		chat.UpdatedAt = updatedAt
	}
	return nil
}

func (r *memChatRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Chat, error) {
	chats, err := r.FindAll(ctx, specs...)
	if err != nil || len(chats) == 0 {
		return nil, err
	}
	return chats[0], nil
}

func (r *memChatRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Chat, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var out []*entity.Chat
	for _, chat := range r.store.chats {
		if chatMatches(chat, specs) {
			clone := *chat
			clone.Participants = append([]uuid.UUID(nil), chat.Participants...)
			out = append(out, &clone)
		}
	}

	for _, spec := range specs {
		if s, ok := spec.(specification.OrderBy); ok && s.Expression == "updated_at DESC" {
			sort.Slice(out, func(i, j int) bool {
				return out[i].UpdatedAt.After(out[j].UpdatedAt)
			})
		}
	}
	return out, nil
}

func chatMatches(chat *entity.Chat, specs []specification.Specification) bool {
	for _, spec := range specs {
		switch s := spec.(type) {
		case specification.ByID:
			if chat.Id != s.ID {
				return false
			}
		case specification.ByParticipant:
			if !chat.HasParticipant(s.UserID) {
				return false
			}
		}
	}
	return true
}

// --- messages ---

type memMessageRepo struct {
	store *memStore
}

func (r *memMessageRepo) Append(ctx context.Context, message *entity.Message) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	clone := *message
	r.store.messages[message.ChatId] = append(r.store.messages[message.ChatId], &clone)
	return nil
}

func (r *memMessageRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Message, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var chatId uuid.UUID
	for _, spec := range specs {
		if s, ok := spec.(specification.ByChatID); ok {
			chatId = s.ChatID
		}
	}

	msgs := r.store.messages[chatId]
	out := make([]*entity.Message, 0, len(msgs))
	for _, msg := range msgs {
		clone := *msg
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}

func (r *memMessageRepo) FindLast(ctx context.Context, chatId uuid.UUID, n int) ([]*entity.Message, error) {
	all, err := r.FindAll(ctx, specification.ByChatID{ChatID: chatId}, specification.MessagesChronological{})
	if err != nil {
		return nil, err
	}
	if len(all) > n {
		all = all[len(all)-n:]
	}
	return all, nil
}

func (r *memMessageRepo) CountByChat(ctx context.Context, chatId uuid.UUID) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return int64(len(r.store.messages[chatId])), nil
}

func (r *memMessageRepo) LastByChat(ctx context.Context, chatId uuid.UUID) (*entity.Message, error) {
	all, err := r.FindAll(ctx, specification.ByChatID{ChatID: chatId}, specification.MessagesChronological{})
	if err != nil || len(all) == 0 {
		return nil, err
	}
	return all[len(all)-1], nil
}

// --- logging stub ---

type nopLogger struct{}

func (nopLogger) Debug(module, message string, details map[string]interface{}) {}
func (nopLogger) Info(module, message string, details map[string]interface{})  {}
func (nopLogger) Warn(module, message string, details map[string]interface{})  {}
func (nopLogger) Error(module, message string, details map[string]interface{}) {}
func (nopLogger) Sync() error                                                  { return nil }
