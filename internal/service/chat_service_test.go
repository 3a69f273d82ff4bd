package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"ai-chat-be/internal/constant"
	"ai-chat-be/internal/dto"
	"ai-chat-be/internal/entity"
	"ai-chat-be/internal/pkg/serverutils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func newChatFixture(t *testing.T) (IChatService, *memStore, uuid.UUID) {
	t.Helper()
	store := newMemStore()
	userId := uuid.New()
	store.users[userId] = &entity.User{Id: userId, Username: "alice", Email: "alice@example.com"}
	svc := NewChatService(newMemFactory(store), nil, nil, nil, nopLogger{})
	return svc, store, userId
}

// capturePublisher records in-process bus payloads for assertions.
type capturePublisher struct {
	payloads [][]byte
}

func (p *capturePublisher) Publish(ctx context.Context, payload []byte) error {
	p.payloads = append(p.payloads, payload)
	return nil
}

func TestCreateChatTitleRules(t *testing.T) {
	tests := []struct {
		name      string
		title     string
		wantTitle string
	}{
		{name: "default when empty", title: "", wantTitle: constant.DefaultChatTitle},
		{name: "default when whitespace", title: "   ", wantTitle: constant.DefaultChatTitle},
		{name: "trimmed", title: "  Project Plan  ", wantTitle: "Project Plan"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, userId := newChatFixture(t)

			chat, err := svc.Create(context.Background(), userId, &dto.CreateChatRequest{Title: tt.title})
			assert.NoError(t, err)
			assert.Equal(t, tt.wantTitle, chat.Title)
			assert.Len(t, chat.Participants, 1)
		})
	}
}

func TestRenameChatRejectsBlankTitle(t *testing.T) {
	svc, _, userId := newChatFixture(t)
	chat, err := svc.Create(context.Background(), userId, &dto.CreateChatRequest{})
	assert.NoError(t, err)

	_, err = svc.Rename(context.Background(), userId, chat.Id, &dto.RenameChatRequest{Title: "   "})

	var apiErr *serverutils.ApiError
	assert.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 400, apiErr.Code)
}

func TestRenamePublishesUpdateEvent(t *testing.T) {
	store := newMemStore()
	userId := uuid.New()
	store.users[userId] = &entity.User{Id: userId, Username: "alice", Email: "alice@example.com"}

	updates := &capturePublisher{}
	svc := NewChatService(newMemFactory(store), nil, updates, nil, nopLogger{})

	chat, err := svc.Create(context.Background(), userId, &dto.CreateChatRequest{})
	assert.NoError(t, err)
	assert.Empty(t, updates.payloads)

	_, err = svc.Rename(context.Background(), userId, chat.Id, &dto.RenameChatRequest{Title: "Renamed"})
	assert.NoError(t, err)
	assert.Len(t, updates.payloads, 1)

	var event dto.ChatUpdatedEvent
	assert.NoError(t, json.Unmarshal(updates.payloads[0], &event))
	assert.Equal(t, chat.Id, event.ChatId)
	assert.Equal(t, "Renamed", event.Title)
	assert.Equal(t, []uuid.UUID{userId}, event.Participants)
}

func TestAuthorizationPrecedence(t *testing.T) {
	svc, _, userId := newChatFixture(t)
	chat, err := svc.Create(context.Background(), userId, &dto.CreateChatRequest{})
	assert.NoError(t, err)

	outsider := uuid.New()

	t.Run("unknown chat is not found", func(t *testing.T) {
		_, err := svc.Show(context.Background(), userId, uuid.New())
		var apiErr *serverutils.ApiError
		assert.True(t, errors.As(err, &apiErr))
		assert.Equal(t, 404, apiErr.Code)
	})

	t.Run("existing chat without membership is forbidden", func(t *testing.T) {
		_, err := svc.Show(context.Background(), outsider, chat.Id)
		var apiErr *serverutils.ApiError
		assert.True(t, errors.As(err, &apiErr))
		assert.Equal(t, 403, apiErr.Code)
	})

	t.Run("outsider cannot append", func(t *testing.T) {
		_, err := svc.AppendMessage(context.Background(), outsider, chat.Id, &dto.AppendMessageRequest{Content: "hi"})
		var apiErr *serverutils.ApiError
		assert.True(t, errors.As(err, &apiErr))
		assert.Equal(t, 403, apiErr.Code)
	})
}

func TestAppendBumpsCountAndTimestamp(t *testing.T) {
	svc, _, userId := newChatFixture(t)
	chat, err := svc.Create(context.Background(), userId, &dto.CreateChatRequest{})
	assert.NoError(t, err)

	before := chat.UpdatedAt
	time.Sleep(5 * time.Millisecond)

	msg, err := svc.AppendMessage(context.Background(), userId, chat.Id, &dto.AppendMessageRequest{Content: "first"})
	assert.NoError(t, err)
	assert.Equal(t, "first", msg.Content)
	assert.False(t, msg.IsAI)
	assert.Equal(t, "alice", msg.Sender.Username)

	list, err := svc.List(context.Background(), userId)
	assert.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, int64(1), list[0].MessageCount)
	assert.True(t, list[0].UpdatedAt.After(before))
	assert.Equal(t, "first", list[0].LastMessage.Content)
}

func TestAppendAttachmentRoundTrip(t *testing.T) {
	svc, _, userId := newChatFixture(t)
	chat, err := svc.Create(context.Background(), userId, &dto.CreateChatRequest{})
	assert.NoError(t, err)

	_, err = svc.AppendMessage(context.Background(), userId, chat.Id, &dto.AppendMessageRequest{
		Content: "see attached",
		Attachments: []dto.AttachmentPayload{
			{Filename: "report.pdf", Path: "/uploads/abc-report.pdf", MimeType: "application/pdf"},
		},
	})
	assert.NoError(t, err)

	detail, err := svc.Show(context.Background(), userId, chat.Id)
	assert.NoError(t, err)
	assert.Len(t, detail.Messages, 1)
	assert.Len(t, detail.Messages[0].Attachments, 1)
	assert.Equal(t, "report.pdf", detail.Messages[0].Attachments[0].Filename)
	assert.Equal(t, "/uploads/abc-report.pdf", detail.Messages[0].Attachments[0].Path)
}

func TestAIMessagesRenderAISender(t *testing.T) {
	svc, _, userId := newChatFixture(t)
	chat, err := svc.Create(context.Background(), userId, &dto.CreateChatRequest{})
	assert.NoError(t, err)

	reply, err := svc.AppendAIMessage(context.Background(), chat.Id, "Hello, human")
	assert.NoError(t, err)
	assert.True(t, reply.IsAI)
	assert.Equal(t, "AI", reply.Sender.Username)
	assert.Nil(t, reply.Sender.Id)
}

func TestIncrementalFetchSlicesAfterCursor(t *testing.T) {
	svc, _, userId := newChatFixture(t)
	chat, err := svc.Create(context.Background(), userId, &dto.CreateChatRequest{})
	assert.NoError(t, err)

	var ids []uuid.UUID
	for _, content := range []string{"one", "two", "three"} {
		msg, err := svc.AppendMessage(context.Background(), userId, chat.Id, &dto.AppendMessageRequest{Content: content})
		assert.NoError(t, err)
		ids = append(ids, msg.Id)
		time.Sleep(2 * time.Millisecond)
	}

	t.Run("after first returns the rest", func(t *testing.T) {
		got, err := svc.Messages(context.Background(), userId, chat.Id, &ids[0])
		assert.NoError(t, err)
		assert.Len(t, got, 2)
		assert.Equal(t, "two", got[0].Content)
		assert.Equal(t, "three", got[1].Content)
	})

	t.Run("after last returns nothing", func(t *testing.T) {
		got, err := svc.Messages(context.Background(), userId, chat.Id, &ids[2])
		assert.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("unknown cursor returns everything", func(t *testing.T) {
		unknown := uuid.New()
		got, err := svc.Messages(context.Background(), userId, chat.Id, &unknown)
		assert.NoError(t, err)
		assert.Len(t, got, 3)
	})

	t.Run("nil cursor returns everything", func(t *testing.T) {
		got, err := svc.Messages(context.Background(), userId, chat.Id, nil)
		assert.NoError(t, err)
		assert.Len(t, got, 3)
	})
}

func TestDeleteChatRemovesMessages(t *testing.T) {
	svc, store, userId := newChatFixture(t)
	chat, err := svc.Create(context.Background(), userId, &dto.CreateChatRequest{})
	assert.NoError(t, err)

	_, err = svc.AppendMessage(context.Background(), userId, chat.Id, &dto.AppendMessageRequest{Content: "doomed"})
	assert.NoError(t, err)

	assert.NoError(t, svc.Delete(context.Background(), userId, chat.Id))

	store.mu.Lock()
	_, chatAlive := store.chats[chat.Id]
	msgs := store.messages[chat.Id]
	store.mu.Unlock()
	assert.False(t, chatAlive)
	assert.Empty(t, msgs)
}

func TestHandleSendMessageValidatesContent(t *testing.T) {
	svc, _, userId := newChatFixture(t)
	chat, err := svc.Create(context.Background(), userId, &dto.CreateChatRequest{})
	assert.NoError(t, err)

	err = svc.HandleSendMessage(context.Background(), userId, chat.Id, "   ", nil)
	var apiErr *serverutils.ApiError
	assert.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 400, apiErr.Code)

	assert.NoError(t, svc.HandleSendMessage(context.Background(), userId, chat.Id, "hello", nil))

	detail, err := svc.Show(context.Background(), userId, chat.Id)
	assert.NoError(t, err)
	assert.Len(t, detail.Messages, 1)
}
