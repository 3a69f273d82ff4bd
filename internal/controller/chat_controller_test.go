package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"ai-chat-be/internal/dto"
	"ai-chat-be/internal/pkg/serverutils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

// fakeChatService scripts service outcomes per method so the tests exercise
// only the HTTP surface: routing, auth, parsing and the response envelope.
type fakeChatService struct {
	createFn   func(userId uuid.UUID, req *dto.CreateChatRequest) (*dto.ChatSummaryResponse, error)
	showFn     func(userId, chatId uuid.UUID) (*dto.ChatDetailResponse, error)
	renameFn   func(userId, chatId uuid.UUID, req *dto.RenameChatRequest) (*dto.ChatSummaryResponse, error)
	appendFn   func(userId, chatId uuid.UUID, req *dto.AppendMessageRequest) (*dto.MessageResponse, error)
	messagesFn func(userId, chatId uuid.UUID, lastMessageId *uuid.UUID) ([]dto.MessageResponse, error)
}

func (f *fakeChatService) Create(ctx context.Context, userId uuid.UUID, req *dto.CreateChatRequest) (*dto.ChatSummaryResponse, error) {
	return f.createFn(userId, req)
}

func (f *fakeChatService) List(ctx context.Context, userId uuid.UUID) ([]*dto.ChatSummaryResponse, error) {
	return nil, nil
}

func (f *fakeChatService) Show(ctx context.Context, userId, chatId uuid.UUID) (*dto.ChatDetailResponse, error) {
	return f.showFn(userId, chatId)
}

func (f *fakeChatService) Rename(ctx context.Context, userId, chatId uuid.UUID, req *dto.RenameChatRequest) (*dto.ChatSummaryResponse, error) {
	return f.renameFn(userId, chatId, req)
}

func (f *fakeChatService) Delete(ctx context.Context, userId, chatId uuid.UUID) error {
	return nil
}

func (f *fakeChatService) AppendMessage(ctx context.Context, userId, chatId uuid.UUID, req *dto.AppendMessageRequest) (*dto.MessageResponse, error) {
	return f.appendFn(userId, chatId, req)
}

func (f *fakeChatService) AppendAIMessage(ctx context.Context, chatId uuid.UUID, content string) (*dto.MessageResponse, error) {
	return nil, nil
}

func (f *fakeChatService) Messages(ctx context.Context, userId, chatId uuid.UUID, lastMessageId *uuid.UUID) ([]dto.MessageResponse, error) {
	return f.messagesFn(userId, chatId, lastMessageId)
}

func (f *fakeChatService) CanAccessChat(ctx context.Context, userId, chatId uuid.UUID) error {
	return nil
}

func (f *fakeChatService) HandleSendMessage(ctx context.Context, userId, chatId uuid.UUID, content string, attachments []dto.AttachmentPayload) error {
	return nil
}

func newChatApp(svc *fakeChatService) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use(serverutils.ErrorHandlerMiddleware())
	NewChatController(svc).RegisterRoutes(app.Group("/api"))
	return app
}

func authHeader(t *testing.T, userId uuid.UUID) string {
	t.Helper()
	os.Setenv("JWT_SECRET", "test-secret")
	token, err := serverutils.IssueToken(userId, time.Hour)
	assert.NoError(t, err)
	return "Bearer " + token
}

func doJSON(t *testing.T, app *fiber.App, method, path, auth string, body interface{}) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		assert.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	resp, err := app.Test(req)
	assert.NoError(t, err)
	return resp
}

func decodeEnvelope(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestChatRoutesRequireToken(t *testing.T) {
	app := newChatApp(&fakeChatService{})

	resp := doJSON(t, app, "GET", "/api/chat", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp = doJSON(t, app, "GET", "/api/chat", "Bearer not-a-token", nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestCreateChatReturns201(t *testing.T) {
	userId := uuid.New()
	chatId := uuid.New()
	svc := &fakeChatService{
		createFn: func(gotUser uuid.UUID, req *dto.CreateChatRequest) (*dto.ChatSummaryResponse, error) {
			assert.Equal(t, userId, gotUser)
			assert.Equal(t, "Trip planning", req.Title)
			return &dto.ChatSummaryResponse{Id: chatId, Title: req.Title}, nil
		},
	}
	app := newChatApp(svc)

	resp := doJSON(t, app, "POST", "/api/chat", authHeader(t, userId), fiber.Map{"title": "Trip planning"})
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	body := decodeEnvelope(t, resp)
	assert.Equal(t, true, body["success"])
	data := body["data"].(map[string]interface{})
	assert.Equal(t, chatId.String(), data["id"])
}

func TestCreateChatAcceptsEmptyBody(t *testing.T) {
	userId := uuid.New()
	svc := &fakeChatService{
		createFn: func(gotUser uuid.UUID, req *dto.CreateChatRequest) (*dto.ChatSummaryResponse, error) {
			assert.Empty(t, req.Title)
			return &dto.ChatSummaryResponse{Id: uuid.New()}, nil
		},
	}
	app := newChatApp(svc)

	resp := doJSON(t, app, "POST", "/api/chat", authHeader(t, userId), nil)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
}

func TestShowChatErrorTaxonomy(t *testing.T) {
	userId := uuid.New()

	tests := []struct {
		name       string
		serviceErr error
		wantStatus int
	}{
		{name: "missing chat", serviceErr: serverutils.NewNotFoundError("Chat not found"), wantStatus: 404},
		{name: "outsider", serviceErr: serverutils.NewForbiddenError("You are not a participant in this chat"), wantStatus: 403},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeChatService{
				showFn: func(_, _ uuid.UUID) (*dto.ChatDetailResponse, error) {
					return nil, tt.serviceErr
				},
			}
			app := newChatApp(svc)

			resp := doJSON(t, app, "GET", "/api/chat/"+uuid.NewString(), authHeader(t, userId), nil)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			body := decodeEnvelope(t, resp)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, float64(tt.wantStatus), body["code"])
		})
	}
}

func TestShowChatRejectsMalformedId(t *testing.T) {
	app := newChatApp(&fakeChatService{})

	resp := doJSON(t, app, "GET", "/api/chat/not-a-uuid", authHeader(t, uuid.New()), nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestAppendMessageValidatesContent(t *testing.T) {
	app := newChatApp(&fakeChatService{})

	resp := doJSON(t, app, "POST", fmt.Sprintf("/api/chat/%s/messages", uuid.NewString()),
		authHeader(t, uuid.New()), fiber.Map{"content": ""})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestAppendMessageReturns201(t *testing.T) {
	userId := uuid.New()
	chatId := uuid.New()
	svc := &fakeChatService{
		appendFn: func(gotUser, gotChat uuid.UUID, req *dto.AppendMessageRequest) (*dto.MessageResponse, error) {
			assert.Equal(t, userId, gotUser)
			assert.Equal(t, chatId, gotChat)
			return &dto.MessageResponse{Id: uuid.New(), ChatId: gotChat, Content: req.Content}, nil
		},
	}
	app := newChatApp(svc)

	resp := doJSON(t, app, "POST", fmt.Sprintf("/api/chat/%s/messages", chatId),
		authHeader(t, userId), fiber.Map{"content": "hello"})
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
}

func TestMessagesCursorParsing(t *testing.T) {
	userId := uuid.New()
	chatId := uuid.New()
	cursor := uuid.New()

	var gotCursor *uuid.UUID
	svc := &fakeChatService{
		messagesFn: func(_, _ uuid.UUID, lastMessageId *uuid.UUID) ([]dto.MessageResponse, error) {
			gotCursor = lastMessageId
			return []dto.MessageResponse{}, nil
		},
	}
	app := newChatApp(svc)

	resp := doJSON(t, app, "GET", fmt.Sprintf("/api/chat/%s/messages?lastMessageId=%s", chatId, cursor),
		authHeader(t, userId), nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.NotNil(t, gotCursor)
	assert.Equal(t, cursor, *gotCursor)

	resp = doJSON(t, app, "GET", fmt.Sprintf("/api/chat/%s/messages", chatId), authHeader(t, userId), nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Nil(t, gotCursor)

	resp = doJSON(t, app, "GET", fmt.Sprintf("/api/chat/%s/messages?lastMessageId=junk", chatId), authHeader(t, userId), nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestRenameChatEnvelope(t *testing.T) {
	userId := uuid.New()
	chatId := uuid.New()
	svc := &fakeChatService{
		renameFn: func(_, _ uuid.UUID, req *dto.RenameChatRequest) (*dto.ChatSummaryResponse, error) {
			return &dto.ChatSummaryResponse{Id: chatId, Title: req.Title}, nil
		},
	}
	app := newChatApp(svc)

	resp := doJSON(t, app, "PATCH", "/api/chat/"+chatId.String(), authHeader(t, userId), fiber.Map{"title": "Renamed"})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decodeEnvelope(t, resp)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "Renamed", data["title"])
}
