package service

import (
	"context"
	"errors"
	"testing"

	"ai-chat-be/internal/dto"
	"ai-chat-be/internal/pkg/serverutils"

	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/bcrypt"
)

type stubMailer struct{}

func (stubMailer) SendWelcome(toEmail, username string) error { return nil }
func (stubMailer) SendNewMessageNotice(toEmail, chatTitle, senderName, preview string) error {
	return nil
}

func newAuthFixture() (IAuthService, *memStore) {
	store := newMemStore()
	return NewAuthService(newMemFactory(store), stubMailer{}, nil), store
}

func TestRegisterHashesPassword(t *testing.T) {
	svc, store := newAuthFixture()

	resp, err := svc.Register(context.Background(), &dto.RegisterRequest{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "hunter2hunter2",
	})
	assert.NoError(t, err)
	assert.Equal(t, "alice", resp.Username)

	store.mu.Lock()
	user := store.users[resp.Id]
	store.mu.Unlock()
	assert.NotNil(t, user)
	assert.NotNil(t, user.PasswordHash)
	assert.NotEqual(t, "hunter2hunter2", *user.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte("hunter2hunter2")))
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	svc, _ := newAuthFixture()

	_, err := svc.Register(context.Background(), &dto.RegisterRequest{
		Username: "alice", Email: "alice@example.com", Password: "hunter2hunter2",
	})
	assert.NoError(t, err)

	t.Run("same email", func(t *testing.T) {
		_, err := svc.Register(context.Background(), &dto.RegisterRequest{
			Username: "alice2", Email: "alice@example.com", Password: "hunter2hunter2",
		})
		var apiErr *serverutils.ApiError
		assert.True(t, errors.As(err, &apiErr))
		assert.Equal(t, 400, apiErr.Code)
	})

	t.Run("same username", func(t *testing.T) {
		_, err := svc.Register(context.Background(), &dto.RegisterRequest{
			Username: "alice", Email: "other@example.com", Password: "hunter2hunter2",
		})
		var apiErr *serverutils.ApiError
		assert.True(t, errors.As(err, &apiErr))
		assert.Equal(t, 400, apiErr.Code)
	})
}

func TestLoginOutcomes(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	svc, _ := newAuthFixture()
	_, err := svc.Register(context.Background(), &dto.RegisterRequest{
		Username: "alice", Email: "alice@example.com", Password: "hunter2hunter2",
	})
	assert.NoError(t, err)

	t.Run("valid credentials", func(t *testing.T) {
		resp, err := svc.Login(context.Background(), &dto.LoginRequest{
			Email: "alice@example.com", Password: "hunter2hunter2",
		})
		assert.NoError(t, err)
		assert.NotEmpty(t, resp.AccessToken)
		assert.Equal(t, "alice", resp.User.Username)

		userId, err := serverutils.ParseToken(resp.AccessToken)
		assert.NoError(t, err)
		assert.Equal(t, resp.User.Id, userId)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Login(context.Background(), &dto.LoginRequest{
			Email: "alice@example.com", Password: "wrong-password",
		})
		var apiErr *serverutils.ApiError
		assert.True(t, errors.As(err, &apiErr))
		assert.Equal(t, 401, apiErr.Code)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := svc.Login(context.Background(), &dto.LoginRequest{
			Email: "nobody@example.com", Password: "hunter2hunter2",
		})
		var apiErr *serverutils.ApiError
		assert.True(t, errors.As(err, &apiErr))
		assert.Equal(t, 401, apiErr.Code)
	})
}
