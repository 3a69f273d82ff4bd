package service

import (
	"context"

	"ai-chat-be/internal/dto"
	"ai-chat-be/internal/pkg/serverutils"
	"ai-chat-be/internal/repository/specification"
	"ai-chat-be/internal/repository/unitofwork"

	"github.com/google/uuid"
)

type IUserService interface {
	Me(ctx context.Context, userId uuid.UUID) (*dto.UserResponse, error)
	Username(ctx context.Context, userId uuid.UUID) (string, error)
}

type userService struct {
	uowFactory unitofwork.RepositoryFactory
}

func NewUserService(uowFactory unitofwork.RepositoryFactory) IUserService {
	return &userService{uowFactory: uowFactory}
}

func (s *userService) Me(ctx context.Context, userId uuid.UUID) (*dto.UserResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	user, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: userId})
	if err != nil {
		return nil, serverutils.NewInternalError("Failed to load user", err)
	}
	if user == nil {
		return nil, serverutils.NewNotFoundError("User not found")
	}

	return &dto.UserResponse{
		Id:        user.Id,
		Username:  user.Username,
		Email:     user.Email,
		AvatarURL: user.AvatarURL,
	}, nil
}

// Username resolves a display name for the websocket handshake; it returns
// an empty string rather than failing the upgrade.
func (s *userService) Username(ctx context.Context, userId uuid.UUID) (string, error) {
	user, err := s.Me(ctx, userId)
	if err != nil {
		return "", err
	}
	return user.Username, nil
}
