package service

import (
	"context"
	"fmt"
	"time"

	"ai-chat-be/internal/pkg/logger"
	"ai-chat-be/internal/pkg/mailer"
	"ai-chat-be/internal/repository/specification"
	"ai-chat-be/internal/repository/unitofwork"
	"ai-chat-be/internal/websocket"
	"ai-chat-be/pkg/events"
	pktNats "ai-chat-be/pkg/nats"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
)

const (
	// One notification mail per chat/recipient pair per window.
	emailThrottleWindow = 15 * time.Minute

	previewLength = 120
)

// INotificationService consumes durable chat events and emails participants
// who were offline when a message landed. Online delivery is the realtime
// service's job; this path only covers the ones the hub could not reach.
type INotificationService interface {
	Start() error
}

type notificationService struct {
	subscriber   *pktNats.Subscriber
	uowFactory   unitofwork.RepositoryFactory
	emailService mailer.IEmailService
	hub          *websocket.Hub
	throttle     *gocache.Cache
	logger       logger.ILogger
}

func NewNotificationService(
	subscriber *pktNats.Subscriber,
	uowFactory unitofwork.RepositoryFactory,
	emailService mailer.IEmailService,
	hub *websocket.Hub,
	log logger.ILogger,
) INotificationService {
	return &notificationService{
		subscriber:   subscriber,
		uowFactory:   uowFactory,
		emailService: emailService,
		hub:          hub,
		throttle:     gocache.New(emailThrottleWindow, 2*emailThrottleWindow),
		logger:       log,
	}
}

func (s *notificationService) Start() error {
	subject := "events." + events.TypeMessageAppended
	return s.subscriber.Subscribe(subject, "chat-notifications", s.handleMessageAppended)
}

func (s *notificationService) handleMessageAppended(ctx context.Context, event events.Event) error {
	payload := event.Payload()

	chatId, _ := payload["chat_id"].(string)
	chatTitle, _ := payload["chat_title"].(string)
	senderId, _ := payload["sender_id"].(string)
	content, _ := payload["content"].(string)
	isAI, _ := payload["is_ai"].(bool)

	rawParticipants, _ := payload["participants"].([]interface{})
	if len(rawParticipants) == 0 {
		return nil
	}

	senderName := "AI"
	if !isAI && senderId != "" {
		if name, err := s.resolveUsername(ctx, senderId); err == nil {
			senderName = name
		}
	}

	preview := content
	if len(preview) > previewLength {
		preview = preview[:previewLength] + "..."
	}

	for _, raw := range rawParticipants {
		idStr, ok := raw.(string)
		if !ok || idStr == senderId {
			continue
		}
		userId, err := uuid.Parse(idStr)
		if err != nil {
			continue
		}
		if s.hub != nil && s.hub.IsOnline(userId) {
			continue
		}

		throttleKey := fmt.Sprintf("%s:%s", chatId, idStr)
		if _, found := s.throttle.Get(throttleKey); found {
			continue
		}

		if err := s.notifyByEmail(ctx, userId, chatTitle, senderName, preview); err != nil {
			s.logger.Warn("Notification", "Failed to send offline notice", map[string]interface{}{
				"user_id": idStr,
				"error":   err.Error(),
			})
			continue
		}
		s.throttle.SetDefault(throttleKey, struct{}{})
	}

	return nil
}

func (s *notificationService) resolveUsername(ctx context.Context, id string) (string, error) {
	userId, err := uuid.Parse(id)
	if err != nil {
		return "", err
	}
	uow := s.uowFactory.NewUnitOfWork(ctx)
	user, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: userId})
	if err != nil || user == nil {
		return "", fmt.Errorf("user %s not found", id)
	}
	return user.Username, nil
}

func (s *notificationService) notifyByEmail(ctx context.Context, userId uuid.UUID, chatTitle, senderName, preview string) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	user, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: userId})
	if err != nil {
		return err
	}
	if user == nil {
		return nil
	}
	return s.emailService.SendNewMessageNotice(user.Email, chatTitle, senderName, preview)
}
