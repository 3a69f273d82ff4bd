package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"ai-chat-be/internal/constant"
	"ai-chat-be/internal/dto"
	"ai-chat-be/internal/entity"
	"ai-chat-be/internal/pkg/logger"
	"ai-chat-be/internal/pkg/serverutils"
	"ai-chat-be/internal/repository/specification"
	"ai-chat-be/internal/repository/unitofwork"
	"ai-chat-be/pkg/events"
	pktNats "ai-chat-be/pkg/nats"

	"github.com/google/uuid"
)

type IChatService interface {
	Create(ctx context.Context, userId uuid.UUID, req *dto.CreateChatRequest) (*dto.ChatSummaryResponse, error)
	List(ctx context.Context, userId uuid.UUID) ([]*dto.ChatSummaryResponse, error)
	Show(ctx context.Context, userId uuid.UUID, chatId uuid.UUID) (*dto.ChatDetailResponse, error)
	Rename(ctx context.Context, userId uuid.UUID, chatId uuid.UUID, req *dto.RenameChatRequest) (*dto.ChatSummaryResponse, error)
	Delete(ctx context.Context, userId uuid.UUID, chatId uuid.UUID) error
	AppendMessage(ctx context.Context, userId uuid.UUID, chatId uuid.UUID, req *dto.AppendMessageRequest) (*dto.MessageResponse, error)
	// AppendAIMessage persists an assistant-authored message. It bypasses the
	// participant check because the assistant is an implicit member of every chat.
	AppendAIMessage(ctx context.Context, chatId uuid.UUID, content string) (*dto.MessageResponse, error)
	// Messages returns a chat's messages in chronological order. When
	// lastMessageId is set, only messages after it are returned; an unknown
	// id falls back to the full history.
	Messages(ctx context.Context, userId uuid.UUID, chatId uuid.UUID, lastMessageId *uuid.UUID) ([]dto.MessageResponse, error)

	// CanAccessChat and HandleSendMessage serve socket-originated traffic.
	CanAccessChat(ctx context.Context, userId, chatId uuid.UUID) error
	HandleSendMessage(ctx context.Context, userId, chatId uuid.UUID, content string, attachments []dto.AttachmentPayload) error
}

type chatService struct {
	uowFactory       unitofwork.RepositoryFactory
	publisherService IPublisherService
	updatePublisher  IPublisherService
	eventPublisher   *pktNats.Publisher
	logger           logger.ILogger
}

func NewChatService(
	uowFactory unitofwork.RepositoryFactory,
	publisherService IPublisherService,
	updatePublisher IPublisherService,
	eventPublisher *pktNats.Publisher,
	log logger.ILogger,
) IChatService {
	return &chatService{
		uowFactory:       uowFactory,
		publisherService: publisherService,
		updatePublisher:  updatePublisher,
		eventPublisher:   eventPublisher,
		logger:           log,
	}
}

// authorize loads the chat and enforces the participant rule. Existence is
// checked before membership so outsiders get the same 404 as everyone else
// only when the chat is truly gone, and 403 when it exists without them.
func (s *chatService) authorize(ctx context.Context, uow unitofwork.UnitOfWork, userId, chatId uuid.UUID) (*entity.Chat, error) {
	chat, err := uow.ChatRepository().FindOne(ctx, specification.ByID{ID: chatId})
	if err != nil {
		return nil, serverutils.NewInternalError("Failed to load chat", err)
	}
	if chat == nil {
		return nil, serverutils.NewNotFoundError("Chat not found")
	}
	if !chat.HasParticipant(userId) {
		return nil, serverutils.NewForbiddenError("You are not a participant in this chat")
	}
	return chat, nil
}

func (s *chatService) Create(ctx context.Context, userId uuid.UUID, req *dto.CreateChatRequest) (*dto.ChatSummaryResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = constant.DefaultChatTitle
	}

	now := time.Now()
	chat := &entity.Chat{
		Id:           uuid.New(),
		Title:        title,
		Participants: []uuid.UUID{userId},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := uow.ChatRepository().Create(ctx, chat); err != nil {
		return nil, serverutils.NewInternalError("Failed to create chat", err)
	}

	return s.toSummary(ctx, uow, chat)
}

func (s *chatService) List(ctx context.Context, userId uuid.UUID) ([]*dto.ChatSummaryResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	chats, err := uow.ChatRepository().FindAll(ctx,
		specification.ByParticipant{UserID: userId},
		specification.OrderBy{Expression: "updated_at DESC"},
	)
	if err != nil {
		return nil, serverutils.NewInternalError("Failed to list chats", err)
	}

	summaries := make([]*dto.ChatSummaryResponse, 0, len(chats))
	for _, chat := range chats {
		summary, err := s.toSummary(ctx, uow, chat)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, summary)
	}

	return summaries, nil
}

func (s *chatService) Show(ctx context.Context, userId uuid.UUID, chatId uuid.UUID) (*dto.ChatDetailResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	chat, err := s.authorize(ctx, uow, userId, chatId)
	if err != nil {
		return nil, err
	}

	messages, err := uow.ChatMessageRepository().FindAll(ctx,
		specification.ByChatID{ChatID: chatId},
		specification.MessagesChronological{},
	)
	if err != nil {
		return nil, serverutils.NewInternalError("Failed to load messages", err)
	}

	users, err := s.loadUsers(ctx, uow, chat.Participants)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.MessageResponse, 0, len(messages))
	for _, msg := range messages {
		responses = append(responses, s.toMessageResponse(msg, users))
	}

	return &dto.ChatDetailResponse{
		Id:           chat.Id,
		Title:        chat.Title,
		Participants: s.toParticipants(chat.Participants, users),
		Messages:     responses,
		MessageCount: int64(len(responses)),
		CreatedAt:    chat.CreatedAt,
		UpdatedAt:    chat.UpdatedAt,
	}, nil
}

func (s *chatService) Rename(ctx context.Context, userId uuid.UUID, chatId uuid.UUID, req *dto.RenameChatRequest) (*dto.ChatSummaryResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	chat, err := s.authorize(ctx, uow, userId, chatId)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, serverutils.NewBadRequestError("Title must not be empty")
	}

	now := time.Now()
	if err := uow.ChatRepository().Rename(ctx, chatId, title, now); err != nil {
		return nil, serverutils.NewInternalError("Failed to rename chat", err)
	}

	chat.Title = title
	chat.UpdatedAt = now

	summary, err := s.toSummary(ctx, uow, chat)
	if err != nil {
		return nil, err
	}

	s.publishChatUpdated(ctx, chat)

	return summary, nil
}

func (s *chatService) Delete(ctx context.Context, userId uuid.UUID, chatId uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	if _, err := s.authorize(ctx, uow, userId, chatId); err != nil {
		return err
	}

	if err := uow.ChatRepository().Delete(ctx, chatId); err != nil {
		return serverutils.NewInternalError("Failed to delete chat", err)
	}

	return nil
}

func (s *chatService) AppendMessage(ctx context.Context, userId uuid.UUID, chatId uuid.UUID, req *dto.AppendMessageRequest) (*dto.MessageResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	chat, err := s.authorize(ctx, uow, userId, chatId)
	if err != nil {
		return nil, err
	}

	message := &entity.Message{
		Id:          uuid.New(),
		ChatId:      chatId,
		SenderId:    &userId,
		Content:     req.Content,
		IsAI:        false,
		Timestamp:   time.Now(),
		Attachments: toAttachmentEntities(req.Attachments),
	}

	response, err := s.commitMessage(ctx, uow, chat, message)
	if err != nil {
		return nil, err
	}

	s.publishAppended(ctx, chat, response)

	return response, nil
}

func (s *chatService) AppendAIMessage(ctx context.Context, chatId uuid.UUID, content string) (*dto.MessageResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	chat, err := uow.ChatRepository().FindOne(ctx, specification.ByID{ID: chatId})
	if err != nil {
		return nil, serverutils.NewInternalError("Failed to load chat", err)
	}
	if chat == nil {
		return nil, serverutils.NewNotFoundError("Chat not found")
	}

	message := &entity.Message{
		Id:        uuid.New(),
		ChatId:    chatId,
		Content:   content,
		IsAI:      true,
		Timestamp: time.Now(),
	}

	response, err := s.commitMessage(ctx, uow, chat, message)
	if err != nil {
		return nil, err
	}

	s.publishAppended(ctx, chat, response)

	return response, nil
}

// commitMessage writes the row and bumps the chat's updated_at in one
// transaction, so list ordering can never observe one without the other.
func (s *chatService) commitMessage(ctx context.Context, uow unitofwork.UnitOfWork, chat *entity.Chat, message *entity.Message) (*dto.MessageResponse, error) {
	if err := uow.Begin(ctx); err != nil {
		return nil, serverutils.NewInternalError("Failed to begin transaction", err)
	}
	defer uow.Rollback()

	if err := uow.ChatMessageRepository().Append(ctx, message); err != nil {
		return nil, serverutils.NewInternalError("Failed to append message", err)
	}
	if err := uow.ChatRepository().TouchUpdatedAt(ctx, chat.Id, message.Timestamp); err != nil {
		return nil, serverutils.NewInternalError("Failed to touch chat", err)
	}
	if err := uow.Commit(); err != nil {
		return nil, serverutils.NewInternalError("Failed to commit message", err)
	}

	chat.UpdatedAt = message.Timestamp

	users, err := s.loadUsers(ctx, uow, chat.Participants)
	if err != nil {
		return nil, err
	}

	response := s.toMessageResponse(message, users)
	return &response, nil
}

func (s *chatService) Messages(ctx context.Context, userId uuid.UUID, chatId uuid.UUID, lastMessageId *uuid.UUID) ([]dto.MessageResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	chat, err := s.authorize(ctx, uow, userId, chatId)
	if err != nil {
		return nil, err
	}

	messages, err := uow.ChatMessageRepository().FindAll(ctx,
		specification.ByChatID{ChatID: chatId},
		specification.MessagesChronological{},
	)
	if err != nil {
		return nil, serverutils.NewInternalError("Failed to load messages", err)
	}

	if lastMessageId != nil {
		// Slice strictly after the cursor; an unknown cursor means the
		// client's view is stale, so hand back everything.
		for i, msg := range messages {
			if msg.Id == *lastMessageId {
				messages = messages[i+1:]
				break
			}
		}
	}

	users, err := s.loadUsers(ctx, uow, chat.Participants)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.MessageResponse, 0, len(messages))
	for _, msg := range messages {
		responses = append(responses, s.toMessageResponse(msg, users))
	}

	return responses, nil
}

func (s *chatService) CanAccessChat(ctx context.Context, userId, chatId uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	_, err := s.authorize(ctx, uow, userId, chatId)
	return err
}

func (s *chatService) HandleSendMessage(ctx context.Context, userId, chatId uuid.UUID, content string, attachments []dto.AttachmentPayload) error {
	if strings.TrimSpace(content) == "" {
		return serverutils.NewBadRequestError("Message content must not be empty")
	}
	_, err := s.AppendMessage(ctx, userId, chatId, &dto.AppendMessageRequest{
		Content:     content,
		Attachments: attachments,
	})
	return err
}

func (s *chatService) toSummary(ctx context.Context, uow unitofwork.UnitOfWork, chat *entity.Chat) (*dto.ChatSummaryResponse, error) {
	count, err := uow.ChatMessageRepository().CountByChat(ctx, chat.Id)
	if err != nil {
		return nil, serverutils.NewInternalError("Failed to count messages", err)
	}

	last, err := uow.ChatMessageRepository().LastByChat(ctx, chat.Id)
	if err != nil {
		return nil, serverutils.NewInternalError("Failed to load last message", err)
	}

	users, err := s.loadUsers(ctx, uow, chat.Participants)
	if err != nil {
		return nil, err
	}

	summary := &dto.ChatSummaryResponse{
		Id:           chat.Id,
		Title:        chat.Title,
		Participants: s.toParticipants(chat.Participants, users),
		MessageCount: count,
		CreatedAt:    chat.CreatedAt,
		UpdatedAt:    chat.UpdatedAt,
	}
	if last != nil {
		response := s.toMessageResponse(last, users)
		summary.LastMessage = &response
	}

	return summary, nil
}

func (s *chatService) loadUsers(ctx context.Context, uow unitofwork.UnitOfWork, ids []uuid.UUID) (map[uuid.UUID]*entity.User, error) {
	result := make(map[uuid.UUID]*entity.User, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	users, err := uow.UserRepository().FindAll(ctx, specification.ByIDs{IDs: ids})
	if err != nil {
		return nil, serverutils.NewInternalError("Failed to load participants", err)
	}
	for _, user := range users {
		result[user.Id] = user
	}
	return result, nil
}

func (s *chatService) toParticipants(ids []uuid.UUID, users map[uuid.UUID]*entity.User) []dto.UserResponse {
	responses := make([]dto.UserResponse, 0, len(ids))
	for _, id := range ids {
		if user, ok := users[id]; ok {
			responses = append(responses, dto.UserResponse{
				Id:        user.Id,
				Username:  user.Username,
				AvatarURL: user.AvatarURL,
			})
		}
	}
	return responses
}

func (s *chatService) toMessageResponse(msg *entity.Message, users map[uuid.UUID]*entity.User) dto.MessageResponse {
	response := dto.MessageResponse{
		Id:          msg.Id,
		ChatId:      msg.ChatId,
		Content:     msg.Content,
		IsAI:        msg.IsAI,
		Timestamp:   msg.Timestamp,
		Attachments: toAttachmentPayloads(msg.Attachments),
	}

	if msg.IsAI {
		response.Sender = &dto.SenderResponse{Username: "AI"}
		return response
	}

	if msg.SenderId != nil {
		sender := &dto.SenderResponse{Id: msg.SenderId, Username: "Unknown"}
		if user, ok := users[*msg.SenderId]; ok {
			sender.Username = user.Username
			sender.AvatarURL = user.AvatarURL
		}
		response.Sender = sender
	}

	return response
}

func (s *chatService) publishAppended(ctx context.Context, chat *entity.Chat, message *dto.MessageResponse) {
	event := dto.MessageAppendedEvent{
		ChatId:       chat.Id,
		ChatTitle:    chat.Title,
		Message:      *message,
		Participants: chat.Participants,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("ChatService", "Failed to marshal append event", map[string]interface{}{"error": err.Error()})
		return
	}

	// In-process bus first: the hub fan-out must observe commit order.
	if s.publisherService != nil {
		if err := s.publisherService.Publish(ctx, payload); err != nil {
			s.logger.Error("ChatService", "Failed to publish append event", map[string]interface{}{"error": err.Error()})
		}
	}

	// Durable bus is auxiliary; failures never fail the request.
	if s.eventPublisher != nil {
		participants := make([]string, 0, len(chat.Participants))
		for _, p := range chat.Participants {
			participants = append(participants, p.String())
		}
		senderId := ""
		if message.Sender != nil && message.Sender.Id != nil {
			senderId = message.Sender.Id.String()
		}
		evt := events.NewMessageAppendedEvent(
			chat.Id.String(), chat.Title, message.Id.String(),
			senderId, message.Content, message.IsAI, participants,
		)
		if err := s.eventPublisher.Publish(ctx, evt); err != nil {
			s.logger.Warn("ChatService", "Failed to publish durable event", map[string]interface{}{"error": err.Error()})
		}
	}
}

// publishChatUpdated pushes a rename onto the in-process bus so sidebars
// refresh in real time. Renames carry no durable event; nothing downstream
// cares about them after the fact.
func (s *chatService) publishChatUpdated(ctx context.Context, chat *entity.Chat) {
	if s.updatePublisher == nil {
		return
	}
	event := dto.ChatUpdatedEvent{
		ChatId:       chat.Id,
		Title:        chat.Title,
		Participants: chat.Participants,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("ChatService", "Failed to marshal chat update event", map[string]interface{}{"error": err.Error()})
		return
	}
	if err := s.updatePublisher.Publish(ctx, payload); err != nil {
		s.logger.Warn("ChatService", "Failed to publish chat update event", map[string]interface{}{"error": err.Error()})
	}
}

func toAttachmentEntities(payloads []dto.AttachmentPayload) []entity.Attachment {
	if len(payloads) == 0 {
		return nil
	}
	attachments := make([]entity.Attachment, 0, len(payloads))
	for _, p := range payloads {
		attachments = append(attachments, entity.Attachment{
			Filename: p.Filename,
			Path:     p.Path,
			MimeType: p.MimeType,
		})
	}
	return attachments
}

func toAttachmentPayloads(attachments []entity.Attachment) []dto.AttachmentPayload {
	if len(attachments) == 0 {
		return nil
	}
	payloads := make([]dto.AttachmentPayload, 0, len(attachments))
	for _, a := range attachments {
		payloads = append(payloads, dto.AttachmentPayload{
			Filename: a.Filename,
			Path:     a.Path,
			MimeType: a.MimeType,
		})
	}
	return payloads
}
