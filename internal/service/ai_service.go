package service

import (
	"context"
	"fmt"

	"ai-chat-be/internal/constant"
	"ai-chat-be/internal/dto"
	"ai-chat-be/internal/pkg/logger"
	"ai-chat-be/internal/repository/unitofwork"
	"ai-chat-be/pkg/llm"

	"github.com/google/uuid"
)

type IAiService interface {
	// SendMessage runs one blocking completion over the chat's recent history
	// and persists the reply. Upstream failures degrade to a fixed apology
	// with a warning flag; the caller always gets a message back.
	SendMessage(ctx context.Context, userId uuid.UUID, req *dto.AiMessageRequest) (*dto.AiMessageResponse, error)

	// StreamMessage relays completion fragments through onChunk as they
	// arrive and persists a single AI message once the stream ends cleanly.
	// A mid-stream failure persists nothing and returns the error.
	StreamMessage(ctx context.Context, userId uuid.UUID, req *dto.AiMessageRequest, onChunk llm.StreamHandler) (*dto.MessageResponse, error)

	// AnalyzeFile summarizes pasted file content. Stateless: nothing is
	// persisted, failures degrade to a fallback summary.
	AnalyzeFile(ctx context.Context, req *dto.AnalyzeFileRequest) (*dto.AnalyzeFileResponse, error)
}

type aiService struct {
	uowFactory  unitofwork.RepositoryFactory
	chatService IChatService
	provider    llm.LLMProvider
	logger      logger.ILogger
}

func NewAiService(
	uowFactory unitofwork.RepositoryFactory,
	chatService IChatService,
	provider llm.LLMProvider,
	log logger.ILogger,
) IAiService {
	return &aiService{
		uowFactory:  uowFactory,
		chatService: chatService,
		provider:    provider,
		logger:      log,
	}
}

// buildHistory assembles the provider conversation: system prompt head, the
// last stored messages in chronological order, then the new user message.
func (s *aiService) buildHistory(ctx context.Context, chatId uuid.UUID, userMessage string) ([]llm.Message, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	recent, err := uow.ChatMessageRepository().FindLast(ctx, chatId, constant.HistoryWindow)
	if err != nil {
		return nil, err
	}

	history := make([]llm.Message, 0, len(recent)+2)
	history = append(history, llm.Message{Role: "system", Content: constant.ChatSystemPrompt})
	for _, msg := range recent {
		role := "user"
		if msg.IsAI {
			role = "assistant"
		}
		history = append(history, llm.Message{Role: role, Content: msg.Content})
	}
	history = append(history, llm.Message{Role: "user", Content: userMessage})

	return history, nil
}

func (s *aiService) SendMessage(ctx context.Context, userId uuid.UUID, req *dto.AiMessageRequest) (*dto.AiMessageResponse, error) {
	if err := s.chatService.CanAccessChat(ctx, userId, req.ChatId); err != nil {
		return nil, err
	}

	history, err := s.buildHistory(ctx, req.ChatId, req.Message)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, constant.BlockingTimeout)
	defer cancel()

	content, warning := "", ""
	content, err = s.provider.Chat(callCtx, history)
	if err != nil {
		s.logger.Warn("AiService", "Completion failed, using fallback", map[string]interface{}{
			"chat_id": req.ChatId,
			"error":   err.Error(),
		})
		content = constant.FallbackReply
		warning = constant.WarningAIUnavailable
	}

	message, err := s.chatService.AppendAIMessage(ctx, req.ChatId, content)
	if err != nil {
		return nil, err
	}

	return &dto.AiMessageResponse{Message: *message, Warning: warning}, nil
}

func (s *aiService) StreamMessage(ctx context.Context, userId uuid.UUID, req *dto.AiMessageRequest, onChunk llm.StreamHandler) (*dto.MessageResponse, error) {
	if err := s.chatService.CanAccessChat(ctx, userId, req.ChatId); err != nil {
		return nil, err
	}

	history, err := s.buildHistory(ctx, req.ChatId, req.Message)
	if err != nil {
		return nil, err
	}

	full, err := s.provider.ChatStream(ctx, history, onChunk)
	if err != nil {
		s.logger.Warn("AiService", "Stream failed, nothing persisted", map[string]interface{}{
			"chat_id": req.ChatId,
			"error":   err.Error(),
		})
		return nil, err
	}

	return s.chatService.AppendAIMessage(ctx, req.ChatId, full)
}

func (s *aiService) AnalyzeFile(ctx context.Context, req *dto.AnalyzeFileRequest) (*dto.AnalyzeFileResponse, error) {
	content := req.FileContent
	if len(content) > constant.MaxFileContentChars {
		content = content[:constant.MaxFileContentChars] + constant.TruncationMarker
	}

	prompt := fmt.Sprintf("Please analyze this file:\n\nFile Name: %s\nFile Type: %s\n\nContent:\n%s",
		req.FileName, req.FileType, content)

	history := []llm.Message{
		{Role: "system", Content: constant.FileSystemPrompt},
		{Role: "user", Content: prompt},
	}

	callCtx, cancel := context.WithTimeout(ctx, constant.BlockingTimeout)
	defer cancel()

	analysis, warning := "", ""
	analysis, err := s.provider.Chat(callCtx, history)
	if err != nil {
		s.logger.Warn("AiService", "File analysis failed, using fallback", map[string]interface{}{
			"file_name": req.FileName,
			"error":     err.Error(),
		})
		analysis = constant.FallbackAnalysis
		warning = constant.WarningAIUnavailable
	}

	return &dto.AnalyzeFileResponse{
		FileName: req.FileName,
		FileType: req.FileType,
		Analysis: analysis,
		Warning:  warning,
	}, nil
}
