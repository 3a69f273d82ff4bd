package mapper

import (
	"encoding/json"

	"ai-chat-be/internal/entity"
	"ai-chat-be/internal/model"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type ChatMapper struct{}

func NewChatMapper() *ChatMapper {
	return &ChatMapper{}
}

func (m *ChatMapper) ChatToEntity(c *model.Chat) *entity.Chat {
	if c == nil {
		return nil
	}

	participants := make([]uuid.UUID, len(c.Participants))
	for i, p := range c.Participants {
		participants[i] = p.UserId
	}

	messages := make([]entity.Message, len(c.Messages))
	for i := range c.Messages {
		messages[i] = *m.MessageToEntity(&c.Messages[i])
	}

	return &entity.Chat{
		Id:           c.Id,
		Title:        c.Title,
		Participants: participants,
		Messages:     messages,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

func (m *ChatMapper) ChatToModel(c *entity.Chat) *model.Chat {
	if c == nil {
		return nil
	}

	participants := make([]model.ChatParticipant, len(c.Participants))
	for i, userId := range c.Participants {
		participants[i] = model.ChatParticipant{ChatId: c.Id, UserId: userId}
	}

	messages := make([]model.ChatMessage, len(c.Messages))
	for i := range c.Messages {
		messages[i] = *m.MessageToModel(&c.Messages[i])
	}

	return &model.Chat{
		Id:           c.Id,
		Title:        c.Title,
		Participants: participants,
		Messages:     messages,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

func (m *ChatMapper) MessageToEntity(msg *model.ChatMessage) *entity.Message {
	if msg == nil {
		return nil
	}

	var attachments []entity.Attachment
	if len(msg.Attachments) > 0 {
		// Attachment descriptors are stored as a JSON array; a corrupt column
		// yields an empty list rather than a failed read.
		_ = json.Unmarshal(msg.Attachments, &attachments)
	}

	return &entity.Message{
		Id:          msg.Id,
		ChatId:      msg.ChatId,
		SenderId:    msg.SenderId,
		Content:     msg.Content,
		IsAI:        msg.IsAI,
		Timestamp:   msg.Timestamp,
		Attachments: attachments,
	}
}

func (m *ChatMapper) MessageToModel(msg *entity.Message) *model.ChatMessage {
	if msg == nil {
		return nil
	}

	var attachments datatypes.JSON
	if len(msg.Attachments) > 0 {
		data, err := json.Marshal(msg.Attachments)
		if err == nil {
			attachments = datatypes.JSON(data)
		}
	}

	return &model.ChatMessage{
		Id:          msg.Id,
		ChatId:      msg.ChatId,
		SenderId:    msg.SenderId,
		Content:     msg.Content,
		IsAI:        msg.IsAI,
		Timestamp:   msg.Timestamp,
		Attachments: attachments,
	}
}

func (m *ChatMapper) MessagesToEntities(models []*model.ChatMessage) []*entity.Message {
	entities := make([]*entity.Message, len(models))
	for i, msg := range models {
		entities[i] = m.MessageToEntity(msg)
	}
	return entities
}
