package service

import (
	"context"
	"encoding/json"

	"ai-chat-be/internal/dto"
	"ai-chat-be/internal/pkg/logger"
	"ai-chat-be/internal/websocket"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// IRealtimeService bridges the in-process bus to the websocket hub. REST
// appends and socket sends both land on the bus, so every delivery path
// shares one ordered fan-out.
type IRealtimeService interface {
	Consume(ctx context.Context) error
}

type realtimeService struct {
	pubSub      *gochannel.GoChannel
	appendTopic string
	updateTopic string
	hub         *websocket.Hub
	logger      logger.ILogger
}

func NewRealtimeService(
	pubSub *gochannel.GoChannel,
	appendTopic string,
	updateTopic string,
	hub *websocket.Hub,
	log logger.ILogger,
) IRealtimeService {
	return &realtimeService{
		pubSub:      pubSub,
		appendTopic: appendTopic,
		updateTopic: updateTopic,
		hub:         hub,
		logger:      log,
	}
}

func (s *realtimeService) Consume(ctx context.Context) error {
	appends, err := s.pubSub.Subscribe(ctx, s.appendTopic)
	if err != nil {
		return err
	}
	updates, err := s.pubSub.Subscribe(ctx, s.updateTopic)
	if err != nil {
		return err
	}

	go func() {
		for msg := range appends {
			s.processMessage(msg)
		}
	}()
	go func() {
		for msg := range updates {
			s.processUpdate(msg)
		}
	}()

	return nil
}

func (s *realtimeService) processMessage(msg *message.Message) {
	var event dto.MessageAppendedEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		s.logger.Error("Realtime", "Failed to unmarshal append event", map[string]interface{}{"error": err.Error()})
		msg.Ack() // malformed payloads are never retriable
		return
	}

	// Room members get the full message.
	s.hub.EmitToChat(event.ChatId.String(), websocket.EventNewMessage, event.Message)

	// Every participant gets a sidebar refresh, joined to the room or not.
	update := websocket.ChatUpdatedPayload{
		ChatId:      event.ChatId.String(),
		Title:       event.ChatTitle,
		LastMessage: &event.Message,
	}
	for _, participant := range event.Participants {
		s.hub.EmitToUser(participant, websocket.EventChatUpdated, update)
	}

	msg.Ack()
}

// processUpdate handles metadata-only changes such as renames: no room
// broadcast, just a sidebar refresh for every participant.
func (s *realtimeService) processUpdate(msg *message.Message) {
	var event dto.ChatUpdatedEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		s.logger.Error("Realtime", "Failed to unmarshal chat update event", map[string]interface{}{"error": err.Error()})
		msg.Ack()
		return
	}

	update := websocket.ChatUpdatedPayload{
		ChatId: event.ChatId.String(),
		Title:  event.Title,
	}
	for _, participant := range event.Participants {
		s.hub.EmitToUser(participant, websocket.EventChatUpdated, update)
	}

	msg.Ack()
}
