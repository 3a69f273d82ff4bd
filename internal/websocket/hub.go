package websocket

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"ai-chat-be/internal/dto"
	"ai-chat-be/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// InboundHandler processes frames that require domain logic. It is implemented
// by the chat service and injected after construction to avoid a dependency
// cycle between the hub and the service layer.
type InboundHandler interface {
	// CanAccessChat reports whether the user may join the chat's room.
	CanAccessChat(ctx context.Context, userId, chatId uuid.UUID) error

	// HandleSendMessage persists a socket-originated message. Fan-out happens
	// through the regular append pipeline, not here.
	HandleSendMessage(ctx context.Context, userId, chatId uuid.UUID, content string, attachments []dto.AttachmentPayload) error
}

type Hub struct {
	// Registered clients map: UserID -> List of Clients (multi-device)
	clients map[uuid.UUID][]*Client

	// Chat rooms: ChatID -> set of clients that joined it
	rooms map[string]map[*Client]struct{}

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Lock for safe map access
	mu sync.RWMutex

	// Redis connection for cross-instance communication
	rdb *redis.Client

	// Distinguishes our own Redis publishes from other instances'
	instanceId string

	handler InboundHandler

	logger logger.ILogger
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[uuid.UUID][]*Client),
		rooms:      make(map[string]map[*Client]struct{}),
		rdb:        rdb,
		instanceId: uuid.NewString(),
		logger:     log,
	}
}

// SetInboundHandler must be called before Run.
func (h *Hub) SetInboundHandler(handler InboundHandler) {
	h.handler = handler
}

func (h *Hub) Run() {
	if h.rdb != nil {
		go h.subscribeToRedis()
	}

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.UserID] = append(h.clients[client.UserID], client)
			h.mu.Unlock()
			h.logger.Info("Hub", "Client registered", map[string]interface{}{"user_id": client.UserID})

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.clients[client.UserID]; ok {
				for i, c := range clients {
					if c == client {
						h.clients[client.UserID] = append(clients[:i], clients[i+1:]...)
						client.closeSend()
						break
					}
				}
				if len(h.clients[client.UserID]) == 0 {
					delete(h.clients, client.UserID)
				}
			}
			// Drop the client from every room it joined.
			for chatId, members := range h.rooms {
				if _, ok := members[client]; ok {
					delete(members, client)
					if len(members) == 0 {
						delete(h.rooms, chatId)
					}
				}
			}
			h.mu.Unlock()
			h.logger.Info("Hub", "Client unregistered", map[string]interface{}{"user_id": client.UserID})
		}
	}
}

// IsOnline reports whether the user has at least one connection on this
// instance. Cross-instance presence is not tracked; callers treat "offline"
// as best-effort.
func (h *Hub) IsOnline(userID uuid.UUID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID]) > 0
}

func (h *Hub) joinRoom(client *Client, chatId string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[chatId] == nil {
		h.rooms[chatId] = make(map[*Client]struct{})
	}
	h.rooms[chatId][client] = struct{}{}
}

func (h *Hub) leaveRoom(client *Client, chatId string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if members, ok := h.rooms[chatId]; ok {
		delete(members, client)
		if len(members) == 0 {
			delete(h.rooms, chatId)
		}
	}
}

func (h *Hub) deliver(client *Client, data []byte) {
	if client.trySend(data) {
		return
	}
	// Drop the frame and queue a disconnect. Run is the only closer of
	// Send; closing here would race a second close when the unregister
	// lands.
	h.logger.Warn("Hub", "Client send buffer full, dropping connection", map[string]interface{}{"user_id": client.UserID})
	go func() { h.unregister <- client }()
}

// EmitToChat sends an event to every client that joined the chat's room,
// on this instance and (via Redis) on every other instance.
func (h *Hub) EmitToChat(chatId string, event string, payload interface{}) {
	data, err := NewEnvelope(event, payload)
	if err != nil {
		h.logger.Error("Hub", "Failed to encode event", map[string]interface{}{"event": event, "error": err.Error()})
		return
	}

	h.emitToLocalRoom(chatId, nil, data)
	h.mirror(map[string]interface{}{
		"origin":         h.instanceId,
		"target_chat_id": chatId,
		"message":        json.RawMessage(data),
	})
}

// EmitToChatExcept behaves like EmitToChat but skips one local connection,
// used for typing indicators so senders don't see their own event.
func (h *Hub) EmitToChatExcept(chatId string, except *Client, event string, payload interface{}) {
	data, err := NewEnvelope(event, payload)
	if err != nil {
		return
	}

	h.emitToLocalRoom(chatId, except, data)
	h.mirror(map[string]interface{}{
		"origin":         h.instanceId,
		"target_chat_id": chatId,
		"message":        json.RawMessage(data),
	})
}

// EmitToUser sends an event to all of a user's connections regardless of rooms.
func (h *Hub) EmitToUser(userID uuid.UUID, event string, payload interface{}) {
	data, err := NewEnvelope(event, payload)
	if err != nil {
		return
	}

	h.mu.RLock()
	clients := append([]*Client(nil), h.clients[userID]...)
	h.mu.RUnlock()

	for _, client := range clients {
		h.deliver(client, data)
	}

	h.mirror(map[string]interface{}{
		"origin":         h.instanceId,
		"target_user_id": userID.String(),
		"message":        json.RawMessage(data),
	})
}

// Broadcast sends an event to every connected client.
func (h *Hub) Broadcast(event string, payload interface{}) {
	data, err := NewEnvelope(event, payload)
	if err != nil {
		return
	}

	h.mu.RLock()
	var all []*Client
	for _, clients := range h.clients {
		all = append(all, clients...)
	}
	h.mu.RUnlock()

	for _, client := range all {
		h.deliver(client, data)
	}

	h.mirror(map[string]interface{}{
		"origin":         h.instanceId,
		"target_user_id": "*",
		"message":        json.RawMessage(data),
	})
}

func (h *Hub) emitToLocalRoom(chatId string, except *Client, data []byte) {
	h.mu.RLock()
	var members []*Client
	for client := range h.rooms[chatId] {
		if client != except {
			members = append(members, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range members {
		h.deliver(client, data)
	}
}

func (h *Hub) mirror(payload map[string]interface{}) {
	if h.rdb == nil {
		return
	}
	jsonPayload, _ := json.Marshal(payload)
	h.rdb.Publish(context.Background(), "cluster_events", jsonPayload)
}

func (h *Hub) subscribeToRedis() {
	ctx := context.Background()
	pubsub := h.rdb.Subscribe(ctx, "cluster_events")
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		var payload struct {
			Origin       string          `json:"origin"`
			TargetChatID string          `json:"target_chat_id"`
			TargetUserID string          `json:"target_user_id"`
			Message      json.RawMessage `json:"message"`
		}
		if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
			log.Printf("Redis msg parse error: %v", err)
			continue
		}

		// Skip our own publishes; local delivery already happened.
		if payload.Origin == h.instanceId {
			continue
		}

		if payload.TargetChatID != "" {
			h.emitToLocalRoom(payload.TargetChatID, nil, payload.Message)
			continue
		}

		if payload.TargetUserID == "*" {
			h.mu.RLock()
			var all []*Client
			for _, clients := range h.clients {
				all = append(all, clients...)
			}
			h.mu.RUnlock()
			for _, client := range all {
				h.deliver(client, payload.Message)
			}
			continue
		}

		uid, err := uuid.Parse(payload.TargetUserID)
		if err != nil {
			continue
		}

		h.mu.RLock()
		clients := append([]*Client(nil), h.clients[uid]...)
		h.mu.RUnlock()
		for _, client := range clients {
			h.deliver(client, payload.Message)
		}
	}
}
