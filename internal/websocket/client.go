package websocket

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024

	inboundTimeout = 10 * time.Second
)

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	Hub *Hub

	// The websocket connection.
	Conn *websocket.Conn

	// UserID associated with this connection
	UserID uuid.UUID

	// Username for typing indicators
	Username string

	// Buffered channel of outbound messages.
	Send chan []byte

	// Serializes sends against the hub closing Send on unregister.
	sendMu sync.Mutex
	closed bool
}

// trySend queues a frame without blocking. It reports false when the buffer
// is full or the connection is already being torn down.
func (c *Client) trySend(data []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.Send <- data:
		return true
	default:
		return false
	}
}

// closeSend shuts the outbound channel exactly once. Only the hub's Run
// loop calls this.
func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.Send)
	}
}

// readPump pumps messages from the websocket connection to the hub.
func (c *Client) readPump() {
	defer func() {
		c.Hub.unregister <- c
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("readPump error for user %s: %v", c.UserID, err)
			}
			break
		}
		c.dispatch(raw)
	}
}

// dispatch handles one inbound frame. Errors are reported back on this
// connection only, never to the room.
func (c *Client) dispatch(raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.sendError("invalid frame")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), inboundTimeout)
	defer cancel()

	switch env.Event {
	case EventJoinChat:
		var payload JoinChatPayload
		if err := json.Unmarshal(env.Data, &payload); err != nil {
			c.sendError("invalid join_chat payload")
			return
		}
		chatId, err := uuid.Parse(payload.ChatId)
		if err != nil {
			c.sendError("invalid chat id")
			return
		}
		if c.Hub.handler != nil {
			if err := c.Hub.handler.CanAccessChat(ctx, c.UserID, chatId); err != nil {
				c.sendError(err.Error())
				return
			}
		}
		c.Hub.joinRoom(c, payload.ChatId)
		c.sendEvent(EventJoinedChat, JoinChatPayload{ChatId: payload.ChatId})

	case EventLeaveChat:
		var payload JoinChatPayload
		if err := json.Unmarshal(env.Data, &payload); err != nil {
			return
		}
		c.Hub.leaveRoom(c, payload.ChatId)

	case EventSendMessage:
		var payload SendMessagePayload
		if err := json.Unmarshal(env.Data, &payload); err != nil {
			c.sendError("invalid send_message payload")
			return
		}
		chatId, err := uuid.Parse(payload.ChatId)
		if err != nil {
			c.sendError("invalid chat id")
			return
		}
		if c.Hub.handler == nil {
			c.sendError("messaging unavailable")
			return
		}
		if err := c.Hub.handler.HandleSendMessage(ctx, c.UserID, chatId, payload.Content, payload.Attachments); err != nil {
			c.sendError(err.Error())
		}

	case EventTyping:
		var payload TypingPayload
		if err := json.Unmarshal(env.Data, &payload); err != nil {
			return
		}
		c.Hub.EmitToChatExcept(payload.ChatId, c, EventUserTyping, UserTypingPayload{
			ChatId:   payload.ChatId,
			UserId:   c.UserID.String(),
			Username: c.Username,
			IsTyping: payload.IsTyping,
		})

	default:
		c.sendError("unknown event: " + env.Event)
	}
}

func (c *Client) sendEvent(event string, payload interface{}) {
	data, err := NewEnvelope(event, payload)
	if err != nil {
		return
	}
	c.trySend(data)
}

func (c *Client) sendError(message string) {
	c.sendEvent(EventError, ErrorPayload{Message: message})
}

// writePump pumps messages from the hub to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
