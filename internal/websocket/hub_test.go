package websocket

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type testLogger struct{}

func (testLogger) Debug(module, message string, details map[string]interface{}) {}
func (testLogger) Info(module, message string, details map[string]interface{})  {}
func (testLogger) Warn(module, message string, details map[string]interface{})  {}
func (testLogger) Error(module, message string, details map[string]interface{}) {}
func (testLogger) Sync() error                                                  { return nil }

// newTestClient builds a client with a buffered Send channel and no real
// connection; the hub only touches Send.
func newTestClient(hub *Hub, userId uuid.UUID, username string) *Client {
	return &Client{
		Hub:      hub,
		UserID:   userId,
		Username: username,
		Send:     make(chan []byte, 8),
	}
}

func registerAndWait(t *testing.T, hub *Hub, client *Client) {
	t.Helper()
	hub.register <- client
	waitFor(t, func() bool { return hub.IsOnline(client.UserID) })
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func receiveEnvelope(t *testing.T, client *Client) Envelope {
	t.Helper()
	select {
	case raw := <-client.Send:
		var env Envelope
		assert.NoError(t, json.Unmarshal(raw, &env))
		return env
	case <-time.After(time.Second):
		t.Fatal("no frame delivered")
		return Envelope{}
	}
}

func assertNoFrame(t *testing.T, client *Client) {
	t.Helper()
	select {
	case raw := <-client.Send:
		t.Fatalf("unexpected frame: %s", raw)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestEmitToChatReachesRoomMembersOnly(t *testing.T) {
	hub := NewHub(nil, testLogger{})
	go hub.Run()

	alice := newTestClient(hub, uuid.New(), "alice")
	bob := newTestClient(hub, uuid.New(), "bob")
	carol := newTestClient(hub, uuid.New(), "carol")
	registerAndWait(t, hub, alice)
	registerAndWait(t, hub, bob)
	registerAndWait(t, hub, carol)

	chatId := uuid.NewString()
	hub.joinRoom(alice, chatId)
	hub.joinRoom(bob, chatId)

	hub.EmitToChat(chatId, EventNewMessage, map[string]string{"content": "hi"})

	for _, member := range []*Client{alice, bob} {
		env := receiveEnvelope(t, member)
		assert.Equal(t, EventNewMessage, env.Event)
	}
	assertNoFrame(t, carol)
}

func TestEmitToChatExceptSkipsSender(t *testing.T) {
	hub := NewHub(nil, testLogger{})
	go hub.Run()

	alice := newTestClient(hub, uuid.New(), "alice")
	bob := newTestClient(hub, uuid.New(), "bob")
	registerAndWait(t, hub, alice)
	registerAndWait(t, hub, bob)

	chatId := uuid.NewString()
	hub.joinRoom(alice, chatId)
	hub.joinRoom(bob, chatId)

	hub.EmitToChatExcept(chatId, alice, EventUserTyping, UserTypingPayload{
		ChatId:   chatId,
		UserId:   alice.UserID.String(),
		Username: "alice",
		IsTyping: true,
	})

	env := receiveEnvelope(t, bob)
	assert.Equal(t, EventUserTyping, env.Event)
	assertNoFrame(t, alice)
}

func TestEmitToUserHitsEveryConnection(t *testing.T) {
	hub := NewHub(nil, testLogger{})
	go hub.Run()

	userId := uuid.New()
	laptop := newTestClient(hub, userId, "alice")
	phone := newTestClient(hub, userId, "alice")
	registerAndWait(t, hub, laptop)
	hub.register <- phone
	waitFor(t, func() bool {
		hub.mu.RLock()
		defer hub.mu.RUnlock()
		return len(hub.clients[userId]) == 2
	})

	hub.EmitToUser(userId, EventChatUpdated, ChatUpdatedPayload{ChatId: uuid.NewString(), Title: "renamed"})

	for _, conn := range []*Client{laptop, phone} {
		env := receiveEnvelope(t, conn)
		assert.Equal(t, EventChatUpdated, env.Event)
	}
}

func TestLeaveRoomStopsDelivery(t *testing.T) {
	hub := NewHub(nil, testLogger{})
	go hub.Run()

	alice := newTestClient(hub, uuid.New(), "alice")
	registerAndWait(t, hub, alice)

	chatId := uuid.NewString()
	hub.joinRoom(alice, chatId)
	hub.leaveRoom(alice, chatId)

	hub.EmitToChat(chatId, EventNewMessage, map[string]string{"content": "hi"})
	assertNoFrame(t, alice)
}

func TestStalledClientDroppedWithoutPanic(t *testing.T) {
	hub := NewHub(nil, testLogger{})
	go hub.Run()

	// Unbuffered Send that nothing reads: every delivery overflows.
	alice := &Client{Hub: hub, UserID: uuid.New(), Username: "alice", Send: make(chan []byte)}
	registerAndWait(t, hub, alice)

	chatId := uuid.NewString()
	hub.joinRoom(alice, chatId)

	hub.EmitToChat(chatId, EventNewMessage, map[string]string{"content": "one"})
	hub.EmitToChat(chatId, EventNewMessage, map[string]string{"content": "two"})

	waitFor(t, func() bool { return !hub.IsOnline(alice.UserID) })

	// Teardown happened exactly once: Send is closed and the room is gone.
	_, open := <-alice.Send
	assert.False(t, open)

	hub.mu.RLock()
	_, roomAlive := hub.rooms[chatId]
	hub.mu.RUnlock()
	assert.False(t, roomAlive)

	// Further emits to the torn-down room are no-ops, not panics.
	hub.EmitToChat(chatId, EventNewMessage, map[string]string{"content": "three"})
}

func TestUnregisterTearsDownPresenceAndRooms(t *testing.T) {
	hub := NewHub(nil, testLogger{})
	go hub.Run()

	alice := newTestClient(hub, uuid.New(), "alice")
	registerAndWait(t, hub, alice)

	chatId := uuid.NewString()
	hub.joinRoom(alice, chatId)

	hub.unregister <- alice
	waitFor(t, func() bool { return !hub.IsOnline(alice.UserID) })

	hub.mu.RLock()
	_, roomAlive := hub.rooms[chatId]
	hub.mu.RUnlock()
	assert.False(t, roomAlive)

	// Send is closed on unregister.
	_, open := <-alice.Send
	assert.False(t, open)
}
