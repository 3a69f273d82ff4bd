package client

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func serverMsg(id, content string, at time.Time) Message {
	return Message{
		Id:        id,
		ChatId:    "chat-1",
		Sender:    &Sender{Id: "user-1", Username: "alice"},
		Content:   content,
		Timestamp: at,
	}
}

func TestApplyOrdersAndDeduplicates(t *testing.T) {
	view := NewChatView()
	base := time.Now()

	batch := []Message{
		serverMsg("m2", "second", base.Add(2*time.Second)),
		serverMsg("m1", "first", base.Add(1*time.Second)),
		serverMsg("m3", "third", base.Add(3*time.Second)),
	}
	view.Apply(batch)
	view.Apply(batch)

	got := view.Messages()
	assert.Len(t, got, 3)
	assert.Equal(t, "m1", got[0].Id)
	assert.Equal(t, "m2", got[1].Id)
	assert.Equal(t, "m3", got[2].Id)
	assert.Equal(t, "m3", view.LastId())
}

func TestOptimisticEchoReplacedByServerCopy(t *testing.T) {
	view := NewChatView()

	view.AppendOptimistic("temp-1", "hello there", &Sender{Id: "user-1", Username: "alice"})
	assert.Equal(t, "", view.LastId())

	confirmed := serverMsg("m1", "hello there", time.Now())
	view.Apply([]Message{confirmed})

	got := view.Messages()
	assert.Len(t, got, 1)
	assert.Equal(t, "m1", got[0].Id)
	assert.Equal(t, "m1", view.LastId())
}

func TestOptimisticEchoOutsideWindowKept(t *testing.T) {
	view := NewChatView()

	view.AppendOptimistic("temp-1", "hello there", &Sender{Username: "alice"})

	// Same content but the server timestamp is far away, so it is a
	// different message, not a confirmation.
	stale := serverMsg("m1", "hello there", time.Now().Add(-time.Minute))
	view.Apply([]Message{stale})

	got := view.Messages()
	assert.Len(t, got, 2)
}

func TestOptimisticDifferentContentNotReplaced(t *testing.T) {
	view := NewChatView()

	view.AppendOptimistic("temp-1", "hello there", &Sender{Username: "alice"})
	view.Apply([]Message{serverMsg("m1", "something else", time.Now())})

	assert.Len(t, view.Messages(), 2)
}

func TestStreamPlaceholderLifecycle(t *testing.T) {
	view := NewChatView()
	view.Apply([]Message{serverMsg("m1", "question", time.Now())})

	view.BeginStream()
	view.BeginStream() // second call is a no-op
	view.AppendStreamChunk("Hel")
	view.AppendStreamChunk("lo!")
	assert.Equal(t, "Hello!", view.StreamingContent())

	// The placeholder never becomes the poll cursor.
	assert.Equal(t, "m1", view.LastId())

	final := serverMsg("m2", "Hello!", time.Now())
	final.IsAI = true
	final.Sender = &Sender{Username: "AI"}
	view.EndStream(&final)

	got := view.Messages()
	assert.Len(t, got, 2)
	assert.Equal(t, "m2", got[1].Id)
	assert.True(t, got[1].IsAI)
	assert.Equal(t, "", view.StreamingContent())
	assert.Equal(t, "m2", view.LastId())
}

func TestStreamFailureDropsPlaceholder(t *testing.T) {
	view := NewChatView()

	view.BeginStream()
	view.AppendStreamChunk("partial")
	view.EndStream(nil)

	assert.Empty(t, view.Messages())
	assert.Equal(t, "", view.StreamingContent())
}

func TestStreamFinalNotDuplicatedByPoll(t *testing.T) {
	view := NewChatView()

	view.BeginStream()
	view.AppendStreamChunk("Hello!")
	final := serverMsg("m1", "Hello!", time.Now())
	final.IsAI = true
	view.EndStream(&final)

	// A later poll sweep returns the same persisted message.
	view.Apply([]Message{final})

	assert.Len(t, view.Messages(), 1)
}

func TestTypingNotifierDebounce(t *testing.T) {
	var mu sync.Mutex
	var signals []bool
	notifier := NewTypingNotifier(func(isTyping bool) {
		mu.Lock()
		signals = append(signals, isTyping)
		mu.Unlock()
	}).WithIdleTimeout(30 * time.Millisecond)

	notifier.Input()
	notifier.Input()
	notifier.Input()

	mu.Lock()
	assert.Equal(t, []bool{true}, signals)
	mu.Unlock()

	time.Sleep(80 * time.Millisecond)

	mu.Lock()
	assert.Equal(t, []bool{true, false}, signals)
	mu.Unlock()

	// Stop after expiry is a no-op.
	notifier.Stop()
	mu.Lock()
	assert.Equal(t, []bool{true, false}, signals)
	mu.Unlock()
}

func TestTypingNotifierStopClearsImmediately(t *testing.T) {
	var mu sync.Mutex
	var signals []bool
	notifier := NewTypingNotifier(func(isTyping bool) {
		mu.Lock()
		signals = append(signals, isTyping)
		mu.Unlock()
	}).WithIdleTimeout(time.Minute)

	notifier.Input()
	notifier.Stop()

	mu.Lock()
	assert.Equal(t, []bool{true, false}, signals)
	mu.Unlock()
}
