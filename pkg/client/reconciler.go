package client

import (
	"strings"
	"sync"
	"time"
)

const (
	// optimisticWindow is how far apart a local echo and its server copy may
	// sit on the clock and still be treated as the same message.
	optimisticWindow = time.Second

	streamPlaceholderId = "streaming-reply"
)

// ChatView is the client-side picture of one conversation. Messages arrive
// from several sources at once (sends, pushes, poll sweeps) and the view
// keeps them ordered and deduplicated; applying the same batch twice is a
// no-op.
type ChatView struct {
	mu       sync.Mutex
	messages []Message
	seen     map[string]struct{}
}

func NewChatView() *ChatView {
	return &ChatView{
		seen: make(map[string]struct{}),
	}
}

// Messages returns a snapshot in render order.
func (v *ChatView) Messages() []Message {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]Message, len(v.messages))
	copy(out, v.messages)
	return out
}

// Apply merges a server batch into the view. Known ids are skipped; a new id
// that matches a pending optimistic message replaces it in place.
func (v *ChatView) Apply(batch []Message) {
	v.mu.Lock()
	defer v.mu.Unlock()

	for _, msg := range batch {
		if _, ok := v.seen[msg.Id]; ok {
			continue
		}
		if v.replaceOptimistic(msg) {
			continue
		}
		v.insert(msg)
	}
}

// AppendOptimistic inserts a locally-echoed message before the server
// confirms it. The temp id must not collide with server ids.
func (v *ChatView) AppendOptimistic(tempId, content string, sender *Sender) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.insert(Message{
		Id:        tempId,
		Sender:    sender,
		Content:   content,
		Timestamp: time.Now(),
	})
}

// replaceOptimistic matches an incoming server message against pending local
// echoes: same content and timestamps within the window.
func (v *ChatView) replaceOptimistic(incoming Message) bool {
	for i := range v.messages {
		existing := &v.messages[i]
		if !isTempId(existing.Id) {
			continue
		}
		if existing.Content != incoming.Content {
			continue
		}
		delta := incoming.Timestamp.Sub(existing.Timestamp)
		if delta < 0 {
			delta = -delta
		}
		if delta >= optimisticWindow {
			continue
		}

		delete(v.seen, existing.Id)
		*existing = incoming
		v.seen[incoming.Id] = struct{}{}
		return true
	}
	return false
}

func (v *ChatView) insert(msg Message) {
	v.seen[msg.Id] = struct{}{}

	// Batches are usually already chronological; walk back only as far as
	// needed for the stragglers.
	pos := len(v.messages)
	for pos > 0 && v.messages[pos-1].Timestamp.After(msg.Timestamp) {
		pos--
	}
	v.messages = append(v.messages, Message{})
	copy(v.messages[pos+1:], v.messages[pos:])
	v.messages[pos] = msg
}

// LastId returns the newest server-assigned message id, for use as the poll
// cursor. Optimistic and streaming placeholders are skipped.
func (v *ChatView) LastId() string {
	v.mu.Lock()
	defer v.mu.Unlock()

	for i := len(v.messages) - 1; i >= 0; i-- {
		if !isTempId(v.messages[i].Id) {
			return v.messages[i].Id
		}
	}
	return ""
}

// BeginStream adds the placeholder an AI stream writes into.
func (v *ChatView) BeginStream() {
	v.mu.Lock()
	defer v.mu.Unlock()

	if _, ok := v.seen[streamPlaceholderId]; ok {
		return
	}
	v.insert(Message{
		Id:        streamPlaceholderId,
		Sender:    &Sender{Username: "AI"},
		IsAI:      true,
		Timestamp: time.Now(),
	})
}

// AppendStreamChunk grows the placeholder's content.
func (v *ChatView) AppendStreamChunk(chunk string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	for i := range v.messages {
		if v.messages[i].Id == streamPlaceholderId {
			v.messages[i].Content += chunk
			return
		}
	}
}

// EndStream resolves the placeholder: replaced by the persisted message when
// the stream ended cleanly, dropped when it failed.
func (v *ChatView) EndStream(final *Message) {
	v.mu.Lock()
	defer v.mu.Unlock()

	for i := range v.messages {
		if v.messages[i].Id != streamPlaceholderId {
			continue
		}
		delete(v.seen, streamPlaceholderId)
		if final == nil {
			v.messages = append(v.messages[:i], v.messages[i+1:]...)
		} else {
			v.messages[i] = *final
			v.seen[final.Id] = struct{}{}
		}
		return
	}
}

// StreamingContent returns the placeholder's current text, empty when no
// stream is active.
func (v *ChatView) StreamingContent() string {
	v.mu.Lock()
	defer v.mu.Unlock()

	for i := range v.messages {
		if v.messages[i].Id == streamPlaceholderId {
			return v.messages[i].Content
		}
	}
	return ""
}

func isTempId(id string) bool {
	return id == streamPlaceholderId || strings.HasPrefix(id, "temp-")
}
