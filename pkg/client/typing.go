package client

import (
	"sync"
	"time"
)

// TypingIdleTimeout is how long after the last keystroke the indicator clears.
const TypingIdleTimeout = 2 * time.Second

// TypingNotifier debounces keystrokes into typing on/off signals: the first
// input emits true, continued input extends the timer, idleness emits false.
type TypingNotifier struct {
	mu     sync.Mutex
	active bool
	timer  *time.Timer
	idle   time.Duration

	// send delivers the indicator state, typically over the socket.
	send func(isTyping bool)
}

func NewTypingNotifier(send func(isTyping bool)) *TypingNotifier {
	return &TypingNotifier{
		idle: TypingIdleTimeout,
		send: send,
	}
}

func (t *TypingNotifier) WithIdleTimeout(d time.Duration) *TypingNotifier {
	t.idle = d
	return t
}

// Input registers a keystroke.
func (t *TypingNotifier) Input() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.active {
		t.active = true
		t.send(true)
	}

	if t.timer != nil {
		t.timer.Stop()
	}
	t.timer = time.AfterFunc(t.idle, t.expire)
}

// Stop clears the indicator immediately, e.g. when the message is sent.
func (t *TypingNotifier) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.clearLocked()
}

func (t *TypingNotifier) expire() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.clearLocked()
}

func (t *TypingNotifier) clearLocked() {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	if t.active {
		t.active = false
		t.send(false)
	}
}
