package realtime

import (
	"sync"
	"time"
)

type typingKey struct {
	userID         string
	conversationID string
}

type typingEntry struct {
	timer *time.Timer
}

func (e *typingEntry) stop() {
	if e.timer != nil {
		e.timer.Stop()
	}
}

// TypingTracker expires typing indicators that never got a stopTyping, for
// example when a client closes its tab mid-sentence.
type TypingTracker struct {
	mu       sync.Mutex
	timeout  time.Duration
	entries  map[typingKey]*typingEntry
	onExpire func(userID, conversationID string)
}

// NewTypingTracker with timeout <= 0 still tracks state but never expires it.
func NewTypingTracker(timeout time.Duration, onExpire func(userID, conversationID string)) *TypingTracker {
	return &TypingTracker{
		timeout:  timeout,
		entries:  make(map[typingKey]*typingEntry),
		onExpire: onExpire,
	}
}

// Start arms (or re-arms) the expiry and reports whether the user was already typing.
func (t *TypingTracker) Start(userID, conversationID string) bool {
	key := typingKey{userID, conversationID}
	t.mu.Lock()
	defer t.mu.Unlock()

	old, was := t.entries[key]
	if was {
		old.stop()
	}
	e := &typingEntry{}
	if t.timeout > 0 {
		e.timer = time.AfterFunc(t.timeout, func() { t.expire(key, e) })
	}
	t.entries[key] = e
	return was
}

// Stop clears the indicator and reports whether the user was typing.
func (t *TypingTracker) Stop(userID, conversationID string) bool {
	key := typingKey{userID, conversationID}
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[key]
	if !ok {
		return false
	}
	e.stop()
	delete(t.entries, key)
	return true
}

func (t *TypingTracker) expire(key typingKey, e *typingEntry) {
	t.mu.Lock()
	current, ok := t.entries[key]
	// a re-arm or Stop raced with this timer firing
	if !ok || current != e {
		t.mu.Unlock()
		return
	}
	delete(t.entries, key)
	t.mu.Unlock()

	if t.onExpire != nil {
		t.onExpire(key.userID, key.conversationID)
	}
}

// StopAll cancels every pending timer without firing callbacks.
func (t *TypingTracker) StopAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for key, e := range t.entries {
		e.stop()
		delete(t.entries, key)
	}
}
