package cache

import (
	"context"
	"sync"
	"time"
)

// PresenceStore tracks which users are connected and who is typing where.
// Online state is reference counted per user so several tabs keep a user
// online until the last one disconnects.
type PresenceStore interface {
	MarkOnline(ctx context.Context, userID string, ttl time.Duration) error
	Touch(ctx context.Context, userID string, ttl time.Duration) error
	MarkOffline(ctx context.Context, userID string) error
	IsOnline(ctx context.Context, userID string) (bool, error)
	SetTyping(ctx context.Context, conversationID, userID string, ttl time.Duration) error
	ClearTyping(ctx context.Context, conversationID, userID string) error
	TypingUsers(ctx context.Context, conversationID string) ([]string, error)
}

type entry struct {
	refs    int
	expires time.Time
}

type MemoryPresence struct {
	mu     sync.Mutex
	online map[string]*entry
	typing map[string]map[string]time.Time
	now    func() time.Time
}

func NewMemoryPresence() *MemoryPresence {
	return &MemoryPresence{
		online: make(map[string]*entry),
		typing: make(map[string]map[string]time.Time),
		now:    time.Now,
	}
}

func (m *MemoryPresence) MarkOnline(_ context.Context, userID string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.online[userID]
	if !ok {
		e = &entry{}
		m.online[userID] = e
	}
	e.refs++
	e.expires = m.now().Add(ttl)
	return nil
}

func (m *MemoryPresence) Touch(_ context.Context, userID string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.online[userID]; ok {
		e.expires = m.now().Add(ttl)
	}
	return nil
}

func (m *MemoryPresence) MarkOffline(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.online[userID]
	if !ok {
		return nil
	}
	e.refs--
	if e.refs <= 0 {
		delete(m.online, userID)
	}
	return nil
}

func (m *MemoryPresence) IsOnline(_ context.Context, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.online[userID]
	return ok && m.now().Before(e.expires), nil
}

func (m *MemoryPresence) SetTyping(_ context.Context, conversationID, userID string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	users, ok := m.typing[conversationID]
	if !ok {
		users = make(map[string]time.Time)
		m.typing[conversationID] = users
	}
	users[userID] = m.now().Add(ttl)
	return nil
}

func (m *MemoryPresence) ClearTyping(_ context.Context, conversationID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if users, ok := m.typing[conversationID]; ok {
		delete(users, userID)
		if len(users) == 0 {
			delete(m.typing, conversationID)
		}
	}
	return nil
}

func (m *MemoryPresence) TypingUsers(_ context.Context, conversationID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []string{}
	now := m.now()
	for u, exp := range m.typing[conversationID] {
		if now.Before(exp) {
			out = append(out, u)
		}
	}
	return out, nil
}
