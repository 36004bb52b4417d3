package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/viraj-gavade/Thriftify-sub000/internal/cache"
	"github.com/viraj-gavade/Thriftify-sub000/internal/metrics"
	"github.com/viraj-gavade/Thriftify-sub000/internal/models"
	"go.uber.org/zap"
)

// ConversationAuthorizer decides whether a user may join a conversation room.
type ConversationAuthorizer interface {
	CanAccess(ctx context.Context, conversationID, userID string) error
}

type Options struct {
	PingInterval    time.Duration
	WriteDeadline   time.Duration
	MaxMessageSize  int64
	TypingTimeout   time.Duration
	PresenceTTL     time.Duration
	EventsPerSecond int
	SendBuffer      int
}

func (o Options) withDefaults() Options {
	if o.PingInterval <= 0 {
		o.PingInterval = 25 * time.Second
	}
	if o.WriteDeadline <= 0 {
		o.WriteDeadline = 10 * time.Second
	}
	if o.MaxMessageSize <= 0 {
		o.MaxMessageSize = 64 * 1024
	}
	if o.PresenceTTL <= 0 {
		o.PresenceTTL = 90 * time.Second
	}
	if o.SendBuffer <= 0 {
		o.SendBuffer = 256
	}
	return o
}

func (o Options) pongWait() time.Duration { return o.PingInterval * 2 }

const presenceTimeout = 2 * time.Second

// Hub owns the process-local room state: personal rooms keyed by user id and
// conversation rooms keyed by conversation id.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	users   map[string]map[*Client]struct{}
	rooms   map[string]map[*Client]struct{}

	auth     ConversationAuthorizer
	presence cache.PresenceStore
	typing   *TypingTracker
	opts     Options
	logger   *zap.SugaredLogger
}

func NewHub(auth ConversationAuthorizer, presence cache.PresenceStore, opts Options, logger *zap.SugaredLogger) *Hub {
	if presence == nil {
		presence = cache.NewMemoryPresence()
	}
	h := &Hub{
		clients:  make(map[string]*Client),
		users:    make(map[string]map[*Client]struct{}),
		rooms:    make(map[string]map[*Client]struct{}),
		auth:     auth,
		presence: presence,
		opts:     opts.withDefaults(),
		logger:   logger,
	}
	h.typing = NewTypingTracker(h.opts.TypingTimeout, h.typingExpired)
	return h
}

// Register puts an authenticated client in its personal room.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c.ID] = c
	set, ok := h.users[c.UserID]
	if !ok {
		set = make(map[*Client]struct{})
		h.users[c.UserID] = set
	}
	set[c] = struct{}{}
	h.mu.Unlock()

	metrics.Connections.Inc()
	h.withPresence(func(ctx context.Context) error {
		return h.presence.MarkOnline(ctx, c.UserID, h.opts.PresenceTTL)
	})
	h.logger.Infow("socket connected", "client_id", c.ID, "user_id", c.UserID)
}

// Unregister drops every membership of c and closes its send queue.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c.ID]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c.ID)
	if set, ok := h.users[c.UserID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.users, c.UserID)
		}
	}
	joined := make([]string, 0, len(c.rooms))
	for convID := range c.rooms {
		h.removeFromRoom(c, convID)
		joined = append(joined, convID)
	}
	c.closeSend()
	h.mu.Unlock()

	for _, convID := range joined {
		h.stopTyping(c.UserID, convID)
	}
	metrics.Connections.Dec()
	h.withPresence(func(ctx context.Context) error {
		return h.presence.MarkOffline(ctx, c.UserID)
	})
	h.logger.Infow("socket disconnected", "client_id", c.ID, "user_id", c.UserID)
}

// removeFromRoom requires h.mu held for writing.
func (h *Hub) removeFromRoom(c *Client, convID string) {
	delete(c.rooms, convID)
	if set, ok := h.rooms[convID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.rooms, convID)
		}
	}
}

// Join subscribes c to a conversation room once the authorizer allows it.
func (h *Hub) Join(ctx context.Context, c *Client, convID string) error {
	if err := h.auth.CanAccess(ctx, convID, c.UserID); err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c.ID]; !ok {
		return nil
	}
	set, ok := h.rooms[convID]
	if !ok {
		set = make(map[*Client]struct{})
		h.rooms[convID] = set
	}
	set[c] = struct{}{}
	c.rooms[convID] = struct{}{}
	return nil
}

func (h *Hub) Leave(c *Client, convID string) {
	h.mu.Lock()
	_, joined := c.rooms[convID]
	if joined {
		h.removeFromRoom(c, convID)
	}
	h.mu.Unlock()
	if joined {
		h.stopTyping(c.UserID, convID)
	}
}

func (h *Hub) IsMember(c *Client, convID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := c.rooms[convID]
	return ok
}

// SendToUser delivers frame to every connection in the user's personal room.
func (h *Hub) SendToUser(userID string, frame []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	delivered := 0
	for c := range h.users[userID] {
		if h.deliver(c, frame) {
			delivered++
		}
	}
	return delivered
}

// BroadcastToConversation delivers frame to the room, skipping every
// connection owned by exceptUserID.
func (h *Hub) BroadcastToConversation(convID, exceptUserID string, frame []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	delivered := 0
	for c := range h.rooms[convID] {
		if c.UserID == exceptUserID {
			continue
		}
		if h.deliver(c, frame) {
			delivered++
		}
	}
	return delivered
}

// NotifyNewMessage pushes newMessage to the recipients' personal rooms.
func (h *Hub) NotifyNewMessage(recipientIDs []string, conversationID string, msg *models.MessageView) {
	frame := encode(EventNewMessage, newMessagePayload{Message: msg, ConversationID: conversationID})
	for _, id := range recipientIDs {
		h.SendToUser(id, frame)
	}
}

// reply sends to a single connection if it is still registered.
func (h *Hub) reply(c *Client, frame []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[c.ID]; ok {
		h.deliver(c, frame)
	}
}

// deliver requires h.mu held.
func (h *Hub) deliver(c *Client, frame []byte) bool {
	if c.trySend(frame) {
		return true
	}
	h.logger.Warnw("send buffer full, dropping frame", "client_id", c.ID, "user_id", c.UserID)
	return false
}

func (h *Hub) dispatch(ctx context.Context, c *Client, f Frame) {
	metrics.WSEvents.WithLabelValues(f.Type).Inc()
	switch f.Type {
	case EventJoinConversation:
		convID, err := f.conversationID()
		if err != nil {
			h.reject(c, f.Type, err.Error())
			return
		}
		if err := h.Join(ctx, c, convID); err != nil {
			h.logger.Debugw("join rejected", "client_id", c.ID, "conversation_id", convID, "error", err)
			h.reject(c, f.Type, "cannot join conversation")
			return
		}
		h.replayTyping(c, convID)
	case EventLeaveConversation:
		convID, err := f.conversationID()
		if err != nil {
			h.reject(c, f.Type, err.Error())
			return
		}
		h.Leave(c, convID)
	case EventTyping:
		convID, err := f.conversationID()
		if err != nil || !h.IsMember(c, convID) {
			return
		}
		h.startTyping(c.UserID, convID)
	case EventStopTyping:
		convID, err := f.conversationID()
		if err != nil || !h.IsMember(c, convID) {
			return
		}
		h.stopTyping(c.UserID, convID)
	default:
		h.reject(c, f.Type, "unknown event")
	}
}

func (h *Hub) reject(c *Client, event, message string) {
	h.reply(c, encode(EventError, errorPayload{Message: message, Event: event}))
}

func (h *Hub) startTyping(userID, convID string) {
	h.typing.Start(userID, convID)
	h.withPresence(func(ctx context.Context) error {
		return h.presence.SetTyping(ctx, convID, userID, h.typingTTL())
	})
	h.BroadcastToConversation(convID, userID, encode(EventUserTyping, typingPayload{UserID: userID, ConversationID: convID}))
}

// replayTyping tells a new member who is already typing, on any instance.
func (h *Hub) replayTyping(c *Client, convID string) {
	var typers []string
	h.withPresence(func(ctx context.Context) (err error) {
		typers, err = h.presence.TypingUsers(ctx, convID)
		return err
	})
	for _, userID := range typers {
		if userID == c.UserID {
			continue
		}
		h.reply(c, encode(EventUserTyping, typingPayload{UserID: userID, ConversationID: convID}))
	}
}

// stopTyping emits userStopTyping only if the user was typing.
func (h *Hub) stopTyping(userID, convID string) {
	if !h.typing.Stop(userID, convID) {
		return
	}
	h.typingCleared(userID, convID)
}

func (h *Hub) typingExpired(userID, convID string) {
	h.logger.Debugw("typing expired", "user_id", userID, "conversation_id", convID)
	h.typingCleared(userID, convID)
}

func (h *Hub) typingCleared(userID, convID string) {
	h.withPresence(func(ctx context.Context) error {
		return h.presence.ClearTyping(ctx, convID, userID)
	})
	h.BroadcastToConversation(convID, userID, encode(EventUserStopTyping, typingPayload{UserID: userID, ConversationID: convID}))
}

func (h *Hub) typingTTL() time.Duration {
	if h.opts.TypingTimeout > 0 {
		return h.opts.TypingTimeout
	}
	return h.opts.PresenceTTL
}

func (h *Hub) touch(userID string) {
	h.withPresence(func(ctx context.Context) error {
		return h.presence.Touch(ctx, userID, h.opts.PresenceTTL)
	})
}

// withPresence runs a presence update; failures are logged and otherwise ignored.
func (h *Hub) withPresence(fn func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), presenceTimeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		h.logger.Warnw("presence update failed", "error", err)
	}
}

// IsOnline reports presence as seen by the shared store.
func (h *Hub) IsOnline(ctx context.Context, userID string) (bool, error) {
	return h.presence.IsOnline(ctx, userID)
}

// Connections is the number of live sockets on this instance.
func (h *Hub) Connections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client; the write pumps send a close frame.
func (h *Hub) Close() {
	h.typing.StopAll()
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()
	for _, c := range clients {
		h.Unregister(c)
	}
}
