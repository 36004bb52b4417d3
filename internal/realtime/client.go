package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// Conn is the subset of *websocket.Conn the pumps use.
type Conn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

// Client is one authenticated socket. A user may hold several at once.
type Client struct {
	ID     string
	UserID string

	conn    Conn
	hub     *Hub
	send    chan []byte
	limiter *rate.Limiter

	// rooms is guarded by hub.mu
	rooms map[string]struct{}

	closeOnce sync.Once
}

func newClient(hub *Hub, c Conn, userID string) *Client {
	opts := hub.opts
	var limiter *rate.Limiter
	if opts.EventsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.EventsPerSecond), opts.EventsPerSecond*2)
	}
	return &Client{
		ID:      uuid.NewString(),
		UserID:  userID,
		conn:    c,
		hub:     hub,
		send:    make(chan []byte, opts.SendBuffer),
		limiter: limiter,
		rooms:   make(map[string]struct{}),
	}
}

// trySend never blocks; callers must hold hub.mu (read or write).
func (c *Client) trySend(frame []byte) bool {
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

func (c *Client) closeSend() {
	c.closeOnce.Do(func() { close(c.send) })
}

func (c *Client) readPump(ctx context.Context) {
	opts := c.hub.opts
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(opts.MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(opts.pongWait()))
	c.conn.SetPongHandler(func(string) error {
		c.hub.touch(c.UserID)
		return c.conn.SetReadDeadline(time.Now().Add(opts.pongWait()))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Debugw("socket read failed", "client_id", c.ID, "user_id", c.UserID, "error", err)
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(opts.pongWait()))

		var f Frame
		if err := json.Unmarshal(data, &f); err != nil || f.Type == "" {
			c.hub.reply(c, encode(EventError, errorPayload{Message: "malformed frame"}))
			continue
		}
		if c.limiter != nil && !c.limiter.Allow() {
			c.hub.reply(c, encode(EventError, errorPayload{Message: "rate limit exceeded", Event: f.Type}))
			continue
		}
		c.hub.touch(c.UserID)
		c.hub.dispatch(ctx, c, f)
	}
}

func (c *Client) writePump() {
	opts := c.hub.opts
	ticker := time.NewTicker(opts.PingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case frame, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(time.Second))
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(opts.WriteDeadline))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(opts.WriteDeadline)); err != nil {
				return
			}
		}
	}
}
