package realtime

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// UserIDLocal is the fiber local the auth middleware stores the caller's id under.
const UserIDLocal = "user_id"

// Handler upgrades an already authenticated request and runs the socket until
// it closes. Authentication happens before the upgrade, so a rejected token
// never reaches here.
func (h *Hub) Handler() fiber.Handler {
	return websocket.New(func(c *websocket.Conn) {
		userID, _ := c.Locals(UserIDLocal).(string)
		if userID == "" {
			_ = c.WriteMessage(websocket.TextMessage, encode(EventError, errorPayload{Message: "unauthenticated"}))
			_ = c.Close()
			return
		}
		h.Serve(context.Background(), c, userID)
	}, websocket.Config{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
	})
}

// Serve registers the connection and blocks until the read loop ends.
func (h *Hub) Serve(ctx context.Context, c Conn, userID string) {
	client := newClient(h, c, userID)
	h.Register(client)
	done := make(chan struct{})
	go func() {
		defer close(done)
		client.writePump()
	}()
	client.readPump(ctx)
	// the conn is released once the handler returns
	<-done
}
