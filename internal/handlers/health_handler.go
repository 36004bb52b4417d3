package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/viraj-gavade/Thriftify-sub000/internal/utils"
)

type HealthHandler struct {
	started time.Time
	sockets func() int
}

func NewHealthHandler(sockets func() int) *HealthHandler {
	return &HealthHandler{started: time.Now(), sockets: sockets}
}

func (h *HealthHandler) Health(c *fiber.Ctx) error {
	data := fiber.Map{"status": "ok", "uptime": time.Since(h.started).Round(time.Second).String()}
	if h.sockets != nil {
		data["connections"] = h.sockets()
	}
	return utils.JSONSuccess(c, fiber.StatusOK, "healthy", data)
}
