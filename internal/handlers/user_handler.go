package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/viraj-gavade/Thriftify-sub000/internal/apperr"
	"github.com/viraj-gavade/Thriftify-sub000/internal/services"
	"github.com/viraj-gavade/Thriftify-sub000/internal/utils"
)

type PresenceChecker interface {
	IsOnline(ctx context.Context, userID string) (bool, error)
}

type UserHandler struct {
	auth     *services.AuthService
	presence PresenceChecker
}

func NewUserHandler(auth *services.AuthService, presence PresenceChecker) *UserHandler {
	return &UserHandler{auth: auth, presence: presence}
}

// GET /api/v1/users/:id
func (h *UserHandler) Profile(c *fiber.Ctx) error {
	p, err := h.auth.Profile(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return utils.JSONSuccess(c, fiber.StatusOK, "User fetched", p)
}

// GET /api/v1/users/:id/presence
func (h *UserHandler) Presence(c *fiber.Ctx) error {
	p, err := h.auth.Profile(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	online, err := h.presence.IsOnline(c.UserContext(), p.ID.Hex())
	if err != nil {
		return apperr.Internal(err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, "Presence fetched", fiber.Map{"userId": p.ID.Hex(), "online": online})
}
