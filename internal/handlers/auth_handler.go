package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/viraj-gavade/Thriftify-sub000/internal/middleware"
	"github.com/viraj-gavade/Thriftify-sub000/internal/services"
	"github.com/viraj-gavade/Thriftify-sub000/internal/utils"
)

type CookieOptions struct {
	Name   string
	Secure bool
}

type AuthHandler struct {
	svc    *services.AuthService
	cookie CookieOptions
}

func NewAuthHandler(svc *services.AuthService, cookie CookieOptions) *AuthHandler {
	return &AuthHandler{svc: svc, cookie: cookie}
}

func (h *AuthHandler) setCookie(c *fiber.Ctx, token string, expires time.Time) {
	c.Cookie(&fiber.Cookie{
		Name:     h.cookie.Name,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HTTPOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// POST /api/v1/auth/signup
func (h *AuthHandler) Signup(c *fiber.Ctx) error {
	var req services.SignupInput
	if err := bind(c, &req); err != nil {
		return err
	}
	sess, err := h.svc.Signup(c.UserContext(), req)
	if err != nil {
		return err
	}
	h.setCookie(c, sess.AccessToken, sess.ExpiresAt)
	return utils.JSONSuccess(c, fiber.StatusCreated, "User registered", sess)
}

// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req services.LoginInput
	if err := bind(c, &req); err != nil {
		return err
	}
	sess, err := h.svc.Login(c.UserContext(), req)
	if err != nil {
		return err
	}
	h.setCookie(c, sess.AccessToken, sess.ExpiresAt)
	return utils.JSONSuccess(c, fiber.StatusOK, "Logged in", sess)
}

// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	c.ClearCookie(h.cookie.Name)
	return utils.JSONSuccess(c, fiber.StatusOK, "Logged out", nil)
}

// GET /api/v1/auth/me
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	return utils.JSONSuccess(c, fiber.StatusOK, "Current user", middleware.CurrentUser(c))
}
