package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// TokenFromRequest reads the bearer token from the auth cookie, falling back
// to the Authorization header.
func TokenFromRequest(c *fiber.Ctx, cookieName string) string {
	if t := strings.TrimSpace(c.Cookies(cookieName)); t != "" {
		return t
	}
	h := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// TokenFromHandshake also accepts ?token= on the upgrade request, which is
// where browser socket clients put their handshake auth payload.
func TokenFromHandshake(c *fiber.Ctx, cookieName string) string {
	if t := strings.TrimSpace(c.Query("token")); t != "" {
		return t
	}
	return TokenFromRequest(c, cookieName)
}
