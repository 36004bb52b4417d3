package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/viraj-gavade/Thriftify-sub000/internal/apperr"
	"github.com/viraj-gavade/Thriftify-sub000/internal/auth"
	"github.com/viraj-gavade/Thriftify-sub000/internal/models"
	"github.com/viraj-gavade/Thriftify-sub000/internal/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	userLocal   = "user"
	userIDLocal = "user_id"
)

// RequireAuth verifies the access token from the cookie or Authorization
// header and attaches the caller to the request.
func RequireAuth(jwt *auth.JWTManager, users repository.UserRepository, cookieName string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := authenticate(c, jwt, users, auth.TokenFromRequest(c, cookieName)); err != nil {
			return err
		}
		return c.Next()
	}
}

// RequireSocketAuth runs before the websocket upgrade, so a bad token is
// answered with a plain 401 and the socket never opens.
func RequireSocketAuth(jwt *auth.JWTManager, users repository.UserRepository, cookieName string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		if err := authenticate(c, jwt, users, auth.TokenFromHandshake(c, cookieName)); err != nil {
			return err
		}
		return c.Next()
	}
}

func authenticate(c *fiber.Ctx, jwt *auth.JWTManager, users repository.UserRepository, token string) error {
	if token == "" {
		return apperr.Unauthenticated("authentication required")
	}
	claims, err := jwt.VerifyToken(token)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			return apperr.Wrap(apperr.KindUnauthenticated, "token expired", err)
		}
		return apperr.Wrap(apperr.KindUnauthenticated, "invalid token", err)
	}
	id, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return apperr.Unauthenticated("invalid token")
	}
	u, err := users.FindByID(c.UserContext(), id)
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("user not found")
	}
	if err != nil {
		return apperr.Internal(err)
	}
	c.Locals(userLocal, u)
	c.Locals(userIDLocal, u.ID.Hex())
	return nil
}

// CurrentUser is only valid behind RequireAuth. Secret fields are never
// serialized.
func CurrentUser(c *fiber.Ctx) *models.User {
	u, _ := c.Locals(userLocal).(*models.User)
	return u
}

func CurrentUserID(c *fiber.Ctx) string {
	id, _ := c.Locals(userIDLocal).(string)
	return id
}
