package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/viraj-gavade/Thriftify-sub000/internal/handlers"
	"github.com/viraj-gavade/Thriftify-sub000/internal/metrics"
)

type Handlers struct {
	RequireAuth       fiber.Handler
	RequireSocketAuth fiber.Handler
	Socket            fiber.Handler

	Auth     *handlers.AuthHandler
	Chat     *handlers.ChatHandler
	Listings *handlers.ListingHandler
	Users    *handlers.UserHandler
	Health   *handlers.HealthHandler

	UploadsEnabled bool
}

func Register(app *fiber.App, h Handlers) {
	app.Get("/health", h.Health.Health)
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))
	app.Get("/ws", h.RequireSocketAuth, h.Socket)

	api := app.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Post("/signup", h.Auth.Signup)
	authGroup.Post("/login", h.Auth.Login)
	authGroup.Post("/logout", h.Auth.Logout)
	authGroup.Get("/me", h.RequireAuth, h.Auth.Me)

	chat := api.Group("/chat", h.RequireAuth)
	chat.Get("/unread-count", h.Chat.UnreadCount)
	chat.Get("/conversations", h.Chat.ListConversations)
	chat.Post("/conversations", h.Chat.CreateConversation)
	chat.Get("/conversations/:id/messages", h.Chat.ListMessages)
	chat.Post("/conversations/:id/messages", h.Chat.SendMessage)
	chat.Patch("/conversations/:id/read", h.Chat.MarkAsRead)

	listings := api.Group("/listings")
	listings.Get("/", h.Listings.List)
	if h.UploadsEnabled {
		listings.Post("/images/upload-url", h.RequireAuth, h.Listings.UploadURL)
	}
	listings.Get("/:id", h.Listings.Get)
	listings.Post("/", h.RequireAuth, h.Listings.Create)
	listings.Patch("/:id", h.RequireAuth, h.Listings.Update)
	listings.Delete("/:id", h.RequireAuth, h.Listings.Delete)
	listings.Patch("/:id/sold", h.RequireAuth, h.Listings.MarkSold)
	listings.Post("/:id/bookmark", h.RequireAuth, h.Listings.ToggleBookmark)

	users := api.Group("/users")
	users.Get("/me/bookmarks", h.RequireAuth, h.Listings.Bookmarks)
	users.Get("/:id", h.Users.Profile)
	users.Get("/:id/presence", h.RequireAuth, h.Users.Presence)
}
