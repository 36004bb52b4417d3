package server

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/viraj-gavade/Thriftify-sub000/internal/auth"
	"github.com/viraj-gavade/Thriftify-sub000/internal/cache"
	"github.com/viraj-gavade/Thriftify-sub000/internal/config"
	"github.com/viraj-gavade/Thriftify-sub000/internal/events"
	"github.com/viraj-gavade/Thriftify-sub000/internal/handlers"
	"github.com/viraj-gavade/Thriftify-sub000/internal/metrics"
	"github.com/viraj-gavade/Thriftify-sub000/internal/middleware"
	"github.com/viraj-gavade/Thriftify-sub000/internal/realtime"
	"github.com/viraj-gavade/Thriftify-sub000/internal/repository"
	"github.com/viraj-gavade/Thriftify-sub000/internal/routes"
	"github.com/viraj-gavade/Thriftify-sub000/internal/services"
	"go.uber.org/zap"
)

const (
	listingPageSize = 20
	eventQueueSize  = 1024
)

// Dependencies are the already connected backends the HTTP layer runs on.
type Dependencies struct {
	Config    *config.Config
	Logger    *zap.Logger
	Users     repository.UserRepository
	Listings  repository.ListingRepository
	Convs     repository.ConversationRepository
	Msgs      repository.MessageRepository
	Presence  cache.PresenceStore
	// Publisher is wrapped in a queue; the server owns and closes it.
	Publisher events.Publisher
	// Uploads is nil when no bucket is configured.
	Uploads handlers.UploadPresigner
}

type Server struct {
	App  *fiber.App
	Hub  *realtime.Hub
	Chat *services.ConversationService

	limiter   *middleware.IPRateLimiter
	publisher *events.AsyncPublisher
}

func New(d Dependencies) *Server {
	cfg, logger := d.Config, d.Logger
	metrics.Register()

	app := fiber.New(fiber.Config{
		AppName:      "thriftify",
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
		BodyLimit:    cfg.App.BodyLimitBytes,
		ErrorHandler: middleware.ErrorHandler(logger),
	})

	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c *fiber.Ctx, e interface{}) {
			logger.Error("panic recovered",
				zap.String("path", c.Path()),
				zap.String("panic", fmt.Sprint(e)),
				zap.Stack("stack"))
		},
	}))
	app.Use(middleware.RequestLogger(logger))
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.App.CORSOrigins,
		AllowCredentials: true,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET,POST,PATCH,DELETE,OPTIONS",
	}))

	s := &Server{App: app, publisher: events.NewAsyncPublisher(d.Publisher, eventQueueSize, logger)}
	if cfg.RateLimit.PerMinute > 0 {
		s.limiter = middleware.NewIPRateLimiter(cfg.RateLimit.PerMinute, cfg.RateLimit.Burst, logger)
		app.Use(s.limiter.Handler())
	}

	jwt := auth.NewJWTManager(cfg.JWT.Secret, cfg.AccessTTL)
	authSvc := services.NewAuthService(d.Users, jwt, cfg.Security.PasswordHashCost, logger)
	listingSvc := services.NewListingService(d.Listings, d.Users, s.publisher, logger, listingPageSize, cfg.Chat.MaxPageSize)
	s.Chat = services.NewConversationService(d.Convs, d.Msgs, d.Users, d.Listings, nil, s.publisher, logger,
		services.ConversationOptions{
			DefaultPageSize:  cfg.Chat.DefaultPageSize,
			MaxPageSize:      cfg.Chat.MaxPageSize,
			MaxMessageLength: cfg.Chat.MaxMessageLength,
		})

	s.Hub = realtime.NewHub(s.Chat, d.Presence, realtime.Options{
		PingInterval:    cfg.PingInterval,
		WriteDeadline:   cfg.WriteDeadline,
		MaxMessageSize:  cfg.WS.MaxMessageSizeBytes,
		TypingTimeout:   cfg.TypingTimeout,
		PresenceTTL:     cfg.PresenceTTL,
		EventsPerSecond: cfg.WS.EventsPerSecond,
		SendBuffer:      cfg.WS.SendBuffer,
	}, logger.Sugar().Named("ws"))
	s.Chat.SetNotifier(s.Hub)

	routes.Register(app, routes.Handlers{
		RequireAuth:       middleware.RequireAuth(jwt, d.Users, cfg.JWT.CookieName),
		RequireSocketAuth: middleware.RequireSocketAuth(jwt, d.Users, cfg.JWT.CookieName),
		Socket:            s.Hub.Handler(),
		Auth:              handlers.NewAuthHandler(authSvc, handlers.CookieOptions{Name: cfg.JWT.CookieName, Secure: cfg.JWT.CookieSecure}),
		Chat:              handlers.NewChatHandler(s.Chat),
		Listings:          handlers.NewListingHandler(listingSvc, d.Uploads),
		Users:             handlers.NewUserHandler(authSvc, s.Hub),
		Health:            handlers.NewHealthHandler(s.Hub.Connections),
		UploadsEnabled:    d.Uploads != nil,
	})
	return s
}

// Shutdown stops accepting requests, closes every socket, then flushes
// queued events and closes the publisher.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.App.ShutdownWithContext(ctx)
	s.Hub.Close()
	if s.limiter != nil {
		s.limiter.Stop()
	}
	if perr := s.publisher.Close(); err == nil {
		err = perr
	}
	return err
}
