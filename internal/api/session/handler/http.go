package sessionHandler

import (
	sessionService "AccessAI/internal/api/session/service"
	"AccessAI/internal/middleware"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
)

type SessionHandler struct {
	log            *logrus.Logger
	validator      *validator.Validate
	middleware     middleware.Middleware
	sessionService sessionService.ISessionService
}

func New(
	log *logrus.Logger,
	validate *validator.Validate,
	middleware middleware.Middleware,
	ss sessionService.ISessionService,
) *SessionHandler {
	return &SessionHandler{
		log:            log,
		validator:      validate,
		middleware:     middleware,
		sessionService: ss,
	}
}

func (h *SessionHandler) Start(srv fiber.Router) {
	wsMiddleware := func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals(middleware.RequestIDKey, h.middleware.GetRequestID(c))
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}

	srv.Post("/sessions", h.middleware.NewRateLimiter, h.CreateSession)
	srv.Get("/sessions/:id", h.GetSession)
	srv.Post("/sessions/:id/events", h.PostEvent)
	srv.Delete("/sessions/:id", h.CloseSession)

	srv.Use("/session/ws", wsMiddleware)
	srv.Get("/session/ws", websocket.New(h.handleWebSocket))
}
