package translationHandler

import (
	translationService "AccessAI/internal/api/translation/service"
	"AccessAI/internal/middleware"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type TranslationHandler struct {
	log                *logrus.Logger
	validator          *validator.Validate
	middleware         middleware.Middleware
	translationService translationService.ITranslationService
}

func New(
	log *logrus.Logger,
	validate *validator.Validate,
	middleware middleware.Middleware,
	ts translationService.ITranslationService,
) *TranslationHandler {
	return &TranslationHandler{
		log:                log,
		validator:          validate,
		middleware:         middleware,
		translationService: ts,
	}
}

func (h *TranslationHandler) Start(srv fiber.Router) {
	srv.Post("/translate", h.middleware.NewRateLimiter, h.Translate)
	srv.Get("/history", h.GetHistory)
}
