package translationHandler

import (
	"context"
	"strings"
	"time"

	"AccessAI/internal/api/translation"
	"AccessAI/internal/entity"
	contextPkg "AccessAI/pkg/context"
	"AccessAI/pkg/handlerUtil"
	"AccessAI/pkg/log"

	"github.com/gofiber/fiber/v2"
)

func (h *TranslationHandler) Translate(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"path":       ctx.Path(),
	}).Debug("Processing translate request")

	var req translation.TranslateRequest
	if err := ctx.BodyParser(&req); err != nil {
		return errHandler.HandleBadRequest(ctx, requestID, err, translation.ErrInvalidTokens.Error())
	}

	if err := h.validator.Struct(req); err != nil {
		return errHandler.HandleBadRequest(ctx, requestID, err, translation.ErrInvalidTokens.Error())
	}

	res, err := h.translationService.Translate(c, req)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "translate")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, res)
	}
}

func (h *TranslationHandler) GetHistory(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	var req translation.HistoryRequest
	if err := ctx.QueryParser(&req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}
	req.Mode = strings.ToUpper(strings.TrimSpace(req.Mode))

	if err := h.validator.Struct(req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	entries, err := h.translationService.GetHistory(c, req.Mode)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "get_history")
	}
	if entries == nil {
		entries = []entity.History{}
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, translation.HistoryResponse{History: entries})
	}
}
