package handlers

import (
	"errors"
	"log/slog"

	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/talkah/talkah-backend/internal/apperr"
	"github.com/talkah/talkah-backend/internal/dto"
	"github.com/talkah/talkah-backend/internal/middleware"
)

// respondError maps err onto the JSON error envelope. Server-side failures
// are logged and reported to Sentry with a generic message.
func respondError(c *fiber.Ctx, err error) error {
	kind := apperr.KindOf(err)
	status := kind.Status()
	body := dto.ErrorResponse{Success: false, Error: "Internal server error"}

	var e *apperr.Error
	if errors.As(err, &e) {
		switch kind {
		case apperr.KindValidation:
			body.Error = e.Message
			body.Details = e.Details
		case apperr.KindLimitReached:
			body.Error = e.Message
			body.UsageLimitReached = true
			body.Details = e.Details
		case apperr.KindAuth, apperr.KindNotFound, apperr.KindUpstream:
			body.Error = e.Message
		}
	}

	if status >= fiber.StatusInternalServerError {
		attrs := []any{
			"request_id", requestID(c),
			"method", c.Method(),
			"path", c.Path(),
			"kind", kind.String(),
			"error", err.Error(),
		}
		if id, uerr := middleware.UserID(c); uerr == nil {
			attrs = append(attrs, "user_id", id.String())
		}
		slog.Error("request failed", attrs...)
		if hub := sentryfiber.GetHubFromContext(c); hub != nil {
			hub.CaptureException(err)
		}
	}

	return c.Status(status).JSON(body)
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Success: false, Error: msg})
}

// currentUser resolves the authenticated user or writes a 401.
func currentUser(c *fiber.Ctx) (uuid.UUID, bool, error) {
	id, err := middleware.UserID(c)
	if err != nil {
		return uuid.Nil, false, respondError(c, apperr.Auth("Unauthorized: invalid token subject"))
	}
	return id, true, nil
}

func requestID(c *fiber.Ctx) string {
	return c.GetRespHeader(fiber.HeaderXRequestID)
}
