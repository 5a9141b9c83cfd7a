package handlers

import (
	"log/slog"

	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/gofiber/fiber/v2"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/talkah/talkah-backend/internal/apperr"
	"github.com/talkah/talkah-backend/internal/dto"
	"github.com/talkah/talkah-backend/internal/metrics"
)

type WebhookHandler struct {
	reconciler StripeReconciler
	secret     string
}

func NewWebhookHandler(reconciler StripeReconciler, secret string) *WebhookHandler {
	return &WebhookHandler{reconciler: reconciler, secret: secret}
}

// HandleStripe verifies the Stripe-Signature header and hands the event to
// the reconciler. Processing failures are logged and still answered with
// 200 so Stripe does not retry.
func (h *WebhookHandler) HandleStripe(c *fiber.Ctx) error {
	event, err := webhook.ConstructEventWithOptions(c.Body(), c.Get("Stripe-Signature"), h.secret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		metrics.RecordWebhook("stripe", "unknown", "rejected")
		slog.Warn("stripe webhook rejected", "request_id", requestID(c), "error", err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Success: false, Error: "Invalid webhook signature",
		})
	}

	if err := h.reconciler.HandleStripeEvent(c.UserContext(), event); err != nil {
		// Events for customers created outside this service are expected.
		if apperr.Is(err, apperr.KindNotFound) {
			slog.Warn("stripe webhook skipped",
				"request_id", requestID(c),
				"event_id", event.ID,
				"event_type", string(event.Type),
				"error", err.Error(),
			)
			return c.JSON(fiber.Map{"received": true, "processed": false})
		}
		slog.Error("stripe webhook processing failed",
			"request_id", requestID(c),
			"event_id", event.ID,
			"event_type", string(event.Type),
			"error", err.Error(),
		)
		if hub := sentryfiber.GetHubFromContext(c); hub != nil {
			hub.CaptureException(err)
		}
		return c.JSON(fiber.Map{"received": true, "processed": false})
	}

	slog.Info("stripe webhook processed", "event_id", event.ID, "event_type", string(event.Type))
	return c.JSON(fiber.Map{"received": true, "processed": true})
}
