package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/talkah/talkah-backend/internal/config"
	"github.com/talkah/talkah-backend/internal/handlers"
	"github.com/talkah/talkah-backend/internal/metrics"
	"github.com/talkah/talkah-backend/internal/middleware"
)

type Handlers struct {
	Health       *handlers.HealthHandler
	Usage        *handlers.UsageHandler
	Call         *handlers.CallHandler
	SMS          *handlers.SMSHandler
	Email        *handlers.EmailHandler
	Subscription *handlers.SubscriptionHandler
	Webhook      *handlers.WebhookHandler
	Twilio       *handlers.TwilioHandler
}

func Setup(app *fiber.App, cfg *config.Config, h Handlers) {
	app.Get("/metrics", metrics.Handler())

	api := app.Group("/api")
	api.Get("/health", h.Health.Check)

	// Webhooks authenticate by provider signature (no JWT).
	webhooks := api.Group("/webhooks")
	webhooks.Post("/stripe", h.Webhook.HandleStripe)
	webhooks.Post("/twilio/sms", h.Twilio.InboundSMS)
	webhooks.Post("/twilio/call-status", h.Twilio.CallStatus)
	webhooks.Post("/twilio/voice/:id", h.Twilio.Voice)

	// Protected routes (JWT required) - middleware is applied per route so
	// it never runs for the public routes above.
	jwt := middleware.JWTProtected(cfg)
	limit := middleware.RateLimit(cfg.RateLimit)

	api.Get("/usage", jwt, limit, h.Usage.Summary)
	api.Post("/usage/check", jwt, limit, h.Usage.Check)

	api.Post("/calls", jwt, limit, h.Call.Initiate)
	api.Post("/sms", jwt, limit, h.SMS.Start)
	api.Post("/emails", jwt, limit, h.Email.Send)

	api.Get("/subscription", jwt, limit, h.Subscription.Get)
	api.Post("/subscription/checkout", jwt, limit, h.Subscription.Checkout)
	api.Post("/subscription/portal", jwt, limit, h.Subscription.Portal)
	api.Post("/subscription/change", jwt, limit, h.Subscription.RequestChange)
	api.Delete("/subscription/change", jwt, limit, h.Subscription.CancelChange)
}
