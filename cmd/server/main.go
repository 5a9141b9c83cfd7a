package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"github.com/talkah/talkah-backend/internal/ai"
	"github.com/talkah/talkah-backend/internal/app"
	"github.com/talkah/talkah-backend/internal/config"
	"github.com/talkah/talkah-backend/internal/database"
	"github.com/talkah/talkah-backend/internal/dto"
	"github.com/talkah/talkah-backend/internal/handlers"
	"github.com/talkah/talkah-backend/internal/logging"
	"github.com/talkah/talkah-backend/internal/mailer"
	"github.com/talkah/talkah-backend/internal/metrics"
	"github.com/talkah/talkah-backend/internal/middleware"
	"github.com/talkah/talkah-backend/internal/repository"
	"github.com/talkah/talkah-backend/internal/routes"
	"github.com/talkah/talkah-backend/internal/scheduler"
	"github.com/talkah/talkah-backend/internal/telephony"
	"github.com/talkah/talkah-backend/internal/validator"
)

func main() {
	// Structured logging (JSON to stdout) until the DB handler is ready
	logging.Setup("info")

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("missing configuration", "error", err)
		os.Exit(1)
	}

	// Database
	db, err := database.Connect(cfg)
	if err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	if err := database.Migrate(db); err != nil {
		slog.Error("migration failed", "error", err)
		os.Exit(1)
	}

	// PostgreSQL log handler (ERROR+ async batch)
	logRepo := repository.NewSystemLogRepository(db)
	pgLogHandler := logging.NewPGHandler(logRepo, 5*time.Second)
	logging.Setup(cfg.LogLevel, pgLogHandler)

	// Transports
	mail, err := mailer.NewPostmarkMailer(cfg.PostmarkServerToken, cfg.PostmarkAccountToken, cfg.SenderEmail, cfg.SupportEmail)
	if err != nil {
		slog.Error("mailer init failed", "error", err)
		os.Exit(1)
	}
	twilio := telephony.NewTwilioClient(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber)
	completer := ai.NewClient([]ai.Provider{
		{Name: "primary", APIKey: cfg.AIPrimaryAPIKey, BaseURL: cfg.AIPrimaryBaseURL, Model: cfg.AIPrimaryModel},
		{Name: "fallback", APIKey: cfg.AIFallbackAPIKey, BaseURL: cfg.AIFallbackBaseURL, Model: cfg.AIFallbackModel},
	}, cfg.AITimeout)

	// Services
	svc := app.NewServices(cfg, db, app.Transports{
		Billing:   app.NewBilling(cfg),
		Telephony: twilio,
		Mailer:    mail,
		AI:        completer,
	})

	// Scheduled jobs
	jobs := scheduler.New()
	if err := app.RegisterJobs(jobs, cfg, svc, logRepo); err != nil {
		slog.Error("scheduler setup failed", "error", err)
		os.Exit(1)
	}
	jobs.Start()
	// Catch up on plan changes that fell due while the server was down.
	go func() {
		if err := jobs.Trigger(app.JobPlanChanges); err != nil {
			slog.Error("plan change catch-up failed", "error", err)
		}
	}()

	// Handlers
	v := validator.New()
	var signer handlers.SignatureValidator = twilio
	if cfg.TwilioSkipSignature {
		slog.Warn("twilio signature validation disabled")
		signer = nil
	}
	h := routes.Handlers{
		Health:       handlers.NewHealthHandler(func() error { return database.Ping(db) }),
		Usage:        handlers.NewUsageHandler(svc.Usage, v),
		Call:         handlers.NewCallHandler(svc.Calls),
		SMS:          handlers.NewSMSHandler(svc.SMS),
		Email:        handlers.NewEmailHandler(svc.Emails),
		Subscription: handlers.NewSubscriptionHandler(svc.Subscriptions, v),
		Webhook:      handlers.NewWebhookHandler(svc.Subscriptions, cfg.StripeWebhookSecret),
		Twilio:       handlers.NewTwilioHandler(svc.Calls, svc.SMS, signer, cfg.PublicBaseURL),
	}

	// Sentry error tracking
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      cfg.Env,
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	// Fiber app
	server := fiber.New(fiber.Config{
		BodyLimit:    1 * 1024 * 1024,
		ErrorHandler: customErrorHandler,
	})

	server.Use(sentryfiber.New(sentryfiber.Options{
		Repanic:         true,
		WaitForDelivery: false,
	}))

	// Global middleware
	server.Use(recover.New())
	server.Use(requestid.New())
	server.Use(metrics.Middleware())
	server.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path} | ${respHeader:X-Request-ID}\n",
	}))
	server.Use(middleware.CORS(cfg))
	server.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		return c.Next()
	})

	routes.Setup(server, cfg, h)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "port", cfg.Port)
		if err := server.Listen(":" + cfg.Port); err != nil {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	slog.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.ShutdownWithContext(ctx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}
	jobs.Stop(ctx)
	pgLogHandler.Stop()
	sentry.Flush(2 * time.Second)

	if err := database.Close(db); err != nil {
		slog.Error("database close error", "error", err)
	}

	slog.Info("server stopped")
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	// Only expose error details for client errors (4xx), not server errors (5xx)
	if code >= 500 {
		slog.Error("unhandled server error", "method", c.Method(), "path", c.Path(), "error", err.Error())
		message = "Internal server error"
	}

	return c.Status(code).JSON(dto.ErrorResponse{Success: false, Error: message})
}
