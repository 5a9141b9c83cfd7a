package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/talkah/talkah-backend/internal/plans"
)

type Config struct {
	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// JWT issued by the managed auth provider (HS256 shared secret)
	JWTSecret string

	// Stripe
	StripeSecretKey     string
	StripeWebhookSecret string
	StripeWebhookDedupe bool
	FrontendURL         string

	// Twilio
	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string
	// Skips X-Twilio-Signature checks (local tunnels rewrite the host).
	TwilioSkipSignature bool

	// Postmark
	PostmarkServerToken  string
	PostmarkAccountToken string
	SenderEmail          string
	SupportEmail         string

	// AI providers (OpenAI-compatible chat completion endpoints)
	AIPrimaryAPIKey   string
	AIPrimaryBaseURL  string
	AIPrimaryModel    string
	AIFallbackAPIKey  string
	AIFallbackBaseURL string
	AIFallbackModel   string
	AITimeout         time.Duration

	// Plans
	Catalog *plans.Catalog

	// Scheduler
	PlanChangeSchedule string
	LogCleanupSchedule string
	LogRetention       time.Duration

	// Server
	Port          string
	CORSOrigins   string
	PublicBaseURL string
	// Requests per minute per client on authenticated routes; 0 disables.
	RateLimit int

	// Observability
	LogLevel  string
	SentryDSN string
	Env       string
}

// Load reads the environment, after an optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	catalog, err := loadCatalog()
	if err != nil {
		return nil, err
	}

	return &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "talkah"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		JWTSecret: getEnv("JWT_SECRET", ""),

		StripeSecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),
		StripeWebhookDedupe: parseBool(getEnv("STRIPE_WEBHOOK_DEDUPE", "false")),
		FrontendURL:         strings.TrimRight(getEnv("FRONTEND_URL", "http://localhost:3000"), "/"),

		TwilioAccountSID:    getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:     getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioFromNumber:    getEnv("TWILIO_PHONE_NUMBER", ""),
		TwilioSkipSignature: parseBool(getEnv("TWILIO_SKIP_SIGNATURE", "false")),

		PostmarkServerToken:  getEnv("POSTMARK_SERVER_TOKEN", ""),
		PostmarkAccountToken: getEnv("POSTMARK_ACCOUNT_TOKEN", ""),
		SenderEmail:          getEnv("SENDER_EMAIL", "noreply@talkah.com"),
		SupportEmail:         getEnv("SUPPORT_EMAIL", "support@talkah.com"),

		AIPrimaryAPIKey:   getEnv("OPENAI_API_KEY", ""),
		AIPrimaryBaseURL:  getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		AIPrimaryModel:    getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		AIFallbackAPIKey:  getEnv("DEEPSEEK_API_KEY", ""),
		AIFallbackBaseURL: getEnv("DEEPSEEK_BASE_URL", "https://api.deepseek.com/v1"),
		AIFallbackModel:   getEnv("DEEPSEEK_MODEL", "deepseek-chat"),
		AITimeout:         parseDuration(getEnv("AI_TIMEOUT", "60s"), 60*time.Second),

		Catalog: catalog,

		PlanChangeSchedule: getEnv("PLAN_CHANGE_SCHEDULE", "@hourly"),
		LogCleanupSchedule: getEnv("LOG_CLEANUP_SCHEDULE", "@daily"),
		LogRetention:       parseDuration(getEnv("LOG_RETENTION", "720h"), 30*24*time.Hour),

		Port:          getEnv("PORT", "8080"),
		CORSOrigins:   getEnv("CORS_ORIGINS", "*"),
		PublicBaseURL: strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),
		RateLimit:     parseInt(getEnv("RATE_LIMIT_PER_MINUTE", "60"), 60),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		SentryDSN: getEnv("SENTRY_DSN", ""),
		Env:       getEnv("APP_ENV", "development"),
	}, nil
}

// Validate reports every missing secret the server cannot start without.
func (c *Config) Validate() error {
	var errs []error
	required := map[string]string{
		"JWT_SECRET":            c.JWTSecret,
		"DB_PASSWORD":           c.DBPassword,
		"STRIPE_SECRET_KEY":     c.StripeSecretKey,
		"STRIPE_WEBHOOK_SECRET": c.StripeWebhookSecret,
		"TWILIO_ACCOUNT_SID":    c.TwilioAccountSID,
		"TWILIO_AUTH_TOKEN":     c.TwilioAuthToken,
		"TWILIO_PHONE_NUMBER":   c.TwilioFromNumber,
		"POSTMARK_SERVER_TOKEN": c.PostmarkServerToken,
	}
	for key, val := range required {
		if val == "" {
			errs = append(errs, fmt.Errorf("%s environment variable is required", key))
		}
	}
	if c.AIPrimaryAPIKey == "" && c.AIFallbackAPIKey == "" {
		errs = append(errs, errors.New("at least one of OPENAI_API_KEY or DEEPSEEK_API_KEY is required"))
	}
	return errors.Join(errs...)
}

func (c *Config) DSN() string {
	return "host=" + c.DBHost +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" port=" + c.DBPort +
		" sslmode=" + c.DBSSLMode +
		" TimeZone=UTC"
}

func loadCatalog() (*plans.Catalog, error) {
	catalog := plans.DefaultCatalog()

	if raw := os.Getenv("PLAN_LIMITS"); raw != "" {
		limits, err := plans.ParseLimits(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid PLAN_LIMITS: %w", err)
		}
		for tier, l := range limits {
			catalog.SetLimits(tier, l)
		}
	}

	if raw := os.Getenv("STRIPE_PRICE_TIERS"); raw != "" {
		prices, err := plans.ParsePriceTiers(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid STRIPE_PRICE_TIERS: %w", err)
		}
		catalog.SetPrices(prices)
	}

	return catalog, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(s)
	return err == nil && b
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
