// Package app wires repositories, transports and services together for the
// server and the ops CLI.
package app

import (
	"context"

	"gorm.io/gorm"

	"github.com/talkah/talkah-backend/internal/billing"
	"github.com/talkah/talkah-backend/internal/config"
	"github.com/talkah/talkah-backend/internal/logging"
	"github.com/talkah/talkah-backend/internal/repository"
	"github.com/talkah/talkah-backend/internal/scheduler"
	"github.com/talkah/talkah-backend/internal/services"
	"github.com/talkah/talkah-backend/internal/validator"
)

// Transports are the external providers. The CLI leaves the ones it does
// not need nil.
type Transports struct {
	Billing   services.BillingProvider
	Telephony services.Telephony
	Mailer    services.Mailer
	AI        services.Completer
}

type Services struct {
	Usage         *services.UsageService
	Subscriptions *services.SubscriptionService
	Calls         *services.CallService
	SMS           *services.SMSService
	Emails        *services.EmailService
}

func NewBilling(cfg *config.Config) *billing.StripeClient {
	return billing.NewStripeClient(cfg.StripeSecretKey, cfg.FrontendURL)
}

func NewServices(cfg *config.Config, db *gorm.DB, t Transports) *Services {
	users := repository.NewUserRepository(db)
	usage := services.NewUsageService(users, repository.NewUsageRepository(db), cfg.Catalog)
	v := validator.New()

	return &Services{
		Usage: usage,
		Subscriptions: services.NewSubscriptionService(
			users,
			repository.NewSubscriptionEventRepository(db),
			t.Billing,
			cfg.Catalog,
			cfg.StripeWebhookDedupe,
		),
		Calls:  services.NewCallService(usage, repository.NewCallRepository(db), t.Telephony, t.AI, v, cfg.PublicBaseURL),
		SMS:    services.NewSMSService(usage, repository.NewSMSRepository(db), t.Telephony, t.AI, v),
		Emails: services.NewEmailService(usage, repository.NewEmailRepository(db), t.Mailer, t.AI, v),
	}
}

// Job names.
const (
	JobPlanChanges = "plan-changes"
	JobLogCleanup  = "log-cleanup"
)

// RegisterJobs adds the pending plan change and log retention jobs.
func RegisterJobs(s *scheduler.Scheduler, cfg *config.Config, svc *Services, logs logging.LogPruner) error {
	if err := s.Add(scheduler.Job{
		Name:     JobPlanChanges,
		Schedule: cfg.PlanChangeSchedule,
		Run: func(ctx context.Context) error {
			_, err := svc.Subscriptions.ApplyDuePlanChanges(ctx)
			return err
		},
	}); err != nil {
		return err
	}
	return s.Add(scheduler.Job{
		Name:     JobLogCleanup,
		Schedule: cfg.LogCleanupSchedule,
		Run: func(ctx context.Context) error {
			return logging.Cleanup(ctx, logs, cfg.LogRetention)
		},
	})
}
