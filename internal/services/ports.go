package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v79"

	"github.com/talkah/talkah-backend/internal/ai"
	"github.com/talkah/talkah-backend/internal/mailer"
	"github.com/talkah/talkah-backend/internal/models"
	"github.com/talkah/talkah-backend/internal/plans"
	"github.com/talkah/talkah-backend/internal/telephony"
)

// Stores are implemented by internal/repository.

type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByStripeCustomerID(ctx context.Context, customerID string) (*models.User, error)
	SetStripeCustomerID(ctx context.Context, id uuid.UUID, customerID string) error
	UpdateBillingState(ctx context.Context, id uuid.UUID, state models.BillingState) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	SetPendingPlanChange(ctx context.Context, id uuid.UUID, change *models.PendingPlanChange) error
	ListDuePlanChanges(ctx context.Context, now time.Time) ([]models.User, error)
}

type UsageStore interface {
	CurrentMonthUsage(ctx context.Context, userID uuid.UUID, periodStart time.Time) (models.UsageCounts, error)
	IncrementUsage(ctx context.Context, userID uuid.UUID, periodStart time.Time, action plans.Action) error
}

type SubscriptionEventStore interface {
	Create(ctx context.Context, event *models.SubscriptionEvent) error
	ExistsForStripeEvent(ctx context.Context, stripeEventID string) (bool, error)
	ListForUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.SubscriptionEvent, error)
}

type CallStore interface {
	Create(ctx context.Context, call *models.Call) error
	Save(ctx context.Context, call *models.Call) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Call, error)
	GetBySID(ctx context.Context, sid string) (*models.Call, error)
}

type EmailStore interface {
	Create(ctx context.Context, email *models.Email) error
}

type SMSStore interface {
	CreateConversation(ctx context.Context, conv *models.SmsConversation) error
	SaveConversation(ctx context.Context, conv *models.SmsConversation) error
	ActiveConversationForPhone(ctx context.Context, phone string) (*models.SmsConversation, error)
	AddMessage(ctx context.Context, msg *models.SmsMessage) error
	Messages(ctx context.Context, conversationID uuid.UUID) ([]models.SmsMessage, error)
}

// External transports.

type Completer interface {
	Complete(ctx context.Context, messages []ai.Message) (string, error)
}

type Telephony interface {
	PlaceCall(ctx context.Context, req telephony.CallRequest) (*telephony.Result, error)
	SendSMS(ctx context.Context, to, body string) (*telephony.Result, error)
}

type Mailer interface {
	Send(ctx context.Context, msg mailer.Message) (string, error)
}

type BillingProvider interface {
	GetSubscription(ctx context.Context, id string) (*stripe.Subscription, error)
	ChangeSubscriptionPrice(ctx context.Context, subscriptionID, priceID string, prorate bool) (*stripe.Subscription, error)
	CreateCustomer(ctx context.Context, email string, userID uuid.UUID) (string, error)
	CreateCheckoutSession(ctx context.Context, customerID, priceID string, userID uuid.UUID) (string, error)
	CreatePortalSession(ctx context.Context, customerID string) (string, error)
}
