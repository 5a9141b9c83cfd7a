package handlers

import (
	"context"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v79"

	"github.com/talkah/talkah-backend/internal/models"
	"github.com/talkah/talkah-backend/internal/plans"
	"github.com/talkah/talkah-backend/internal/services"
)

// The handler dependencies are implemented by internal/services.

type UsageAPI interface {
	Evaluate(ctx context.Context, userID uuid.UUID, action plans.Action) (plans.Decision, error)
	Summary(ctx context.Context, userID uuid.UUID) (*services.Summary, error)
}

type CallAPI interface {
	Initiate(ctx context.Context, userID uuid.UUID, in services.CallInput) (*models.Call, error)
	VoiceTwiML(ctx context.Context, callID uuid.UUID) (string, error)
	HandleStatusCallback(ctx context.Context, u services.CallStatusUpdate) error
}

type SMSAPI interface {
	Start(ctx context.Context, userID uuid.UUID, in services.SMSInput) (*models.SmsConversation, error)
	HandleInbound(ctx context.Context, in services.InboundSMS) error
}

type EmailAPI interface {
	Send(ctx context.Context, userID uuid.UUID, in services.EmailInput) (*models.Email, error)
}

type SubscriptionAPI interface {
	Get(ctx context.Context, userID uuid.UUID) (*services.SubscriptionView, error)
	Checkout(ctx context.Context, userID uuid.UUID, priceID string) (string, error)
	Portal(ctx context.Context, userID uuid.UUID) (string, error)
	RequestPlanChange(ctx context.Context, userID uuid.UUID, priceID string) (*services.PlanChangeResult, error)
	CancelPendingPlanChange(ctx context.Context, userID uuid.UUID) error
}

type StripeReconciler interface {
	HandleStripeEvent(ctx context.Context, event stripe.Event) error
}

// SignatureValidator checks X-Twilio-Signature.
type SignatureValidator interface {
	ValidSignature(url string, params map[string]string, signature string) bool
}
