package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/talkah/talkah-backend/internal/plans"
)

const (
	SubscriptionEventCreated  = "created"
	SubscriptionEventUpdated  = "updated"
	SubscriptionEventCanceled = "canceled"
)

// SubscriptionEvent is the audit trail of billing-driven plan changes.
type SubscriptionEvent struct {
	ID                   uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID               uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	EventType            string         `gorm:"size:30;not null" json:"event_type"`
	PreviousTier         plans.Tier     `gorm:"size:20" json:"previous_plan,omitempty"`
	NewTier              plans.Tier     `gorm:"size:20" json:"new_plan"`
	Status               string         `gorm:"size:30" json:"status"`
	StripeEventID        string         `gorm:"size:255;index" json:"stripe_event_id"`
	StripeSubscriptionID string         `gorm:"size:255" json:"stripe_subscription_id"`
	Payload              datatypes.JSON `gorm:"type:jsonb;default:'{}'" json:"payload"`
	CreatedAt            time.Time      `json:"created_at"`
}
