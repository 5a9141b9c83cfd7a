package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/talkah/talkah-backend/internal/plans"
)

const (
	SubscriptionActive   = "active"
	SubscriptionPastDue  = "past_due"
	SubscriptionCanceled = "canceled"
)

// User mirrors the auth provider's user plus billing state. Rows are created
// at signup by the auth provider; this service only updates them.
type User struct {
	ID                   uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Email                string     `gorm:"size:255;not null;uniqueIndex" json:"email"`
	Phone                string     `gorm:"size:32" json:"phone,omitempty"`
	Tier                 plans.Tier `gorm:"size:20;not null;default:'free'" json:"subscription_plan"`
	SubscriptionStatus   string     `gorm:"size:30;not null;default:'active'" json:"subscription_status"`
	StripeCustomerID     *string    `gorm:"size:255;uniqueIndex" json:"-"`
	StripeSubscriptionID *string    `gorm:"size:255;index" json:"-"`
	StripePriceID        *string    `gorm:"size:255" json:"-"`
	BillingCycleStart    *time.Time `json:"billing_cycle_start"`
	BillingCycleEnd      *time.Time `json:"billing_cycle_end"`

	PendingPlanID          *string    `gorm:"size:255" json:"-"`
	PendingPlanEffectiveAt *time.Time `gorm:"index" json:"-"`
	PendingPlanChangeType  *string    `gorm:"size:20" json:"-"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// PendingPlanChange is a plan change scheduled for a later date.
type PendingPlanChange struct {
	PlanID      string           `json:"plan_id"`
	EffectiveAt time.Time        `json:"effective_date"`
	ChangeType  plans.ChangeType `json:"change_type"`
}

// PendingChange returns nil when no change is scheduled.
func (u *User) PendingChange() *PendingPlanChange {
	if u.PendingPlanID == nil || u.PendingPlanEffectiveAt == nil {
		return nil
	}
	pc := &PendingPlanChange{PlanID: *u.PendingPlanID, EffectiveAt: *u.PendingPlanEffectiveAt}
	if u.PendingPlanChangeType != nil {
		pc.ChangeType = plans.ChangeType(*u.PendingPlanChangeType)
	}
	return pc
}

// BillingState is the absolute set of billing fields written by the
// subscription reconciler.
type BillingState struct {
	Tier                 plans.Tier
	Status               string
	StripeSubscriptionID *string
	StripePriceID        *string
	BillingCycleStart    *time.Time
	BillingCycleEnd      *time.Time
}

func (u *User) BillingState() BillingState {
	return BillingState{
		Tier:                 u.Tier,
		Status:               u.SubscriptionStatus,
		StripeSubscriptionID: u.StripeSubscriptionID,
		StripePriceID:        u.StripePriceID,
		BillingCycleStart:    u.BillingCycleStart,
		BillingCycleEnd:      u.BillingCycleEnd,
	}
}
