package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/talkah/talkah-backend/internal/models"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (r *UserRepository) GetByStripeCustomerID(ctx context.Context, customerID string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("stripe_customer_id = ?", customerID).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (r *UserRepository) SetStripeCustomerID(ctx context.Context, id uuid.UUID, customerID string) error {
	return r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		Update("stripe_customer_id", customerID).Error
}

// UpdateBillingState writes every billing field, nil values included.
func (r *UserRepository) UpdateBillingState(ctx context.Context, id uuid.UUID, state models.BillingState) error {
	return r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"tier":                   state.Tier,
			"subscription_status":    state.Status,
			"stripe_subscription_id": state.StripeSubscriptionID,
			"stripe_price_id":        state.StripePriceID,
			"billing_cycle_start":    state.BillingCycleStart,
			"billing_cycle_end":      state.BillingCycleEnd,
		}).Error
}

func (r *UserRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	return r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		Update("subscription_status", status).Error
}

// SetPendingPlanChange stores change, or clears the pending change when nil.
func (r *UserRepository) SetPendingPlanChange(ctx context.Context, id uuid.UUID, change *models.PendingPlanChange) error {
	fields := map[string]interface{}{
		"pending_plan_id":           nil,
		"pending_plan_effective_at": nil,
		"pending_plan_change_type":  nil,
	}
	if change != nil {
		fields["pending_plan_id"] = change.PlanID
		fields["pending_plan_effective_at"] = change.EffectiveAt
		fields["pending_plan_change_type"] = string(change.ChangeType)
	}
	return r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(fields).Error
}

func (r *UserRepository) ListDuePlanChanges(ctx context.Context, now time.Time) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).
		Where("pending_plan_id IS NOT NULL AND pending_plan_effective_at <= ?", now).
		Order("pending_plan_effective_at ASC").
		Find(&users).Error
	return users, err
}
