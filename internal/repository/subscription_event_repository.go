package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/talkah/talkah-backend/internal/models"
)

type SubscriptionEventRepository struct {
	db *gorm.DB
}

func NewSubscriptionEventRepository(db *gorm.DB) *SubscriptionEventRepository {
	return &SubscriptionEventRepository{db: db}
}

func (r *SubscriptionEventRepository) Create(ctx context.Context, event *models.SubscriptionEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *SubscriptionEventRepository) ExistsForStripeEvent(ctx context.Context, stripeEventID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.SubscriptionEvent{}).
		Where("stripe_event_id = ?", stripeEventID).
		Count(&count).Error
	return count > 0, err
}

func (r *SubscriptionEventRepository) ListForUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.SubscriptionEvent, error) {
	var events []models.SubscriptionEvent
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&events).Error
	return events, err
}
