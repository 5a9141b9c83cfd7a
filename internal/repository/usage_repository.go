package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/talkah/talkah-backend/internal/models"
	"github.com/talkah/talkah-backend/internal/plans"
)

type UsageRepository struct {
	db *gorm.DB
}

func NewUsageRepository(db *gorm.DB) *UsageRepository {
	return &UsageRepository{db: db}
}

// CurrentMonthUsage returns the counters of the period starting at
// periodStart. A period without a row has zero usage.
func (r *UsageRepository) CurrentMonthUsage(ctx context.Context, userID uuid.UUID, periodStart time.Time) (models.UsageCounts, error) {
	var rec models.UsageRecord
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND period_start = ?", userID, periodStart).
		First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.UsageCounts{}, nil
		}
		return models.UsageCounts{}, err
	}
	return models.UsageCounts{Calls: rec.CallsUsed, Texts: rec.TextsUsed, Emails: rec.EmailsUsed}, nil
}

// IncrementUsage adds one to the action's counter with a single upsert, so
// concurrent increments are never lost.
func (r *UsageRepository) IncrementUsage(ctx context.Context, userID uuid.UUID, periodStart time.Time, action plans.Action) error {
	col := models.UsageColumn(action)
	if col == "" {
		return fmt.Errorf("unknown action %q", action)
	}

	rec := models.UsageRecord{
		ID:          uuid.New(),
		UserID:      userID,
		PeriodStart: periodStart,
	}
	switch action {
	case plans.ActionCall:
		rec.CallsUsed = 1
	case plans.ActionText:
		rec.TextsUsed = 1
	case plans.ActionEmail:
		rec.EmailsUsed = 1
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "period_start"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			col:          gorm.Expr("usage_tracking." + col + " + 1"),
			"updated_at": time.Now(),
		}),
	}).Create(&rec).Error
}
