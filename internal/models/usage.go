package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/talkah/talkah-backend/internal/plans"
)

// UsageRecord holds one user's counters for one usage period.
type UsageRecord struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"-"`
	UserID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_usage_user_period,priority:1" json:"user_id"`
	PeriodStart time.Time `gorm:"not null;uniqueIndex:idx_usage_user_period,priority:2" json:"period_start"`
	CallsUsed   int       `gorm:"not null;default:0" json:"calls_used"`
	TextsUsed   int       `gorm:"not null;default:0" json:"texts_used"`
	EmailsUsed  int       `gorm:"not null;default:0" json:"emails_used"`
	CreatedAt   time.Time `json:"-"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (UsageRecord) TableName() string {
	return "usage_tracking"
}

// UsageCounts is the result of the current-period aggregate lookup.
type UsageCounts struct {
	Calls  int
	Texts  int
	Emails int
}

func (u UsageCounts) For(a plans.Action) int {
	switch a {
	case plans.ActionCall:
		return u.Calls
	case plans.ActionText:
		return u.Texts
	case plans.ActionEmail:
		return u.Emails
	}
	return 0
}

// UsageColumn returns the counter column of a usage_tracking row.
func UsageColumn(a plans.Action) string {
	switch a {
	case plans.ActionCall:
		return "calls_used"
	case plans.ActionText:
		return "texts_used"
	case plans.ActionEmail:
		return "emails_used"
	}
	return ""
}
