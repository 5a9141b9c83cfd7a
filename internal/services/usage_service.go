package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/talkah/talkah-backend/internal/apperr"
	"github.com/talkah/talkah-backend/internal/metrics"
	"github.com/talkah/talkah-backend/internal/models"
	"github.com/talkah/talkah-backend/internal/plans"
	"github.com/talkah/talkah-backend/internal/repository"
)

// UsageService reads, evaluates and increments per-period usage counters.
//
// Evaluate and Increment are separate calls with the transport call in
// between, so concurrent requests for one user may both pass the check and
// overshoot the entitlement. Increments themselves are atomic.
type UsageService struct {
	users   UserStore
	usage   UsageStore
	catalog *plans.Catalog
	now     func() time.Time
}

func NewUsageService(users UserStore, usage UsageStore, catalog *plans.Catalog) *UsageService {
	return &UsageService{
		users:   users,
		usage:   usage,
		catalog: catalog,
		now:     time.Now,
	}
}

// Summary is the usage of every action type in the current period.
type Summary struct {
	Tier        plans.Tier       `json:"plan"`
	PeriodStart time.Time        `json:"period_start"`
	PeriodEnd   time.Time        `json:"period_end"`
	Usage       []plans.Decision `json:"usage"`
}

// Period returns the usage period to count against. Subscribers use their
// last known billing cycle, even after it ends: usage keeps accruing to it
// until the renewal webhook moves the user to the next cycle. Users that
// never had cycle dates use the calendar month (UTC).
func Period(user *models.User, now time.Time) (time.Time, time.Time) {
	if user.BillingCycleStart != nil && user.BillingCycleEnd != nil {
		return user.BillingCycleStart.UTC(), user.BillingCycleEnd.UTC()
	}
	now = now.UTC()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

func (s *UsageService) lookup(ctx context.Context, userID uuid.UUID) (*models.User, models.UsageCounts, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, models.UsageCounts{}, apperr.NotFound("user not found")
		}
		return nil, models.UsageCounts{}, apperr.Internal("failed to load user", err)
	}

	start, _ := Period(user, s.now())
	counts, err := s.usage.CurrentMonthUsage(ctx, userID, start)
	if err != nil {
		return nil, models.UsageCounts{}, apperr.Internal("failed to load usage", err)
	}
	return user, counts, nil
}

// Evaluate decides whether userID may perform action now. Lookup failures
// are returned as errors, never as a deny.
func (s *UsageService) Evaluate(ctx context.Context, userID uuid.UUID, action plans.Action) (plans.Decision, error) {
	if !action.Valid() {
		return plans.Decision{}, apperr.Validation(fmt.Sprintf("unknown action type %q", action), nil)
	}

	user, counts, err := s.lookup(ctx, userID)
	if err != nil {
		return plans.Decision{}, err
	}

	decision := s.catalog.Evaluate(user.Tier, action, counts.For(action))
	metrics.RecordUsageDecision(string(action), string(decision.Tier), decision.Allowed)
	if !decision.Allowed {
		slog.Info("usage limit reached",
			"user_id", userID.String(),
			"action", string(action),
			"used", decision.Used,
			"limit", decision.Limit,
		)
	}
	return decision, nil
}

// Require is Evaluate that turns a deny into a LimitReached error carrying
// the decision.
func (s *UsageService) Require(ctx context.Context, userID uuid.UUID, action plans.Action) error {
	decision, err := s.Evaluate(ctx, userID, action)
	if err != nil {
		return err
	}
	if !decision.Allowed {
		e := apperr.LimitReached(fmt.Sprintf("%s limit reached for the %s plan", action, decision.Tier))
		e.Details = decision
		return e
	}
	return nil
}

// Increment adds one to action's counter for the current period. It is not
// idempotent.
func (s *UsageService) Increment(ctx context.Context, userID uuid.UUID, action plans.Action) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}
	start, _ := Period(user, s.now())
	if err := s.usage.IncrementUsage(ctx, userID, start, action); err != nil {
		return fmt.Errorf("increment %s usage: %w", action, err)
	}
	return nil
}

// record increments after a successful transport call. A failure leaves the
// counter short; it is logged and otherwise ignored.
func (s *UsageService) record(ctx context.Context, userID uuid.UUID, action plans.Action) {
	if err := s.Increment(ctx, userID, action); err != nil {
		metrics.RecordIncrementFailure(string(action))
		slog.Error("usage increment failed",
			"user_id", userID.String(),
			"action", string(action),
			"error", err.Error(),
		)
	}
}

func (s *UsageService) Summary(ctx context.Context, userID uuid.UUID) (*Summary, error) {
	user, counts, err := s.lookup(ctx, userID)
	if err != nil {
		return nil, err
	}

	start, end := Period(user, s.now())
	summary := &Summary{
		Tier:        s.catalog.Plan(user.Tier).Tier,
		PeriodStart: start,
		PeriodEnd:   end,
		Usage:       make([]plans.Decision, 0, len(plans.Actions)),
	}
	for _, a := range plans.Actions {
		summary.Usage = append(summary.Usage, s.catalog.Evaluate(user.Tier, a, counts.For(a)))
	}
	return summary, nil
}
