package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v79"
	"gorm.io/datatypes"

	"github.com/talkah/talkah-backend/internal/apperr"
	"github.com/talkah/talkah-backend/internal/billing"
	"github.com/talkah/talkah-backend/internal/metrics"
	"github.com/talkah/talkah-backend/internal/models"
	"github.com/talkah/talkah-backend/internal/plans"
	"github.com/talkah/talkah-backend/internal/repository"
)

// Stripe event types handled by the reconciler.
const (
	EventSubscriptionCreated = "customer.subscription.created"
	EventSubscriptionUpdated = "customer.subscription.updated"
	EventSubscriptionDeleted = "customer.subscription.deleted"
	EventPaymentSucceeded    = "invoice.payment_succeeded"
	EventPaymentFailed       = "invoice.payment_failed"
)

type SubscriptionService struct {
	users   UserStore
	events  SubscriptionEventStore
	billing BillingProvider
	catalog *plans.Catalog
	// dedupe skips audit rows whose Stripe event id is already recorded.
	dedupe bool
	now    func() time.Time
}

func NewSubscriptionService(users UserStore, events SubscriptionEventStore, billing BillingProvider, catalog *plans.Catalog, dedupe bool) *SubscriptionService {
	return &SubscriptionService{
		users:   users,
		events:  events,
		billing: billing,
		catalog: catalog,
		dedupe:  dedupe,
		now:     time.Now,
	}
}

// HandleStripeEvent applies one verified Stripe webhook event to the user
// record. Unhandled event types are ignored.
func (s *SubscriptionService) HandleStripeEvent(ctx context.Context, event stripe.Event) error {
	eventType := string(event.Type)
	var raw json.RawMessage
	if event.Data != nil {
		raw = event.Data.Raw
	}

	var err error
	switch eventType {
	case EventSubscriptionCreated, EventSubscriptionUpdated:
		var sub stripe.Subscription
		if err = json.Unmarshal(raw, &sub); err != nil {
			return apperr.Validation("invalid subscription payload", nil)
		}
		auditType := models.SubscriptionEventUpdated
		if eventType == EventSubscriptionCreated {
			auditType = models.SubscriptionEventCreated
		}
		err = s.applySubscription(ctx, event.ID, &sub, auditType, raw)

	case EventSubscriptionDeleted:
		var sub stripe.Subscription
		if err = json.Unmarshal(raw, &sub); err != nil {
			return apperr.Validation("invalid subscription payload", nil)
		}
		err = s.cancelSubscription(ctx, event.ID, &sub, raw)

	case EventPaymentSucceeded:
		var inv stripe.Invoice
		if err = json.Unmarshal(raw, &inv); err != nil {
			return apperr.Validation("invalid invoice payload", nil)
		}
		err = s.replayInvoiceSubscription(ctx, event.ID, &inv)

	case EventPaymentFailed:
		var inv stripe.Invoice
		if err = json.Unmarshal(raw, &inv); err != nil {
			return apperr.Validation("invalid invoice payload", nil)
		}
		err = s.markPastDue(ctx, &inv)

	default:
		metrics.RecordWebhook("stripe", eventType, "ignored")
		slog.Debug("stripe event ignored", "event_type", eventType, "event_id", event.ID)
		return nil
	}

	outcome := "applied"
	if err != nil {
		outcome = "failed"
	}
	metrics.RecordWebhook("stripe", eventType, outcome)
	return err
}

func (s *SubscriptionService) userForCustomer(ctx context.Context, customerID string) (*models.User, error) {
	if customerID == "" {
		return nil, apperr.Validation("event has no customer id", nil)
	}
	user, err := s.users.GetByStripeCustomerID(ctx, customerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("no user for stripe customer " + customerID)
		}
		return nil, apperr.Internal("failed to load user", err)
	}
	return user, nil
}

// applySubscription writes tier, status and cycle dates from sub as absolute
// values, then appends an audit row.
func (s *SubscriptionService) applySubscription(ctx context.Context, eventID string, sub *stripe.Subscription, auditType string, raw json.RawMessage) error {
	user, err := s.userForCustomer(ctx, billing.CustomerID(sub.Customer))
	if err != nil {
		return err
	}

	priceID := billing.PriceID(sub)
	tier, mapped := s.catalog.TierForPrice(priceID)
	if !mapped {
		slog.Warn("unmapped stripe price id, falling back to free tier",
			"price_id", priceID,
			"subscription_id", sub.ID,
			"user_id", user.ID.String(),
		)
	}

	state := models.BillingState{
		Tier:                 tier,
		Status:               string(sub.Status),
		StripeSubscriptionID: optional(sub.ID),
		StripePriceID:        optional(priceID),
		BillingCycleStart:    billing.UnixTime(sub.CurrentPeriodStart),
		BillingCycleEnd:      billing.UnixTime(sub.CurrentPeriodEnd),
	}
	before := user.BillingState()
	previous := before.Tier
	if err := s.users.UpdateBillingState(ctx, user.ID, state); err != nil {
		return apperr.Internal("failed to update user billing state", err)
	}

	if pc := user.PendingChange(); pc != nil && pc.PlanID == priceID {
		if err := s.users.SetPendingPlanChange(ctx, user.ID, nil); err != nil {
			return apperr.Internal("failed to clear pending plan change", err)
		}
	}

	slog.Info("subscription reconciled",
		"user_id", user.ID.String(),
		"event", auditType,
		"previous_tier", string(previous),
		"tier", string(tier),
		"previous_status", before.Status,
		"status", state.Status,
	)

	return s.audit(ctx, &models.SubscriptionEvent{
		UserID:               user.ID,
		EventType:            auditType,
		PreviousTier:         previous,
		NewTier:              tier,
		Status:               state.Status,
		StripeEventID:        eventID,
		StripeSubscriptionID: sub.ID,
		Payload:              datatypes.JSON(raw),
	})
}

func (s *SubscriptionService) cancelSubscription(ctx context.Context, eventID string, sub *stripe.Subscription, raw json.RawMessage) error {
	user, err := s.userForCustomer(ctx, billing.CustomerID(sub.Customer))
	if err != nil {
		return err
	}

	previous := user.Tier
	state := models.BillingState{
		Tier:   plans.TierFree,
		Status: models.SubscriptionCanceled,
	}
	if err := s.users.UpdateBillingState(ctx, user.ID, state); err != nil {
		return apperr.Internal("failed to update user billing state", err)
	}
	if user.PendingChange() != nil {
		if err := s.users.SetPendingPlanChange(ctx, user.ID, nil); err != nil {
			return apperr.Internal("failed to clear pending plan change", err)
		}
	}

	slog.Info("subscription canceled", "user_id", user.ID.String(), "previous_tier", string(previous))

	return s.audit(ctx, &models.SubscriptionEvent{
		UserID:               user.ID,
		EventType:            models.SubscriptionEventCanceled,
		PreviousTier:         previous,
		NewTier:              plans.TierFree,
		Status:               models.SubscriptionCanceled,
		StripeEventID:        eventID,
		StripeSubscriptionID: sub.ID,
		Payload:              datatypes.JSON(raw),
	})
}

// replayInvoiceSubscription re-fetches the invoice's subscription and
// applies it as an update.
func (s *SubscriptionService) replayInvoiceSubscription(ctx context.Context, eventID string, inv *stripe.Invoice) error {
	if inv.Subscription == nil || inv.Subscription.ID == "" {
		return nil
	}
	sub, err := s.billing.GetSubscription(ctx, inv.Subscription.ID)
	if err != nil {
		return apperr.Upstream("failed to fetch subscription", err)
	}
	raw, err := json.Marshal(sub)
	if err != nil {
		raw = []byte("{}")
	}
	return s.applySubscription(ctx, eventID, sub, models.SubscriptionEventUpdated, raw)
}

func (s *SubscriptionService) markPastDue(ctx context.Context, inv *stripe.Invoice) error {
	user, err := s.userForCustomer(ctx, billing.CustomerID(inv.Customer))
	if err != nil {
		return err
	}
	if err := s.users.UpdateStatus(ctx, user.ID, models.SubscriptionPastDue); err != nil {
		return apperr.Internal("failed to update subscription status", err)
	}
	slog.Warn("subscription payment failed", "user_id", user.ID.String(), "invoice_id", inv.ID)
	return nil
}

func (s *SubscriptionService) audit(ctx context.Context, event *models.SubscriptionEvent) error {
	if s.dedupe && event.StripeEventID != "" {
		exists, err := s.events.ExistsForStripeEvent(ctx, event.StripeEventID)
		if err != nil {
			return apperr.Internal("failed to check audit log", err)
		}
		if exists {
			slog.Info("duplicate stripe event, audit row skipped", "stripe_event_id", event.StripeEventID)
			return nil
		}
	}
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if len(event.Payload) == 0 {
		event.Payload = datatypes.JSON("{}")
	}
	if err := s.events.Create(ctx, event); err != nil {
		return apperr.Internal("failed to record subscription event", err)
	}
	return nil
}

// --- Plan management ---

// SubscriptionView is what clients render on the subscription screen.
type SubscriptionView struct {
	Tier              plans.Tier                `json:"plan"`
	Status            string                    `json:"status"`
	PriceID           string                    `json:"price_id,omitempty"`
	BillingCycleStart *time.Time                `json:"billing_cycle_start"`
	BillingCycleEnd   *time.Time                `json:"billing_cycle_end"`
	Limits            plans.Limits              `json:"limits"`
	PendingChange     *models.PendingPlanChange `json:"pending_plan_change"`
	History           []HistoryEntry            `json:"history"`
}

// HistoryEntry is one audited subscription change, newest first.
type HistoryEntry struct {
	EventType    string     `json:"event_type"`
	PreviousTier plans.Tier `json:"previous_tier"`
	NewTier      plans.Tier `json:"new_tier"`
	Status       string     `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
}

const historyLimit = 10

func (s *SubscriptionService) Get(ctx context.Context, userID uuid.UUID) (*SubscriptionView, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	view := &SubscriptionView{
		Tier:              s.catalog.Plan(user.Tier).Tier,
		Status:            user.SubscriptionStatus,
		BillingCycleStart: user.BillingCycleStart,
		BillingCycleEnd:   user.BillingCycleEnd,
		Limits:            s.catalog.Limits(user.Tier),
		PendingChange:     user.PendingChange(),
	}
	if user.StripePriceID != nil {
		view.PriceID = *user.StripePriceID
	}

	events, err := s.events.ListForUser(ctx, userID, historyLimit)
	if err != nil {
		return nil, apperr.Internal("failed to load subscription history", err)
	}
	view.History = make([]HistoryEntry, 0, len(events))
	for _, e := range events {
		view.History = append(view.History, HistoryEntry{
			EventType:    e.EventType,
			PreviousTier: e.PreviousTier,
			NewTier:      e.NewTier,
			Status:       e.Status,
			CreatedAt:    e.CreatedAt,
		})
	}
	return view, nil
}

// PlanChangeResult describes how a requested change was handled.
type PlanChangeResult struct {
	ChangeType  plans.ChangeType `json:"change_type"`
	PlanID      string           `json:"plan_id"`
	Immediate   bool             `json:"immediate"`
	EffectiveAt time.Time        `json:"effective_date"`
}

// RequestPlanChange upgrades immediately with proration. Downgrades and
// same-tier switches are stored as a pending change effective at the end of
// the billing cycle. The user row itself is updated by the webhook Stripe
// sends for the change.
func (s *SubscriptionService) RequestPlanChange(ctx context.Context, userID uuid.UUID, priceID string) (*PlanChangeResult, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.StripeSubscriptionID == nil || *user.StripeSubscriptionID == "" {
		return nil, apperr.Validation("no active subscription; start a checkout instead", nil)
	}

	current := ""
	if user.StripePriceID != nil {
		current = *user.StripePriceID
	}
	changeType, err := s.catalog.ChangeType(current, priceID)
	if err != nil {
		return nil, apperr.Validation(err.Error(), nil)
	}

	now := s.now()
	if changeType == plans.ChangeUpgrade {
		if _, err := s.billing.ChangeSubscriptionPrice(ctx, *user.StripeSubscriptionID, priceID, true); err != nil {
			return nil, apperr.Upstream("failed to update subscription", err)
		}
		if user.PendingChange() != nil {
			if err := s.users.SetPendingPlanChange(ctx, user.ID, nil); err != nil {
				return nil, apperr.Internal("failed to clear pending plan change", err)
			}
		}
		slog.Info("plan upgraded", "user_id", user.ID.String(), "price_id", priceID)
		return &PlanChangeResult{ChangeType: changeType, PlanID: priceID, Immediate: true, EffectiveAt: now}, nil
	}

	effective := now
	if user.BillingCycleEnd != nil && user.BillingCycleEnd.After(now) {
		effective = *user.BillingCycleEnd
	}
	change := &models.PendingPlanChange{PlanID: priceID, EffectiveAt: effective, ChangeType: changeType}
	if err := s.users.SetPendingPlanChange(ctx, user.ID, change); err != nil {
		return nil, apperr.Internal("failed to store pending plan change", err)
	}
	slog.Info("plan change scheduled",
		"user_id", user.ID.String(),
		"price_id", priceID,
		"change_type", string(changeType),
		"effective_at", effective,
	)
	return &PlanChangeResult{ChangeType: changeType, PlanID: priceID, EffectiveAt: effective}, nil
}

func (s *SubscriptionService) CancelPendingPlanChange(ctx context.Context, userID uuid.UUID) error {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return err
	}
	if user.PendingChange() == nil {
		return apperr.NotFound("no pending plan change")
	}
	if err := s.users.SetPendingPlanChange(ctx, user.ID, nil); err != nil {
		return apperr.Internal("failed to clear pending plan change", err)
	}
	return nil
}

// ApplyDuePlanChanges pushes every pending change whose effective date has
// passed to Stripe and clears it. Failures are collected and the remaining
// users are still processed.
func (s *SubscriptionService) ApplyDuePlanChanges(ctx context.Context) (int, error) {
	users, err := s.users.ListDuePlanChanges(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("list due plan changes: %w", err)
	}

	applied := 0
	var errs []error
	for i := range users {
		user := &users[i]
		pc := user.PendingChange()
		if pc == nil {
			continue
		}
		if user.StripeSubscriptionID == nil || *user.StripeSubscriptionID == "" {
			slog.Warn("dropping pending plan change without subscription", "user_id", user.ID.String())
			if err := s.users.SetPendingPlanChange(ctx, user.ID, nil); err != nil {
				errs = append(errs, fmt.Errorf("user %s: %w", user.ID, err))
			}
			continue
		}
		if _, err := s.billing.ChangeSubscriptionPrice(ctx, *user.StripeSubscriptionID, pc.PlanID, false); err != nil {
			errs = append(errs, fmt.Errorf("user %s: %w", user.ID, err))
			continue
		}
		if err := s.users.SetPendingPlanChange(ctx, user.ID, nil); err != nil {
			errs = append(errs, fmt.Errorf("user %s: %w", user.ID, err))
			continue
		}
		applied++
		slog.Info("pending plan change applied", "user_id", user.ID.String(), "price_id", pc.PlanID)
	}

	metrics.RecordPlanChangesApplied(applied)
	return applied, errors.Join(errs...)
}

// Checkout returns a hosted checkout URL for priceID, creating the Stripe
// customer on first use.
func (s *SubscriptionService) Checkout(ctx context.Context, userID uuid.UUID, priceID string) (string, error) {
	if _, ok := s.catalog.Price(priceID); !ok {
		return "", apperr.Validation("unknown plan id", nil)
	}
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return "", err
	}

	customerID, err := s.ensureCustomer(ctx, user)
	if err != nil {
		return "", err
	}
	url, err := s.billing.CreateCheckoutSession(ctx, customerID, priceID, user.ID)
	if err != nil {
		return "", apperr.Upstream("failed to create checkout session", err)
	}
	return url, nil
}

func (s *SubscriptionService) Portal(ctx context.Context, userID uuid.UUID) (string, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return "", err
	}
	if user.StripeCustomerID == nil || *user.StripeCustomerID == "" {
		return "", apperr.Validation("no billing account for user", nil)
	}
	url, err := s.billing.CreatePortalSession(ctx, *user.StripeCustomerID)
	if err != nil {
		return "", apperr.Upstream("failed to create portal session", err)
	}
	return url, nil
}

func (s *SubscriptionService) ensureCustomer(ctx context.Context, user *models.User) (string, error) {
	if user.StripeCustomerID != nil && *user.StripeCustomerID != "" {
		return *user.StripeCustomerID, nil
	}
	customerID, err := s.billing.CreateCustomer(ctx, user.Email, user.ID)
	if err != nil {
		return "", apperr.Upstream("failed to create billing customer", err)
	}
	if err := s.users.SetStripeCustomerID(ctx, user.ID, customerID); err != nil {
		return "", apperr.Internal("failed to store billing customer", err)
	}
	return customerID, nil
}

func (s *SubscriptionService) loadUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, apperr.Internal("failed to load user", err)
	}
	return user, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
