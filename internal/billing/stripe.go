// Package billing talks to Stripe: customers, hosted checkout and portal
// sessions, and subscription reads and price changes.
package billing

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
)

var ErrNoSubscriptionItem = errors.New("subscription has no items")

type StripeClient struct {
	api         *client.API
	frontendURL string
}

func NewStripeClient(secretKey, frontendURL string) *StripeClient {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &StripeClient{api: api, frontendURL: frontendURL}
}

func (s *StripeClient) GetSubscription(ctx context.Context, id string) (*stripe.Subscription, error) {
	params := &stripe.SubscriptionParams{}
	params.Context = ctx
	return s.api.Subscriptions.Get(id, params)
}

// ChangeSubscriptionPrice swaps the price of the subscription's first item.
// Prorations are created for immediate changes only.
func (s *StripeClient) ChangeSubscriptionPrice(ctx context.Context, subscriptionID, priceID string, prorate bool) (*stripe.Subscription, error) {
	sub, err := s.GetSubscription(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	if sub.Items == nil || len(sub.Items.Data) == 0 {
		return nil, ErrNoSubscriptionItem
	}

	behavior := "none"
	if prorate {
		behavior = "create_prorations"
	}
	params := &stripe.SubscriptionParams{
		Items: []*stripe.SubscriptionItemsParams{{
			ID:    stripe.String(sub.Items.Data[0].ID),
			Price: stripe.String(priceID),
		}},
		ProrationBehavior: stripe.String(behavior),
	}
	params.Context = ctx
	return s.api.Subscriptions.Update(subscriptionID, params)
}

func (s *StripeClient) CreateCustomer(ctx context.Context, email string, userID uuid.UUID) (string, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(email),
		Metadata: map[string]string{
			"user_id": userID.String(),
		},
	}
	params.Context = ctx
	cust, err := s.api.Customers.New(params)
	if err != nil {
		return "", err
	}
	return cust.ID, nil
}

func (s *StripeClient) CreateCheckoutSession(ctx context.Context, customerID, priceID string, userID uuid.UUID) (string, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		Customer:          stripe.String(customerID),
		ClientReferenceID: stripe.String(userID.String()),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Price:    stripe.String(priceID),
			Quantity: stripe.Int64(1),
		}},
		SuccessURL: stripe.String(s.frontendURL + "/billing/success"),
		CancelURL:  stripe.String(s.frontendURL + "/billing/cancel"),
	}
	params.Context = ctx
	sess, err := s.api.CheckoutSessions.New(params)
	if err != nil {
		return "", err
	}
	return sess.URL, nil
}

func (s *StripeClient) CreatePortalSession(ctx context.Context, customerID string) (string, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(s.frontendURL + "/settings/billing"),
	}
	params.Context = ctx
	sess, err := s.api.BillingPortalSessions.New(params)
	if err != nil {
		return "", err
	}
	return sess.URL, nil
}

// PriceID returns the price of the subscription's first item.
func PriceID(sub *stripe.Subscription) string {
	if sub == nil || sub.Items == nil {
		return ""
	}
	for _, item := range sub.Items.Data {
		if item != nil && item.Price != nil {
			return item.Price.ID
		}
	}
	return ""
}

func CustomerID(c *stripe.Customer) string {
	if c == nil {
		return ""
	}
	return c.ID
}

// UnixTime converts a Stripe timestamp; zero yields nil.
func UnixTime(sec int64) *time.Time {
	if sec == 0 {
		return nil
	}
	t := time.Unix(sec, 0).UTC()
	return &t
}
