package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/talkah/talkah-backend/internal/apperr"
	"github.com/talkah/talkah-backend/internal/config"
	"github.com/talkah/talkah-backend/internal/dto"
	"github.com/talkah/talkah-backend/internal/middleware"
	"github.com/talkah/talkah-backend/internal/models"
	"github.com/talkah/talkah-backend/internal/plans"
	"github.com/talkah/talkah-backend/internal/services"
	"github.com/talkah/talkah-backend/internal/telephony"
	"github.com/talkah/talkah-backend/internal/validator"
)

const (
	jwtSecret     = "handler-test-secret"
	webhookSecret = "whsec_test"
)

// --- fakes ---

type fakeCalls struct {
	initiate func(uuid.UUID, services.CallInput) (*models.Call, error)
	updates  []services.CallStatusUpdate
	voiceErr error
}

func (f *fakeCalls) Initiate(_ context.Context, userID uuid.UUID, in services.CallInput) (*models.Call, error) {
	return f.initiate(userID, in)
}

func (f *fakeCalls) VoiceTwiML(_ context.Context, id uuid.UUID) (string, error) {
	if f.voiceErr != nil {
		return "", f.voiceErr
	}
	return telephony.SayTwiML("script for " + id.String())
}

func (f *fakeCalls) HandleStatusCallback(_ context.Context, u services.CallStatusUpdate) error {
	f.updates = append(f.updates, u)
	return nil
}

type fakeSMS struct {
	inbound []services.InboundSMS
	err     error
}

func (f *fakeSMS) Start(_ context.Context, _ uuid.UUID, in services.SMSInput) (*models.SmsConversation, error) {
	return &models.SmsConversation{ID: uuid.New(), Status: models.StatusSent, MaxExchanges: in.MessageCount}, nil
}

func (f *fakeSMS) HandleInbound(_ context.Context, in services.InboundSMS) error {
	f.inbound = append(f.inbound, in)
	return f.err
}

type fakeUsage struct {
	decision plans.Decision
	err      error
}

func (f *fakeUsage) Evaluate(_ context.Context, _ uuid.UUID, a plans.Action) (plans.Decision, error) {
	d := f.decision
	d.Action = a
	return d, f.err
}

func (f *fakeUsage) Summary(_ context.Context, _ uuid.UUID) (*services.Summary, error) {
	return &services.Summary{Tier: plans.TierFree}, f.err
}

type fakeReconciler struct {
	events []stripe.Event
	err    error
}

func (f *fakeReconciler) HandleStripeEvent(_ context.Context, e stripe.Event) error {
	f.events = append(f.events, e)
	return f.err
}

type fakeSigner struct{ valid bool }

func (f fakeSigner) ValidSignature(string, map[string]string, string) bool { return f.valid }

// --- helpers ---

func bearer(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID.String(),
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(jwtSecret))
	require.NoError(t, err)
	return "Bearer " + tok
}

func jsonRequest(t *testing.T, method, path string, body any, userID uuid.UUID) *http.Request {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if userID != uuid.Nil {
		req.Header.Set("Authorization", bearer(t, userID))
	}
	return req
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func callApp(calls CallAPI) *fiber.App {
	app := fiber.New()
	jwtMw := middleware.JWTProtected(&config.Config{JWTSecret: jwtSecret})
	app.Post("/api/calls", jwtMw, NewCallHandler(calls).Initiate)
	return app
}

// --- action endpoints ---

func TestCallInitiateSuccess(t *testing.T) {
	userID := uuid.New()
	sid := "CA123"
	calls := &fakeCalls{initiate: func(id uuid.UUID, in services.CallInput) (*models.Call, error) {
		assert.Equal(t, userID, id)
		assert.Equal(t, "+14155550100", in.PhoneNumber)
		return &models.Call{ID: uuid.New(), Status: models.StatusInitiated, CallSID: &sid}, nil
	}}

	resp, err := callApp(calls).Test(jsonRequest(t, http.MethodPost, "/api/calls",
		map[string]string{"phone_number": "+14155550100", "topic": "dentist"}, userID))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	body := decode[dto.CallResponse](t, resp)
	assert.True(t, body.Success)
	assert.Equal(t, sid, body.CallSID)
}

func TestCallInitiateLimitReached(t *testing.T) {
	calls := &fakeCalls{initiate: func(uuid.UUID, services.CallInput) (*models.Call, error) {
		e := apperr.LimitReached("call limit reached for the free plan")
		e.Details = plans.Decision{Action: plans.ActionCall, Tier: plans.TierFree, Used: 1, Limit: 1}
		return nil, e
	}}

	resp, err := callApp(calls).Test(jsonRequest(t, http.MethodPost, "/api/calls",
		map[string]string{"phone_number": "+14155550100", "topic": "dentist"}, uuid.New()))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	body := decode[map[string]any](t, resp)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, true, body["usage_limit_reached"])
	assert.Contains(t, body["error"], "limit reached")
	details, ok := body["details"].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 1, details["limit"])
}

func TestCallInitiateErrorMapping(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"validation", apperr.Validation("phone_number must be a phone number in E.164 format", []validator.FieldError{{Field: "phone_number", Tag: "e164"}}), 400, "E.164"},
		{"upstream", apperr.Upstream("failed to place call", errors.New("twilio 21211")), 500, "failed to place call"},
		{"internal", apperr.Internal("failed to create call", errors.New("pq: connection refused")), 500, "Internal server error"},
		{"plain", errors.New("unexpected"), 500, "Internal server error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			calls := &fakeCalls{initiate: func(uuid.UUID, services.CallInput) (*models.Call, error) { return nil, tc.err }}
			resp, err := callApp(calls).Test(jsonRequest(t, http.MethodPost, "/api/calls",
				map[string]string{"phone_number": "x"}, uuid.New()))
			require.NoError(t, err)
			assert.Equal(t, tc.status, resp.StatusCode)

			body := decode[dto.ErrorResponse](t, resp)
			assert.False(t, body.Success)
			assert.False(t, body.UsageLimitReached)
			assert.Contains(t, body.Error, tc.message)
			assert.NotContains(t, body.Error, "pq:")
		})
	}
}

func TestCallInitiateRequiresToken(t *testing.T) {
	calls := &fakeCalls{initiate: func(uuid.UUID, services.CallInput) (*models.Call, error) {
		t.Fatal("service must not be reached")
		return nil, nil
	}}
	resp, err := callApp(calls).Test(jsonRequest(t, http.MethodPost, "/api/calls", map[string]string{}, uuid.Nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestSMSStartEchoesMessageCount(t *testing.T) {
	app := fiber.New()
	app.Post("/api/sms", middleware.JWTProtected(&config.Config{JWTSecret: jwtSecret}), NewSMSHandler(&fakeSMS{}).Start)

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/sms",
		map[string]any{"phone_number": "+14155550100", "topic": "dinner", "message_count": 4}, uuid.New()))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.Equal(t, 4, decode[dto.SMSResponse](t, resp).MessageCount)
}

// --- usage ---

func TestUsageCheck(t *testing.T) {
	usage := &fakeUsage{decision: plans.Decision{Tier: plans.TierPro, Used: 3, Limit: 5, Allowed: true}}
	app := fiber.New()
	app.Post("/api/usage/check", middleware.JWTProtected(&config.Config{JWTSecret: jwtSecret}),
		NewUsageHandler(usage, validator.New()).Check)

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/usage/check", map[string]string{"action_type": "text"}, uuid.New()))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	body := decode[dto.UsageCheckResponse](t, resp)
	assert.True(t, body.Allowed)
	assert.Equal(t, "text", body.Action)
	assert.Equal(t, 2, body.Remaining)

	resp, err = app.Test(jsonRequest(t, http.MethodPost, "/api/usage/check", map[string]string{"action_type": "fax"}, uuid.New()))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.NotNil(t, decode[dto.ErrorResponse](t, resp).Details)
}

// --- stripe webhook ---

func stripeApp(r StripeReconciler) *fiber.App {
	app := fiber.New()
	app.Post("/api/webhooks/stripe", NewWebhookHandler(r, webhookSecret).HandleStripe)
	return app
}

func signedStripeRequest(t *testing.T, payload []byte) *http.Request {
	t.Helper()
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload: payload,
		Secret:  webhookSecret,
	})
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/stripe", bytes.NewReader(signed.Payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Stripe-Signature", signed.Header)
	return req
}

var subscriptionCreated = []byte(`{
	"id": "evt_1",
	"object": "event",
	"api_version": "2024-06-20",
	"type": "customer.subscription.created",
	"data": {"object": {"id": "sub_1", "object": "subscription", "customer": "cus_1", "status": "active"}}
}`)

func TestStripeWebhookVerifiesSignature(t *testing.T) {
	r := &fakeReconciler{}
	resp, err := stripeApp(r).Test(signedStripeRequest(t, subscriptionCreated))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Len(t, r.events, 1)
	assert.Equal(t, "evt_1", r.events[0].ID)
	assert.Equal(t, stripe.EventType("customer.subscription.created"), r.events[0].Type)
}

func TestStripeWebhookRejectsBadSignature(t *testing.T) {
	r := &fakeReconciler{}
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/stripe", bytes.NewReader(subscriptionCreated))
	req.Header.Set("Stripe-Signature", "t=1,v1=deadbeef")

	resp, err := stripeApp(r).Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, r.events)
}

func TestStripeWebhookAcknowledgesProcessingFailure(t *testing.T) {
	r := &fakeReconciler{err: apperr.Internal("failed to update user billing state", errors.New("db down"))}
	resp, err := stripeApp(r).Test(signedStripeRequest(t, subscriptionCreated))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, false, decode[map[string]any](t, resp)["processed"])
}

// --- twilio webhooks ---

func twilioApp(calls CallAPI, sms SMSAPI, signer SignatureValidator) *fiber.App {
	app := fiber.New()
	h := NewTwilioHandler(calls, sms, signer, "https://api.talkah.test")
	app.Post("/api/webhooks/twilio/sms", h.InboundSMS)
	app.Post("/api/webhooks/twilio/call-status", h.CallStatus)
	app.Post("/api/webhooks/twilio/voice/:id", h.Voice)
	return app
}

func formRequest(path string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Twilio-Signature", "sig")
	return req
}

func TestTwilioInboundSMS(t *testing.T) {
	sms := &fakeSMS{}
	app := twilioApp(&fakeCalls{}, sms, fakeSigner{valid: true})

	resp, err := app.Test(formRequest("/api/webhooks/twilio/sms", url.Values{
		"From": {"+14155550123"}, "Body": {"Friday works"}, "MessageSid": {"SM1"},
	}))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/xml")
	require.Len(t, sms.inbound, 1)
	assert.Equal(t, services.InboundSMS{From: "+14155550123", Body: "Friday works", MessageSID: "SM1"}, sms.inbound[0])
}

func TestTwilioInboundSMSFailureStillOK(t *testing.T) {
	sms := &fakeSMS{err: apperr.Upstream("failed to send sms reply", errors.New("twilio down"))}
	app := twilioApp(&fakeCalls{}, sms, nil)

	resp, err := app.Test(formRequest("/api/webhooks/twilio/sms", url.Values{"From": {"+14155550123"}, "Body": {"hi"}}))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestTwilioRejectsBadSignature(t *testing.T) {
	sms := &fakeSMS{}
	app := twilioApp(&fakeCalls{}, sms, fakeSigner{valid: false})

	resp, err := app.Test(formRequest("/api/webhooks/twilio/sms", url.Values{"From": {"+14155550123"}}))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	assert.Empty(t, sms.inbound)
}

func TestTwilioCallStatusAndVoice(t *testing.T) {
	calls := &fakeCalls{}
	app := twilioApp(calls, &fakeSMS{}, fakeSigner{valid: true})

	resp, err := app.Test(formRequest("/api/webhooks/twilio/call-status", url.Values{
		"CallSid": {"CA1"}, "CallStatus": {"completed"}, "CallDuration": {"37"},
	}))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Len(t, calls.updates, 1)
	assert.Equal(t, services.CallStatusUpdate{CallSID: "CA1", Status: "completed", DurationSec: 37}, calls.updates[0])

	id := uuid.New()
	resp, err = app.Test(formRequest("/api/webhooks/twilio/voice/"+id.String(), url.Values{}))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	b, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(b), id.String())

	calls.voiceErr = errors.New("db down")
	resp, err = app.Test(formRequest("/api/webhooks/twilio/voice/"+id.String(), url.Values{}))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	b, _ = io.ReadAll(resp.Body)
	assert.Contains(t, string(b), "something went wrong")
}

// --- health ---

func TestHealth(t *testing.T) {
	app := fiber.New()
	app.Get("/ok", NewHealthHandler(func() error { return nil }).Check)
	app.Get("/down", NewHealthHandler(func() error { return errors.New("refused") }).Check)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/ok", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/down", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
	assert.Contains(t, decode[dto.HealthResponse](t, resp).DB, "refused")
}

// --- subscription ---

type fakeSubscriptions struct {
	pending bool
}

func (f *fakeSubscriptions) Get(_ context.Context, _ uuid.UUID) (*services.SubscriptionView, error) {
	return &services.SubscriptionView{
		Tier:    plans.TierPro,
		Status:  models.SubscriptionActive,
		PriceID: "price_pro_monthly",
		Limits:  plans.DefaultCatalog().Limits(plans.TierPro),
		History: []services.HistoryEntry{{EventType: models.SubscriptionEventCreated, NewTier: plans.TierPro}},
	}, nil
}

func (f *fakeSubscriptions) Checkout(_ context.Context, _ uuid.UUID, priceID string) (string, error) {
	if _, ok := plans.DefaultCatalog().Price(priceID); !ok {
		return "", apperr.Validation("unknown plan id", nil)
	}
	return "https://checkout.stripe.test/" + priceID, nil
}

func (f *fakeSubscriptions) Portal(_ context.Context, _ uuid.UUID) (string, error) {
	return "https://billing.stripe.test/cus_1", nil
}

func (f *fakeSubscriptions) RequestPlanChange(_ context.Context, _ uuid.UUID, priceID string) (*services.PlanChangeResult, error) {
	if _, ok := plans.DefaultCatalog().Price(priceID); !ok {
		return nil, apperr.Validation("unknown plan id", nil)
	}
	f.pending = true
	return &services.PlanChangeResult{
		ChangeType:  plans.ChangeDowngrade,
		PlanID:      priceID,
		EffectiveAt: time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
	}, nil
}

func (f *fakeSubscriptions) CancelPendingPlanChange(_ context.Context, _ uuid.UUID) error {
	if !f.pending {
		return apperr.NotFound("no pending plan change")
	}
	f.pending = false
	return nil
}

func subscriptionApp(subs SubscriptionAPI) *fiber.App {
	app := fiber.New()
	jwtMw := middleware.JWTProtected(&config.Config{JWTSecret: jwtSecret})
	h := NewSubscriptionHandler(subs, validator.New())
	app.Get("/api/subscription", jwtMw, h.Get)
	app.Post("/api/subscription/checkout", jwtMw, h.Checkout)
	app.Post("/api/subscription/portal", jwtMw, h.Portal)
	app.Post("/api/subscription/change", jwtMw, h.RequestChange)
	app.Delete("/api/subscription/change", jwtMw, h.CancelChange)
	return app
}

func TestSubscriptionGet(t *testing.T) {
	resp, err := subscriptionApp(&fakeSubscriptions{}).Test(jsonRequest(t, http.MethodGet, "/api/subscription", nil, uuid.New()))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decode[map[string]any](t, resp)
	assert.Equal(t, true, body["success"])
	data := body["data"].(map[string]any)
	assert.Equal(t, "pro", data["plan"])
	assert.Equal(t, "price_pro_monthly", data["price_id"])
	assert.Len(t, data["history"], 1)
}

func TestSubscriptionCheckoutAndPortal(t *testing.T) {
	app := subscriptionApp(&fakeSubscriptions{})
	user := uuid.New()

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/subscription/checkout", map[string]string{"price_id": "price_pro_monthly"}, user))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	checkout := decode[dto.URLResponse](t, resp)
	assert.True(t, checkout.Success)
	assert.Equal(t, "https://checkout.stripe.test/price_pro_monthly", checkout.URL)

	resp, err = app.Test(jsonRequest(t, http.MethodPost, "/api/subscription/checkout", map[string]string{}, user))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, err = app.Test(jsonRequest(t, http.MethodPost, "/api/subscription/portal", nil, user))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, decode[dto.URLResponse](t, resp).URL, "billing.stripe.test")
}

func TestSubscriptionPlanChange(t *testing.T) {
	app := subscriptionApp(&fakeSubscriptions{})
	user := uuid.New()

	resp, err := app.Test(jsonRequest(t, http.MethodDelete, "/api/subscription/change", nil, user))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	body := decode[dto.ErrorResponse](t, resp)
	assert.False(t, body.Success)
	assert.Equal(t, "no pending plan change", body.Error)

	for _, bad := range []map[string]string{{}, {"plan_id": "price_gold"}} {
		resp, err = app.Test(jsonRequest(t, http.MethodPost, "/api/subscription/change", bad, user))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode, bad)
		assert.False(t, decode[dto.ErrorResponse](t, resp).Success)
	}

	resp, err = app.Test(jsonRequest(t, http.MethodPost, "/api/subscription/change", map[string]string{"plan_id": "price_pro_monthly"}, user))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	change := decode[dto.PlanChangeResponse](t, resp)
	assert.True(t, change.Success)
	assert.Equal(t, "downgrade", change.ChangeType)
	assert.False(t, change.Immediate)

	resp, err = app.Test(jsonRequest(t, http.MethodDelete, "/api/subscription/change", nil, user))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.True(t, decode[dto.SuccessResponse](t, resp).Success)
}

func TestUsageSummary(t *testing.T) {
	app := fiber.New()
	app.Get("/api/usage", middleware.JWTProtected(&config.Config{JWTSecret: jwtSecret}),
		NewUsageHandler(&fakeUsage{}, validator.New()).Summary)

	resp, err := app.Test(jsonRequest(t, http.MethodGet, "/api/usage", nil, uuid.New()))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	body := decode[map[string]any](t, resp)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "free", body["data"].(map[string]any)["plan"])
}

func TestNonUUIDSubjectIsUnauthorized(t *testing.T) {
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "not-a-uuid",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(jwtSecret))
	require.NoError(t, err)

	req := jsonRequest(t, http.MethodGet, "/api/subscription", nil, uuid.Nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	resp, err := subscriptionApp(&fakeSubscriptions{}).Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	body := decode[dto.ErrorResponse](t, resp)
	assert.False(t, body.Success)
	assert.Contains(t, body.Error, "Unauthorized")
}

func TestStripeWebhookUnknownCustomerIsSkipped(t *testing.T) {
	r := &fakeReconciler{err: apperr.NotFound("no user for stripe customer cus_1")}
	resp, err := stripeApp(r).Test(signedStripeRequest(t, subscriptionCreated))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, false, decode[map[string]any](t, resp)["processed"])
}
