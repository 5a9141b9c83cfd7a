package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v79"

	"github.com/talkah/talkah-backend/internal/ai"
	"github.com/talkah/talkah-backend/internal/mailer"
	"github.com/talkah/talkah-backend/internal/models"
	"github.com/talkah/talkah-backend/internal/plans"
	"github.com/talkah/talkah-backend/internal/repository"
	"github.com/talkah/talkah-backend/internal/telephony"
	"github.com/talkah/talkah-backend/internal/validator"
)

var errBoom = errors.New("boom")

// --- stores ---

type fakeUsers struct {
	mu     sync.Mutex
	users  map[uuid.UUID]*models.User
	getErr error
}

func newFakeUsers(users ...*models.User) *fakeUsers {
	f := &fakeUsers{users: map[uuid.UUID]*models.User{}}
	for _, u := range users {
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeUsers) get(id uuid.UUID) *models.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.users[id]
}

func (f *fakeUsers) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) GetByStripeCustomerID(_ context.Context, customerID string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.StripeCustomerID != nil && *u.StripeCustomerID == customerID {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUsers) SetStripeCustomerID(_ context.Context, id uuid.UUID, customerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[id].StripeCustomerID = &customerID
	return nil
}

func (f *fakeUsers) UpdateBillingState(_ context.Context, id uuid.UUID, state models.BillingState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.users[id]
	u.Tier = state.Tier
	u.SubscriptionStatus = state.Status
	u.StripeSubscriptionID = state.StripeSubscriptionID
	u.StripePriceID = state.StripePriceID
	u.BillingCycleStart = state.BillingCycleStart
	u.BillingCycleEnd = state.BillingCycleEnd
	return nil
}

func (f *fakeUsers) UpdateStatus(_ context.Context, id uuid.UUID, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[id].SubscriptionStatus = status
	return nil
}

func (f *fakeUsers) SetPendingPlanChange(_ context.Context, id uuid.UUID, change *models.PendingPlanChange) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.users[id]
	if change == nil {
		u.PendingPlanID, u.PendingPlanEffectiveAt, u.PendingPlanChangeType = nil, nil, nil
		return nil
	}
	planID, at, ct := change.PlanID, change.EffectiveAt, string(change.ChangeType)
	u.PendingPlanID, u.PendingPlanEffectiveAt, u.PendingPlanChangeType = &planID, &at, &ct
	return nil
}

func (f *fakeUsers) ListDuePlanChanges(_ context.Context, now time.Time) ([]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var due []models.User
	for _, u := range f.users {
		if u.PendingPlanEffectiveAt != nil && !u.PendingPlanEffectiveAt.After(now) {
			due = append(due, *u)
		}
	}
	return due, nil
}

type usageKey struct {
	user  uuid.UUID
	start time.Time
}

type fakeUsage struct {
	mu     sync.Mutex
	counts map[usageKey]models.UsageCounts
	incErr error
}

func newFakeUsage() *fakeUsage {
	return &fakeUsage{counts: map[usageKey]models.UsageCounts{}}
}

func (f *fakeUsage) CurrentMonthUsage(_ context.Context, userID uuid.UUID, periodStart time.Time) (models.UsageCounts, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[usageKey{userID, periodStart}], nil
}

func (f *fakeUsage) IncrementUsage(_ context.Context, userID uuid.UUID, periodStart time.Time, action plans.Action) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.incErr != nil {
		return f.incErr
	}
	k := usageKey{userID, periodStart}
	c := f.counts[k]
	switch action {
	case plans.ActionCall:
		c.Calls++
	case plans.ActionText:
		c.Texts++
	case plans.ActionEmail:
		c.Emails++
	}
	f.counts[k] = c
	return nil
}

// total sums every period for a user.
func (f *fakeUsage) total(userID uuid.UUID) models.UsageCounts {
	f.mu.Lock()
	defer f.mu.Unlock()
	var t models.UsageCounts
	for k, c := range f.counts {
		if k.user == userID {
			t.Calls += c.Calls
			t.Texts += c.Texts
			t.Emails += c.Emails
		}
	}
	return t
}

type fakeEvents struct {
	events []models.SubscriptionEvent
}

func (f *fakeEvents) Create(_ context.Context, e *models.SubscriptionEvent) error {
	f.events = append(f.events, *e)
	return nil
}

func (f *fakeEvents) ExistsForStripeEvent(_ context.Context, id string) (bool, error) {
	for _, e := range f.events {
		if e.StripeEventID == id {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeEvents) ListForUser(_ context.Context, userID uuid.UUID, limit int) ([]models.SubscriptionEvent, error) {
	var out []models.SubscriptionEvent
	for i := len(f.events) - 1; i >= 0 && len(out) < limit; i-- {
		if f.events[i].UserID == userID {
			out = append(out, f.events[i])
		}
	}
	return out, nil
}

type fakeCalls struct {
	calls map[uuid.UUID]*models.Call
}

func newFakeCalls() *fakeCalls { return &fakeCalls{calls: map[uuid.UUID]*models.Call{}} }

func (f *fakeCalls) Create(_ context.Context, c *models.Call) error {
	cp := *c
	f.calls[c.ID] = &cp
	return nil
}

func (f *fakeCalls) Save(_ context.Context, c *models.Call) error {
	cp := *c
	f.calls[c.ID] = &cp
	return nil
}

func (f *fakeCalls) GetByID(_ context.Context, id uuid.UUID) (*models.Call, error) {
	c, ok := f.calls[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeCalls) GetBySID(_ context.Context, sid string) (*models.Call, error) {
	for _, c := range f.calls {
		if c.CallSID != nil && *c.CallSID == sid {
			cp := *c
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

type fakeEmails struct {
	emails []models.Email
}

func (f *fakeEmails) Create(_ context.Context, e *models.Email) error {
	f.emails = append(f.emails, *e)
	return nil
}

type fakeSMS struct {
	convs    map[uuid.UUID]*models.SmsConversation
	messages []models.SmsMessage
}

func newFakeSMS() *fakeSMS { return &fakeSMS{convs: map[uuid.UUID]*models.SmsConversation{}} }

func (f *fakeSMS) CreateConversation(_ context.Context, c *models.SmsConversation) error {
	cp := *c
	f.convs[c.ID] = &cp
	return nil
}

func (f *fakeSMS) SaveConversation(_ context.Context, c *models.SmsConversation) error {
	cp := *c
	f.convs[c.ID] = &cp
	return nil
}

func (f *fakeSMS) ActiveConversationForPhone(_ context.Context, phone string) (*models.SmsConversation, error) {
	for _, c := range f.convs {
		if c.PhoneNumber == phone && (c.Status == models.StatusInitiated || c.Status == models.StatusSent) {
			cp := *c
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeSMS) AddMessage(_ context.Context, m *models.SmsMessage) error {
	f.messages = append(f.messages, *m)
	return nil
}

func (f *fakeSMS) Messages(_ context.Context, convID uuid.UUID) ([]models.SmsMessage, error) {
	var out []models.SmsMessage
	for _, m := range f.messages {
		if m.ConversationID == convID {
			out = append(out, m)
		}
	}
	return out, nil
}

// --- transports ---

type fakeAI struct {
	reply string
	err   error
	calls int
	last  []ai.Message
}

func (f *fakeAI) Complete(_ context.Context, msgs []ai.Message) (string, error) {
	f.calls++
	f.last = msgs
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

type sentSMS struct {
	To   string
	Body string
}

type fakeTelephony struct {
	placed  []telephony.CallRequest
	sent    []sentSMS
	callErr error
	smsErr  error
	seq     int
}

func (f *fakeTelephony) PlaceCall(_ context.Context, req telephony.CallRequest) (*telephony.Result, error) {
	if f.callErr != nil {
		return nil, f.callErr
	}
	f.placed = append(f.placed, req)
	f.seq++
	return &telephony.Result{SID: "CA" + uuid.NewString()[:8], Status: "queued"}, nil
}

func (f *fakeTelephony) SendSMS(_ context.Context, to, body string) (*telephony.Result, error) {
	if f.smsErr != nil {
		return nil, f.smsErr
	}
	f.sent = append(f.sent, sentSMS{To: to, Body: body})
	f.seq++
	return &telephony.Result{SID: "SM" + uuid.NewString()[:8], Status: "queued"}, nil
}

type fakeMailer struct {
	sent []mailer.Message
	err  error
}

func (f *fakeMailer) Send(_ context.Context, msg mailer.Message) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, msg)
	return "pm-" + uuid.NewString(), nil
}

type priceChange struct {
	SubscriptionID string
	PriceID        string
	Prorate        bool
}

type fakeBilling struct {
	subs      map[string]*stripe.Subscription
	changes   []priceChange
	customers int
	changeErr error
}

func (f *fakeBilling) GetSubscription(_ context.Context, id string) (*stripe.Subscription, error) {
	sub, ok := f.subs[id]
	if !ok {
		return nil, errors.New("no such subscription")
	}
	return sub, nil
}

func (f *fakeBilling) ChangeSubscriptionPrice(_ context.Context, subID, priceID string, prorate bool) (*stripe.Subscription, error) {
	if f.changeErr != nil {
		return nil, f.changeErr
	}
	f.changes = append(f.changes, priceChange{subID, priceID, prorate})
	return &stripe.Subscription{ID: subID}, nil
}

func (f *fakeBilling) CreateCustomer(_ context.Context, _ string, _ uuid.UUID) (string, error) {
	f.customers++
	return "cus_new", nil
}

func (f *fakeBilling) CreateCheckoutSession(_ context.Context, customerID, priceID string, _ uuid.UUID) (string, error) {
	return "https://checkout.stripe.test/" + customerID + "/" + priceID, nil
}

func (f *fakeBilling) CreatePortalSession(_ context.Context, customerID string) (string, error) {
	return "https://billing.stripe.test/" + customerID, nil
}

// --- fixtures ---

func newUser(tier plans.Tier) *models.User {
	return &models.User{
		ID:                 uuid.New(),
		Email:              "user@example.com",
		Tier:               tier,
		SubscriptionStatus: models.SubscriptionActive,
	}
}

func strPtr(s string) *string { return &s }

// fixedNow pins a service clock to t.
func fixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

type harness struct {
	users     *fakeUsers
	usage     *fakeUsage
	ai        *fakeAI
	telephony *fakeTelephony
	usageSvc  *UsageService
	validator *validator.Validator
}

func newHarness(users ...*models.User) *harness {
	h := &harness{
		users:     newFakeUsers(users...),
		usage:     newFakeUsage(),
		ai:        &fakeAI{reply: "Hello from Talkah."},
		telephony: &fakeTelephony{},
		validator: validator.New(),
	}
	h.usageSvc = NewUsageService(h.users, h.usage, plans.DefaultCatalog())
	return h
}
