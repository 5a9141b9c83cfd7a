// Package plans holds the static plan reference data: tiers, per-action
// entitlements and the Stripe price table.
package plans

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

type Tier string

const (
	TierFree    Tier = "free"
	TierPro     Tier = "pro"
	TierPremium Tier = "premium"
)

func (t Tier) Valid() bool {
	switch t {
	case TierFree, TierPro, TierPremium:
		return true
	}
	return false
}

// Action is a billable action type.
type Action string

const (
	ActionCall  Action = "call"
	ActionText  Action = "text"
	ActionEmail Action = "email"
)

// Actions lists every billable action in display order.
var Actions = []Action{ActionCall, ActionText, ActionEmail}

func (a Action) Valid() bool {
	switch a {
	case ActionCall, ActionText, ActionEmail:
		return true
	}
	return false
}

// Unlimited marks an entitlement with no cap.
const Unlimited = -1

// Limits are the per-period entitlements of a tier.
type Limits struct {
	Calls  int `json:"calls"`
	Texts  int `json:"texts"`
	Emails int `json:"emails"`
}

func (l Limits) For(a Action) int {
	switch a {
	case ActionCall:
		return l.Calls
	case ActionText:
		return l.Texts
	case ActionEmail:
		return l.Emails
	}
	return 0
}

type Plan struct {
	Tier   Tier
	Rank   int
	Limits Limits
}

// Price maps a Stripe price id to the tier it grants.
type Price struct {
	ID       string
	Tier     Tier
	Interval string
}

type ChangeType string

const (
	ChangeUpgrade   ChangeType = "upgrade"
	ChangeDowngrade ChangeType = "downgrade"
	ChangeSwitch    ChangeType = "switch"
)

var (
	ErrUnknownPrice = errors.New("unknown price id")
	ErrSamePlan     = errors.New("already on this plan")
)

type Catalog struct {
	plans  map[Tier]Plan
	prices map[string]Price
}

func DefaultCatalog() *Catalog {
	return &Catalog{
		plans: map[Tier]Plan{
			TierFree:    {Tier: TierFree, Rank: 0, Limits: Limits{Calls: 1, Texts: 1, Emails: 1}},
			TierPro:     {Tier: TierPro, Rank: 1, Limits: Limits{Calls: 5, Texts: 10, Emails: 10}},
			TierPremium: {Tier: TierPremium, Rank: 2, Limits: Limits{Calls: Unlimited, Texts: Unlimited, Emails: Unlimited}},
		},
		prices: map[string]Price{
			"price_pro_monthly":     {ID: "price_pro_monthly", Tier: TierPro, Interval: "monthly"},
			"price_pro_yearly":      {ID: "price_pro_yearly", Tier: TierPro, Interval: "yearly"},
			"price_premium_monthly": {ID: "price_premium_monthly", Tier: TierPremium, Interval: "monthly"},
			"price_premium_yearly":  {ID: "price_premium_yearly", Tier: TierPremium, Interval: "yearly"},
		},
	}
}

// SetLimits overrides the entitlements of a known tier. Only called while
// loading configuration.
func (c *Catalog) SetLimits(tier Tier, limits Limits) {
	p, ok := c.plans[tier]
	if !ok {
		return
	}
	p.Limits = limits
	c.plans[tier] = p
}

// SetPrices replaces the price table.
func (c *Catalog) SetPrices(prices []Price) {
	c.prices = make(map[string]Price, len(prices))
	for _, p := range prices {
		c.prices[p.ID] = p
	}
}

// Plan returns the plan for tier, falling back to free for unknown tiers.
func (c *Catalog) Plan(tier Tier) Plan {
	if p, ok := c.plans[tier]; ok {
		return p
	}
	return c.plans[TierFree]
}

func (c *Catalog) Limits(tier Tier) Limits {
	return c.Plan(tier).Limits
}

func (c *Catalog) Price(priceID string) (Price, bool) {
	p, ok := c.prices[priceID]
	return p, ok
}

// TierForPrice maps a Stripe price id to a tier. Unmapped ids yield free and
// ok=false so callers can report the misconfiguration.
func (c *Catalog) TierForPrice(priceID string) (Tier, bool) {
	if p, ok := c.prices[priceID]; ok {
		return p.Tier, true
	}
	return TierFree, false
}

// Decision is the outcome of comparing consumption against an entitlement.
type Decision struct {
	Action  Action `json:"action"`
	Tier    Tier   `json:"tier"`
	Used    int    `json:"used"`
	Limit   int    `json:"limit"`
	Allowed bool   `json:"allowed"`
}

// Remaining returns Unlimited for uncapped entitlements.
func (d Decision) Remaining() int {
	if d.Limit == Unlimited {
		return Unlimited
	}
	if r := d.Limit - d.Used; r > 0 {
		return r
	}
	return 0
}

// Evaluate allows the action iff the entitlement is unlimited or used is
// strictly below it.
func (c *Catalog) Evaluate(tier Tier, action Action, used int) Decision {
	plan := c.Plan(tier)
	limit := plan.Limits.For(action)
	return Decision{
		Action:  action,
		Tier:    plan.Tier,
		Used:    used,
		Limit:   limit,
		Allowed: limit == Unlimited || used < limit,
	}
}

// ChangeType classifies moving from one price to another.
func (c *Catalog) ChangeType(fromPriceID, toPriceID string) (ChangeType, error) {
	to, ok := c.prices[toPriceID]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownPrice, toPriceID)
	}
	if fromPriceID == toPriceID {
		return "", ErrSamePlan
	}

	fromRank := c.plans[TierFree].Rank
	if from, ok := c.prices[fromPriceID]; ok {
		fromRank = c.Plan(from.Tier).Rank
	}
	toRank := c.Plan(to.Tier).Rank

	switch {
	case toRank > fromRank:
		return ChangeUpgrade, nil
	case toRank < fromRank:
		return ChangeDowngrade, nil
	default:
		return ChangeSwitch, nil
	}
}

// ParseLimits parses "free:1/1/1,pro:5/10/10,premium:-1/-1/-1"
// (calls/texts/emails per tier).
func ParseLimits(raw string) (map[Tier]Limits, error) {
	out := make(map[Tier]Limits)
	for _, entry := range splitCSV(raw) {
		name, values, ok := strings.Cut(entry, ":")
		if !ok {
			return nil, fmt.Errorf("missing ':' in %q", entry)
		}
		parts := strings.Split(values, "/")
		if len(parts) != 3 {
			return nil, fmt.Errorf("want calls/texts/emails in %q", entry)
		}
		nums := make([]int, 3)
		for i, p := range parts {
			n, err := strconv.Atoi(strings.TrimSpace(p))
			if err != nil || n < Unlimited {
				return nil, fmt.Errorf("invalid limit %q in %q", p, entry)
			}
			nums[i] = n
		}
		tier := Tier(strings.TrimSpace(name))
		if !tier.Valid() {
			return nil, fmt.Errorf("unknown tier %q in %q", name, entry)
		}
		out[tier] = Limits{Calls: nums[0], Texts: nums[1], Emails: nums[2]}
	}
	return out, nil
}

// ParsePriceTiers parses "price_a=pro:monthly,price_b=premium:yearly".
// The interval defaults to monthly.
func ParsePriceTiers(raw string) ([]Price, error) {
	var out []Price
	for _, entry := range splitCSV(raw) {
		id, rest, ok := strings.Cut(entry, "=")
		if !ok || strings.TrimSpace(id) == "" {
			return nil, fmt.Errorf("missing '=' in %q", entry)
		}
		tier, interval, _ := strings.Cut(rest, ":")
		if interval == "" {
			interval = "monthly"
		}
		t := Tier(strings.TrimSpace(tier))
		if !t.Valid() {
			return nil, fmt.Errorf("unknown tier %q in %q", tier, entry)
		}
		out = append(out, Price{ID: strings.TrimSpace(id), Tier: t, Interval: strings.TrimSpace(interval)})
	}
	return out, nil
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
