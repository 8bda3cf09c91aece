package plans

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type PlanType string

const (
	Basic      PlanType = "basic"
	Premium    PlanType = "premium"
	Enterprise PlanType = "enterprise"
)

type BillingCycle string

const (
	Monthly   BillingCycle = "monthly"
	Quarterly BillingCycle = "quarterly"
	Yearly    BillingCycle = "yearly"
)

// Unlimited marks a limit without a ceiling.
const Unlimited = -1

const Currency = "USD"

// PlanTypes and BillingCycles list the catalog axes in display order.
var (
	PlanTypes     = []PlanType{Basic, Premium, Enterprise}
	BillingCycles = []BillingCycle{Monthly, Quarterly, Yearly}
)

type Limits struct {
	MaxDestinations int `json:"max_destinations"`
	MaxPromotions   int `json:"max_promotions"`
}

type Plan struct {
	Type     PlanType                         `json:"type"`
	Name     string                           `json:"name"`
	Features []string                         `json:"features"`
	Limits   Limits                           `json:"limits"`
	Prices   map[BillingCycle]decimal.Decimal `json:"prices"`
}

var catalog = map[PlanType]Plan{
	Basic: {
		Type: Basic,
		Name: "Basic",
		Features: []string{
			"destination_listing",
			"basic_statistics",
			"email_support",
		},
		Limits: Limits{MaxDestinations: 5, MaxPromotions: 2},
		Prices: map[BillingCycle]decimal.Decimal{
			Monthly:   decimal.RequireFromString("99.99"),
			Quarterly: decimal.RequireFromString("269.99"),
			Yearly:    decimal.RequireFromString("999.99"),
		},
	},
	Premium: {
		Type: Premium,
		Name: "Premium",
		Features: []string{
			"destination_listing",
			"advanced_statistics",
			"promotions",
			"media_gallery",
			"priority_support",
		},
		Limits: Limits{MaxDestinations: 20, MaxPromotions: 10},
		Prices: map[BillingCycle]decimal.Decimal{
			Monthly:   decimal.RequireFromString("299.99"),
			Quarterly: decimal.RequireFromString("809.99"),
			Yearly:    decimal.RequireFromString("2999.99"),
		},
	},
	Enterprise: {
		Type: Enterprise,
		Name: "Enterprise",
		Features: []string{
			"destination_listing",
			"advanced_statistics",
			"promotions",
			"media_gallery",
			"featured_placement",
			"api_access",
			"dedicated_account_manager",
		},
		Limits: Limits{MaxDestinations: Unlimited, MaxPromotions: Unlimited},
		Prices: map[BillingCycle]decimal.Decimal{
			Monthly:   decimal.RequireFromString("599.99"),
			Quarterly: decimal.RequireFromString("1619.99"),
			Yearly:    decimal.RequireFromString("5999.99"),
		},
	},
}

func ParsePlanType(s string) (PlanType, error) {
	t := PlanType(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := catalog[t]; !ok {
		return "", fmt.Errorf("unknown plan type %q", s)
	}
	return t, nil
}

func ParseBillingCycle(s string) (BillingCycle, error) {
	c := BillingCycle(strings.ToLower(strings.TrimSpace(s)))
	switch c {
	case Monthly, Quarterly, Yearly:
		return c, nil
	}
	return "", fmt.Errorf("unknown billing cycle %q", s)
}

// Lookup returns the catalog entry for t. The returned Plan owns copies of
// the feature list and price table, so callers may keep it as a snapshot.
func Lookup(t PlanType) (Plan, bool) {
	p, ok := catalog[t]
	if !ok {
		return Plan{}, false
	}
	out := p
	out.Features = append([]string(nil), p.Features...)
	out.Prices = make(map[BillingCycle]decimal.Decimal, len(p.Prices))
	for k, v := range p.Prices {
		out.Prices[k] = v
	}
	return out, true
}

func Price(t PlanType, c BillingCycle) (decimal.Decimal, error) {
	p, ok := catalog[t]
	if !ok {
		return decimal.Zero, fmt.Errorf("unknown plan type %q", t)
	}
	price, ok := p.Prices[c]
	if !ok {
		return decimal.Zero, fmt.Errorf("unknown billing cycle %q", c)
	}
	return price, nil
}

func All() []Plan {
	out := make([]Plan, 0, len(PlanTypes))
	for _, t := range PlanTypes {
		p, _ := Lookup(t)
		out = append(out, p)
	}
	return out
}

// Months is the length of one billing cycle in calendar months.
func (c BillingCycle) Months() int {
	switch c {
	case Quarterly:
		return 3
	case Yearly:
		return 12
	default:
		return 1
	}
}

// Advance moves t forward by n billing cycles. Month arithmetic clamps to the
// last valid day of the target month (Jan 31 + 1 month = Feb 28/29).
func (c BillingCycle) Advance(t time.Time, n int) time.Time {
	return AddMonths(t, c.Months()*n)
}

func AddMonths(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	hh, mm, ss := t.Clock()

	total := int(m) - 1 + months
	ty := y + total/12
	tm := total % 12
	if tm < 0 {
		tm += 12
		ty--
	}
	month := time.Month(tm + 1)

	if last := daysIn(ty, month, t.Location()); d > last {
		d = last
	}
	return time.Date(ty, month, d, hh, mm, ss, t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}
