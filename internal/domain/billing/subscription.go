package billing

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"tourism-app/internal/domain/plans"
)

type SubscriptionStatus string

const (
	StatusPending   SubscriptionStatus = "pending"
	StatusActive    SubscriptionStatus = "active"
	StatusCancelled SubscriptionStatus = "cancelled"
	StatusExpired   SubscriptionStatus = "expired"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

// Subscription rows are never deleted; cancellation and expiry are status
// changes. The partial unique index keeps a single active row per user.
type Subscription struct {
	ID              uint               `gorm:"primaryKey" json:"id"`
	UserID          uint               `gorm:"not null;index;uniqueIndex:idx_subscriptions_one_active,where:status = 'active'" json:"user_id"`
	PlanType        plans.PlanType     `gorm:"type:varchar(20);not null" json:"plan_type"`
	Status          SubscriptionStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	Amount          decimal.Decimal    `gorm:"type:numeric(12,2);not null" json:"amount"`
	Currency        string             `gorm:"type:varchar(3);not null" json:"currency"`
	BillingCycle    plans.BillingCycle `gorm:"type:varchar(20);not null" json:"billing_cycle"`
	StartDate       time.Time          `gorm:"not null" json:"start_date"`
	EndDate         time.Time          `gorm:"not null;index" json:"end_date"`
	NextBillingDate time.Time          `json:"next_billing_date"`
	AutoRenew       bool               `gorm:"not null" json:"auto_renew"`
	PaymentMethod   string             `json:"payment_method"`
	PaymentStatus   PaymentStatus      `gorm:"type:varchar(20);not null;default:'pending'" json:"payment_status"`
	TransactionID   *string            `json:"transaction_id,omitempty"`
	ExternalID      *string            `gorm:"uniqueIndex:idx_subscriptions_external_id" json:"external_id,omitempty"`

	// Snapshot of the catalog at subscribe time.
	Features        datatypes.JSON `json:"features"`
	MaxDestinations int            `gorm:"not null" json:"max_destinations"`
	MaxPromotions   int            `gorm:"not null" json:"max_promotions"`

	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (s Subscription) FeatureList() []string {
	var out []string
	if len(s.Features) == 0 {
		return out
	}
	_ = json.Unmarshal(s.Features, &out)
	return out
}

func (s Subscription) IsActive() bool { return s.Status == StatusActive }

// LimitFor reads the limit snapshot, never the live catalog.
func (s Subscription) LimitFor(kind ResourceKind) (int, bool) {
	switch kind {
	case ResourceDestination:
		return s.MaxDestinations, true
	case ResourcePromotion:
		return s.MaxPromotions, true
	}
	return 0, false
}

// applyPlan copies price, features and limits of p into s.
func (s *Subscription) applyPlan(p plans.Plan, cycle plans.BillingCycle) {
	features, _ := json.Marshal(p.Features)
	s.PlanType = p.Type
	s.BillingCycle = cycle
	s.Amount = p.Prices[cycle]
	s.Currency = plans.Currency
	s.Features = datatypes.JSON(features)
	s.MaxDestinations = p.Limits.MaxDestinations
	s.MaxPromotions = p.Limits.MaxPromotions
}
