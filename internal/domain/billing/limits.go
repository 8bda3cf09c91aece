package billing

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"tourism-app/internal/domain/plans"
)

type ResourceKind string

const (
	ResourceDestination ResourceKind = "destination"
	ResourcePromotion   ResourceKind = "promotion"
)

var ResourceKinds = []ResourceKind{ResourceDestination, ResourcePromotion}

// CountFunc counts the live resources of one kind owned by userID.
type CountFunc func(tx *gorm.DB, userID uint) (int64, error)

// LimitEvaluator answers "may this user create one more X" from the limits
// snapshot on the user's active subscription. The check does not reserve
// anything; two concurrent creates at the boundary can both pass.
type LimitEvaluator struct {
	db       *gorm.DB
	counters map[ResourceKind]CountFunc
}

func NewLimitEvaluator(db *gorm.DB, counters map[ResourceKind]CountFunc) *LimitEvaluator {
	return &LimitEvaluator{db: db, counters: counters}
}

type ResourceUsage struct {
	Kind      ResourceKind `json:"kind"`
	Used      int64        `json:"used"`
	Limit     int          `json:"limit"`
	Unlimited bool         `json:"unlimited"`
	CanCreate bool         `json:"can_create"`
}

type Usage struct {
	PlanType  plans.PlanType  `json:"plan_type,omitempty"`
	Active    bool            `json:"active"`
	Resources []ResourceUsage `json:"resources"`
}

func (e *LimitEvaluator) CanCreate(ctx context.Context, kind ResourceKind, userID uint) (bool, error) {
	u, err := e.evaluate(e.db.WithContext(ctx), kind, userID, e.activeSubscription)
	if err != nil {
		return false, err
	}
	return u.CanCreate, nil
}

// Usage reports count and limit for every known resource kind.
func (e *LimitEvaluator) Usage(ctx context.Context, userID uint) (Usage, error) {
	tx := e.db.WithContext(ctx)
	sub, err := e.activeSubscription(tx, userID)
	if err != nil {
		return Usage{}, err
	}
	out := Usage{Active: sub != nil}
	if sub != nil {
		out.PlanType = sub.PlanType
	}
	fixed := func(*gorm.DB, uint) (*Subscription, error) { return sub, nil }
	for _, kind := range ResourceKinds {
		ru, err := e.evaluate(tx, kind, userID, fixed)
		if err != nil {
			return Usage{}, err
		}
		out.Resources = append(out.Resources, ru)
	}
	return out, nil
}

func (e *LimitEvaluator) evaluate(tx *gorm.DB, kind ResourceKind, userID uint, current func(*gorm.DB, uint) (*Subscription, error)) (ResourceUsage, error) {
	count, ok := e.counters[kind]
	if !ok {
		return ResourceUsage{}, ErrUnknownResource
	}
	ru := ResourceUsage{Kind: kind}

	used, err := count(tx, userID)
	if err != nil {
		return ResourceUsage{}, err
	}
	ru.Used = used

	sub, err := current(tx, userID)
	if err != nil {
		return ResourceUsage{}, err
	}
	if sub == nil {
		return ru, nil
	}

	limit, _ := sub.LimitFor(kind)
	ru.Limit = limit
	if limit == plans.Unlimited {
		ru.Unlimited = true
		ru.CanCreate = true
		return ru, nil
	}
	ru.CanCreate = used < int64(limit)
	return ru, nil
}

func (e *LimitEvaluator) activeSubscription(tx *gorm.DB, userID uint) (*Subscription, error) {
	var sub Subscription
	err := tx.Where("user_id = ? AND status = ?", userID, StatusActive).First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}
