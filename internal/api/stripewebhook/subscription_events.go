package stripewebhooks

import (
	"errors"

	"gorm.io/gorm"

	"tourism-app/internal/domain/billing"
	"tourism-app/internal/domain/plans"
	"tourism-app/internal/domain/users"
	stripeinfra "tourism-app/internal/infra/stripe"
)

// planFor resolves the catalog entry of a gateway subscription: checkout
// metadata first, then the synced price table.
func planFor(tx *gorm.DB, sp *billing.SubscriptionPayload) (plans.PlanType, plans.BillingCycle, bool, error) {
	if pt, err := plans.ParsePlanType(sp.Metadata["plan_type"]); err == nil {
		if bc, err := plans.ParseBillingCycle(sp.Metadata["billing_cycle"]); err == nil {
			return pt, bc, true, nil
		}
	}
	if sp.PriceID == "" {
		return "", "", false, nil
	}
	pt, bc, err := plans.EntryForPrice(tx, sp.PriceID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", "", false, nil
	}
	if err != nil {
		return "", "", false, err
	}
	return pt, bc, true, nil
}

func (p *Processor) onSubscriptionChanged(tx *gorm.DB, ev billing.Event) (effects, error) {
	sp := ev.Subscription
	if sp == nil || sp.ExternalID == "" {
		return effects{outcome: warning("event carries no subscription")}, nil
	}

	existing, err := billing.FindByExternalID(tx, sp.ExternalID)
	if err != nil && !errors.Is(err, billing.ErrSubscriptionNotFound) {
		return effects{}, err
	}
	if existing == nil && ev.Kind == billing.EventSubscriptionUpdated {
		return effects{outcome: warning("subscription %s not tracked locally", sp.ExternalID)}, nil
	}

	var userID uint
	if existing != nil {
		userID = existing.UserID
	} else {
		userID, err = p.resolveUser(tx, users.IDFromMetadata(sp.Metadata), sp.CustomerID)
		if err != nil {
			return effects{}, err
		}
		if userID == 0 {
			return effects{outcome: warning("no local user for subscription %s", sp.ExternalID)}, nil
		}
	}

	planType, cycle, ok, err := planFor(tx, sp)
	if err != nil {
		return effects{}, err
	}
	if !ok {
		if existing == nil {
			return effects{outcome: warning("subscription %s has no known plan (price %q)", sp.ExternalID, sp.PriceID)}, nil
		}
		planType, cycle = existing.PlanType, existing.BillingCycle
	}

	_, created, err := billing.MirrorSubscription(tx, billing.GatewaySubscription{
		UserID:       userID,
		ExternalID:   sp.ExternalID,
		PlanType:     planType,
		BillingCycle: cycle,
		Status:       stripeinfra.MapSubscriptionStatus(sp.Status),
		PeriodStart:  sp.PeriodStart,
		PeriodEnd:    sp.PeriodEnd,
		AutoRenew:    !sp.CancelAtPeriodEnd,
	}, p.now().UTC())
	if err != nil {
		return effects{}, err
	}
	if created {
		return effects{outcome: processed("subscription created")}, nil
	}
	return effects{outcome: processed("subscription updated")}, nil
}

func (p *Processor) onSubscriptionDeleted(tx *gorm.DB, ev billing.Event) (effects, error) {
	sp := ev.Subscription
	if sp == nil || sp.ExternalID == "" {
		return effects{outcome: warning("event carries no subscription")}, nil
	}

	_, changed, err := billing.CancelByExternalID(tx, sp.ExternalID, p.now().UTC())
	if errors.Is(err, billing.ErrSubscriptionNotFound) {
		return effects{outcome: warning("subscription %s not tracked locally", sp.ExternalID)}, nil
	}
	if err != nil {
		return effects{}, err
	}
	if !changed {
		return effects{outcome: processed("subscription already cancelled")}, nil
	}
	return effects{outcome: processed("subscription cancelled")}, nil
}

// resolveUser prefers an explicit user id (checkout metadata) and falls
// back to the gateway customer. Zero means no local user.
func (p *Processor) resolveUser(tx *gorm.DB, userID uint, customerID string) (uint, error) {
	if userID != 0 {
		_, err := users.FindByID(tx, userID)
		if err == nil {
			return userID, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, err
		}
	}
	if customerID == "" {
		return 0, nil
	}
	u, err := users.FindByStripeCustomer(tx, customerID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return u.ID, nil
}
