package stripewebhooks

import (
	"errors"

	"gorm.io/gorm"

	"tourism-app/internal/domain/billing"
)

func (p *Processor) onPaymentMethodAttached(tx *gorm.DB, ev billing.Event) (effects, error) {
	pm := ev.PaymentMethod
	if pm == nil || pm.ExternalID == "" {
		return effects{outcome: warning("event carries no payment method")}, nil
	}

	userID, err := p.resolveUser(tx, 0, pm.CustomerID)
	if err != nil {
		return effects{}, err
	}
	if userID == 0 {
		return effects{outcome: warning("no local user for customer %q", pm.CustomerID)}, nil
	}

	_, err = billing.AttachPaymentMethod(tx, userID, billing.PaymentMethodInput{
		ExternalRef: pm.ExternalID,
		Type:        billing.PaymentMethodType(pm.Type),
		Last4:       pm.Last4,
		Brand:       pm.Brand,
		Metadata: map[string]any{
			"country":   pm.Country,
			"exp_month": pm.ExpMonth,
			"exp_year":  pm.ExpYear,
		},
	})
	if errors.Is(err, billing.ErrPaymentMethodNotFound) {
		return effects{outcome: warning("payment method %s belongs to another user", pm.ExternalID)}, nil
	}
	if err != nil {
		return effects{}, err
	}
	return effects{outcome: processed("payment method attached")}, nil
}

func (p *Processor) onPaymentMethodDetached(tx *gorm.DB, ev billing.Event) (effects, error) {
	pm := ev.PaymentMethod
	if pm == nil || pm.ExternalID == "" {
		return effects{outcome: warning("event carries no payment method")}, nil
	}

	_, found, err := billing.DetachPaymentMethod(tx, pm.ExternalID)
	if err != nil {
		return effects{}, err
	}
	if !found {
		return effects{outcome: warning("payment method %s not tracked locally", pm.ExternalID)}, nil
	}
	return effects{outcome: processed("payment method detached")}, nil
}
