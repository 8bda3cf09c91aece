package stripewebhooks

import (
	"errors"

	"gorm.io/gorm"

	"tourism-app/internal/domain/billing"
	"tourism-app/internal/domain/users"
)

// onCheckoutCompleted links the open invoice created with the checkout
// session to the gateway invoice, so the payment events that follow can
// find it, and stores the customer id on the user.
func (p *Processor) onCheckoutCompleted(tx *gorm.DB, ev billing.Event) (effects, error) {
	cp := ev.Checkout
	if cp == nil || cp.SessionID == "" {
		return effects{outcome: warning("event carries no checkout session")}, nil
	}

	inv, err := billing.LocateInvoice(tx, "", "", cp.SessionID)
	if errors.Is(err, billing.ErrInvoiceNotFound) {
		return effects{outcome: warning("checkout session %s not tracked locally", cp.SessionID)}, nil
	}
	if err != nil {
		return effects{}, err
	}

	if inv.ExternalRef == nil && cp.InvoiceExternalID != "" {
		// The payment event may have arrived first and recorded the
		// gateway invoice on its own row.
		var taken int64
		if err := tx.Model(&billing.Invoice{}).Where("external_ref = ?", cp.InvoiceExternalID).Count(&taken).Error; err != nil {
			return effects{}, err
		}
		if taken == 0 {
			if err := tx.Model(inv).Update("external_ref", cp.InvoiceExternalID).Error; err != nil {
				return effects{}, err
			}
		}
	}

	if cp.CustomerID != "" {
		if err := tx.Model(&users.User{}).
			Where("id = ? AND stripe_customer_id IS NULL", inv.UserID).
			Update("stripe_customer_id", cp.CustomerID).Error; err != nil {
			return effects{}, err
		}
	}
	return effects{outcome: processed("checkout linked")}, nil
}
