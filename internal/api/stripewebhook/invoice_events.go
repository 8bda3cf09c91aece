package stripewebhooks

import (
	"errors"

	"gorm.io/gorm"

	"tourism-app/internal/domain/billing"
	"tourism-app/internal/infra/notify"
)

// invoiceFor locates the local invoice for a gateway invoice. Invoices the
// gateway raised for a tracked subscription (later cycles) are recorded on
// first sight.
func invoiceFor(tx *gorm.DB, in *billing.InvoicePayload) (*billing.Invoice, *billing.Subscription, error) {
	inv, err := billing.LocateInvoice(tx, in.ExternalID, in.PaymentIntentID, in.Metadata["session_id"])
	if err != nil && !errors.Is(err, billing.ErrInvoiceNotFound) {
		return nil, nil, err
	}

	var sub *billing.Subscription
	if in.SubscriptionExternalID != "" {
		sub, err = billing.FindByExternalID(tx, in.SubscriptionExternalID)
		if err != nil && !errors.Is(err, billing.ErrSubscriptionNotFound) {
			return nil, nil, err
		}
	}
	if sub == nil && inv != nil && inv.SubscriptionID != nil {
		var s billing.Subscription
		if err := tx.First(&s, *inv.SubscriptionID).Error; err == nil {
			sub = &s
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, err
		}
	}

	if inv == nil {
		if sub == nil || in.ExternalID == "" {
			return nil, nil, billing.ErrInvoiceNotFound
		}
		amount := in.AmountPaid
		if !amount.IsPositive() {
			amount = in.AmountDue
		}
		inv, err = billing.RecordGatewayInvoice(tx, sub, in.ExternalID, amount, in.Currency)
		if err != nil {
			return nil, nil, err
		}
	}
	if inv.SubscriptionID == nil && sub != nil {
		if err := tx.Model(inv).Update("subscription_id", sub.ID).Error; err != nil {
			return nil, nil, err
		}
		inv.SubscriptionID = &sub.ID
	}
	return inv, sub, nil
}

func (p *Processor) onInvoicePaid(tx *gorm.DB, ev billing.Event) (effects, error) {
	in := ev.Invoice
	if in == nil {
		return effects{outcome: warning("event carries no invoice")}, nil
	}

	inv, sub, err := invoiceFor(tx, in)
	if errors.Is(err, billing.ErrInvoiceNotFound) {
		return effects{outcome: warning("invoice %s not tracked locally", in.ExternalID)}, nil
	}
	if err != nil {
		return effects{}, err
	}

	changed, err := billing.MarkInvoicePaid(tx, inv, ev.OccurredAt, in.AmountPaid, in.ExternalID)
	if err != nil {
		return effects{}, err
	}
	if !changed {
		return effects{outcome: processed("invoice already paid")}, nil
	}

	if sub != nil {
		if err := billing.SettleSubscriptionPayment(tx, sub, true, in.PaymentIntentID, p.now().UTC()); err != nil {
			return effects{}, err
		}
	}

	notes, err := userMessage(tx, inv.UserID, notify.KindPaymentSucceeded, map[string]string{
		"amount":   inv.Amount.StringFixed(2),
		"currency": inv.Currency,
	})
	if err != nil {
		return effects{}, err
	}
	return effects{outcome: processed("invoice paid"), notes: notes}, nil
}

func (p *Processor) onInvoiceFailed(tx *gorm.DB, ev billing.Event) (effects, error) {
	in := ev.Invoice
	if in == nil {
		return effects{outcome: warning("event carries no invoice")}, nil
	}

	inv, sub, err := invoiceFor(tx, in)
	if errors.Is(err, billing.ErrInvoiceNotFound) {
		return effects{outcome: warning("invoice %s not tracked locally", in.ExternalID)}, nil
	}
	if err != nil {
		return effects{}, err
	}

	reason := in.FailureReason
	if reason == "" {
		reason = "the payment was declined"
	}
	retrying := in.NextPaymentAttempt != nil

	changed, err := billing.MarkInvoiceFailed(tx, inv, reason, retrying)
	if err != nil {
		return effects{}, err
	}
	if !changed {
		return effects{outcome: processed("invoice already settled")}, nil
	}

	if sub != nil {
		if err := billing.SettleSubscriptionPayment(tx, sub, false, "", p.now().UTC()); err != nil {
			return effects{}, err
		}
	}

	notes, err := userMessage(tx, inv.UserID, notify.KindPaymentFailed, map[string]string{
		"reason":   reason,
		"amount":   inv.Amount.StringFixed(2),
		"currency": inv.Currency,
	})
	if err != nil {
		return effects{}, err
	}
	return effects{outcome: processed("invoice payment failed"), notes: notes}, nil
}
