package stripe

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v75"

	"tourism-app/internal/domain/billing"
)

// NormalizeEvent decodes the object of a verified Stripe event into the
// payload its kind needs. Unknown kinds come back with no payload.
func NormalizeEvent(ev stripe.Event) (billing.Event, error) {
	out := billing.Event{
		ID:         ev.ID,
		Type:       string(ev.Type),
		Kind:       billing.ParseEventKind(string(ev.Type)),
		OccurredAt: time.Unix(ev.Created, 0).UTC(),
	}
	if ev.Data == nil {
		if out.Kind != billing.EventUnknown {
			return out, fmt.Errorf("event %s has no data", ev.ID)
		}
		return out, nil
	}
	raw := ev.Data.Raw

	switch out.Kind {
	case billing.EventInvoicePaymentSucceeded, billing.EventInvoicePaymentFailed:
		var inv stripe.Invoice
		if err := json.Unmarshal(raw, &inv); err != nil {
			return out, fmt.Errorf("decode invoice: %w", err)
		}
		out.Invoice = invoicePayload(&inv)

	case billing.EventSubscriptionCreated, billing.EventSubscriptionUpdated, billing.EventSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(raw, &sub); err != nil {
			return out, fmt.Errorf("decode subscription: %w", err)
		}
		out.Subscription = subscriptionPayload(&sub)

	case billing.EventPaymentMethodAttached, billing.EventPaymentMethodDetached:
		var pm stripe.PaymentMethod
		if err := json.Unmarshal(raw, &pm); err != nil {
			return out, fmt.Errorf("decode payment method: %w", err)
		}
		out.PaymentMethod = paymentMethodPayload(&pm)

	case billing.EventCheckoutSessionCompleted:
		var s stripe.CheckoutSession
		if err := json.Unmarshal(raw, &s); err != nil {
			return out, fmt.Errorf("decode checkout session: %w", err)
		}
		out.Checkout = checkoutPayload(&s)
	}
	return out, nil
}

func invoicePayload(inv *stripe.Invoice) *billing.InvoicePayload {
	p := &billing.InvoicePayload{
		ExternalID: inv.ID,
		AmountPaid: decimal.New(inv.AmountPaid, -2),
		AmountDue:  decimal.New(inv.AmountDue, -2),
		Currency:   strings.ToUpper(string(inv.Currency)),
		Metadata:   inv.Metadata,
	}
	if inv.Customer != nil {
		p.CustomerID = inv.Customer.ID
	}
	if inv.Subscription != nil {
		p.SubscriptionExternalID = inv.Subscription.ID
	}
	if inv.PaymentIntent != nil {
		p.PaymentIntentID = inv.PaymentIntent.ID
		if inv.PaymentIntent.LastPaymentError != nil {
			p.FailureReason = inv.PaymentIntent.LastPaymentError.Msg
		}
	}
	if inv.StatusTransitions != nil && inv.StatusTransitions.PaidAt > 0 {
		t := time.Unix(inv.StatusTransitions.PaidAt, 0).UTC()
		p.PaidAt = &t
	}
	if inv.NextPaymentAttempt > 0 {
		t := time.Unix(inv.NextPaymentAttempt, 0).UTC()
		p.NextPaymentAttempt = &t
	}
	if p.FailureReason == "" && inv.LastFinalizationError != nil {
		p.FailureReason = inv.LastFinalizationError.Msg
	}
	return p
}

func subscriptionPayload(sub *stripe.Subscription) *billing.SubscriptionPayload {
	p := &billing.SubscriptionPayload{
		ExternalID:        sub.ID,
		Status:            string(sub.Status),
		PeriodStart:       time.Unix(sub.CurrentPeriodStart, 0).UTC(),
		PeriodEnd:         time.Unix(sub.CurrentPeriodEnd, 0).UTC(),
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
		Metadata:          sub.Metadata,
	}
	if sub.Customer != nil {
		p.CustomerID = sub.Customer.ID
	}
	if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
		p.PriceID = sub.Items.Data[0].Price.ID
	}
	return p
}

func paymentMethodPayload(pm *stripe.PaymentMethod) *billing.PaymentMethodPayload {
	p := &billing.PaymentMethodPayload{
		ExternalID: pm.ID,
		Type:       string(billing.MethodCard),
	}
	if pm.Customer != nil {
		p.CustomerID = pm.Customer.ID
	}
	switch {
	case pm.Card != nil:
		p.Last4 = pm.Card.Last4
		p.Brand = string(pm.Card.Brand)
		p.ExpMonth = pm.Card.ExpMonth
		p.ExpYear = pm.Card.ExpYear
		p.Country = pm.Card.Country
	case pm.USBankAccount != nil:
		p.Type = string(billing.MethodBankAccount)
		p.Last4 = pm.USBankAccount.Last4
		p.Brand = pm.USBankAccount.BankName
	case pm.SEPADebit != nil:
		p.Type = string(billing.MethodBankAccount)
		p.Last4 = pm.SEPADebit.Last4
		p.Country = pm.SEPADebit.Country
	}
	return p
}

func checkoutPayload(s *stripe.CheckoutSession) *billing.CheckoutPayload {
	p := &billing.CheckoutPayload{
		SessionID:         s.ID,
		ClientReferenceID: s.ClientReferenceID,
		Metadata:          s.Metadata,
	}
	if s.Customer != nil {
		p.CustomerID = s.Customer.ID
	}
	if s.Subscription != nil {
		p.SubscriptionExternalID = s.Subscription.ID
	}
	if s.Invoice != nil {
		p.InvoiceExternalID = s.Invoice.ID
	}
	return p
}
