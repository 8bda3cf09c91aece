package stripe

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v75"

	"tourism-app/internal/domain/billing"
	"tourism-app/internal/domain/plans"
)

func event(t *testing.T, typ string, object string) stripe.Event {
	t.Helper()
	return stripe.Event{
		ID:      "evt_1",
		Type:    stripe.EventType(typ),
		Created: 1735732800, // 2025-01-01T12:00:00Z
		Data:    &stripe.EventData{Raw: json.RawMessage(object)},
	}
}

func TestNormalizeEvent_InvoiceSucceeded(t *testing.T) {
	ev := event(t, "invoice.payment_succeeded", `{
		"id": "in_123",
		"object": "invoice",
		"amount_paid": 29999,
		"currency": "usd",
		"customer": "cus_9",
		"subscription": "sub_7",
		"payment_intent": "pi_5",
		"status_transitions": {"paid_at": 1735732900}
	}`)

	got, err := NormalizeEvent(ev)
	require.NoError(t, err)
	assert.Equal(t, billing.EventInvoicePaymentSucceeded, got.Kind)
	require.NotNil(t, got.Invoice)
	assert.Equal(t, "in_123", got.Invoice.ExternalID)
	assert.Equal(t, "pi_5", got.Invoice.PaymentIntentID)
	assert.Equal(t, "cus_9", got.Invoice.CustomerID)
	assert.Equal(t, "sub_7", got.Invoice.SubscriptionExternalID)
	assert.Equal(t, "299.99", got.Invoice.AmountPaid.StringFixed(2))
	assert.Equal(t, "USD", got.Invoice.Currency)
	require.NotNil(t, got.Invoice.PaidAt)
	assert.Equal(t, int64(1735732900), got.Invoice.PaidAt.Unix())
	assert.Nil(t, got.Invoice.NextPaymentAttempt)
}

func TestNormalizeEvent_SubscriptionUpdated(t *testing.T) {
	ev := event(t, "customer.subscription.updated", `{
		"id": "sub_7",
		"object": "subscription",
		"customer": "cus_9",
		"status": "active",
		"current_period_start": 1735689600,
		"current_period_end": 1738368000,
		"metadata": {"user_id": "42"},
		"items": {"object": "list", "data": [{"id": "si_1", "price": {"id": "price_premium_m"}}]}
	}`)

	got, err := NormalizeEvent(ev)
	require.NoError(t, err)
	require.NotNil(t, got.Subscription)
	assert.Equal(t, "price_premium_m", got.Subscription.PriceID)
	assert.Equal(t, "42", got.Subscription.Metadata["user_id"])
	assert.Equal(t, int64(1738368000), got.Subscription.PeriodEnd.Unix())
}

func TestNormalizeEvent_PaymentMethodAttached(t *testing.T) {
	ev := event(t, "payment_method.attached", `{
		"id": "pm_1",
		"object": "payment_method",
		"type": "card",
		"customer": "cus_9",
		"card": {"brand": "visa", "last4": "4242", "exp_month": 12, "exp_year": 2030, "country": "US"}
	}`)

	got, err := NormalizeEvent(ev)
	require.NoError(t, err)
	require.NotNil(t, got.PaymentMethod)
	assert.Equal(t, "card", got.PaymentMethod.Type)
	assert.Equal(t, "4242", got.PaymentMethod.Last4)
	assert.Equal(t, "visa", got.PaymentMethod.Brand)
	assert.Equal(t, "cus_9", got.PaymentMethod.CustomerID)
}

func TestNormalizeEvent_Unknown(t *testing.T) {
	got, err := NormalizeEvent(event(t, "charge.refunded", `{"id": "ch_1"}`))
	require.NoError(t, err)
	assert.Equal(t, billing.EventUnknown, got.Kind)
	assert.Equal(t, "charge.refunded", got.Type)
}

func TestMapSubscriptionStatus(t *testing.T) {
	assert.Equal(t, billing.StatusActive, MapSubscriptionStatus("trialing"))
	assert.Equal(t, billing.StatusCancelled, MapSubscriptionStatus("canceled"))
	assert.Equal(t, billing.StatusPending, MapSubscriptionStatus("past_due"))
	assert.Equal(t, billing.StatusPending, MapSubscriptionStatus("incomplete"))
}

func TestCycleFromRecurring(t *testing.T) {
	c, ok := CycleFromRecurring("month", 3)
	assert.True(t, ok)
	assert.Equal(t, plans.Quarterly, c)

	c, ok = CycleFromRecurring("year", 0)
	assert.True(t, ok)
	assert.Equal(t, plans.Yearly, c)

	_, ok = CycleFromRecurring("week", 1)
	assert.False(t, ok)
}
