package stripewebhooks

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"tourism-app/internal/domain/audit"
	"tourism-app/internal/domain/billing"
	"tourism-app/internal/domain/plans"
	"tourism-app/internal/domain/users"
	"tourism-app/internal/infra/notify"
	"tourism-app/internal/testutil"
)

var eventTime = time.Date(2025, time.March, 1, 8, 0, 0, 0, time.UTC)

type recorder struct {
	mu   sync.Mutex
	msgs []notify.Message
}

func (r *recorder) Notify(m notify.Message) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, m)
	return true
}

func (r *recorder) kinds() []notify.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]notify.Kind, 0, len(r.msgs))
	for _, m := range r.msgs {
		out = append(out, m.Kind)
	}
	return out
}

type env struct {
	db    *gorm.DB
	proc  *Processor
	notes *recorder
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := testutil.NewDB(t)
	rec := &recorder{}
	p := NewProcessor(db, rec).WithClock(func() time.Time { return eventTime })
	return &env{db: db, proc: p, notes: rec}
}

func str(s string) *string { return &s }

// pendingCheckout stores the state between gateway subscription creation
// and the first payment: a pending subscription and its open invoice.
func (e *env) pendingCheckout(t *testing.T, u users.User) (billing.Subscription, billing.Invoice) {
	t.Helper()
	sub := billing.Subscription{
		UserID:          u.ID,
		PlanType:        plans.Premium,
		Status:          billing.StatusPending,
		Amount:          decimal.RequireFromString("299.99"),
		Currency:        plans.Currency,
		BillingCycle:    plans.Monthly,
		StartDate:       eventTime,
		EndDate:         plans.Monthly.Advance(eventTime, 1),
		NextBillingDate: plans.Monthly.Advance(eventTime, 1),
		AutoRenew:       true,
		PaymentStatus:   billing.PaymentPending,
		ExternalID:      str("sub_1"),
		MaxDestinations: 20,
		MaxPromotions:   10,
	}
	require.NoError(t, e.db.Create(&sub).Error)

	inv := billing.Invoice{
		UserID:         u.ID,
		SubscriptionID: &sub.ID,
		ExternalRef:    str("in_1"),
		Amount:         decimal.RequireFromString("299.99"),
		Currency:       plans.Currency,
		Status:         billing.InvoiceOpen,
	}
	require.NoError(t, e.db.Create(&inv).Error)
	return sub, inv
}

func invoiceEvent(id string, kind billing.EventKind, invoiceID string) billing.Event {
	return billing.Event{
		ID:         id,
		Type:       string(kind),
		Kind:       kind,
		OccurredAt: eventTime,
		Invoice: &billing.InvoicePayload{
			ExternalID:             invoiceID,
			PaymentIntentID:        "pi_1",
			SubscriptionExternalID: "sub_1",
			AmountPaid:             decimal.RequireFromString("299.99"),
			Currency:               "USD",
		},
	}
}

func TestInvoicePaid_ReplayAppliesOnce(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u := testutil.CreateUser(t, e.db, users.RoleProvider)
	sub, inv := e.pendingCheckout(t, u)

	ev := invoiceEvent("evt_paid_1", billing.EventInvoicePaymentSucceeded, "in_1")

	out, err := e.proc.Process(ctx, ev)
	require.NoError(t, err)
	assert.Equal(t, ResultProcessed, out.Result)

	out, err = e.proc.Process(ctx, ev)
	require.NoError(t, err)
	assert.Equal(t, ResultDuplicate, out.Result)

	var stored billing.Invoice
	require.NoError(t, e.db.First(&stored, inv.ID).Error)
	assert.Equal(t, billing.InvoicePaid, stored.Status)
	require.NotNil(t, stored.PaidAt)
	assert.True(t, eventTime.Equal(*stored.PaidAt))

	var s billing.Subscription
	require.NoError(t, e.db.First(&s, sub.ID).Error)
	assert.Equal(t, billing.StatusActive, s.Status)
	assert.Equal(t, billing.PaymentCompleted, s.PaymentStatus)

	assert.Equal(t, []notify.Kind{notify.KindPaymentSucceeded}, e.notes.kinds())

	entries, err := audit.ListFor(e.db, audit.Subject{Kind: audit.SubjectInvoice, ID: inv.ID})
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	var claimed int64
	require.NoError(t, e.db.Model(&billing.WebhookEvent{}).Where("provider_event_id = ?", "evt_paid_1").Count(&claimed).Error)
	assert.Equal(t, int64(1), claimed)
}

func TestInvoicePaid_RedeliveryUnderNewIDDoesNotNotifyTwice(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u := testutil.CreateUser(t, e.db, users.RoleProvider)
	e.pendingCheckout(t, u)

	_, err := e.proc.Process(ctx, invoiceEvent("evt_a", billing.EventInvoicePaymentSucceeded, "in_1"))
	require.NoError(t, err)
	out, err := e.proc.Process(ctx, invoiceEvent("evt_b", billing.EventInvoicePaymentSucceeded, "in_1"))
	require.NoError(t, err)

	assert.Equal(t, ResultProcessed, out.Result)
	assert.Equal(t, "invoice already paid", out.Message)
	assert.Len(t, e.notes.kinds(), 1)
}

func TestInvoicePaid_UnknownInvoiceIsWarning(t *testing.T) {
	e := newEnv(t)
	ev := invoiceEvent("evt_x", billing.EventInvoicePaymentSucceeded, "in_missing")
	ev.Invoice.SubscriptionExternalID = "sub_missing"
	ev.Invoice.PaymentIntentID = ""

	out, err := e.proc.Process(context.Background(), ev)
	require.NoError(t, err)
	assert.Equal(t, ResultWarning, out.Result)
	assert.Contains(t, out.Message, "in_missing")
	assert.Empty(t, e.notes.kinds())
}

func TestInvoicePaid_RenewalInvoiceOfTrackedSubscription(t *testing.T) {
	e := newEnv(t)
	u := testutil.CreateUser(t, e.db, users.RoleProvider)
	sub, _ := e.pendingCheckout(t, u)

	ev := invoiceEvent("evt_cycle2", billing.EventInvoicePaymentSucceeded, "in_cycle2")
	ev.Invoice.PaymentIntentID = "pi_2"
	out, err := e.proc.Process(context.Background(), ev)
	require.NoError(t, err)
	assert.Equal(t, ResultProcessed, out.Result)

	var inv billing.Invoice
	require.NoError(t, e.db.Where("external_ref = ?", "in_cycle2").First(&inv).Error)
	assert.Equal(t, billing.InvoicePaid, inv.Status)
	require.NotNil(t, inv.SubscriptionID)
	assert.Equal(t, sub.ID, *inv.SubscriptionID)
}

func TestInvoiceFailed(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u := testutil.CreateUser(t, e.db, users.RoleProvider)
	sub, inv := e.pendingCheckout(t, u)

	retry := eventTime.Add(72 * time.Hour)
	ev := invoiceEvent("evt_fail_1", billing.EventInvoicePaymentFailed, "in_1")
	ev.Invoice.NextPaymentAttempt = &retry
	ev.Invoice.FailureReason = "Your card was declined."

	out, err := e.proc.Process(ctx, ev)
	require.NoError(t, err)
	assert.Equal(t, ResultProcessed, out.Result)

	var stored billing.Invoice
	require.NoError(t, e.db.First(&stored, inv.ID).Error)
	assert.Equal(t, billing.InvoiceOpen, stored.Status, "gateway still retrying")

	final := invoiceEvent("evt_fail_2", billing.EventInvoicePaymentFailed, "in_1")
	final.Invoice.FailureReason = "Your card was declined."
	_, err = e.proc.Process(ctx, final)
	require.NoError(t, err)

	require.NoError(t, e.db.First(&stored, inv.ID).Error)
	assert.Equal(t, billing.InvoiceUncollectible, stored.Status)
	assert.Equal(t, "Your card was declined.", stored.FailureReason)

	var s billing.Subscription
	require.NoError(t, e.db.First(&s, sub.ID).Error)
	assert.Equal(t, billing.PaymentFailed, s.PaymentStatus)

	require.Len(t, e.notes.msgs, 2)
	assert.Equal(t, notify.KindPaymentFailed, e.notes.msgs[1].Kind)
	assert.Equal(t, "Your card was declined.", e.notes.msgs[1].Data["reason"])
	assert.Equal(t, u.Email, e.notes.msgs[1].To)
}

func subscriptionEvent(id string, kind billing.EventKind, p billing.SubscriptionPayload) billing.Event {
	return billing.Event{ID: id, Type: string(kind), Kind: kind, OccurredAt: eventTime, Subscription: &p}
}

func TestSubscriptionDeleted_CancelsOnce(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u := testutil.CreateUser(t, e.db, users.RoleProvider)
	sub, _ := e.pendingCheckout(t, u)
	require.NoError(t, e.db.Model(&sub).Update("status", billing.StatusActive).Error)

	payload := billing.SubscriptionPayload{ExternalID: "sub_1", Status: "canceled"}
	out, err := e.proc.Process(ctx, subscriptionEvent("evt_del_1", billing.EventSubscriptionDeleted, payload))
	require.NoError(t, err)
	assert.Equal(t, "subscription cancelled", out.Message)

	out, err = e.proc.Process(ctx, subscriptionEvent("evt_del_2", billing.EventSubscriptionDeleted, payload))
	require.NoError(t, err)
	assert.Equal(t, "subscription already cancelled", out.Message)

	var s billing.Subscription
	require.NoError(t, e.db.First(&s, sub.ID).Error)
	assert.Equal(t, billing.StatusCancelled, s.Status)
	assert.False(t, s.AutoRenew)

	var n int64
	require.NoError(t, e.db.Model(&audit.Entry{}).
		Where("subject_id = ? AND action = ?", sub.ID, "subscription.gateway_deleted").
		Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestSubscriptionDeleted_UnknownIsWarning(t *testing.T) {
	e := newEnv(t)
	out, err := e.proc.Process(context.Background(), subscriptionEvent("evt_del_x", billing.EventSubscriptionDeleted,
		billing.SubscriptionPayload{ExternalID: "sub_nope"}))
	require.NoError(t, err)
	assert.Equal(t, ResultWarning, out.Result)
}

func TestSubscriptionCreated_MirrorsGatewayPeriodAndSupersedes(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u := testutil.CreateCustomer(t, e.db, users.RoleProvider, "cus_1")
	testutil.AddCard(t, e.db, u.ID)

	old := billing.Subscription{
		UserID: u.ID, PlanType: plans.Basic, Status: billing.StatusActive,
		Amount: decimal.RequireFromString("99.99"), Currency: "USD", BillingCycle: plans.Monthly,
		StartDate: eventTime, EndDate: eventTime.AddDate(0, 1, 0), NextBillingDate: eventTime.AddDate(0, 1, 0),
		PaymentStatus: billing.PaymentCompleted, MaxDestinations: 5, MaxPromotions: 2,
	}
	require.NoError(t, e.db.Create(&old).Error)

	start := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	payload := billing.SubscriptionPayload{
		ExternalID:  "sub_new",
		CustomerID:  "cus_1",
		Status:      "active",
		PeriodStart: start,
		PeriodEnd:   end,
		Metadata:    map[string]string{"plan_type": "enterprise", "billing_cycle": "yearly"},
	}
	out, err := e.proc.Process(ctx, subscriptionEvent("evt_c1", billing.EventSubscriptionCreated, payload))
	require.NoError(t, err)
	assert.Equal(t, "subscription created", out.Message)

	mirror, err := billing.FindByExternalID(e.db, "sub_new")
	require.NoError(t, err)
	assert.Equal(t, u.ID, mirror.UserID)
	assert.Equal(t, plans.Enterprise, mirror.PlanType)
	assert.Equal(t, billing.StatusActive, mirror.Status)
	assert.True(t, start.Equal(mirror.StartDate))
	assert.True(t, end.Equal(mirror.EndDate))
	assert.Equal(t, plans.Unlimited, mirror.MaxDestinations)
	assert.Equal(t, "5999.99", mirror.Amount.StringFixed(2))

	var prev billing.Subscription
	require.NoError(t, e.db.First(&prev, old.ID).Error)
	assert.Equal(t, billing.StatusCancelled, prev.Status)

	// Same gateway subscription again: updated in place, no second row.
	payload.Status = "past_due"
	_, err = e.proc.Process(ctx, subscriptionEvent("evt_c2", billing.EventSubscriptionUpdated, payload))
	require.NoError(t, err)
	var n int64
	require.NoError(t, e.db.Model(&billing.Subscription{}).Where("external_id = ?", "sub_new").Count(&n).Error)
	assert.Equal(t, int64(1), n)
	mirror, err = billing.FindByExternalID(e.db, "sub_new")
	require.NoError(t, err)
	assert.Equal(t, billing.StatusPending, mirror.Status)
}

func TestSubscriptionCreated_WithoutUserIsWarning(t *testing.T) {
	e := newEnv(t)
	out, err := e.proc.Process(context.Background(), subscriptionEvent("evt_c3", billing.EventSubscriptionCreated,
		billing.SubscriptionPayload{ExternalID: "sub_orphan", CustomerID: "cus_unknown", Status: "active"}))
	require.NoError(t, err)
	assert.Equal(t, ResultWarning, out.Result)
}

func TestSubscriptionUpdated_UnknownIsWarning(t *testing.T) {
	e := newEnv(t)
	out, err := e.proc.Process(context.Background(), subscriptionEvent("evt_u1", billing.EventSubscriptionUpdated,
		billing.SubscriptionPayload{ExternalID: "sub_nope", Status: "active"}))
	require.NoError(t, err)
	assert.Equal(t, ResultWarning, out.Result)
}

func TestPaymentMethodAttachAndDetach(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u := testutil.CreateCustomer(t, e.db, users.RoleProvider, "cus_pm")

	attach := billing.Event{
		ID: "evt_pm_1", Type: string(billing.EventPaymentMethodAttached), Kind: billing.EventPaymentMethodAttached,
		PaymentMethod: &billing.PaymentMethodPayload{ExternalID: "pm_9", CustomerID: "cus_pm", Type: "card", Last4: "4242", Brand: "visa"},
	}
	out, err := e.proc.Process(ctx, attach)
	require.NoError(t, err)
	assert.Equal(t, ResultProcessed, out.Result)

	var pm billing.PaymentMethod
	require.NoError(t, e.db.Where("external_ref = ?", "pm_9").First(&pm).Error)
	assert.Equal(t, u.ID, pm.UserID)
	assert.True(t, pm.IsDefault)

	detach := billing.Event{
		ID: "evt_pm_2", Type: string(billing.EventPaymentMethodDetached), Kind: billing.EventPaymentMethodDetached,
		PaymentMethod: &billing.PaymentMethodPayload{ExternalID: "pm_9"},
	}
	out, err = e.proc.Process(ctx, detach)
	require.NoError(t, err)
	assert.Equal(t, ResultProcessed, out.Result)

	var live int64
	require.NoError(t, e.db.Model(&billing.PaymentMethod{}).Where("external_ref = ?", "pm_9").Count(&live).Error)
	assert.Zero(t, live)

	detach.ID = "evt_pm_3"
	out, err = e.proc.Process(ctx, detach)
	require.NoError(t, err)
	assert.Equal(t, ResultWarning, out.Result)
}

func TestPaymentMethodAttached_UnknownCustomerIsWarning(t *testing.T) {
	e := newEnv(t)
	out, err := e.proc.Process(context.Background(), billing.Event{
		ID: "evt_pm_x", Type: string(billing.EventPaymentMethodAttached), Kind: billing.EventPaymentMethodAttached,
		PaymentMethod: &billing.PaymentMethodPayload{ExternalID: "pm_x", CustomerID: "cus_ghost"},
	})
	require.NoError(t, err)
	assert.Equal(t, ResultWarning, out.Result)
}

func TestCheckoutCompleted_LinksInvoice(t *testing.T) {
	e := newEnv(t)
	u := testutil.CreateUser(t, e.db, users.RoleProvider)
	inv := billing.Invoice{UserID: u.ID, SessionID: str("cs_1"), Amount: decimal.RequireFromString("99.99"), Currency: "USD", Status: billing.InvoiceOpen}
	require.NoError(t, e.db.Create(&inv).Error)

	out, err := e.proc.Process(context.Background(), billing.Event{
		ID: "evt_cs_1", Type: string(billing.EventCheckoutSessionCompleted), Kind: billing.EventCheckoutSessionCompleted,
		Checkout: &billing.CheckoutPayload{SessionID: "cs_1", CustomerID: "cus_new", InvoiceExternalID: "in_first"},
	})
	require.NoError(t, err)
	assert.Equal(t, ResultProcessed, out.Result)

	located, err := billing.LocateInvoice(e.db, "in_first", "", "")
	require.NoError(t, err)
	assert.Equal(t, inv.ID, located.ID)

	stored, err := users.FindByID(e.db, u.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.StripeCustomerID)
	assert.Equal(t, "cus_new", *stored.StripeCustomerID)
}

func TestUnknownEventIsIgnored(t *testing.T) {
	e := newEnv(t)
	out, err := e.proc.Process(context.Background(), billing.Event{ID: "evt_z", Type: "charge.refunded"})
	require.NoError(t, err)
	assert.Equal(t, ResultIgnored, out.Result)

	var n int64
	require.NoError(t, e.db.Model(&billing.WebhookEvent{}).Count(&n).Error)
	assert.Zero(t, n)
}
