package billing

import (
	"time"

	"github.com/shopspring/decimal"
)

// EventKind is the closed set of gateway notifications the platform reacts to.
type EventKind string

const (
	EventUnknown                  EventKind = ""
	EventInvoicePaymentSucceeded  EventKind = "invoice.payment_succeeded"
	EventInvoicePaymentFailed     EventKind = "invoice.payment_failed"
	EventSubscriptionCreated      EventKind = "customer.subscription.created"
	EventSubscriptionUpdated      EventKind = "customer.subscription.updated"
	EventSubscriptionDeleted      EventKind = "customer.subscription.deleted"
	EventPaymentMethodAttached    EventKind = "payment_method.attached"
	EventPaymentMethodDetached    EventKind = "payment_method.detached"
	EventCheckoutSessionCompleted EventKind = "checkout.session.completed"
)

var knownEvents = map[EventKind]struct{}{
	EventInvoicePaymentSucceeded:  {},
	EventInvoicePaymentFailed:     {},
	EventSubscriptionCreated:      {},
	EventSubscriptionUpdated:      {},
	EventSubscriptionDeleted:      {},
	EventPaymentMethodAttached:    {},
	EventPaymentMethodDetached:    {},
	EventCheckoutSessionCompleted: {},
}

func ParseEventKind(s string) EventKind {
	k := EventKind(s)
	if _, ok := knownEvents[k]; ok {
		return k
	}
	return EventUnknown
}

// Event is a verified gateway notification reduced to the fields the
// handlers need. Exactly one payload is set for a known kind.
type Event struct {
	ID         string
	Type       string
	Kind       EventKind
	OccurredAt time.Time

	Invoice       *InvoicePayload
	Subscription  *SubscriptionPayload
	PaymentMethod *PaymentMethodPayload
	Checkout      *CheckoutPayload
}

type InvoicePayload struct {
	ExternalID             string
	PaymentIntentID        string
	SubscriptionExternalID string
	CustomerID             string
	AmountPaid             decimal.Decimal
	AmountDue              decimal.Decimal
	Currency               string
	PaidAt                 *time.Time
	// NextPaymentAttempt is nil when the gateway gave up retrying.
	NextPaymentAttempt *time.Time
	FailureReason      string
	Metadata           map[string]string
}

type SubscriptionPayload struct {
	ExternalID        string
	CustomerID        string
	Status            string
	PriceID           string
	PeriodStart       time.Time
	PeriodEnd         time.Time
	CancelAtPeriodEnd bool
	Metadata          map[string]string
}

type PaymentMethodPayload struct {
	ExternalID string
	CustomerID string
	Type       string
	Last4      string
	Brand      string
	ExpMonth   int64
	ExpYear    int64
	Country    string
}

type CheckoutPayload struct {
	SessionID              string
	CustomerID             string
	SubscriptionExternalID string
	InvoiceExternalID      string
	ClientReferenceID      string
	Metadata               map[string]string
}
