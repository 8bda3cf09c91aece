package stripe

import (
	"fmt"

	"github.com/stripe/stripe-go/v75"
	portalsession "github.com/stripe/stripe-go/v75/billingportal/session"
	checkoutsession "github.com/stripe/stripe-go/v75/checkout/session"
	"github.com/stripe/stripe-go/v75/customer"
	"github.com/stripe/stripe-go/v75/price"
)

type CustomerInput struct {
	UserID uint
	Email  string
	Name   string
	AppEnv string
}

type CheckoutInput struct {
	CustomerID string
	PriceID    string
	UserID     uint
	SuccessURL string
	CancelURL  string
	Metadata   map[string]string
}

type CheckoutSession struct {
	ID  string
	URL string
}

type RecurringPrice struct {
	ID            string
	ProductID     string
	ProductActive bool
	Currency      string
	UnitAmount    int64
	Interval      string
	IntervalCount int64
	Metadata      map[string]string
}

// Gateway is the slice of the Stripe API the handlers call.
type Gateway interface {
	CreateCustomer(in CustomerInput) (string, error)
	CreateCheckoutSession(in CheckoutInput) (*CheckoutSession, error)
	ListRecurringPrices() ([]RecurringPrice, error)
	CreatePortalSession(customerID, returnURL string) (string, error)
}

type StripeGateway struct{}

// NewGateway sets the process-wide API key used by the stripe-go resource
// packages.
func NewGateway(secretKey string) *StripeGateway {
	stripe.Key = secretKey
	return &StripeGateway{}
}

func (StripeGateway) CreateCustomer(in CustomerInput) (string, error) {
	cus, err := customer.New(&stripe.CustomerParams{
		Email: stripe.String(in.Email),
		Name:  stripe.String(in.Name),
		Metadata: map[string]string{
			"user_id": fmt.Sprint(in.UserID),
			"app_env": in.AppEnv,
		},
	})
	if err != nil {
		return "", err
	}
	return cus.ID, nil
}

func (StripeGateway) CreateCheckoutSession(in CheckoutInput) (*CheckoutSession, error) {
	metadata := map[string]string{"user_id": fmt.Sprint(in.UserID)}
	for k, v := range in.Metadata {
		metadata[k] = v
	}

	params := &stripe.CheckoutSessionParams{
		SuccessURL: stripe.String(in.SuccessURL),
		CancelURL:  stripe.String(in.CancelURL),
		Mode:       stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		Customer:   stripe.String(in.CustomerID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(in.PriceID), Quantity: stripe.Int64(1)},
		},
		ClientReferenceID: stripe.String(fmt.Sprint(in.UserID)),
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: metadata,
		},
	}
	params.Metadata = metadata

	s, err := checkoutsession.New(params)
	if err != nil {
		return nil, err
	}
	return &CheckoutSession{ID: s.ID, URL: s.URL}, nil
}

func (StripeGateway) ListRecurringPrices() ([]RecurringPrice, error) {
	params := &stripe.PriceListParams{}
	params.Active = stripe.Bool(true)
	params.Type = stripe.String("recurring")
	params.AddExpand("data.product")

	var out []RecurringPrice
	it := price.List(params)
	for it.Next() {
		p := it.Price()
		if p.Recurring == nil || p.Product == nil {
			continue
		}
		out = append(out, RecurringPrice{
			ID:            p.ID,
			ProductID:     p.Product.ID,
			ProductActive: p.Product.Active,
			Currency:      string(p.Currency),
			UnitAmount:    p.UnitAmount,
			Interval:      string(p.Recurring.Interval),
			IntervalCount: p.Recurring.IntervalCount,
			Metadata:      p.Metadata,
		})
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// CreatePortalSession returns the URL of a hosted billing portal where the
// customer manages cards and invoices.
func (StripeGateway) CreatePortalSession(customerID, returnURL string) (string, error) {
	ps, err := portalsession.New(&stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	})
	if err != nil {
		return "", err
	}
	return ps.URL, nil
}
