package billing

import (
	"gorm.io/gorm"

	"tourism-app/internal/domain/billing"
	stripeinfra "tourism-app/internal/infra/stripe"
)

// Handler serves the provider's billing surface: payment methods, checkout,
// invoices and the hosted billing portal. gateway may be nil when Stripe is
// not configured; gateway-backed routes then answer 500.
type Handler struct {
	db      *gorm.DB
	manager *billing.Manager
	gateway stripeinfra.Gateway
	appURL  string
	appEnv  string
}

func NewHandler(db *gorm.DB, manager *billing.Manager, gateway stripeinfra.Gateway, appURL, appEnv string) *Handler {
	if appURL == "" {
		appURL = "http://localhost:5173"
	}
	return &Handler{db: db, manager: manager, gateway: gateway, appURL: appURL, appEnv: appEnv}
}
