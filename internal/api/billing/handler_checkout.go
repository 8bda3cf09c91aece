package billing

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"tourism-app/internal/api/apierr"
	"tourism-app/internal/app/http/middleware"
	"tourism-app/internal/domain/billing"
	"tourism-app/internal/domain/plans"
	"tourism-app/internal/domain/users"
	"tourism-app/internal/infra/logger"
	stripeinfra "tourism-app/internal/infra/stripe"
)

type checkoutRequest struct {
	PlanType     string `json:"plan_type" binding:"required"`
	BillingCycle string `json:"billing_cycle" binding:"required"`
}

// CreateCheckoutSession opens a hosted checkout for a catalog entry and
// records the open invoice the session will settle. The subscription itself
// is created by the webhook once the gateway confirms it.
func (h *Handler) CreateCheckoutSession(c *gin.Context) {
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.BadRequest(c, "plan_type and billing_cycle are required")
		return
	}
	planType, err := plans.ParsePlanType(req.PlanType)
	if err != nil {
		apierr.Write(c, billing.ErrUnknownPlan)
		return
	}
	cycle, err := plans.ParseBillingCycle(req.BillingCycle)
	if err != nil {
		apierr.Write(c, billing.ErrUnknownPlan)
		return
	}

	if h.gateway == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Stripe key not configured"})
		return
	}

	ctx := c.Request.Context()
	db := h.db.WithContext(ctx)
	userID := middleware.Principal(c).UserID

	priceID, err := plans.PriceIDFor(db, planType, cycle)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		apierr.Write(c, billing.ErrPlanNotSynced)
		return
	}
	if err != nil {
		apierr.Write(c, err)
		return
	}

	user, err := users.FindByID(db, userID)
	if err != nil {
		apierr.Write(c, err)
		return
	}
	customerID, err := h.ensureCustomer(db, user)
	if err != nil {
		apierr.Write(c, err)
		return
	}

	session, err := h.gateway.CreateCheckoutSession(stripeinfra.CheckoutInput{
		CustomerID: customerID,
		PriceID:    priceID,
		UserID:     user.ID,
		SuccessURL: h.appURL + "/account",
		CancelURL:  h.appURL + "/account?canceled=1",
		Metadata: map[string]string{
			"plan_type":     string(planType),
			"billing_cycle": string(cycle),
		},
	})
	if err != nil {
		apierr.Write(c, billing.External("failed to create checkout session", err))
		return
	}

	var inv *billing.Invoice
	err = db.Transaction(func(tx *gorm.DB) error {
		var err error
		inv, err = billing.OpenCheckoutInvoice(tx, user.ID, session.ID, planType, cycle)
		return err
	})
	if err != nil {
		apierr.Write(c, err)
		return
	}

	logger.Info("checkout session created", "user_id", user.ID, "plan", planType, "cycle", cycle, "session_id", session.ID)
	c.JSON(http.StatusOK, gin.H{"url": session.URL, "session_id": session.ID, "invoice_id": inv.ID})
}

// ensureCustomer returns the user's gateway customer, creating and storing
// one on first checkout.
func (h *Handler) ensureCustomer(db *gorm.DB, user *users.User) (string, error) {
	if user.StripeCustomerID != nil && *user.StripeCustomerID != "" {
		return *user.StripeCustomerID, nil
	}
	id, err := h.gateway.CreateCustomer(stripeinfra.CustomerInput{
		UserID: user.ID,
		Email:  user.Email,
		Name:   user.FullName(),
		AppEnv: h.appEnv,
	})
	if err != nil {
		return "", billing.External("failed to create Stripe customer", err)
	}
	if err := db.Model(&users.User{}).Where("id = ?", user.ID).Update("stripe_customer_id", id).Error; err != nil {
		return "", err
	}
	user.StripeCustomerID = &id
	return id, nil
}

// CreateBillingPortal hands the customer over to the gateway's hosted
// portal.
func (h *Handler) CreateBillingPortal(c *gin.Context) {
	if h.gateway == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Stripe key not configured"})
		return
	}
	user, err := users.FindByID(h.db.WithContext(c.Request.Context()), middleware.Principal(c).UserID)
	if err != nil {
		apierr.Write(c, err)
		return
	}
	if user.StripeCustomerID == nil || *user.StripeCustomerID == "" {
		apierr.Write(c, billing.ErrNoGatewayCustomer)
		return
	}
	url, err := h.gateway.CreatePortalSession(*user.StripeCustomerID, h.appURL+"/account")
	if err != nil {
		apierr.Write(c, billing.External("could not create billing portal session", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}
