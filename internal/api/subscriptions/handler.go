package subscriptions

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"tourism-app/internal/api/apierr"
	"tourism-app/internal/app/http/middleware"
	"tourism-app/internal/domain/billing"
	"tourism-app/internal/domain/plans"
	"tourism-app/internal/infra/metrics"
)

type Handler struct {
	manager *billing.Manager
	limits  *billing.LimitEvaluator
}

func NewHandler(manager *billing.Manager, limits *billing.LimitEvaluator) *Handler {
	return &Handler{manager: manager, limits: limits}
}

type subscribeRequest struct {
	PlanType      string  `json:"plan_type" binding:"required"`
	BillingCycle  string  `json:"billing_cycle" binding:"required"`
	AutoRenew     *bool   `json:"auto_renew"`
	PaymentMethod string  `json:"payment_method"`
	TransactionID *string `json:"transaction_id"`
}

type renewRequest struct {
	TransactionID *string `json:"transaction_id"`
}

func (h *Handler) MySubscription(c *gin.Context) {
	p := middleware.Principal(c)
	sub, err := h.manager.Latest(c.Request.Context(), p.UserID)
	if errors.Is(err, billing.ErrSubscriptionNotFound) {
		c.JSON(http.StatusOK, gin.H{"subscription": nil})
		return
	}
	if err != nil {
		apierr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"subscription": sub})
}

func (h *Handler) Subscribe(c *gin.Context) {
	var req subscribeRequest
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
	autoRenew := true
	if req.AutoRenew != nil {
		autoRenew = *req.AutoRenew
	}

	sub, err := h.manager.Subscribe(c.Request.Context(), middleware.Principal(c), billing.SubscribeInput{
		PlanType:      planType,
		BillingCycle:  cycle,
		AutoRenew:     autoRenew,
		PaymentMethod: req.PaymentMethod,
		TransactionID: req.TransactionID,
	})
	if err != nil {
		apierr.Write(c, err)
		return
	}
	metrics.SubscriptionTransitions.WithLabelValues("subscribe").Inc()
	c.JSON(http.StatusCreated, gin.H{"message": "Subscription activated", "subscription": sub})
}

func (h *Handler) Cancel(c *gin.Context) {
	sub, err := h.manager.Cancel(c.Request.Context(), middleware.Principal(c))
	if err != nil {
		apierr.Write(c, err)
		return
	}
	metrics.SubscriptionTransitions.WithLabelValues("cancel").Inc()
	c.JSON(http.StatusOK, gin.H{"message": "Subscription cancelled", "subscription": sub})
}

func (h *Handler) Renew(c *gin.Context) {
	var req renewRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			apierr.BadRequest(c, "Invalid request body")
			return
		}
	}
	sub, err := h.manager.Renew(c.Request.Context(), middleware.Principal(c), req.TransactionID)
	if err != nil {
		apierr.Write(c, err)
		return
	}
	metrics.SubscriptionTransitions.WithLabelValues("renew").Inc()
	c.JSON(http.StatusOK, gin.H{"message": "Subscription renewed", "subscription": sub})
}

func (h *Handler) Limits(c *gin.Context) {
	usage, err := h.limits.Usage(c.Request.Context(), middleware.Principal(c).UserID)
	if err != nil {
		apierr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, usage)
}
