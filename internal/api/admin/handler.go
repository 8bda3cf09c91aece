package admin

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"tourism-app/internal/api/apierr"
	"tourism-app/internal/domain/billing"
	"tourism-app/internal/domain/plans"
	"tourism-app/internal/domain/users"
	"tourism-app/internal/jobs"
)

type Handler struct {
	db      *gorm.DB
	manager *billing.Manager
	expiry  *jobs.PromotionExpiry
	now     func() time.Time
}

func NewHandler(db *gorm.DB, manager *billing.Manager, expiry *jobs.PromotionExpiry) *Handler {
	return &Handler{db: db, manager: manager, expiry: expiry, now: time.Now}
}

type AdminUser struct {
	ID           uint                `json:"id"`
	Name         string              `json:"name"`
	Lastname     string              `json:"lastname"`
	Tel          string              `json:"tel"`
	Email        string              `json:"email"`
	Role         string              `json:"role"`
	HasCustomer  bool                `json:"has_gateway_customer"`
	PlanType     *plans.PlanType     `json:"plan_type,omitempty"`
	BillingCycle *plans.BillingCycle `json:"billing_cycle,omitempty"`
	ActiveUntil  *time.Time          `json:"active_until,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
}

type AdminStats struct {
	TotalUsers          int64            `json:"total_users"`
	Providers           int64            `json:"providers"`
	ActiveSubscriptions int64            `json:"active_subscriptions"`
	TotalRevenue        decimal.Decimal  `json:"total_revenue"`
	RecentRevenue       decimal.Decimal  `json:"recent_revenue"`
	Currency            string           `json:"currency"`
	SubscriptionsByPlan map[string]int64 `json:"subscriptions_per_plan"`
}

// ListUsers returns every account with its active plan, if any.
// ?role narrows the list.
func (h *Handler) ListUsers(c *gin.Context) {
	db := h.db.WithContext(c.Request.Context())

	q := db.Order("id ASC")
	if role := c.Query("role"); role != "" {
		q = q.Where("role = ?", role)
	}
	var list []users.User
	if err := q.Find(&list).Error; err != nil {
		apierr.Write(c, err)
		return
	}

	ids := make([]uint, 0, len(list))
	for _, u := range list {
		ids = append(ids, u.ID)
	}
	active := map[uint]billing.Subscription{}
	if len(ids) > 0 {
		var subs []billing.Subscription
		if err := db.Where("user_id IN ? AND status = ?", ids, billing.StatusActive).Find(&subs).Error; err != nil {
			apierr.Write(c, err)
			return
		}
		for _, s := range subs {
			active[s.UserID] = s
		}
	}

	out := make([]AdminUser, 0, len(list))
	for _, u := range list {
		au := AdminUser{
			ID:          u.ID,
			Name:        u.Name,
			Lastname:    u.Lastname,
			Tel:         u.Tel,
			Email:       u.Email,
			Role:        u.Role,
			HasCustomer: u.StripeCustomerID != nil,
			CreatedAt:   u.CreatedAt,
		}
		if s, ok := active[u.ID]; ok {
			pt, bc, end := s.PlanType, s.BillingCycle, s.EndDate
			au.PlanType, au.BillingCycle, au.ActiveUntil = &pt, &bc, &end
		}
		out = append(out, au)
	}
	c.JSON(http.StatusOK, gin.H{"users": out})
}

func (h *Handler) ListSubscriptions(c *gin.Context) {
	q := h.db.WithContext(c.Request.Context()).Order("created_at DESC, id DESC")
	if status := c.Query("status"); status != "" {
		q = q.Where("status = ?", status)
	}
	subs := []billing.Subscription{}
	if err := q.Find(&subs).Error; err != nil {
		apierr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"subscriptions": subs})
}

func (h *Handler) ListInvoices(c *gin.Context) {
	f := billing.InvoiceFilter{
		Status: billing.InvoiceStatus(c.Query("status")),
		Limit:  200,
	}
	if uid, err := strconv.ParseUint(c.Query("user_id"), 10, 64); err == nil {
		f.UserID = uint(uid)
	}
	invoices, err := billing.ListInvoices(h.db.WithContext(c.Request.Context()), f)
	if err != nil {
		apierr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"invoices": invoices})
}

func (h *Handler) GetStats(c *gin.Context) {
	db := h.db.WithContext(c.Request.Context())
	stats := AdminStats{Currency: plans.Currency, SubscriptionsByPlan: map[string]int64{}}

	if err := db.Model(&users.User{}).Count(&stats.TotalUsers).Error; err != nil {
		apierr.Write(c, err)
		return
	}
	if err := db.Model(&users.User{}).Where("role = ?", users.RoleProvider).Count(&stats.Providers).Error; err != nil {
		apierr.Write(c, err)
		return
	}
	if err := db.Model(&billing.Subscription{}).Where("status = ?", billing.StatusActive).Count(&stats.ActiveSubscriptions).Error; err != nil {
		apierr.Write(c, err)
		return
	}

	revenue := func(since *time.Time) (decimal.Decimal, error) {
		q := db.Model(&billing.Invoice{}).Where("status = ?", billing.InvoicePaid)
		if since != nil {
			q = q.Where("paid_at >= ?", since.UTC())
		}
		var sum decimal.Decimal
		err := q.Select("COALESCE(SUM(amount), 0)").Row().Scan(&sum)
		return sum, err
	}
	var err error
	if stats.TotalRevenue, err = revenue(nil); err != nil {
		apierr.Write(c, err)
		return
	}
	monthAgo := h.now().AddDate(0, 0, -30)
	if stats.RecentRevenue, err = revenue(&monthAgo); err != nil {
		apierr.Write(c, err)
		return
	}

	var counts []struct {
		PlanType string
		Count    int64
	}
	if err := db.Model(&billing.Subscription{}).
		Select("plan_type, COUNT(*) AS count").
		Where("status = ?", billing.StatusActive).
		Group("plan_type").
		Scan(&counts).Error; err != nil {
		apierr.Write(c, err)
		return
	}
	for _, pc := range counts {
		stats.SubscriptionsByPlan[pc.PlanType] = pc.Count
	}

	c.JSON(http.StatusOK, stats)
}

func (h *Handler) GetUserDetails(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid id"})
		return
	}
	ctx := c.Request.Context()
	db := h.db.WithContext(ctx)

	user, err := users.FindByID(db, uint(id))
	if err != nil {
		apierr.Write(c, err)
		return
	}

	subs := []billing.Subscription{}
	if err := db.Where("user_id = ?", user.ID).Order("created_at DESC, id DESC").Find(&subs).Error; err != nil {
		apierr.Write(c, err)
		return
	}
	invoices, err := billing.ListInvoices(db, billing.InvoiceFilter{UserID: user.ID})
	if err != nil {
		apierr.Write(c, err)
		return
	}
	methods, err := h.manager.ListPaymentMethods(ctx, user.ID)
	if err != nil {
		apierr.Write(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":            user,
		"subscriptions":   subs,
		"invoices":        invoices,
		"payment_methods": methods,
	})
}

// ExpirePromotions runs the promotion sweep on demand. ?dry_run=1 only
// reports.
func (h *Handler) ExpirePromotions(c *gin.Context) {
	dryRun, _ := strconv.ParseBool(c.DefaultQuery("dry_run", "false"))
	report, err := h.expiry.Run(c.Request.Context(), dryRun)
	if err != nil {
		apierr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
