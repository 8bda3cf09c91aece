package plans

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"tourism-app/internal/api/apierr"
	"tourism-app/internal/domain/billing"
	"tourism-app/internal/domain/plans"
	"tourism-app/internal/infra/logger"
	stripeinfra "tourism-app/internal/infra/stripe"
)

type Handler struct {
	db        *gorm.DB
	gateway   stripeinfra.Gateway
	productID string
}

// NewHandler takes an optional product id; when set, only prices of that
// product are synced.
func NewHandler(db *gorm.DB, gateway stripeinfra.Gateway, productID string) *Handler {
	return &Handler{db: db, gateway: gateway, productID: productID}
}

type SyncReport struct {
	Synced  int      `json:"synced"`
	Created int      `json:"created"`
	Updated int      `json:"updated"`
	Skipped int      `json:"skipped"`
	Notes   []string `json:"notes,omitempty"`
}

// SyncPlansFromStripe maps active recurring Stripe prices onto catalog
// entries. A price is used when its metadata names a plan ("plan_type",
// "plan" or "tier"), its interval matches a billing cycle and its amount
// equals the catalog price.
func (h *Handler) SyncPlansFromStripe(c *gin.Context) {
	if h.gateway == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Stripe key not configured"})
		return
	}

	prices, err := h.gateway.ListRecurringPrices()
	if err != nil {
		apierr.Write(c, billing.External("failed to fetch Stripe prices", err))
		return
	}

	report := SyncReport{}
	skip := func(id, why string) {
		report.Skipped++
		report.Notes = append(report.Notes, id+": "+why)
	}

	err = h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		for _, p := range prices {
			if !p.ProductActive {
				skip(p.ID, "product inactive")
				continue
			}
			if h.productID != "" && p.ProductID != h.productID {
				skip(p.ID, "other product")
				continue
			}
			if !strings.EqualFold(p.Currency, plans.Currency) {
				skip(p.ID, "currency "+p.Currency)
				continue
			}
			if p.Metadata["visible"] == "false" {
				skip(p.ID, "hidden")
				continue
			}

			planType, err := plans.ParsePlanType(planKey(p.Metadata))
			if err != nil {
				skip(p.ID, "no plan metadata")
				continue
			}
			cycle, ok := stripeinfra.CycleFromRecurring(p.Interval, p.IntervalCount)
			if !ok {
				skip(p.ID, "unsupported interval")
				continue
			}
			want, _ := plans.Price(planType, cycle)
			if got := decimal.New(p.UnitAmount, -2); !got.Equal(want) {
				skip(p.ID, "amount "+got.StringFixed(2)+" differs from catalog "+want.StringFixed(2))
				continue
			}

			created, err := plans.SaveStripePrice(tx, p.ID, planType, cycle)
			if err != nil {
				return err
			}
			if created {
				report.Created++
			} else {
				report.Updated++
			}
			report.Synced++
		}
		return nil
	})
	if err != nil {
		apierr.Write(c, err)
		return
	}

	logger.Info("stripe prices synced", "synced", report.Synced, "skipped", report.Skipped)
	c.JSON(http.StatusOK, report)
}

func planKey(md map[string]string) string {
	for _, k := range []string{"plan_type", "plan", "tier"} {
		if v := md[k]; v != "" {
			return v
		}
	}
	return ""
}

type planView struct {
	plans.Plan
	// StripePrices holds the synced gateway price per cycle, if any.
	StripePrices map[plans.BillingCycle]string `json:"stripe_prices,omitempty"`
}

// ListPlans serves the public catalog.
func (h *Handler) ListPlans(c *gin.Context) {
	var rows []plans.StripePrice
	if err := h.db.WithContext(c.Request.Context()).Where("active = ?", true).Find(&rows).Error; err != nil {
		apierr.Write(c, err)
		return
	}

	out := make([]planView, 0, len(plans.PlanTypes))
	for _, p := range plans.All() {
		v := planView{Plan: p}
		for _, r := range rows {
			if r.PlanType != p.Type {
				continue
			}
			if v.StripePrices == nil {
				v.StripePrices = map[plans.BillingCycle]string{}
			}
			v.StripePrices[r.BillingCycle] = r.StripePriceID
		}
		out = append(out, v)
	}
	c.JSON(http.StatusOK, gin.H{"currency": plans.Currency, "plans": out})
}
