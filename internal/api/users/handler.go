package users

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"tourism-app/internal/api/apierr"
	"tourism-app/internal/app/http/middleware"
	"tourism-app/internal/domain/billing"
	"tourism-app/internal/domain/users"
)

type Handler struct {
	db      *gorm.DB
	manager *billing.Manager
	limits  *billing.LimitEvaluator
	now     func() time.Time
}

func NewHandler(db *gorm.DB, manager *billing.Manager, limits *billing.LimitEvaluator) *Handler {
	return &Handler{db: db, manager: manager, limits: limits, now: time.Now}
}

// GetCurrentUser returns the caller's profile, latest subscription and,
// for providers, plan usage.
func (h *Handler) GetCurrentUser(c *gin.Context) {
	ctx := c.Request.Context()
	p := middleware.Principal(c)

	user, err := users.FindByID(h.db.WithContext(ctx), p.UserID)
	if err != nil {
		apierr.Write(c, err)
		return
	}

	sub, err := h.manager.Latest(ctx, user.ID)
	if err != nil && !errors.Is(err, billing.ErrSubscriptionNotFound) {
		apierr.Write(c, err)
		return
	}

	resp := MeResponse{
		User: BuildUserDTO(*user),
		Billing: BillingDTO{
			Subscription:       BuildSubscriptionDTO(h.now(), sub),
			HasGatewayCustomer: user.StripeCustomerID != nil,
		},
		Access: AccessDTO{Capabilities: p.Caps.List()},
	}

	if p.IsProvider() {
		usage, err := h.limits.Usage(ctx, user.ID)
		if err != nil {
			apierr.Write(c, err)
			return
		}
		resp.Access.Usage = BuildUsageDTOs(usage)
	}

	c.JSON(http.StatusOK, resp)
}
