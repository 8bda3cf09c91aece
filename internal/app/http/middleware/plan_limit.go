package middleware

import (
	"github.com/gin-gonic/gin"

	"tourism-app/internal/api/apierr"
	"tourism-app/internal/domain/billing"
	"tourism-app/internal/infra/metrics"
)

// RequireCapacity refuses the request when the caller's plan has no room
// for one more resource of kind. The check reserves nothing.
func RequireCapacity(limits *billing.LimitEvaluator, kind billing.ResourceKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, err := limits.CanCreate(c.Request.Context(), kind, Principal(c).UserID)
		if err != nil {
			apierr.Write(c, err)
			return
		}
		if !ok {
			metrics.PlanLimitRejections.WithLabelValues(string(kind)).Inc()
			apierr.Write(c, billing.ErrPlanLimitReached)
			return
		}
		c.Next()
	}
}
