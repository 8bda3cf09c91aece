package middleware

import (
	"errors"
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"

	"tourism-app/internal/domain/billing"
	"tourism-app/internal/infra/logger"
)

const subscriptionKey = "subscription"

// RequireActiveSubscription lets the request through only when the caller
// holds an active subscription whose plan includes every listed feature.
// The subscription is left on the context for the handler.
func RequireActiveSubscription(mgr *billing.Manager, features ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		sub, err := mgr.Current(c.Request.Context(), Principal(c).UserID)
		if errors.Is(err, billing.ErrSubscriptionNotFound) {
			c.AbortWithStatusJSON(http.StatusPaymentRequired, gin.H{
				"error": "An active subscription is required",
			})
			return
		}
		if err != nil {
			logger.Error("subscription lookup failed", "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}

		have := sub.FeatureList()
		for _, f := range features {
			if !slices.Contains(have, f) {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
					"error":   "Your plan does not include this feature",
					"feature": f,
				})
				return
			}
		}

		c.Set(subscriptionKey, sub)
		c.Next()
	}
}
