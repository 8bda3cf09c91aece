package jobs

import (
	"context"
	"time"

	"gorm.io/gorm"

	"tourism-app/internal/domain/billing"
	"tourism-app/internal/infra/logger"
	"tourism-app/internal/infra/metrics"
)

// SubscriptionExpiry marks lapsed active subscriptions expired.
type SubscriptionExpiry struct {
	manager *billing.Manager
}

func NewSubscriptionExpiry(db *gorm.DB) *SubscriptionExpiry {
	return &SubscriptionExpiry{manager: billing.NewManager(db)}
}

func (j *SubscriptionExpiry) WithClock(now func() time.Time) *SubscriptionExpiry {
	j.manager.WithClock(now)
	return j
}

func (j *SubscriptionExpiry) Execute(ctx context.Context) (int, error) {
	expired, err := j.manager.ExpireDue(ctx)
	if err != nil {
		return 0, err
	}
	for _, sub := range expired {
		metrics.SubscriptionTransitions.WithLabelValues("expire").Inc()
		logger.Info("subscription expired", "subscription_id", sub.ID, "user_id", sub.UserID, "end_date", sub.EndDate)
	}
	return len(expired), nil
}
