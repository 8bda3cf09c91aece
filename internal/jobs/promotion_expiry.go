package jobs

import (
	"context"
	"time"

	"gorm.io/gorm"

	"tourism-app/internal/domain/promotions"
	"tourism-app/internal/infra/logger"
	"tourism-app/internal/infra/metrics"
	"tourism-app/internal/infra/notify"
)

// PromotionExpiry deactivates ended promotions and tells their owners.
type PromotionExpiry struct {
	db       *gorm.DB
	notifier notify.Notifier
	now      func() time.Time
}

func NewPromotionExpiry(db *gorm.DB, notifier notify.Notifier) *PromotionExpiry {
	return &PromotionExpiry{db: db, notifier: notifier, now: time.Now}
}

func (j *PromotionExpiry) WithClock(now func() time.Time) *PromotionExpiry {
	j.now = now
	return j
}

// Run sweeps once. A dry run reports what would change and sends nothing.
func (j *PromotionExpiry) Run(ctx context.Context, dryRun bool) (promotions.ExpiryReport, error) {
	report, err := promotions.ExpireDue(ctx, j.db, j.now().UTC(), dryRun)
	if err != nil {
		return report, err
	}
	if dryRun || report.Deactivated == 0 {
		return report, nil
	}
	metrics.PromotionsExpired.Add(float64(report.Deactivated))

	ids := make([]uint, 0, len(report.Items))
	for _, it := range report.Items {
		ids = append(ids, it.ProviderID)
	}
	owners, err := recipients(ctx, j.db, uniqueIDs(ids))
	if err != nil {
		// The deactivation is committed; only the notices are lost.
		logger.Error("load promotion owners failed", "error", err)
		return report, nil
	}
	for _, it := range report.Items {
		owner, ok := owners[it.ProviderID]
		if !ok {
			continue
		}
		j.notifier.Notify(notify.Message{
			Kind:   notify.KindPromotionExpired,
			UserID: owner.ID,
			To:     owner.Email,
			Name:   owner.FullName(),
			Data: map[string]string{
				"title":    it.Title,
				"end_date": it.EndDate.UTC().Format(time.DateOnly),
			},
		})
	}
	return report, nil
}

// Execute adapts Run to the scheduler.
func (j *PromotionExpiry) Execute(ctx context.Context) (int, error) {
	report, err := j.Run(ctx, false)
	return report.Deactivated, err
}
