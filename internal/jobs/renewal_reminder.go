package jobs

import (
	"context"
	"time"

	"gorm.io/gorm"

	"tourism-app/internal/domain/billing"
	"tourism-app/internal/infra/logger"
	"tourism-app/internal/infra/notify"
)

// reminderStride is how often the reminder pass is expected to run. Only
// subscriptions entering the window during the last stride are reminded, so
// a daily pass mails each renewal once.
const reminderStride = 24 * time.Hour

// RenewalReminder mails owners of auto-renewing subscriptions a few days
// before the next charge.
type RenewalReminder struct {
	db       *gorm.DB
	manager  *billing.Manager
	notifier notify.Notifier
	within   time.Duration
	now      func() time.Time
}

func NewRenewalReminder(db *gorm.DB, notifier notify.Notifier, days int) *RenewalReminder {
	if days < 1 {
		days = 1
	}
	return &RenewalReminder{
		db:       db,
		manager:  billing.NewManager(db),
		notifier: notifier,
		within:   time.Duration(days) * 24 * time.Hour,
		now:      time.Now,
	}
}

func (j *RenewalReminder) WithClock(now func() time.Time) *RenewalReminder {
	j.now = now
	j.manager.WithClock(now)
	return j
}

func (j *RenewalReminder) Execute(ctx context.Context) (int, error) {
	due, err := j.manager.DueForReminder(ctx, j.within)
	if err != nil {
		return 0, err
	}
	floor := j.now().UTC().Add(j.within - reminderStride)

	fresh := due[:0]
	ids := make([]uint, 0, len(due))
	for _, sub := range due {
		if !sub.NextBillingDate.After(floor) {
			continue
		}
		fresh = append(fresh, sub)
		ids = append(ids, sub.UserID)
	}
	if len(fresh) == 0 {
		return 0, nil
	}

	owners, err := recipients(ctx, j.db, uniqueIDs(ids))
	if err != nil {
		return 0, err
	}
	sent := 0
	for _, sub := range fresh {
		owner, ok := owners[sub.UserID]
		if !ok {
			logger.Warn("renewal reminder skipped, owner missing", "subscription_id", sub.ID, "user_id", sub.UserID)
			continue
		}
		if j.notifier.Notify(notify.Message{
			Kind:   notify.KindRenewalReminder,
			UserID: owner.ID,
			To:     owner.Email,
			Name:   owner.FullName(),
			Data: map[string]string{
				"plan":      string(sub.PlanType),
				"renews_on": sub.NextBillingDate.UTC().Format(time.DateOnly),
				"amount":    sub.Amount.StringFixed(2),
				"currency":  sub.Currency,
			},
		}) {
			sent++
		}
	}
	return sent, nil
}
