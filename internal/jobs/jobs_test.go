package jobs_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tourism-app/internal/domain/billing"
	"tourism-app/internal/domain/plans"
	"tourism-app/internal/domain/promotions"
	"tourism-app/internal/domain/users"
	"tourism-app/internal/infra/notify"
	"tourism-app/internal/jobs"
	"tourism-app/internal/testutil"
)

type recorder struct{ msgs []notify.Message }

func (r *recorder) Notify(m notify.Message) bool {
	r.msgs = append(r.msgs, m)
	return true
}

func fixed(t time.Time) func() time.Time { return func() time.Time { return t } }

func TestPromotionExpiry_NotifiesOwners(t *testing.T) {
	db := testutil.NewDB(t)
	owner := testutil.CreateUser(t, db, users.RoleProvider)
	now := time.Date(2025, time.August, 1, 9, 0, 0, 0, time.UTC)
	ended := now.Add(-2 * time.Hour)

	p := promotions.Promotion{
		ProviderID:      owner.ID,
		Title:           "July deal",
		DiscountPercent: decimal.NewFromInt(10),
		StartDate:       now.AddDate(0, -1, 0),
		EndDate:         &ended,
		IsActive:        true,
	}
	require.NoError(t, db.Create(&p).Error)

	notes := &recorder{}
	job := jobs.NewPromotionExpiry(db, notes).WithClock(fixed(now))

	dry, err := job.Run(context.Background(), true)
	require.NoError(t, err)
	assert.True(t, dry.DryRun)
	assert.Equal(t, 1, dry.Deactivated)
	assert.Empty(t, notes.msgs, "dry run sends nothing")

	report, err := job.Run(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Deactivated)

	require.Len(t, notes.msgs, 1)
	msg := notes.msgs[0]
	assert.Equal(t, notify.KindPromotionExpired, msg.Kind)
	assert.Equal(t, owner.Email, msg.To)
	assert.Equal(t, "July deal", msg.Data["title"])
	assert.Equal(t, "2025-08-01", msg.Data["end_date"])

	again, err := job.Execute(context.Background())
	require.NoError(t, err)
	assert.Zero(t, again)
	assert.Len(t, notes.msgs, 1)
}

func TestSubscriptionExpiry(t *testing.T) {
	db := testutil.NewDB(t)
	u := testutil.CreateUser(t, db, users.RoleProvider)
	sub := testutil.Subscribe(t, db, u, plans.Premium)

	job := jobs.NewSubscriptionExpiry(db).WithClock(fixed(sub.EndDate.Add(-time.Minute)))
	n, err := job.Execute(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n, "not yet lapsed")

	job.WithClock(fixed(sub.EndDate.Add(time.Minute)))
	n, err = job.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	var got billing.Subscription
	require.NoError(t, db.First(&got, sub.ID).Error)
	assert.Equal(t, billing.StatusExpired, got.Status)

	n, err = job.Execute(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRenewalReminder_OncePerRenewal(t *testing.T) {
	db := testutil.NewDB(t)

	due := testutil.CreateUser(t, db, users.RoleProvider)
	dueSub := testutil.Subscribe(t, db, due, plans.Basic)
	now := dueSub.NextBillingDate.Add(-7*24*time.Hour + time.Hour)

	// Entered the window days ago; already reminded by an earlier pass.
	earlier := testutil.CreateUser(t, db, users.RoleProvider)
	earlierSub := testutil.Subscribe(t, db, earlier, plans.Basic)
	require.NoError(t, db.Model(&billing.Subscription{}).Where("id = ?", earlierSub.ID).
		Update("next_billing_date", now.Add(2*24*time.Hour)).Error)

	manual := testutil.CreateUser(t, db, users.RoleProvider)
	manualSub := testutil.Subscribe(t, db, manual, plans.Basic)
	require.NoError(t, db.Model(&billing.Subscription{}).Where("id = ?", manualSub.ID).
		Update("auto_renew", false).Error)

	notes := &recorder{}
	job := jobs.NewRenewalReminder(db, notes, 7).WithClock(fixed(now))

	n, err := job.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, notes.msgs, 1)

	msg := notes.msgs[0]
	assert.Equal(t, notify.KindRenewalReminder, msg.Kind)
	assert.Equal(t, due.Email, msg.To)
	assert.Equal(t, "basic", msg.Data["plan"])
	assert.Equal(t, "99.99", msg.Data["amount"])
	assert.Equal(t, dueSub.NextBillingDate.UTC().Format(time.DateOnly), msg.Data["renews_on"])

	// The next daily pass finds the same subscription deeper in the window.
	job.WithClock(fixed(now.Add(24 * time.Hour)))
	n, err = job.Execute(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Len(t, notes.msgs, 1)
}
