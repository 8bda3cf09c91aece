package stripe

import (
	"strings"

	"tourism-app/internal/domain/billing"
	"tourism-app/internal/domain/plans"
)

// MapSubscriptionStatus folds Stripe's subscription statuses onto the local
// lifecycle. Anything awaiting payment is pending.
func MapSubscriptionStatus(s string) billing.SubscriptionStatus {
	switch strings.TrimSpace(s) {
	case "active", "trialing":
		return billing.StatusActive
	case "canceled", "incomplete_expired":
		return billing.StatusCancelled
	default:
		// incomplete, past_due, unpaid, paused
		return billing.StatusPending
	}
}

// CycleFromRecurring maps a recurring price interval onto a billing cycle.
func CycleFromRecurring(interval string, count int64) (plans.BillingCycle, bool) {
	if count == 0 {
		count = 1
	}
	switch {
	case interval == "month" && count == 1:
		return plans.Monthly, true
	case interval == "month" && count == 3:
		return plans.Quarterly, true
	case interval == "year" && count == 1:
		return plans.Yearly, true
	}
	return "", false
}
