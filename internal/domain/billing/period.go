package billing

import (
	"time"

	"tourism-app/internal/domain/plans"
)

// renewalPeriod returns the period following prevEnd: exactly one cycle
// anchored at the prior end_date. When that period would already be over
// (the subscription lapsed longer than a cycle ago) the period is anchored
// at now instead, so a renewal never buys time that has passed.
//
// An early renewal (the subscription is still running) returns a start in
// the future: start_date then names the renewed period, and the row stays
// active through prevEnd because access only looks at status and end_date.
func renewalPeriod(prevEnd time.Time, cycle plans.BillingCycle, now time.Time) (time.Time, time.Time) {
	end := cycle.Advance(prevEnd, 1)
	if end.After(now) {
		return prevEnd, end
	}
	return now, cycle.Advance(now, 1)
}
