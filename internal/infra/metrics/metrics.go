package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry is served on /metrics. A private registry keeps tests free of
// duplicate-registration panics from the global one.
var Registry = prometheus.NewRegistry()

var (
	WebhookEvents = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_events_total",
			Help: "Payment gateway webhook events by type and result",
		},
		[]string{"type", "result"},
	)

	SubscriptionTransitions = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "subscription_transitions_total",
			Help: "Subscription state changes by action",
		},
		[]string{"action"},
	)

	NotificationsSent = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Notifications by kind and outcome (sent, failed, dropped)",
		},
		[]string{"kind", "outcome"},
	)

	PromotionsExpired = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Name: "promotions_expired_total",
			Help: "Promotions deactivated by the expiry sweep",
		},
	)

	JobRuns = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "job_runs_total",
			Help: "Scheduled job runs by job and outcome",
		},
		[]string{"job", "outcome"},
	)

	PlanLimitRejections = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "plan_limit_rejections_total",
			Help: "Resource creations refused by the plan limit check",
		},
		[]string{"resource"},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}
