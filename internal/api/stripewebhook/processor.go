package stripewebhooks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tourism-app/internal/domain/billing"
	"tourism-app/internal/domain/users"
	"tourism-app/internal/infra/logger"
	"tourism-app/internal/infra/metrics"
	"tourism-app/internal/infra/notify"
)

const provider = "stripe"

type Result string

const (
	ResultProcessed Result = "processed"
	ResultIgnored   Result = "ignored"
	ResultWarning   Result = "warning"
	ResultDuplicate Result = "duplicate"
)

type Outcome struct {
	Result  Result `json:"status"`
	Message string `json:"message,omitempty"`
}

func processed(msg string) Outcome { return Outcome{Result: ResultProcessed, Message: msg} }

func warning(format string, args ...any) Outcome {
	return Outcome{Result: ResultWarning, Message: fmt.Sprintf(format, args...)}
}

// Processor applies verified gateway events to local state. Each event is
// claimed in webhook_events inside the same transaction as its effects, so
// a redelivered event id is a no-op and a failed one can be retried.
type Processor struct {
	db       *gorm.DB
	notifier notify.Notifier
	now      func() time.Time
	log      *slog.Logger
}

func NewProcessor(db *gorm.DB, notifier notify.Notifier) *Processor {
	return &Processor{
		db:       db,
		notifier: notifier,
		now:      time.Now,
		log:      logger.WithComponent("stripe.webhook"),
	}
}

func (p *Processor) WithClock(now func() time.Time) *Processor {
	p.now = now
	return p
}

// effects is what a handler wants done: its outcome, plus notifications to
// send once the transaction commits.
type effects struct {
	outcome Outcome
	notes   []notify.Message
}

func (p *Processor) Process(ctx context.Context, ev billing.Event) (Outcome, error) {
	if ev.Kind == billing.EventUnknown {
		metrics.WebhookEvents.WithLabelValues(ev.Type, string(ResultIgnored)).Inc()
		return Outcome{Result: ResultIgnored}, nil
	}

	var fx effects
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fresh, err := claimEvent(tx, ev, p.now().UTC())
		if err != nil {
			return err
		}
		if !fresh {
			fx = effects{outcome: Outcome{Result: ResultDuplicate, Message: "event already processed"}}
			return nil
		}

		fx, err = p.dispatch(tx, ev)
		if err != nil {
			return err
		}
		if ev.ID == "" {
			return nil
		}
		return tx.Model(&billing.WebhookEvent{}).
			Where("provider = ? AND provider_event_id = ?", provider, ev.ID).
			Updates(map[string]any{"result": string(fx.outcome.Result), "message": fx.outcome.Message}).Error
	})
	if err != nil {
		metrics.WebhookEvents.WithLabelValues(ev.Type, "error").Inc()
		p.log.Error("webhook processing failed", "event_id", ev.ID, "type", ev.Type, "error", err)
		return Outcome{}, err
	}

	for _, m := range fx.notes {
		p.notifier.Notify(m)
	}

	metrics.WebhookEvents.WithLabelValues(ev.Type, string(fx.outcome.Result)).Inc()
	if fx.outcome.Result == ResultWarning {
		p.log.Warn("webhook references unknown local state", "event_id", ev.ID, "type", ev.Type, "detail", fx.outcome.Message)
	} else {
		p.log.Info("webhook handled", "event_id", ev.ID, "type", ev.Type, "result", fx.outcome.Result)
	}
	return fx.outcome, nil
}

func (p *Processor) dispatch(tx *gorm.DB, ev billing.Event) (effects, error) {
	switch ev.Kind {
	case billing.EventInvoicePaymentSucceeded:
		return p.onInvoicePaid(tx, ev)
	case billing.EventInvoicePaymentFailed:
		return p.onInvoiceFailed(tx, ev)
	case billing.EventSubscriptionCreated, billing.EventSubscriptionUpdated:
		return p.onSubscriptionChanged(tx, ev)
	case billing.EventSubscriptionDeleted:
		return p.onSubscriptionDeleted(tx, ev)
	case billing.EventPaymentMethodAttached:
		return p.onPaymentMethodAttached(tx, ev)
	case billing.EventPaymentMethodDetached:
		return p.onPaymentMethodDetached(tx, ev)
	case billing.EventCheckoutSessionCompleted:
		return p.onCheckoutCompleted(tx, ev)
	default:
		return effects{outcome: Outcome{Result: ResultIgnored}}, nil
	}
}

// claimEvent inserts the event id; fresh is false when it was already there.
func claimEvent(tx *gorm.DB, ev billing.Event, now time.Time) (bool, error) {
	if ev.ID == "" {
		return true, nil
	}
	row := billing.WebhookEvent{
		Provider:        provider,
		ProviderEventID: ev.ID,
		EventType:       ev.Type,
		Result:          string(ResultProcessed),
		ProcessedAt:     now,
	}
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
	if res.Error != nil {
		return false, fmt.Errorf("claim webhook event: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func userMessage(tx *gorm.DB, userID uint, kind notify.Kind, data map[string]string) ([]notify.Message, error) {
	u, err := users.FindByID(tx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load user %d for notification: %w", userID, err)
	}
	return []notify.Message{{Kind: kind, UserID: u.ID, To: u.Email, Name: u.FullName(), Data: data}}, nil
}
