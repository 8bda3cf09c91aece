package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"tourism-app/internal/domain/access"
	"tourism-app/internal/domain/audit"
	"tourism-app/internal/domain/plans"
)

// Manager owns the subscription and payment-method state transitions.
// Every operation runs in a single transaction.
type Manager struct {
	db  *gorm.DB
	now func() time.Time
}

func NewManager(db *gorm.DB) *Manager {
	return &Manager{db: db, now: time.Now}
}

// WithClock replaces the time source, mostly for tests.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

func (m *Manager) clock() time.Time { return m.now().UTC() }

type SubscribeInput struct {
	PlanType      plans.PlanType
	BillingCycle  plans.BillingCycle
	AutoRenew     bool
	PaymentMethod string
	TransactionID *string
}

func (m *Manager) Subscribe(ctx context.Context, p access.Principal, in SubscribeInput) (*Subscription, error) {
	if !p.IsProvider() {
		return nil, ErrNotProvider
	}
	plan, ok := plans.Lookup(in.PlanType)
	if !ok {
		return nil, ErrUnknownPlan
	}
	if _, err := plans.Price(in.PlanType, in.BillingCycle); err != nil {
		return nil, ErrUnknownPlan
	}

	var sub Subscription
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var active int64
		if err := tx.Model(&Subscription{}).
			Where("user_id = ? AND status = ?", p.UserID, StatusActive).
			Count(&active).Error; err != nil {
			return err
		}
		if active > 0 {
			return ErrAlreadySubscribed
		}

		var pm PaymentMethod
		err := tx.Where("user_id = ?", p.UserID).Order("is_default DESC, id ASC").First(&pm).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNoPaymentMethod
		}
		if err != nil {
			return err
		}

		method := in.PaymentMethod
		if method == "" {
			method = pm.ExternalRef
		}

		start := m.clock()
		end := in.BillingCycle.Advance(start, 1)
		sub = Subscription{
			UserID:          p.UserID,
			Status:          StatusActive,
			StartDate:       start,
			EndDate:         end,
			NextBillingDate: end,
			AutoRenew:       in.AutoRenew,
			PaymentMethod:   method,
			PaymentStatus:   PaymentCompleted,
			TransactionID:   in.TransactionID,
		}
		sub.applyPlan(plan, in.BillingCycle)

		if err := tx.Create(&sub).Error; err != nil {
			// The partial unique index catches a concurrent subscribe that
			// slipped past the count above.
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadySubscribed
			}
			return fmt.Errorf("create subscription: %w", err)
		}
		return audit.Record(tx, audit.Subject{Kind: audit.SubjectSubscription, ID: sub.ID}, p.UserID, "subscription.created", map[string]any{
			"plan_type":     sub.PlanType,
			"billing_cycle": sub.BillingCycle,
			"amount":        sub.Amount.StringFixed(2),
		})
	})
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (m *Manager) Cancel(ctx context.Context, p access.Principal) (*Subscription, error) {
	if !p.IsProvider() {
		return nil, ErrNotProvider
	}
	var sub Subscription
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("user_id = ? AND status = ?", p.UserID, StatusActive).First(&sub).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNothingToCancel
		}
		if err != nil {
			return err
		}

		now := m.clock()
		sub.Status = StatusCancelled
		sub.AutoRenew = false
		sub.CancelledAt = &now
		if err := tx.Model(&sub).Select("status", "auto_renew", "cancelled_at").Updates(&sub).Error; err != nil {
			return fmt.Errorf("cancel subscription: %w", err)
		}
		return audit.Record(tx, audit.Subject{Kind: audit.SubjectSubscription, ID: sub.ID}, p.UserID, "subscription.cancelled", nil)
	})
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// Renew reactivates the caller's most relevant subscription (the active
// one, otherwise the one that ended last) for one more billing cycle.
func (m *Manager) Renew(ctx context.Context, p access.Principal, transactionID *string) (*Subscription, error) {
	if !p.IsProvider() {
		return nil, ErrNotProvider
	}
	var sub Subscription
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("user_id = ?", p.UserID).
			Order("CASE WHEN status = 'active' THEN 0 ELSE 1 END, end_date DESC, id DESC").
			First(&sub).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNothingToRenew
		}
		if err != nil {
			return err
		}

		prevEnd := sub.EndDate
		start, end := renewalPeriod(prevEnd, sub.BillingCycle, m.clock())
		sub.Status = StatusActive
		sub.StartDate = start
		sub.EndDate = end
		sub.NextBillingDate = end
		sub.AutoRenew = true
		sub.PaymentStatus = PaymentCompleted
		sub.CancelledAt = nil
		if transactionID != nil {
			sub.TransactionID = transactionID
		}

		err = tx.Model(&sub).
			Select("status", "start_date", "end_date", "next_billing_date", "auto_renew", "payment_status", "cancelled_at", "transaction_id").
			Updates(&sub).Error
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrAlreadySubscribed
		}
		if err != nil {
			return fmt.Errorf("renew subscription: %w", err)
		}
		return audit.Record(tx, audit.Subject{Kind: audit.SubjectSubscription, ID: sub.ID}, p.UserID, "subscription.renewed", map[string]any{
			"previous_end_date": prevEnd,
			"end_date":          end,
		})
	})
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// Current returns the user's active subscription.
func (m *Manager) Current(ctx context.Context, userID uint) (*Subscription, error) {
	var sub Subscription
	err := m.db.WithContext(ctx).Where("user_id = ? AND status = ?", userID, StatusActive).First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSubscriptionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// Latest returns the active subscription, or the most recent one of any
// status when none is active.
func (m *Manager) Latest(ctx context.Context, userID uint) (*Subscription, error) {
	var sub Subscription
	err := m.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("CASE WHEN status = 'active' THEN 0 ELSE 1 END, created_at DESC, id DESC").
		First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSubscriptionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// ExpireDue moves active subscriptions whose end_date has passed to expired
// and returns the rows it changed. Already expired rows are not touched, so
// repeated runs are no-ops.
func (m *Manager) ExpireDue(ctx context.Context) ([]Subscription, error) {
	now := m.clock()
	var due []Subscription
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("status = ? AND end_date < ?", StatusActive, now).Order("id ASC").Find(&due).Error; err != nil {
			return err
		}
		for i := range due {
			res := tx.Model(&Subscription{}).
				Where("id = ? AND status = ?", due[i].ID, StatusActive).
				Update("status", StatusExpired)
			if res.Error != nil {
				return fmt.Errorf("expire subscription %d: %w", due[i].ID, res.Error)
			}
			due[i].Status = StatusExpired
			if err := audit.Record(tx, audit.Subject{Kind: audit.SubjectSubscription, ID: due[i].ID}, 0, "subscription.expired", nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return due, nil
}

// DueForReminder lists auto-renewing active subscriptions whose next
// billing date falls within the coming window.
func (m *Manager) DueForReminder(ctx context.Context, within time.Duration) ([]Subscription, error) {
	now := m.clock()
	var out []Subscription
	err := m.db.WithContext(ctx).
		Where("status = ? AND auto_renew = ? AND next_billing_date > ? AND next_billing_date <= ?", StatusActive, true, now, now.Add(within)).
		Order("next_billing_date ASC").
		Find(&out).Error
	return out, err
}
