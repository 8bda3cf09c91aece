package billing

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"tourism-app/internal/domain/audit"
	"tourism-app/internal/domain/plans"
)

// Helpers used by the webhook processor to mirror gateway state. They all
// take the caller's transaction. Periods reported by the gateway are stored
// as-is: the gateway owns the billing anchor of subscriptions it bills.

type GatewaySubscription struct {
	UserID       uint
	ExternalID   string
	PlanType     plans.PlanType
	BillingCycle plans.BillingCycle
	Status       SubscriptionStatus
	PeriodStart  time.Time
	PeriodEnd    time.Time
	AutoRenew    bool
}

func FindByExternalID(tx *gorm.DB, externalID string) (*Subscription, error) {
	var sub Subscription
	err := tx.Where("external_id = ?", externalID).First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSubscriptionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// MirrorSubscription creates or updates the local row for a gateway
// subscription. An active gateway subscription supersedes any other active
// local subscription of the same user.
func MirrorSubscription(tx *gorm.DB, in GatewaySubscription, now time.Time) (*Subscription, bool, error) {
	plan, ok := plans.Lookup(in.PlanType)
	if !ok {
		return nil, false, ErrUnknownPlan
	}
	if _, ok := plan.Prices[in.BillingCycle]; !ok {
		return nil, false, ErrUnknownPlan
	}

	sub, err := FindByExternalID(tx, in.ExternalID)
	created := false
	switch {
	case errors.Is(err, ErrSubscriptionNotFound):
		ext := in.ExternalID
		sub = &Subscription{UserID: in.UserID, ExternalID: &ext, PaymentMethod: "stripe"}
		created = true
	case err != nil:
		return nil, false, err
	}

	if in.Status == StatusActive {
		if err := supersedeActive(tx, sub.UserID, sub.ID, now); err != nil {
			return nil, false, err
		}
	}

	if created || sub.PlanType != in.PlanType || sub.BillingCycle != in.BillingCycle {
		sub.applyPlan(plan, in.BillingCycle)
	}
	sub.Status = in.Status
	sub.StartDate = in.PeriodStart
	sub.EndDate = in.PeriodEnd
	sub.NextBillingDate = in.PeriodEnd
	sub.AutoRenew = in.AutoRenew
	if in.Status == StatusActive {
		sub.PaymentStatus = PaymentCompleted
		sub.CancelledAt = nil
	} else if sub.PaymentStatus == "" {
		sub.PaymentStatus = PaymentPending
	}
	if in.Status == StatusCancelled && sub.CancelledAt == nil {
		at := now
		sub.CancelledAt = &at
	}

	if err := tx.Save(sub).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, false, ErrAlreadySubscribed
		}
		return nil, false, fmt.Errorf("save gateway subscription: %w", err)
	}

	action := "subscription.gateway_updated"
	if created {
		action = "subscription.gateway_created"
	}
	if err := audit.Record(tx, audit.Subject{Kind: audit.SubjectSubscription, ID: sub.ID}, 0, action, map[string]any{
		"external_id": in.ExternalID,
		"status":      sub.Status,
		"plan_type":   sub.PlanType,
	}); err != nil {
		return nil, false, err
	}
	return sub, created, nil
}

func supersedeActive(tx *gorm.DB, userID, keepID uint, now time.Time) error {
	var others []Subscription
	q := tx.Where("user_id = ? AND status = ?", userID, StatusActive)
	if keepID != 0 {
		q = q.Where("id <> ?", keepID)
	}
	if err := q.Find(&others).Error; err != nil {
		return err
	}
	for _, o := range others {
		if err := tx.Model(&Subscription{}).Where("id = ?", o.ID).Updates(map[string]any{
			"status":       StatusCancelled,
			"auto_renew":   false,
			"cancelled_at": now,
		}).Error; err != nil {
			return err
		}
		if err := audit.Record(tx, audit.Subject{Kind: audit.SubjectSubscription, ID: o.ID}, 0, "subscription.superseded", nil); err != nil {
			return err
		}
	}
	return nil
}

// CancelByExternalID cancels the local mirror of a gateway subscription.
// changed is false when it was already cancelled.
func CancelByExternalID(tx *gorm.DB, externalID string, now time.Time) (*Subscription, bool, error) {
	sub, err := FindByExternalID(tx, externalID)
	if err != nil {
		return nil, false, err
	}
	if sub.Status == StatusCancelled {
		return sub, false, nil
	}
	sub.Status = StatusCancelled
	sub.AutoRenew = false
	sub.CancelledAt = &now
	if err := tx.Model(sub).Select("status", "auto_renew", "cancelled_at").Updates(sub).Error; err != nil {
		return nil, false, err
	}
	if err := audit.Record(tx, audit.Subject{Kind: audit.SubjectSubscription, ID: sub.ID}, 0, "subscription.gateway_deleted", nil); err != nil {
		return nil, false, err
	}
	return sub, true, nil
}

// LocateInvoice finds an invoice by any of the gateway references it may
// have been stored under.
func LocateInvoice(tx *gorm.DB, externalID, paymentIntentID, sessionID string) (*Invoice, error) {
	refs := make([]string, 0, 2)
	for _, r := range []string{externalID, paymentIntentID} {
		if r != "" {
			refs = append(refs, r)
		}
	}

	var inv Invoice
	if len(refs) > 0 {
		err := tx.Where("external_ref IN ?", refs).First(&inv).Error
		if err == nil {
			return &inv, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	if sessionID != "" {
		err := tx.Where("session_id = ?", sessionID).First(&inv).Error
		if err == nil {
			return &inv, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	return nil, ErrInvoiceNotFound
}

// RecordGatewayInvoice stores an invoice the gateway raised on its own for
// a tracked subscription (renewal cycles).
func RecordGatewayInvoice(tx *gorm.DB, sub *Subscription, externalID string, amount decimal.Decimal, currency string) (*Invoice, error) {
	ref := externalID
	inv := Invoice{
		UserID:         sub.UserID,
		SubscriptionID: &sub.ID,
		ExternalRef:    &ref,
		Amount:         amount,
		Currency:       currency,
		Status:         InvoiceOpen,
		Metadata: map[string]any{
			"plan_type":     string(sub.PlanType),
			"billing_cycle": string(sub.BillingCycle),
		},
	}
	if inv.Currency == "" {
		inv.Currency = sub.Currency
	}
	if err := tx.Create(&inv).Error; err != nil {
		return nil, fmt.Errorf("record gateway invoice: %w", err)
	}
	return &inv, nil
}

// MarkInvoicePaid moves inv to paid. changed is false when it already was.
func MarkInvoicePaid(tx *gorm.DB, inv *Invoice, paidAt time.Time, amount decimal.Decimal, externalID string) (bool, error) {
	if inv.Status == InvoicePaid {
		return false, nil
	}
	updates := map[string]any{
		"status":         InvoicePaid,
		"paid_at":        paidAt,
		"failure_reason": "",
	}
	if amount.IsPositive() {
		updates["amount"] = amount
		inv.Amount = amount
	}
	if inv.ExternalRef == nil && externalID != "" {
		updates["external_ref"] = externalID
		inv.ExternalRef = &externalID
	}
	res := tx.Model(&Invoice{}).Where("id = ? AND status <> ?", inv.ID, InvoicePaid).Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	inv.Status = InvoicePaid
	inv.PaidAt = &paidAt
	return true, audit.Record(tx, audit.Subject{Kind: audit.SubjectInvoice, ID: inv.ID}, 0, "invoice.paid", map[string]any{
		"amount": inv.Amount.StringFixed(2),
	})
}

// MarkInvoiceFailed records a failed attempt. The invoice becomes
// uncollectible only once the gateway stops retrying; otherwise it stays
// open. changed is false for a paid or already uncollectible invoice.
func MarkInvoiceFailed(tx *gorm.DB, inv *Invoice, reason string, retrying bool) (bool, error) {
	if inv.Status == InvoicePaid || inv.Status == InvoiceUncollectible {
		return false, nil
	}
	status := InvoiceUncollectible
	if retrying {
		status = InvoiceOpen
	}
	if err := tx.Model(inv).Updates(map[string]any{"status": status, "failure_reason": reason}).Error; err != nil {
		return false, err
	}
	inv.Status = status
	inv.FailureReason = reason
	return true, audit.Record(tx, audit.Subject{Kind: audit.SubjectInvoice, ID: inv.ID}, 0, "invoice.payment_failed", map[string]any{
		"reason":   reason,
		"retrying": retrying,
	})
}

// SettleSubscriptionPayment applies an invoice outcome to its subscription:
// a successful payment activates a pending subscription.
func SettleSubscriptionPayment(tx *gorm.DB, sub *Subscription, paid bool, transactionID string, now time.Time) error {
	updates := map[string]any{}
	if paid {
		updates["payment_status"] = PaymentCompleted
		if transactionID != "" {
			updates["transaction_id"] = transactionID
		}
		if sub.Status == StatusPending {
			if err := supersedeActive(tx, sub.UserID, sub.ID, now); err != nil {
				return err
			}
			updates["status"] = StatusActive
		}
	} else {
		updates["payment_status"] = PaymentFailed
	}
	if err := tx.Model(sub).Updates(updates).Error; err != nil {
		return err
	}
	if s, ok := updates["status"]; ok {
		sub.Status = s.(SubscriptionStatus)
		return audit.Record(tx, audit.Subject{Kind: audit.SubjectSubscription, ID: sub.ID}, 0, "subscription.activated", nil)
	}
	return nil
}
