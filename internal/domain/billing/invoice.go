package billing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"tourism-app/internal/domain/audit"
	"tourism-app/internal/domain/plans"
)

type InvoiceStatus string

const (
	InvoiceDraft         InvoiceStatus = "draft"
	InvoiceOpen          InvoiceStatus = "open"
	InvoicePaid          InvoiceStatus = "paid"
	InvoiceVoid          InvoiceStatus = "void"
	InvoiceUncollectible InvoiceStatus = "uncollectible"
)

type Invoice struct {
	ID             uint              `gorm:"primaryKey" json:"id"`
	UserID         uint              `gorm:"not null;index" json:"user_id"`
	SubscriptionID *uint             `gorm:"index" json:"subscription_id,omitempty"`
	ExternalRef    *string           `gorm:"uniqueIndex:idx_invoices_external_ref" json:"external_ref,omitempty"`
	SessionID      *string           `gorm:"uniqueIndex:idx_invoices_session_id" json:"session_id,omitempty"`
	Amount         decimal.Decimal   `gorm:"type:numeric(12,2);not null" json:"amount"`
	Currency       string            `gorm:"type:varchar(3);not null" json:"currency"`
	Status         InvoiceStatus     `gorm:"type:varchar(20);not null;index" json:"status"`
	DueDate        *time.Time        `json:"due_date,omitempty"`
	PaidAt         *time.Time        `json:"paid_at,omitempty"`
	FailureReason  string            `json:"failure_reason,omitempty"`
	Metadata       datatypes.JSONMap `json:"metadata,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OpenCheckoutInvoice records the invoice a checkout session is expected to
// settle. The payment events find it again by session id.
func OpenCheckoutInvoice(tx *gorm.DB, userID uint, sessionID string, plan plans.PlanType, cycle plans.BillingCycle) (*Invoice, error) {
	amount, err := plans.Price(plan, cycle)
	if err != nil {
		return nil, ErrUnknownPlan
	}
	sid := sessionID
	inv := Invoice{
		UserID:    userID,
		SessionID: &sid,
		Amount:    amount,
		Currency:  plans.Currency,
		Status:    InvoiceOpen,
		Metadata: datatypes.JSONMap{
			"plan_type":     string(plan),
			"billing_cycle": string(cycle),
		},
	}
	if err := tx.Create(&inv).Error; err != nil {
		return nil, fmt.Errorf("open checkout invoice: %w", err)
	}
	return &inv, audit.Record(tx, audit.Subject{Kind: audit.SubjectInvoice, ID: inv.ID}, userID, "invoice.opened", map[string]any{
		"amount": amount.StringFixed(2),
	})
}

// InvoiceFilter narrows ListInvoices. Zero fields match everything.
type InvoiceFilter struct {
	UserID uint
	Status InvoiceStatus
	Limit  int
}

// ListInvoices returns invoices newest first.
func ListInvoices(tx *gorm.DB, f InvoiceFilter) ([]Invoice, error) {
	q := tx.Model(&Invoice{})
	if f.UserID != 0 {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	out := []Invoice{}
	err := q.Order("created_at DESC, id DESC").Find(&out).Error
	return out, err
}
