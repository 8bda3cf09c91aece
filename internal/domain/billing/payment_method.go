package billing

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type PaymentMethodType string

const (
	MethodCard        PaymentMethodType = "card"
	MethodBankAccount PaymentMethodType = "bank_account"
)

type PaymentMethod struct {
	ID          uint              `gorm:"primaryKey" json:"id"`
	UserID      uint              `gorm:"not null;index" json:"user_id"`
	ExternalRef string            `gorm:"not null;uniqueIndex:idx_payment_methods_external_ref" json:"external_ref"`
	Type        PaymentMethodType `gorm:"type:varchar(20);not null" json:"type"`
	Last4       string            `gorm:"type:varchar(4)" json:"last4"`
	Brand       string            `json:"brand,omitempty"`
	IsDefault   bool              `gorm:"not null;default:false" json:"is_default"`
	Metadata    datatypes.JSONMap `json:"metadata,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
