package promotions

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Promotion struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	ProviderID      uint            `gorm:"not null;index" json:"provider_id"`
	DestinationID   *uint           `gorm:"index" json:"destination_id,omitempty"`
	Title           string          `gorm:"not null" json:"title"`
	Description     string          `gorm:"type:text" json:"description,omitempty"`
	DiscountPercent decimal.Decimal `gorm:"type:numeric(5,2);not null" json:"discount_percent"`
	StartDate       time.Time       `gorm:"not null" json:"start_date"`
	// EndDate nil means open ended; such promotions never expire.
	EndDate  *time.Time `gorm:"index" json:"end_date,omitempty"`
	IsActive bool       `gorm:"not null;index" json:"is_active"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// CountOwned counts live promotions of a provider.
func CountOwned(tx *gorm.DB, providerID uint) (int64, error) {
	var n int64
	err := tx.Model(&Promotion{}).Where("provider_id = ?", providerID).Count(&n).Error
	return n, err
}
