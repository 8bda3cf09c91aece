package destinations

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Region struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Name        string `gorm:"not null" json:"name"`
	Slug        string `gorm:"not null;uniqueIndex:idx_regions_slug" json:"slug"`
	Description string `json:"description,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Category struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"not null" json:"name"`
	Slug string `gorm:"not null;uniqueIndex:idx_categories_slug" json:"slug"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Destination is a provider-owned listing. Soft-deleted rows do not count
// toward the provider's plan limit.
type Destination struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	ProviderID  uint            `gorm:"not null;index" json:"provider_id"`
	RegionID    *uint           `gorm:"index" json:"region_id,omitempty"`
	Region      *Region         `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"region,omitempty"`
	CategoryID  *uint           `gorm:"index" json:"category_id,omitempty"`
	Category    *Category       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"category,omitempty"`
	Name        string          `gorm:"not null" json:"name"`
	Slug        string          `gorm:"not null;uniqueIndex:idx_destinations_slug" json:"slug"`
	Description string          `gorm:"type:text" json:"description,omitempty"`
	Location    string          `json:"location,omitempty"`
	Price       decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"price"`
	IsPublished bool            `gorm:"not null;default:false" json:"is_published"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// CountOwned counts live destinations of a provider.
func CountOwned(tx *gorm.DB, providerID uint) (int64, error) {
	var n int64
	err := tx.Model(&Destination{}).Where("provider_id = ?", providerID).Count(&n).Error
	return n, err
}
