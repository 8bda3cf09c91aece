package plans

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// StripePrice maps a gateway price to a catalog entry. Rows are written by the
// admin sync and read when opening checkout sessions or mirroring gateway
// subscriptions.
type StripePrice struct {
	ID            uint         `gorm:"primaryKey" json:"id"`
	StripePriceID string       `gorm:"column:stripe_price_id;not null;uniqueIndex:idx_stripe_prices_price_id" json:"stripe_price_id"`
	PlanType      PlanType     `gorm:"type:varchar(20);not null;uniqueIndex:idx_stripe_prices_plan_cycle" json:"plan_type"`
	BillingCycle  BillingCycle `gorm:"type:varchar(20);not null;uniqueIndex:idx_stripe_prices_plan_cycle" json:"billing_cycle"`
	Active        bool         `gorm:"not null" json:"active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SaveStripePrice points the (plan, cycle) pair at priceID, creating the row
// on first sync. created reports which of the two happened.
func SaveStripePrice(tx *gorm.DB, priceID string, t PlanType, c BillingCycle) (created bool, err error) {
	var row StripePrice
	err = tx.Where("plan_type = ? AND billing_cycle = ?", t, c).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		row = StripePrice{StripePriceID: priceID, PlanType: t, BillingCycle: c, Active: true}
		return true, tx.Create(&row).Error
	}
	if err != nil {
		return false, err
	}
	return false, tx.Model(&row).Updates(map[string]any{"stripe_price_id": priceID, "active": true}).Error
}

// PriceIDFor returns the active gateway price for a catalog entry.
func PriceIDFor(tx *gorm.DB, t PlanType, c BillingCycle) (string, error) {
	var row StripePrice
	if err := tx.Where("plan_type = ? AND billing_cycle = ? AND active = ?", t, c, true).First(&row).Error; err != nil {
		return "", err
	}
	return row.StripePriceID, nil
}

// EntryForPrice maps a gateway price back onto the catalog.
func EntryForPrice(tx *gorm.DB, priceID string) (PlanType, BillingCycle, error) {
	var row StripePrice
	if err := tx.Where("stripe_price_id = ?", priceID).First(&row).Error; err != nil {
		return "", "", err
	}
	return row.PlanType, row.BillingCycle, nil
}
