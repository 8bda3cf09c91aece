package users

import (
	"strconv"

	"gorm.io/gorm"
)

func FindByID(tx *gorm.DB, id uint) (*User, error) {
	var u User
	if err := tx.First(&u, id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func FindByStripeCustomer(tx *gorm.DB, customerID string) (*User, error) {
	var u User
	if err := tx.Where("stripe_customer_id = ?", customerID).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// IDFromMetadata reads metadata["user_id"]; zero when absent or malformed.
func IDFromMetadata(md map[string]string) uint {
	if md == nil {
		return 0
	}
	uid, err := strconv.ParseUint(md["user_id"], 10, 64)
	if err != nil {
		return 0
	}
	return uint(uid)
}
