package users

import "time"

const (
	RoleTourist  = "tourist"
	RoleProvider = "provider"
	RoleAdmin    = "admin"
)

type User struct {
	ID       uint    `gorm:"primaryKey" json:"id"`
	Name     string  `json:"name"`
	Lastname string  `json:"lastname"`
	Tel      string  `json:"tel,omitempty"`
	Email    string  `gorm:"not null;uniqueIndex:idx_users_email" json:"email"`
	Password *string `json:"-"`
	Role     string  `gorm:"type:varchar(20);not null;default:'tourist'" json:"role"`

	StripeCustomerID *string `gorm:"column:stripe_customer_id;uniqueIndex:idx_users_stripe_customer_id" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (u User) FullName() string {
	if u.Lastname == "" {
		return u.Name
	}
	return u.Name + " " + u.Lastname
}
