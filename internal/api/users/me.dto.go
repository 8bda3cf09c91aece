package users

import "time"

type MeResponse struct {
	User    UserDTO    `json:"user"`
	Billing BillingDTO `json:"billing"`
	Access  AccessDTO  `json:"access"`
}

/* ---------- USER ---------- */

type UserDTO struct {
	ID       uint    `json:"id"`
	Email    string  `json:"email"`
	Name     string  `json:"name"`
	Lastname string  `json:"lastname"`
	Tel      *string `json:"tel"`
	Role     string  `json:"role"`
}

/* ---------- BILLING ---------- */

type BillingDTO struct {
	Subscription       *SubscriptionDTO `json:"subscription"`
	HasGatewayCustomer bool             `json:"has_gateway_customer"`
}

type SubscriptionDTO struct {
	ID              uint      `json:"id"`
	PlanType        string    `json:"plan_type"`
	BillingCycle    string    `json:"billing_cycle"`
	Status          string    `json:"status"`
	Amount          string    `json:"amount"`
	Currency        string    `json:"currency"`
	StartDate       time.Time `json:"start_date"`
	EndDate         time.Time `json:"end_date"`
	NextBillingDate time.Time `json:"next_billing_date"`
	AutoRenew       bool      `json:"auto_renew"`
	DaysLeft        int       `json:"days_left"`
	Features        []string  `json:"features"`
}

/* ---------- ACCESS ---------- */

type AccessDTO struct {
	Capabilities []string   `json:"capabilities"`
	Usage        []UsageDTO `json:"usage,omitempty"` // providers only
}

type UsageDTO struct {
	Resource  string `json:"resource"`
	Used      int64  `json:"used"`
	Limit     *int   `json:"limit"` // nil = unlimited
	CanCreate bool   `json:"can_create"`
}
