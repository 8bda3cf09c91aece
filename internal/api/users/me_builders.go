package users

import (
	"time"

	"tourism-app/internal/domain/billing"
	"tourism-app/internal/domain/users"
)

func BuildUserDTO(u users.User) UserDTO {
	return UserDTO{
		ID:       u.ID,
		Email:    u.Email,
		Name:     u.Name,
		Lastname: u.Lastname,
		Tel:      stringPtrIfNotEmpty(u.Tel),
		Role:     u.Role,
	}
}

func BuildSubscriptionDTO(now time.Time, s *billing.Subscription) *SubscriptionDTO {
	if s == nil {
		return nil
	}
	daysLeft := 0
	if s.Status == billing.StatusActive && now.Before(s.EndDate) {
		daysLeft = int(s.EndDate.Sub(now).Hours() / 24)
	}
	features := s.FeatureList()
	if features == nil {
		features = []string{}
	}
	return &SubscriptionDTO{
		ID:              s.ID,
		PlanType:        string(s.PlanType),
		BillingCycle:    string(s.BillingCycle),
		Status:          string(s.Status),
		Amount:          s.Amount.StringFixed(2),
		Currency:        s.Currency,
		StartDate:       s.StartDate,
		EndDate:         s.EndDate,
		NextBillingDate: s.NextBillingDate,
		AutoRenew:       s.AutoRenew,
		DaysLeft:        daysLeft,
		Features:        features,
	}
}

func BuildUsageDTOs(u billing.Usage) []UsageDTO {
	out := make([]UsageDTO, 0, len(u.Resources))
	for _, r := range u.Resources {
		dto := UsageDTO{Resource: string(r.Kind), Used: r.Used, CanCreate: r.CanCreate}
		if !r.Unlimited {
			limit := r.Limit
			dto.Limit = &limit
		}
		out = append(out, dto)
	}
	return out
}

func stringPtrIfNotEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
