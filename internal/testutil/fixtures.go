package testutil

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"tourism-app/internal/domain/access"
	"tourism-app/internal/domain/billing"
	"tourism-app/internal/domain/plans"
	"tourism-app/internal/domain/users"
)

var seq atomic.Int64

func next() int64 { return seq.Add(1) }

func CreateUser(t *testing.T, db *gorm.DB, role string) users.User {
	t.Helper()
	n := next()
	u := users.User{
		Name:     fmt.Sprintf("User%d", n),
		Lastname: "Test",
		Email:    fmt.Sprintf("user%d@example.com", n),
		Role:     role,
	}
	require.NoError(t, db.Create(&u).Error)
	return u
}

func CreateCustomer(t *testing.T, db *gorm.DB, role, customerID string) users.User {
	t.Helper()
	u := CreateUser(t, db, role)
	require.NoError(t, db.Model(&u).Update("stripe_customer_id", customerID).Error)
	u.StripeCustomerID = &customerID
	return u
}

func AddCard(t *testing.T, db *gorm.DB, userID uint) billing.PaymentMethod {
	t.Helper()
	pm, err := billing.AttachPaymentMethod(db, userID, billing.PaymentMethodInput{
		ExternalRef: fmt.Sprintf("pm_test_%d", next()),
		Type:        billing.MethodCard,
		Last4:       "4242",
		Brand:       "visa",
	})
	require.NoError(t, err)
	return *pm
}

// Subscribe gives u an active monthly subscription on plan, adding a card
// first.
func Subscribe(t *testing.T, db *gorm.DB, u users.User, plan plans.PlanType) billing.Subscription {
	t.Helper()
	AddCard(t, db, u.ID)
	sub, err := billing.NewManager(db).Subscribe(context.Background(), access.NewPrincipal(u.ID, u.Role), billing.SubscribeInput{
		PlanType:     plan,
		BillingCycle: plans.Monthly,
		AutoRenew:    true,
	})
	require.NoError(t, err)
	return *sub
}
