package billing_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tourism-app/internal/domain/billing"
	"tourism-app/internal/domain/users"
	"tourism-app/internal/testutil"
)

func TestPaymentMethods_FirstBecomesDefault(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	u := testutil.CreateUser(t, f.db, users.RoleProvider)

	first, err := f.m.AddPaymentMethod(ctx, u.ID, billing.PaymentMethodInput{ExternalRef: "pm_a", Last4: "1111"})
	require.NoError(t, err)
	assert.True(t, first.IsDefault)
	assert.Equal(t, billing.MethodCard, first.Type)

	second, err := f.m.AddPaymentMethod(ctx, u.ID, billing.PaymentMethodInput{ExternalRef: "pm_b", Last4: "2222"})
	require.NoError(t, err)
	assert.False(t, second.IsDefault)

	_, err = f.m.SetDefaultPaymentMethod(ctx, u.ID, second.ID)
	require.NoError(t, err)

	list, err := f.m.ListPaymentMethods(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.True(t, list[0].IsDefault)
	assert.False(t, list[1].IsDefault)
}

func TestDeletePaymentMethod_LastOneRejected(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	u := testutil.CreateUser(t, f.db, users.RoleProvider)
	only := testutil.AddCard(t, f.db, u.ID)

	err := f.m.DeletePaymentMethod(ctx, u.ID, only.ID)
	assert.ErrorIs(t, err, billing.ErrLastPaymentMethod)
	assert.Equal(t, billing.KindConflict, billing.KindOf(err))

	list, err := f.m.ListPaymentMethods(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestDeletePaymentMethod_OneOfTwoSucceeds(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	u := testutil.CreateUser(t, f.db, users.RoleProvider)
	def := testutil.AddCard(t, f.db, u.ID)
	other := testutil.AddCard(t, f.db, u.ID)
	require.True(t, def.IsDefault)

	require.NoError(t, f.m.DeletePaymentMethod(ctx, u.ID, def.ID))

	list, err := f.m.ListPaymentMethods(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, other.ID, list[0].ID)
	assert.True(t, list[0].IsDefault, "default passes to the remaining method")

	// Now it is the last one.
	assert.ErrorIs(t, f.m.DeletePaymentMethod(ctx, u.ID, other.ID), billing.ErrLastPaymentMethod)
}

func TestDeletePaymentMethod_OtherUsersMethodNotFound(t *testing.T) {
	f := setup(t)
	owner := testutil.CreateUser(t, f.db, users.RoleProvider)
	pm := testutil.AddCard(t, f.db, owner.ID)
	testutil.AddCard(t, f.db, owner.ID)
	intruder := testutil.CreateUser(t, f.db, users.RoleProvider)

	err := f.m.DeletePaymentMethod(context.Background(), intruder.ID, pm.ID)
	assert.ErrorIs(t, err, billing.ErrPaymentMethodNotFound)
}

func TestDetachSoftDeletesAndAttachRestores(t *testing.T) {
	f := setup(t)
	u := testutil.CreateUser(t, f.db, users.RoleProvider)
	pm := testutil.AddCard(t, f.db, u.ID)

	_, found, err := billing.DetachPaymentMethod(f.db, pm.ExternalRef)
	require.NoError(t, err)
	assert.True(t, found)

	var live int64
	require.NoError(t, f.db.Model(&billing.PaymentMethod{}).Where("user_id = ?", u.ID).Count(&live).Error)
	assert.Zero(t, live)

	var all int64
	require.NoError(t, f.db.Unscoped().Model(&billing.PaymentMethod{}).Where("user_id = ?", u.ID).Count(&all).Error)
	assert.Equal(t, int64(1), all, "row kept for recovery")

	_, found, err = billing.DetachPaymentMethod(f.db, pm.ExternalRef)
	require.NoError(t, err)
	assert.False(t, found)

	restored, err := billing.AttachPaymentMethod(f.db, u.ID, billing.PaymentMethodInput{ExternalRef: pm.ExternalRef, Last4: "4242"})
	require.NoError(t, err)
	assert.Equal(t, pm.ID, restored.ID)
	assert.True(t, restored.IsDefault)
}

func TestDetachDefault_PassesDefaultToRemaining(t *testing.T) {
	f := setup(t)
	u := testutil.CreateUser(t, f.db, users.RoleProvider)
	def := testutil.AddCard(t, f.db, u.ID)
	other := testutil.AddCard(t, f.db, u.ID)
	require.True(t, def.IsDefault)

	detached, found, err := billing.DetachPaymentMethod(f.db, def.ExternalRef)
	require.NoError(t, err)
	require.True(t, found)
	assert.False(t, detached.IsDefault)

	list, err := f.m.ListPaymentMethods(context.Background(), u.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, other.ID, list[0].ID)
	assert.True(t, list[0].IsDefault)
}
