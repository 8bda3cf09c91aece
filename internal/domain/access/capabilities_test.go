package access

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"tourism-app/internal/domain/users"
)

func TestCapabilitiesForRole(t *testing.T) {
	provider := CapabilitiesForRole(users.RoleProvider)
	assert.True(t, provider.Has(CapProvider))
	assert.False(t, provider.Has(CapModerate))

	tourist := CapabilitiesForRole(users.RoleTourist)
	assert.False(t, tourist.Has(CapProvider))
	assert.True(t, tourist.Has(CapReview))

	admin := CapabilitiesForRole(users.RoleAdmin)
	assert.Equal(t, []string{"provider", "moderate", "review"}, admin.List())

	assert.Empty(t, CapabilitiesForRole("ghost").List())
}

func TestPrincipal(t *testing.T) {
	p := NewPrincipal(7, users.RoleProvider)
	assert.Equal(t, uint(7), p.UserID)
	assert.True(t, p.IsProvider())
	assert.False(t, NewPrincipal(8, users.RoleTourist).IsProvider())
}
