package access

import (
	"errors"

	"tourism-app/internal/domain/users"
)

// ErrNotOwner is returned when a provider touches another provider's row.
var ErrNotOwner = errors.New("resource belongs to another provider")

type Capability string

const (
	// CapProvider owns destinations, promotions and a subscription.
	CapProvider Capability = "provider"
	// CapModerate approves or rejects reviews and reads platform-wide billing.
	CapModerate Capability = "moderate"
	CapReview   Capability = "review"
)

// Capabilities is resolved once per request and passed down explicitly.
type Capabilities map[Capability]struct{}

func (c Capabilities) Has(want Capability) bool {
	_, ok := c[want]
	return ok
}

func (c Capabilities) List() []string {
	out := make([]string, 0, len(c))
	for _, k := range []Capability{CapProvider, CapModerate, CapReview} {
		if c.Has(k) {
			out = append(out, string(k))
		}
	}
	return out
}

func CapabilitiesForRole(role string) Capabilities {
	caps := Capabilities{}
	switch role {
	case users.RoleProvider:
		caps[CapProvider] = struct{}{}
		caps[CapReview] = struct{}{}
	case users.RoleAdmin:
		// admins manage provider accounts on their behalf
		caps[CapProvider] = struct{}{}
		caps[CapModerate] = struct{}{}
		caps[CapReview] = struct{}{}
	case users.RoleTourist:
		caps[CapReview] = struct{}{}
	}
	return caps
}

// Principal is the authenticated caller of a domain operation.
type Principal struct {
	UserID uint
	Caps   Capabilities
}

func NewPrincipal(userID uint, role string) Principal {
	return Principal{UserID: userID, Caps: CapabilitiesForRole(role)}
}

func (p Principal) IsProvider() bool { return p.Caps.Has(CapProvider) }

// CanManage reports whether p may modify a row owned by providerID.
// Moderators manage every provider's rows.
func (p Principal) CanManage(providerID uint) bool {
	return p.Caps.Has(CapModerate) || (providerID != 0 && providerID == p.UserID)
}
