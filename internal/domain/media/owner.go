package media

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"tourism-app/internal/domain/destinations"
	"tourism-app/internal/domain/promotions"
)

// OwnerKind is the closed set of things an image can belong to.
type OwnerKind string

const (
	OwnerDestination OwnerKind = "destination"
	OwnerPromotion   OwnerKind = "promotion"
	OwnerRegion      OwnerKind = "region"
)

type OwnerRef struct {
	Kind OwnerKind `json:"kind"`
	ID   uint      `json:"id"`
}

var (
	ErrUnknownOwnerKind = errors.New("unknown owner kind")
	ErrOwnerNotFound    = errors.New("owner not found")
)

func ParseOwnerKind(s string) (OwnerKind, error) {
	k := OwnerKind(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := owners[k]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownOwnerKind, s)
	}
	return k, nil
}

// resolver loads the owning row and returns the provider that controls it.
// Zero means platform-owned (admin only).
type resolver func(tx *gorm.DB, id uint) (uint, error)

var owners = map[OwnerKind]resolver{
	OwnerDestination: func(tx *gorm.DB, id uint) (uint, error) {
		var d destinations.Destination
		if err := tx.Select("id", "provider_id").First(&d, id).Error; err != nil {
			return 0, err
		}
		return d.ProviderID, nil
	},
	OwnerPromotion: func(tx *gorm.DB, id uint) (uint, error) {
		var p promotions.Promotion
		if err := tx.Select("id", "provider_id").First(&p, id).Error; err != nil {
			return 0, err
		}
		return p.ProviderID, nil
	},
	OwnerRegion: func(tx *gorm.DB, id uint) (uint, error) {
		var r destinations.Region
		if err := tx.Select("id").First(&r, id).Error; err != nil {
			return 0, err
		}
		return 0, nil
	},
}

// ProviderOf resolves ref and returns the provider id that controls it.
func ProviderOf(tx *gorm.DB, ref OwnerRef) (uint, error) {
	resolve, ok := owners[ref.Kind]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownOwnerKind, ref.Kind)
	}
	providerID, err := resolve(tx, ref.ID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, fmt.Errorf("%w: %s %d", ErrOwnerNotFound, ref.Kind, ref.ID)
	}
	return providerID, err
}
