package billing

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"tourism-app/internal/domain/audit"
)

type PaymentMethodInput struct {
	ExternalRef string
	Type        PaymentMethodType
	Last4       string
	Brand       string
	IsDefault   bool
	Metadata    map[string]any
}

func (m *Manager) ListPaymentMethods(ctx context.Context, userID uint) ([]PaymentMethod, error) {
	var out []PaymentMethod
	err := m.db.WithContext(ctx).Where("user_id = ?", userID).Order("is_default DESC, id ASC").Find(&out).Error
	return out, err
}

// AddPaymentMethod stores a method for userID. The first method a user adds
// becomes the default.
func (m *Manager) AddPaymentMethod(ctx context.Context, userID uint, in PaymentMethodInput) (*PaymentMethod, error) {
	var pm *PaymentMethod
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		pm, err = upsertPaymentMethod(tx, userID, in)
		if err != nil {
			return err
		}
		return audit.Record(tx, audit.Subject{Kind: audit.SubjectPaymentMethod, ID: pm.ID}, userID, "payment_method.added", nil)
	})
	return pm, err
}

// AttachPaymentMethod mirrors a gateway attach into tx. A previously
// detached row with the same reference is restored instead of duplicated.
func AttachPaymentMethod(tx *gorm.DB, userID uint, in PaymentMethodInput) (*PaymentMethod, error) {
	return upsertPaymentMethod(tx, userID, in)
}

func upsertPaymentMethod(tx *gorm.DB, userID uint, in PaymentMethodInput) (*PaymentMethod, error) {
	if in.Type == "" {
		in.Type = MethodCard
	}

	var count int64
	if err := tx.Model(&PaymentMethod{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return nil, err
	}
	makeDefault := in.IsDefault || count == 0

	var pm PaymentMethod
	err := tx.Unscoped().Where("external_ref = ?", in.ExternalRef).First(&pm).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		pm = PaymentMethod{UserID: userID, ExternalRef: in.ExternalRef}
	case err != nil:
		return nil, err
	case pm.UserID != userID:
		return nil, ErrPaymentMethodNotFound
	}

	if makeDefault {
		if err := clearDefault(tx, userID); err != nil {
			return nil, err
		}
	}

	pm.Type = in.Type
	pm.Last4 = in.Last4
	pm.Brand = in.Brand
	pm.IsDefault = makeDefault || (pm.ID != 0 && pm.IsDefault && !pm.DeletedAt.Valid)
	pm.DeletedAt = gorm.DeletedAt{}
	if in.Metadata != nil {
		pm.Metadata = datatypes.JSONMap(in.Metadata)
	}
	if err := tx.Unscoped().Save(&pm).Error; err != nil {
		return nil, fmt.Errorf("save payment method: %w", err)
	}
	return &pm, nil
}

// DeletePaymentMethod removes one of the user's methods. The last remaining
// method cannot be deleted.
func (m *Manager) DeletePaymentMethod(ctx context.Context, userID, id uint) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var pm PaymentMethod
		err := tx.Where("id = ? AND user_id = ?", id, userID).First(&pm).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPaymentMethodNotFound
		}
		if err != nil {
			return err
		}

		var count int64
		if err := tx.Model(&PaymentMethod{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
			return err
		}
		if count <= 1 {
			return ErrLastPaymentMethod
		}

		if err := removePaymentMethod(tx, &pm); err != nil {
			return err
		}
		return audit.Record(tx, audit.Subject{Kind: audit.SubjectPaymentMethod, ID: pm.ID}, userID, "payment_method.deleted", nil)
	})
}

// DetachPaymentMethod soft-deletes the method the gateway reports as
// detached. found is false when no live row has that reference.
func DetachPaymentMethod(tx *gorm.DB, externalRef string) (pm *PaymentMethod, found bool, err error) {
	var row PaymentMethod
	err = tx.Where("external_ref = ?", externalRef).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if err := removePaymentMethod(tx, &row); err != nil {
		return nil, true, err
	}
	return &row, true, nil
}

func (m *Manager) SetDefaultPaymentMethod(ctx context.Context, userID, id uint) (*PaymentMethod, error) {
	var pm PaymentMethod
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("id = ? AND user_id = ?", id, userID).First(&pm).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPaymentMethodNotFound
		}
		if err != nil {
			return err
		}
		if err := clearDefault(tx, userID); err != nil {
			return err
		}
		pm.IsDefault = true
		return tx.Model(&pm).Update("is_default", true).Error
	})
	if err != nil {
		return nil, err
	}
	return &pm, nil
}

func clearDefault(tx *gorm.DB, userID uint) error {
	return tx.Model(&PaymentMethod{}).
		Where("user_id = ? AND is_default = ?", userID, true).
		Update("is_default", false).Error
}

// removePaymentMethod soft-deletes pm and hands the default flag to the
// oldest remaining method when pm held it.
func removePaymentMethod(tx *gorm.DB, pm *PaymentMethod) error {
	wasDefault := pm.IsDefault
	if err := tx.Model(&PaymentMethod{}).Where("id = ?", pm.ID).Update("is_default", false).Error; err != nil {
		return err
	}
	pm.IsDefault = false
	if err := tx.Delete(pm).Error; err != nil {
		return fmt.Errorf("delete payment method: %w", err)
	}
	if !wasDefault {
		return nil
	}

	var next PaymentMethod
	err := tx.Where("user_id = ?", pm.UserID).Order("id ASC").First(&next).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return tx.Model(&next).Update("is_default", true).Error
}
