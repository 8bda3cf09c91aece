package promotions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"tourism-app/internal/domain/audit"
)

var (
	ErrInvalidDiscount = errors.New("discount_percent must be greater than 0 and at most 100")
	ErrInvalidPeriod   = errors.New("end_date must be after start_date")
)

type Input struct {
	DestinationID   *uint
	Title           string
	Description     string
	DiscountPercent decimal.Decimal
	StartDate       time.Time
	EndDate         *time.Time
	IsActive        bool
}

var hundred = decimal.NewFromInt(100)

func (in Input) Validate() error {
	if !in.DiscountPercent.IsPositive() || in.DiscountPercent.GreaterThan(hundred) {
		return ErrInvalidDiscount
	}
	if in.EndDate != nil && !in.EndDate.After(in.StartDate) {
		return ErrInvalidPeriod
	}
	return nil
}

func Create(ctx context.Context, db *gorm.DB, providerID uint, in Input) (*Promotion, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	p := Promotion{ProviderID: providerID}
	p.apply(in)
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&p).Error; err != nil {
			return fmt.Errorf("create promotion: %w", err)
		}
		return audit.Record(tx, audit.Subject{Kind: audit.SubjectPromotion, ID: p.ID}, providerID, "promotion.created", nil)
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func Update(ctx context.Context, db *gorm.DB, p *Promotion, actorID uint, in Input) error {
	if err := in.Validate(); err != nil {
		return err
	}
	p.apply(in)
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(p).
			Select("destination_id", "title", "description", "discount_percent", "start_date", "end_date", "is_active").
			Updates(p).Error; err != nil {
			return err
		}
		return audit.Record(tx, audit.Subject{Kind: audit.SubjectPromotion, ID: p.ID}, actorID, "promotion.updated", nil)
	})
}

func Delete(ctx context.Context, db *gorm.DB, p *Promotion, actorID uint) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(p).Error; err != nil {
			return err
		}
		return audit.Record(tx, audit.Subject{Kind: audit.SubjectPromotion, ID: p.ID}, actorID, "promotion.deleted", nil)
	})
}

// ListRunning returns active promotions whose period contains now.
func ListRunning(ctx context.Context, db *gorm.DB, now time.Time, destinationID uint) ([]Promotion, error) {
	now = now.UTC()
	q := db.WithContext(ctx).
		Where("is_active = ? AND start_date <= ?", true, now).
		Where("end_date IS NULL OR end_date >= ?", now)
	if destinationID != 0 {
		q = q.Where("destination_id = ?", destinationID)
	}
	out := []Promotion{}
	err := q.Order("start_date DESC, id DESC").Find(&out).Error
	return out, err
}

func ListOwned(ctx context.Context, db *gorm.DB, providerID uint) ([]Promotion, error) {
	out := []Promotion{}
	err := db.WithContext(ctx).Where("provider_id = ?", providerID).Order("id DESC").Find(&out).Error
	return out, err
}

func (p *Promotion) apply(in Input) {
	p.DestinationID = in.DestinationID
	p.Title = in.Title
	p.Description = in.Description
	p.DiscountPercent = in.DiscountPercent
	p.StartDate = in.StartDate.UTC()
	p.EndDate = nil
	if in.EndDate != nil {
		end := in.EndDate.UTC()
		p.EndDate = &end
	}
	p.IsActive = in.IsActive
}
