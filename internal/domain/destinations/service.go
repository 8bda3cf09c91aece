package destinations

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"tourism-app/internal/domain/audit"
)

// Input carries the editable fields of a destination.
type Input struct {
	Name        string
	Description string
	Location    string
	Price       decimal.Decimal
	RegionID    *uint
	CategoryID  *uint
	IsPublished bool
}

func Create(ctx context.Context, db *gorm.DB, providerID uint, in Input) (*Destination, error) {
	d := Destination{ProviderID: providerID}
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		slug, err := UniqueSlug(tx, &Destination{}, in.Name)
		if err != nil {
			return err
		}
		d.Slug = slug
		d.apply(in)
		if err := tx.Create(&d).Error; err != nil {
			return fmt.Errorf("create destination: %w", err)
		}
		return audit.Record(tx, audit.Subject{Kind: audit.SubjectDestination, ID: d.ID}, providerID, "destination.created", nil)
	})
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Update rewrites d's fields. The slug follows a renamed destination.
func Update(ctx context.Context, db *gorm.DB, d *Destination, actorID uint, in Input) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if in.Name != d.Name {
			slug, err := UniqueSlug(tx, &Destination{}, in.Name)
			if err != nil {
				return err
			}
			d.Slug = slug
		}
		d.apply(in)
		if err := tx.Model(d).
			Select("name", "slug", "description", "location", "price", "region_id", "category_id", "is_published").
			Updates(d).Error; err != nil {
			return err
		}
		return audit.Record(tx, audit.Subject{Kind: audit.SubjectDestination, ID: d.ID}, actorID, "destination.updated", nil)
	})
}

func SetPublished(ctx context.Context, db *gorm.DB, d *Destination, actorID uint, published bool) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(d).Update("is_published", published).Error; err != nil {
			return err
		}
		d.IsPublished = published
		action := "destination.unpublished"
		if published {
			action = "destination.published"
		}
		return audit.Record(tx, audit.Subject{Kind: audit.SubjectDestination, ID: d.ID}, actorID, action, nil)
	})
}

// Delete soft-deletes d, which frees one slot of the provider's plan limit.
func Delete(ctx context.Context, db *gorm.DB, d *Destination, actorID uint) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(d).Error; err != nil {
			return err
		}
		return audit.Record(tx, audit.Subject{Kind: audit.SubjectDestination, ID: d.ID}, actorID, "destination.deleted", nil)
	})
}

// Filter narrows List. Zero fields match everything.
type Filter struct {
	ProviderID    uint
	RegionSlug    string
	CategorySlug  string
	PublishedOnly bool
	Page          int
	PerPage       int
}

func List(ctx context.Context, db *gorm.DB, f Filter) ([]Destination, int64, error) {
	scoped := func() *gorm.DB {
		q := db.WithContext(ctx).Model(&Destination{})
		if f.ProviderID != 0 {
			q = q.Where("destinations.provider_id = ?", f.ProviderID)
		}
		if f.PublishedOnly {
			q = q.Where("destinations.is_published = ?", true)
		}
		if f.RegionSlug != "" {
			q = q.Joins("JOIN regions ON regions.id = destinations.region_id").Where("regions.slug = ?", f.RegionSlug)
		}
		if f.CategorySlug != "" {
			q = q.Joins("JOIN categories ON categories.id = destinations.category_id").Where("categories.slug = ?", f.CategorySlug)
		}
		return q
	}

	var total int64
	if err := scoped().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, perPage := f.Page, f.PerPage
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	out := []Destination{}
	err := scoped().Preload("Region").Preload("Category").
		Order("destinations.created_at DESC, destinations.id DESC").
		Offset((page - 1) * perPage).Limit(perPage).
		Find(&out).Error
	return out, total, err
}

func (d *Destination) apply(in Input) {
	d.Name = in.Name
	d.Description = in.Description
	d.Location = in.Location
	d.Price = in.Price
	d.RegionID = in.RegionID
	d.CategoryID = in.CategoryID
	d.IsPublished = in.IsPublished
}
