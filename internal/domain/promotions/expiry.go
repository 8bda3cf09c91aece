package promotions

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"tourism-app/internal/domain/audit"
	"tourism-app/internal/infra/logger"
)

type ExpiredItem struct {
	ID         uint      `json:"id"`
	ProviderID uint      `json:"provider_id"`
	Title      string    `json:"title"`
	EndDate    time.Time `json:"end_date"`
}

type ExpiryReport struct {
	DryRun      bool          `json:"dry_run"`
	Deactivated int           `json:"deactivated"`
	Items       []ExpiredItem `json:"items"`
}

// ExpireDue deactivates active promotions whose end_date is before now.
// In dry-run mode it reports the same set without writing. Promotions
// without an end date are never selected.
func ExpireDue(ctx context.Context, db *gorm.DB, now time.Time, dryRun bool) (ExpiryReport, error) {
	log := logger.WithComponent("promotions.expiry")
	report := ExpiryReport{DryRun: dryRun, Items: []ExpiredItem{}}

	var due []Promotion
	if err := db.WithContext(ctx).
		Where("is_active = ? AND end_date IS NOT NULL AND end_date < ?", true, now.UTC()).
		Order("id ASC").
		Find(&due).Error; err != nil {
		return report, fmt.Errorf("select expired promotions: %w", err)
	}

	for _, p := range due {
		report.Items = append(report.Items, ExpiredItem{ID: p.ID, ProviderID: p.ProviderID, Title: p.Title, EndDate: *p.EndDate})
	}

	if dryRun {
		for _, it := range report.Items {
			log.Info("promotion would expire", "id", it.ID, "title", it.Title, "end_date", it.EndDate)
		}
		report.Deactivated = len(report.Items)
		log.Info("promotion expiry dry run finished", "would_deactivate", report.Deactivated)
		return report, nil
	}

	applied := report.Items[:0]
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, it := range report.Items {
			res := tx.Model(&Promotion{}).
				Where("id = ? AND is_active = ?", it.ID, true).
				Update("is_active", false)
			if res.Error != nil {
				return fmt.Errorf("deactivate promotion %d: %w", it.ID, res.Error)
			}
			// Lost a race with another sweep or an owner edit.
			if res.RowsAffected == 0 {
				continue
			}
			if err := audit.Record(tx, audit.Subject{Kind: audit.SubjectPromotion, ID: it.ID}, 0, "promotion.expired", map[string]any{
				"end_date": it.EndDate,
			}); err != nil {
				return err
			}
			applied = append(applied, it)
		}
		return nil
	})
	if err != nil {
		return ExpiryReport{DryRun: dryRun, Items: []ExpiredItem{}}, err
	}

	report.Items = applied
	report.Deactivated = len(applied)
	for _, it := range applied {
		log.Info("promotion expired", "id", it.ID, "title", it.Title, "end_date", it.EndDate)
	}
	log.Info("promotion expiry finished", "deactivated", report.Deactivated)
	return report, nil
}
