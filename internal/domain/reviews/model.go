package reviews

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"tourism-app/internal/domain/audit"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

var ErrInvalidRating = errors.New("rating must be between 1 and 5")

type Review struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	DestinationID   uint       `gorm:"not null;index" json:"destination_id"`
	UserID          uint       `gorm:"not null;index" json:"user_id"`
	Rating          int        `gorm:"not null" json:"rating"`
	Comment         string     `gorm:"type:text" json:"comment,omitempty"`
	Status          Status     `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	ModeratedBy     *uint      `json:"moderated_by,omitempty"`
	ModeratedAt     *time.Time `json:"moderated_at,omitempty"`
	RejectionReason string     `json:"rejection_reason,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func Create(ctx context.Context, db *gorm.DB, r *Review) error {
	if r.Rating < 1 || r.Rating > 5 {
		return ErrInvalidRating
	}
	r.Status = StatusPending
	return db.WithContext(ctx).Create(r).Error
}

// Moderate approves or rejects a review. It returns gorm.ErrRecordNotFound
// for an unknown id.
func Moderate(ctx context.Context, db *gorm.DB, id, moderatorID uint, approve bool, reason string, now time.Time) (*Review, error) {
	var r Review
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&r, id).Error; err != nil {
			return err
		}
		r.Status = StatusRejected
		r.RejectionReason = reason
		if approve {
			r.Status = StatusApproved
			r.RejectionReason = ""
		}
		r.ModeratedBy = &moderatorID
		at := now.UTC()
		r.ModeratedAt = &at
		if err := tx.Model(&r).Select("status", "rejection_reason", "moderated_by", "moderated_at").Updates(&r).Error; err != nil {
			return err
		}
		return audit.Record(tx, audit.Subject{Kind: audit.SubjectReview, ID: r.ID}, moderatorID, "review."+string(r.Status), nil)
	})
	if err != nil {
		return nil, err
	}
	return &r, nil
}
