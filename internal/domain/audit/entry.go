package audit

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SubjectKind tags what an entry is about. Together with SubjectID it forms
// a closed tagged union instead of a free-form model class name.
type SubjectKind string

const (
	SubjectSubscription  SubjectKind = "subscription"
	SubjectInvoice       SubjectKind = "invoice"
	SubjectPaymentMethod SubjectKind = "payment_method"
	SubjectDestination   SubjectKind = "destination"
	SubjectPromotion     SubjectKind = "promotion"
	SubjectReview        SubjectKind = "review"
	SubjectImage         SubjectKind = "image"
)

type Subject struct {
	Kind SubjectKind
	ID   uint
}

type Entry struct {
	ID          uint              `gorm:"primaryKey" json:"id"`
	SubjectKind SubjectKind       `gorm:"type:varchar(30);not null;index:idx_audit_entries_subject,priority:1" json:"subject_kind"`
	SubjectID   uint              `gorm:"not null;index:idx_audit_entries_subject,priority:2" json:"subject_id"`
	ActorID     *uint             `gorm:"index" json:"actor_id,omitempty"`
	Action      string            `gorm:"type:varchar(60);not null" json:"action"`
	Details     datatypes.JSONMap `json:"details,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

func (Entry) TableName() string { return "audit_entries" }

// Record appends an entry using tx, so it commits or rolls back together with
// the change it describes. A zero actor means the system (webhook, job).
func Record(tx *gorm.DB, subject Subject, actorID uint, action string, details map[string]any) error {
	e := Entry{
		SubjectKind: subject.Kind,
		SubjectID:   subject.ID,
		Action:      action,
		Details:     datatypes.JSONMap(details),
	}
	if actorID != 0 {
		e.ActorID = &actorID
	}
	return tx.Create(&e).Error
}

func ListFor(tx *gorm.DB, subject Subject) ([]Entry, error) {
	var out []Entry
	err := tx.Where("subject_kind = ? AND subject_id = ?", subject.Kind, subject.ID).
		Order("id ASC").
		Find(&out).Error
	return out, err
}
