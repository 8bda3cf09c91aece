package media

import (
	"time"

	"gorm.io/gorm"
)

type Image struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	OwnerKind  OwnerKind `gorm:"type:varchar(20);not null;index:idx_images_owner,priority:1" json:"owner_kind"`
	OwnerID    uint      `gorm:"not null;index:idx_images_owner,priority:2" json:"owner_id"`
	UploadedBy uint      `gorm:"not null;index" json:"uploaded_by"`
	Path       string    `gorm:"not null" json:"path"`
	MimeType   string    `gorm:"type:varchar(100);not null" json:"mime_type"`
	Size       int64     `gorm:"not null" json:"size"`
	SortIndex  int       `gorm:"not null;default:0" json:"sort_index"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (i Image) Owner() OwnerRef { return OwnerRef{Kind: i.OwnerKind, ID: i.OwnerID} }

func ListFor(tx *gorm.DB, ref OwnerRef) ([]Image, error) {
	var out []Image
	err := tx.Where("owner_kind = ? AND owner_id = ?", ref.Kind, ref.ID).
		Order("sort_index ASC, id ASC").
		Find(&out).Error
	return out, err
}
