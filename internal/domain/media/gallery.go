package media

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"tourism-app/internal/domain/audit"
)

var ErrReorderMismatch = errors.New("ids must list every image of the gallery exactly once")

// Append stores img at the end of its owner's gallery.
func Append(tx *gorm.DB, img *Image) error {
	var last struct{ Max *int }
	if err := tx.Model(&Image{}).
		Select("MAX(sort_index) AS max").
		Where("owner_kind = ? AND owner_id = ?", img.OwnerKind, img.OwnerID).
		Scan(&last).Error; err != nil {
		return err
	}
	img.SortIndex = 0
	if last.Max != nil {
		img.SortIndex = *last.Max + 1
	}
	if err := tx.Create(img).Error; err != nil {
		return fmt.Errorf("store image: %w", err)
	}
	return audit.Record(tx, audit.Subject{Kind: audit.SubjectImage, ID: img.ID}, img.UploadedBy, "image.uploaded", map[string]any{
		"owner_kind": string(img.OwnerKind),
		"owner_id":   img.OwnerID,
	})
}

func Remove(tx *gorm.DB, img *Image, actorID uint) error {
	if err := tx.Delete(img).Error; err != nil {
		return err
	}
	return audit.Record(tx, audit.Subject{Kind: audit.SubjectImage, ID: img.ID}, actorID, "image.deleted", map[string]any{
		"path": img.Path,
	})
}

// Reorder sets the gallery order of ref to ids.
func Reorder(tx *gorm.DB, ref OwnerRef, ids []uint) error {
	current, err := ListFor(tx, ref)
	if err != nil {
		return err
	}
	if len(current) != len(ids) {
		return ErrReorderMismatch
	}
	known := make(map[uint]bool, len(current))
	for _, img := range current {
		known[img.ID] = true
	}
	for _, id := range ids {
		if !known[id] {
			return ErrReorderMismatch
		}
		delete(known, id)
	}

	for i, id := range ids {
		if err := tx.Model(&Image{}).Where("id = ?", id).Update("sort_index", i).Error; err != nil {
			return err
		}
	}
	return nil
}
