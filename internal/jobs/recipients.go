// Package jobs holds the periodic maintenance passes and the cron scheduler
// that drives them in the server process.
package jobs

import (
	"context"

	"gorm.io/gorm"

	"tourism-app/internal/domain/users"
)

// recipients loads the users behind ids in one query.
func recipients(ctx context.Context, db *gorm.DB, ids []uint) (map[uint]users.User, error) {
	out := make(map[uint]users.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var list []users.User
	if err := db.WithContext(ctx).Where("id IN ?", ids).Find(&list).Error; err != nil {
		return nil, err
	}
	for _, u := range list {
		out[u.ID] = u
	}
	return out, nil
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok || id == 0 {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
