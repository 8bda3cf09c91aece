package destinations

import (
	"fmt"
	"regexp"
	"strings"

	"gorm.io/gorm"
)

var (
	nonSlug   = regexp.MustCompile(`[^a-z0-9\-]+`)
	multiDash = regexp.MustCompile(`-+`)
)

// MakeSlug generates a URL-safe base slug.
// Example: "Lake Bled Tour" -> "lake-bled-tour"
func MakeSlug(name string) string {
	base := strings.ToLower(strings.TrimSpace(name))
	base = strings.ReplaceAll(base, " ", "-")
	base = nonSlug.ReplaceAllString(base, "")
	base = multiDash.ReplaceAllString(base, "-")
	base = strings.Trim(base, "-")

	if base == "" {
		base = "destination"
	}
	return base
}

// UniqueSlug returns MakeSlug(name), suffixed with -2, -3... until no row of
// model (soft-deleted rows included) uses it.
func UniqueSlug(tx *gorm.DB, model any, name string) (string, error) {
	base := MakeSlug(name)
	slug := base
	for i := 2; ; i++ {
		var n int64
		if err := tx.Unscoped().Model(model).Where("slug = ?", slug).Count(&n).Error; err != nil {
			return "", err
		}
		if n == 0 {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", base, i)
	}
}
