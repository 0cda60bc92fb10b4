package models

import "strings"

// Category classifies events and announcements.
type Category string

const (
	CategoryAll           Category = "All"
	CategoryGeneral       Category = "General"
	CategoryEntertainment Category = "Entertainment"
	CategoryEducational   Category = "Educational"
	CategoryPolitical     Category = "Political"
	CategoryReligious     Category = "Religious"
)

// Categories lists the categories a record may carry. All is a filter value only.
var Categories = []Category{
	CategoryGeneral,
	CategoryEntertainment,
	CategoryEducational,
	CategoryPolitical,
	CategoryReligious,
}

// ParseCategory resolves a label case-insensitively.
func ParseCategory(raw string) (Category, bool) {
	raw = strings.TrimSpace(raw)
	if strings.EqualFold(raw, string(CategoryAll)) {
		return CategoryAll, true
	}
	for _, c := range Categories {
		if strings.EqualFold(raw, string(c)) {
			return c, true
		}
	}
	return "", false
}
