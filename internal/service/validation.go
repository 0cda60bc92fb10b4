package service

import (
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/campus-feed-api/internal/feed"
	"github.com/noah-isme/campus-feed-api/internal/models"
)

// registerFeedValidations installs the tags shared by event and announcement
// payloads: category, appearance, priority, isodate and clock.
func registerFeedValidations(v *validator.Validate) {
	_ = v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		c, ok := models.ParseCategory(fl.Field().String())
		return ok && c != models.CategoryAll
	})
	_ = v.RegisterValidation("appearance", func(fl validator.FieldLevel) bool {
		switch models.Appearance(fl.Field().String()) {
		case models.AppearancePhysical, models.AppearanceVirtual, models.AppearanceBoth:
			return true
		default:
			return false
		}
	})
	_ = v.RegisterValidation("priority", func(fl validator.FieldLevel) bool {
		switch models.AnnouncementPriority(fl.Field().String()) {
		case models.AnnouncementPriorityUrgent, models.AnnouncementPriorityNotUrgent:
			return true
		default:
			return false
		}
	})
	_ = v.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
		raw := fl.Field().String()
		norm, ok := feed.NormalizeISODate(raw)
		return ok && norm == strings.TrimSpace(raw)
	})
	_ = v.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
		_, ok := feed.ParseClock(fl.Field().String())
		return ok
	})
}

func trimmedPtr(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
