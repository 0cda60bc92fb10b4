package feed

import (
	"strings"

	"github.com/noah-isme/campus-feed-api/internal/models"
)

// DefaultSuggestionLimit caps suggestions across all classes.
const DefaultSuggestionLimit = 10

// SuggestionClass identifies which field produced a suggestion.
type SuggestionClass string

const (
	SuggestTitle             SuggestionClass = "title"
	SuggestOrganizer         SuggestionClass = "organizer"
	SuggestAnnouncementTitle SuggestionClass = "announcementTitle"
	SuggestAnnouncedFor      SuggestionClass = "announcedFor"
)

// Suggestion is a derived search hint.
type Suggestion struct {
	SourceID string          `json:"source_id" yaml:"source_id"`
	Title    string          `json:"title" yaml:"title"`
	Subtitle string          `json:"subtitle" yaml:"subtitle"`
	Class    SuggestionClass `json:"class" yaml:"class"`
}

type candidate struct {
	id, display, subtitle string
}

// Suggest scans event titles, organizers, announcement titles and audiences in
// that order, keeping the first occurrence of each display value per class,
// until limit entries are collected.
func Suggest(query string, events []models.Event, announcements []models.Announcement, limit int) []Suggestion {
	query = strings.TrimSpace(query)
	out := []Suggestion{}
	if query == "" {
		return out
	}
	if limit <= 0 {
		limit = DefaultSuggestionLimit
	}

	classes := []struct {
		class SuggestionClass
		items func(yield func(candidate) bool)
	}{
		{SuggestTitle, func(yield func(candidate) bool) {
			for _, e := range events {
				if !yield(candidate{e.ID, e.Title, e.Organizer}) {
					return
				}
			}
		}},
		{SuggestOrganizer, func(yield func(candidate) bool) {
			for _, e := range events {
				if !yield(candidate{e.ID, e.Organizer, e.Title}) {
					return
				}
			}
		}},
		{SuggestAnnouncementTitle, func(yield func(candidate) bool) {
			for _, a := range announcements {
				if !yield(candidate{a.ID, a.Title, a.AnnouncedFor}) {
					return
				}
			}
		}},
		{SuggestAnnouncedFor, func(yield func(candidate) bool) {
			for _, a := range announcements {
				if !yield(candidate{a.ID, a.AnnouncedFor, a.Title}) {
					return
				}
			}
		}},
	}

	for _, c := range classes {
		if len(out) >= limit {
			break
		}
		seen := make(map[string]struct{})
		c.items(func(cand candidate) bool {
			display := strings.TrimSpace(cand.display)
			if display == "" || !containsFold(display, query) {
				return true
			}
			key := strings.ToLower(display)
			if _, dup := seen[key]; dup {
				return true
			}
			seen[key] = struct{}{}
			out = append(out, Suggestion{SourceID: cand.id, Title: display, Subtitle: cand.subtitle, Class: c.class})
			return len(out) < limit
		})
	}
	return out
}
