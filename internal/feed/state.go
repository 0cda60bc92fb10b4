package feed

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/noah-isme/campus-feed-api/internal/models"
)

// ScreenState is the complete, serializable selection of a feed screen.
type ScreenState struct {
	Category models.Category `json:"category,omitempty" yaml:"category,omitempty"`
	Query    string          `json:"query,omitempty" yaml:"query,omitempty"`
	Date     DateFilter      `json:"date" yaml:"date"`
	Window   *TimeWindow     `json:"window,omitempty" yaml:"window,omitempty"`
}

// SearchActive reports whether a text query is set.
func (s ScreenState) SearchActive() bool {
	return strings.TrimSpace(s.Query) != ""
}

// Normalize canonicalizes the category, date filter and window, rejecting
// values that cannot be interpreted.
func (s ScreenState) Normalize() (ScreenState, error) {
	out := s
	out.Query = strings.TrimSpace(s.Query)

	if s.Category == "" {
		out.Category = models.CategoryAll
	} else {
		category, ok := models.ParseCategory(string(s.Category))
		if !ok {
			return ScreenState{}, fmt.Errorf("unknown category %q", s.Category)
		}
		out.Category = category
	}

	switch s.Date.Kind {
	case "":
		out.Date = DateFilter{Kind: FilterAll}
	case FilterSpecificDay:
		day, ok := NormalizeISODate(s.Date.Day)
		if !ok {
			return ScreenState{}, fmt.Errorf("invalid specific day %q", s.Date.Day)
		}
		out.Date = DateFilter{Kind: FilterSpecificDay, Day: day}
	default:
		label := string(s.Date.Kind)
		if s.Date.Kind == FilterSelectedDays {
			label = s.Date.Label()
		}
		parsed, err := ParseDateFilter(label, s.Date.Days)
		if err != nil {
			return ScreenState{}, err
		}
		out.Date = parsed
	}

	if s.Window != nil {
		if !s.Window.Active() {
			return ScreenState{}, fmt.Errorf("invalid time window %q-%q", s.Window.Start, s.Window.End)
		}
		w := *s.Window
		out.Window = &w
	}
	return out, nil
}

// Key is a stable digest of the state, suitable for cache keys.
func (s ScreenState) Key() string {
	payload, _ := json.Marshal(s)
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:8])
}

// Snapshot is the set of records a view is derived from.
type Snapshot struct {
	Events        []models.Event        `json:"events" yaml:"events"`
	Announcements []models.Announcement `json:"announcements" yaml:"announcements"`
}

// Options tunes derivation limits.
type Options struct {
	SuggestionLimit  int
	BannerWindowDays int
}

// DefaultOptions returns the stock limits.
func DefaultOptions() Options {
	return Options{SuggestionLimit: DefaultSuggestionLimit, BannerWindowDays: DefaultBannerWindowDays}
}

// View is everything a feed screen renders for one state.
type View struct {
	Events        []models.Event        `json:"events"`
	Announcements []models.Announcement `json:"announcements"`
	Banner        []BannerItem          `json:"banner"`
	Suggestions   []Suggestion          `json:"suggestions"`
}

// Derive recomputes the whole view from scratch. It has no side effects and
// may be called on every snapshot or state change.
func Derive(state ScreenState, snap Snapshot, now time.Time, opts Options) View {
	if opts.SuggestionLimit <= 0 {
		opts.SuggestionLimit = DefaultSuggestionLimit
	}
	if opts.BannerWindowDays <= 0 {
		opts.BannerWindowDays = DefaultBannerWindowDays
	}

	view := View{
		Events:        FilterEvents(snap.Events, state, now),
		Announcements: FilterAnnouncements(snap.Announcements, state, now),
		Banner:        []BannerItem{},
		Suggestions:   Suggest(state.Query, snap.Events, snap.Announcements, opts.SuggestionLimit),
	}
	if !state.SearchActive() {
		view.Banner = RotationSet(snap.Events, snap.Announcements, now, opts.BannerWindowDays)
	}
	return view
}
