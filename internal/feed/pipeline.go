package feed

import (
	"strings"
	"time"

	"github.com/noah-isme/campus-feed-api/internal/models"
)

// Stage narrows an ordered sequence without reordering it.
type Stage[T any] func(items []T) []T

// Keep builds a stage from a predicate.
func Keep[T any](pred func(T) bool) Stage[T] {
	return func(items []T) []T {
		out := make([]T, 0, len(items))
		for _, item := range items {
			if pred(item) {
				out = append(out, item)
			}
		}
		return out
	}
}

// Apply runs the stages in order. An empty intermediate result ends the chain.
func Apply[T any](items []T, stages ...Stage[T]) []T {
	out := items
	for _, stage := range stages {
		if len(out) == 0 {
			return []T{}
		}
		if stage == nil {
			continue
		}
		out = stage(out)
	}
	if out == nil {
		return []T{}
	}
	return out
}

// TimeWindow keeps items whose effective start falls within [Start, End]. A
// window whose start is after its end spans midnight.
type TimeWindow struct {
	Start string `json:"start" yaml:"start"`
	End   string `json:"end" yaml:"end"`
}

// Active reports whether both bounds parse.
func (w *TimeWindow) Active() bool {
	if w == nil {
		return false
	}
	_, sok := ParseClock(w.Start)
	_, eok := ParseClock(w.End)
	return sok && eok
}

// Contains reports whether the wall-clock start falls inside the window. A
// blank or unreadable start never matches.
func (w *TimeWindow) Contains(start string) bool {
	minute, ok := ParseClock(start)
	if !ok {
		return false
	}
	lo, _ := ParseClock(w.Start)
	hi, _ := ParseClock(w.End)
	if lo <= hi {
		return minute >= lo && minute <= hi
	}
	return minute >= lo || minute <= hi
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func categoryStage[T any](category models.Category, get func(T) models.Category) Stage[T] {
	if category == "" || category == models.CategoryAll {
		return nil
	}
	return Keep(func(item T) bool { return get(item) == category })
}

func searchStage[T any](query string, fields func(T) []string) Stage[T] {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}
	return Keep(func(item T) bool {
		for _, f := range fields(item) {
			if containsFold(f, query) {
				return true
			}
		}
		return false
	})
}

// FilterEvents applies category, search, date and time-of-day stages.
func FilterEvents(events []models.Event, state ScreenState, now time.Time) []models.Event {
	stages := []Stage[models.Event]{
		categoryStage(state.Category, func(e models.Event) models.Category { return e.Category }),
		searchStage(state.Query, func(e models.Event) []string { return []string{e.Title, e.Organizer} }),
	}
	if state.Date.Kind != "" && state.Date.Kind != FilterAll {
		match := Resolve(state.Date, now)
		stages = append(stages, Keep(func(e models.Event) bool { return match(e.Date) }))
	}
	if state.Window.Active() {
		window := state.Window
		stages = append(stages, Keep(func(e models.Event) bool {
			return window.Contains(EventSchedule(e).EffectiveForDay(e.Date).StartTime)
		}))
	}
	return Apply(events, stages...)
}

// FilterAnnouncements applies the same stages to announcements. Announcements
// without dates only survive an All date filter and no time window.
func FilterAnnouncements(items []models.Announcement, state ScreenState, now time.Time) []models.Announcement {
	stages := []Stage[models.Announcement]{
		categoryStage(state.Category, func(a models.Announcement) models.Category { return a.Category }),
		searchStage(state.Query, func(a models.Announcement) []string { return []string{a.Title, a.AnnouncedFor} }),
	}
	match := func(string) bool { return true }
	if state.Date.Kind != "" && state.Date.Kind != FilterAll {
		match = Resolve(state.Date, now)
		stages = append(stages, Keep(func(a models.Announcement) bool {
			if !dated(a) {
				return false
			}
			for _, d := range a.Dates {
				if match(d) {
					return true
				}
			}
			return false
		}))
	}
	if state.Window.Active() {
		window := state.Window
		stages = append(stages, Keep(func(a models.Announcement) bool {
			if !dated(a) {
				return false
			}
			schedule := AnnouncementSchedule(a)
			for _, d := range a.Dates {
				if match(d) && window.Contains(schedule.EffectiveForDay(d).StartTime) {
					return true
				}
			}
			return false
		}))
	}
	return Apply(items, stages...)
}

func dated(a models.Announcement) bool {
	return a.HasDateTime && len(a.Dates) > 0
}
