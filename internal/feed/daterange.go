package feed

import (
	"fmt"
	"strings"
	"time"
)

// FilterKind names a symbolic date window.
type FilterKind string

const (
	FilterAll          FilterKind = "All"
	FilterToday        FilterKind = "Today"
	FilterTomorrow     FilterKind = "Tomorrow"
	FilterThisWeek     FilterKind = "This Week"
	FilterThisMonth    FilterKind = "This Month"
	FilterNextMonth    FilterKind = "Next Month"
	FilterSpecificDay  FilterKind = "Specific Day"
	FilterSelectedDays FilterKind = "Selected Days"
)

// DateFilter is the serializable date selector of a screen. Selected days are
// carried by Days alone; the count shown to users is derived from it.
type DateFilter struct {
	Kind FilterKind `json:"kind" yaml:"kind"`
	Day  string     `json:"day,omitempty" yaml:"day,omitempty"`
	Days []string   `json:"days,omitempty" yaml:"days,omitempty"`
}

// Label renders the filter the way the feed header displays it.
func (f DateFilter) Label() string {
	switch f.Kind {
	case "":
		return string(FilterAll)
	case FilterSpecificDay:
		return fmt.Sprintf("%s: %s", FilterSpecificDay, f.Day)
	case FilterSelectedDays:
		return fmt.Sprintf("%s: %d days", FilterSelectedDays, len(f.Days))
	default:
		return string(f.Kind)
	}
}

// ParseDateFilter reads a filter label such as "This Week",
// "Specific Day: 2024-02-15" or "Selected Days: 3 days". For selected days the
// count embedded in the label is ignored and days is authoritative.
func ParseDateFilter(label string, days []string) (DateFilter, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return DateFilter{Kind: FilterAll}, nil
	}
	for _, kind := range []FilterKind{FilterAll, FilterToday, FilterTomorrow, FilterThisWeek, FilterThisMonth, FilterNextMonth} {
		if strings.EqualFold(label, string(kind)) {
			return DateFilter{Kind: kind}, nil
		}
	}
	if rest, ok := cutPrefixFold(label, string(FilterSpecificDay)); ok {
		rest = strings.TrimSpace(strings.TrimPrefix(rest, ":"))
		day, ok := NormalizeISODate(rest)
		if !ok {
			return DateFilter{}, fmt.Errorf("invalid specific day %q", rest)
		}
		return DateFilter{Kind: FilterSpecificDay, Day: day}, nil
	}
	if _, ok := cutPrefixFold(label, string(FilterSelectedDays)); ok {
		normalized := make([]string, 0, len(days))
		for _, d := range days {
			day, ok := NormalizeISODate(d)
			if !ok {
				return DateFilter{}, fmt.Errorf("invalid selected day %q", d)
			}
			normalized = append(normalized, day)
		}
		return DateFilter{Kind: FilterSelectedDays, Days: normalized}, nil
	}
	return DateFilter{}, fmt.Errorf("unknown date filter %q", label)
}

func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) < len(prefix) || !strings.EqualFold(s[:len(prefix)], prefix) {
		return s, false
	}
	return s[len(prefix):], true
}

// DatePredicate reports whether an ISO date belongs to a resolved filter.
type DatePredicate func(isoDate string) bool

// WeekBounds returns the Monday and Sunday of the ISO week containing now.
func WeekBounds(now time.Time) (time.Time, time.Time) {
	today := StartOfDay(now)
	offset := (int(today.Weekday()) + 6) % 7
	monday := today.AddDate(0, 0, -offset)
	return monday, monday.AddDate(0, 0, 6)
}

// MonthBounds returns the first and last day of the month containing t.
func MonthBounds(t time.Time) (time.Time, time.Time) {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return first, first.AddDate(0, 1, -1)
}

// Range returns the inclusive interval covered by f relative to now. bounded is
// false for All. Selected days resolve to the span of the list; membership
// still has to be checked with Resolve.
func Range(f DateFilter, now time.Time) (from, to time.Time, bounded bool) {
	loc := now.Location()
	today := StartOfDay(now)
	switch f.Kind {
	case FilterToday:
		return today, today, true
	case FilterTomorrow:
		tomorrow := today.AddDate(0, 0, 1)
		return tomorrow, tomorrow, true
	case FilterThisWeek:
		from, to = WeekBounds(now)
		return from, to, true
	case FilterThisMonth:
		from, to = MonthBounds(today)
		return from, to, true
	case FilterNextMonth:
		first, _ := MonthBounds(today)
		from, to = MonthBounds(first.AddDate(0, 1, 0))
		return from, to, true
	case FilterSpecificDay:
		day, ok := ParseISODate(f.Day, loc)
		if !ok {
			return time.Time{}, time.Time{}, true
		}
		return day, day, true
	case FilterSelectedDays:
		first := true
		for _, raw := range f.Days {
			day, ok := ParseISODate(raw, loc)
			if !ok {
				continue
			}
			if first || day.Before(from) {
				from = day
			}
			if first || day.After(to) {
				to = day
			}
			first = false
		}
		return from, to, true
	default:
		return time.Time{}, time.Time{}, false
	}
}

// Resolve turns f into a predicate over ISO dates, anchored to now's local
// calendar day. Comparisons are made on whole days.
func Resolve(f DateFilter, now time.Time) DatePredicate {
	loc := now.Location()
	switch f.Kind {
	case "", FilterAll:
		return func(string) bool { return true }
	case FilterSelectedDays:
		set := make(map[string]struct{}, len(f.Days))
		for _, raw := range f.Days {
			if day, ok := ParseISODate(raw, loc); ok {
				set[day.Format(ISODate)] = struct{}{}
			}
		}
		return func(iso string) bool {
			day, ok := ParseISODate(iso, loc)
			if !ok {
				return false
			}
			_, hit := set[day.Format(ISODate)]
			return hit
		}
	case FilterToday, FilterTomorrow, FilterThisWeek, FilterThisMonth, FilterNextMonth, FilterSpecificDay:
		from, to, _ := Range(f, now)
		if from.IsZero() {
			return func(string) bool { return false }
		}
		return func(iso string) bool {
			day, ok := ParseISODate(iso, loc)
			if !ok {
				return false
			}
			return !day.Before(from) && !day.After(to)
		}
	default:
		return func(string) bool { return false }
	}
}
