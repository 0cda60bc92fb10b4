// Package feed derives the filtered, searchable and rotating views of a
// university's events and announcements. Every function is pure: callers pass
// the record snapshot and "now" (with its location) explicitly.
package feed

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ISODate is the layout of stored calendar dates.
const ISODate = "2006-01-02"

const minutesPerDay = 24 * 60

// ParseClock parses "H:MM", "H:MM:SS" or "H:MM AM|PM" into minutes of the day.
// ok is false for blank or malformed input.
func ParseClock(raw string) (int, bool) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if s == "" {
		return 0, false
	}

	meridiem := ""
	for _, suffix := range []string{"AM", "PM"} {
		if strings.HasSuffix(s, suffix) {
			meridiem = suffix
			s = strings.TrimSpace(strings.TrimSuffix(s, suffix))
			break
		}
	}

	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, false
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, false
	}
	if len(parts[1]) != 2 {
		return 0, false
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, false
	}
	if len(parts) == 3 {
		sec, err := strconv.Atoi(parts[2])
		if err != nil || sec < 0 || sec > 59 {
			return 0, false
		}
	}

	if meridiem == "" {
		if hour < 0 || hour > 23 {
			return 0, false
		}
		return hour*60 + minute, true
	}
	if hour < 1 || hour > 12 {
		return 0, false
	}
	hour %= 12
	if meridiem == "PM" {
		hour += 12
	}
	return hour*60 + minute, true
}

// ParseTimeToMinutes returns the minute of day for a wall-clock string.
// Blank and malformed strings degrade to 0; use ParseClock when "unset" must
// be told apart from midnight.
func ParseTimeToMinutes(raw string) int {
	minutes, _ := ParseClock(raw)
	return minutes
}

// FormatMinutes renders a minute of day as "h:MM AM".
func FormatMinutes(minutes int) string {
	minutes = ((minutes % minutesPerDay) + minutesPerDay) % minutesPerDay
	hour, minute := minutes/60, minutes%60
	suffix := "AM"
	if hour >= 12 {
		suffix = "PM"
	}
	hour %= 12
	if hour == 0 {
		hour = 12
	}
	return fmt.Sprintf("%d:%02d %s", hour, minute, suffix)
}

// DurationMinutes returns the minutes between start and end. An end at or
// before the start is read as the next day.
func DurationMinutes(start, end string) (int, bool) {
	if strings.TrimSpace(start) == "" || strings.TrimSpace(end) == "" {
		return 0, false
	}
	s := ParseTimeToMinutes(start)
	e := ParseTimeToMinutes(end)
	if e <= s {
		e += minutesPerDay
	}
	return e - s, true
}

// ComputeDuration renders the span between two wall-clock strings as
// "{h}h {m}m", dropping a zero component. Blank input yields "".
func ComputeDuration(start, end string) string {
	total, ok := DurationMinutes(start, end)
	if !ok {
		return ""
	}
	return FormatDuration(total)
}

// FormatDuration renders a minute count as "{h}h {m}m".
func FormatDuration(total int) string {
	hours, minutes := total/60, total%60
	switch {
	case hours > 0 && minutes > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	case hours > 0:
		return fmt.Sprintf("%dh", hours)
	default:
		return fmt.Sprintf("%dm", minutes)
	}
}

// ResolveSpan combines an ISO date with start/end wall-clock strings into
// concrete instants in loc. A missing end yields a one hour span; an end at or
// before the start rolls over to the next day. ok is false when the date or
// start time cannot be read.
func ResolveSpan(date, start, end string, loc *time.Location) (time.Time, time.Time, bool) {
	if loc == nil {
		loc = time.Local
	}
	day, ok := ParseISODate(date, loc)
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	startMin, ok := ParseClock(start)
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	from := atClock(day, startMin, loc)
	endMin, ok := ParseClock(end)
	if !ok {
		return from, from.Add(time.Hour), true
	}
	endDay := day
	if endMin <= startMin {
		endDay = day.AddDate(0, 0, 1)
	}
	return from, atClock(endDay, endMin, loc), true
}

// atClock places a minute of day on the calendar day of day as wall-clock
// time in loc, so DST transitions do not shift it.
func atClock(day time.Time, minutes int, loc *time.Location) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, minutes/60, minutes%60, 0, 0, loc)
}

// ParseISODate reads the leading YYYY-MM-DD of raw as midnight in loc. Any
// trailing time component is ignored.
func ParseISODate(raw string, loc *time.Location) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if len(raw) < len(ISODate) {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(ISODate, raw[:len(ISODate)], loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// NormalizeISODate returns the canonical YYYY-MM-DD form of raw.
func NormalizeISODate(raw string) (string, bool) {
	t, ok := ParseISODate(raw, time.UTC)
	if !ok {
		return "", false
	}
	return t.Format(ISODate), true
}

// StartOfDay truncates t to local midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
