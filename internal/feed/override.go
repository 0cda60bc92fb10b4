package feed

import (
	"strings"

	"github.com/noah-isme/campus-feed-api/internal/models"
)

// DayDetails is the resolved schedule of a record on one calendar day. Empty
// strings mean the field is absent.
type DayDetails struct {
	StartTime   string `json:"start_time,omitempty" yaml:"start_time,omitempty"`
	EndTime     string `json:"end_time,omitempty" yaml:"end_time,omitempty"`
	Venue       string `json:"venue,omitempty" yaml:"venue,omitempty"`
	Platform    string `json:"platform,omitempty" yaml:"platform,omitempty"`
	Link        string `json:"link,omitempty" yaml:"link,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// DayOverride holds the partial replacements for one date. Blank fields fall
// back to the record default.
type DayOverride DayDetails

// Schedule pairs record-level defaults with per-date overrides.
type Schedule struct {
	Default   DayDetails
	Overrides map[string]DayOverride
}

// EffectiveForDay merges the override for date, if any, over the default.
func (s Schedule) EffectiveForDay(date string) DayDetails {
	out := s.Default
	o, ok := s.Overrides[date]
	if !ok {
		return out
	}
	out.StartTime = pick(o.StartTime, out.StartTime)
	out.EndTime = pick(o.EndTime, out.EndTime)
	out.Venue = pick(o.Venue, out.Venue)
	out.Platform = pick(o.Platform, out.Platform)
	out.Link = pick(o.Link, out.Link)
	out.Description = pick(o.Description, out.Description)
	return out
}

func pick(override, fallback string) string {
	if strings.TrimSpace(override) != "" {
		return override
	}
	return fallback
}

// DaysHaveUniformTime reports whether every date resolves to the same start
// and end time.
func DaysHaveUniformTime(dates []string, s Schedule) bool {
	var first DayDetails
	for i, d := range dates {
		eff := s.EffectiveForDay(d)
		if i == 0 {
			first = eff
			continue
		}
		if !sameClock(eff.StartTime, first.StartTime) || !sameClock(eff.EndTime, first.EndTime) {
			return false
		}
	}
	return true
}

// DaysHaveUniformVenue reports whether the explicit venue overrides of the
// listed dates agree. Dates without a venue override are not compared.
func DaysHaveUniformVenue(dates []string, s Schedule) bool {
	seen := ""
	for _, d := range dates {
		venue := strings.TrimSpace(s.Overrides[d].Venue)
		if venue == "" {
			continue
		}
		if seen == "" {
			seen = venue
			continue
		}
		if !strings.EqualFold(seen, venue) {
			return false
		}
	}
	return true
}

func sameClock(a, b string) bool {
	am, aok := ParseClock(a)
	bm, bok := ParseClock(b)
	if aok != bok {
		return false
	}
	if !aok {
		return strings.TrimSpace(a) == strings.TrimSpace(b)
	}
	return am == bm
}

// EventSchedule builds the schedule of an event row. Venue data is dropped for
// virtual events.
func EventSchedule(e models.Event) Schedule {
	def := DayDetails{
		StartTime:   e.StartTime,
		EndTime:     e.EndTime,
		Venue:       deref(e.VisibleVenue()),
		Platform:    deref(e.Platform),
		Link:        deref(e.Link),
		Description: e.Description,
	}
	overrides := make(map[string]DayOverride)
	for date, pair := range e.PerDayTimes {
		o := overrides[date]
		o.StartTime, o.EndTime = pair.Start, pair.End
		overrides[date] = o
	}
	if e.Appearance != models.AppearanceVirtual {
		for date, venue := range e.PerDayVenues {
			o := overrides[date]
			o.Venue = venue
			overrides[date] = o
		}
	}
	for date, desc := range e.PerDayDescriptions {
		o := overrides[date]
		o.Description = desc
		overrides[date] = o
	}
	return Schedule{Default: def, Overrides: overrides}
}

// AnnouncementSchedule builds the schedule of an announcement row.
func AnnouncementSchedule(a models.Announcement) Schedule {
	overrides := make(map[string]DayOverride, len(a.PerDateTimes))
	for date, pair := range a.PerDateTimes {
		overrides[date] = DayOverride{StartTime: pair.Start, EndTime: pair.End}
	}
	return Schedule{
		Default:   DayDetails{StartTime: a.FromTime, EndTime: a.ToTime},
		Overrides: overrides,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

type field struct {
	get func(DayDetails) string
	set func(*DayDetails, string)
}

var prunedFields = []field{
	{
		get: func(d DayDetails) string { return d.StartTime + "\x00" + d.EndTime },
		set: func(d *DayDetails, v string) {
			d.StartTime, d.EndTime, _ = strings.Cut(v, "\x00")
		},
	},
	{get: func(d DayDetails) string { return d.Venue }, set: func(d *DayDetails, v string) { d.Venue = v }},
	{get: func(d DayDetails) string { return d.Platform }, set: func(d *DayDetails, v string) { d.Platform = v }},
	{get: func(d DayDetails) string { return d.Link }, set: func(d *DayDetails, v string) { d.Link = v }},
	{get: func(d DayDetails) string { return d.Description }, set: func(d *DayDetails, v string) { d.Description = v }},
}

// PruneOverrides computes the effective default of a multi-date record and the
// minimal set of overrides needed to reproduce every day. For each field the
// most common resolved value becomes the default (ties keep the submitted
// default, then the earliest listed date); only dates that still differ keep an
// override. A field is not promoted when some day resolves to an empty value,
// since an empty override cannot express "absent".
func PruneOverrides(dates []string, s Schedule) Schedule {
	resolved := make([]DayDetails, len(dates))
	for i, d := range dates {
		resolved[i] = s.EffectiveForDay(d)
	}

	def := s.Default
	for _, f := range prunedFields {
		if v, ok := plurality(resolved, f, f.get(s.Default)); ok {
			f.set(&def, v)
		}
	}

	overrides := make(map[string]DayOverride)
	for i, d := range dates {
		var o DayDetails
		changed := false
		for _, f := range prunedFields {
			v := f.get(resolved[i])
			if v != f.get(def) {
				f.set(&o, v)
				changed = true
			}
		}
		if changed {
			overrides[d] = DayOverride(o)
		}
	}
	if len(overrides) == 0 {
		overrides = nil
	}
	return Schedule{Default: def, Overrides: overrides}
}

func plurality(resolved []DayDetails, f field, current string) (string, bool) {
	if len(resolved) == 0 {
		return "", false
	}
	counts := make(map[string]int, len(resolved))
	order := make([]string, 0, len(resolved))
	for _, r := range resolved {
		v := f.get(r)
		if v == "" || strings.HasPrefix(v, "\x00") {
			return "", false
		}
		if counts[v] == 0 {
			order = append(order, v)
		}
		counts[v]++
	}
	best, bestCount := "", 0
	for _, v := range order {
		if counts[v] > bestCount {
			best, bestCount = v, counts[v]
		}
	}
	if counts[current] == bestCount {
		return current, true
	}
	return best, true
}

// EventColumns splits a schedule's overrides into the persisted per-day maps.
func EventColumns(overrides map[string]DayOverride) (models.TimeOverrides, models.TextOverrides, models.TextOverrides) {
	times := models.TimeOverrides{}
	venues := models.TextOverrides{}
	descriptions := models.TextOverrides{}
	for date, o := range overrides {
		if o.StartTime != "" || o.EndTime != "" {
			times[date] = models.TimePair{Start: o.StartTime, End: o.EndTime}
		}
		if o.Venue != "" {
			venues[date] = o.Venue
		}
		if o.Description != "" {
			descriptions[date] = o.Description
		}
	}
	return nilIfEmpty(times), nilIfEmptyText(venues), nilIfEmptyText(descriptions)
}

// AnnouncementColumns extracts the per-date time map of an announcement.
func AnnouncementColumns(overrides map[string]DayOverride) models.TimeOverrides {
	times, _, _ := EventColumns(overrides)
	return times
}

func nilIfEmpty(m models.TimeOverrides) models.TimeOverrides {
	if len(m) == 0 {
		return nil
	}
	return m
}

func nilIfEmptyText(m models.TextOverrides) models.TextOverrides {
	if len(m) == 0 {
		return nil
	}
	return m
}
