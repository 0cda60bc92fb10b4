package feed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/campus-feed-api/internal/models"
)

func sampleEvents() []models.Event {
	return []models.Event{
		{ID: "e1", Title: "Robotics Expo", Organizer: "Engineering Club", Category: models.CategoryEducational, Date: "2024-05-10", StartTime: "9:00 AM", EndTime: "12:00 PM"},
		{ID: "e2", Title: "Night Concert", Organizer: "Music Society", Category: models.CategoryEntertainment, Date: "2024-05-10", StartTime: "11:00 PM", EndTime: "1:00 AM"},
		{ID: "e3", Title: "Debate Finals", Organizer: "Student Council", Category: models.CategoryPolitical, Date: "2024-05-20", StartTime: "14:00", EndTime: "16:00"},
		{ID: "e4", Title: "Prayer Meet", Organizer: "Campus Ministry", Category: models.CategoryReligious, Date: "2024-05-11", StartTime: ""},
		{ID: "e5", Title: "Robot Wars", Organizer: "Engineering Club", Category: models.CategoryEntertainment, Date: "2024-05-11", StartTime: "7:00 PM",
			PerDayTimes: models.TimeOverrides{"2024-05-11": {Start: "8:00 AM", End: "10:00 AM"}}},
	}
}

func ids[T any](items []T, id func(T) string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, id(item))
	}
	return out
}

func eventIDs(items []models.Event) []string {
	return ids(items, func(e models.Event) string { return e.ID })
}

func TestFilterEventsIdentityFilters(t *testing.T) {
	now := at(2024, time.May, 10)
	got := FilterEvents(sampleEvents(), ScreenState{Category: models.CategoryAll, Date: DateFilter{Kind: FilterAll}}, now)
	assert.Equal(t, []string{"e1", "e2", "e3", "e4", "e5"}, eventIDs(got))
}

func TestFilterEventsCategoryAndSearch(t *testing.T) {
	now := at(2024, time.May, 10)

	got := FilterEvents(sampleEvents(), ScreenState{Category: models.CategoryEntertainment}, now)
	assert.Equal(t, []string{"e2", "e5"}, eventIDs(got))

	got = FilterEvents(sampleEvents(), ScreenState{Query: "  engineering "}, now)
	assert.Equal(t, []string{"e1", "e5"}, eventIDs(got))

	got = FilterEvents(sampleEvents(), ScreenState{Query: "ROBO", Category: models.CategoryEducational}, now)
	assert.Equal(t, []string{"e1"}, eventIDs(got))
}

func TestFilterEventsDateRange(t *testing.T) {
	now := at(2024, time.May, 10)

	got := FilterEvents(sampleEvents(), ScreenState{Date: DateFilter{Kind: FilterTomorrow}}, now)
	assert.Equal(t, []string{"e4", "e5"}, eventIDs(got))

	got = FilterEvents(sampleEvents(), ScreenState{Date: DateFilter{Kind: FilterSelectedDays, Days: []string{"2024-05-20", "2024-05-10"}}}, now)
	assert.Equal(t, []string{"e1", "e2", "e3"}, eventIDs(got))
}

func TestFilterEventsTimeWindowUsesEffectiveStart(t *testing.T) {
	now := at(2024, time.May, 10)

	got := FilterEvents(sampleEvents(), ScreenState{Window: &TimeWindow{Start: "8:00 AM", End: "10:00 AM"}}, now)
	assert.Equal(t, []string{"e1", "e5"}, eventIDs(got))

	got = FilterEvents(sampleEvents(), ScreenState{Window: &TimeWindow{Start: "10:00 PM", End: "2:00 AM"}}, now)
	assert.Equal(t, []string{"e2"}, eventIDs(got))

	got = FilterEvents(sampleEvents(), ScreenState{Window: &TimeWindow{Start: "12:00 PM", End: "12:00 PM"}}, now)
	assert.Empty(t, got)
}

func TestTimeWindowContainsWrapsPastMidnight(t *testing.T) {
	overnight := &TimeWindow{Start: "10:00 PM", End: "2:00 AM"}
	cases := map[string]bool{
		"10:00 PM": true,
		"11:00 PM": true,
		"12:00 AM": true,
		"2:00 AM":  true,
		"2:01 AM":  false,
		"9:59 PM":  false,
		"12:00 PM": false,
		"":         false,
	}
	for start, want := range cases {
		assert.Equal(t, want, overnight.Contains(start), start)
	}

	daytime := &TimeWindow{Start: "9:00 AM", End: "5:00 PM"}
	assert.True(t, daytime.Contains("9:00 AM"))
	assert.True(t, daytime.Contains("5:00 PM"))
	assert.False(t, daytime.Contains("11:00 PM"))
}

func TestFilterEventsOrderIndependentContent(t *testing.T) {
	now := at(2024, time.May, 10)
	events := sampleEvents()

	byCategory := Keep(func(e models.Event) bool { return e.Category == models.CategoryEntertainment })
	byDate := Keep(func(e models.Event) bool { return Resolve(DateFilter{Kind: FilterTomorrow}, now)(e.Date) })

	assert.ElementsMatch(t, eventIDs(Apply(events, byCategory, byDate)), eventIDs(Apply(events, byDate, byCategory)))
}

func TestApplyShortCircuitsOnEmpty(t *testing.T) {
	called := false
	never := func(items []int) []int {
		called = true
		return items
	}
	got := Apply([]int{1, 2}, Keep(func(int) bool { return false }), never)
	assert.Empty(t, got)
	assert.NotNil(t, got)
	assert.False(t, called)

	assert.NotNil(t, Apply[int](nil))
}

func TestFilterAnnouncementsDateBound(t *testing.T) {
	now := at(2024, time.May, 10)
	items := []models.Announcement{
		{ID: "a1", Title: "Library hours", AnnouncedFor: "All students", Category: models.CategoryGeneral},
		{ID: "a2", Title: "Exam schedule", AnnouncedFor: "Final year", Category: models.CategoryEducational, HasDateTime: true,
			Dates: []string{"2024-05-10", "2024-05-12"}, FromTime: "8:00 AM", ToTime: "10:00 AM",
			PerDateTimes: models.TimeOverrides{"2024-05-12": {Start: "1:00 PM", End: "3:00 PM"}}},
		{ID: "a3", Title: "Chapel", AnnouncedFor: "Freshmen", Category: models.CategoryReligious, HasDateTime: false, Dates: []string{"2024-05-10"}},
	}
	announcementIDs := func(items []models.Announcement) []string {
		return ids(items, func(a models.Announcement) string { return a.ID })
	}

	assert.Equal(t, []string{"a1", "a2", "a3"}, announcementIDs(FilterAnnouncements(items, ScreenState{}, now)))
	assert.Equal(t, []string{"a2"}, announcementIDs(FilterAnnouncements(items, ScreenState{Date: DateFilter{Kind: FilterToday}}, now)))
	assert.Equal(t, []string{"a2"}, announcementIDs(FilterAnnouncements(items, ScreenState{Query: "final"}, now)))

	afternoon := &TimeWindow{Start: "12:00 PM", End: "5:00 PM"}
	assert.Equal(t, []string{"a2"}, announcementIDs(FilterAnnouncements(items, ScreenState{Window: afternoon}, now)))
	assert.Empty(t, FilterAnnouncements(items, ScreenState{Window: afternoon, Date: DateFilter{Kind: FilterToday}}, now))
}
