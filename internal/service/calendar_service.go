package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-feed-api/internal/feed"
	"github.com/noah-isme/campus-feed-api/internal/models"
	appErrors "github.com/noah-isme/campus-feed-api/pkg/errors"
)

const (
	calendarProductID  = "-//campus-feed-api//events//EN"
	googleCalendarBase = "https://calendar.google.com/calendar/render"
	googleDateLayout   = "20060102T150405Z"
)

type calendarEventSource interface {
	FindByID(ctx context.Context, id string) (*models.Event, error)
	ListSeries(ctx context.Context, seriesID string) ([]models.Event, error)
}

// CalendarEntry is one event day resolved to concrete instants.
type CalendarEntry struct {
	EventID     string    `json:"event_id"`
	Date        string    `json:"date"`
	Title       string    `json:"title"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Location    string    `json:"location,omitempty"`
	Description string    `json:"description,omitempty"`
	Organizer   string    `json:"organizer"`
	Link        string    `json:"link,omitempty"`
}

// CalendarService turns event days into calendar entries.
type CalendarService struct {
	events   calendarEventSource
	location *time.Location
	logger   *zap.Logger
	now      func() time.Time
}

// NewCalendarService constructs the service. Wall-clock times are interpreted in loc.
func NewCalendarService(events calendarEventSource, loc *time.Location, logger *zap.Logger) *CalendarService {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CalendarService{events: events, location: loc, logger: logger, now: time.Now}
}

// Entry resolves the event day. An empty date selects the record's own date;
// other dates must be days of the event series.
func (s *CalendarService) Entry(ctx context.Context, eventID, date string) (*CalendarEntry, error) {
	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}

	day := event.Date
	if strings.TrimSpace(date) != "" {
		norm, ok := feed.NormalizeISODate(date)
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid date %q", date))
		}
		if norm != event.Date {
			sibling, err := s.seriesDay(ctx, event, norm)
			if err != nil {
				return nil, err
			}
			event = sibling
		}
		day = norm
	}

	details := feed.EventSchedule(*event).EffectiveForDay(day)
	start, end, ok := feed.ResolveSpan(day, details.StartTime, details.EndTime, s.location)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "event has no readable start time")
	}

	entry := &CalendarEntry{
		EventID:     event.ID,
		Date:        day,
		Title:       event.Title,
		Start:       start,
		End:         end,
		Location:    calendarLocation(event.Appearance, details),
		Description: details.Description,
		Organizer:   event.Organizer,
		Link:        details.Link,
	}
	return entry, nil
}

// seriesDay returns the sibling record of event's series held on day.
func (s *CalendarService) seriesDay(ctx context.Context, event *models.Event, day string) (*models.Event, error) {
	if event.SeriesID != nil {
		series, err := s.events.ListSeries(ctx, *event.SeriesID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event series")
		}
		for i := range series {
			if series[i].Date == day {
				return &series[i], nil
			}
		}
	}
	return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("event does not take place on %s", day))
}

// calendarLocation prefers the venue unless the event is online only.
func calendarLocation(appearance models.Appearance, d feed.DayDetails) string {
	if appearance != models.AppearanceVirtual && strings.TrimSpace(d.Venue) != "" {
		return d.Venue
	}
	if d.Platform != "" {
		return d.Platform
	}
	return d.Link
}

func (e *CalendarEntry) details() string {
	lines := make([]string, 0, 3)
	if e.Description != "" {
		lines = append(lines, e.Description)
	}
	if e.Organizer != "" {
		lines = append(lines, "Organizer: "+e.Organizer)
	}
	if e.Link != "" && e.Link != e.Location {
		lines = append(lines, "Join: "+e.Link)
	}
	return strings.Join(lines, "\n")
}

// ICS renders the event day as an iCalendar document.
func (s *CalendarService) ICS(ctx context.Context, eventID, date string) ([]byte, *CalendarEntry, error) {
	entry, err := s.Entry(ctx, eventID, date)
	if err != nil {
		return nil, nil, err
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(calendarProductID)

	stamp := s.now().UTC()
	ev := cal.AddEvent(fmt.Sprintf("%s-%s@campus-feed", entry.EventID, entry.Date))
	ev.SetDtStampTime(stamp)
	ev.SetStartAt(entry.Start)
	ev.SetEndAt(entry.End)
	ev.SetSummary(entry.Title)
	if entry.Location != "" {
		ev.SetLocation(entry.Location)
	}
	if desc := entry.details(); desc != "" {
		ev.SetDescription(desc)
	}
	if entry.Link != "" {
		ev.SetURL(entry.Link)
	}
	return []byte(cal.Serialize()), entry, nil
}

// GoogleCalendarURL builds a prefilled Google Calendar template link.
func (s *CalendarService) GoogleCalendarURL(ctx context.Context, eventID, date string) (string, error) {
	entry, err := s.Entry(ctx, eventID, date)
	if err != nil {
		return "", err
	}
	q := url.Values{}
	q.Set("action", "TEMPLATE")
	q.Set("text", entry.Title)
	q.Set("dates", entry.Start.UTC().Format(googleDateLayout)+"/"+entry.End.UTC().Format(googleDateLayout))
	if desc := entry.details(); desc != "" {
		q.Set("details", desc)
	}
	if entry.Location != "" {
		q.Set("location", entry.Location)
	}
	return googleCalendarBase + "?" + q.Encode(), nil
}
