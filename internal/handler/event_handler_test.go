package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-feed-api/internal/feed"
	"github.com/noah-isme/campus-feed-api/internal/models"
	"github.com/noah-isme/campus-feed-api/internal/service"
	appErrors "github.com/noah-isme/campus-feed-api/pkg/errors"
	"github.com/noah-isme/campus-feed-api/pkg/export"
)

type fakeEventSrv struct {
	actor    *models.JWTClaims
	from, to *string
	created  service.CreateEventRequest
}

func (f *fakeEventSrv) Create(_ context.Context, actor *models.JWTClaims, req service.CreateEventRequest) ([]models.Event, error) {
	f.actor = actor
	f.created = req
	events := make([]models.Event, 0, len(req.Dates))
	for _, d := range req.Dates {
		events = append(events, models.Event{Title: req.Title, Date: d})
	}
	return events, nil
}

func (f *fakeEventSrv) List(_ context.Context, _ string, from, to *string) ([]models.Event, error) {
	f.from, f.to = from, to
	return []models.Event{}, nil
}

func (f *fakeEventSrv) Details(context.Context, string) (*service.EventDetails, error) {
	return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
}

func (f *fakeEventSrv) Update(_ context.Context, actor *models.JWTClaims, _ string, _ service.UpdateEventRequest) (*models.Event, error) {
	if actor.UserID != "owner" {
		return nil, appErrors.ErrForbidden
	}
	return &models.Event{}, nil
}

func (f *fakeEventSrv) Delete(context.Context, *models.JWTClaims, string) error {
	return nil
}

type fakeCalendarSrv struct{ date string }

func (f *fakeCalendarSrv) ICS(_ context.Context, eventID, date string) ([]byte, *service.CalendarEntry, error) {
	f.date = date
	return []byte("BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n"), &service.CalendarEntry{EventID: eventID, Date: "2024-05-10"}, nil
}

func (f *fakeCalendarSrv) GoogleCalendarURL(context.Context, string, string) (string, error) {
	return "https://calendar.google.com/calendar/render?action=TEMPLATE", nil
}

type fakeExportSrv struct {
	state  feed.ScreenState
	format export.Format
}

func (f *fakeExportSrv) ExportEvents(_ context.Context, _ string, state feed.ScreenState, format export.Format) (*service.ExportFile, error) {
	f.state = state
	f.format = format
	return &service.ExportFile{Filename: "events_20240510_100000.csv", ContentType: "text/csv", Data: []byte("date\n")}, nil
}

func TestEventHandlerCreateRequiresAuth(t *testing.T) {
	handler := NewEventHandler(&fakeEventSrv{}, nil, nil)
	c, rec := newTestContext(http.MethodPost, "/events", jsonBody(`{"title":"Expo"}`), nil)

	handler.Create(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestEventHandlerCreatePassesActor(t *testing.T) {
	srv := &fakeEventSrv{}
	handler := NewEventHandler(srv, nil, nil)
	c, rec := newTestContext(http.MethodPost, "/events",
		jsonBody(`{"title":"Expo","dates":["2024-05-10","2024-05-11"],"start_time":"9:00 AM"}`), testClaims())

	handler.Create(c)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "u1", srv.actor.UserID)
	assert.Equal(t, []string{"2024-05-10", "2024-05-11"}, srv.created.Dates)
}

func TestEventHandlerListForwardsRange(t *testing.T) {
	srv := &fakeEventSrv{}
	handler := NewEventHandler(srv, nil, nil)
	c, rec := newTestContext(http.MethodGet, "/events?from=2024-05-01", nil, testClaims())

	handler.List(c)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, srv.from)
	assert.Equal(t, "2024-05-01", *srv.from)
	assert.Nil(t, srv.to)
}

func TestEventHandlerGetAndUpdateErrors(t *testing.T) {
	handler := NewEventHandler(&fakeEventSrv{}, nil, nil)

	c, rec := newTestContext(http.MethodGet, "/events/missing", nil, nil)
	handler.Get(c)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	c, rec = newTestContext(http.MethodPut, "/events/e1", jsonBody(`{"title":"x"}`), testClaims())
	handler.Update(c)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestEventHandlerCalendarICS(t *testing.T) {
	calendar := &fakeCalendarSrv{}
	handler := NewEventHandler(nil, calendar, nil)
	c, rec := newTestContext(http.MethodGet, "/events/e1/calendar.ics?date=2024-05-10", nil, nil)
	c.AddParam("id", "e1")

	handler.CalendarICS(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2024-05-10", calendar.date)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/calendar")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "e1-2024-05-10.ics")
	assert.Contains(t, rec.Body.String(), "BEGIN:VCALENDAR")
}

func TestEventHandlerExportParsesScreenState(t *testing.T) {
	exports := &fakeExportSrv{}
	handler := NewEventHandler(nil, nil, exports)
	c, rec := newTestContext(http.MethodGet,
		"/events/export?format=csv&category=Educational&q=expo&date=Selected+Days&day=2024-05-10&day=2024-05-12&window_start=8:00+AM&window_end=noon", nil, testClaims())

	handler.Export(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, export.FormatCSV, exports.format)
	assert.Equal(t, models.Category("Educational"), exports.state.Category)
	assert.Equal(t, "expo", exports.state.Query)
	assert.Equal(t, feed.FilterSelectedDays, exports.state.Date.Kind)
	assert.Equal(t, []string{"2024-05-10", "2024-05-12"}, exports.state.Date.Days)
	require.NotNil(t, exports.state.Window)
	assert.Equal(t, "8:00 AM", exports.state.Window.Start)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "events_20240510_100000.csv")
}

func TestStateFromQuerySingleDayAndInvalidLabel(t *testing.T) {
	c, _ := newTestContext(http.MethodGet, "/events/export?day=2024-05-10", nil, nil)
	state, err := stateFromQuery(c)
	require.NoError(t, err)
	assert.Equal(t, feed.DateFilter{Kind: feed.FilterSpecificDay, Day: "2024-05-10"}, state.Date)
	assert.Nil(t, state.Window)

	c, _ = newTestContext(http.MethodGet, "/events/export?date=Someday", nil, nil)
	_, err = stateFromQuery(c)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}
