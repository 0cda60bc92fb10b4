package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-feed-api/internal/feed"
	"github.com/noah-isme/campus-feed-api/internal/models"
	"github.com/noah-isme/campus-feed-api/internal/service"
	appErrors "github.com/noah-isme/campus-feed-api/pkg/errors"
	"github.com/noah-isme/campus-feed-api/pkg/export"
	"github.com/noah-isme/campus-feed-api/pkg/response"
)

type eventService interface {
	Create(ctx context.Context, actor *models.JWTClaims, req service.CreateEventRequest) ([]models.Event, error)
	List(ctx context.Context, universityID string, from, to *string) ([]models.Event, error)
	Details(ctx context.Context, id string) (*service.EventDetails, error)
	Update(ctx context.Context, actor *models.JWTClaims, id string, req service.UpdateEventRequest) (*models.Event, error)
	Delete(ctx context.Context, actor *models.JWTClaims, id string) error
}

type calendarService interface {
	ICS(ctx context.Context, eventID, date string) ([]byte, *service.CalendarEntry, error)
	GoogleCalendarURL(ctx context.Context, eventID, date string) (string, error)
}

type exportService interface {
	ExportEvents(ctx context.Context, universityID string, state feed.ScreenState, format export.Format) (*service.ExportFile, error)
}

// EventHandler manages event endpoints.
type EventHandler struct {
	events   eventService
	calendar calendarService
	exports  exportService
}

// NewEventHandler constructs the handler.
func NewEventHandler(events eventService, calendar calendarService, exports exportService) *EventHandler {
	return &EventHandler{events: events, calendar: calendar, exports: exports}
}

// List godoc
// @Summary List events
// @Tags Events
// @Produce json
// @Param university_id query string false "University (defaults to the caller's)"
// @Param from query string false "First date (YYYY-MM-DD)"
// @Param to query string false "Last date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /events [get]
func (h *EventHandler) List(c *gin.Context) {
	universityID, ok := universityScope(c)
	if !ok {
		return
	}
	events, err := h.events.List(c.Request.Context(), universityID, optionalQuery(c, "from"), optionalQuery(c, "to"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, events, nil)
}

// Create godoc
// @Summary Publish an event
// @Description Creates one record per date; dates come from the list or the recurrence rule
// @Tags Events
// @Accept json
// @Produce json
// @Param payload body service.CreateEventRequest true "Event payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /events [post]
func (h *EventHandler) Create(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	var req service.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Invalid(err, "invalid event payload"))
		return
	}
	events, err := h.events.Create(c.Request.Context(), claims, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, events)
}

// Get godoc
// @Summary Get event details
// @Tags Events
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /events/{id} [get]
func (h *EventHandler) Get(c *gin.Context) {
	details, err := h.events.Details(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, details, nil)
}

// Update godoc
// @Summary Update an event
// @Tags Events
// @Accept json
// @Produce json
// @Param id path string true "Event ID"
// @Param payload body service.UpdateEventRequest true "Event payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /events/{id} [put]
func (h *EventHandler) Update(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	var req service.UpdateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Invalid(err, "invalid event payload"))
		return
	}
	event, err := h.events.Update(c.Request.Context(), claims, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, event, nil)
}

// Delete godoc
// @Summary Delete an event
// @Tags Events
// @Param id path string true "Event ID"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /events/{id} [delete]
func (h *EventHandler) Delete(c *gin.Context) {
	claims, ok := requireClaims(c)
	if !ok {
		return
	}
	if err := h.events.Delete(c.Request.Context(), claims, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// CalendarICS godoc
// @Summary Download an event day as iCalendar
// @Tags Events
// @Produce text/calendar
// @Param id path string true "Event ID"
// @Param date query string false "Day of the event (YYYY-MM-DD)"
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Router /events/{id}/calendar.ics [get]
func (h *EventHandler) CalendarICS(c *gin.Context) {
	data, entry, err := h.calendar.ICS(c.Request.Context(), c.Param("id"), strings.TrimSpace(c.Query("date")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, fmt.Sprintf("%s-%s.ics", entry.EventID, entry.Date), "text/calendar; charset=utf-8", data)
}

// CalendarLink godoc
// @Summary Google Calendar template link for an event day
// @Tags Events
// @Produce json
// @Param id path string true "Event ID"
// @Param date query string false "Day of the event (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /events/{id}/calendar-link [get]
func (h *EventHandler) CalendarLink(c *gin.Context) {
	link, err := h.calendar.GoogleCalendarURL(c.Request.Context(), c.Param("id"), strings.TrimSpace(c.Query("date")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"url": link}, nil)
}

// Export godoc
// @Summary Export the filtered events
// @Tags Events
// @Produce octet-stream
// @Param format query string false "csv, xlsx or pdf" default(csv)
// @Param university_id query string false "University (defaults to the caller's)"
// @Param category query string false "Category"
// @Param q query string false "Search text"
// @Param date query string false "Date filter label"
// @Param day query []string false "Selected days"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /events/export [get]
func (h *EventHandler) Export(c *gin.Context) {
	universityID, ok := universityScope(c)
	if !ok {
		return
	}
	state, err := stateFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	format := export.Format(c.DefaultQuery("format", string(export.FormatCSV)))
	file, err := h.exports.ExportEvents(c.Request.Context(), universityID, state, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Data)
}

func optionalQuery(c *gin.Context, key string) *string {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return nil
	}
	return &value
}
