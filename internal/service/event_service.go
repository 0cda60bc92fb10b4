package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/teambition/rrule-go"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-feed-api/internal/feed"
	"github.com/noah-isme/campus-feed-api/internal/models"
	appErrors "github.com/noah-isme/campus-feed-api/pkg/errors"
	"github.com/noah-isme/campus-feed-api/pkg/jobs"
)

type eventRepository interface {
	CreateBatch(ctx context.Context, events []models.Event) error
	FindByID(ctx context.Context, id string) (*models.Event, error)
	List(ctx context.Context, filter models.EventFilter) ([]models.Event, error)
	ListSeries(ctx context.Context, seriesID string) ([]models.Event, error)
	Update(ctx context.Context, event *models.Event) error
	Delete(ctx context.Context, id string) error
	CountByFlyerPath(ctx context.Context, path string) (int, error)
}

type jobEnqueuer interface {
	Enqueue(job jobs.Job) (string, error)
}

type feedInvalidator interface {
	InvalidateFeed(ctx context.Context, universityID string) error
}

// EventConfig bounds multi-date creation.
type EventConfig struct {
	Location          *time.Location
	RecurrenceHorizon time.Duration
	MaxDates          int
}

// DayDetailsInput is a per-date override submitted with a multi-date event.
type DayDetailsInput struct {
	StartTime   string `json:"start_time,omitempty" validate:"omitempty,clock"`
	EndTime     string `json:"end_time,omitempty" validate:"omitempty,clock"`
	Venue       string `json:"venue,omitempty" validate:"max=200"`
	Description string `json:"description,omitempty" validate:"max=5000"`
}

// CreateEventRequest publishes an event on one or more dates. Dates come from
// the explicit list, the expansion of Recurrence, or both.
type CreateEventRequest struct {
	Title           string                     `json:"title" validate:"required,max=200"`
	Description     string                     `json:"description" validate:"max=5000"`
	Category        models.Category            `json:"category" validate:"required,category"`
	Appearance      models.Appearance          `json:"appearance" validate:"required,appearance"`
	Dates           []string                   `json:"dates" validate:"omitempty,dive,isodate"`
	Recurrence      string                     `json:"recurrence,omitempty" validate:"max=500"`
	RecurrenceStart string                     `json:"recurrence_start,omitempty" validate:"omitempty,isodate"`
	StartTime       string                     `json:"start_time" validate:"required,clock"`
	EndTime         string                     `json:"end_time" validate:"omitempty,clock"`
	Venue           string                     `json:"venue" validate:"max=200"`
	Platform        string                     `json:"platform" validate:"max=100"`
	Link            string                     `json:"link" validate:"omitempty,url"`
	Organizer       string                     `json:"organizer" validate:"required,max=200"`
	FlyerPath       string                     `json:"flyer_path" validate:"max=300"`
	PerDay          map[string]DayDetailsInput `json:"per_day,omitempty" validate:"omitempty,dive"`
}

// UpdateEventRequest replaces the fields of one single-date record.
type UpdateEventRequest struct {
	Title       string            `json:"title" validate:"required,max=200"`
	Description string            `json:"description" validate:"max=5000"`
	Category    models.Category   `json:"category" validate:"required,category"`
	Appearance  models.Appearance `json:"appearance" validate:"required,appearance"`
	Date        string            `json:"date" validate:"required,isodate"`
	StartTime   string            `json:"start_time" validate:"required,clock"`
	EndTime     string            `json:"end_time" validate:"omitempty,clock"`
	Venue       string            `json:"venue" validate:"max=200"`
	Platform    string            `json:"platform" validate:"max=100"`
	Link        string            `json:"link" validate:"omitempty,url"`
	Organizer   string            `json:"organizer" validate:"required,max=200"`
	FlyerPath   string            `json:"flyer_path" validate:"max=300"`
}

// EventDay is the resolved schedule of one date of an event series.
type EventDay struct {
	Date     string          `json:"date"`
	EventID  string          `json:"event_id"`
	Details  feed.DayDetails `json:"details"`
	Duration string          `json:"duration,omitempty"`
}

// EventDetails is the detail view of an event.
type EventDetails struct {
	Event        models.Event    `json:"event"`
	Day          feed.DayDetails `json:"day"`
	Duration     string          `json:"duration,omitempty"`
	Days         []EventDay      `json:"days"`
	UniformTime  bool            `json:"uniform_time"`
	UniformVenue bool            `json:"uniform_venue"`
}

// EventService handles event publishing workflows.
type EventService struct {
	repo      eventRepository
	queue     jobEnqueuer
	cache     feedInvalidator
	validator *validator.Validate
	logger    *zap.Logger
	config    EventConfig
}

// NewEventService constructs the service.
func NewEventService(repo eventRepository, queue jobEnqueuer, cache feedInvalidator, validate *validator.Validate, logger *zap.Logger, cfg EventConfig) *EventService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.RecurrenceHorizon <= 0 {
		cfg.RecurrenceHorizon = 180 * 24 * time.Hour
	}
	if cfg.MaxDates <= 0 {
		cfg.MaxDates = 60
	}
	registerFeedValidations(validate)
	return &EventService{repo: repo, queue: queue, cache: cache, validator: validate, logger: logger, config: cfg}
}

// Create validates the request and stores one record per chosen date.
func (s *EventService) Create(ctx context.Context, actor *models.JWTClaims, req CreateEventRequest) ([]models.Event, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid event payload")
	}

	dates, err := s.resolveDates(req)
	if err != nil {
		return nil, err
	}

	venue := strings.TrimSpace(req.Venue)
	if req.Appearance == models.AppearanceVirtual {
		venue = ""
	}
	schedule := feed.Schedule{
		Default: feed.DayDetails{
			StartTime:   strings.TrimSpace(req.StartTime),
			EndTime:     strings.TrimSpace(req.EndTime),
			Venue:       venue,
			Platform:    strings.TrimSpace(req.Platform),
			Link:        strings.TrimSpace(req.Link),
			Description: strings.TrimSpace(req.Description),
		},
		Overrides: make(map[string]feed.DayOverride, len(req.PerDay)),
	}
	chosen := make(map[string]bool, len(dates))
	for _, d := range dates {
		chosen[d] = true
	}
	for date, in := range req.PerDay {
		if !chosen[date] {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("per-day details for %s do not match a chosen date", date))
		}
		o := feed.DayOverride{
			StartTime:   strings.TrimSpace(in.StartTime),
			EndTime:     strings.TrimSpace(in.EndTime),
			Description: strings.TrimSpace(in.Description),
		}
		if req.Appearance != models.AppearanceVirtual {
			o.Venue = strings.TrimSpace(in.Venue)
		}
		schedule.Overrides[date] = o
	}

	if err := validateAppearance(req.Appearance, dates, schedule); err != nil {
		return nil, err
	}

	pruned := feed.PruneOverrides(dates, schedule)
	times, venues, descriptions := feed.EventColumns(pruned.Overrides)

	var seriesID *string
	if len(dates) > 1 {
		id := uuid.NewString()
		seriesID = &id
	}

	events := make([]models.Event, 0, len(dates))
	for _, date := range dates {
		events = append(events, models.Event{
			UniversityID:       actor.UniversityID,
			SeriesID:           seriesID,
			Title:              strings.TrimSpace(req.Title),
			Description:        pruned.Default.Description,
			Category:           req.Category,
			Appearance:         req.Appearance,
			Date:               date,
			StartTime:          pruned.Default.StartTime,
			EndTime:            pruned.Default.EndTime,
			Venue:              trimmedPtr(pruned.Default.Venue),
			Platform:           trimmedPtr(pruned.Default.Platform),
			Link:               trimmedPtr(pruned.Default.Link),
			Organizer:          strings.TrimSpace(req.Organizer),
			FlyerPath:          trimmedPtr(req.FlyerPath),
			PerDayTimes:        times,
			PerDayVenues:       venues,
			PerDayDescriptions: descriptions,
			CreatedBy:          actor.UserID,
		})
	}

	if err := s.repo.CreateBatch(ctx, events); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create event")
	}
	s.invalidate(ctx, actor.UniversityID)
	s.logger.Info("event published", zap.String("user_id", actor.UserID), zap.Int("dates", len(events)))
	return events, nil
}

// Get returns one event.
func (s *EventService) Get(ctx context.Context, id string) (*models.Event, error) {
	event, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	return event, nil
}

// List returns the events of a university between the optional bounds, ordered by date.
func (s *EventService) List(ctx context.Context, universityID string, from, to *string) ([]models.Event, error) {
	for _, bound := range []*string{from, to} {
		if bound == nil {
			continue
		}
		norm, ok := feed.NormalizeISODate(*bound)
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid date %q", *bound))
		}
		*bound = norm
	}
	events, err := s.repo.List(ctx, models.EventFilter{UniversityID: universityID, FromDate: from, ToDate: to})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list events")
	}
	if events == nil {
		events = []models.Event{}
	}
	return events, nil
}

// Details resolves the effective schedule of an event and its siblings.
func (s *EventService) Details(ctx context.Context, id string) (*EventDetails, error) {
	event, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	siblings := []models.Event{*event}
	if event.SeriesID != nil {
		series, err := s.repo.ListSeries(ctx, *event.SeriesID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event series")
		}
		if len(series) > 0 {
			siblings = series
		}
	}

	schedule := feed.EventSchedule(*event)
	day := schedule.EffectiveForDay(event.Date)
	out := &EventDetails{
		Event:    *event,
		Day:      day,
		Duration: feed.ComputeDuration(day.StartTime, day.EndTime),
		Days:     make([]EventDay, 0, len(siblings)),
	}
	if out.Event.Appearance == models.AppearanceVirtual {
		out.Event.Venue = nil
		out.Event.PerDayVenues = nil
	}

	dates := make([]string, 0, len(siblings))
	for _, sib := range siblings {
		d := feed.EventSchedule(sib).EffectiveForDay(sib.Date)
		dates = append(dates, sib.Date)
		out.Days = append(out.Days, EventDay{
			Date:     sib.Date,
			EventID:  sib.ID,
			Details:  d,
			Duration: feed.ComputeDuration(d.StartTime, d.EndTime),
		})
	}
	out.UniformTime = feed.DaysHaveUniformTime(dates, schedule)
	out.UniformVenue = feed.DaysHaveUniformVenue(dates, schedule)
	return out, nil
}

// Update replaces one record. Only its creator may change it.
func (s *EventService) Update(ctx context.Context, actor *models.JWTClaims, id string, req UpdateEventRequest) (*models.Event, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid event payload")
	}
	event, err := s.ownedEvent(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	venue := strings.TrimSpace(req.Venue)
	if req.Appearance == models.AppearanceVirtual {
		venue = ""
	}
	date, _ := feed.NormalizeISODate(req.Date)
	schedule := feed.Schedule{Default: feed.DayDetails{
		StartTime: req.StartTime, EndTime: req.EndTime, Venue: venue,
		Platform: strings.TrimSpace(req.Platform), Link: strings.TrimSpace(req.Link),
	}}
	if err := validateAppearance(req.Appearance, []string{date}, schedule); err != nil {
		return nil, err
	}

	previousFlyer := derefString(event.FlyerPath)
	// Explicit fields win over any stored override for the record's own date.
	delete(event.PerDayTimes, event.Date)
	delete(event.PerDayVenues, event.Date)
	delete(event.PerDayDescriptions, event.Date)

	event.Title = strings.TrimSpace(req.Title)
	event.Description = strings.TrimSpace(req.Description)
	event.Category = req.Category
	event.Appearance = req.Appearance
	event.Date = date
	event.StartTime = strings.TrimSpace(req.StartTime)
	event.EndTime = strings.TrimSpace(req.EndTime)
	event.Venue = trimmedPtr(venue)
	event.Platform = trimmedPtr(req.Platform)
	event.Link = trimmedPtr(req.Link)
	event.Organizer = strings.TrimSpace(req.Organizer)
	event.FlyerPath = trimmedPtr(req.FlyerPath)
	if event.Appearance == models.AppearanceVirtual {
		event.PerDayVenues = nil
	}

	if err := s.repo.Update(ctx, event); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update event")
	}
	if previousFlyer != "" && previousFlyer != derefString(event.FlyerPath) {
		s.releaseFlyer(ctx, previousFlyer)
	}
	s.invalidate(ctx, event.UniversityID)
	return event, nil
}

// Delete removes one record and schedules removal of its flyer once no
// sibling references it.
func (s *EventService) Delete(ctx context.Context, actor *models.JWTClaims, id string) error {
	event, err := s.ownedEvent(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete event")
	}
	if event.FlyerPath != nil {
		s.releaseFlyer(ctx, *event.FlyerPath)
	}
	s.invalidate(ctx, event.UniversityID)
	return nil
}

func (s *EventService) ownedEvent(ctx context.Context, actor *models.JWTClaims, id string) (*models.Event, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	event, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if event.CreatedBy != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the creator can modify this event")
	}
	return event, nil
}

func (s *EventService) releaseFlyer(ctx context.Context, path string) {
	if s.queue == nil || path == "" {
		return
	}
	remaining, err := s.repo.CountByFlyerPath(ctx, path)
	if err != nil {
		s.logger.Warn("failed to count flyer references", zap.String("path", path), zap.Error(err))
		return
	}
	if remaining > 0 {
		return
	}
	if _, err := s.queue.Enqueue(jobs.Job{Type: JobDeleteAsset, Payload: path}); err != nil {
		s.logger.Warn("failed to enqueue flyer deletion", zap.String("path", path), zap.Error(err))
	}
}

func (s *EventService) invalidate(ctx context.Context, universityID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateFeed(ctx, universityID); err != nil {
		s.logger.Warn("failed to invalidate feed cache", zap.String("university_id", universityID), zap.Error(err))
	}
}

// resolveDates merges explicit dates with the recurrence expansion, sorted and
// deduplicated.
func (s *EventService) resolveDates(req CreateEventRequest) ([]string, error) {
	seen := make(map[string]bool)
	var dates []string
	add := func(d string) {
		if !seen[d] {
			seen[d] = true
			dates = append(dates, d)
		}
	}
	for _, raw := range req.Dates {
		d, _ := feed.NormalizeISODate(raw)
		add(d)
	}
	if strings.TrimSpace(req.Recurrence) != "" {
		expanded, err := ExpandRecurrence(req.Recurrence, req.RecurrenceStart, s.config.Location, s.config.RecurrenceHorizon, s.config.MaxDates+1)
		if err != nil {
			return nil, err
		}
		for _, d := range expanded {
			add(d)
		}
	}
	if len(dates) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "at least one date is required")
	}
	if len(dates) > s.config.MaxDates {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("an event may span at most %d dates", s.config.MaxDates))
	}
	sort.Strings(dates)
	return dates, nil
}

// ExpandRecurrence lists the ISO dates produced by an RRULE starting at start,
// bounded by horizon and limit.
func ExpandRecurrence(rule, start string, loc *time.Location, horizon time.Duration, limit int) ([]string, error) {
	if loc == nil {
		loc = time.UTC
	}
	opt, err := rrule.StrToROptionInLocation(strings.TrimPrefix(strings.TrimSpace(rule), "RRULE:"), loc)
	if err != nil {
		return nil, appErrors.Invalid(err, "invalid recurrence rule")
	}
	if start != "" {
		day, ok := feed.ParseISODate(start, loc)
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid recurrence start")
		}
		opt.Dtstart = day
	}
	if opt.Dtstart.IsZero() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "recurrence requires a start date")
	}
	r, err := rrule.NewRRule(*opt)
	if err != nil {
		return nil, appErrors.Invalid(err, "invalid recurrence rule")
	}

	until := opt.Dtstart.Add(horizon)
	var out []string
	iter := r.Iterator()
	for {
		occurrence, ok := iter()
		if !ok || occurrence.After(until) || (limit > 0 && len(out) >= limit) {
			break
		}
		out = append(out, occurrence.In(loc).Format(feed.ISODate))
	}
	return out, nil
}

// validateAppearance checks the location fields an appearance mode requires.
func validateAppearance(appearance models.Appearance, dates []string, schedule feed.Schedule) error {
	if appearance != models.AppearanceVirtual {
		for _, d := range dates {
			if strings.TrimSpace(schedule.EffectiveForDay(d).Venue) == "" {
				return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("venue is required for %s", d))
			}
		}
	}
	if appearance != models.AppearancePhysical {
		if schedule.Default.Platform == "" && schedule.Default.Link == "" {
			return appErrors.Clone(appErrors.ErrValidation, "platform or link is required for online events")
		}
	}
	return nil
}
