package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-feed-api/internal/feed"
	"github.com/noah-isme/campus-feed-api/internal/models"
	appErrors "github.com/noah-isme/campus-feed-api/pkg/errors"
	"github.com/noah-isme/campus-feed-api/pkg/export"
)

type feedViewer interface {
	View(ctx context.Context, universityID string, state feed.ScreenState) (*FeedResult, error)
}

// ExportFile is a rendered document ready to be downloaded.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
	Rows        int
}

// ExportService renders the filtered event list of a feed screen.
type ExportService struct {
	feed   feedViewer
	logger *zap.Logger
	now    func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(viewer feedViewer, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{feed: viewer, logger: logger, now: time.Now}
}

var eventExportColumns = []export.Column{
	{Key: "date", Label: "Date", Width: 1.1},
	{Key: "start", Label: "Start", Width: 0.7},
	{Key: "end", Label: "End", Width: 0.7},
	{Key: "duration", Label: "Duration", Width: 0.9},
	{Key: "title", Label: "Title", Width: 2.2},
	{Key: "organizer", Label: "Organizer", Width: 1.6},
	{Key: "category", Label: "Category", Width: 1.1},
	{Key: "appearance", Label: "Appearance", Width: 1},
	{Key: "venue", Label: "Venue", Width: 1.6},
}

// ExportEvents renders the events matching state in format.
func (s *ExportService) ExportEvents(ctx context.Context, universityID string, state feed.ScreenState, format export.Format) (*ExportFile, error) {
	renderer, err := export.RendererFor(export.Format(strings.ToLower(string(format))))
	if err != nil {
		return nil, appErrors.Invalid(err, err.Error())
	}
	result, err := s.feed.View(ctx, universityID, state)
	if err != nil {
		return nil, err
	}

	dataset := BuildEventDataset(result.View.Events, fmt.Sprintf("Events (%s)", result.State.Date.Label()))
	payload, err := renderer.Render(dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	file := &ExportFile{
		Filename:    fmt.Sprintf("events_%s.%s", s.now().UTC().Format("20060102_150405"), renderer.Extension()),
		ContentType: renderer.ContentType(),
		Data:        payload,
		Rows:        len(dataset.Rows),
	}
	s.logger.Info("events exported", zap.String("university_id", universityID), zap.String("format", renderer.Extension()), zap.Int("rows", file.Rows))
	return file, nil
}

// BuildEventDataset flattens events into export rows using each record's
// effective details for its own date. Venues of virtual events stay blank.
func BuildEventDataset(events []models.Event, title string) export.Dataset {
	rows := make([]map[string]string, 0, len(events))
	for _, e := range events {
		day := feed.EventSchedule(e).EffectiveForDay(e.Date)
		rows = append(rows, map[string]string{
			"date":       e.Date,
			"start":      clockLabel(day.StartTime),
			"end":        clockLabel(day.EndTime),
			"duration":   feed.ComputeDuration(day.StartTime, day.EndTime),
			"title":      e.Title,
			"organizer":  e.Organizer,
			"category":   string(e.Category),
			"appearance": string(e.Appearance),
			"venue":      day.Venue,
		})
	}
	return export.Dataset{Title: title, Columns: eventExportColumns, Rows: rows}
}

func clockLabel(raw string) string {
	minutes, ok := feed.ParseClock(raw)
	if !ok {
		return ""
	}
	return feed.FormatMinutes(minutes)
}
