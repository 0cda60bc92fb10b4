package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-feed-api/internal/feed"
	"github.com/noah-isme/campus-feed-api/internal/models"
	appErrors "github.com/noah-isme/campus-feed-api/pkg/errors"
	"github.com/noah-isme/campus-feed-api/pkg/jobs"
)

type announcementRepository interface {
	List(ctx context.Context, filter models.AnnouncementFilter) ([]models.Announcement, int, error)
	FindByID(ctx context.Context, id string) (*models.Announcement, error)
	Create(ctx context.Context, announcement *models.Announcement) error
	Update(ctx context.Context, announcement *models.Announcement) error
	Delete(ctx context.Context, id string) error
}

// AnnouncementRequest is the payload for creating or replacing an announcement.
type AnnouncementRequest struct {
	Title        string                      `json:"title" validate:"required,max=200"`
	Message      string                      `json:"message" validate:"required,max=10000"`
	AnnouncedFor string                      `json:"announced_for" validate:"max=200"`
	Category     models.Category             `json:"category" validate:"required,category"`
	Priority     models.AnnouncementPriority `json:"priority" validate:"required,priority"`
	ImagePath    string                      `json:"image_path" validate:"max=300"`
	HasDateTime  bool                        `json:"has_date_time"`
	Dates        []string                    `json:"announcement_dates" validate:"omitempty,dive,isodate"`
	FromTime     string                      `json:"from_time" validate:"omitempty,clock"`
	ToTime       string                      `json:"to_time" validate:"omitempty,clock"`
	PerDateTimes map[string]models.TimePair  `json:"per_date_times,omitempty"`
}

// AnnouncementListRequest describes filters for listing announcements.
type AnnouncementListRequest struct {
	UniversityID string
	Page         int
	PageSize     int
}

// AnnouncementService handles announcement workflows.
type AnnouncementService struct {
	repo      announcementRepository
	queue     jobEnqueuer
	cache     feedInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAnnouncementService constructs the service.
func NewAnnouncementService(repo announcementRepository, queue jobEnqueuer, cache feedInvalidator, validate *validator.Validate, logger *zap.Logger) *AnnouncementService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	registerFeedValidations(validate)
	return &AnnouncementService{repo: repo, queue: queue, cache: cache, validator: validate, logger: logger}
}

// List returns announcements newest first.
func (s *AnnouncementService) List(ctx context.Context, req AnnouncementListRequest) ([]models.Announcement, *models.Pagination, error) {
	page := req.Page
	if page < 1 {
		page = 1
	}
	size := req.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	items, total, err := s.repo.List(ctx, models.AnnouncementFilter{UniversityID: req.UniversityID, Page: page, PageSize: size})
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list announcements")
	}
	if items == nil {
		items = []models.Announcement{}
	}
	return items, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one announcement.
func (s *AnnouncementService) Get(ctx context.Context, id string) (*models.Announcement, error) {
	ann, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "announcement not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load announcement")
	}
	return ann, nil
}

// Create publishes an announcement authored by actor.
func (s *AnnouncementService) Create(ctx context.Context, actor *models.JWTClaims, req AnnouncementRequest) (*models.Announcement, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	ann := &models.Announcement{UniversityID: actor.UniversityID, CreatedBy: actor.UserID}
	if err := s.apply(ann, req); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, ann); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create announcement")
	}
	s.invalidate(ctx, ann.UniversityID)
	return ann, nil
}

// Update replaces an announcement. Only its author may change it.
func (s *AnnouncementService) Update(ctx context.Context, actor *models.JWTClaims, id string, req AnnouncementRequest) (*models.Announcement, error) {
	ann, err := s.owned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	previousImage := derefString(ann.ImagePath)
	if err := s.apply(ann, req); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, ann); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "announcement not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update announcement")
	}
	if previousImage != "" && previousImage != derefString(ann.ImagePath) {
		s.releaseImage(previousImage)
	}
	s.invalidate(ctx, ann.UniversityID)
	return ann, nil
}

// Delete removes an announcement and schedules removal of its image.
func (s *AnnouncementService) Delete(ctx context.Context, actor *models.JWTClaims, id string) error {
	ann, err := s.owned(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "announcement not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete announcement")
	}
	if ann.ImagePath != nil {
		s.releaseImage(*ann.ImagePath)
	}
	s.invalidate(ctx, ann.UniversityID)
	return nil
}

// apply validates req and copies it onto ann. Without hasDateTime every date
// and time field is cleared.
func (s *AnnouncementService) apply(ann *models.Announcement, req AnnouncementRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Invalid(err, "invalid announcement payload")
	}

	ann.Title = strings.TrimSpace(req.Title)
	ann.Message = strings.TrimSpace(req.Message)
	ann.AnnouncedFor = strings.TrimSpace(req.AnnouncedFor)
	ann.Category = req.Category
	ann.Priority = req.Priority
	ann.ImagePath = trimmedPtr(req.ImagePath)
	ann.HasDateTime = req.HasDateTime
	ann.Dates = []string{}
	ann.FromTime, ann.ToTime = "", ""
	ann.PerDateTimes = nil
	if !req.HasDateTime {
		return nil
	}

	dates := uniqueSorted(req.Dates)
	if len(dates) == 0 {
		return appErrors.Clone(appErrors.ErrValidation, "announcement_dates is required when has_date_time is set")
	}
	if strings.TrimSpace(req.FromTime) == "" {
		return appErrors.Clone(appErrors.ErrValidation, "from_time is required when has_date_time is set")
	}

	schedule := feed.Schedule{
		Default:   feed.DayDetails{StartTime: strings.TrimSpace(req.FromTime), EndTime: strings.TrimSpace(req.ToTime)},
		Overrides: make(map[string]feed.DayOverride, len(req.PerDateTimes)),
	}
	chosen := make(map[string]bool, len(dates))
	for _, d := range dates {
		chosen[d] = true
	}
	for date, pair := range req.PerDateTimes {
		if !chosen[date] {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("per-date times for %s do not match a chosen date", date))
		}
		for _, raw := range []string{pair.Start, pair.End} {
			if strings.TrimSpace(raw) == "" {
				continue
			}
			if _, ok := feed.ParseClock(raw); !ok {
				return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid time %q for %s", raw, date))
			}
		}
		schedule.Overrides[date] = feed.DayOverride{StartTime: strings.TrimSpace(pair.Start), EndTime: strings.TrimSpace(pair.End)}
	}

	pruned := feed.PruneOverrides(dates, schedule)
	ann.Dates = dates
	ann.FromTime = pruned.Default.StartTime
	ann.ToTime = pruned.Default.EndTime
	ann.PerDateTimes = feed.AnnouncementColumns(pruned.Overrides)
	return nil
}

func (s *AnnouncementService) owned(ctx context.Context, actor *models.JWTClaims, id string) (*models.Announcement, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	ann, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if ann.CreatedBy != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the author can modify this announcement")
	}
	return ann, nil
}

func (s *AnnouncementService) releaseImage(path string) {
	if s.queue == nil {
		return
	}
	if _, err := s.queue.Enqueue(jobs.Job{Type: JobDeleteAsset, Payload: path}); err != nil {
		s.logger.Warn("failed to enqueue image deletion", zap.String("path", path), zap.Error(err))
	}
}

func (s *AnnouncementService) invalidate(ctx context.Context, universityID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateFeed(ctx, universityID); err != nil {
		s.logger.Warn("failed to invalidate feed cache", zap.String("university_id", universityID), zap.Error(err))
	}
}

func uniqueSorted(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
