package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-feed-api/internal/feed"
	"github.com/noah-isme/campus-feed-api/internal/models"
	appErrors "github.com/noah-isme/campus-feed-api/pkg/errors"
)

type feedEventSource interface {
	List(ctx context.Context, filter models.EventFilter) ([]models.Event, error)
}

type feedAnnouncementSource interface {
	List(ctx context.Context, filter models.AnnouncementFilter) ([]models.Announcement, int, error)
}

// FeedConfig tunes view derivation, caching and the banner stream.
type FeedConfig struct {
	Location       *time.Location
	Options        feed.Options
	CacheTTL       time.Duration
	BannerInterval time.Duration
	BannerRefresh  time.Duration
}

// BannerFrame is one emission of the banner stream.
type BannerFrame struct {
	Index int             `json:"index"`
	Total int             `json:"total"`
	Item  feed.BannerItem `json:"item"`
}

// FeedResult wraps a derived view with its cache provenance.
type FeedResult struct {
	State    feed.ScreenState `json:"state"`
	View     feed.View        `json:"view"`
	CacheHit bool             `json:"-"`
}

// FeedService derives feed screens from the stored events and announcements.
type FeedService struct {
	events        feedEventSource
	announcements feedAnnouncementSource
	cache         *CacheService
	metrics       *MetricsService
	logger        *zap.Logger
	config        FeedConfig
	now           func() time.Time
}

// NewFeedService constructs the service.
func NewFeedService(events feedEventSource, announcements feedAnnouncementSource, cache *CacheService, metrics *MetricsService, logger *zap.Logger, cfg FeedConfig) *FeedService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Options.SuggestionLimit <= 0 {
		cfg.Options.SuggestionLimit = feed.DefaultSuggestionLimit
	}
	if cfg.Options.BannerWindowDays <= 0 {
		cfg.Options.BannerWindowDays = feed.DefaultBannerWindowDays
	}
	if cfg.BannerInterval <= 0 {
		cfg.BannerInterval = feed.DefaultBannerInterval
	}
	if cfg.BannerRefresh <= 0 {
		cfg.BannerRefresh = time.Minute
	}
	return &FeedService{
		events:        events,
		announcements: announcements,
		cache:         cache,
		metrics:       metrics,
		logger:        logger,
		config:        cfg,
		now:           time.Now,
	}
}

// Now returns the current instant in the feed timezone.
func (s *FeedService) Now() time.Time {
	return s.now().In(s.config.Location)
}

// Snapshot loads every event and announcement of a university.
func (s *FeedService) Snapshot(ctx context.Context, universityID string) (feed.Snapshot, error) {
	events, err := s.events.List(ctx, models.EventFilter{UniversityID: universityID})
	if err != nil {
		return feed.Snapshot{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load events")
	}
	announcements, _, err := s.announcements.List(ctx, models.AnnouncementFilter{UniversityID: universityID})
	if err != nil {
		return feed.Snapshot{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load announcements")
	}
	if events == nil {
		events = []models.Event{}
	}
	if announcements == nil {
		announcements = []models.Announcement{}
	}
	return feed.Snapshot{Events: events, Announcements: announcements}, nil
}

// View derives the screen for state. Results are cached per university, state
// and local date.
func (s *FeedService) View(ctx context.Context, universityID string, state feed.ScreenState) (*FeedResult, error) {
	normalized, err := state.Normalize()
	if err != nil {
		return nil, appErrors.Invalid(err, err.Error())
	}
	now := s.Now()
	key := FeedKey(universityID, "view", normalized.Key(), now.Format(feed.ISODate))

	result := &FeedResult{State: normalized}
	hit, err := s.cache.Remember(ctx, key, s.config.CacheTTL, &result.View, func() error {
		snap, err := s.Snapshot(ctx, universityID)
		if err != nil {
			return err
		}
		start := time.Now()
		result.View = feed.Derive(normalized, snap, now, s.config.Options)
		s.metrics.ObserveFeedDerivation(time.Since(start), len(result.View.Banner))
		return nil
	})
	if err != nil {
		return nil, err
	}
	result.CacheHit = hit
	return result, nil
}

// Banner returns today's rotation set.
func (s *FeedService) Banner(ctx context.Context, universityID string) ([]feed.BannerItem, error) {
	now := s.Now()
	key := FeedKey(universityID, "banner", now.Format(feed.ISODate))
	items := []feed.BannerItem{}
	_, err := s.cache.Remember(ctx, key, s.config.CacheTTL, &items, func() error {
		snap, err := s.Snapshot(ctx, universityID)
		if err != nil {
			return err
		}
		items = feed.RotationSet(snap.Events, snap.Announcements, now, s.config.Options.BannerWindowDays)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// Suggestions ranks search hints for query.
func (s *FeedService) Suggestions(ctx context.Context, universityID, query string) ([]feed.Suggestion, error) {
	snap, err := s.Snapshot(ctx, universityID)
	if err != nil {
		return nil, err
	}
	return feed.Suggest(query, snap.Events, snap.Announcements, s.config.Options.SuggestionLimit), nil
}

// StreamBanner emits the visible banner item on every rotation tick until ctx
// is done. The rotation set is reloaded periodically so day rollovers and
// new records are picked up.
func (s *FeedService) StreamBanner(ctx context.Context, universityID string, emit func(BannerFrame)) error {
	items, err := s.Banner(ctx, universityID)
	if err != nil {
		return err
	}
	rotator := feed.NewRotator(s.config.BannerInterval)
	rotator.Update(items)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		ticker := time.NewTicker(s.config.BannerRefresh)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fresh, err := s.Banner(ctx, universityID)
				if err != nil {
					s.logger.Warn("banner refresh failed", zap.String("university_id", universityID), zap.Error(err))
					continue
				}
				rotator.Update(fresh)
			}
		}
	}()

	rotator.Run(ctx, func(index int, item feed.BannerItem) {
		emit(BannerFrame{Index: index, Total: rotator.Len(), Item: item})
	})
	return nil
}
