package service

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-feed-api/internal/feed"
	"github.com/noah-isme/campus-feed-api/internal/models"
	appErrors "github.com/noah-isme/campus-feed-api/pkg/errors"
)

type memoryCacheRepo struct {
	mu      sync.Mutex
	entries map[string][]byte
	deleted []string
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{entries: make(map[string][]byte)}
}

func (m *memoryCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = raw
	return nil
}

func (m *memoryCacheRepo) DeleteByPattern(_ context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, pattern)
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range m.entries {
		if strings.HasPrefix(key, prefix) {
			delete(m.entries, key)
		}
	}
	return nil
}

type eventSourceStub struct {
	mu     sync.Mutex
	events []models.Event
	calls  int
}

func (s *eventSourceStub) List(_ context.Context, filter models.EventFilter) ([]models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	var out []models.Event
	for _, e := range s.events {
		if e.UniversityID == filter.UniversityID {
			out = append(out, e)
		}
	}
	return out, nil
}

type announcementSourceStub struct {
	items []models.Announcement
}

func (s *announcementSourceStub) List(_ context.Context, filter models.AnnouncementFilter) ([]models.Announcement, int, error) {
	var out []models.Announcement
	for _, a := range s.items {
		if a.UniversityID == filter.UniversityID {
			out = append(out, a)
		}
	}
	return out, len(out), nil
}

var feedTestNow = time.Date(2024, 5, 10, 10, 0, 0, 0, time.UTC)

func newFeedServiceForTest(cacheRepo CacheRepository) (*FeedService, *eventSourceStub) {
	events := &eventSourceStub{events: []models.Event{
		{ID: "e1", UniversityID: "u1", Title: "Career Expo", Organizer: "Placement Office", Category: models.CategoryEducational, Appearance: models.AppearancePhysical, Date: "2024-05-10", StartTime: "09:00", EndTime: "12:00"},
		{ID: "e2", UniversityID: "u1", Title: "Spring Concert", Organizer: "Music Club", Category: models.CategoryEntertainment, Appearance: models.AppearancePhysical, Date: "2024-05-20", StartTime: "19:00"},
		{ID: "e3", UniversityID: "u2", Title: "Other Campus Fair", Organizer: "Guild", Category: models.CategoryGeneral, Date: "2024-05-10", StartTime: "08:00"},
	}}
	announcements := &announcementSourceStub{items: []models.Announcement{
		{ID: "a1", UniversityID: "u1", Title: "Library hours", AnnouncedFor: "All students", Category: models.CategoryGeneral, Priority: models.AnnouncementPriorityNotUrgent, CreatedAt: feedTestNow.AddDate(0, 0, -1)},
	}}
	var cache *CacheService
	if cacheRepo != nil {
		cache = NewCacheService(cacheRepo, nil, time.Minute, nil, true)
	}
	svc := NewFeedService(events, announcements, cache, NewMetricsService(), nil, FeedConfig{
		BannerInterval: 10 * time.Millisecond,
		BannerRefresh:  time.Hour,
	})
	svc.now = func() time.Time { return feedTestNow }
	return svc, events
}

func TestFeedServiceViewFiltersAndCaches(t *testing.T) {
	repo := newMemoryCacheRepo()
	svc, events := newFeedServiceForTest(repo)
	ctx := context.Background()
	state := feed.ScreenState{Category: "educational", Date: feed.DateFilter{Kind: feed.FilterToday}}

	res, err := svc.View(ctx, "u1", state)
	require.NoError(t, err)
	assert.False(t, res.CacheHit)
	assert.Equal(t, models.CategoryEducational, res.State.Category)
	require.Len(t, res.View.Events, 1)
	assert.Equal(t, "e1", res.View.Events[0].ID)
	assert.Empty(t, res.View.Announcements)
	assert.Len(t, res.View.Banner, 2)

	again, err := svc.View(ctx, "u1", state)
	require.NoError(t, err)
	assert.True(t, again.CacheHit)
	assert.Equal(t, res.View.Events[0].ID, again.View.Events[0].ID)
	assert.Equal(t, 1, events.calls)

	require.NoError(t, svc.cache.InvalidateFeed(ctx, "u1"))
	_, err = svc.View(ctx, "u1", state)
	require.NoError(t, err)
	assert.Equal(t, 2, events.calls)
}

func TestFeedServiceViewRejectsUnknownCategory(t *testing.T) {
	svc, _ := newFeedServiceForTest(nil)
	_, err := svc.View(context.Background(), "u1", feed.ScreenState{Category: "Sports"})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestFeedServiceSearchSuppressesBanner(t *testing.T) {
	svc, _ := newFeedServiceForTest(nil)
	res, err := svc.View(context.Background(), "u1", feed.ScreenState{Query: "concert"})
	require.NoError(t, err)
	require.Len(t, res.View.Events, 1)
	assert.Equal(t, "e2", res.View.Events[0].ID)
	assert.Empty(t, res.View.Banner)
	require.NotEmpty(t, res.View.Suggestions)
	assert.Equal(t, "Spring Concert", res.View.Suggestions[0].Title)
}

func TestFeedServiceBannerAndSuggestions(t *testing.T) {
	svc, _ := newFeedServiceForTest(newMemoryCacheRepo())
	ctx := context.Background()

	items, err := svc.Banner(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, feed.BannerEvent, items[0].Kind)
	assert.Equal(t, "e1", items[0].ID())
	assert.Equal(t, feed.BannerAnnouncement, items[1].Kind)

	suggestions, err := svc.Suggestions(ctx, "u1", "club")
	require.NoError(t, err)
	require.Len(t, suggestions, 1)
	assert.Equal(t, feed.SuggestOrganizer, suggestions[0].Class)
	assert.Equal(t, "Music Club", suggestions[0].Title)

	none, err := svc.Suggestions(ctx, "u1", "  ")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestFeedServiceStreamBannerRotatesUntilCancelled(t *testing.T) {
	svc, _ := newFeedServiceForTest(nil)
	ctx, cancel := context.WithCancel(context.Background())
	frames := make(chan BannerFrame, 16)
	done := make(chan error, 1)

	go func() {
		done <- svc.StreamBanner(ctx, "u1", func(f BannerFrame) { frames <- f })
	}()

	var got []BannerFrame
	for len(got) < 3 {
		select {
		case f := <-frames:
			got = append(got, f)
		case <-time.After(2 * time.Second):
			t.Fatal("banner frames not emitted")
		}
	}
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not stop after cancel")
	}

	assert.Equal(t, 0, got[0].Index)
	assert.Equal(t, 1, got[1].Index)
	assert.Equal(t, 0, got[2].Index)
	assert.Equal(t, 2, got[0].Total)
	assert.Equal(t, "a1", got[1].Item.ID())
}
