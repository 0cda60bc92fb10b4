package feed

import (
	"context"
	"sync"
	"time"

	"github.com/noah-isme/campus-feed-api/internal/models"
)

// DefaultBannerInterval is the rotation tick of the banner strip.
const DefaultBannerInterval = 4000 * time.Millisecond

// DefaultBannerWindowDays bounds how long an announcement is promoted.
const DefaultBannerWindowDays = 7

// BannerKind tags the payload of a banner item.
type BannerKind string

const (
	BannerEvent        BannerKind = "event"
	BannerAnnouncement BannerKind = "announcement"
)

// BannerItem is one entry of the rotating strip. Exactly one payload is set.
type BannerItem struct {
	Kind         BannerKind           `json:"kind" yaml:"kind"`
	Event        *models.Event        `json:"event,omitempty" yaml:"event,omitempty"`
	Announcement *models.Announcement `json:"announcement,omitempty" yaml:"announcement,omitempty"`
}

// ID returns the identifier of the wrapped record.
func (b BannerItem) ID() string {
	switch {
	case b.Event != nil:
		return b.Event.ID
	case b.Announcement != nil:
		return b.Announcement.ID
	default:
		return ""
	}
}

// EventBannerEligible reports whether the event takes place today.
func EventBannerEligible(e models.Event, now time.Time) bool {
	day, ok := ParseISODate(e.Date, now.Location())
	return ok && day.Equal(StartOfDay(now))
}

// AnnouncementBannerEligible applies the promotion window: undated notices run
// for windowDays after creation, dated ones from windowDays before their first
// date (never before creation) until that date.
func AnnouncementBannerEligible(a models.Announcement, now time.Time, windowDays int) bool {
	from, to, ok := AnnouncementBannerWindow(a, now.Location(), windowDays)
	if !ok {
		return false
	}
	today := StartOfDay(now)
	return !today.Before(from) && !today.After(to)
}

// AnnouncementBannerWindow returns the inclusive eligibility interval in loc.
func AnnouncementBannerWindow(a models.Announcement, loc *time.Location, windowDays int) (time.Time, time.Time, bool) {
	if loc == nil {
		loc = time.Local
	}
	if windowDays <= 0 {
		windowDays = DefaultBannerWindowDays
	}
	created := StartOfDay(a.CreatedAt.In(loc))
	if !dated(a) {
		return created, created.AddDate(0, 0, windowDays), true
	}

	var first time.Time
	for _, raw := range a.Dates {
		day, ok := ParseISODate(raw, loc)
		if !ok {
			continue
		}
		if first.IsZero() || day.Before(first) {
			first = day
		}
	}
	if first.IsZero() {
		return time.Time{}, time.Time{}, false
	}
	from := first.AddDate(0, 0, -windowDays)
	if from.Before(created) {
		from = created
	}
	return from, first, true
}

// RotationSet lists today's events followed by eligible announcements, each in
// their original order.
func RotationSet(events []models.Event, announcements []models.Announcement, now time.Time, windowDays int) []BannerItem {
	out := make([]BannerItem, 0)
	for i := range events {
		if EventBannerEligible(events[i], now) {
			e := events[i]
			out = append(out, BannerItem{Kind: BannerEvent, Event: &e})
		}
	}
	for i := range announcements {
		if AnnouncementBannerEligible(announcements[i], now, windowDays) {
			a := announcements[i]
			out = append(out, BannerItem{Kind: BannerAnnouncement, Announcement: &a})
		}
	}
	return out
}

// Rotation tracks the visible banner index. The zero value is ready to use.
type Rotation struct {
	items []BannerItem
	index int
}

// Update swaps the rotation set. The index returns to 0 when the set changes
// length or no longer covers it.
func (r *Rotation) Update(items []BannerItem) {
	if len(items) != len(r.items) || r.index >= len(items) {
		r.index = 0
	}
	r.items = items
}

// Advance moves to the next item, wrapping around.
func (r *Rotation) Advance() {
	if len(r.items) == 0 {
		r.index = 0
		return
	}
	r.index = (r.index + 1) % len(r.items)
}

// Index returns the current position.
func (r *Rotation) Index() int { return r.index }

// Len returns the size of the rotation set.
func (r *Rotation) Len() int { return len(r.items) }

// Current returns the visible item; ok is false for an empty set.
func (r *Rotation) Current() (BannerItem, bool) {
	if len(r.items) == 0 {
		return BannerItem{}, false
	}
	return r.items[r.index], true
}

// Rotator advances a Rotation on a fixed tick.
type Rotator struct {
	mu       sync.Mutex
	rotation Rotation
	interval time.Duration
}

// NewRotator creates a rotator; a non-positive interval uses DefaultBannerInterval.
func NewRotator(interval time.Duration) *Rotator {
	if interval <= 0 {
		interval = DefaultBannerInterval
	}
	return &Rotator{interval: interval}
}

// Update replaces the rotation set.
func (r *Rotator) Update(items []BannerItem) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rotation.Update(items)
}

// Current returns the index and item currently shown.
func (r *Rotator) Current() (int, BannerItem, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.rotation.Current()
	return r.rotation.Index(), item, ok
}

// Len returns the size of the current rotation set.
func (r *Rotator) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rotation.Len()
}

// Run emits the current item immediately and after every tick until ctx is
// done. The ticker is stopped on return.
func (r *Rotator) Run(ctx context.Context, emit func(index int, item BannerItem)) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	if idx, item, ok := r.Current(); ok {
		emit(idx, item)
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.mu.Lock()
			r.rotation.Advance()
			item, ok := r.rotation.Current()
			idx := r.rotation.Index()
			r.mu.Unlock()
			if ok {
				emit(idx, item)
			}
		}
	}
}
