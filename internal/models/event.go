package models

import "time"

// Appearance tells whether an event happens on site, online, or both.
type Appearance string

const (
	AppearancePhysical Appearance = "Physical"
	AppearanceVirtual  Appearance = "Virtual"
	AppearanceBoth     Appearance = "Both"
)

// Event is a single-date occurrence published to a university feed.
type Event struct {
	ID                 string        `db:"id" json:"id" yaml:"id"`
	UniversityID       string        `db:"university_id" json:"university_id" yaml:"university_id"`
	SeriesID           *string       `db:"series_id" json:"series_id,omitempty" yaml:"series_id,omitempty"`
	Title              string        `db:"title" json:"title" yaml:"title"`
	Description        string        `db:"description" json:"description" yaml:"description"`
	Category           Category      `db:"category" json:"category" yaml:"category"`
	Appearance         Appearance    `db:"appearance" json:"appearance" yaml:"appearance"`
	Date               string        `db:"event_date" json:"date" yaml:"date"`
	StartTime          string        `db:"start_time" json:"start_time" yaml:"start_time"`
	EndTime            string        `db:"end_time" json:"end_time" yaml:"end_time"`
	Venue              *string       `db:"venue" json:"venue,omitempty" yaml:"venue,omitempty"`
	Platform           *string       `db:"platform" json:"platform,omitempty" yaml:"platform,omitempty"`
	Link               *string       `db:"link" json:"link,omitempty" yaml:"link,omitempty"`
	Organizer          string        `db:"organizer" json:"organizer" yaml:"organizer"`
	FlyerPath          *string       `db:"flyer_path" json:"flyer_path,omitempty" yaml:"flyer_path,omitempty"`
	PerDayTimes        TimeOverrides `db:"per_day_times" json:"per_day_times,omitempty" yaml:"per_day_times,omitempty"`
	PerDayVenues       TextOverrides `db:"per_day_venues" json:"per_day_venues,omitempty" yaml:"per_day_venues,omitempty"`
	PerDayDescriptions TextOverrides `db:"per_day_descriptions" json:"per_day_descriptions,omitempty" yaml:"per_day_descriptions,omitempty"`
	CreatedBy          string        `db:"created_by" json:"created_by" yaml:"created_by"`
	CreatedAt          time.Time     `db:"created_at" json:"created_at" yaml:"created_at"`
	UpdatedAt          time.Time     `db:"updated_at" json:"updated_at" yaml:"updated_at"`
}

// VisibleVenue returns the venue unless the event is virtual-only.
func (e Event) VisibleVenue() *string {
	if e.Appearance == AppearanceVirtual {
		return nil
	}
	return e.Venue
}

// EventFilter narrows the rows loaded for a university feed.
type EventFilter struct {
	UniversityID string
	FromDate     *string
	ToDate       *string
	CreatedBy    string
	SeriesID     string
}
