package models

import (
	"time"

	"github.com/lib/pq"
)

// AnnouncementPriority flags how prominently a notice should surface.
type AnnouncementPriority string

const (
	AnnouncementPriorityUrgent    AnnouncementPriority = "Urgent"
	AnnouncementPriorityNotUrgent AnnouncementPriority = "Not Urgent"
)

// Announcement represents a persisted notice row.
type Announcement struct {
	ID           string               `db:"id" json:"id" yaml:"id"`
	UniversityID string               `db:"university_id" json:"university_id" yaml:"university_id"`
	Title        string               `db:"title" json:"title" yaml:"title"`
	Message      string               `db:"message" json:"message" yaml:"message"`
	AnnouncedFor string               `db:"announced_for" json:"announced_for" yaml:"announced_for"`
	Category     Category             `db:"category" json:"category" yaml:"category"`
	Priority     AnnouncementPriority `db:"priority" json:"priority" yaml:"priority"`
	ImagePath    *string              `db:"image_path" json:"image_path,omitempty" yaml:"image_path,omitempty"`
	HasDateTime  bool                 `db:"has_date_time" json:"has_date_time" yaml:"has_date_time"`
	Dates        pq.StringArray       `db:"announcement_dates" json:"announcement_dates,omitempty" yaml:"announcement_dates,omitempty"`
	FromTime     string               `db:"from_time" json:"from_time,omitempty" yaml:"from_time,omitempty"`
	ToTime       string               `db:"to_time" json:"to_time,omitempty" yaml:"to_time,omitempty"`
	PerDateTimes TimeOverrides        `db:"per_date_times" json:"per_date_times,omitempty" yaml:"per_date_times,omitempty"`
	CreatedBy    string               `db:"created_by" json:"created_by" yaml:"created_by"`
	CreatedAt    time.Time            `db:"created_at" json:"created_at" yaml:"created_at"`
	UpdatedAt    time.Time            `db:"updated_at" json:"updated_at" yaml:"updated_at"`
}

// AnnouncementFilter narrows listing queries.
type AnnouncementFilter struct {
	UniversityID string
	CreatedBy    string
	Page         int
	PageSize     int
}
