package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-feed-api/internal/models"
)

// event_date is a DATE column; it is rendered as an ISO string so it scans
// into models.Event.Date without a timezone shift.
const eventColumns = `id, university_id, series_id, title, description, category, appearance, to_char(event_date, 'YYYY-MM-DD') AS event_date, start_time, end_time, venue, platform, link, organizer, flyer_path, per_day_times, per_day_venues, per_day_descriptions, created_by, created_at, updated_at`

const insertEventQuery = `INSERT INTO events (id, university_id, series_id, title, description, category, appearance, event_date, start_time, end_time, venue, platform, link, organizer, flyer_path, per_day_times, per_day_venues, per_day_descriptions, created_by, created_at, updated_at) VALUES (:id, :university_id, :series_id, :title, :description, :category, :appearance, :event_date, :start_time, :end_time, :venue, :platform, :link, :organizer, :flyer_path, :per_day_times, :per_day_venues, :per_day_descriptions, :created_by, :created_at, :updated_at)`

// EventRepository persists single-date event records.
type EventRepository struct {
	db *sqlx.DB
}

// NewEventRepository constructs the repository.
func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

// CreateBatch inserts every record of a multi-date event in one transaction.
func (r *EventRepository) CreateBatch(ctx context.Context, events []models.Event) (err error) {
	if len(events) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create events: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	for i := range events {
		event := &events[i]
		if event.ID == "" {
			event.ID = uuid.NewString()
		}
		if event.CreatedAt.IsZero() {
			event.CreatedAt = now
		}
		event.UpdatedAt = now
		if _, err = tx.NamedExecContext(ctx, insertEventQuery, event); err != nil {
			return fmt.Errorf("insert event %s: %w", event.Date, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create events: %w", err)
	}
	return nil
}

// FindByID returns an event or sql.ErrNoRows.
func (r *EventRepository) FindByID(ctx context.Context, id string) (*models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	var event models.Event
	if err := r.db.GetContext(ctx, &event, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find event: %w", err)
	}
	return &event, nil
}

// List returns events matching the filter ordered by date ascending.
func (r *EventRepository) List(ctx context.Context, filter models.EventFilter) ([]models.Event, error) {
	var conditions []string
	var args []interface{}

	if filter.UniversityID != "" {
		args = append(args, filter.UniversityID)
		conditions = append(conditions, fmt.Sprintf("university_id = $%d", len(args)))
	}
	if filter.FromDate != nil {
		args = append(args, *filter.FromDate)
		conditions = append(conditions, fmt.Sprintf("event_date >= $%d", len(args)))
	}
	if filter.ToDate != nil {
		args = append(args, *filter.ToDate)
		conditions = append(conditions, fmt.Sprintf("event_date <= $%d", len(args)))
	}
	if filter.CreatedBy != "" {
		args = append(args, filter.CreatedBy)
		conditions = append(conditions, fmt.Sprintf("created_by = $%d", len(args)))
	}
	if filter.SeriesID != "" {
		args = append(args, filter.SeriesID)
		conditions = append(conditions, fmt.Sprintf("series_id = $%d", len(args)))
	}

	query := `SELECT ` + eventColumns + ` FROM events`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY event_date ASC, created_at ASC"

	var events []models.Event
	if err := r.db.SelectContext(ctx, &events, query, args...); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

// ListSeries returns the sibling records created together with seriesID.
func (r *EventRepository) ListSeries(ctx context.Context, seriesID string) ([]models.Event, error) {
	return r.List(ctx, models.EventFilter{SeriesID: seriesID})
}

// Update overwrites the mutable columns of an event.
func (r *EventRepository) Update(ctx context.Context, event *models.Event) error {
	event.UpdatedAt = time.Now().UTC()
	const query = `UPDATE events SET title = :title, description = :description, category = :category, appearance = :appearance, event_date = :event_date, start_time = :start_time, end_time = :end_time, venue = :venue, platform = :platform, link = :link, organizer = :organizer, flyer_path = :flyer_path, per_day_times = :per_day_times, per_day_venues = :per_day_venues, per_day_descriptions = :per_day_descriptions, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, event)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	return expectAffected(res)
}

// Delete removes an event, returning sql.ErrNoRows when it does not exist.
func (r *EventRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return expectAffected(res)
}

// CountByFlyerPath counts the events still pointing at an uploaded flyer.
func (r *EventRepository) CountByFlyerPath(ctx context.Context, path string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM events WHERE flyer_path = $1`, path); err != nil {
		return 0, fmt.Errorf("count events by flyer: %w", err)
	}
	return count, nil
}

func expectAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
