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

const announcementColumns = `id, university_id, title, message, announced_for, category, priority, image_path, has_date_time, announcement_dates, from_time, to_time, per_date_times, created_by, created_at, updated_at`

// AnnouncementRepository provides persistence for announcements.
type AnnouncementRepository struct {
	db *sqlx.DB
}

// NewAnnouncementRepository creates the repository.
func NewAnnouncementRepository(db *sqlx.DB) *AnnouncementRepository {
	return &AnnouncementRepository{db: db}
}

// List returns announcements newest first. A zero PageSize returns every row.
func (r *AnnouncementRepository) List(ctx context.Context, filter models.AnnouncementFilter) ([]models.Announcement, int, error) {
	var where []string
	var args []interface{}
	if filter.UniversityID != "" {
		args = append(args, filter.UniversityID)
		where = append(where, fmt.Sprintf("university_id = $%d", len(args)))
	}
	if filter.CreatedBy != "" {
		args = append(args, filter.CreatedBy)
		where = append(where, fmt.Sprintf("created_by = $%d", len(args)))
	}
	whereClause := ""
	if len(where) > 0 {
		whereClause = " WHERE " + strings.Join(where, " AND ")
	}

	query := `SELECT ` + announcementColumns + ` FROM announcements` + whereClause + ` ORDER BY created_at DESC, id ASC`
	if filter.PageSize > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		size := filter.PageSize
		if size > 100 {
			size = 100
		}
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", size, (page-1)*size)
	}

	var announcements []models.Announcement
	if err := r.db.SelectContext(ctx, &announcements, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list announcements: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM announcements`+whereClause, args...); err != nil {
		return nil, 0, fmt.Errorf("count announcements: %w", err)
	}
	return announcements, total, nil
}

// FindByID returns an announcement or sql.ErrNoRows.
func (r *AnnouncementRepository) FindByID(ctx context.Context, id string) (*models.Announcement, error) {
	var ann models.Announcement
	if err := r.db.GetContext(ctx, &ann, `SELECT `+announcementColumns+` FROM announcements WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find announcement: %w", err)
	}
	return &ann, nil
}

// Create inserts a new announcement.
func (r *AnnouncementRepository) Create(ctx context.Context, ann *models.Announcement) error {
	if ann.ID == "" {
		ann.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if ann.CreatedAt.IsZero() {
		ann.CreatedAt = now
	}
	ann.UpdatedAt = now
	if ann.Dates == nil {
		ann.Dates = []string{}
	}
	const query = `INSERT INTO announcements (id, university_id, title, message, announced_for, category, priority, image_path, has_date_time, announcement_dates, from_time, to_time, per_date_times, created_by, created_at, updated_at) VALUES (:id, :university_id, :title, :message, :announced_for, :category, :priority, :image_path, :has_date_time, :announcement_dates, :from_time, :to_time, :per_date_times, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, ann); err != nil {
		return fmt.Errorf("create announcement: %w", err)
	}
	return nil
}

// Update overwrites the mutable fields.
func (r *AnnouncementRepository) Update(ctx context.Context, ann *models.Announcement) error {
	ann.UpdatedAt = time.Now().UTC()
	if ann.Dates == nil {
		ann.Dates = []string{}
	}
	const query = `UPDATE announcements SET title = :title, message = :message, announced_for = :announced_for, category = :category, priority = :priority, image_path = :image_path, has_date_time = :has_date_time, announcement_dates = :announcement_dates, from_time = :from_time, to_time = :to_time, per_date_times = :per_date_times, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, ann)
	if err != nil {
		return fmt.Errorf("update announcement: %w", err)
	}
	return expectAffected(res)
}

// Delete removes an announcement.
func (r *AnnouncementRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM announcements WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete announcement: %w", err)
	}
	return expectAffected(res)
}
