package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-feed-api/internal/models"
)

var announcementRowColumns = []string{"id", "university_id", "title", "message", "announced_for", "category", "priority", "image_path", "has_date_time", "announcement_dates", "from_time", "to_time", "per_date_times", "created_by", "created_at", "updated_at"}

func TestAnnouncementRepositoryListPaginates(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAnnouncementRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(announcementRowColumns).
		AddRow("a1", "uni", "Exams", "Bring IDs", "Year 2", "Educational", "Urgent", nil, true, "{2024-01-10,2024-01-11}", "9:00 AM", "11:00 AM", nil, "u1", now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM announcements WHERE university_id = $1 ORDER BY created_at DESC, id ASC LIMIT 10 OFFSET 10")).
		WithArgs("uni").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM announcements WHERE university_id = $1")).
		WithArgs("uni").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(11))

	items, total, err := repo.List(context.Background(), models.AnnouncementFilter{UniversityID: "uni", Page: 2, PageSize: 10})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 11, total)
	assert.Equal(t, []string{"2024-01-10", "2024-01-11"}, []string(items[0].Dates))
	assert.Equal(t, models.AnnouncementPriorityUrgent, items[0].Priority)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAnnouncementRepositoryListAllWithoutPageSize(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAnnouncementRepository(db)

	mock.ExpectQuery(`ORDER BY created_at DESC, id ASC$`).WillReturnRows(sqlmock.NewRows(announcementRowColumns))
	mock.ExpectQuery("SELECT COUNT").WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	items, total, err := repo.List(context.Background(), models.AnnouncementFilter{})
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Zero(t, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAnnouncementRepositoryCreateDefaultsDates(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAnnouncementRepository(db)

	mock.ExpectExec("INSERT INTO announcements").WillReturnResult(sqlmock.NewResult(1, 1))

	ann := &models.Announcement{UniversityID: "uni", Title: "Notice", CreatedBy: "u1"}
	require.NoError(t, repo.Create(context.Background(), ann))
	assert.NotEmpty(t, ann.ID)
	assert.NotNil(t, ann.Dates)
	assert.NoError(t, mock.ExpectationsWereMet())
}
