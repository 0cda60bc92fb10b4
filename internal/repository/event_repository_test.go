package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-feed-api/internal/models"
)

var eventRowColumns = []string{"id", "university_id", "series_id", "title", "description", "category", "appearance", "event_date", "start_time", "end_time", "venue", "platform", "link", "organizer", "flyer_path", "per_day_times", "per_day_venues", "per_day_descriptions", "created_by", "created_at", "updated_at"}

func TestEventRepositoryCreateBatchCommits(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO events").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO events").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	venues := models.TextOverrides{"2024-03-02": "Hall B"}
	events := []models.Event{
		{UniversityID: "uni", Title: "Expo", Date: "2024-03-01", StartTime: "9:00 AM", PerDayVenues: venues, CreatedBy: "u1"},
		{UniversityID: "uni", Title: "Expo", Date: "2024-03-02", StartTime: "9:00 AM", PerDayVenues: venues, CreatedBy: "u1"},
	}
	require.NoError(t, repo.CreateBatch(context.Background(), events))
	assert.NotEmpty(t, events[0].ID)
	assert.NotEqual(t, events[0].ID, events[1].ID)
	assert.False(t, events[1].CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepositoryCreateBatchRollsBack(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO events").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO events").WillReturnError(errors.New("boom"))
	mock.ExpectRollback()

	err := repo.CreateBatch(context.Background(), []models.Event{{Date: "2024-03-01"}, {Date: "2024-03-02"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2024-03-02")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepositoryListBuildsFilters(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(eventRowColumns).
		AddRow("e1", "uni", nil, "Expo", "", "General", "Physical", "2024-03-01", "9:00 AM", "11:00 AM", "Hall A", nil, nil, "Club", nil,
			[]byte(`{"2024-03-02":{"start":"10:00 AM","end":"12:00 PM"}}`), nil, nil, "u1", now, now)
	mock.ExpectQuery(regexp.QuoteMeta("to_char(event_date, 'YYYY-MM-DD') AS event_date") + ".*" +
		regexp.QuoteMeta("WHERE university_id = $1 AND event_date >= $2 AND event_date <= $3 ORDER BY event_date ASC")).
		WithArgs("uni", "2024-03-01", "2024-03-31").
		WillReturnRows(rows)

	from, to := "2024-03-01", "2024-03-31"
	events, err := repo.List(context.Background(), models.EventFilter{UniversityID: "uni", FromDate: &from, ToDate: &to})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "2024-03-01", events[0].Date)
	assert.Equal(t, "Hall A", *events[0].Venue)
	assert.Equal(t, models.TimePair{Start: "10:00 AM", End: "12:00 PM"}, events[0].PerDayTimes["2024-03-02"])
	assert.Nil(t, events[0].PerDayVenues)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepositoryDeleteMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	mock.ExpectExec("DELETE FROM events").WithArgs("e9").WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.Delete(context.Background(), "e9"), sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepositoryCountByFlyerPath(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM events WHERE flyer_path").
		WithArgs("flyers/a.webp").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	count, err := repo.CountByFlyerPath(context.Background(), "flyers/a.webp")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}
