package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetdesk/fleetdesk-api/internal/models"
)

func newSchedulerRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestSchedulerRepositoryFetchWindow(t *testing.T) {
	db, mock, cleanup := newSchedulerRepoMock(t)
	defer cleanup()
	repo := NewSchedulerRepository(db)

	start := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, plate, make, model FROM cars ORDER BY plate ASC")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "plate", "make", "model"}).
			AddRow("car-1", "B 1234 XY", "Toyota", "Avanza").
			AddRow("car-2", "B 5678 ZZ", "Honda", "Brio"))

	mock.ExpectQuery(regexp.QuoteMeta("FROM bookings WHERE start_at < $2 AND end_at > $1 ORDER BY start_at ASC")).
		WithArgs(start, end).
		WillReturnRows(sqlmock.NewRows([]string{"id", "car_id", "title", "subtitle", "status", "start_at", "end_at", "amount", "buffer_duration", "group_id"}).
			AddRow("b1", "car-1", "Alice Johnson", "", "confirmed", start.Add(24*time.Hour), start.Add(96*time.Hour), 300.0, 60, nil).
			AddRow("b2", "car-2", "Bob Smith (Part 2)", "", "confirmed", start.Add(48*time.Hour), start.Add(120*time.Hour), 150.0, 0, "b0"))

	window, err := repo.FetchWindow(context.Background(), start, end)
	require.NoError(t, err)
	require.Len(t, window.Resources, 2)
	assert.Equal(t, "Toyota Avanza", window.Resources[0].Title)
	assert.Equal(t, "B 1234 XY", window.Resources[0].Plate)
	require.Len(t, window.Events, 2)
	assert.Equal(t, "car-1", window.Events[0].ResourceID)
	assert.Equal(t, models.StatusConfirmed, window.Events[0].Status)
	assert.Equal(t, "b0", window.Events[1].GroupID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSchedulerRepositoryFetchWindowEmpty(t *testing.T) {
	db, mock, cleanup := newSchedulerRepoMock(t)
	defer cleanup()
	repo := NewSchedulerRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM cars ORDER BY plate ASC")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "plate", "make", "model"}))
	mock.ExpectQuery(regexp.QuoteMeta("FROM bookings WHERE start_at < $2 AND end_at > $1")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "car_id", "title", "subtitle", "status", "start_at", "end_at", "amount", "buffer_duration", "group_id"}))

	window, err := repo.FetchWindow(context.Background(), time.Now(), time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, window.Resources)
	assert.Empty(t, window.Events)
	assert.NoError(t, mock.ExpectationsWereMet())
}
