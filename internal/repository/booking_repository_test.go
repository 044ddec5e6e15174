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

func newBookingRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func bookingRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "car_id", "driver_id", "title", "subtitle", "status", "start_at", "end_at", "amount", "buffer_duration", "group_id", "created_at", "updated_at"})
}

func TestBookingRepositoryList(t *testing.T) {
	db, mock, cleanup := newBookingRepoMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	rows := bookingRows().
		AddRow("b1", "car-1", "drv-1", "Alice Johnson", "", "confirmed", time.Now(), time.Now().Add(48*time.Hour), 300.0, 60, nil, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, car_id, driver_id, title, subtitle, status, start_at, end_at, amount, buffer_duration, group_id, created_at, updated_at FROM bookings WHERE 1=1 AND car_id = $1 ORDER BY start_at ASC LIMIT 20 OFFSET 0")).
		WithArgs("car-1").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM bookings WHERE 1=1 AND car_id = $1")).
		WithArgs("car-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	list, total, err := repo.List(context.Background(), models.BookingFilter{CarID: "car-1"})
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepositoryListRejectsUnknownSort(t *testing.T) {
	db, mock, cleanup := newBookingRepoMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY start_at ASC LIMIT 20 OFFSET 0")).
		WillReturnRows(bookingRows())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM bookings")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	_, _, err := repo.List(context.Background(), models.BookingFilter{SortBy: "amount; DROP TABLE bookings"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepositoryFindOverlapping(t *testing.T) {
	db, mock, cleanup := newBookingRepoMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	start := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	end := start.Add(72 * time.Hour)
	rows := bookingRows().
		AddRow("b2", "car-1", "drv-2", "Bob Smith", "", "confirmed", start.Add(-24*time.Hour), start.Add(24*time.Hour), 150.0, 0, nil, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM bookings WHERE car_id = $1 AND start_at < $3 AND end_at > $2 AND id <> $4")).
		WithArgs("car-1", start, end, "b1").
		WillReturnRows(rows)

	overlaps, err := repo.FindOverlapping(context.Background(), "car-1", start, end, "b1")
	require.NoError(t, err)
	require.Len(t, overlaps, 1)
	assert.Equal(t, "b2", overlaps[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newBookingRepoMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	mock.ExpectExec("INSERT INTO bookings").
		WillReturnResult(sqlmock.NewResult(1, 1))

	driverID := "drv-1"
	booking := &models.Booking{CarID: "car-1", DriverID: &driverID, Title: "Alice Johnson", Status: models.StatusPending, StartAt: time.Now(), EndAt: time.Now().Add(24 * time.Hour), Amount: 120}
	require.NoError(t, repo.Create(context.Background(), booking))
	assert.NotEmpty(t, booking.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepositorySplitTx(t *testing.T) {
	db, mock, cleanup := newBookingRepoMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	splitAt := time.Date(2025, 6, 12, 0, 0, 0, 0, time.UTC)
	original := &models.Booking{ID: "b1", CarID: "car-1", StartAt: splitAt.Add(-48 * time.Hour), EndAt: splitAt.Add(48 * time.Hour)}
	second := &models.Booking{CarID: "car-1", Title: "Alice Johnson (Part 2)", StartAt: splitAt, EndAt: original.EndAt, GroupID: strPtr("b1")}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE bookings SET end_at = $1, group_id = $2, updated_at = $3 WHERE id = $4")).
		WithArgs(splitAt, "b1", sqlmock.AnyArg(), "b1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO bookings").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Split(context.Background(), original, second, splitAt))
	assert.NotEmpty(t, second.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepositorySplitRollsBackOnInsertFailure(t *testing.T) {
	db, mock, cleanup := newBookingRepoMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	splitAt := time.Date(2025, 6, 12, 0, 0, 0, 0, time.UTC)
	original := &models.Booking{ID: "b1", CarID: "car-1"}
	second := &models.Booking{CarID: "car-1", StartAt: splitAt}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE bookings SET end_at = $1")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO bookings").
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err := repo.Split(context.Background(), original, second, splitAt)
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepositoryUpdateStatusPairTx(t *testing.T) {
	db, mock, cleanup := newBookingRepoMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE bookings SET status = $1, subtitle = $2, updated_at = $3 WHERE id = $4")).
		WithArgs(models.StatusPending, "⚠️ Displaced - Needs Reschedule", sqlmock.AnyArg(), "b-conflict").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE bookings SET status = $1, subtitle = $2, updated_at = $3 WHERE id = $4")).
		WithArgs(models.StatusConfirmed, "Approved via Override", sqlmock.AnyArg(), "b-request").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.UpdateStatusPair(context.Background(),
		"b-conflict", models.StatusPending, "⚠️ Displaced - Needs Reschedule",
		"b-request", models.StatusConfirmed, "Approved via Override")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func strPtr(s string) *string { return &s }
