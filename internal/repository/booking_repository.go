package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/fleetdesk/fleetdesk-api/internal/models"
)

const bookingColumns = "id, car_id, driver_id, title, subtitle, status, start_at, end_at, amount, buffer_duration, group_id, created_at, updated_at"

// BookingRepository provides persistence for bookings and maintenance blocks.
type BookingRepository struct {
	db *sqlx.DB
}

// NewBookingRepository creates a new booking repository.
func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// List returns bookings with optional filtering and pagination.
func (r *BookingRepository) List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, int, error) {
	base := "FROM bookings WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.CarID != "" {
		conditions = append(conditions, fmt.Sprintf("car_id = $%d", len(args)+1))
		args = append(args, filter.CarID)
	}
	if filter.DriverID != "" {
		conditions = append(conditions, fmt.Sprintf("driver_id = $%d", len(args)+1))
		args = append(args, filter.DriverID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("end_at >= $%d", len(args)+1))
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("start_at < $%d", len(args)+1))
		args = append(args, *filter.To)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"start_at":   true,
		"end_at":     true,
		"status":     true,
		"amount":     true,
		"created_at": true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "start_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", bookingColumns, base, sortBy, order, size, offset)
	var bookings []models.Booking
	if err := r.db.SelectContext(ctx, &bookings, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list bookings: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count bookings: %w", err)
	}

	return bookings, total, nil
}

// FindByID loads a booking by id.
func (r *BookingRepository) FindByID(ctx context.Context, id string) (*models.Booking, error) {
	query := fmt.Sprintf("SELECT %s FROM bookings WHERE id = $1", bookingColumns)
	var booking models.Booking
	if err := r.db.GetContext(ctx, &booking, query, id); err != nil {
		return nil, err
	}
	return &booking, nil
}

// FindOverlapping returns bookings on the car whose half-open interval
// intersects [start, end), excluding ignoreID when provided.
func (r *BookingRepository) FindOverlapping(ctx context.Context, carID string, start, end time.Time, ignoreID string) ([]models.Booking, error) {
	query := fmt.Sprintf("SELECT %s FROM bookings WHERE car_id = $1 AND start_at < $3 AND end_at > $2 AND id <> $4", bookingColumns)
	var bookings []models.Booking
	if err := r.db.SelectContext(ctx, &bookings, query, carID, start, end, ignoreID); err != nil {
		return nil, fmt.Errorf("find overlapping bookings: %w", err)
	}
	return bookings, nil
}

// Create stores a new booking record.
func (r *BookingRepository) Create(ctx context.Context, booking *models.Booking) error {
	if booking.ID == "" {
		booking.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = now
	}
	booking.UpdatedAt = now

	const query = `INSERT INTO bookings (id, car_id, driver_id, title, subtitle, status, start_at, end_at, amount, buffer_duration, group_id, created_at, updated_at) VALUES (:id, :car_id, :driver_id, :title, :subtitle, :status, :start_at, :end_at, :amount, :buffer_duration, :group_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, booking); err != nil {
		return fmt.Errorf("create booking: %w", err)
	}
	return nil
}

// Update modifies a booking record.
func (r *BookingRepository) Update(ctx context.Context, booking *models.Booking) error {
	booking.UpdatedAt = time.Now().UTC()
	const query = `UPDATE bookings SET car_id = :car_id, driver_id = :driver_id, title = :title, subtitle = :subtitle, status = :status, start_at = :start_at, end_at = :end_at, amount = :amount, buffer_duration = :buffer_duration, group_id = :group_id, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, booking); err != nil {
		return fmt.Errorf("update booking: %w", err)
	}
	return nil
}

// Split shortens the original booking to end at splitAt and inserts the second
// half within one transaction, returning the new booking's id.
func (r *BookingRepository) Split(ctx context.Context, original *models.Booking, second *models.Booking, splitAt time.Time) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin split booking: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	if _, err = tx.ExecContext(ctx, `UPDATE bookings SET end_at = $1, group_id = $2, updated_at = $3 WHERE id = $4`, splitAt, original.ID, now, original.ID); err != nil {
		return fmt.Errorf("shorten original booking: %w", err)
	}

	if second.ID == "" {
		second.ID = uuid.NewString()
	}
	second.CreatedAt = now
	second.UpdatedAt = now
	if _, err = sqlx.NamedExecContext(ctx, tx, `INSERT INTO bookings (id, car_id, driver_id, title, subtitle, status, start_at, end_at, amount, buffer_duration, group_id, created_at, updated_at) VALUES (:id, :car_id, :driver_id, :title, :subtitle, :status, :start_at, :end_at, :amount, :buffer_duration, :group_id, :created_at, :updated_at)`, second); err != nil {
		return fmt.Errorf("insert split half: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit split booking: %w", err)
	}
	return nil
}

// UpdateStatusPair flips two bookings' statuses within one transaction; used
// by the override approval flow so the displaced pair never lands half-applied.
func (r *BookingRepository) UpdateStatusPair(ctx context.Context, firstID string, firstStatus models.BookingStatus, firstSubtitle string, secondID string, secondStatus models.BookingStatus, secondSubtitle string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin status pair update: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	const query = `UPDATE bookings SET status = $1, subtitle = $2, updated_at = $3 WHERE id = $4`
	if _, err = tx.ExecContext(ctx, query, firstStatus, firstSubtitle, now, firstID); err != nil {
		return fmt.Errorf("update first booking status: %w", err)
	}
	if _, err = tx.ExecContext(ctx, query, secondStatus, secondSubtitle, now, secondID); err != nil {
		return fmt.Errorf("update second booking status: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit status pair update: %w", err)
	}
	return nil
}

// Delete removes a booking by id.
func (r *BookingRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM bookings WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete booking: %w", err)
	}
	return nil
}
