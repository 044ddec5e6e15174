package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/fleetdesk/fleetdesk-api/internal/models"
)

const carColumns = "id, partner_id, plate, make, model, year, daily_rate, available, created_at, updated_at"

// CarRepository provides persistence for fleet units.
type CarRepository struct {
	db *sqlx.DB
}

// NewCarRepository creates a new car repository.
func NewCarRepository(db *sqlx.DB) *CarRepository {
	return &CarRepository{db: db}
}

// List returns cars with optional filtering and pagination.
func (r *CarRepository) List(ctx context.Context, filter models.CarFilter) ([]models.Car, int, error) {
	base := "FROM cars WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.PartnerID != "" {
		conditions = append(conditions, fmt.Sprintf("partner_id = $%d", len(args)+1))
		args = append(args, filter.PartnerID)
	}
	if filter.Available != nil {
		conditions = append(conditions, fmt.Sprintf("available = $%d", len(args)+1))
		args = append(args, *filter.Available)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(plate ILIKE $%d OR make ILIKE $%d OR model ILIKE $%d)", len(args)+1, len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"plate":      true,
		"make":       true,
		"daily_rate": true,
		"created_at": true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "plate"
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", carColumns, base, sortBy, order, size, offset)
	var cars []models.Car
	if err := r.db.SelectContext(ctx, &cars, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list cars: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count cars: %w", err)
	}

	return cars, total, nil
}

// FindByID loads a car by id.
func (r *CarRepository) FindByID(ctx context.Context, id string) (*models.Car, error) {
	query := fmt.Sprintf("SELECT %s FROM cars WHERE id = $1", carColumns)
	var car models.Car
	if err := r.db.GetContext(ctx, &car, query, id); err != nil {
		return nil, err
	}
	return &car, nil
}

// ExistsByPlate checks plate uniqueness, optionally excluding one car id.
func (r *CarRepository) ExistsByPlate(ctx context.Context, plate string, excludeID string) (bool, error) {
	query := "SELECT 1 FROM cars WHERE LOWER(plate) = LOWER($1)"
	args := []interface{}{plate}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check car plate: %w", err)
	}
	return true, nil
}

// Create stores a new car record.
func (r *CarRepository) Create(ctx context.Context, car *models.Car) error {
	if car.ID == "" {
		car.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if car.CreatedAt.IsZero() {
		car.CreatedAt = now
	}
	car.UpdatedAt = now

	const query = `INSERT INTO cars (id, partner_id, plate, make, model, year, daily_rate, available, created_at, updated_at) VALUES (:id, :partner_id, :plate, :make, :model, :year, :daily_rate, :available, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, car); err != nil {
		return fmt.Errorf("create car: %w", err)
	}
	return nil
}

// Update modifies a car record.
func (r *CarRepository) Update(ctx context.Context, car *models.Car) error {
	car.UpdatedAt = time.Now().UTC()
	const query = `UPDATE cars SET partner_id = :partner_id, plate = :plate, make = :make, model = :model, year = :year, daily_rate = :daily_rate, available = :available, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, car); err != nil {
		return fmt.Errorf("update car: %w", err)
	}
	return nil
}

// Delete removes a car by id.
func (r *CarRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM cars WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete car: %w", err)
	}
	return nil
}
