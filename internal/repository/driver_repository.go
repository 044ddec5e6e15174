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

const driverColumns = "id, full_name, email, phone, license_number, active, created_at, updated_at"

// DriverRepository provides persistence for the driver roster.
type DriverRepository struct {
	db *sqlx.DB
}

// NewDriverRepository creates a new driver repository.
func NewDriverRepository(db *sqlx.DB) *DriverRepository {
	return &DriverRepository{db: db}
}

// List returns drivers with optional filtering and pagination.
func (r *DriverRepository) List(ctx context.Context, filter models.DriverFilter) ([]models.Driver, int, error) {
	base := "FROM drivers WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(full_name ILIKE $%d OR email ILIKE $%d OR license_number ILIKE $%d)", len(args)+1, len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"full_name":  true,
		"email":      true,
		"created_at": true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", driverColumns, base, sortBy, order, size, offset)
	var drivers []models.Driver
	if err := r.db.SelectContext(ctx, &drivers, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list drivers: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count drivers: %w", err)
	}

	return drivers, total, nil
}

// FindByID loads a driver by id.
func (r *DriverRepository) FindByID(ctx context.Context, id string) (*models.Driver, error) {
	query := fmt.Sprintf("SELECT %s FROM drivers WHERE id = $1", driverColumns)
	var driver models.Driver
	if err := r.db.GetContext(ctx, &driver, query, id); err != nil {
		return nil, err
	}
	return &driver, nil
}

// ExistsByLicense checks license number uniqueness, optionally excluding one driver.
func (r *DriverRepository) ExistsByLicense(ctx context.Context, licenseNumber string, excludeID string) (bool, error) {
	query := "SELECT 1 FROM drivers WHERE LOWER(license_number) = LOWER($1)"
	args := []interface{}{licenseNumber}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check driver license: %w", err)
	}
	return true, nil
}

// Create stores a new driver record.
func (r *DriverRepository) Create(ctx context.Context, driver *models.Driver) error {
	if driver.ID == "" {
		driver.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if driver.CreatedAt.IsZero() {
		driver.CreatedAt = now
	}
	driver.UpdatedAt = now

	const query = `INSERT INTO drivers (id, full_name, email, phone, license_number, active, created_at, updated_at) VALUES (:id, :full_name, :email, :phone, :license_number, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, driver); err != nil {
		return fmt.Errorf("create driver: %w", err)
	}
	return nil
}

// Update modifies a driver record.
func (r *DriverRepository) Update(ctx context.Context, driver *models.Driver) error {
	driver.UpdatedAt = time.Now().UTC()
	const query = `UPDATE drivers SET full_name = :full_name, email = :email, phone = :phone, license_number = :license_number, active = :active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, driver); err != nil {
		return fmt.Errorf("update driver: %w", err)
	}
	return nil
}

// Deactivate marks a driver inactive without removing history.
func (r *DriverRepository) Deactivate(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE drivers SET active = FALSE, updated_at = $2 WHERE id = $1`, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("deactivate driver: %w", err)
	}
	return nil
}
