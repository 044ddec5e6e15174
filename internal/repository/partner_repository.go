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

const partnerColumns = "id, company_name, contact_name, email, phone, payout_share, active, created_at, updated_at"

// PartnerRepository provides persistence for fleet partners.
type PartnerRepository struct {
	db *sqlx.DB
}

// NewPartnerRepository creates a new partner repository.
func NewPartnerRepository(db *sqlx.DB) *PartnerRepository {
	return &PartnerRepository{db: db}
}

// List returns partners with optional filtering and pagination.
func (r *PartnerRepository) List(ctx context.Context, filter models.PartnerFilter) ([]models.Partner, int, error) {
	base := "FROM partners WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(company_name ILIKE $%d OR contact_name ILIKE $%d OR email ILIKE $%d)", len(args)+1, len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"company_name": true,
		"payout_share": true,
		"created_at":   true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "company_name"
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", partnerColumns, base, sortBy, order, size, offset)
	var partners []models.Partner
	if err := r.db.SelectContext(ctx, &partners, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list partners: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count partners: %w", err)
	}

	return partners, total, nil
}

// FindByID loads a partner by id.
func (r *PartnerRepository) FindByID(ctx context.Context, id string) (*models.Partner, error) {
	query := fmt.Sprintf("SELECT %s FROM partners WHERE id = $1", partnerColumns)
	var partner models.Partner
	if err := r.db.GetContext(ctx, &partner, query, id); err != nil {
		return nil, err
	}
	return &partner, nil
}

// ListCars returns the fleet units owned by a partner.
func (r *PartnerRepository) ListCars(ctx context.Context, partnerID string) ([]models.Car, error) {
	const query = `SELECT id, partner_id, plate, make, model, year, daily_rate, available, created_at, updated_at FROM cars WHERE partner_id = $1 ORDER BY plate ASC`
	var cars []models.Car
	if err := r.db.SelectContext(ctx, &cars, query, partnerID); err != nil {
		return nil, fmt.Errorf("list partner cars: %w", err)
	}
	return cars, nil
}

// Create stores a new partner record.
func (r *PartnerRepository) Create(ctx context.Context, partner *models.Partner) error {
	if partner.ID == "" {
		partner.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if partner.CreatedAt.IsZero() {
		partner.CreatedAt = now
	}
	partner.UpdatedAt = now

	const query = `INSERT INTO partners (id, company_name, contact_name, email, phone, payout_share, active, created_at, updated_at) VALUES (:id, :company_name, :contact_name, :email, :phone, :payout_share, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, partner); err != nil {
		return fmt.Errorf("create partner: %w", err)
	}
	return nil
}

// Update modifies a partner record.
func (r *PartnerRepository) Update(ctx context.Context, partner *models.Partner) error {
	partner.UpdatedAt = time.Now().UTC()
	const query = `UPDATE partners SET company_name = :company_name, contact_name = :contact_name, email = :email, phone = :phone, payout_share = :payout_share, active = :active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, partner); err != nil {
		return fmt.Errorf("update partner: %w", err)
	}
	return nil
}

// Deactivate marks a partner inactive without removing history.
func (r *PartnerRepository) Deactivate(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE partners SET active = FALSE, updated_at = $2 WHERE id = $1`, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("deactivate partner: %w", err)
	}
	return nil
}
