package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/fleetdesk/fleetdesk-api/internal/models"
)

// AnalyticsRepository exposes read-optimised aggregates for exports and
// dashboard endpoints.
type AnalyticsRepository struct {
	db *sqlx.DB
}

// NewAnalyticsRepository instantiates the repository.
func NewAnalyticsRepository(db *sqlx.DB) *AnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

// FleetUtilization aggregates booked hours and revenue per car for confirmed
// and completed bookings intersecting [from, to).
func (r *AnalyticsRepository) FleetUtilization(ctx context.Context, from, to time.Time) ([]models.FleetUtilization, error) {
	const query = `SELECT c.id AS car_id, c.plate,
        COUNT(b.id) AS booking_count,
        COALESCE(SUM(EXTRACT(EPOCH FROM (LEAST(b.end_at, $2) - GREATEST(b.start_at, $1))) / 3600), 0) AS booked_hours,
        CASE WHEN EXTRACT(EPOCH FROM ($2::timestamptz - $1::timestamptz)) = 0 THEN 0
             ELSE COALESCE(SUM(EXTRACT(EPOCH FROM (LEAST(b.end_at, $2) - GREATEST(b.start_at, $1)))), 0) / EXTRACT(EPOCH FROM ($2::timestamptz - $1::timestamptz)) END AS utilization_rate,
        COALESCE(SUM(b.amount), 0) AS revenue
        FROM cars c
        LEFT JOIN bookings b ON b.car_id = c.id AND b.start_at < $2 AND b.end_at > $1 AND b.status IN ('confirmed', 'completed')
        GROUP BY c.id, c.plate
        ORDER BY c.plate ASC`
	var rows []models.FleetUtilization
	if err := r.db.SelectContext(ctx, &rows, query, from, to); err != nil {
		return nil, fmt.Errorf("query fleet utilization: %w", err)
	}
	return rows, nil
}

// PartnerPayouts aggregates partner revenue share for completed bookings
// ending within [from, to).
func (r *AnalyticsRepository) PartnerPayouts(ctx context.Context, from, to time.Time) ([]models.PartnerPayout, error) {
	const query = `SELECT p.id AS partner_id, p.company_name,
        COUNT(b.id) AS booking_count,
        COALESCE(SUM(b.amount), 0) AS gross_revenue,
        p.payout_share,
        COALESCE(SUM(b.amount), 0) * p.payout_share AS payout_amount
        FROM partners p
        JOIN cars c ON c.partner_id = p.id
        LEFT JOIN bookings b ON b.car_id = c.id AND b.status = 'completed' AND b.end_at >= $1 AND b.end_at < $2
        GROUP BY p.id, p.company_name, p.payout_share
        ORDER BY payout_amount DESC`
	var rows []models.PartnerPayout
	if err := r.db.SelectContext(ctx, &rows, query, from, to); err != nil {
		return nil, fmt.Errorf("query partner payouts: %w", err)
	}
	return rows, nil
}
