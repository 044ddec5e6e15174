package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/fleetdesk/fleetdesk-api/internal/models"
)

// SchedulerRepository assembles timeline window snapshots from the cars and
// bookings tables.
type SchedulerRepository struct {
	db *sqlx.DB
}

// NewSchedulerRepository constructs a scheduler repository.
func NewSchedulerRepository(db *sqlx.DB) *SchedulerRepository {
	return &SchedulerRepository{db: db}
}

type schedulerResourceRow struct {
	ID    string `db:"id"`
	Plate string `db:"plate"`
	Make  string `db:"make"`
	Model string `db:"model"`
}

type schedulerEventRow struct {
	ID             string    `db:"id"`
	CarID          string    `db:"car_id"`
	Title          string    `db:"title"`
	Subtitle       string    `db:"subtitle"`
	Status         string    `db:"status"`
	StartAt        time.Time `db:"start_at"`
	EndAt          time.Time `db:"end_at"`
	Amount         float64   `db:"amount"`
	BufferDuration int       `db:"buffer_duration"`
	GroupID        *string   `db:"group_id"`
}

// FetchWindow loads all cars and every booking whose interval intersects
// [start, end) into a window snapshot.
func (r *SchedulerRepository) FetchWindow(ctx context.Context, start, end time.Time) (*models.WindowData, error) {
	const resourceQuery = `SELECT id, plate, make, model FROM cars ORDER BY plate ASC`
	var resourceRows []schedulerResourceRow
	if err := r.db.SelectContext(ctx, &resourceRows, resourceQuery); err != nil {
		return nil, fmt.Errorf("fetch window resources: %w", err)
	}

	const eventQuery = `SELECT id, car_id, title, subtitle, status, start_at, end_at, amount, buffer_duration, group_id FROM bookings WHERE start_at < $2 AND end_at > $1 ORDER BY start_at ASC`
	var eventRows []schedulerEventRow
	if err := r.db.SelectContext(ctx, &eventRows, eventQuery, start, end); err != nil {
		return nil, fmt.Errorf("fetch window events: %w", err)
	}

	window := &models.WindowData{
		Resources: make([]models.SchedulerResource, 0, len(resourceRows)),
		Events:    make([]models.SchedulerEvent, 0, len(eventRows)),
	}
	for _, row := range resourceRows {
		window.Resources = append(window.Resources, models.SchedulerResource{
			ID:    row.ID,
			Title: fmt.Sprintf("%s %s", row.Make, row.Model),
			Plate: row.Plate,
		})
	}
	for _, row := range eventRows {
		event := models.SchedulerEvent{
			ID:             row.ID,
			ResourceID:     row.CarID,
			Title:          row.Title,
			Subtitle:       row.Subtitle,
			Status:         models.BookingStatus(row.Status),
			StartAt:        row.StartAt,
			EndAt:          row.EndAt,
			Amount:         row.Amount,
			BufferDuration: row.BufferDuration,
		}
		if row.GroupID != nil {
			event.GroupID = *row.GroupID
		}
		window.Events = append(window.Events, event)
	}
	return window, nil
}
