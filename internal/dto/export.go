package dto

import "time"

// CreateExportRequest queues an asynchronous export job.
type CreateExportRequest struct {
	Type      string     `json:"type" validate:"required,oneof=bookings fleet_utilization partner_payouts agreement"`
	Format    string     `json:"format" validate:"required,oneof=csv pdf"`
	From      *time.Time `json:"from"`
	To        *time.Time `json:"to"`
	CarID     *string    `json:"car_id"`
	BookingID *string    `json:"booking_id"`
}
