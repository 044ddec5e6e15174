package dto

import "time"

// UpdateBookingStatusRequest changes a booking's lifecycle status.
type UpdateBookingStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending confirmed completed maintenance"`
}

// ResizeBookingRequest moves a booking's end date.
type ResizeBookingRequest struct {
	NewEndAt time.Time `json:"new_end_at" validate:"required"`
}

// UpdateBufferRequest changes the turnaround buffer trailing a booking.
type UpdateBufferRequest struct {
	Minutes int `json:"minutes" validate:"min=0,max=1440"`
}

// EarlyReturnRequest requests a quote or settlement for an early vehicle return.
type EarlyReturnRequest struct {
	ReturnAt     time.Time `json:"return_at" validate:"required"`
	ShouldRefund bool      `json:"should_refund"`
}

// MaintenanceBlockRequest reserves a car for workshop time.
type MaintenanceBlockRequest struct {
	CarID   string    `json:"car_id" validate:"required"`
	StartAt time.Time `json:"start_at" validate:"required"`
	EndAt   time.Time `json:"end_at" validate:"required"`
}

// SplitBookingRequest cuts a booking in two at the given date.
type SplitBookingRequest struct {
	SplitAt time.Time `json:"split_at" validate:"required"`
}

// ReassignBookingRequest moves a booking to another car.
type ReassignBookingRequest struct {
	NewCarID string  `json:"new_car_id" validate:"required"`
	NewPrice float64 `json:"new_price" validate:"min=0"`
}

// ApproveBookingRequest resolves a pending request, optionally bumping a
// conflicting confirmed booking.
type ApproveBookingRequest struct {
	OriginalCarID string `json:"original_car_id"`
	Override      bool   `json:"override"`
}
