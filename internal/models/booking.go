package models

import "time"

// BookingStatus enumerates the lifecycle states of a booking.
type BookingStatus string

const (
	StatusPending     BookingStatus = "pending"
	StatusConfirmed   BookingStatus = "confirmed"
	StatusCompleted   BookingStatus = "completed"
	StatusMaintenance BookingStatus = "maintenance"
)

// Valid reports whether the status is one of the known lifecycle states.
func (s BookingStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusMaintenance:
		return true
	}
	return false
}

// Booking represents one bookable or blocking interval on the timeline.
type Booking struct {
	ID             string        `db:"id" json:"id"`
	CarID          string        `db:"car_id" json:"car_id"`
	DriverID       *string       `db:"driver_id" json:"driver_id,omitempty"`
	Title          string        `db:"title" json:"title"`
	Subtitle       string        `db:"subtitle" json:"subtitle"`
	Status         BookingStatus `db:"status" json:"status"`
	StartAt        time.Time     `db:"start_at" json:"start_at"`
	EndAt          time.Time     `db:"end_at" json:"end_at"`
	Amount         float64       `db:"amount" json:"amount"`
	BufferDuration int           `db:"buffer_duration" json:"buffer_duration"`
	GroupID        *string       `db:"group_id" json:"group_id,omitempty"`
	CreatedAt      time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time     `db:"updated_at" json:"updated_at"`
}

// Overlaps reports whether the half-open interval [StartAt, EndAt) intersects
// the other booking's interval.
func (b Booking) Overlaps(other Booking) bool {
	return b.StartAt.Before(other.EndAt) && b.EndAt.After(other.StartAt)
}

// BookingFilter describes query params for listing bookings.
type BookingFilter struct {
	CarID     string
	DriverID  string
	Status    string
	From      *time.Time
	To        *time.Time
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// BookingConflict describes an existing booking that blocks an approval.
type BookingConflict struct {
	BookingID string        `json:"booking_id"`
	CarID     string        `json:"car_id"`
	Title     string        `json:"title"`
	Status    BookingStatus `json:"status"`
	StartAt   time.Time     `json:"start_at"`
	EndAt     time.Time     `json:"end_at"`
}

// BookingConflictError is returned when a booking collides with a confirmed one.
type BookingConflictError struct {
	Message  string          `json:"message"`
	Conflict BookingConflict `json:"conflict"`
}

// Error implements the error interface for conflict errors.
func (e *BookingConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}
