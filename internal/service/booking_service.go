package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/fleetdesk/fleetdesk-api/internal/models"
	"github.com/fleetdesk/fleetdesk-api/internal/scheduler"
	appErrors "github.com/fleetdesk/fleetdesk-api/pkg/errors"
)

type bookingRepository interface {
	List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, int, error)
	FindByID(ctx context.Context, id string) (*models.Booking, error)
	FindOverlapping(ctx context.Context, carID string, start, end time.Time, ignoreID string) ([]models.Booking, error)
	Create(ctx context.Context, booking *models.Booking) error
	Update(ctx context.Context, booking *models.Booking) error
	Split(ctx context.Context, original *models.Booking, second *models.Booking, splitAt time.Time) error
	UpdateStatusPair(ctx context.Context, firstID string, firstStatus models.BookingStatus, firstSubtitle string, secondID string, secondStatus models.BookingStatus, secondSubtitle string) error
	Delete(ctx context.Context, id string) error
}

type bookingCarRepository interface {
	FindByID(ctx context.Context, id string) (*models.Car, error)
}

// CreateBookingRequest represents payload for creating bookings.
type CreateBookingRequest struct {
	CarID    string    `json:"car_id" validate:"required"`
	DriverID string    `json:"driver_id" validate:"required"`
	Title    string    `json:"title" validate:"required,max=200"`
	StartAt  time.Time `json:"start_at" validate:"required"`
	EndAt    time.Time `json:"end_at" validate:"required"`
	Amount   float64   `json:"amount" validate:"gte=0"`
}

// UpdateBookingRequest represents payload for updating bookings.
type UpdateBookingRequest struct {
	Title          string    `json:"title" validate:"required,max=200"`
	Subtitle       string    `json:"subtitle" validate:"max=200"`
	StartAt        time.Time `json:"start_at" validate:"required"`
	EndAt          time.Time `json:"end_at" validate:"required"`
	Amount         float64   `json:"amount" validate:"gte=0"`
	BufferDuration int       `json:"buffer_duration" validate:"gte=0"`
}

// BookingService orchestrates booking lifecycle operations and serves as the
// backend the scheduler coordinator settles against.
type BookingService struct {
	repo      bookingRepository
	cars      bookingCarRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewBookingService constructs a BookingService.
func NewBookingService(repo bookingRepository, cars bookingCarRepository, validate *validator.Validate, logger *zap.Logger) *BookingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BookingService{repo: repo, cars: cars, validator: validate, logger: logger}
}

// List returns bookings plus pagination data.
func (s *BookingService) List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, *models.Pagination, error) {
	bookings, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list bookings")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return bookings, pagination, nil
}

// Get returns a booking by id.
func (s *BookingService) Get(ctx context.Context, id string) (*models.Booking, error) {
	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "booking not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load booking")
	}
	return booking, nil
}

// Create stores a new pending booking after validating the interval.
func (s *BookingService) Create(ctx context.Context, req CreateBookingRequest) (*models.Booking, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	if !req.EndAt.After(req.StartAt) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "booking end must be after start")
	}
	if _, err := s.cars.FindByID(ctx, req.CarID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "car not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load car")
	}

	booking := &models.Booking{
		CarID:    req.CarID,
		DriverID: &req.DriverID,
		Title:    req.Title,
		Status:   models.StatusPending,
		StartAt:  req.StartAt,
		EndAt:    req.EndAt,
		Amount:   req.Amount,
	}
	if err := s.repo.Create(ctx, booking); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create booking")
	}
	return booking, nil
}

// Update modifies a booking's mutable fields.
func (s *BookingService) Update(ctx context.Context, id string, req UpdateBookingRequest) (*models.Booking, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	if !req.EndAt.After(req.StartAt) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "booking end must be after start")
	}
	booking, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if booking.Status == models.StatusCompleted {
		return nil, appErrors.Clone(appErrors.ErrBookingImmutable, "completed bookings cannot be modified")
	}

	booking.Title = req.Title
	booking.Subtitle = req.Subtitle
	booking.StartAt = req.StartAt
	booking.EndAt = req.EndAt
	booking.Amount = req.Amount
	booking.BufferDuration = req.BufferDuration
	if err := s.repo.Update(ctx, booking); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update booking")
	}
	return booking, nil
}

// Delete removes a booking.
func (s *BookingService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete booking")
	}
	return nil
}

// Remote boundary implementation. Business-rule rejections come back as
// unsuccessful results with a message; only infrastructure failures return an
// error, so the coordinator can tell a rejection from a broken backend.

// UpdateBookingStatus transitions a booking's lifecycle status.
func (s *BookingService) UpdateBookingStatus(ctx context.Context, id string, status models.BookingStatus) (scheduler.MutationResult, error) {
	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return scheduler.MutationResult{Message: "booking not found"}, nil
		}
		return scheduler.MutationResult{}, fmt.Errorf("load booking for status update: %w", err)
	}
	if booking.Status == models.StatusCompleted {
		return scheduler.MutationResult{Message: "completed bookings cannot change status"}, nil
	}

	if status == models.StatusConfirmed {
		overlaps, err := s.repo.FindOverlapping(ctx, booking.CarID, booking.StartAt, booking.EndAt, booking.ID)
		if err != nil {
			return scheduler.MutationResult{}, fmt.Errorf("check conflicts for confirmation: %w", err)
		}
		if msg, blocked := rejectionForOverlaps(overlaps); blocked {
			return scheduler.MutationResult{Message: msg}, nil
		}
	}

	booking.Status = status
	if err := s.repo.Update(ctx, booking); err != nil {
		return scheduler.MutationResult{}, fmt.Errorf("update booking status: %w", err)
	}
	return scheduler.MutationResult{Success: true}, nil
}

// UpdateBookingDates moves a booking's end date.
func (s *BookingService) UpdateBookingDates(ctx context.Context, id string, newEnd time.Time) (scheduler.MutationResult, error) {
	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return scheduler.MutationResult{Message: "booking not found"}, nil
		}
		return scheduler.MutationResult{}, fmt.Errorf("load booking for resize: %w", err)
	}
	if booking.Status == models.StatusCompleted {
		return scheduler.MutationResult{Message: "completed bookings cannot be resized"}, nil
	}
	if !newEnd.After(booking.StartAt) {
		return scheduler.MutationResult{Message: "booking end must be after start"}, nil
	}

	overlaps, err := s.repo.FindOverlapping(ctx, booking.CarID, booking.StartAt, newEnd, booking.ID)
	if err != nil {
		return scheduler.MutationResult{}, fmt.Errorf("check conflicts for resize: %w", err)
	}
	if msg, blocked := rejectionForOverlaps(overlaps); blocked {
		return scheduler.MutationResult{Message: msg}, nil
	}

	booking.EndAt = newEnd
	if err := s.repo.Update(ctx, booking); err != nil {
		return scheduler.MutationResult{}, fmt.Errorf("update booking dates: %w", err)
	}
	return scheduler.MutationResult{Success: true}, nil
}

// UpdateBufferDuration sets the turnaround minutes that follow a booking.
func (s *BookingService) UpdateBufferDuration(ctx context.Context, id string, minutes int) (scheduler.MutationResult, error) {
	if minutes < 0 {
		return scheduler.MutationResult{Message: "buffer duration must not be negative"}, nil
	}
	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return scheduler.MutationResult{Message: "booking not found"}, nil
		}
		return scheduler.MutationResult{}, fmt.Errorf("load booking for buffer update: %w", err)
	}
	booking.BufferDuration = minutes
	if err := s.repo.Update(ctx, booking); err != nil {
		return scheduler.MutationResult{}, fmt.Errorf("update buffer duration: %w", err)
	}
	return scheduler.MutationResult{Success: true}, nil
}

// ProcessEarlyReturn closes a booking at the recalculated price.
func (s *BookingService) ProcessEarlyReturn(ctx context.Context, id string, newEnd time.Time, finalPrice, refundAmount float64, shouldRefund bool) (scheduler.MutationResult, error) {
	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return scheduler.MutationResult{Message: "booking not found"}, nil
		}
		return scheduler.MutationResult{}, fmt.Errorf("load booking for early return: %w", err)
	}
	if booking.Status != models.StatusConfirmed {
		return scheduler.MutationResult{Message: "only confirmed bookings can be returned early"}, nil
	}

	booking.EndAt = newEnd
	booking.Status = models.StatusCompleted
	booking.Amount = finalPrice
	booking.Subtitle = "Returned Early"
	if err := s.repo.Update(ctx, booking); err != nil {
		return scheduler.MutationResult{}, fmt.Errorf("process early return: %w", err)
	}
	if shouldRefund && refundAmount > 0 {
		s.logger.Info("refund issued for early return",
			zap.String("booking_id", id),
			zap.Float64("refund_amount", refundAmount),
		)
	}
	return scheduler.MutationResult{Success: true}, nil
}

// CreateMaintenanceBlock reserves a car for workshop time. The interval must
// be free of bookings of any status.
func (s *BookingService) CreateMaintenanceBlock(ctx context.Context, carID string, start, end time.Time) (scheduler.CreateResult, error) {
	if _, err := s.cars.FindByID(ctx, carID); err != nil {
		if err == sql.ErrNoRows {
			return scheduler.CreateResult{MutationResult: scheduler.MutationResult{Message: "car not found"}}, nil
		}
		return scheduler.CreateResult{}, fmt.Errorf("load car for maintenance block: %w", err)
	}
	overlaps, err := s.repo.FindOverlapping(ctx, carID, start, end, "")
	if err != nil {
		return scheduler.CreateResult{}, fmt.Errorf("check conflicts for maintenance block: %w", err)
	}
	if len(overlaps) > 0 {
		return scheduler.CreateResult{MutationResult: scheduler.MutationResult{Message: "car has bookings within the maintenance interval"}}, nil
	}

	block := &models.Booking{
		CarID:   carID,
		Title:   "Maintenance",
		Status:  models.StatusMaintenance,
		StartAt: start,
		EndAt:   end,
	}
	if err := s.repo.Create(ctx, block); err != nil {
		return scheduler.CreateResult{}, fmt.Errorf("create maintenance block: %w", err)
	}
	return scheduler.CreateResult{MutationResult: scheduler.MutationResult{Success: true}, ID: block.ID}, nil
}

// SplitBooking cuts a booking at splitDate. The original keeps the first half
// and a pending second half is inserted, linked through the group id.
func (s *BookingService) SplitBooking(ctx context.Context, id string, splitDate time.Time) (scheduler.CreateResult, error) {
	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return scheduler.CreateResult{MutationResult: scheduler.MutationResult{Message: "booking not found"}}, nil
		}
		return scheduler.CreateResult{}, fmt.Errorf("load booking for split: %w", err)
	}
	if booking.Status == models.StatusCompleted {
		return scheduler.CreateResult{MutationResult: scheduler.MutationResult{Message: "completed bookings cannot be split"}}, nil
	}
	if !splitDate.After(booking.StartAt) || !splitDate.Before(booking.EndAt) {
		return scheduler.CreateResult{MutationResult: scheduler.MutationResult{Message: "split point must fall strictly inside the booking interval"}}, nil
	}

	second := &models.Booking{
		CarID:          booking.CarID,
		DriverID:       booking.DriverID,
		Title:          booking.Title + " (Part 2)",
		Subtitle:       booking.Subtitle,
		Status:         models.StatusPending,
		StartAt:        splitDate,
		EndAt:          booking.EndAt,
		Amount:         booking.Amount,
		BufferDuration: booking.BufferDuration,
		GroupID:        &booking.ID,
	}
	if err := s.repo.Split(ctx, booking, second, splitDate); err != nil {
		return scheduler.CreateResult{}, fmt.Errorf("split booking: %w", err)
	}
	return scheduler.CreateResult{MutationResult: scheduler.MutationResult{Success: true}, ID: second.ID}, nil
}

// ReassignBooking moves a booking to another car at a new price and confirms it.
func (s *BookingService) ReassignBooking(ctx context.Context, id, newCarID string, newPrice float64) (scheduler.MutationResult, error) {
	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return scheduler.MutationResult{Message: "booking not found"}, nil
		}
		return scheduler.MutationResult{}, fmt.Errorf("load booking for reassignment: %w", err)
	}
	if booking.Status == models.StatusCompleted {
		return scheduler.MutationResult{Message: "completed bookings cannot be reassigned"}, nil
	}
	if _, err := s.cars.FindByID(ctx, newCarID); err != nil {
		if err == sql.ErrNoRows {
			return scheduler.MutationResult{Message: "target car not found"}, nil
		}
		return scheduler.MutationResult{}, fmt.Errorf("load target car: %w", err)
	}

	overlaps, err := s.repo.FindOverlapping(ctx, newCarID, booking.StartAt, booking.EndAt, booking.ID)
	if err != nil {
		return scheduler.MutationResult{}, fmt.Errorf("check conflicts for reassignment: %w", err)
	}
	if msg, blocked := rejectionForOverlaps(overlaps); blocked {
		return scheduler.MutationResult{Message: msg}, nil
	}

	booking.CarID = newCarID
	booking.Amount = newPrice
	booking.Status = models.StatusConfirmed
	if err := s.repo.Update(ctx, booking); err != nil {
		return scheduler.MutationResult{}, fmt.Errorf("reassign booking: %w", err)
	}
	return scheduler.MutationResult{Success: true}, nil
}

// ApproveOverride persists the displaced/confirmed pair in one transaction.
func (s *BookingService) ApproveOverride(ctx context.Context, requestID, conflictID string) error {
	err := s.repo.UpdateStatusPair(ctx,
		conflictID, models.StatusPending, scheduler.SubtitleDisplaced,
		requestID, models.StatusConfirmed, scheduler.SubtitleOverride)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to apply override approval")
	}
	return nil
}

// rejectionForOverlaps maps in-conflict neighbours to an operator-facing
// rejection message. Maintenance blocks win over booking conflicts.
func rejectionForOverlaps(overlaps []models.Booking) (string, bool) {
	for _, other := range overlaps {
		if other.Status == models.StatusMaintenance {
			return "Car under maintenance lock", true
		}
	}
	for _, other := range overlaps {
		if other.Status == models.StatusConfirmed {
			return "interval conflicts with a confirmed booking", true
		}
	}
	return "", false
}
