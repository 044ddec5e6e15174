package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fleetdesk/fleetdesk-api/internal/dto"
	"github.com/fleetdesk/fleetdesk-api/internal/models"
	"github.com/fleetdesk/fleetdesk-api/internal/scheduler"
	"github.com/fleetdesk/fleetdesk-api/internal/service"
	appErrors "github.com/fleetdesk/fleetdesk-api/pkg/errors"
	"github.com/fleetdesk/fleetdesk-api/pkg/response"
)

type schedulerService interface {
	GetWindow(ctx context.Context, month time.Time) (*models.WindowData, error)
	UpdateStatus(ctx context.Context, month time.Time, id string, status models.BookingStatus) error
	ResizeBooking(ctx context.Context, month time.Time, id string, newEnd time.Time) error
	UpdateBuffer(ctx context.Context, month time.Time, id string, minutes int) error
	QuoteEarlyReturn(ctx context.Context, month time.Time, id string, today time.Time, shouldRefund bool) (*scheduler.EarlyReturnQuote, error)
	ProcessEarlyReturn(ctx context.Context, month time.Time, id string, today time.Time, shouldRefund bool) (*scheduler.EarlyReturnQuote, error)
	CreateMaintenance(ctx context.Context, month time.Time, carID string, start, end time.Time) error
	SplitBooking(ctx context.Context, month time.Time, id string, splitDate time.Time) error
	ReassignBooking(ctx context.Context, month time.Time, id, newCarID string, newPrice float64) error
	Approve(ctx context.Context, month time.Time, id, originalCarID string, overrideEnabled bool) (*service.ApprovalOutcome, error)
}

// SchedulerHandler exposes the timeline window and its mutation endpoints.
type SchedulerHandler struct {
	scheduler schedulerService
}

// NewSchedulerHandler constructs SchedulerHandler.
func NewSchedulerHandler(svc schedulerService) *SchedulerHandler {
	return &SchedulerHandler{scheduler: svc}
}

// monthFromQuery parses the ?month=YYYY-MM parameter, defaulting to the
// current month.
func monthFromQuery(c *gin.Context) (time.Time, error) {
	raw := c.Query("month")
	if raw == "" {
		now := time.Now().UTC()
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC), nil
	}
	month, err := time.Parse("2006-01", raw)
	if err != nil {
		return time.Time{}, appErrors.Clone(appErrors.ErrValidation, "month must be formatted YYYY-MM")
	}
	return month, nil
}

// Window godoc
// @Summary Get the scheduler window for a month
// @Tags Scheduler
// @Produce json
// @Param month query string false "Month (YYYY-MM)"
// @Success 200 {object} response.Envelope
// @Router /scheduler/window [get]
func (h *SchedulerHandler) Window(c *gin.Context) {
	month, err := monthFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	window, err := h.scheduler.GetWindow(c.Request.Context(), month)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, window, nil)
}

// UpdateStatus godoc
// @Summary Change a booking's status
// @Tags Scheduler
// @Accept json
// @Produce json
// @Param id path string true "Booking ID"
// @Param month query string false "Month (YYYY-MM)"
// @Param payload body dto.UpdateBookingStatusRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Router /scheduler/bookings/{id}/status [patch]
func (h *SchedulerHandler) UpdateStatus(c *gin.Context) {
	month, err := monthFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.UpdateBookingStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	status := models.BookingStatus(req.Status)
	if !status.Valid() {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown booking status"))
		return
	}
	if err := h.scheduler.UpdateStatus(c.Request.Context(), month, c.Param("id"), status); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"id": c.Param("id"), "status": status}, nil)
}

// Resize godoc
// @Summary Move a booking's end date
// @Tags Scheduler
// @Accept json
// @Produce json
// @Param id path string true "Booking ID"
// @Param month query string false "Month (YYYY-MM)"
// @Param payload body dto.ResizeBookingRequest true "Resize payload"
// @Success 200 {object} response.Envelope
// @Router /scheduler/bookings/{id}/resize [patch]
func (h *SchedulerHandler) Resize(c *gin.Context) {
	month, err := monthFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.ResizeBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.scheduler.ResizeBooking(c.Request.Context(), month, c.Param("id"), req.NewEndAt); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"id": c.Param("id"), "new_end_at": req.NewEndAt}, nil)
}

// UpdateBuffer godoc
// @Summary Change a booking's turnaround buffer
// @Tags Scheduler
// @Accept json
// @Produce json
// @Param id path string true "Booking ID"
// @Param month query string false "Month (YYYY-MM)"
// @Param payload body dto.UpdateBufferRequest true "Buffer payload"
// @Success 200 {object} response.Envelope
// @Router /scheduler/bookings/{id}/buffer [patch]
func (h *SchedulerHandler) UpdateBuffer(c *gin.Context) {
	month, err := monthFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.UpdateBufferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.scheduler.UpdateBuffer(c.Request.Context(), month, c.Param("id"), req.Minutes); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"id": c.Param("id"), "buffer_minutes": req.Minutes}, nil)
}

// QuoteEarlyReturn godoc
// @Summary Preview the recalculated price for an early return
// @Tags Scheduler
// @Accept json
// @Produce json
// @Param id path string true "Booking ID"
// @Param month query string false "Month (YYYY-MM)"
// @Param payload body dto.EarlyReturnRequest true "Early return payload"
// @Success 200 {object} response.Envelope
// @Router /scheduler/bookings/{id}/early-return/quote [post]
func (h *SchedulerHandler) QuoteEarlyReturn(c *gin.Context) {
	month, err := monthFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.EarlyReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	quote, err := h.scheduler.QuoteEarlyReturn(c.Request.Context(), month, c.Param("id"), req.ReturnAt, req.ShouldRefund)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, quote, nil)
}

// EarlyReturn godoc
// @Summary Settle an early vehicle return
// @Tags Scheduler
// @Accept json
// @Produce json
// @Param id path string true "Booking ID"
// @Param month query string false "Month (YYYY-MM)"
// @Param payload body dto.EarlyReturnRequest true "Early return payload"
// @Success 200 {object} response.Envelope
// @Router /scheduler/bookings/{id}/early-return [post]
func (h *SchedulerHandler) EarlyReturn(c *gin.Context) {
	month, err := monthFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.EarlyReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	quote, err := h.scheduler.ProcessEarlyReturn(c.Request.Context(), month, c.Param("id"), req.ReturnAt, req.ShouldRefund)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, quote, nil)
}

// CreateMaintenance godoc
// @Summary Block a car for maintenance
// @Tags Scheduler
// @Accept json
// @Produce json
// @Param month query string false "Month (YYYY-MM)"
// @Param payload body dto.MaintenanceBlockRequest true "Maintenance payload"
// @Success 201 {object} response.Envelope
// @Router /scheduler/maintenance [post]
func (h *SchedulerHandler) CreateMaintenance(c *gin.Context) {
	month, err := monthFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.MaintenanceBlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if !req.EndAt.After(req.StartAt) {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "end must be after start"))
		return
	}
	if err := h.scheduler.CreateMaintenance(c.Request.Context(), month, req.CarID, req.StartAt, req.EndAt); err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, gin.H{"car_id": req.CarID, "start_at": req.StartAt, "end_at": req.EndAt})
}

// Split godoc
// @Summary Split a booking in two
// @Tags Scheduler
// @Accept json
// @Produce json
// @Param id path string true "Booking ID"
// @Param month query string false "Month (YYYY-MM)"
// @Param payload body dto.SplitBookingRequest true "Split payload"
// @Success 200 {object} response.Envelope
// @Router /scheduler/bookings/{id}/split [post]
func (h *SchedulerHandler) Split(c *gin.Context) {
	month, err := monthFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.SplitBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.scheduler.SplitBooking(c.Request.Context(), month, c.Param("id"), req.SplitAt); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"id": c.Param("id"), "split_at": req.SplitAt}, nil)
}

// Reassign godoc
// @Summary Move a booking to another car
// @Tags Scheduler
// @Accept json
// @Produce json
// @Param id path string true "Booking ID"
// @Param month query string false "Month (YYYY-MM)"
// @Param payload body dto.ReassignBookingRequest true "Reassign payload"
// @Success 200 {object} response.Envelope
// @Router /scheduler/bookings/{id}/reassign [post]
func (h *SchedulerHandler) Reassign(c *gin.Context) {
	month, err := monthFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.ReassignBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.scheduler.ReassignBooking(c.Request.Context(), month, c.Param("id"), req.NewCarID, req.NewPrice); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"id": c.Param("id"), "new_car_id": req.NewCarID}, nil)
}

// Approve godoc
// @Summary Approve a pending booking request
// @Tags Scheduler
// @Accept json
// @Produce json
// @Param id path string true "Booking ID"
// @Param month query string false "Month (YYYY-MM)"
// @Param payload body dto.ApproveBookingRequest true "Approval payload"
// @Success 200 {object} response.Envelope
// @Router /scheduler/bookings/{id}/approve [post]
func (h *SchedulerHandler) Approve(c *gin.Context) {
	month, err := monthFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.ApproveBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	outcome, err := h.scheduler.Approve(c.Request.Context(), month, c.Param("id"), req.OriginalCarID, req.Override)
	if err != nil {
		// A blocked approval still reports the conflicting booking so the
		// operator can decide whether to override.
		if outcome != nil && outcome.Conflict != nil {
			response.ErrorWithData(c, err, gin.H{"conflict": outcome.Conflict})
			return
		}
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, outcome, nil)
}
