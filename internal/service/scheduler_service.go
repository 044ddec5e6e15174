package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/fleetdesk/fleetdesk-api/internal/models"
	"github.com/fleetdesk/fleetdesk-api/internal/scheduler"
	appErrors "github.com/fleetdesk/fleetdesk-api/pkg/errors"
)

type windowRepository interface {
	FetchWindow(ctx context.Context, start, end time.Time) (*models.WindowData, error)
}

// ApprovalOutcome reports how an approval request resolved.
type ApprovalOutcome struct {
	Action   string                 `json:"action"`
	Conflict *models.SchedulerEvent `json:"conflict,omitempty"`
}

// Approval action labels exposed to API consumers.
const (
	ApprovalActionApproved        = "approved"
	ApprovalActionReassignPending = "reassign_pending"
	ApprovalActionOverridden      = "overridden"
)

// SchedulerService serves timeline windows through the cache and funnels every
// mutation through the optimistic coordinator.
type SchedulerService struct {
	store       scheduler.Store
	repo        windowRepository
	coordinator *scheduler.Coordinator
	metrics     *MetricsService
	logger      *zap.Logger
}

// NewSchedulerService constructs a SchedulerService. metrics may be nil.
func NewSchedulerService(store scheduler.Store, repo windowRepository, coordinator *scheduler.Coordinator, metrics *MetricsService, logger *zap.Logger) *SchedulerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SchedulerService{store: store, repo: repo, coordinator: coordinator, metrics: metrics, logger: logger}
}

// GetWindow returns the cached window for the month, fetching through to the
// database on a miss. The fetch runs under a cancellable context registered
// with the store so an in-flight load can be aborted by a mutation.
func (s *SchedulerService) GetWindow(ctx context.Context, month time.Time) (*models.WindowData, error) {
	key := scheduler.WindowKey(month)

	started := time.Now()
	window, ok, err := s.store.Get(ctx, key)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read scheduler window")
	}
	s.metrics.RecordCacheOperation(ok, time.Since(started))
	if ok {
		return window, nil
	}

	fetchCtx, done := s.store.BeginFetch(ctx, key)
	defer done()

	start, end := scheduler.WindowRange(month)
	window, err = s.repo.FetchWindow(fetchCtx, start, end)
	if err != nil {
		if fetchCtx.Err() != nil {
			return nil, appErrors.Clone(appErrors.ErrConflict, "window fetch superseded by a concurrent mutation")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch scheduler window")
	}
	if fetchCtx.Err() != nil {
		// A mutation cancelled this fetch; its result is stale and must not
		// overwrite the optimistic patch.
		return window, nil
	}

	if err := s.store.Set(ctx, key, window); err != nil {
		s.logger.Warn("window cache write failed", zap.String("key", key), zap.Error(err))
	}
	return window, nil
}

// UpdateStatus changes a booking's status through the coordinator.
func (s *SchedulerService) UpdateStatus(ctx context.Context, month time.Time, id string, status models.BookingStatus) error {
	return s.coordinator.UpdateStatus(ctx, month, id, status)
}

// ResizeBooking moves a booking's end date through the coordinator.
func (s *SchedulerService) ResizeBooking(ctx context.Context, month time.Time, id string, newEnd time.Time) error {
	return s.coordinator.UpdateDates(ctx, month, id, newEnd)
}

// UpdateBuffer changes a booking's turnaround buffer through the coordinator.
func (s *SchedulerService) UpdateBuffer(ctx context.Context, month time.Time, id string, minutes int) error {
	return s.coordinator.UpdateBuffer(ctx, month, id, minutes)
}

// QuoteEarlyReturn computes the early-return recalculation for a booking
// without applying it.
func (s *SchedulerService) QuoteEarlyReturn(ctx context.Context, month time.Time, id string, today time.Time, shouldRefund bool) (*scheduler.EarlyReturnQuote, error) {
	event, err := s.findEvent(ctx, month, id)
	if err != nil {
		return nil, err
	}
	quote := scheduler.QuoteEarlyReturn(*event, today, shouldRefund)
	return &quote, nil
}

// ProcessEarlyReturn quotes and applies an early return through the coordinator.
func (s *SchedulerService) ProcessEarlyReturn(ctx context.Context, month time.Time, id string, today time.Time, shouldRefund bool) (*scheduler.EarlyReturnQuote, error) {
	event, err := s.findEvent(ctx, month, id)
	if err != nil {
		return nil, err
	}
	if event.Status != models.StatusConfirmed {
		return nil, appErrors.Clone(appErrors.ErrBookingImmutable, "only confirmed bookings can be returned early")
	}
	quote := scheduler.QuoteEarlyReturn(*event, today, shouldRefund)
	if err := s.coordinator.ProcessEarlyReturn(ctx, month, id, quote.ActualReturnAt, quote.NewTotal, quote.RefundAmount, shouldRefund); err != nil {
		return nil, err
	}
	return &quote, nil
}

// CreateMaintenance inserts a maintenance block through the coordinator.
func (s *SchedulerService) CreateMaintenance(ctx context.Context, month time.Time, carID string, start, end time.Time) error {
	return s.coordinator.CreateMaintenance(ctx, month, carID, start, end)
}

// SplitBooking splits a booking through the coordinator.
func (s *SchedulerService) SplitBooking(ctx context.Context, month time.Time, id string, splitDate time.Time) error {
	return s.coordinator.SplitBooking(ctx, month, id, splitDate)
}

// ReassignBooking moves a booking to another car through the coordinator.
func (s *SchedulerService) ReassignBooking(ctx context.Context, month time.Time, id, newCarID string, newPrice float64) error {
	return s.coordinator.ReassignBooking(ctx, month, id, newCarID, newPrice)
}

// Approve resolves a pending request approval. Depending on placement and
// conflicts it confirms directly, defers to a reassignment confirmation,
// refuses, or displaces the conflicting booking when override mode is on.
func (s *SchedulerService) Approve(ctx context.Context, month time.Time, id, originalCarID string, overrideEnabled bool) (*ApprovalOutcome, error) {
	window, err := s.GetWindow(ctx, month)
	if err != nil {
		return nil, err
	}
	var request *models.SchedulerEvent
	for i := range window.Events {
		if window.Events[i].ID == id {
			request = &window.Events[i]
			break
		}
	}
	if request == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "booking not found in window")
	}

	decision := scheduler.DecideApproval(scheduler.ApprovalInput{
		Request:         *request,
		OriginalCarID:   originalCarID,
		Events:          window.Events,
		OverrideEnabled: overrideEnabled,
	})

	switch decision.Action {
	case scheduler.ApproveDirect:
		if err := s.coordinator.UpdateStatus(ctx, month, id, models.StatusConfirmed); err != nil {
			return nil, err
		}
		return &ApprovalOutcome{Action: ApprovalActionApproved}, nil
	case scheduler.ProposeReassign:
		return &ApprovalOutcome{Action: ApprovalActionReassignPending}, nil
	case scheduler.Blocked:
		return &ApprovalOutcome{Conflict: decision.Conflict}, appErrors.Clone(appErrors.ErrOverrideRequired, appErrors.ErrOverrideRequired.Message)
	case scheduler.ApproveOverride:
		if err := s.coordinator.ApproveWithOverride(ctx, month, id, decision.Conflict.ID); err != nil {
			return nil, err
		}
		return &ApprovalOutcome{Action: ApprovalActionOverridden, Conflict: decision.Conflict}, nil
	}
	return nil, appErrors.Clone(appErrors.ErrInternal, "unhandled approval decision")
}

func (s *SchedulerService) findEvent(ctx context.Context, month time.Time, id string) (*models.SchedulerEvent, error) {
	window, err := s.GetWindow(ctx, month)
	if err != nil {
		return nil, err
	}
	for i := range window.Events {
		if window.Events[i].ID == id {
			return &window.Events[i], nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "booking not found in window")
}
