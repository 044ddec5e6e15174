package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/fleetdesk/fleetdesk-api/internal/models"
	appErrors "github.com/fleetdesk/fleetdesk-api/pkg/errors"
)

// MutationResult is the response contract shared by every remote mutation.
// A false Success carries a business-rule rejection message.
type MutationResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// CreateResult extends MutationResult with the server-assigned id for
// creation-style operations.
type CreateResult struct {
	MutationResult
	ID string `json:"id,omitempty"`
}

// Remote is the backend boundary the coordinator calls after a local patch.
type Remote interface {
	UpdateBookingStatus(ctx context.Context, id string, status models.BookingStatus) (MutationResult, error)
	UpdateBookingDates(ctx context.Context, id string, newEnd time.Time) (MutationResult, error)
	UpdateBufferDuration(ctx context.Context, id string, minutes int) (MutationResult, error)
	ProcessEarlyReturn(ctx context.Context, id string, newEnd time.Time, finalPrice, refundAmount float64, shouldRefund bool) (MutationResult, error)
	CreateMaintenanceBlock(ctx context.Context, carID string, start, end time.Time) (CreateResult, error)
	SplitBooking(ctx context.Context, id string, splitDate time.Time) (CreateResult, error)
	ReassignBooking(ctx context.Context, id, newCarID string, newPrice float64) (MutationResult, error)
}

// OverrideApprover is an optional Remote extension that applies the
// displaced/confirmed pair atomically. Without it the coordinator falls back
// to two sequential status updates.
type OverrideApprover interface {
	ApproveOverride(ctx context.Context, requestID, conflictID string) error
}

// Notifier surfaces mutation outcomes to the operator.
type Notifier interface {
	Success(ctx context.Context, operation, message string)
	Failure(ctx context.Context, operation, message string)
}

// MutationObserver receives per-operation outcome counts for instrumentation.
type MutationObserver interface {
	ObserveSchedulerMutation(operation string, success bool)
}

// Coordinator applies the optimistic mutation protocol to the window cache:
// cancel in-flight fetches, snapshot, patch locally, call the remote, keep on
// success or restore on failure, and always invalidate so a background refetch
// reconciles the optimistic view with server truth.
type Coordinator struct {
	store    Store
	remote   Remote
	notifier Notifier
	observer MutationObserver
	logger   *zap.Logger
	now      func() time.Time
}

// NewCoordinator wires the coordinator. notifier and observer may be nil.
func NewCoordinator(store Store, remote Remote, notifier Notifier, observer MutationObserver, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		store:    store,
		remote:   remote,
		notifier: notifier,
		observer: observer,
		logger:   logger,
		now:      time.Now,
	}
}

// patchFunc mutates a cloned window in place for the optimistic write.
type patchFunc func(*models.WindowData)

// callFunc invokes the remote operation for the mutation.
type callFunc func(context.Context) (MutationResult, error)

// UpdateStatus changes a booking's lifecycle status.
func (c *Coordinator) UpdateStatus(ctx context.Context, month time.Time, id string, status models.BookingStatus) error {
	if !status.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, "unknown booking status")
	}
	return c.mutate(ctx, month, "update booking status", func(w *models.WindowData) {
		patchEvent(w, id, func(e *models.SchedulerEvent) {
			e.Status = status
		})
	}, func(ctx context.Context) (MutationResult, error) {
		return c.remote.UpdateBookingStatus(ctx, id, status)
	})
}

// UpdateDates moves a booking's end date (timeline resize).
func (c *Coordinator) UpdateDates(ctx context.Context, month time.Time, id string, newEnd time.Time) error {
	return c.mutate(ctx, month, "update booking dates", func(w *models.WindowData) {
		patchEvent(w, id, func(e *models.SchedulerEvent) {
			e.EndAt = newEnd
		})
	}, func(ctx context.Context) (MutationResult, error) {
		return c.remote.UpdateBookingDates(ctx, id, newEnd)
	})
}

// UpdateBuffer changes the mandatory turnaround minutes after a booking.
func (c *Coordinator) UpdateBuffer(ctx context.Context, month time.Time, id string, minutes int) error {
	if minutes < 0 {
		return appErrors.Clone(appErrors.ErrValidation, "buffer duration must not be negative")
	}
	return c.mutate(ctx, month, "update buffer duration", func(w *models.WindowData) {
		patchEvent(w, id, func(e *models.SchedulerEvent) {
			e.BufferDuration = minutes
		})
	}, func(ctx context.Context) (MutationResult, error) {
		return c.remote.UpdateBufferDuration(ctx, id, minutes)
	})
}

// ProcessEarlyReturn closes a booking early at the recalculated price.
func (c *Coordinator) ProcessEarlyReturn(ctx context.Context, month time.Time, id string, newEnd time.Time, finalPrice, refundAmount float64, shouldRefund bool) error {
	return c.mutate(ctx, month, "process early return", func(w *models.WindowData) {
		patchEvent(w, id, func(e *models.SchedulerEvent) {
			e.EndAt = newEnd
			e.Status = models.StatusCompleted
			e.Amount = finalPrice
			e.Subtitle = "Returned Early"
		})
	}, func(ctx context.Context) (MutationResult, error) {
		return c.remote.ProcessEarlyReturn(ctx, id, newEnd, finalPrice, refundAmount, shouldRefund)
	})
}

// CreateMaintenance inserts a maintenance block under a provisional id. The
// invalidation-triggered refetch replaces it with the server-assigned id.
func (c *Coordinator) CreateMaintenance(ctx context.Context, month time.Time, carID string, start, end time.Time) error {
	if !end.After(start) {
		return appErrors.Clone(appErrors.ErrValidation, "maintenance end must be after start")
	}
	event := models.SchedulerEvent{
		ID:         models.NewProvisionalMaintenanceID(c.now()),
		ResourceID: carID,
		Title:      "Maintenance",
		Status:     models.StatusMaintenance,
		StartAt:    start,
		EndAt:      end,
		Amount:     0,
	}
	return c.mutate(ctx, month, "create maintenance block", func(w *models.WindowData) {
		w.Events = append(w.Events, event)
	}, func(ctx context.Context) (MutationResult, error) {
		res, err := c.remote.CreateMaintenanceBlock(ctx, carID, start, end)
		return res.MutationResult, err
	})
}

// SplitBooking cuts a booking at splitDate: the original keeps [start, splitDate)
// and a pending second half covers [splitDate, end). The split point must be
// strictly inside the interval.
func (c *Coordinator) SplitBooking(ctx context.Context, month time.Time, id string, splitDate time.Time) error {
	return c.mutate(ctx, month, "split booking", func(w *models.WindowData) {
		original, ok := findEvent(w, id)
		if !ok {
			return
		}
		second := models.SchedulerEvent{
			ID:             models.NewProvisionalSplitID(c.now()),
			ResourceID:     original.ResourceID,
			Title:          original.Title + " (Part 2)",
			Subtitle:       original.Subtitle,
			Status:         models.StatusPending,
			StartAt:        splitDate,
			EndAt:          original.EndAt,
			Amount:         original.Amount,
			BufferDuration: original.BufferDuration,
			GroupID:        original.ID,
		}
		patchEvent(w, id, func(e *models.SchedulerEvent) {
			e.EndAt = splitDate
			e.GroupID = e.ID
		})
		w.Events = append(w.Events, second)
	}, func(ctx context.Context) (MutationResult, error) {
		res, err := c.remote.SplitBooking(ctx, id, splitDate)
		return res.MutationResult, err
	}, func(w *models.WindowData) error {
		original, ok := findEvent(w, id)
		if !ok {
			return appErrors.Clone(appErrors.ErrNotFound, "booking not found in window")
		}
		if !splitDate.After(original.StartAt) || !splitDate.Before(original.EndAt) {
			return appErrors.Clone(appErrors.ErrValidation, "split point must fall strictly inside the booking interval")
		}
		return nil
	})
}

// ReassignBooking moves a booking to another car at a new price and confirms it.
func (c *Coordinator) ReassignBooking(ctx context.Context, month time.Time, id, newCarID string, newPrice float64) error {
	return c.mutate(ctx, month, "reassign booking", func(w *models.WindowData) {
		patchEvent(w, id, func(e *models.SchedulerEvent) {
			e.ResourceID = newCarID
			e.Amount = newPrice
			e.Status = models.StatusConfirmed
		})
	}, func(ctx context.Context) (MutationResult, error) {
		return c.remote.ReassignBooking(ctx, id, newCarID, newPrice)
	})
}

// ApproveWithOverride demotes the conflicting confirmed booking to pending and
// promotes the request to confirmed in a single cache write, then settles both
// against the remote. A failure on either remote call restores the snapshot,
// so the pair never lands half-applied.
func (c *Coordinator) ApproveWithOverride(ctx context.Context, month time.Time, requestID, conflictID string) error {
	return c.mutate(ctx, month, "approve booking via override", func(w *models.WindowData) {
		patchEvent(w, conflictID, func(e *models.SchedulerEvent) {
			e.Status = models.StatusPending
			e.Subtitle = SubtitleDisplaced
		})
		patchEvent(w, requestID, func(e *models.SchedulerEvent) {
			e.Status = models.StatusConfirmed
			e.Subtitle = SubtitleOverride
		})
	}, func(ctx context.Context) (MutationResult, error) {
		if approver, ok := c.remote.(OverrideApprover); ok {
			if err := approver.ApproveOverride(ctx, requestID, conflictID); err != nil {
				return MutationResult{}, err
			}
			return MutationResult{Success: true}, nil
		}
		res, err := c.remote.UpdateBookingStatus(ctx, conflictID, models.StatusPending)
		if err != nil || !res.Success {
			return res, err
		}
		return c.remote.UpdateBookingStatus(ctx, requestID, models.StatusConfirmed)
	})
}

// mutate runs the four-phase protocol: begin (cancel + snapshot), patch, call,
// settle. Invalidation always fires so a refetch reconciles with server truth.
func (c *Coordinator) mutate(ctx context.Context, month time.Time, operation string, patch patchFunc, call callFunc, validate ...func(*models.WindowData) error) error {
	key := WindowKey(month)

	// Begin: a late-arriving stale fetch must not clobber the optimistic patch.
	c.store.Cancel(key)

	previous, had, err := c.store.Get(ctx, key)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read scheduler window")
	}

	for _, v := range validate {
		target := previous
		if target == nil {
			target = &models.WindowData{}
		}
		if err := v(target); err != nil {
			return err
		}
	}

	// Patch: the operator sees the change immediately.
	if had {
		patched := previous.Clone()
		patch(patched)
		if err := c.store.Set(ctx, key, patched); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to write optimistic patch")
		}
	}

	// Call + settle.
	err = c.settle(ctx, operation, call)

	// Always invalidate: the single source of eventual consistency.
	if invErr := c.store.Invalidate(ctx, BaseKey); invErr != nil {
		c.logger.Warn("window invalidation failed",
			zap.String("operation", operation),
			zap.Error(invErr),
		)
	}

	if err != nil {
		// Re-seed the snapshot after invalidation; invalidation drops the key,
		// so the restore must land last for readers to see pre-mutation truth
		// until the refetch completes.
		if had {
			if restoreErr := c.store.Set(ctx, key, previous); restoreErr != nil {
				c.logger.Error("snapshot restore failed",
					zap.String("operation", operation),
					zap.Error(restoreErr),
				)
			}
		}
		appErr := appErrors.FromError(err)
		c.logger.Warn("scheduler mutation failed",
			zap.String("operation", operation),
			zap.String("reason", appErr.Message),
		)
		if c.notifier != nil {
			c.notifier.Failure(ctx, operation, appErr.Message)
		}
	} else if c.notifier != nil {
		c.notifier.Success(ctx, operation, operation+" applied")
	}

	if c.observer != nil {
		c.observer.ObserveSchedulerMutation(operation, err == nil)
	}
	return err
}

// settle converts a success=false result into an error so the rollback branch
// always engages.
func (c *Coordinator) settle(ctx context.Context, operation string, call callFunc) error {
	res, err := call(ctx)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to "+operation)
	}
	if !res.Success {
		message := res.Message
		if message == "" {
			message = "failed to " + operation
		}
		return appErrors.New(appErrors.ErrPreconditionFailed.Code, appErrors.ErrPreconditionFailed.Status, message)
	}
	return nil
}

func findEvent(w *models.WindowData, id string) (models.SchedulerEvent, bool) {
	for _, e := range w.Events {
		if e.ID == id {
			return e, true
		}
	}
	return models.SchedulerEvent{}, false
}

func patchEvent(w *models.WindowData, id string, apply func(*models.SchedulerEvent)) {
	for i := range w.Events {
		if w.Events[i].ID == id {
			apply(&w.Events[i])
			return
		}
	}
}
