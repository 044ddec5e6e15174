package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetdesk/fleetdesk-api/internal/models"
	"github.com/fleetdesk/fleetdesk-api/internal/scheduler"
	appErrors "github.com/fleetdesk/fleetdesk-api/pkg/errors"
)

type fakeWindowStore struct {
	data        map[string]*models.WindowData
	invalidated int
	cancelled   []string
	sets        int
}

func newFakeWindowStore() *fakeWindowStore {
	return &fakeWindowStore{data: map[string]*models.WindowData{}}
}

func (s *fakeWindowStore) Get(ctx context.Context, key string) (*models.WindowData, bool, error) {
	if w, ok := s.data[key]; ok {
		return w.Clone(), true, nil
	}
	return nil, false, nil
}

func (s *fakeWindowStore) Set(ctx context.Context, key string, data *models.WindowData) error {
	s.sets++
	s.data[key] = data.Clone()
	return nil
}

func (s *fakeWindowStore) BeginFetch(ctx context.Context, key string) (context.Context, context.CancelFunc) {
	return context.WithCancel(ctx)
}

func (s *fakeWindowStore) Cancel(key string) {
	s.cancelled = append(s.cancelled, key)
}

func (s *fakeWindowStore) Invalidate(ctx context.Context, prefix string) error {
	s.invalidated++
	for key := range s.data {
		delete(s.data, key)
	}
	return nil
}

type fakeWindowRepo struct {
	window  *models.WindowData
	fetches int
}

func (r *fakeWindowRepo) FetchWindow(ctx context.Context, start, end time.Time) (*models.WindowData, error) {
	r.fetches++
	return r.window.Clone(), nil
}

type fakeRemote struct {
	statusCalls []string
	overrides   int
}

func (r *fakeRemote) UpdateBookingStatus(ctx context.Context, id string, status models.BookingStatus) (scheduler.MutationResult, error) {
	r.statusCalls = append(r.statusCalls, id+":"+string(status))
	return scheduler.MutationResult{Success: true}, nil
}

func (r *fakeRemote) UpdateBookingDates(ctx context.Context, id string, newEnd time.Time) (scheduler.MutationResult, error) {
	return scheduler.MutationResult{Success: true}, nil
}

func (r *fakeRemote) UpdateBufferDuration(ctx context.Context, id string, minutes int) (scheduler.MutationResult, error) {
	return scheduler.MutationResult{Success: true}, nil
}

func (r *fakeRemote) ProcessEarlyReturn(ctx context.Context, id string, newEnd time.Time, finalPrice, refundAmount float64, shouldRefund bool) (scheduler.MutationResult, error) {
	return scheduler.MutationResult{Success: true}, nil
}

func (r *fakeRemote) CreateMaintenanceBlock(ctx context.Context, carID string, start, end time.Time) (scheduler.CreateResult, error) {
	return scheduler.CreateResult{MutationResult: scheduler.MutationResult{Success: true}, ID: "maint-1"}, nil
}

func (r *fakeRemote) SplitBooking(ctx context.Context, id string, splitDate time.Time) (scheduler.CreateResult, error) {
	return scheduler.CreateResult{MutationResult: scheduler.MutationResult{Success: true}, ID: "split-1"}, nil
}

func (r *fakeRemote) ReassignBooking(ctx context.Context, id, newCarID string, newPrice float64) (scheduler.MutationResult, error) {
	return scheduler.MutationResult{Success: true}, nil
}

func (r *fakeRemote) ApproveOverride(ctx context.Context, requestID, conflictID string) error {
	r.overrides++
	return nil
}

func schedulerMonth() time.Time {
	return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
}

func windowWith(events ...models.SchedulerEvent) *models.WindowData {
	return &models.WindowData{
		Resources: []models.SchedulerResource{{ID: "car-1", Title: "Toyota Avanza", Plate: "B 1234 XY"}},
		Events:    events,
	}
}

func newSchedulerFixture(window *models.WindowData) (*SchedulerService, *fakeWindowStore, *fakeWindowRepo, *fakeRemote) {
	store := newFakeWindowStore()
	repo := &fakeWindowRepo{window: window}
	remote := &fakeRemote{}
	coord := scheduler.NewCoordinator(store, remote, nil, nil, nil)
	svc := NewSchedulerService(store, repo, coord, nil, nil)
	return svc, store, repo, remote
}

func TestSchedulerServiceGetWindowFetchesOnMiss(t *testing.T) {
	window := windowWith(models.SchedulerEvent{ID: "b1", ResourceID: "car-1"})
	svc, store, repo, _ := newSchedulerFixture(window)

	got, err := svc.GetWindow(context.Background(), schedulerMonth())
	require.NoError(t, err)
	require.Len(t, got.Events, 1)
	assert.Equal(t, 1, repo.fetches)
	assert.Equal(t, 1, store.sets)

	// second read is served from cache
	_, err = svc.GetWindow(context.Background(), schedulerMonth())
	require.NoError(t, err)
	assert.Equal(t, 1, repo.fetches)
}

func TestSchedulerServiceApproveDirect(t *testing.T) {
	start := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	window := windowWith(models.SchedulerEvent{
		ID: "req", ResourceID: "car-1", Status: models.StatusPending,
		StartAt: start, EndAt: start.Add(48 * time.Hour),
	})
	svc, _, _, remote := newSchedulerFixture(window)

	outcome, err := svc.Approve(context.Background(), schedulerMonth(), "req", "car-1", false)
	require.NoError(t, err)
	assert.Equal(t, ApprovalActionApproved, outcome.Action)
	assert.Contains(t, remote.statusCalls, "req:confirmed")
}

func TestSchedulerServiceApproveBlockedWithoutOverride(t *testing.T) {
	start := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	window := windowWith(
		models.SchedulerEvent{ID: "req", ResourceID: "car-1", Status: models.StatusPending, StartAt: start, EndAt: start.Add(48 * time.Hour)},
		models.SchedulerEvent{ID: "cfl", ResourceID: "car-1", Status: models.StatusConfirmed, StartAt: start.Add(24 * time.Hour), EndAt: start.Add(72 * time.Hour)},
	)
	svc, _, _, remote := newSchedulerFixture(window)

	outcome, err := svc.Approve(context.Background(), schedulerMonth(), "req", "car-1", false)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrOverrideRequired.Code, appErr.Code)
	require.NotNil(t, outcome)
	require.NotNil(t, outcome.Conflict)
	assert.Equal(t, "cfl", outcome.Conflict.ID)
	assert.Empty(t, remote.statusCalls)
}

func TestSchedulerServiceApproveWithOverrideDisplacesConflict(t *testing.T) {
	start := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	window := windowWith(
		models.SchedulerEvent{ID: "req", ResourceID: "car-1", Status: models.StatusPending, StartAt: start, EndAt: start.Add(48 * time.Hour)},
		models.SchedulerEvent{ID: "cfl", ResourceID: "car-1", Status: models.StatusConfirmed, StartAt: start.Add(24 * time.Hour), EndAt: start.Add(72 * time.Hour)},
	)
	svc, store, _, remote := newSchedulerFixture(window)

	outcome, err := svc.Approve(context.Background(), schedulerMonth(), "req", "car-1", true)
	require.NoError(t, err)
	assert.Equal(t, ApprovalActionOverridden, outcome.Action)
	assert.Equal(t, 1, remote.overrides)
	assert.Equal(t, 1, store.invalidated)
}

func TestSchedulerServiceApproveGhostRelocationProposesReassign(t *testing.T) {
	start := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	window := windowWith(models.SchedulerEvent{
		ID: "req", ResourceID: "car-2", Status: models.StatusPending,
		StartAt: start, EndAt: start.Add(48 * time.Hour),
	})
	svc, _, _, remote := newSchedulerFixture(window)

	outcome, err := svc.Approve(context.Background(), schedulerMonth(), "req", "car-1", false)
	require.NoError(t, err)
	assert.Equal(t, ApprovalActionReassignPending, outcome.Action)
	assert.Empty(t, remote.statusCalls)
}

func TestSchedulerServiceProcessEarlyReturnQuotes(t *testing.T) {
	start := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	window := windowWith(models.SchedulerEvent{
		ID: "b1", ResourceID: "car-1", Status: models.StatusConfirmed,
		StartAt: start, EndAt: start.Add(96 * time.Hour), Amount: 3000,
	})
	svc, _, _, _ := newSchedulerFixture(window)

	quote, err := svc.ProcessEarlyReturn(context.Background(), schedulerMonth(), "b1", start.Add(36*time.Hour), true)
	require.NoError(t, err)
	assert.Equal(t, 4, quote.OriginalDays)
	assert.Equal(t, 2, quote.ChargeableDays)
	assert.Equal(t, 1500.0, quote.NewTotal)
	assert.Equal(t, 1500.0, quote.RefundAmount)
}

func TestSchedulerServiceEarlyReturnRequiresConfirmed(t *testing.T) {
	start := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	window := windowWith(models.SchedulerEvent{
		ID: "b1", ResourceID: "car-1", Status: models.StatusPending,
		StartAt: start, EndAt: start.Add(96 * time.Hour), Amount: 3000,
	})
	svc, _, _, _ := newSchedulerFixture(window)

	_, err := svc.ProcessEarlyReturn(context.Background(), schedulerMonth(), "b1", start.Add(36*time.Hour), true)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrBookingImmutable.Code, appErrors.FromError(err).Code)
}
