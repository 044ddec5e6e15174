package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetdesk/fleetdesk-api/internal/models"
	appErrors "github.com/fleetdesk/fleetdesk-api/pkg/errors"
)

// memStore is an in-memory Store fake. Invalidate drops matching entries like
// the Redis implementation and counts calls.
type memStore struct {
	mu          sync.Mutex
	entries     map[string]*models.WindowData
	invalidated int
	cancelled   []string
}

func newMemStore() *memStore {
	return &memStore{entries: map[string]*models.WindowData{}}
}

func (s *memStore) Get(ctx context.Context, key string) (*models.WindowData, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.entries[key]
	if !ok {
		return nil, false, nil
	}
	return data.Clone(), true, nil
}

func (s *memStore) Set(ctx context.Context, key string, data *models.WindowData) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = data.Clone()
	return nil
}

func (s *memStore) BeginFetch(ctx context.Context, key string) (context.Context, context.CancelFunc) {
	return context.WithCancel(ctx)
}

func (s *memStore) Cancel(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelled = append(s.cancelled, key)
}

func (s *memStore) Invalidate(ctx context.Context, prefix string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidated++
	for key := range s.entries {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			delete(s.entries, key)
		}
	}
	return nil
}

func (s *memStore) current(key string) *models.WindowData {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entries[key].Clone()
}

// remoteStub scripts remote results per operation.
type remoteStub struct {
	result     MutationResult
	createID   string
	err        error
	calls      []string
	duringCall func()
}

func (r *remoteStub) record(op string) {
	r.calls = append(r.calls, op)
	if r.duringCall != nil {
		r.duringCall()
	}
}

func (r *remoteStub) UpdateBookingStatus(ctx context.Context, id string, status models.BookingStatus) (MutationResult, error) {
	r.record("updateStatus")
	return r.result, r.err
}

func (r *remoteStub) UpdateBookingDates(ctx context.Context, id string, newEnd time.Time) (MutationResult, error) {
	r.record("updateDates")
	return r.result, r.err
}

func (r *remoteStub) UpdateBufferDuration(ctx context.Context, id string, minutes int) (MutationResult, error) {
	r.record("updateBuffer")
	return r.result, r.err
}

func (r *remoteStub) ProcessEarlyReturn(ctx context.Context, id string, newEnd time.Time, finalPrice, refundAmount float64, shouldRefund bool) (MutationResult, error) {
	r.record("earlyReturn")
	return r.result, r.err
}

func (r *remoteStub) CreateMaintenanceBlock(ctx context.Context, carID string, start, end time.Time) (CreateResult, error) {
	r.record("createMaintenance")
	return CreateResult{MutationResult: r.result, ID: r.createID}, r.err
}

func (r *remoteStub) SplitBooking(ctx context.Context, id string, splitDate time.Time) (CreateResult, error) {
	r.record("splitBooking")
	return CreateResult{MutationResult: r.result, ID: r.createID}, r.err
}

func (r *remoteStub) ReassignBooking(ctx context.Context, id, newCarID string, newPrice float64) (MutationResult, error) {
	r.record("reassignBooking")
	return r.result, r.err
}

type notifierSpy struct {
	successes []string
	failures  []string
}

func (n *notifierSpy) Success(ctx context.Context, operation, message string) {
	n.successes = append(n.successes, message)
}

func (n *notifierSpy) Failure(ctx context.Context, operation, message string) {
	n.failures = append(n.failures, message)
}

var testMonth = time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)

func seedWindow(t *testing.T, store *memStore) string {
	t.Helper()
	key := WindowKey(testMonth)
	window := &models.WindowData{
		Resources: []models.SchedulerResource{{ID: "car1", Title: "Toyota Vios"}},
		Events: []models.SchedulerEvent{
			{
				ID:         "b1",
				ResourceID: "car1",
				Title:      "John Doe",
				Status:     models.StatusConfirmed,
				StartAt:    time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC),
				EndAt:      time.Date(2026, time.March, 4, 9, 0, 0, 0, time.UTC),
				Amount:     3000,
			},
		},
	}
	require.NoError(t, store.Set(context.Background(), key, window))
	return key
}

func TestCoordinatorRollbackOnBusinessRejection(t *testing.T) {
	store := newMemStore()
	key := seedWindow(t, store)
	before := store.current(key)

	remote := &remoteStub{result: MutationResult{Success: false, Message: "Car under maintenance lock"}}
	notifier := &notifierSpy{}
	coord := NewCoordinator(store, remote, notifier, nil, nil)

	err := coord.UpdateBuffer(context.Background(), testMonth, "b1", 720)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Car under maintenance lock")

	after := store.current(key)
	require.NotNil(t, after)
	assert.Equal(t, before, after, "cache must equal the pre-mutation snapshot field-for-field")
	assert.Equal(t, 1, store.invalidated)
	require.Len(t, notifier.failures, 1)
	assert.Contains(t, notifier.failures[0], "Car under maintenance lock")
}

func TestCoordinatorOptimisticPatchVisibleDuringCall(t *testing.T) {
	store := newMemStore()
	key := seedWindow(t, store)

	var observed int
	remote := &remoteStub{result: MutationResult{Success: true}}
	remote.duringCall = func() {
		window := store.current(key)
		observed = window.Events[0].BufferDuration
	}
	coord := NewCoordinator(store, remote, nil, nil, nil)

	require.NoError(t, coord.UpdateBuffer(context.Background(), testMonth, "b1", 720))
	assert.Equal(t, 720, observed, "patch must be visible before the remote settles")
}

func TestCoordinatorCancelsInflightFetchFirst(t *testing.T) {
	store := newMemStore()
	key := seedWindow(t, store)

	coord := NewCoordinator(store, &remoteStub{result: MutationResult{Success: true}}, nil, nil, nil)
	require.NoError(t, coord.UpdateStatus(context.Background(), testMonth, "b1", models.StatusCompleted))
	require.Len(t, store.cancelled, 1)
	assert.Equal(t, key, store.cancelled[0])
}

func TestCoordinatorInvalidatesOnSuccess(t *testing.T) {
	store := newMemStore()
	key := seedWindow(t, store)

	notifier := &notifierSpy{}
	coord := NewCoordinator(store, &remoteStub{result: MutationResult{Success: true}}, notifier, nil, nil)

	require.NoError(t, coord.UpdateDates(context.Background(), testMonth, "b1", time.Date(2026, time.March, 5, 9, 0, 0, 0, time.UTC)))
	assert.Equal(t, 1, store.invalidated)
	assert.Nil(t, store.current(key), "successful mutation leaves the window stale for refetch")
	assert.Len(t, notifier.successes, 1)
}

func TestCoordinatorTransportFailureRollsBack(t *testing.T) {
	store := newMemStore()
	key := seedWindow(t, store)
	before := store.current(key)

	remote := &remoteStub{err: errors.New("connection reset")}
	coord := NewCoordinator(store, remote, nil, nil, nil)

	err := coord.UpdateStatus(context.Background(), testMonth, "b1", models.StatusCompleted)
	require.Error(t, err)
	assert.Equal(t, before, store.current(key))
}

func TestCoordinatorEarlyReturnPatch(t *testing.T) {
	store := newMemStore()
	key := seedWindow(t, store)

	var patched models.SchedulerEvent
	remote := &remoteStub{result: MutationResult{Success: true}}
	remote.duringCall = func() {
		patched = store.current(key).Events[0]
	}
	coord := NewCoordinator(store, remote, nil, nil, nil)

	newEnd := time.Date(2026, time.March, 3, 9, 0, 0, 0, time.UTC)
	require.NoError(t, coord.ProcessEarlyReturn(context.Background(), testMonth, "b1", newEnd, 1500, 1500, true))

	assert.Equal(t, models.StatusCompleted, patched.Status)
	assert.Equal(t, 1500.0, patched.Amount)
	assert.Equal(t, "Returned Early", patched.Subtitle)
	assert.True(t, patched.EndAt.Equal(newEnd))
}

func TestCoordinatorCreateMaintenanceInsertsProvisionalEvent(t *testing.T) {
	store := newMemStore()
	key := seedWindow(t, store)

	var inserted []models.SchedulerEvent
	remote := &remoteStub{result: MutationResult{Success: true}, createID: "maint-real-1"}
	remote.duringCall = func() {
		inserted = store.current(key).Events
	}
	coord := NewCoordinator(store, remote, nil, nil, nil)

	start := time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, time.March, 12, 0, 0, 0, 0, time.UTC)
	require.NoError(t, coord.CreateMaintenance(context.Background(), testMonth, "car1", start, end))

	require.Len(t, inserted, 2)
	block := inserted[1]
	assert.True(t, models.IsProvisionalID(block.ID))
	assert.Equal(t, models.StatusMaintenance, block.Status)
	assert.Zero(t, block.Amount)
	assert.Equal(t, "car1", block.ResourceID)
}

func TestCoordinatorCreateMaintenanceRejectsInvertedInterval(t *testing.T) {
	store := newMemStore()
	seedWindow(t, store)
	remote := &remoteStub{result: MutationResult{Success: true}}
	coord := NewCoordinator(store, remote, nil, nil, nil)

	start := time.Date(2026, time.March, 12, 0, 0, 0, 0, time.UTC)
	err := coord.CreateMaintenance(context.Background(), testMonth, "car1", start, start)
	require.Error(t, err)
	assert.Empty(t, remote.calls)
}

func TestCoordinatorSplitBookingInvariant(t *testing.T) {
	store := newMemStore()
	key := seedWindow(t, store)
	original := store.current(key).Events[0]

	var during []models.SchedulerEvent
	remote := &remoteStub{result: MutationResult{Success: true}, createID: "b1-part2"}
	remote.duringCall = func() {
		during = store.current(key).Events
	}
	coord := NewCoordinator(store, remote, nil, nil, nil)

	splitAt := time.Date(2026, time.March, 3, 9, 0, 0, 0, time.UTC)
	require.NoError(t, coord.SplitBooking(context.Background(), testMonth, "b1", splitAt))

	require.Len(t, during, 2)
	part1, part2 := during[0], during[1]
	assert.True(t, part1.StartAt.Equal(original.StartAt))
	assert.True(t, part1.EndAt.Equal(splitAt))
	assert.True(t, part2.StartAt.Equal(splitAt))
	assert.True(t, part2.EndAt.Equal(original.EndAt))
	assert.Equal(t, models.StatusPending, part2.Status)
	assert.Equal(t, original.Title+" (Part 2)", part2.Title)
	assert.True(t, models.IsProvisionalID(part2.ID))
	assert.Equal(t, part1.GroupID, part2.GroupID)
}

func TestCoordinatorSplitBookingRejectsBoundaryPoints(t *testing.T) {
	store := newMemStore()
	key := seedWindow(t, store)
	original := store.current(key).Events[0]

	remote := &remoteStub{result: MutationResult{Success: true}}
	coord := NewCoordinator(store, remote, nil, nil, nil)

	for _, splitAt := range []time.Time{
		original.StartAt,
		original.EndAt,
		original.StartAt.Add(-time.Hour),
		original.EndAt.Add(time.Hour),
	} {
		err := coord.SplitBooking(context.Background(), testMonth, "b1", splitAt)
		require.Error(t, err)
		appErr := appErrors.FromError(err)
		assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	}
	assert.Empty(t, remote.calls, "invalid split points must never reach the remote")
}

func TestCoordinatorOverrideApprovalAtomicPatch(t *testing.T) {
	store := newMemStore()
	key := WindowKey(testMonth)
	window := &models.WindowData{
		Events: []models.SchedulerEvent{
			{
				ID: "req1", ResourceID: "car1", Status: models.StatusPending,
				StartAt: time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC),
				EndAt:   time.Date(2026, time.March, 4, 0, 0, 0, 0, time.UTC),
			},
			{
				ID: "conf1", ResourceID: "car1", Status: models.StatusConfirmed,
				StartAt: time.Date(2026, time.March, 3, 0, 0, 0, 0, time.UTC),
				EndAt:   time.Date(2026, time.March, 6, 0, 0, 0, 0, time.UTC),
			},
		},
	}
	require.NoError(t, store.Set(context.Background(), key, window))

	var during []models.SchedulerEvent
	remote := &remoteStub{result: MutationResult{Success: true}}
	remote.duringCall = func() {
		during = store.current(key).Events
	}
	coord := NewCoordinator(store, remote, nil, nil, nil)

	require.NoError(t, coord.ApproveWithOverride(context.Background(), testMonth, "req1", "conf1"))

	require.Len(t, during, 2)
	assert.Equal(t, models.StatusConfirmed, during[0].Status)
	assert.Equal(t, SubtitleOverride, during[0].Subtitle)
	assert.Equal(t, models.StatusPending, during[1].Status)
	assert.Equal(t, SubtitleDisplaced, during[1].Subtitle)
}

func TestCoordinatorOverrideApprovalRollsBackBothOnFailure(t *testing.T) {
	store := newMemStore()
	key := WindowKey(testMonth)
	window := &models.WindowData{
		Events: []models.SchedulerEvent{
			{ID: "req1", ResourceID: "car1", Status: models.StatusPending,
				StartAt: time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC),
				EndAt:   time.Date(2026, time.March, 4, 0, 0, 0, 0, time.UTC)},
			{ID: "conf1", ResourceID: "car1", Status: models.StatusConfirmed,
				StartAt: time.Date(2026, time.March, 3, 0, 0, 0, 0, time.UTC),
				EndAt:   time.Date(2026, time.March, 6, 0, 0, 0, 0, time.UTC)},
		},
	}
	require.NoError(t, store.Set(context.Background(), key, window))
	before := store.current(key)

	remote := &remoteStub{result: MutationResult{Success: false, Message: "booking already completed"}}
	coord := NewCoordinator(store, remote, nil, nil, nil)

	err := coord.ApproveWithOverride(context.Background(), testMonth, "req1", "conf1")
	require.Error(t, err)
	assert.Equal(t, before, store.current(key), "neither half of the override pair may survive a failure")
}

func TestCoordinatorMutationWithoutCachedWindowStillCallsRemote(t *testing.T) {
	store := newMemStore()
	remote := &remoteStub{result: MutationResult{Success: true}}
	coord := NewCoordinator(store, remote, nil, nil, nil)

	require.NoError(t, coord.UpdateStatus(context.Background(), testMonth, "b1", models.StatusConfirmed))
	assert.Equal(t, []string{"updateStatus"}, remote.calls)
	assert.Equal(t, 1, store.invalidated)
}
