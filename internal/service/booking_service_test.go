package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetdesk/fleetdesk-api/internal/models"
)

type mockBookingRepo struct {
	items    map[string]*models.Booking
	overlaps []models.Booking
	splits   int
	pairs    int
}

func (m *mockBookingRepo) List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, int, error) {
	out := make([]models.Booking, 0, len(m.items))
	for _, b := range m.items {
		out = append(out, *b)
	}
	return out, len(out), nil
}

func (m *mockBookingRepo) FindByID(ctx context.Context, id string) (*models.Booking, error) {
	if b, ok := m.items[id]; ok {
		cp := *b
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockBookingRepo) FindOverlapping(ctx context.Context, carID string, start, end time.Time, ignoreID string) ([]models.Booking, error) {
	out := make([]models.Booking, 0, len(m.overlaps))
	for _, b := range m.overlaps {
		if b.CarID == carID && b.ID != ignoreID && b.StartAt.Before(end) && b.EndAt.After(start) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *mockBookingRepo) Create(ctx context.Context, booking *models.Booking) error {
	if m.items == nil {
		m.items = make(map[string]*models.Booking)
	}
	if booking.ID == "" {
		booking.ID = "generated"
	}
	cp := *booking
	m.items[booking.ID] = &cp
	return nil
}

func (m *mockBookingRepo) Update(ctx context.Context, booking *models.Booking) error {
	cp := *booking
	m.items[booking.ID] = &cp
	return nil
}

func (m *mockBookingRepo) Split(ctx context.Context, original *models.Booking, second *models.Booking, splitAt time.Time) error {
	m.splits++
	original.EndAt = splitAt
	m.items[original.ID] = original
	if second.ID == "" {
		second.ID = "split-generated"
	}
	cp := *second
	m.items[second.ID] = &cp
	return nil
}

func (m *mockBookingRepo) UpdateStatusPair(ctx context.Context, firstID string, firstStatus models.BookingStatus, firstSubtitle string, secondID string, secondStatus models.BookingStatus, secondSubtitle string) error {
	m.pairs++
	if b, ok := m.items[firstID]; ok {
		b.Status = firstStatus
		b.Subtitle = firstSubtitle
	}
	if b, ok := m.items[secondID]; ok {
		b.Status = secondStatus
		b.Subtitle = secondSubtitle
	}
	return nil
}

func (m *mockBookingRepo) Delete(ctx context.Context, id string) error {
	delete(m.items, id)
	return nil
}

type mockCarFinder struct {
	cars map[string]*models.Car
}

func (m *mockCarFinder) FindByID(ctx context.Context, id string) (*models.Car, error) {
	if c, ok := m.cars[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func seedBooking(id, carID string, status models.BookingStatus, start, end time.Time) *models.Booking {
	driverID := "drv-1"
	return &models.Booking{
		ID:       id,
		CarID:    carID,
		DriverID: &driverID,
		Title:    "Alice Johnson",
		Status:   status,
		StartAt:  start,
		EndAt:    end,
		Amount:   3000,
	}
}

func TestBookingServiceResizeRejectsMaintenanceOverlap(t *testing.T) {
	start := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	repo := &mockBookingRepo{
		items: map[string]*models.Booking{
			"b1": seedBooking("b1", "car-1", models.StatusConfirmed, start, start.Add(48*time.Hour)),
		},
		overlaps: []models.Booking{
			{ID: "m1", CarID: "car-1", Status: models.StatusMaintenance, StartAt: start.Add(72 * time.Hour), EndAt: start.Add(96 * time.Hour)},
		},
	}
	svc := NewBookingService(repo, &mockCarFinder{}, nil, nil)

	res, err := svc.UpdateBookingDates(context.Background(), "b1", start.Add(90*time.Hour))
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "Car under maintenance lock", res.Message)
	// the stored booking is untouched on a rejection
	assert.Equal(t, start.Add(48*time.Hour), repo.items["b1"].EndAt)
}

func TestBookingServiceResizeApplies(t *testing.T) {
	start := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	repo := &mockBookingRepo{
		items: map[string]*models.Booking{
			"b1": seedBooking("b1", "car-1", models.StatusConfirmed, start, start.Add(48*time.Hour)),
		},
	}
	svc := NewBookingService(repo, &mockCarFinder{}, nil, nil)

	res, err := svc.UpdateBookingDates(context.Background(), "b1", start.Add(96*time.Hour))
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, start.Add(96*time.Hour), repo.items["b1"].EndAt)
}

func TestBookingServiceStatusConfirmationBlockedByConfirmedNeighbour(t *testing.T) {
	start := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	repo := &mockBookingRepo{
		items: map[string]*models.Booking{
			"b1": seedBooking("b1", "car-1", models.StatusPending, start, start.Add(48*time.Hour)),
		},
		overlaps: []models.Booking{
			{ID: "b2", CarID: "car-1", Status: models.StatusConfirmed, StartAt: start.Add(24 * time.Hour), EndAt: start.Add(72 * time.Hour)},
		},
	}
	svc := NewBookingService(repo, &mockCarFinder{}, nil, nil)

	res, err := svc.UpdateBookingStatus(context.Background(), "b1", models.StatusConfirmed)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, models.StatusPending, repo.items["b1"].Status)
}

func TestBookingServiceCompletedBookingsAreImmutable(t *testing.T) {
	start := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	repo := &mockBookingRepo{
		items: map[string]*models.Booking{
			"b1": seedBooking("b1", "car-1", models.StatusCompleted, start, start.Add(48*time.Hour)),
		},
	}
	svc := NewBookingService(repo, &mockCarFinder{}, nil, nil)

	res, err := svc.UpdateBookingStatus(context.Background(), "b1", models.StatusPending)
	require.NoError(t, err)
	assert.False(t, res.Success)

	splitRes, err := svc.SplitBooking(context.Background(), "b1", start.Add(24*time.Hour))
	require.NoError(t, err)
	assert.False(t, splitRes.Success)
}

func TestBookingServiceEarlyReturnStampsSubtitle(t *testing.T) {
	start := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	repo := &mockBookingRepo{
		items: map[string]*models.Booking{
			"b1": seedBooking("b1", "car-1", models.StatusConfirmed, start, start.Add(96*time.Hour)),
		},
	}
	svc := NewBookingService(repo, &mockCarFinder{}, nil, nil)

	newEnd := start.Add(48 * time.Hour)
	res, err := svc.ProcessEarlyReturn(context.Background(), "b1", newEnd, 1500, 1500, true)
	require.NoError(t, err)
	assert.True(t, res.Success)
	stored := repo.items["b1"]
	assert.Equal(t, models.StatusCompleted, stored.Status)
	assert.Equal(t, newEnd, stored.EndAt)
	assert.Equal(t, 1500.0, stored.Amount)
	assert.Equal(t, "Returned Early", stored.Subtitle)
}

func TestBookingServiceMaintenanceBlockRejectsBusyInterval(t *testing.T) {
	start := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	repo := &mockBookingRepo{
		items: map[string]*models.Booking{},
		overlaps: []models.Booking{
			{ID: "b1", CarID: "car-1", Status: models.StatusPending, StartAt: start, EndAt: start.Add(48 * time.Hour)},
		},
	}
	cars := &mockCarFinder{cars: map[string]*models.Car{"car-1": {ID: "car-1"}}}
	svc := NewBookingService(repo, cars, nil, nil)

	res, err := svc.CreateMaintenanceBlock(context.Background(), "car-1", start, start.Add(24*time.Hour))
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Empty(t, res.ID)
}

func TestBookingServiceMaintenanceBlockCreates(t *testing.T) {
	start := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	repo := &mockBookingRepo{items: map[string]*models.Booking{}}
	cars := &mockCarFinder{cars: map[string]*models.Car{"car-1": {ID: "car-1"}}}
	svc := NewBookingService(repo, cars, nil, nil)

	res, err := svc.CreateMaintenanceBlock(context.Background(), "car-1", start, start.Add(24*time.Hour))
	require.NoError(t, err)
	require.True(t, res.Success)
	require.NotEmpty(t, res.ID)
	block := repo.items[res.ID]
	require.NotNil(t, block)
	assert.Equal(t, models.StatusMaintenance, block.Status)
	assert.Equal(t, "Maintenance", block.Title)
	assert.Zero(t, block.Amount)
}

func TestBookingServiceSplitLinksGroup(t *testing.T) {
	start := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	repo := &mockBookingRepo{
		items: map[string]*models.Booking{
			"b1": seedBooking("b1", "car-1", models.StatusConfirmed, start, start.Add(96*time.Hour)),
		},
	}
	svc := NewBookingService(repo, &mockCarFinder{}, nil, nil)

	splitAt := start.Add(48 * time.Hour)
	res, err := svc.SplitBooking(context.Background(), "b1", splitAt)
	require.NoError(t, err)
	require.True(t, res.Success)
	require.NotEmpty(t, res.ID)

	first := repo.items["b1"]
	second := repo.items[res.ID]
	require.NotNil(t, second)
	assert.Equal(t, splitAt, first.EndAt)
	assert.Equal(t, splitAt, second.StartAt)
	assert.Equal(t, "Alice Johnson (Part 2)", second.Title)
	assert.Equal(t, models.StatusPending, second.Status)
	require.NotNil(t, second.GroupID)
	assert.Equal(t, "b1", *second.GroupID)
	assert.Equal(t, 1, repo.splits)
}

func TestBookingServiceSplitRejectsBoundary(t *testing.T) {
	start := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	repo := &mockBookingRepo{
		items: map[string]*models.Booking{
			"b1": seedBooking("b1", "car-1", models.StatusConfirmed, start, start.Add(96*time.Hour)),
		},
	}
	svc := NewBookingService(repo, &mockCarFinder{}, nil, nil)

	for _, splitAt := range []time.Time{start, start.Add(96 * time.Hour)} {
		res, err := svc.SplitBooking(context.Background(), "b1", splitAt)
		require.NoError(t, err)
		assert.False(t, res.Success)
	}
	assert.Zero(t, repo.splits)
}

func TestBookingServiceReassignConfirmsOnNewCar(t *testing.T) {
	start := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	repo := &mockBookingRepo{
		items: map[string]*models.Booking{
			"b1": seedBooking("b1", "car-1", models.StatusPending, start, start.Add(48*time.Hour)),
		},
	}
	cars := &mockCarFinder{cars: map[string]*models.Car{"car-2": {ID: "car-2"}}}
	svc := NewBookingService(repo, cars, nil, nil)

	res, err := svc.ReassignBooking(context.Background(), "b1", "car-2", 2500)
	require.NoError(t, err)
	assert.True(t, res.Success)
	stored := repo.items["b1"]
	assert.Equal(t, "car-2", stored.CarID)
	assert.Equal(t, 2500.0, stored.Amount)
	assert.Equal(t, models.StatusConfirmed, stored.Status)
}

func TestBookingServiceApproveOverrideUsesOneTransaction(t *testing.T) {
	start := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	repo := &mockBookingRepo{
		items: map[string]*models.Booking{
			"req": seedBooking("req", "car-1", models.StatusPending, start, start.Add(48*time.Hour)),
			"cfl": seedBooking("cfl", "car-1", models.StatusConfirmed, start, start.Add(48*time.Hour)),
		},
	}
	svc := NewBookingService(repo, &mockCarFinder{}, nil, nil)

	require.NoError(t, svc.ApproveOverride(context.Background(), "req", "cfl"))
	assert.Equal(t, 1, repo.pairs)
	assert.Equal(t, models.StatusConfirmed, repo.items["req"].Status)
	assert.Equal(t, models.StatusPending, repo.items["cfl"].Status)
	assert.Equal(t, "⚠️ Displaced - Needs Reschedule", repo.items["cfl"].Subtitle)
	assert.Equal(t, "Approved via Override", repo.items["req"].Subtitle)
}
