package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fleetdesk/fleetdesk-api/internal/models"
	appErrors "github.com/fleetdesk/fleetdesk-api/pkg/errors"
)

type mockAnalyticsRepo struct {
	utilization      []models.FleetUtilization
	payouts          []models.PartnerPayout
	utilizationCalls int
	payoutCalls      int
	utilizationErr   error
	payoutErr        error
}

func (m *mockAnalyticsRepo) FleetUtilization(_ context.Context, _, _ time.Time) ([]models.FleetUtilization, error) {
	m.utilizationCalls++
	if m.utilizationErr != nil {
		return nil, m.utilizationErr
	}
	return m.utilization, nil
}

func (m *mockAnalyticsRepo) PartnerPayouts(_ context.Context, _, _ time.Time) ([]models.PartnerPayout, error) {
	m.payoutCalls++
	if m.payoutErr != nil {
		return nil, m.payoutErr
	}
	return m.payouts, nil
}

type stubCacheRepo struct {
	store map[string][]byte
}

func (s *stubCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	payload, ok := s.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(payload, dest)
}

func (s *stubCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	if s.store == nil {
		s.store = make(map[string][]byte)
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.store[key] = payload
	return nil
}

func (s *stubCacheRepo) DeleteByPattern(_ context.Context, _ string) error {
	s.store = nil
	return nil
}

func analyticsRange() (time.Time, time.Time) {
	to := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	return to.AddDate(0, -1, 0), to
}

func TestAnalyticsServiceFleetUtilizationCaches(t *testing.T) {
	repo := &mockAnalyticsRepo{utilization: []models.FleetUtilization{
		{CarID: "car-1", Plate: "B 1234 XY", BookingCount: 7, BookedHours: 320, UtilizationRate: 0.43, Revenue: 5400},
	}}
	cacheSvc := NewCacheService(&stubCacheRepo{}, nil, time.Minute, zap.NewNop(), true)
	svc := NewAnalyticsService(repo, cacheSvc, nil, zap.NewNop())

	from, to := analyticsRange()

	rows, hit, err := svc.FleetUtilization(context.Background(), from, to)
	require.NoError(t, err)
	assert.False(t, hit)
	require.Len(t, rows, 1)
	assert.Equal(t, "B 1234 XY", rows[0].Plate)

	rows, hit, err = svc.FleetUtilization(context.Background(), from, to)
	require.NoError(t, err)
	assert.True(t, hit)
	require.Len(t, rows, 1)
	assert.Equal(t, 1, repo.utilizationCalls, "second read must come from cache")
}

func TestAnalyticsServicePartnerPayouts(t *testing.T) {
	repo := &mockAnalyticsRepo{payouts: []models.PartnerPayout{
		{PartnerID: "p-1", CompanyName: "Andalan Rent", BookingCount: 12, GrossRevenue: 9000, PayoutShare: 0.7, PayoutAmount: 6300},
	}}
	svc := NewAnalyticsService(repo, nil, nil, zap.NewNop())

	from, to := analyticsRange()
	rows, hit, err := svc.PartnerPayouts(context.Background(), from, to)
	require.NoError(t, err)
	assert.False(t, hit)
	require.Len(t, rows, 1)
	assert.Equal(t, 6300.0, rows[0].PayoutAmount)
	assert.Equal(t, 1, repo.payoutCalls)
}

func TestAnalyticsServicePropagatesRepoError(t *testing.T) {
	repo := &mockAnalyticsRepo{utilizationErr: assert.AnError}
	svc := NewAnalyticsService(repo, nil, nil, zap.NewNop())

	from, to := analyticsRange()
	_, _, err := svc.FleetUtilization(context.Background(), from, to)
	assert.Error(t, err)
}
