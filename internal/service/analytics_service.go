package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fleetdesk/fleetdesk-api/internal/models"
)

// AnalyticsRepository describes the persistence layer required by AnalyticsService.
type AnalyticsRepository interface {
	FleetUtilization(ctx context.Context, from, to time.Time) ([]models.FleetUtilization, error)
	PartnerPayouts(ctx context.Context, from, to time.Time) ([]models.PartnerPayout, error)
}

// AnalyticsService provides read-optimised access to analytics datasets with cache integration.
type AnalyticsService struct {
	repo    AnalyticsRepository
	cache   *CacheService
	metrics *MetricsService
	logger  *zap.Logger
}

// NewAnalyticsService constructs an analytics service.
func NewAnalyticsService(repo AnalyticsRepository, cache *CacheService, metrics *MetricsService, logger *zap.Logger) *AnalyticsService {
	return &AnalyticsService{repo: repo, cache: cache, metrics: metrics, logger: logger}
}

// FleetUtilization returns per-car utilisation for the range. The boolean
// indicates whether data originated from cache.
func (s *AnalyticsService) FleetUtilization(ctx context.Context, from, to time.Time) ([]models.FleetUtilization, bool, error) {
	cacheKey := makeAnalyticsCacheKey("fleet", formatTime(&from), formatTime(&to))
	var cached []models.FleetUtilization
	if s.cache != nil {
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err != nil {
			return nil, false, fmt.Errorf("get fleet utilization cache: %w", err)
		} else if hit {
			return cached, true, nil
		}
	}

	start := time.Now()
	rows, err := s.repo.FleetUtilization(ctx, from, to)
	if err != nil {
		return nil, false, err
	}
	if s.metrics != nil {
		s.metrics.ObserveDBQuery("analytics_fleet_utilization", time.Since(start))
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, rows, 0); err != nil && s.logger != nil {
			s.logger.Warn("cache fleet utilization", zap.Error(err))
		}
	}
	return rows, false, nil
}

// PartnerPayouts returns per-partner revenue shares for the range.
func (s *AnalyticsService) PartnerPayouts(ctx context.Context, from, to time.Time) ([]models.PartnerPayout, bool, error) {
	cacheKey := makeAnalyticsCacheKey("payouts", formatTime(&from), formatTime(&to))
	var cached []models.PartnerPayout
	if s.cache != nil {
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err != nil {
			return nil, false, fmt.Errorf("get partner payout cache: %w", err)
		} else if hit {
			return cached, true, nil
		}
	}

	start := time.Now()
	rows, err := s.repo.PartnerPayouts(ctx, from, to)
	if err != nil {
		return nil, false, err
	}
	if s.metrics != nil {
		s.metrics.ObserveDBQuery("analytics_partner_payouts", time.Since(start))
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, rows, 0); err != nil && s.logger != nil {
			s.logger.Warn("cache partner payouts", zap.Error(err))
		}
	}
	return rows, false, nil
}

// SystemMetrics returns system instrumentation snapshot.
func (s *AnalyticsService) SystemMetrics() models.AnalyticsSystemMetrics {
	if s.metrics == nil {
		return models.AnalyticsSystemMetrics{}
	}
	return s.metrics.Snapshot()
}

func makeAnalyticsCacheKey(parts ...string) string {
	var builder strings.Builder
	builder.Grow(len(parts) * 16)
	builder.WriteString("analytics")
	for _, part := range parts {
		if part == "" {
			continue
		}
		builder.WriteByte(':')
		builder.WriteString(strings.ReplaceAll(part, ":", "|"))
	}
	return builder.String()
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
