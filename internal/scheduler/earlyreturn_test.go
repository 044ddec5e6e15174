package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/fleetdesk/fleetdesk-api/internal/models"
)

func TestQuoteEarlyReturnHalfwayThrough(t *testing.T) {
	now := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	booking := models.SchedulerEvent{
		ID:      "b1",
		Amount:  3000,
		StartAt: now.AddDate(0, 0, -2),
		EndAt:   now.AddDate(0, 0, 2),
	}

	quote := QuoteEarlyReturn(booking, now, true)

	assert.Equal(t, 4, quote.OriginalDays)
	assert.Equal(t, 2, quote.ChargeableDays)
	assert.Equal(t, 2, quote.DaysUnused)
	assert.Equal(t, 750.0, quote.DailyRate)
	assert.Equal(t, 1500.0, quote.NewTotal)
	assert.Equal(t, 1500.0, quote.RefundAmount)
}

func TestQuoteEarlyReturnBeforeStartChargesMinimumDay(t *testing.T) {
	start := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)
	booking := models.SchedulerEvent{
		Amount:  900,
		StartAt: start,
		EndAt:   start.AddDate(0, 0, 3),
	}

	quote := QuoteEarlyReturn(booking, start.Add(-48*time.Hour), true)

	assert.True(t, quote.ActualReturnAt.Equal(start), "return date clamps to booking start")
	assert.Equal(t, 1, quote.ChargeableDays)
	assert.Equal(t, 2, quote.DaysUnused)
	assert.Equal(t, 300.0, quote.NewTotal)
	assert.Equal(t, 600.0, quote.RefundAmount)
}

func TestQuoteEarlyReturnNoRefundFlag(t *testing.T) {
	now := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	booking := models.SchedulerEvent{
		Amount:  3000,
		StartAt: now.AddDate(0, 0, -2),
		EndAt:   now.AddDate(0, 0, 2),
	}

	quote := QuoteEarlyReturn(booking, now, false)

	assert.Equal(t, 1500.0, quote.NewTotal)
	assert.Zero(t, quote.RefundAmount, "refund suppressed when shouldRefund is false")
}

func TestQuoteEarlyReturnBounds(t *testing.T) {
	start := time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC)
	cases := []struct {
		name   string
		amount float64
		days   int
		today  time.Time
	}{
		{"past end", 1200, 3, start.AddDate(0, 0, 10)},
		{"mid first day", 450, 1, start.Add(6 * time.Hour)},
		{"odd hours", 777, 5, start.Add(53 * time.Hour)},
		{"zero amount", 0, 2, start.Add(24 * time.Hour)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			booking := models.SchedulerEvent{
				Amount:  tc.amount,
				StartAt: start,
				EndAt:   start.AddDate(0, 0, tc.days),
			}
			quote := QuoteEarlyReturn(booking, tc.today, true)

			assert.GreaterOrEqual(t, quote.ChargeableDays, 1)
			assert.GreaterOrEqual(t, quote.DaysUnused, 0)
			assert.LessOrEqual(t, quote.RefundAmount, tc.amount)
			assert.GreaterOrEqual(t, quote.RefundAmount, 0.0)
		})
	}
}

func TestQuoteEarlyReturnRounding(t *testing.T) {
	start := time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC)
	booking := models.SchedulerEvent{
		Amount:  1000,
		StartAt: start,
		EndAt:   start.AddDate(0, 0, 3),
	}

	quote := QuoteEarlyReturn(booking, start.Add(20*time.Hour), true)

	// 1000/3 per day, one chargeable day: 333.33 charged, 666.67 back.
	assert.Equal(t, 333.33, quote.NewTotal)
	assert.Equal(t, 666.67, quote.RefundAmount)
}
