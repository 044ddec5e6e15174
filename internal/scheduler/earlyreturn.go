package scheduler

import (
	"math"
	"time"

	"github.com/fleetdesk/fleetdesk-api/internal/models"
)

// EarlyReturnQuote is the recalculated price for a booking returned before its
// scheduled end.
type EarlyReturnQuote struct {
	ActualReturnAt time.Time `json:"actual_return_at"`
	OriginalDays   int       `json:"original_days"`
	ChargeableDays int       `json:"chargeable_days"`
	DaysUnused     int       `json:"days_unused"`
	DailyRate      float64   `json:"daily_rate"`
	NewTotal       float64   `json:"new_total"`
	RefundAmount   float64   `json:"refund_amount"`
}

// QuoteEarlyReturn recalculates a booking's charge when it is returned early.
// Rounding: the final NewTotal and RefundAmount figures are rounded
// half-away-from-zero to 2 decimal places; intermediate values stay unrounded
// to avoid accumulating drift.
func QuoteEarlyReturn(event models.SchedulerEvent, today time.Time, shouldRefund bool) EarlyReturnQuote {
	actualReturn := today
	if actualReturn.Before(event.StartAt) {
		actualReturn = event.StartAt
	}

	originalDays := int(math.Ceil(event.EndAt.Sub(event.StartAt).Hours() / 24))
	if originalDays < 1 {
		originalDays = 1
	}

	usedHours := actualReturn.Sub(event.StartAt).Minutes() / 60

	chargeableDays := int(math.Ceil(usedHours / 24))
	if chargeableDays < 1 {
		chargeableDays = 1
	}

	daysUnused := originalDays - chargeableDays
	if daysUnused < 0 {
		daysUnused = 0
	}

	dailyRate := event.Amount / float64(originalDays)
	newTotal := dailyRate * float64(chargeableDays)
	refund := event.Amount - newTotal
	if !shouldRefund || refund < 0 {
		refund = 0
	}

	return EarlyReturnQuote{
		ActualReturnAt: actualReturn,
		OriginalDays:   originalDays,
		ChargeableDays: chargeableDays,
		DaysUnused:     daysUnused,
		DailyRate:      dailyRate,
		NewTotal:       round2(newTotal),
		RefundAmount:   round2(refund),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
