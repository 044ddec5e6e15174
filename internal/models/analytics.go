package models

import "time"

// AnalyticsSystemMetrics represents system level analytics captured from instrumentation.
type AnalyticsSystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	DBQueryCount             uint64    `json:"db_query_count"`
	AverageDBQueryDurationMs float64   `json:"average_db_query_duration_ms"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}

// FleetUtilization aggregates booking coverage per car over a reporting range.
type FleetUtilization struct {
	CarID           string  `db:"car_id" json:"car_id"`
	Plate           string  `db:"plate" json:"plate"`
	BookingCount    int     `db:"booking_count" json:"booking_count"`
	BookedHours     float64 `db:"booked_hours" json:"booked_hours"`
	UtilizationRate float64 `db:"utilization_rate" json:"utilization_rate"`
	Revenue         float64 `db:"revenue" json:"revenue"`
}

// PartnerPayout aggregates partner revenue share over a reporting range.
type PartnerPayout struct {
	PartnerID    string  `db:"partner_id" json:"partner_id"`
	CompanyName  string  `db:"company_name" json:"company_name"`
	BookingCount int     `db:"booking_count" json:"booking_count"`
	GrossRevenue float64 `db:"gross_revenue" json:"gross_revenue"`
	PayoutShare  float64 `db:"payout_share" json:"payout_share"`
	PayoutAmount float64 `db:"payout_amount" json:"payout_amount"`
}
