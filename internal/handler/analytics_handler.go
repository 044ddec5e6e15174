package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fleetdesk/fleetdesk-api/internal/middleware"
	"github.com/fleetdesk/fleetdesk-api/internal/service"
	appErrors "github.com/fleetdesk/fleetdesk-api/pkg/errors"
	"github.com/fleetdesk/fleetdesk-api/pkg/response"
)

// AnalyticsHandler exposes dashboard-ready analytics endpoints.
type AnalyticsHandler struct {
	analytics *service.AnalyticsService
}

// NewAnalyticsHandler constructs the analytics handler.
func NewAnalyticsHandler(analytics *service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics}
}

// FleetUtilization godoc
// @Summary Per-car utilisation for a date range
// @Tags Analytics
// @Produce json
// @Param from query string false "Range start (RFC3339)"
// @Param to query string false "Range end (RFC3339)"
// @Success 200 {object} response.Envelope
// @Router /analytics/fleet-utilization [get]
func (h *AnalyticsHandler) FleetUtilization(c *gin.Context) {
	if h.analytics == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	from, to, err := parseAnalyticsRange(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	start := time.Now()
	rows, cacheHit, err := h.analytics.FleetUtilization(c.Request.Context(), from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = make(map[string]interface{})
	}
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	response.JSON(c, http.StatusOK, rows, nil, meta)
}

// PartnerPayouts godoc
// @Summary Per-partner revenue share for a date range
// @Tags Analytics
// @Produce json
// @Param from query string false "Range start (RFC3339)"
// @Param to query string false "Range end (RFC3339)"
// @Success 200 {object} response.Envelope
// @Router /analytics/partner-payouts [get]
func (h *AnalyticsHandler) PartnerPayouts(c *gin.Context) {
	if h.analytics == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	from, to, err := parseAnalyticsRange(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	start := time.Now()
	rows, cacheHit, err := h.analytics.PartnerPayouts(c.Request.Context(), from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = make(map[string]interface{})
	}
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	response.JSON(c, http.StatusOK, rows, nil, meta)
}

// System godoc
// @Summary Instrumentation metrics snapshot
// @Tags Analytics
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /analytics/system [get]
func (h *AnalyticsHandler) System(c *gin.Context) {
	if h.analytics == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	start := time.Now()
	metrics := h.analytics.SystemMetrics()
	middleware.SetCacheHit(c, false)
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = make(map[string]interface{})
	}
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	response.JSON(c, http.StatusOK, metrics, nil, meta)
}

// parseAnalyticsRange reads the from/to query parameters, defaulting to the
// trailing 30 days.
func parseAnalyticsRange(c *gin.Context) (time.Time, time.Time, error) {
	now := time.Now().UTC()
	from := now.AddDate(0, 0, -30)
	to := now
	if raw := c.Query("from"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return from, to, appErrors.Clone(appErrors.ErrValidation, "invalid from parameter")
		}
		from = parsed
	}
	if raw := c.Query("to"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return from, to, appErrors.Clone(appErrors.ErrValidation, "invalid to parameter")
		}
		to = parsed
	}
	if !to.After(from) {
		return from, to, appErrors.Clone(appErrors.ErrValidation, "to must be after from")
	}
	return from, to, nil
}
