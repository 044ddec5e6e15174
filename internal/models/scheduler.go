package models

import (
	"fmt"
	"strings"
	"time"
)

// SchedulerResource is a bookable unit (vehicle) shown as a timeline row.
// Read-only within the scheduler core.
type SchedulerResource struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Plate    string `json:"plate,omitempty"`
	Category string `json:"category,omitempty"`
}

// SchedulerEvent represents one bookable or blocking interval on the timeline.
type SchedulerEvent struct {
	ID             string        `json:"id"`
	ResourceID     string        `json:"resource_id"`
	Title          string        `json:"title"`
	Subtitle       string        `json:"subtitle,omitempty"`
	Status         BookingStatus `json:"status"`
	StartAt        time.Time     `json:"start_at"`
	EndAt          time.Time     `json:"end_at"`
	Amount         float64       `json:"amount"`
	BufferDuration int           `json:"buffer_duration"`
	GroupID        string        `json:"group_id,omitempty"`
}

// Overlaps reports whether the half-open interval [StartAt, EndAt) intersects
// the other event's interval on the time axis.
func (e SchedulerEvent) Overlaps(other SchedulerEvent) bool {
	return e.StartAt.Before(other.EndAt) && e.EndAt.After(other.StartAt)
}

// WindowData is the cached snapshot for one three-month scheduler window.
type WindowData struct {
	Resources []SchedulerResource `json:"resources"`
	Events    []SchedulerEvent    `json:"events"`
}

// Clone returns a deep copy so optimistic patches never alias the cached slices.
func (w *WindowData) Clone() *WindowData {
	if w == nil {
		return nil
	}
	clone := &WindowData{
		Resources: make([]SchedulerResource, len(w.Resources)),
		Events:    make([]SchedulerEvent, len(w.Events)),
	}
	copy(clone.Resources, w.Resources)
	copy(clone.Events, w.Events)
	return clone
}

// Provisional id prefixes for optimistically inserted events. The server
// replaces them with real ids on the invalidation-triggered refetch.
const (
	provisionalMaintenancePrefix = "temp-maint-"
	provisionalSplitPrefix       = "temp-split-"
)

// NewProvisionalMaintenanceID mints a client-side id for an optimistic
// maintenance block insert.
func NewProvisionalMaintenanceID(now time.Time) string {
	return fmt.Sprintf("%s%d", provisionalMaintenancePrefix, now.UnixMilli())
}

// NewProvisionalSplitID mints a client-side id for the optimistic second half
// of a split booking.
func NewProvisionalSplitID(now time.Time) string {
	return fmt.Sprintf("%s%d", provisionalSplitPrefix, now.UnixMilli())
}

// IsProvisionalID reports whether the id was minted locally and is pending
// replacement by a server-assigned id.
func IsProvisionalID(id string) bool {
	return strings.HasPrefix(id, provisionalMaintenancePrefix) ||
		strings.HasPrefix(id, provisionalSplitPrefix)
}
