package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetdesk/fleetdesk-api/internal/models"
)

func event(id, carID string, status models.BookingStatus, startDay, endDay int) models.SchedulerEvent {
	return models.SchedulerEvent{
		ID:         id,
		ResourceID: carID,
		Status:     status,
		StartAt:    time.Date(2026, time.March, startDay, 0, 0, 0, 0, time.UTC),
		EndAt:      time.Date(2026, time.March, endDay, 0, 0, 0, 0, time.UTC),
	}
}

func TestOverlapSymmetryAndReflexivity(t *testing.T) {
	a := event("a", "car1", models.StatusConfirmed, 1, 5)
	b := event("b", "car1", models.StatusConfirmed, 4, 8)
	c := event("c", "car1", models.StatusConfirmed, 5, 9)

	assert.True(t, a.Overlaps(b))
	assert.True(t, b.Overlaps(a), "overlap must be symmetric")
	assert.True(t, a.Overlaps(a), "a non-degenerate interval overlaps itself")
	assert.False(t, a.Overlaps(c), "touching endpoints do not overlap on half-open intervals")
	assert.False(t, c.Overlaps(a))
}

func TestDecideApprovalDirect(t *testing.T) {
	request := event("req", "car1", models.StatusPending, 10, 12)
	decision := DecideApproval(ApprovalInput{
		Request:       request,
		OriginalCarID: "car1",
		Events: []models.SchedulerEvent{
			request,
			event("other", "car1", models.StatusConfirmed, 1, 5),
			event("pending", "car1", models.StatusPending, 10, 12),
		},
	})
	assert.Equal(t, ApproveDirect, decision.Action)
	assert.Nil(t, decision.Conflict)
}

func TestDecideApprovalGhostRelocation(t *testing.T) {
	request := event("req", "car2", models.StatusPending, 10, 12)
	decision := DecideApproval(ApprovalInput{
		Request:       request,
		OriginalCarID: "car1",
		Events:        []models.SchedulerEvent{request},
	})
	assert.Equal(t, ProposeReassign, decision.Action)
}

func TestDecideApprovalBlockedWithoutOverride(t *testing.T) {
	request := event("req", "car1", models.StatusPending, 10, 14)
	conflicting := event("conf", "car1", models.StatusConfirmed, 12, 16)
	decision := DecideApproval(ApprovalInput{
		Request:       request,
		OriginalCarID: "car1",
		Events:        []models.SchedulerEvent{request, conflicting},
	})
	require.Equal(t, Blocked, decision.Action)
	require.NotNil(t, decision.Conflict)
	assert.Equal(t, "conf", decision.Conflict.ID)
}

func TestDecideApprovalOverride(t *testing.T) {
	request := event("req", "car1", models.StatusPending, 10, 14)
	conflicting := event("conf", "car1", models.StatusConfirmed, 12, 16)
	decision := DecideApproval(ApprovalInput{
		Request:         request,
		OriginalCarID:   "car1",
		Events:          []models.SchedulerEvent{request, conflicting},
		OverrideEnabled: true,
	})
	require.Equal(t, ApproveOverride, decision.Action)
	require.NotNil(t, decision.Conflict)
	assert.Equal(t, "conf", decision.Conflict.ID)
}

func TestDecideApprovalIgnoresOtherCarsAndStatuses(t *testing.T) {
	request := event("req", "car1", models.StatusPending, 10, 14)
	decision := DecideApproval(ApprovalInput{
		Request:       request,
		OriginalCarID: "car1",
		Events: []models.SchedulerEvent{
			request,
			event("othercar", "car2", models.StatusConfirmed, 10, 14),
			event("completed", "car1", models.StatusCompleted, 10, 14),
			event("maint", "car1", models.StatusMaintenance, 10, 14),
		},
	})
	assert.Equal(t, ApproveDirect, decision.Action)
}
