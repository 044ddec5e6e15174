package scheduler

import (
	"github.com/fleetdesk/fleetdesk-api/internal/models"
)

// Subtitles stamped by the override approval flow.
const (
	SubtitleDisplaced = "⚠️ Displaced - Needs Reschedule"
	SubtitleOverride  = "Approved via Override"
)

// ApprovalAction is the outcome of an approval decision.
type ApprovalAction int

const (
	// ApproveDirect confirms the request as-is.
	ApproveDirect ApprovalAction = iota
	// ProposeReassign defers approval: the request was dragged to a different
	// car, so a reassignment confirmation must happen first.
	ProposeReassign
	// Blocked refuses approval: a confirmed booking occupies the interval and
	// override mode is off.
	Blocked
	// ApproveOverride displaces the conflicting confirmed booking and confirms
	// the request.
	ApproveOverride
)

// ApprovalInput gathers the state needed to decide a pending request approval.
type ApprovalInput struct {
	// Request is the pending event being approved, positioned where the
	// operator dropped it (the "ghost" placement).
	Request models.SchedulerEvent
	// OriginalCarID is the car the request was made against; differing from
	// Request.ResourceID signals a ghost relocation.
	OriginalCarID string
	// Events is the window's event list searched for conflicts.
	Events []models.SchedulerEvent
	// OverrideEnabled permits bumping a conflicting confirmed booking.
	OverrideEnabled bool
}

// ApprovalDecision carries the chosen action and, when relevant, the
// conflicting booking.
type ApprovalDecision struct {
	Action   ApprovalAction
	Conflict *models.SchedulerEvent
}

// DecideApproval determines how a pending request approval resolves. The
// conflict test is a half-open interval overlap against every other confirmed
// event on the same car.
func DecideApproval(in ApprovalInput) ApprovalDecision {
	conflict := findConflict(in.Request, in.Events)

	if conflict == nil {
		if in.OriginalCarID != "" && in.OriginalCarID != in.Request.ResourceID {
			return ApprovalDecision{Action: ProposeReassign}
		}
		return ApprovalDecision{Action: ApproveDirect}
	}

	if !in.OverrideEnabled {
		return ApprovalDecision{Action: Blocked, Conflict: conflict}
	}
	return ApprovalDecision{Action: ApproveOverride, Conflict: conflict}
}

func findConflict(request models.SchedulerEvent, events []models.SchedulerEvent) *models.SchedulerEvent {
	for i := range events {
		other := events[i]
		if other.ID == request.ID {
			continue
		}
		if other.ResourceID != request.ResourceID {
			continue
		}
		if other.Status != models.StatusConfirmed {
			continue
		}
		if request.Overlaps(other) {
			return &events[i]
		}
	}
	return nil
}
