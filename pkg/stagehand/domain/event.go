package domain

import "time"

// Event types recorded in the process journal.
const (
	EventRegistered        = "REGISTERED"
	EventStarted           = "STARTED"
	EventDispatch          = "DISPATCH"
	EventTaskDone          = "TASK_DONE"
	EventTaskFailed        = "TASK_FAILED"
	EventSuspended         = "SUSPENDED"
	EventApprovalRequested = "APPROVAL_REQUESTED"
	EventApprovalDecided   = "APPROVAL_DECIDED"
	EventApprovalExpired   = "APPROVAL_EXPIRED"
	EventResumed           = "RESUMED"
	EventCompleted         = "COMPLETED"
	EventFailed            = "FAILED"
	EventCancelled         = "CANCELLED"
)

// ProcessEvent is one append-only journal record. The journal is
// observability only; the engine never reads it back to rebuild state.
type ProcessEvent struct {
	ID        int64     // assigned by the journal backend
	ProcessID string    // empty for registration events
	Workflow  string    // TEXT
	TaskID    string    // TEXT, empty for lifecycle events
	Type      string    // TEXT, one of the Event* constants
	Detail    string    // TEXT
	Created   time.Time // TIMESTAMP
}
