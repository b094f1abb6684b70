package models

// ProcessStatus is the lifecycle state of a process instance.
type ProcessStatus string

const (
	StatusPending         ProcessStatus = "Pending"
	StatusRunning         ProcessStatus = "Running"
	StatusWaitingApproval ProcessStatus = "WaitingApproval"
	StatusCompleted       ProcessStatus = "Completed"
	StatusFailed          ProcessStatus = "Failed"
	StatusCancelled       ProcessStatus = "Cancelled"
)

// Terminal reports whether no further transition may leave the state.
func (s ProcessStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}
