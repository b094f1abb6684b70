package domain

import "time"

// ApprovalRequest is one pending ask for a human decision. It lives in the
// approval queue from the moment a HumanApproval task suspends its instance
// until a decision, expiry or cancellation removes it.
type ApprovalRequest struct {
	ID           string
	ProcessID    string
	WorkflowName string
	TaskID       string
	ApproverRole string
	Created      time.Time
	Expires      time.Time
}

// Expired reports whether the request's TTL has passed.
func (a *ApprovalRequest) Expired(now time.Time) bool {
	return !a.Expires.IsZero() && now.After(a.Expires)
}
