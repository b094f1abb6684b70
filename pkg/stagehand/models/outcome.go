package models

// OutcomeKind tags the result of dispatching one task.
type OutcomeKind string

const (
	OutcomeSuccess   OutcomeKind = "SUCCESS"
	OutcomeFailure   OutcomeKind = "FAILURE"
	OutcomeSuspended OutcomeKind = "SUSPENDED"
)

// TaskOutcome is what a dispatch strategy hands back to the step loop.
// Exactly one of Updates, Reason or ApprovalID is meaningful, selected by
// Kind.
type TaskOutcome struct {
	Kind       OutcomeKind
	Updates    map[string]any // Success: key/value updates to merge
	Reason     string         // Failure: human-readable cause
	ApprovalID string         // Suspended: the approval request waiting on
}

func Success(updates map[string]any) TaskOutcome {
	return TaskOutcome{Kind: OutcomeSuccess, Updates: updates}
}

func Failure(reason string) TaskOutcome {
	return TaskOutcome{Kind: OutcomeFailure, Reason: reason}
}

func Suspended(approvalID string) TaskOutcome {
	return TaskOutcome{Kind: OutcomeSuspended, ApprovalID: approvalID}
}
