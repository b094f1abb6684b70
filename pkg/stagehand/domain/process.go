package domain

import (
	"time"

	"github.com/tmandere/stagehand/pkg/stagehand/models"
)

// ProcessInstance is one live run of a workflow definition. The engine owns
// the only mutable copy; everything handed outward is a snapshot.
type ProcessInstance struct {
	ID               string
	WorkflowName     string
	Status           models.ProcessStatus
	Data             map[string]any
	Completed        []string // task ids, in completion order
	Failed           []string
	PendingApprovals []string // approval request ids
	CurrentTask      string   // task in flight; empty when idle
	Failure          *models.TaskFailure
	Created          time.Time
	Started          time.Time
	Finished         time.Time
}

// CompletedSet returns the completed task ids as a lookup set.
func (p *ProcessInstance) CompletedSet() map[string]struct{} {
	set := make(map[string]struct{}, len(p.Completed))
	for _, id := range p.Completed {
		set[id] = struct{}{}
	}
	return set
}

// FailedSet returns the failed task ids as a lookup set.
func (p *ProcessInstance) FailedSet() map[string]struct{} {
	set := make(map[string]struct{}, len(p.Failed))
	for _, id := range p.Failed {
		set[id] = struct{}{}
	}
	return set
}

// DataCopy returns a shallow copy of the instance data. Dispatch strategies
// receive the copy so concurrent snapshots never race with task code.
func (p *ProcessInstance) DataCopy() map[string]any {
	out := make(map[string]any, len(p.Data))
	for k, v := range p.Data {
		out[k] = v
	}
	return out
}

// Snapshot renders the externally observable view of the instance.
func (p *ProcessInstance) Snapshot() models.ProcessSnapshot {
	snap := models.ProcessSnapshot{
		ID:             p.ID,
		Workflow:       p.WorkflowName,
		Status:         p.Status,
		CurrentTask:    p.CurrentTask,
		CompletedCount: len(p.Completed),
		FailedCount:    len(p.Failed),
		Completed:      append([]string(nil), p.Completed...),
		Failed:         append([]string(nil), p.Failed...),
		Data:           p.DataCopy(),
		Created:        p.Created,
		Started:        p.Started,
		Finished:       p.Finished,
	}
	if len(p.PendingApprovals) > 0 {
		snap.PendingApprovalIDs = append([]string(nil), p.PendingApprovals...)
	}
	if p.Failure != nil {
		f := *p.Failure
		snap.Failure = &f
	}
	return snap
}
