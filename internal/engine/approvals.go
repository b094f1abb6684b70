package engine

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tmandere/stagehand/pkg/stagehand/core"
	"github.com/tmandere/stagehand/pkg/stagehand/domain"
)

// ApprovalQueue holds the pending approval requests of one engine. A mutex
// serializes request, decide and sweep so two approvers can never both win
// the same request. Resolved ids are tombstoned so a late decision gets
// ErrApprovalResolved instead of NotFound; cancellation removes requests
// without a tombstone.
type ApprovalQueue struct {
	mu       sync.Mutex
	clock    core.Clock
	pending  map[string]*domain.ApprovalRequest
	resolved map[string]bool // approval id -> approved
}

func NewApprovalQueue(clock core.Clock) *ApprovalQueue {
	return &ApprovalQueue{
		clock:    clock,
		pending:  make(map[string]*domain.ApprovalRequest),
		resolved: make(map[string]bool),
	}
}

// Request enqueues a new approval ask and returns it. The TTL bounds how
// long the request may stay undecided before the sweeper rejects it.
func (q *ApprovalQueue) Request(processID, workflowName, taskID, approverRole string, ttl time.Duration) *domain.ApprovalRequest {
	now := q.clock.Now()
	req := &domain.ApprovalRequest{
		ID:           uuid.NewString(),
		ProcessID:    processID,
		WorkflowName: workflowName,
		TaskID:       taskID,
		ApproverRole: approverRole,
		Created:      now,
		Expires:      now.Add(ttl),
	}
	q.mu.Lock()
	q.pending[req.ID] = req
	q.mu.Unlock()
	return req
}

// Decide resolves a pending request and removes it from the queue. Unknown
// ids fail with NotFoundError; ids already decided or expired fail with
// ErrApprovalResolved.
func (q *ApprovalQueue) Decide(id string, approved bool) (*domain.ApprovalRequest, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	req, ok := q.pending[id]
	if !ok {
		if _, done := q.resolved[id]; done {
			return nil, core.ErrApprovalResolved
		}
		return nil, core.NewNotFoundError(core.KindApproval, id)
	}
	delete(q.pending, id)
	q.resolved[id] = approved
	return req, nil
}

// SweepExpired resolves every request whose TTL passed as an implicit
// rejection and returns them so the caller can fail the owning instances.
func (q *ApprovalQueue) SweepExpired(now time.Time) []*domain.ApprovalRequest {
	q.mu.Lock()
	defer q.mu.Unlock()
	var expired []*domain.ApprovalRequest
	for id, req := range q.pending {
		if req.Expired(now) {
			delete(q.pending, id)
			q.resolved[id] = false
			expired = append(expired, req)
		}
	}
	sort.Slice(expired, func(i, j int) bool { return expired[i].Created.Before(expired[j].Created) })
	return expired
}

// CancelProcess drops every pending request of one process without leaving
// tombstones, so a later decision on those ids reports NotFound.
func (q *ApprovalQueue) CancelProcess(processID string) []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	var removed []string
	for id, req := range q.pending {
		if req.ProcessID == processID {
			delete(q.pending, id)
			removed = append(removed, id)
		}
	}
	return removed
}

// Pending lists undecided requests, oldest first. An empty role matches all.
func (q *ApprovalQueue) Pending(approverRole string) []*domain.ApprovalRequest {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []*domain.ApprovalRequest
	for _, req := range q.pending {
		if approverRole == "" || req.ApproverRole == approverRole {
			out = append(out, req)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Created.Before(out[j].Created) })
	return out
}
